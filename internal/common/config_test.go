package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, "development", config.Environment)
	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "5", config.Engine.Commission)
	assert.Equal(t, 4, config.Engine.MaxParallel)
	assert.False(t, config.IsProduction())
}

func TestLoadConfigMergesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kestrel.toml")
	content := `
environment = "production"

[server]
port = 9090

[engine]
commission = "7.50"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, config.IsProduction())
	assert.Equal(t, 9090, config.Server.Port)
	assert.Equal(t, "7.50", config.Engine.Commission)
	// Untouched sections keep their defaults.
	assert.Equal(t, "0.0.0.0", config.Server.Host)
}

func TestLoadConfigSkipsMissingFiles(t *testing.T) {
	config, err := LoadConfig("/does/not/exist.toml")
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("KESTREL_ENV", "production")
	t.Setenv("KESTREL_PORT", "7777")
	t.Setenv("KESTREL_COMMISSION", "2.50")

	config, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, config.IsProduction())
	assert.Equal(t, 7777, config.Server.Port)
	assert.True(t, config.Engine.GetCommission().Equal(decimal.RequireFromString("2.50")))
}

func TestGetCommission(t *testing.T) {
	c := EngineConfig{Commission: "12.34"}
	assert.Equal(t, "12.34", c.GetCommission().String())

	// Garbage and empty both fall back to the flat default of 5.
	c = EngineConfig{Commission: "nope"}
	assert.Equal(t, "5", c.GetCommission().String())
	c = EngineConfig{}
	assert.Equal(t, "5", c.GetCommission().String())
}
