// Package strategy provides the pluggable signal generators available to
// backtest runs, registered by type name.
package strategy

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/models"
)

// Factory builds a strategy from its raw JSON params and the run's symbol
// universe.
type Factory func(params json.RawMessage, symbols []string) (interfaces.Strategy, error)

var registry = map[string]Factory{
	TypeMACrossover: newMACrossover,
}

// New builds the strategy named by the config.
func New(config models.StrategyConfig, symbols []string) (interfaces.Strategy, error) {
	factory, ok := registry[config.Type]
	if !ok {
		return nil, fmt.Errorf("unknown strategy type %q (available: %v)", config.Type, Types())
	}
	return factory(config.Params, symbols)
}

// Types lists the registered strategy type names, sorted.
func Types() []string {
	types := make([]string, 0, len(registry))
	for name := range registry {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
