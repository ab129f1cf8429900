package storage

import (
	"fmt"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/storage/badger"
)

// Manager implements interfaces.StorageManager over a single BadgerHold
// database holding both price history and backtest results.
type Manager struct {
	store   *badger.Store
	bars    interfaces.BarStore
	results interfaces.ResultStore
	logger  *common.Logger
}

// NewManager creates a new StorageManager at the configured path.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	store, err := badger.NewStore(logger, config.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	logger.Info().Str("path", config.Storage.Path).Msg("Storage manager initialized")

	return &Manager{
		store:   store,
		bars:    badger.NewBarStorage(store, logger),
		results: badger.NewResultStorage(store, logger),
		logger:  logger,
	}, nil
}

// NewMemoryManager creates a StorageManager backed entirely by memory.
// Used by tests and runs that import their data per process.
func NewMemoryManager() *Manager {
	return &Manager{
		bars:    NewMemoryBarStore(),
		results: NewMemoryResultStore(),
	}
}

func (m *Manager) BarStore() interfaces.BarStore {
	return m.bars
}

func (m *Manager) ResultStore() interfaces.ResultStore {
	return m.results
}

func (m *Manager) Close() error {
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Compile-time check
var _ interfaces.StorageManager = (*Manager)(nil)
