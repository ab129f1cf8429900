package badger

import (
	"context"
	"fmt"
	"sort"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

type resultStorage struct {
	store  *Store
	logger *common.Logger
}

// NewResultStorage creates a new ResultStore backed by BadgerHold.
func NewResultStorage(store *Store, logger *common.Logger) *resultStorage {
	return &resultStorage{store: store, logger: logger}
}

func (s *resultStorage) SaveResult(_ context.Context, result *models.BacktestResult) error {
	if result.ID == "" {
		return fmt.Errorf("cannot save result without an id")
	}

	if err := s.store.db.Upsert(result.ID, result); err != nil {
		return fmt.Errorf("failed to save backtest result: %w", err)
	}
	s.logger.Debug().Str("id", result.ID).Str("status", string(result.Status)).Msg("Backtest result saved")
	return nil
}

func (s *resultStorage) GetResult(_ context.Context, id string) (*models.BacktestResult, error) {
	var result models.BacktestResult
	err := s.store.db.Get(id, &result)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("backtest result '%s' not found", id)
		}
		return nil, fmt.Errorf("failed to get backtest result '%s': %w", id, err)
	}
	return &result, nil
}

func (s *resultStorage) ListResults(_ context.Context) ([]*models.BacktestResult, error) {
	var results []models.BacktestResult
	if err := s.store.db.Find(&results, nil); err != nil {
		return nil, fmt.Errorf("failed to list backtest results: %w", err)
	}

	out := make([]*models.BacktestResult, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *resultStorage) DeleteResult(_ context.Context, id string) error {
	err := s.store.db.Delete(id, models.BacktestResult{})
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete backtest result '%s': %w", id, err)
	}
	s.logger.Debug().Str("id", id).Msg("Backtest result deleted")
	return nil
}
