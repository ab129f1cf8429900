// Package backtest provides the backtest orchestration service: it builds
// strategies, runs the engine, and persists results.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/engine"
	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/models"
	"github.com/bobmcallan/kestrel/internal/strategy"
)

// Service implements BacktestService
type Service struct {
	storage     interfaces.StorageManager
	commission  engine.CommissionModel
	maxParallel int
	logger      *common.Logger
}

// NewService creates a new backtest service.
func NewService(storage interfaces.StorageManager, config *common.Config, logger *common.Logger) *Service {
	maxParallel := config.Engine.MaxParallel
	if maxParallel <= 0 {
		maxParallel = 4
	}

	return &Service{
		storage:     storage,
		commission:  engine.FlatCommission(config.Engine.GetCommission()),
		maxParallel: maxParallel,
		logger:      logger,
	}
}

// Run executes a single backtest and persists the result. Aborted and
// canceled runs are persisted too; only config errors return an error.
func (s *Service) Run(ctx context.Context, config models.BacktestConfig) (*models.BacktestResult, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	strat, err := strategy.New(config.Strategy, config.Symbols)
	if err != nil {
		return nil, err
	}

	driver := engine.NewDriver(config, s.storage.BarStore(), strat, s.commission, s.logger)
	result := driver.Run(ctx)

	result.ID = uuid.NewString()
	result.CreatedAt = time.Now().UTC()

	if err := s.storage.ResultStore().SaveResult(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to persist backtest result: %w", err)
	}

	s.logger.Info().
		Str("id", result.ID).
		Str("status", string(result.Status)).
		Str("strategy", config.Strategy.Type).
		Msg("Backtest persisted")
	return result, nil
}

// RunBatch executes several isolated backtests concurrently, bounded by the
// configured parallelism. Results come back in config order.
func (s *Service) RunBatch(ctx context.Context, configs []models.BacktestConfig) ([]*models.BacktestResult, error) {
	results := make([]*models.BacktestResult, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)

	for i, config := range configs {
		g.Go(func() error {
			result, err := s.Run(gctx, config)
			if err != nil {
				return fmt.Errorf("backtest %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetResult retrieves a persisted result by run ID.
func (s *Service) GetResult(ctx context.Context, id string) (*models.BacktestResult, error) {
	return s.storage.ResultStore().GetResult(ctx, id)
}

// ListResults returns all persisted results, newest first.
func (s *Service) ListResults(ctx context.Context) ([]*models.BacktestResult, error) {
	return s.storage.ResultStore().ListResults(ctx)
}

func validateConfig(config models.BacktestConfig) error {
	if config.StartDate.IsZero() || config.EndDate.IsZero() {
		return fmt.Errorf("start and end dates are required")
	}
	if models.Day(config.EndDate).Before(models.Day(config.StartDate)) {
		return fmt.Errorf("end date %s is before start date %s",
			config.EndDate.Format(models.DateLayout), config.StartDate.Format(models.DateLayout))
	}
	if !config.InitialCapital.IsPositive() {
		return fmt.Errorf("initial capital must be positive, got %s", config.InitialCapital)
	}
	// An empty symbol universe is allowed: the run produces cash-only
	// snapshots.
	if config.Strategy.Type == "" {
		return fmt.Errorf("strategy type is required (available: %v)", strategy.Types())
	}
	return nil
}

var _ interfaces.BacktestService = (*Service)(nil)
