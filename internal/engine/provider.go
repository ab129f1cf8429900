package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/interfaces"
	"github.com/bobmcallan/kestrel/internal/models"
)

// Provider is the temporal gate over the price repository. It owns the
// simulation clock and guarantees that no query ever observes a bar dated
// after it. Each backtest run gets its own Provider instance; the per-symbol
// cache is never shared across runs.
type Provider struct {
	repo    interfaces.PriceRepository
	logger  *common.Logger
	current time.Time
	bars    map[string][]models.Bar // sorted by date ascending
	loaded  map[string]bool
}

// NewProvider creates a provider with its clock at the given start date.
func NewProvider(repo interfaces.PriceRepository, logger *common.Logger, start time.Time) *Provider {
	return &Provider{
		repo:    repo,
		logger:  logger,
		current: models.Day(start),
		bars:    make(map[string][]models.Bar),
		loaded:  make(map[string]bool),
	}
}

// Preload batch-loads bars for a symbol universe so the run does no
// repository I/O inside the day loop. Unknown symbols load as empty and are
// reported when first queried.
func (p *Provider) Preload(symbols []string) error {
	for _, symbol := range symbols {
		if _, err := p.load(symbol); err != nil {
			return err
		}
	}
	return nil
}

// load fetches and caches the full bar history for a symbol.
func (p *Provider) load(symbol string) ([]models.Bar, error) {
	if p.loaded[symbol] {
		return p.bars[symbol], nil
	}

	bars, err := p.repo.LoadAllBars(symbol)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}

	// The repository contract promises ascending order; don't trust it
	// blindly; a mis-sorted cache would corrupt every temporal query.
	if !sort.SliceIsSorted(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) }) {
		sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	}

	p.bars[symbol] = bars
	p.loaded[symbol] = true
	p.logger.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Bars loaded into provider cache")
	return bars, nil
}

// AdvanceTime sets the simulation clock. The clock is monotonic: moving it
// backward fails with ErrClockRegression.
func (p *Provider) AdvanceTime(t time.Time) error {
	day := models.Day(t)
	if day.Before(p.current) {
		return fmt.Errorf("%w: cannot move clock from %s back to %s",
			ErrClockRegression, p.current.Format(models.DateLayout), day.Format(models.DateLayout))
	}
	p.current = day
	return nil
}

// CurrentTime returns the simulation clock.
func (p *Provider) CurrentTime() time.Time {
	return p.current
}

// GetBar returns the most recent bar at or before asOf.
func (p *Provider) GetBar(symbol string, asOf time.Time) (models.Bar, error) {
	day := models.Day(asOf)
	if day.After(p.current) {
		return models.Bar{}, fmt.Errorf("%w: requested %s bar as of %s but clock is %s",
			ErrFutureData, symbol, day.Format(models.DateLayout), p.current.Format(models.DateLayout))
	}

	bars, err := p.load(symbol)
	if err != nil {
		return models.Bar{}, err
	}
	if len(bars) == 0 {
		return models.Bar{}, fmt.Errorf("%w: no bars for symbol %s", ErrDataNotFound, symbol)
	}

	idx := lastIndexAtOrBefore(bars, day)
	if idx < 0 {
		return models.Bar{}, fmt.Errorf("%w: no %s bar at or before %s",
			ErrDataNotFound, symbol, day.Format(models.DateLayout))
	}
	return bars[idx], nil
}

// GetHistoricalBars returns bars with from ≤ date ≤ min(to, clock) in
// ascending order. A window reaching past the clock clamps silently;
// strategies routinely request a forward window.
func (p *Provider) GetHistoricalBars(symbol string, from, to time.Time) ([]models.Bar, error) {
	fromDay := models.Day(from)
	toDay := models.Day(to)
	if toDay.After(p.current) {
		toDay = p.current
	}
	if fromDay.After(toDay) {
		return nil, nil
	}

	bars, err := p.load(symbol)
	if err != nil {
		return nil, err
	}

	// First bar with date >= fromDay.
	lo := sort.Search(len(bars), func(i int) bool {
		return !bars[i].Date.Before(fromDay)
	})
	// First bar with date > toDay.
	hi := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(toDay)
	})
	if lo >= hi {
		return nil, nil
	}

	out := make([]models.Bar, hi-lo)
	copy(out, bars[lo:hi])
	return out, nil
}

// IsSymbolAvailable reports whether the symbol has a bar at or before asOf,
// clamped to the clock.
func (p *Provider) IsSymbolAvailable(symbol string, asOf time.Time) bool {
	day := models.Day(asOf)
	if day.After(p.current) {
		day = p.current
	}

	bars, err := p.load(symbol)
	if err != nil || len(bars) == 0 {
		return false
	}
	return lastIndexAtOrBefore(bars, day) >= 0
}

// lastIndexAtOrBefore finds the index of the newest bar dated at or before
// day, or -1. Bars are sorted ascending, so this is the element just before
// the first bar dated after day.
func lastIndexAtOrBefore(bars []models.Bar, day time.Time) int {
	idx := sort.Search(len(bars), func(i int) bool {
		return bars[i].Date.After(day)
	})
	return idx - 1
}

var _ interfaces.MarketProvider = (*Provider)(nil)
