package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/kestrel/internal/common"
	"github.com/bobmcallan/kestrel/internal/models"
)

// Pricer resolves a symbol to its current per-share price.
type Pricer func(symbol string) (decimal.Decimal, error)

// AccountStore holds the accounts of a single backtest run, keyed by id.
// All mutations happen on the driver goroutine, so no locking is needed.
type AccountStore struct {
	accounts map[int64]*models.Account
	logger   *common.Logger
}

// NewAccountStore creates an empty account store.
func NewAccountStore(logger *common.Logger) *AccountStore {
	return &AccountStore{
		accounts: make(map[int64]*models.Account),
		logger:   logger,
	}
}

// Create registers a new active account with the given starting capital.
func (s *AccountStore) Create(id int64, name string, initialCapital decimal.Decimal, created time.Time) *models.Account {
	account := &models.Account{
		ID:             id,
		Name:           name,
		InitialCapital: initialCapital,
		CurrentCash:    initialCapital,
		CreatedDate:    created,
		IsActive:       true,
	}
	s.accounts[id] = account
	return account
}

// Get retrieves an account by id.
func (s *AccountStore) Get(id int64) (*models.Account, error) {
	account, ok := s.accounts[id]
	if !ok {
		return nil, fmt.Errorf("%w: account %d not found", ErrInvariantBreach, id)
	}
	return account, nil
}

// ReserveFunds debits amount from the account if it has enough cash.
// Returns false (and changes nothing) when cash is insufficient.
func (s *AccountStore) ReserveFunds(id int64, amount decimal.Decimal) (bool, error) {
	account, err := s.Get(id)
	if err != nil {
		return false, err
	}
	if account.CurrentCash.LessThan(amount) {
		return false, nil
	}
	account.CurrentCash = account.CurrentCash.Sub(amount)
	return true, nil
}

// ReleaseFunds credits amount back to the account.
func (s *AccountStore) ReleaseFunds(id int64, amount decimal.Decimal) error {
	account, err := s.Get(id)
	if err != nil {
		return err
	}
	account.CurrentCash = account.CurrentCash.Add(amount)
	return nil
}

// ApplyTrade adjusts cash by the signed delta, net of commission. A delta
// that would drive cash negative is an invariant breach; the execution
// engine must have pre-validated the order.
func (s *AccountStore) ApplyTrade(id int64, deltaCash decimal.Decimal) error {
	account, err := s.Get(id)
	if err != nil {
		return err
	}

	next := account.CurrentCash.Add(deltaCash)
	if next.IsNegative() {
		return fmt.Errorf("%w: trade delta %s would drive account %d cash negative (cash %s)",
			ErrInvariantBreach, deltaCash, id, account.CurrentCash)
	}
	account.CurrentCash = next
	return nil
}

// TotalEquity computes cash plus the market value of the given open
// positions, priced through the supplied pricer.
func (s *AccountStore) TotalEquity(id int64, open []*models.Position, pricer Pricer) (decimal.Decimal, error) {
	account, err := s.Get(id)
	if err != nil {
		return decimal.Zero, err
	}

	equity := account.CurrentCash
	for _, pos := range open {
		price, err := pricer(pos.Symbol)
		if err != nil {
			return decimal.Zero, err
		}
		equity = equity.Add(pos.MarketValue(price))
	}
	return equity, nil
}
