// Package cashback manages the member's cashback ledger: balance, history,
// and withdrawal requests.
package cashback

import (
	"context"
	"fmt"
	"log/slog"

	loyalty "github.com/loyaltyclub/loyalty-go"
)

// Backend defines the contract for pluggable cashback backends.
type Backend interface {
	// Balance returns the current cashback balance in minor units.
	Balance(ctx context.Context) (int64, error)

	// History returns ledger entries with pagination.
	History(ctx context.Context, opts loyalty.ListOptions) ([]loyalty.CashbackEntry, *loyalty.Pagination, error)

	// Withdraw requests a cashback withdrawal.
	Withdraw(ctx context.Context, amount int64) (*loyalty.CashbackEntry, error)
}

// Service implements loyalty.CashbackService with a configurable backend.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

// compile-time check
var _ loyalty.CashbackService = (*Service)(nil)

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a cashback service with the given backend.
func New(backend Backend, opts ...Option) *Service {
	s := &Service{backend: backend}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Balance returns the current cashback balance in minor units.
func (s *Service) Balance(ctx context.Context) (int64, error) {
	balance, err := s.backend.Balance(ctx)
	if err != nil {
		return 0, fmt.Errorf("cashback: %w", err)
	}
	return balance, nil
}

// History returns ledger entries with pagination.
func (s *Service) History(ctx context.Context, opts loyalty.ListOptions) ([]loyalty.CashbackEntry, *loyalty.Pagination, error) {
	entries, pagination, err := s.backend.History(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("cashback: %w", err)
	}
	return entries, pagination, nil
}

// Withdraw requests a cashback withdrawal. The balance check here is a
// courtesy guard saving a round trip; the backend remains the authority
// and re-checks on its side.
func (s *Service) Withdraw(ctx context.Context, amount int64) (*loyalty.CashbackEntry, error) {
	if amount <= 0 {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "amount must be positive", nil)
	}

	balance, err := s.backend.Balance(ctx)
	if err != nil {
		return nil, fmt.Errorf("cashback: %w", err)
	}
	if amount > balance {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "insufficient cashback balance", nil)
	}

	entry, err := s.backend.Withdraw(ctx, amount)
	if err != nil {
		return nil, fmt.Errorf("cashback: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("cashback withdrawal requested", "amount", amount)
	}
	return entry, nil
}
