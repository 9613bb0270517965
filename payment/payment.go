// Package payment drives the payment flow: initialize a transaction with
// the provider, hand the redirect URL to the caller, and verify the outcome
// by reference. The steps are strictly sequential; the first failure is
// surfaced and nothing is retried.
package payment

import (
	"context"
	"fmt"
	"log/slog"

	loyalty "github.com/loyaltyclub/loyalty-go"
)

// Payment states reported by the provider.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Backend defines the contract for pluggable payment backends.
type Backend interface {
	// Initialize creates a pending payment with the provider.
	Initialize(ctx context.Context, req loyalty.PaymentRequest) (*loyalty.Payment, error)

	// Verify checks a payment's state by reference.
	Verify(ctx context.Context, reference string) (*loyalty.Payment, error)
}

// Service implements loyalty.PaymentService with a configurable backend.
type Service struct {
	backend Backend
	logger  *slog.Logger
}

// compile-time check
var _ loyalty.PaymentService = (*Service)(nil)

// Option configures the Service.
type Option func(*Service)

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a payment service with the given backend.
func New(backend Backend, opts ...Option) *Service {
	s := &Service{backend: backend}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Initialize creates a pending payment and returns the provider redirect
// URL. Guards run before any request is sent.
func (s *Service) Initialize(ctx context.Context, req loyalty.PaymentRequest) (*loyalty.Payment, error) {
	if req.Amount <= 0 {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "amount must be positive", nil)
	}
	if req.Currency == "" {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "currency is required", nil)
	}
	if req.Email == "" {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "email is required", nil)
	}

	p, err := s.backend.Initialize(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("payment: initialize: %w", err)
	}
	return p, nil
}

// Verify checks a payment's state with the provider.
func (s *Service) Verify(ctx context.Context, reference string) (*loyalty.Payment, error) {
	if reference == "" {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "reference is required", nil)
	}

	p, err := s.backend.Verify(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("payment: verify: %w", err)
	}
	return p, nil
}

// Process runs initialize then verify. A payment still pending after
// verification carries the redirect URL; the caller sends the user there
// and verifies again once the provider redirects back.
func (s *Service) Process(ctx context.Context, req loyalty.PaymentRequest) (*loyalty.Payment, error) {
	p, err := s.Initialize(ctx, req)
	if err != nil {
		return nil, err
	}

	verified, err := s.Verify(ctx, p.Reference)
	if err != nil {
		return nil, err
	}

	if verified.Status == StatusPending && verified.RedirectURL == "" {
		// Preserve the redirect target from initialization; verification
		// responses do not repeat it.
		verified.RedirectURL = p.RedirectURL
	}

	if s.logger != nil {
		s.logger.Info("payment processed", "reference", verified.Reference, "status", verified.Status)
	}
	return verified, nil
}
