// Package loyaltydata provides the member dashboard data service: points
// summary, achievements with progress, badges, and the achievement
// simulation endpoint. These are composite reads that do not fit the
// generic CRUD shape.
package loyaltydata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	loyalty "github.com/loyaltyclub/loyalty-go"
)

// Backend defines the contract for pluggable data backends (REST, fakes).
type Backend interface {
	// Summary returns the aggregate loyalty view for the current user.
	Summary(ctx context.Context) (*loyalty.LoyaltySummary, error)

	// Achievements returns all achievements with the user's progress.
	Achievements(ctx context.Context) ([]loyalty.Achievement, error)

	// Badges returns the badges awarded to the user.
	Badges(ctx context.Context) ([]loyalty.Badge, error)

	// SimulateUnlock asks the backend to simulate unlocking an achievement.
	SimulateUnlock(ctx context.Context, achievementID string) (*loyalty.Achievement, error)
}

// Service implements loyalty.LoyaltyDataService with a configurable
// backend.
type Service struct {
	backend  Backend
	attempts int
	delay    time.Duration
	logger   *slog.Logger
}

// compile-time check
var _ loyalty.LoyaltyDataService = (*Service)(nil)

// Option configures the Service.
type Option func(*Service)

// WithRetry sets the refetch retry count and fixed delay used by Refresh.
// Defaults: loyalty.DefaultRefreshAttempts, loyalty.DefaultRefreshDelay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(s *Service) {
		s.attempts = attempts
		s.delay = delay
	}
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a loyalty data service with the given backend.
func New(backend Backend, opts ...Option) *Service {
	s := &Service{
		backend:  backend,
		attempts: loyalty.DefaultRefreshAttempts,
		delay:    loyalty.DefaultRefreshDelay,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Summary returns the aggregate loyalty view for the current user.
func (s *Service) Summary(ctx context.Context) (*loyalty.LoyaltySummary, error) {
	summary, err := s.backend.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("loyaltydata: %w", err)
	}
	return summary, nil
}

// Achievements returns all achievements with the user's progress.
func (s *Service) Achievements(ctx context.Context) ([]loyalty.Achievement, error) {
	achievements, err := s.backend.Achievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("loyaltydata: %w", err)
	}
	return achievements, nil
}

// Badges returns the badges awarded to the user.
func (s *Service) Badges(ctx context.Context) ([]loyalty.Badge, error) {
	badges, err := s.backend.Badges(ctx)
	if err != nil {
		return nil, fmt.Errorf("loyaltydata: %w", err)
	}
	return badges, nil
}

// SimulateUnlock asks the backend to simulate unlocking an achievement.
func (s *Service) SimulateUnlock(ctx context.Context, achievementID string) (*loyalty.Achievement, error) {
	if achievementID == "" {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "achievementID is required", nil)
	}

	achievement, err := s.backend.SimulateUnlock(ctx, achievementID)
	if err != nil {
		return nil, fmt.Errorf("loyaltydata: %w", err)
	}
	return achievement, nil
}

// Refresh re-fetches the summary, retrying with a fixed delay. Push events
// can arrive before the backend has finished processing the underlying
// activity, so the first read after a push may still see stale data.
func (s *Service) Refresh(ctx context.Context) (*loyalty.LoyaltySummary, error) {
	var lastErr error
	for attempt := 0; attempt < s.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("loyaltydata: refresh canceled: %w", ctx.Err())
			case <-time.After(s.delay):
			}
		}

		summary, err := s.backend.Summary(ctx)
		if err == nil {
			return summary, nil
		}
		lastErr = err
		if s.logger != nil {
			s.logger.Debug("refresh attempt failed", "attempt", attempt+1, "err", err)
		}
	}
	return nil, fmt.Errorf("loyaltydata: refresh failed after %d attempts: %w", s.attempts, lastErr)
}
