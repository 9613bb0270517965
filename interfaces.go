package loyalty

import "context"

// SessionProvider resolves the current auth token for outgoing requests.
// Implementations: session.Static, session.Login, session.FromContext,
// session.NewCached (lease-bounded caching wrapper).
type SessionProvider interface {
	// Token returns the current bearer token, or "" when no session exists.
	Token(ctx context.Context) (string, error)

	// Invalidate discards any cached token so the next call re-resolves the
	// session. No-op for stateless providers.
	Invalidate()
}

// Notification is a user-visible message (the web app's "toast").
type Notification struct {
	Level   string `json:"level"` // info, success, error
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

// Notifier receives user-visible notifications. The transport layer emits an
// error notification for every failed call unless the call opts out.
// Implementations: notify.Bus, fake.Notifier.
type Notifier interface {
	Notify(n Notification)
}

// LoyaltyDataService provides the member dashboard data that does not fit
// the generic CRUD shape.
type LoyaltyDataService interface {
	// Summary returns the aggregate loyalty view for the current user.
	Summary(ctx context.Context) (*LoyaltySummary, error)

	// Achievements returns all achievements with the current user's progress.
	Achievements(ctx context.Context) ([]Achievement, error)

	// Badges returns the badges awarded to the current user.
	Badges(ctx context.Context) ([]Badge, error)

	// SimulateUnlock asks the backend to simulate unlocking an achievement.
	SimulateUnlock(ctx context.Context, achievementID string) (*Achievement, error)

	// Refresh re-fetches the summary, retrying a fixed number of times to
	// tolerate backend processing lag after a push notification.
	Refresh(ctx context.Context) (*LoyaltySummary, error)
}

// PaymentRequest describes a payment to initialize.
type PaymentRequest struct {
	Amount   int64  `json:"amount"` // minor currency units
	Currency string `json:"currency"`
	Email    string `json:"email"`
}

// PaymentService drives the initialize, redirect and verify payment flow.
type PaymentService interface {
	// Initialize creates a pending payment and returns the provider
	// redirect URL.
	Initialize(ctx context.Context, req PaymentRequest) (*Payment, error)

	// Verify checks a payment's state with the provider by reference.
	Verify(ctx context.Context, reference string) (*Payment, error)

	// Process runs the full flow sequentially and surfaces the first error.
	Process(ctx context.Context, req PaymentRequest) (*Payment, error)
}

// CashbackService manages the member's cashback ledger.
type CashbackService interface {
	// Balance returns the current cashback balance in minor units.
	Balance(ctx context.Context) (int64, error)

	// History returns ledger entries with pagination.
	History(ctx context.Context, opts ListOptions) ([]CashbackEntry, *Pagination, error)

	// Withdraw requests a cashback withdrawal.
	Withdraw(ctx context.Context, amount int64) (*CashbackEntry, error)
}

// AdminDashboard is the aggregate analytics view for the admin console.
type AdminDashboard struct {
	TotalUsers        int   `json:"total_users"`
	ActiveUsers       int   `json:"active_users"`
	PointsOutstanding int64 `json:"points_outstanding"`
	CashbackLiability int64 `json:"cashback_liability"`
}

// AdminService provides admin-console analytics.
type AdminService interface {
	Dashboard(ctx context.Context) (*AdminDashboard, error)
}
