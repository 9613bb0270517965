// Package loyalty provides a framework-agnostic Go SDK for a loyalty-program
// REST API: member dashboard data (points, achievements, badges, payments,
// cashback) and admin analytics.
//
// The SDK defines interfaces for session resolution, notifications, and the
// domain services. Concrete implementations are injected via Option
// functions, making the root package independent of any specific transport.
// The restapi package wires every interface to the REST backend:
//
//	rc, err := restapi.Connect(loyalty.ConfigFromEnv(),
//	    restapi.WithSessionProvider(session.NewCached(session.Static(token))),
//	)
//	client, err := loyalty.NewClient(cfg,
//	    loyalty.WithLoyaltyData(rc.LoyaltyData()),
//	    loyalty.WithPayments(rc.Payments()),
//	)
package loyalty

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Default durations for the client-side caches and the auto-reset policy.
const (
	// DefaultTokenLease is how long a resolved session token is reused
	// before re-resolving. Sessions live 24h server-side; the lease is
	// shorter so the cached token never outlives the real session.
	DefaultTokenLease = 23 * time.Hour

	// DefaultResetDelay is how long after a successful mutation the owning
	// entity's query cache is wiped, letting in-flight requests settle.
	DefaultResetDelay = 300 * time.Millisecond

	// DefaultRefreshAttempts is how many times a post-push refetch retries.
	DefaultRefreshAttempts = 3

	// DefaultRefreshDelay is the fixed delay between refetch retries.
	DefaultRefreshDelay = 2 * time.Second
)

// Config holds connection and behavior configuration.
type Config struct {
	// APIBaseURL is the root URL of the loyalty REST API.
	APIBaseURL string

	// APIKey is sent on every request as the X-Api-Key header.
	APIKey string

	// RealtimeURL is the websocket endpoint of the push channel. Leave
	// empty to disable realtime updates.
	RealtimeURL string

	// RealtimeKey authenticates the realtime subscription.
	RealtimeKey string

	// TokenLease bounds how long a cached session token is reused.
	// Default: DefaultTokenLease.
	TokenLease time.Duration

	// ResetDelay is the auto-reset delay after a successful mutation.
	// Default: DefaultResetDelay.
	ResetDelay time.Duration

	// RefreshAttempts and RefreshDelay control the post-push refetch retry
	// loop. Defaults: DefaultRefreshAttempts, DefaultRefreshDelay.
	RefreshAttempts int
	RefreshDelay    time.Duration
}

// ConfigFromEnv reads configuration from the environment. Missing realtime
// variables disable realtime updates rather than failing; a missing API URL
// is reported by NewClient.
//
// Variables: LOYALTY_API_URL, LOYALTY_API_KEY, LOYALTY_REALTIME_URL,
// LOYALTY_REALTIME_KEY.
func ConfigFromEnv() Config {
	return Config{
		APIBaseURL:  os.Getenv("LOYALTY_API_URL"),
		APIKey:      os.Getenv("LOYALTY_API_KEY"),
		RealtimeURL: os.Getenv("LOYALTY_REALTIME_URL"),
		RealtimeKey: os.Getenv("LOYALTY_REALTIME_KEY"),
	}
}

// withDefaults fills zero-valued durations and counts.
func (c Config) withDefaults() Config {
	if c.TokenLease == 0 {
		c.TokenLease = DefaultTokenLease
	}
	if c.ResetDelay == 0 {
		c.ResetDelay = DefaultResetDelay
	}
	if c.RefreshAttempts == 0 {
		c.RefreshAttempts = DefaultRefreshAttempts
	}
	if c.RefreshDelay == 0 {
		c.RefreshDelay = DefaultRefreshDelay
	}
	return c
}

// Client is the main entry point for loyalty operations.
// Service implementations are injected via Option functions.
type Client struct {
	config   Config
	logger   *slog.Logger
	session  SessionProvider
	notifier Notifier
	loyalty  LoyaltyDataService
	payments PaymentService
	cashback CashbackService
	admin    AdminService
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSessionProvider sets the session resolution implementation.
func WithSessionProvider(p SessionProvider) Option {
	return func(c *Client) { c.session = p }
}

// WithNotifier sets the notification implementation.
func WithNotifier(n Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLoyaltyData sets the loyalty dashboard data implementation.
func WithLoyaltyData(s LoyaltyDataService) Option {
	return func(c *Client) { c.loyalty = s }
}

// WithPayments sets the payment flow implementation.
func WithPayments(s PaymentService) Option {
	return func(c *Client) { c.payments = s }
}

// WithCashback sets the cashback ledger implementation.
func WithCashback(s CashbackService) Option {
	return func(c *Client) { c.cashback = s }
}

// WithAdmin sets the admin analytics implementation.
func WithAdmin(s AdminService) Option {
	return func(c *Client) { c.admin = s }
}

// NewClient creates a new loyalty client with the given configuration and
// options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("loyalty: APIBaseURL is required")
	}
	cfg = cfg.withDefaults()

	c := &Client{config: cfg}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Config returns the client configuration with defaults applied.
func (c *Client) Config() Config { return c.config }

// Session returns the session provider, or nil if not configured.
func (c *Client) Session() SessionProvider { return c.session }

// Notifier returns the notifier, or nil if not configured.
func (c *Client) Notifier() Notifier { return c.notifier }

// LoyaltyData returns the loyalty data service, or nil if not configured.
func (c *Client) LoyaltyData() LoyaltyDataService { return c.loyalty }

// Payments returns the payment service, or nil if not configured.
func (c *Client) Payments() PaymentService { return c.payments }

// Cashback returns the cashback service, or nil if not configured.
func (c *Client) Cashback() CashbackService { return c.cashback }

// Admin returns the admin analytics service, or nil if not configured.
func (c *Client) Admin() AdminService { return c.admin }

// HealthCheck ensures at least one service has been injected.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.loyalty == nil && c.payments == nil && c.cashback == nil && c.admin == nil {
		return fmt.Errorf("loyalty: no services configured, at least one service is required")
	}
	return nil
}

// Close releases all resources held by the client.
// Any injected service that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []interface{}{
		c.session, c.notifier, c.loyalty,
		c.payments, c.cashback, c.admin,
	}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
