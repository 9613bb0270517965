// Package restapi wires the loyalty SDK to the REST backend.
//
// Connect builds the full stack: the HTTP transport, the shared query
// cache, the entity registry with its auto-reset policy, the generated
// entity clients for the standard resources, the domain services, and the
// realtime subscriber. The result plugs into loyalty.NewClient via
// Options():
//
//	rc, err := restapi.Connect(loyalty.ConfigFromEnv(),
//	    restapi.WithSessionProvider(session.NewCached(provider)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rc.Close()
//
//	client, err := loyalty.NewClient(rc.Config(), rc.Options()...)
package restapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/admin"
	"github.com/loyaltyclub/loyalty-go/cache"
	"github.com/loyaltyclub/loyalty-go/cashback"
	"github.com/loyaltyclub/loyalty-go/entity"
	"github.com/loyaltyclub/loyalty-go/loyaltydata"
	"github.com/loyaltyclub/loyalty-go/metrics"
	"github.com/loyaltyclub/loyalty-go/payment"
	"github.com/loyaltyclub/loyalty-go/realtime"
	"github.com/loyaltyclub/loyalty-go/session"
	"github.com/loyaltyclub/loyalty-go/store"
	"github.com/loyaltyclub/loyalty-go/transport"
)

// Standard entity resources generated for every connection.
var standardEntities = []entity.Config{
	{Name: "users", Endpoint: "users"},
	{Name: "achievements", Endpoint: "achievements"},
	{Name: "badges", Endpoint: "badges"},
	{Name: "payments", Endpoint: "payments"},
}

// Client is the wired REST implementation of the loyalty SDK.
type Client struct {
	cfg      loyalty.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	notifier loyalty.Notifier
	session  loyalty.SessionProvider

	transport *transport.Client
	cache     *cache.Store
	registry  *store.Registry
	entities  map[string]*entity.Client

	loyaltyData *loyaltydata.Service
	payments    *payment.Service
	cashback    *cashback.Service
	admin       *admin.Service
	realtime    *realtime.Client
}

// Option configures Connect.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	notifier       loyalty.Notifier
	session        loyalty.SessionProvider
	cachedInner    loyalty.SessionProvider
	httpClient     *http.Client
	metricsEnabled bool
	signOut        func()
	extraEntities  []entity.Config
}

// WithLogger sets a structured logger for every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNotifier sets the notification surface.
func WithNotifier(n loyalty.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithSessionProvider sets the session used for outgoing requests. Without
// one, a request-scoped context provider is used.
func WithSessionProvider(p loyalty.SessionProvider) Option {
	return func(o *options) { o.session = p }
}

// WithCachedSession wraps inner with a lease-bounded token cache. The lease
// comes from the connection configuration, and token resolutions are
// counted when metrics are enabled. Use for machine identities resolved by
// credential login; request-scoped sessions should not be cached.
func WithCachedSession(inner loyalty.SessionProvider) Option {
	return func(o *options) { o.cachedInner = inner }
}

// WithHTTPClient sets a custom HTTP client for the transport.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithMetrics enables Prometheus metrics registration.
func WithMetrics() Option {
	return func(o *options) { o.metricsEnabled = true }
}

// WithSignOutHook registers the hook fired on an unauthenticated response.
func WithSignOutHook(fn func()) Option {
	return func(o *options) { o.signOut = fn }
}

// WithEntity generates an additional entity client beyond the standard
// resources.
func WithEntity(cfg entity.Config) Option {
	return func(o *options) { o.extraEntities = append(o.extraEntities, cfg) }
}

// Connect builds the wired SDK stack for the given configuration.
func Connect(cfg loyalty.Config, opts ...Option) (*Client, error) {
	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("restapi: APIBaseURL is required")
	}
	if cfg.ResetDelay == 0 {
		cfg.ResetDelay = loyalty.DefaultResetDelay
	}
	if cfg.TokenLease == 0 {
		cfg.TokenLease = loyalty.DefaultTokenLease
	}
	if cfg.RefreshAttempts == 0 {
		cfg.RefreshAttempts = loyalty.DefaultRefreshAttempts
	}
	if cfg.RefreshDelay == 0 {
		cfg.RefreshDelay = loyalty.DefaultRefreshDelay
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	m := metrics.New(o.metricsEnabled)
	if o.cachedInner != nil {
		o.session = session.NewCached(o.cachedInner,
			session.WithLease(cfg.TokenLease),
			session.WithResolveHook(m.RecordTokenResolution),
		)
	}
	if o.session == nil {
		o.session = session.FromContext()
	}

	c := &Client{
		cfg:      cfg,
		logger:   o.logger,
		metrics:  m,
		notifier: o.notifier,
		session:  o.session,
		entities: make(map[string]*entity.Client),
	}

	tOpts := []transport.Option{
		transport.WithSessionProvider(o.session),
		transport.WithMetrics(c.metrics),
	}
	if o.notifier != nil {
		tOpts = append(tOpts, transport.WithNotifier(o.notifier))
	}
	if o.logger != nil {
		tOpts = append(tOpts, transport.WithLogger(o.logger))
	}
	if o.httpClient != nil {
		tOpts = append(tOpts, transport.WithHTTPClient(o.httpClient))
	}
	if o.signOut != nil {
		tOpts = append(tOpts, transport.WithSignOutHook(o.signOut))
	}

	t, err := transport.New(cfg.APIBaseURL, cfg.APIKey, tOpts...)
	if err != nil {
		return nil, fmt.Errorf("restapi: %w", err)
	}
	c.transport = t

	c.cache = cache.New(cache.WithMetrics(c.metrics))

	regOpts := []store.Option{store.WithResetDelay(cfg.ResetDelay)}
	if o.logger != nil {
		regOpts = append(regOpts, store.WithLogger(o.logger))
	}
	c.registry = store.New(c.cache, regOpts...)

	for _, ecfg := range append(standardEntities, o.extraEntities...) {
		eOpts := []entity.Option{
			entity.WithCache(c.cache),
			entity.WithEventSink(c.registry),
			entity.WithMetrics(c.metrics),
		}
		if o.logger != nil {
			eOpts = append(eOpts, entity.WithLogger(o.logger))
		}
		ec, err := entity.New(ecfg, t, eOpts...)
		if err != nil {
			return nil, fmt.Errorf("restapi: entity %q: %w", ecfg.Name, err)
		}
		if err := c.registry.Register(ec); err != nil {
			return nil, fmt.Errorf("restapi: entity %q: %w", ecfg.Name, err)
		}
		c.entities[ecfg.Name] = ec
	}

	ldOpts := []loyaltydata.Option{
		loyaltydata.WithRetry(cfg.RefreshAttempts, cfg.RefreshDelay),
	}
	if o.logger != nil {
		ldOpts = append(ldOpts, loyaltydata.WithLogger(o.logger))
	}
	c.loyaltyData = loyaltydata.New(loyaltydata.NewRESTBackend(t), ldOpts...)

	var pOpts []payment.Option
	var cbOpts []cashback.Option
	if o.logger != nil {
		pOpts = append(pOpts, payment.WithLogger(o.logger))
		cbOpts = append(cbOpts, cashback.WithLogger(o.logger))
	}
	c.payments = payment.New(payment.NewRESTBackend(t), pOpts...)
	c.cashback = cashback.New(cashback.NewRESTBackend(t), cbOpts...)

	c.admin, err = admin.New(t, c.entities["users"])
	if err != nil {
		return nil, fmt.Errorf("restapi: %w", err)
	}

	rtOpts := []realtime.Option{
		realtime.WithMetrics(c.metrics),
		realtime.WithEventHook(c.onUnlockEvent),
	}
	if o.notifier != nil {
		rtOpts = append(rtOpts, realtime.WithNotifier(o.notifier))
	}
	if o.logger != nil {
		rtOpts = append(rtOpts, realtime.WithLogger(o.logger))
	}
	c.realtime = realtime.New(cfg.RealtimeURL, cfg.RealtimeKey, rtOpts...)

	return c, nil
}

// onUnlockEvent invalidates the caches an unlock affects and refetches the
// summary with the retry loop, tolerating backend processing lag.
func (c *Client) onUnlockEvent(ev loyalty.RealtimeEvent) {
	switch ev.Type {
	case loyalty.EventAchievementUnlocked:
		c.cache.ResetEntity("achievements")
	case loyalty.EventBadgeUnlocked:
		c.cache.ResetEntity("badges")
	}

	if _, err := c.loyaltyData.Refresh(context.Background()); err != nil && c.logger != nil {
		c.logger.Warn("post-push refresh failed", "event", ev.Type, "err", err)
	}
}

// Config returns the connection configuration with defaults applied.
func (c *Client) Config() loyalty.Config { return c.cfg }

// Options returns the loyalty.Option set injecting every wired service
// into loyalty.NewClient.
func (c *Client) Options() []loyalty.Option {
	opts := []loyalty.Option{
		loyalty.WithSessionProvider(c.session),
		loyalty.WithLoyaltyData(c.loyaltyData),
		loyalty.WithPayments(c.payments),
		loyalty.WithCashback(c.cashback),
		loyalty.WithAdmin(c.admin),
	}
	if c.notifier != nil {
		opts = append(opts, loyalty.WithNotifier(c.notifier))
	}
	if c.logger != nil {
		opts = append(opts, loyalty.WithLogger(c.logger))
	}
	return opts
}

// Entity returns the generated client for a registered resource name.
func (c *Client) Entity(name string) (*entity.Client, bool) {
	ec, ok := c.entities[name]
	return ec, ok
}

// Users returns the users entity client.
func (c *Client) Users() *entity.Client { return c.entities["users"] }

// Achievements returns the achievements entity client.
func (c *Client) Achievements() *entity.Client { return c.entities["achievements"] }

// Badges returns the badges entity client.
func (c *Client) Badges() *entity.Client { return c.entities["badges"] }

// Payments returns the payments entity client.
func (c *Client) Payments() *entity.Client { return c.entities["payments"] }

// LoyaltyData returns the loyalty data service.
func (c *Client) LoyaltyData() *loyaltydata.Service { return c.loyaltyData }

// PaymentFlow returns the payment flow service.
func (c *Client) PaymentFlow() *payment.Service { return c.payments }

// Cashback returns the cashback service.
func (c *Client) Cashback() *cashback.Service { return c.cashback }

// Admin returns the admin analytics service.
func (c *Client) Admin() *admin.Service { return c.admin }

// Realtime returns the realtime subscriber; disabled when no channel was
// configured.
func (c *Client) Realtime() *realtime.Client { return c.realtime }

// Transport returns the underlying HTTP transport.
func (c *Client) Transport() *transport.Client { return c.transport }

// Registry returns the entity registry.
func (c *Client) Registry() *store.Registry { return c.registry }

// Close tears down the realtime connection and cancels pending cache
// resets.
func (c *Client) Close() error {
	err := c.realtime.Close()
	if rerr := c.registry.Close(); err == nil {
		err = rerr
	}
	return err
}
