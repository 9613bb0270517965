// Package session provides SessionProvider implementations: static tokens,
// request-scoped resolution for server contexts, credential login, and a
// lease-bounded caching wrapper.
//
// The cached wrapper is the piece the rest of the SDK relies on: it reuses a
// resolved token for a fixed lease (shorter than the real session lifetime)
// so the session is not re-resolved on every request, and collapses
// concurrent refreshes with singleflight.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	loyalty "github.com/loyaltyclub/loyalty-go"
)

// DefaultRefreshBuffer is how long before a token's own expiry the cached
// copy is considered stale, whichever comes first with the lease.
const DefaultRefreshBuffer = 5 * time.Minute

// Static returns a provider that always yields the given token.
// Invalidate is a no-op.
func Static(token string) loyalty.SessionProvider {
	return staticProvider(token)
}

type staticProvider string

func (p staticProvider) Token(ctx context.Context) (string, error) { return string(p), nil }
func (p staticProvider) Invalidate()                               {}

// FromContext returns a provider that resolves the request-scoped token
// stored with loyalty.WithSessionToken. Server-side callers fronting the
// API on behalf of a user attach the inbound bearer token to the context;
// this provider picks it up per request, so no caching applies.
func FromContext() loyalty.SessionProvider {
	return contextProvider{}
}

type contextProvider struct{}

func (contextProvider) Token(ctx context.Context) (string, error) {
	return loyalty.SessionTokenFromContext(ctx), nil
}
func (contextProvider) Invalidate() {}

// Login is a provider that resolves the session by credential login:
// POST {base}/auth/login returning {"data":{"item":{"user":...,"token":...}}}.
// Wrap it in NewCached so the login is not repeated on every request.
type Login struct {
	baseURL    string
	apiKey     string
	email      string
	password   string
	httpClient *http.Client
}

// compile-time check
var _ loyalty.SessionProvider = (*Login)(nil)

// LoginOption configures the Login provider.
type LoginOption func(*Login)

// WithHTTPClient sets a custom HTTP client for login requests.
func WithHTTPClient(c *http.Client) LoginOption {
	return func(l *Login) { l.httpClient = c }
}

// NewLogin creates a credential login provider.
func NewLogin(baseURL, apiKey, email, password string, opts ...LoginOption) *Login {
	l := &Login{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		email:      email,
		password:   password,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Token performs the credential login and returns the session token.
func (l *Login) Token(ctx context.Context) (string, error) {
	sess, err := l.Resolve(ctx)
	if err != nil {
		return "", err
	}
	return sess.Token, nil
}

// Invalidate is a no-op; Login holds no state.
func (l *Login) Invalidate() {}

// Resolve performs the credential login and returns the full session,
// including the authenticated user.
func (l *Login) Resolve(ctx context.Context) (*loyalty.Session, error) {
	body, err := json.Marshal(map[string]string{
		"email":    l.email,
		"password": l.password,
	})
	if err != nil {
		return nil, fmt.Errorf("session: marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", l.baseURL+"/auth/login", strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("session: create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.apiKey != "" {
		req.Header.Set("X-Api-Key", l.apiKey)
	}

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindNetwork, 0, "login request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env loyalty.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, resp.StatusCode, "malformed login response", err)
	}
	if !env.Success() {
		kind := loyalty.KindServer
		if env.Message == loyalty.UnauthenticatedMessage || resp.StatusCode == http.StatusUnauthorized {
			kind = loyalty.KindAuth
		}
		apiErr := loyalty.NewAPIError(kind, resp.StatusCode, env.Message, nil)
		apiErr.Errors = env.Errors
		return nil, apiErr
	}

	var data struct {
		Item loyalty.Session `json:"item"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, resp.StatusCode, "malformed login payload", err)
	}
	if data.Item.Token == "" {
		return nil, loyalty.NewAPIError(loyalty.KindServer, resp.StatusCode, "empty token in login response", nil)
	}
	return &data.Item, nil
}

// Cached wraps a provider with a lease-bounded token cache.
type Cached struct {
	inner         loyalty.SessionProvider
	lease         time.Duration
	refreshBuffer time.Duration
	onResolve     func()

	mu        sync.RWMutex
	token     string
	expiresAt time.Time

	sf singleflight.Group
}

// compile-time check
var _ loyalty.SessionProvider = (*Cached)(nil)

// CachedOption configures the Cached wrapper.
type CachedOption func(*Cached)

// WithLease bounds how long a resolved token is reused.
// Default: loyalty.DefaultTokenLease.
func WithLease(d time.Duration) CachedOption {
	return func(c *Cached) { c.lease = d }
}

// WithRefreshBuffer sets how long before the token's own expiry it is
// refreshed. Default: DefaultRefreshBuffer.
func WithRefreshBuffer(d time.Duration) CachedOption {
	return func(c *Cached) { c.refreshBuffer = d }
}

// WithResolveHook registers a hook invoked on every underlying resolution
// (i.e. on every lease miss). Used for metrics.
func WithResolveHook(fn func()) CachedOption {
	return func(c *Cached) { c.onResolve = fn }
}

// NewCached wraps inner with a token lease.
func NewCached(inner loyalty.SessionProvider, opts ...CachedOption) *Cached {
	c := &Cached{
		inner:         inner,
		lease:         loyalty.DefaultTokenLease,
		refreshBuffer: DefaultRefreshBuffer,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Token returns the cached token while the lease holds, otherwise resolves
// through the inner provider. Concurrent resolutions are collapsed, so two
// requests racing on an expired lease trigger one resolution.
func (c *Cached) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.token != "" && time.Now().Before(c.expiresAt) {
		defer c.mu.RUnlock()
		return c.token, nil
	}
	c.mu.RUnlock()

	// singleflight prevents redundant session resolution
	result, err, _ := c.sf.Do("token", func() (interface{}, error) {
		if c.onResolve != nil {
			c.onResolve()
		}
		return c.inner.Token(ctx)
	})
	if err != nil {
		return "", fmt.Errorf("session: resolve failed: %w", err)
	}

	token := result.(string)
	c.mu.Lock()
	c.token = token
	c.expiresAt = c.leaseExpiry(token)
	c.mu.Unlock()

	return token, nil
}

// Invalidate discards the cached token. The next Token call re-resolves.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
	c.inner.Invalidate()
}

// leaseExpiry picks the sooner of now+lease and the token's own exp claim
// minus the refresh buffer. The claim is read without signature
// verification; the backend remains the authority on token validity.
func (c *Cached) leaseExpiry(token string) time.Time {
	expiry := time.Now().Add(c.lease)

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return expiry
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return expiry
	}
	if tokenExpiry := exp.Add(-c.refreshBuffer); tokenExpiry.Before(expiry) {
		return tokenExpiry
	}
	return expiry
}
