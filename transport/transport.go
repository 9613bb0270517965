// Package transport is the single point of truth for talking to the loyalty
// REST API: base URL, default headers, auth token attachment, envelope
// unwrapping, and failure normalization.
//
// Every call returns the envelope's data payload already unwrapped on
// success, or a *loyalty.APIError on any failure. By default a failed call
// also emits an error notification; callers rendering their own inline
// errors opt out with CallConfig.Silent.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/metrics"
)

// CallConfig tunes a single call.
type CallConfig struct {
	// Silent suppresses the error notification for this call.
	Silent bool

	// Header entries are added to the outgoing request.
	Header http.Header
}

// Reply is a successful, unwrapped response.
type Reply struct {
	// Data is the envelope's data payload.
	Data json.RawMessage

	// Meta carries pagination for list reads, nil otherwise.
	Meta *loyalty.Meta

	// StatusCode is the HTTP status of the response.
	StatusCode int
}

// Requester is the request surface the entity factory and the domain
// backends are built on. Implemented by *Client and by test doubles.
type Requester interface {
	Do(ctx context.Context, method, endpoint string, body any, cfg *CallConfig) (*Reply, error)
}

// Client implements Requester against the loyalty REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	session    loyalty.SessionProvider
	notifier   loyalty.Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
	signOut    func()
}

// compile-time check
var _ Requester = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *Client) { t.httpClient = c }
}

// WithSessionProvider sets the session used for the Authorization header.
// Without one, requests go out unauthenticated.
func WithSessionProvider(p loyalty.SessionProvider) Option {
	return func(t *Client) { t.session = p }
}

// WithNotifier sets the notifier for error notifications.
func WithNotifier(n loyalty.Notifier) Option {
	return func(t *Client) { t.notifier = n }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Client) { t.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Client) { t.metrics = m }
}

// WithSignOutHook registers a hook fired when the backend reports the
// session as unauthenticated. The token cache is invalidated first.
func WithSignOutHook(fn func()) Option {
	return func(t *Client) { t.signOut = fn }
}

// New creates a transport client.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("transport: baseURL is required")
	}
	t := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		metrics:    metrics.New(false),
	}
	for _, o := range opts {
		o(t)
	}
	return t, nil
}

// Get issues a GET request.
func (t *Client) Get(ctx context.Context, endpoint string, cfg *CallConfig) (*Reply, error) {
	return t.Do(ctx, http.MethodGet, endpoint, nil, cfg)
}

// Post issues a POST request with a JSON body.
func (t *Client) Post(ctx context.Context, endpoint string, body any, cfg *CallConfig) (*Reply, error) {
	return t.Do(ctx, http.MethodPost, endpoint, body, cfg)
}

// Put issues a PUT request with a JSON body.
func (t *Client) Put(ctx context.Context, endpoint string, body any, cfg *CallConfig) (*Reply, error) {
	return t.Do(ctx, http.MethodPut, endpoint, body, cfg)
}

// Patch issues a PATCH request with a JSON body.
func (t *Client) Patch(ctx context.Context, endpoint string, body any, cfg *CallConfig) (*Reply, error) {
	return t.Do(ctx, http.MethodPatch, endpoint, body, cfg)
}

// Delete issues a DELETE request.
func (t *Client) Delete(ctx context.Context, endpoint string, cfg *CallConfig) (*Reply, error) {
	return t.Do(ctx, http.MethodDelete, endpoint, nil, cfg)
}

// RefreshToken discards the cached session token so the next request
// re-resolves the session.
func (t *Client) RefreshToken() {
	if t.session != nil {
		t.session.Invalidate()
	}
}

// Do executes one request and unwraps the envelope.
func (t *Client) Do(ctx context.Context, method, endpoint string, body any, cfg *CallConfig) (*Reply, error) {
	if cfg == nil {
		cfg = &CallConfig{}
	}

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, t.fail(cfg, loyalty.NewAPIError(loyalty.KindClient, 0, "request body is not serializable", err))
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+endpoint, reader)
	if err != nil {
		return nil, t.fail(cfg, loyalty.NewAPIError(loyalty.KindClient, 0, "invalid request", err))
	}
	t.setHeaders(req, body != nil, cfg)

	if t.session != nil {
		token, err := t.session.Token(ctx)
		if err != nil {
			return nil, t.fail(cfg, loyalty.NewAPIError(loyalty.KindAuth, 0, "session resolution failed", err))
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, t.fail(cfg, loyalty.NewAPIError(loyalty.KindNetwork, 0, "request failed", err))
	}
	defer func() { _ = resp.Body.Close() }()

	var env loyalty.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, t.fail(cfg, loyalty.NewAPIError(loyalty.KindServer, resp.StatusCode, "malformed response", err))
	}

	if !env.Success() {
		return nil, t.fail(cfg, t.classify(resp.StatusCode, &env))
	}

	return &Reply{Data: env.Data, Meta: env.Meta, StatusCode: resp.StatusCode}, nil
}

func (t *Client) setHeaders(req *http.Request, hasBody bool, cfg *CallConfig) {
	if t.apiKey != "" {
		req.Header.Set("X-Api-Key", t.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range cfg.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// classify maps a non-success envelope onto the failure taxonomy.
func (t *Client) classify(status int, env *loyalty.Envelope) *loyalty.APIError {
	message := env.Message
	if message == "" && len(env.Errors) > 0 {
		message = env.Errors[0].Message
	}
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", status)
	}

	switch {
	case env.Message == loyalty.UnauthenticatedMessage || status == http.StatusUnauthorized:
		t.metrics.RecordAuthFailure("unauthenticated")
		if t.session != nil {
			t.session.Invalidate()
		}
		if t.signOut != nil {
			t.signOut()
		}
		return loyalty.NewAPIError(loyalty.KindAuth, status, message, nil)
	case len(env.Errors) > 0:
		apiErr := loyalty.NewAPIError(loyalty.KindValidation, status, message, nil)
		apiErr.Errors = env.Errors
		return apiErr
	default:
		return loyalty.NewAPIError(loyalty.KindServer, status, message, nil)
	}
}

// fail logs, notifies (unless silenced) and returns the error.
func (t *Client) fail(cfg *CallConfig, apiErr *loyalty.APIError) error {
	if t.logger != nil {
		t.logger.Warn("loyalty api call failed",
			"kind", apiErr.Kind.String(),
			"status", apiErr.Status,
			"message", apiErr.Message,
		)
	}
	if t.notifier != nil && !cfg.Silent {
		t.notifier.Notify(loyalty.Notification{Level: "error", Message: apiErr.Message})
	}
	return apiErr
}
