// Package realtime consumes the push channel of the loyalty backend.
//
// The backend publishes achievement-unlocked and badge-unlocked events on a
// private per-user websocket channel. Each inbound event raises a success
// notification, invalidates the affected caches, and kicks off a short
// fixed-delay refetch loop to tolerate backend processing lag.
//
// A client constructed without a channel URL is disabled: every method is a
// no-op, so missing realtime configuration degrades the feature instead of
// failing the application.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/metrics"
)

// Handler processes an inbound push event.
type Handler func(ev loyalty.RealtimeEvent)

// Client is the websocket subscriber for the per-user private channel.
type Client struct {
	url       string
	key       string
	enabled   bool
	notifier  loyalty.Notifier
	logger    *slog.Logger
	metrics   *metrics.Metrics
	onEvent   func(ev loyalty.RealtimeEvent) // invalidation + refetch hook
	heartbeat time.Duration

	mu       sync.RWMutex
	conn     *websocket.Conn
	handlers map[string][]Handler
	done     chan struct{}
}

// Option configures the Client.
type Option func(*Client)

// WithNotifier sets the notifier for unlock notifications.
func WithNotifier(n loyalty.Notifier) Option {
	return func(c *Client) { c.notifier = n }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithEventHook registers a hook invoked for every unlock event after the
// notification fires. The restapi wiring uses it to invalidate caches and
// schedule the retried refetch.
func WithEventHook(fn func(ev loyalty.RealtimeEvent)) Option {
	return func(c *Client) { c.onEvent = fn }
}

// WithHeartbeat sets the keep-alive interval. Default: 30s.
func WithHeartbeat(d time.Duration) Option {
	return func(c *Client) { c.heartbeat = d }
}

// New creates a realtime client. An empty url yields a disabled client.
func New(url, key string, opts ...Option) *Client {
	c := &Client{
		url:       url,
		key:       key,
		enabled:   url != "",
		handlers:  make(map[string][]Handler),
		metrics:   metrics.New(false),
		heartbeat: 30 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether the client has a channel to connect to.
func (c *Client) Enabled() bool { return c.enabled }

// subscribeMessage is the outbound channel-join frame.
type subscribeMessage struct {
	Event   string `json:"event"`
	Channel string `json:"channel"`
	Key     string `json:"key,omitempty"`
}

// Connect dials the channel and subscribes to the user's private topic.
// Safe to call on a disabled client, which reports success and does
// nothing.
func (c *Client) Connect(ctx context.Context, userID string) error {
	if !c.enabled {
		if c.logger != nil {
			c.logger.Info("realtime updates disabled: no channel configured")
		}
		return nil
	}
	if userID == "" {
		return fmt.Errorf("realtime: userID is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil // already connected
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("realtime: dial: %w", err)
	}

	join := subscribeMessage{
		Event:   "subscribe",
		Channel: "private-user." + userID,
		Key:     c.key,
	}
	if err := conn.WriteJSON(join); err != nil {
		_ = conn.Close()
		return fmt.Errorf("realtime: subscribe: %w", err)
	}

	c.conn = conn
	c.done = make(chan struct{})

	go c.readLoop(conn, c.done)
	go c.keepAlive(conn, c.done)

	return nil
}

// On registers a handler for an event type.
func (c *Client) On(eventType string, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[eventType] = append(c.handlers[eventType], h)
}

// Close tears down the connection. Safe on a disabled or unconnected
// client.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	close(c.done)

	err := c.conn.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	)
	_ = c.conn.Close()
	c.conn = nil
	if err != nil {
		return fmt.Errorf("realtime: close: %w", err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			// connection closed
			return
		}

		var ev loyalty.RealtimeEvent
		if err := json.Unmarshal(message, &ev); err != nil {
			if c.logger != nil {
				c.logger.Debug("realtime: dropping malformed frame", "err", err)
			}
			continue
		}

		c.dispatch(ev)
	}
}

func (c *Client) dispatch(ev loyalty.RealtimeEvent) {
	c.metrics.RecordRealtimeEvent(ev.Type)

	switch ev.Type {
	case loyalty.EventAchievementUnlocked:
		c.announce("Achievement unlocked", ev)
	case loyalty.EventBadgeUnlocked:
		c.announce("Badge unlocked", ev)
	default:
		if c.logger != nil {
			c.logger.Debug("realtime: ignoring event", "type", ev.Type)
		}
		return
	}

	if c.onEvent != nil {
		go c.onEvent(ev)
	}

	c.mu.RLock()
	handlers := c.handlers[ev.Type]
	c.mu.RUnlock()
	for _, h := range handlers {
		go h(ev)
	}
}

func (c *Client) announce(title string, ev loyalty.RealtimeEvent) {
	if c.notifier == nil {
		return
	}
	var payload struct {
		Name string `json:"name"`
	}
	_ = json.Unmarshal(ev.Payload, &payload)
	c.notifier.Notify(loyalty.Notification{
		Level:   "success",
		Title:   title,
		Message: payload.Name,
	})
}

func (c *Client) keepAlive(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.WriteJSON(subscribeMessage{Event: "heartbeat"})
			}
			c.mu.Unlock()
		}
	}
}
