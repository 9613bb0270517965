// Package notify provides the user-visible notification surface of the SDK.
//
// The web app shows failures and realtime events as toasts; here they are
// dispatched asynchronously to registered handlers, so a slow handler never
// blocks an API call.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	loyalty "github.com/loyaltyclub/loyalty-go"
)

// Notification levels.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelError   = "error"
)

// Handler processes notifications. Implementations should not block.
type Handler func(n loyalty.Notification)

// Bus dispatches notifications to configured handlers.
type Bus struct {
	handlers []Handler
	queue    chan loyalty.Notification
	done     chan struct{}
	wg       sync.WaitGroup
}

// compile-time check
var _ loyalty.Notifier = (*Bus)(nil)

// Option configures Bus behavior.
type Option func(*Bus)

// WithStdoutHandler adds a handler that writes JSON notifications to stdout.
func WithStdoutHandler() Option {
	return func(b *Bus) {
		b.AddHandler(func(n loyalty.Notification) {
			data, _ := json.Marshal(n)
			fmt.Fprintf(os.Stdout, "%s\n", data)
		})
	}
}

// WithHandler adds a custom notification handler.
func WithHandler(h Handler) Option {
	return func(b *Bus) {
		b.AddHandler(h)
	}
}

// New creates a new notification bus with buffered async dispatch.
// bufferSize: notification queue buffer size (default: 100).
func New(bufferSize int, opts ...Option) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}

	bus := &Bus{
		handlers: make([]Handler, 0),
		queue:    make(chan loyalty.Notification, bufferSize),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(bus)
	}

	bus.wg.Add(1)
	go bus.process()

	return bus
}

// AddHandler adds a handler to receive notifications.
func (b *Bus) AddHandler(h Handler) {
	b.handlers = append(b.handlers, h)
}

// Notify queues a notification asynchronously.
func (b *Bus) Notify(n loyalty.Notification) {
	if n.Level == "" {
		n.Level = LevelInfo
	}

	select {
	case b.queue <- n:
	case <-b.done:
		// Bus is shutting down, notification is dropped
	}
}

// Error queues an error-level notification.
func (b *Bus) Error(message string) {
	b.Notify(loyalty.Notification{Level: LevelError, Message: message})
}

// Success queues a success-level notification.
func (b *Bus) Success(title, message string) {
	b.Notify(loyalty.Notification{Level: LevelSuccess, Title: title, Message: message})
}

// process handles notifications from the queue.
func (b *Bus) process() {
	defer b.wg.Done()

	for {
		select {
		case n := <-b.queue:
			for _, h := range b.handlers {
				h(n)
			}
		case <-b.done:
			// Drain remaining notifications
			for {
				select {
				case n := <-b.queue:
					for _, h := range b.handlers {
						h(n)
					}
				default:
					return
				}
			}
		}
	}
}

// Close flushes pending notifications and stops the bus.
func (b *Bus) Close() error {
	close(b.done)
	b.wg.Wait()
	return nil
}

// Flush blocks until the queue has drained or the timeout elapses.
// Intended for tests.
func (b *Bus) Flush(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(b.queue) == 0 {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return len(b.queue) == 0
}
