// Package store composes independently generated entity clients into one
// registry and enforces the cache consistency policy: after any successful
// create/update/patch/delete, the owning entity's entire query cache is
// wiped after a short delay.
//
// The delay lets in-flight requests settle, and resets are debounced per
// entity: rapid sequential mutations collapse into a single wipe instead of
// each scheduling its own.
package store

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/cache"
	"github.com/loyaltyclub/loyalty-go/entity"
)

var (
	// ErrDuplicateEntity indicates an attempt to register a second entity
	// under an already-taken name. A silent overwrite would leave one of
	// the clients invalidating the other's cache entries.
	ErrDuplicateEntity = errors.New("store: entity name already registered")

	// ErrNilEntity is returned when a nil entity client is registered.
	ErrNilEntity = errors.New("store: nil entity client")
)

// Registry owns the shared query cache and the auto-reset scheduling for
// every registered entity client. It implements entity.EventSink.
type Registry struct {
	cache *cache.Store
	delay time.Duration
	log   *slog.Logger

	mu       sync.Mutex
	entities map[string]*entity.Client
	pending  map[string]*time.Timer
	closed   bool
}

// compile-time check
var _ entity.EventSink = (*Registry)(nil)

// Option configures the Registry.
type Option func(*Registry)

// WithResetDelay sets the delay between a successful mutation and the cache
// wipe. Default: loyalty.DefaultResetDelay.
func WithResetDelay(d time.Duration) Option {
	return func(r *Registry) { r.delay = d }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New creates a Registry over the given cache store.
func New(c *cache.Store, opts ...Option) *Registry {
	r := &Registry{
		cache:    c,
		delay:    loyalty.DefaultResetDelay,
		entities: make(map[string]*entity.Client),
		pending:  make(map[string]*time.Timer),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Register adds an entity client under its unique name.
// It is idempotent for the same client; a different client under the same
// name is rejected.
func (r *Registry) Register(c *entity.Client) error {
	if c == nil {
		return ErrNilEntity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.entities[c.Name()]; ok {
		if existing == c {
			return nil
		}
		return ErrDuplicateEntity
	}
	r.entities[c.Name()] = c
	return nil
}

// Lookup returns the registered entity client for name.
func (r *Registry) Lookup(name string) (*entity.Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.entities[name]
	return c, ok
}

// Names returns the registered entity names.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	return names
}

// MutationSucceeded schedules a delayed full cache reset for the entity
// that owns the mutation. Events for entities this registry does not know
// are dropped silently: a missed reset is a staleness nuisance, not a
// correctness failure worth surfacing to the mutation path.
func (r *Registry) MutationSucceeded(ev entity.MutationEvent) {
	if ev.Op.Kind() != entity.KindMutation {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	if _, ok := r.entities[ev.Entity]; !ok {
		if r.log != nil {
			r.log.Debug("mutation event for unregistered entity dropped", "entity", ev.Entity)
		}
		return
	}
	if _, scheduled := r.pending[ev.Entity]; scheduled {
		// A reset is already coming; the later mutation rides along.
		return
	}

	name := ev.Entity
	r.pending[name] = time.AfterFunc(r.delay, func() {
		r.mu.Lock()
		delete(r.pending, name)
		closed := r.closed
		r.mu.Unlock()
		if closed {
			return
		}

		dropped := r.cache.ResetEntity(name)
		if r.log != nil {
			r.log.Debug("entity cache reset", "entity", name, "entries", dropped)
		}
	})
}

// Cache returns the shared query cache.
func (r *Registry) Cache() *cache.Store { return r.cache }

// Close cancels pending resets. Registered clients remain usable but
// mutations no longer schedule resets.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for name, timer := range r.pending {
		timer.Stop()
		delete(r.pending, name)
	}
	return nil
}
