// Package cache implements the client-side query cache.
//
// Entries are keyed by (entity, operation, canonical-serialized args), so
// two logically identical queries share an entry. Invalidation is
// deliberately coarse: a mutation wipes the owning entity's entire key
// space instead of tracking per-entry tags. That over-fetches after every
// mutation but rules out stale-list-after-create bugs without per-entity
// bookkeeping.
package cache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/loyaltyclub/loyalty-go/metrics"
)

type entry struct {
	value    any
	storedAt time.Time
}

// Store is a concurrency-safe query cache.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]entry
	byEntity map[string]map[string]struct{}
	ttl      time.Duration
	metrics  *metrics.Metrics
}

// Option configures the Store.
type Option func(*Store)

// WithTTL expires entries after d even without a mutation. Zero disables
// time-based expiry (the default; resets come from mutations).
func WithTTL(d time.Duration) Option {
	return func(s *Store) { s.ttl = d }
}

// WithMetrics sets the metrics recorder for hit/miss/reset counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:  make(map[string]entry),
		byEntity: make(map[string]map[string]struct{}),
		metrics:  metrics.New(false),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Key builds the canonical cache key for an operation and its args.
// Args serialize through encoding/json, which emits map keys in sorted
// order, so argument bags with the same content always collide.
func Key(entity, operation string, args any) string {
	data, err := json.Marshal(args)
	if err != nil {
		data = []byte(fmt.Sprintf("%v", args))
	}
	return entity + "\x00" + operation + "\x00" + string(data)
}

// Get returns the cached value for key, if present and fresh.
func (s *Store) Get(entityName, key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if ok && s.ttl > 0 && time.Since(e.storedAt) > s.ttl {
		s.mu.Lock()
		delete(s.entries, key)
		if keys := s.byEntity[entityName]; keys != nil {
			delete(keys, key)
		}
		s.mu.Unlock()
		ok = false
	}

	if ok {
		s.metrics.RecordCacheHit(entityName)
		return e.value, true
	}
	s.metrics.RecordCacheMiss(entityName)
	return nil, false
}

// Set stores value under key for the given entity.
func (s *Store) Set(entityName, key string, value any) {
	s.mu.Lock()
	s.entries[key] = entry{value: value, storedAt: time.Now()}
	keys := s.byEntity[entityName]
	if keys == nil {
		keys = make(map[string]struct{})
		s.byEntity[entityName] = keys
	}
	keys[key] = struct{}{}
	size := len(s.entries)
	s.mu.Unlock()

	s.metrics.SetCacheSize(float64(size))
}

// ResetEntity discards every cached entry owned by the entity and returns
// how many entries were dropped.
func (s *Store) ResetEntity(entityName string) int {
	s.mu.Lock()
	keys := s.byEntity[entityName]
	for key := range keys {
		delete(s.entries, key)
	}
	n := len(keys)
	delete(s.byEntity, entityName)
	size := len(s.entries)
	s.mu.Unlock()

	if n > 0 {
		s.metrics.RecordCacheReset(entityName)
	}
	s.metrics.SetCacheSize(float64(size))
	return n
}

// Reset discards every cached entry.
func (s *Store) Reset() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.byEntity = make(map[string]map[string]struct{})
	s.mu.Unlock()

	s.metrics.SetCacheSize(0)
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
