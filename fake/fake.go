// Package fake provides in-memory test doubles for the loyalty SDK: an
// envelope-speaking CRUD backend over httptest, a recording notifier, and a
// counting session provider.
//
// Use fake.NewServer() in unit tests to exercise the full transport and
// entity stack without a real backend.
package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	loyalty "github.com/loyaltyclub/loyalty-go"
)

// Notifier records every notification it receives.
type Notifier struct {
	mu            sync.Mutex
	notifications []loyalty.Notification
}

// compile-time check
var _ loyalty.Notifier = (*Notifier)(nil)

// NewNotifier creates a recording notifier.
func NewNotifier() *Notifier { return &Notifier{} }

// Notify records the notification.
func (n *Notifier) Notify(notification loyalty.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
}

// Notifications returns a copy of everything recorded so far.
func (n *Notifier) Notifications() []loyalty.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]loyalty.Notification, len(n.notifications))
	copy(out, n.notifications)
	return out
}

// SessionProvider yields a fixed token and counts resolutions and
// invalidations.
type SessionProvider struct {
	TokenValue string
	Err        error

	mu            sync.Mutex
	resolutions   int
	invalidations int
}

// compile-time check
var _ loyalty.SessionProvider = (*SessionProvider)(nil)

// Token returns the fixed token, counting the resolution.
func (p *SessionProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	p.resolutions++
	p.mu.Unlock()
	if p.Err != nil {
		return "", p.Err
	}
	return p.TokenValue, nil
}

// Invalidate counts the invalidation.
func (p *SessionProvider) Invalidate() {
	p.mu.Lock()
	p.invalidations++
	p.mu.Unlock()
}

// Resolutions returns how many times Token resolved the session.
func (p *SessionProvider) Resolutions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolutions
}

// Invalidations returns how many times Invalidate was called.
func (p *SessionProvider) Invalidations() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.invalidations
}

// record is one stored resource row.
type record map[string]any

// Server is an envelope-speaking CRUD backend for tests.
type Server struct {
	mu        sync.Mutex
	resources map[string]map[string]record
	order     map[string][]string // insertion order per resource
	handlers  map[string]http.HandlerFunc
	requests  []string // "METHOD path"
	nextID    int

	srv *httptest.Server
}

// ServerOption seeds or extends the server.
type ServerOption func(*Server)

// WithResource registers a resource with optional seed records. Records
// without an "id" get one assigned.
func WithResource(name string, seed ...map[string]any) ServerOption {
	return func(s *Server) {
		s.ensureResource(name)
		for _, r := range seed {
			s.insert(name, r)
		}
	}
}

// WithHandler overrides handling for an exact path, for endpoints beyond
// the CRUD shape.
func WithHandler(path string, h http.HandlerFunc) ServerOption {
	return func(s *Server) { s.handlers[path] = h }
}

// NewServer starts the fake backend. Callers must Close it.
func NewServer(opts ...ServerOption) *Server {
	s := &Server{
		resources: make(map[string]map[string]record),
		order:     make(map[string][]string),
		handlers:  make(map[string]http.HandlerFunc),
	}
	for _, o := range opts {
		o(s)
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.route))
	return s
}

// URL returns the server's base URL.
func (s *Server) URL() string { return s.srv.URL }

// Close shuts the server down.
func (s *Server) Close() { s.srv.Close() }

// RequestCount returns how many requests matched the method and path
// prefix. Pass "" to match any method.
func (s *Server) RequestCount(method, pathPrefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		parts := strings.SplitN(r, " ", 2)
		if method != "" && parts[0] != method {
			continue
		}
		if strings.HasPrefix(parts[1], pathPrefix) {
			n++
		}
	}
	return n
}

// Get returns a stored record.
func (s *Server) Get(resource, id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.resources[resource][id]
	if !ok {
		return nil, false
	}
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out, true
}

func (s *Server) ensureResource(name string) {
	if _, ok := s.resources[name]; !ok {
		s.resources[name] = make(map[string]record)
	}
}

func (s *Server) insert(name string, r map[string]any) string {
	id, _ := r["id"].(string)
	if id == "" {
		s.nextID++
		id = strconv.Itoa(s.nextID)
		r["id"] = id
	}
	s.resources[name][id] = r
	s.order[name] = append(s.order[name], id)
	return id
}

func (s *Server) route(w http.ResponseWriter, req *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, req.Method+" "+req.URL.Path)
	handler, custom := s.handlers[req.URL.Path]
	s.mu.Unlock()

	if custom {
		handler(w, req)
		return
	}

	parts := strings.Split(strings.Trim(req.URL.Path, "/"), "/")
	resource := parts[0]

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.resources[resource]
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("resource %q not found", resource))
		return
	}

	switch {
	case req.Method == http.MethodGet && len(parts) == 1:
		s.list(w, resource)
	case req.Method == http.MethodGet && len(parts) == 2:
		s.item(w, rows, parts[1])
	case req.Method == http.MethodPost && len(parts) == 1:
		s.create(w, req, resource)
	case (req.Method == http.MethodPut || req.Method == http.MethodPatch) && len(parts) == 2:
		s.update(w, req, rows, parts[1])
	case req.Method == http.MethodDelete && len(parts) == 2:
		s.remove(w, resource, parts[1])
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported operation")
	}
}

func (s *Server) list(w http.ResponseWriter, resource string) {
	rows := s.resources[resource]
	items := make([]record, 0, len(rows))
	for _, id := range s.order[resource] {
		if r, ok := rows[id]; ok {
			items = append(items, r)
		}
	}
	writeSuccess(w, map[string]any{"items": items}, &loyalty.Meta{
		Pagination: &loyalty.Pagination{
			CurrentPage: 1, From: 1, LastPage: 1,
			PerPage: len(items), To: len(items), Total: len(items),
		},
	})
}

func (s *Server) item(w http.ResponseWriter, rows map[string]record, id string) {
	r, ok := rows[id]
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	writeSuccess(w, map[string]any{"item": r}, nil)
}

func (s *Server) create(w http.ResponseWriter, req *http.Request, resource string) {
	var body map[string]any
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	id := s.insert(resource, body)
	writeSuccess(w, map[string]any{"item": s.resources[resource][id]}, nil)
}

func (s *Server) update(w http.ResponseWriter, req *http.Request, rows map[string]record, id string) {
	r, ok := rows[id]
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	var body map[string]any
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	for k, v := range body {
		if k != "id" {
			r[k] = v
		}
	}
	writeSuccess(w, map[string]any{"item": r}, nil)
}

func (s *Server) remove(w http.ResponseWriter, resource, id string) {
	if _, ok := s.resources[resource][id]; !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	delete(s.resources[resource], id)
	writeSuccess(w, map[string]any{}, nil)
}

func writeSuccess(w http.ResponseWriter, data any, meta *loyalty.Meta) {
	raw, _ := json.Marshal(data)
	env := loyalty.Envelope{
		Status: "success",
		Code:   http.StatusOK,
		Data:   raw,
		Meta:   meta,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(env)
}

func writeError(w http.ResponseWriter, status int, message string) {
	env := loyalty.Envelope{
		Status:  "error",
		Code:    status,
		Message: message,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
