// Package entity generates a full CRUD API client from a resource name and
// an endpoint template.
//
// Given {Name: "users", Endpoint: "users/:id/orders"}, New produces a client
// exposing GetAll, GetByID, GetSingle, Create, Update, Patch and Delete, all
// routed through one dispatcher that maps each operation to an HTTP verb and
// a response-data extractor. Template :param tokens are filled from the
// call's parameter bag; leftover parameters become query-string filters.
//
// Query results are cached by (entity, operation, serialized args). Each
// successful mutation is reported to the registered EventSink (the store
// registry), which wipes the entity's cache after a short delay.
package entity

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/cache"
	"github.com/loyaltyclub/loyalty-go/metrics"
	"github.com/loyaltyclub/loyalty-go/transport"
)

// Op names a generated operation.
type Op string

// The generated operations.
const (
	OpGetAll    Op = "getAll"
	OpGetByID   Op = "getById"
	OpGetSingle Op = "getSingle"
	OpCreate    Op = "create"
	OpUpdate    Op = "update"
	OpPatch     Op = "patch"
	OpDelete    Op = "delete"
)

// Kind classifies an operation as cacheable read or cache-invalidating
// write. The kind is fixed at construction; nothing is inferred from
// operation names.
type Kind int

const (
	// KindQuery is a cacheable read.
	KindQuery Kind = iota
	// KindMutation is a write that invalidates the entity's cache.
	KindMutation
)

// Kind returns the operation's kind.
func (o Op) Kind() Kind {
	switch o {
	case OpCreate, OpUpdate, OpPatch, OpDelete:
		return KindMutation
	default:
		return KindQuery
	}
}

// MutationEvent reports a successful mutation to the event sink.
type MutationEvent struct {
	Entity string
	Op     Op
}

// EventSink receives mutation events. Implemented by store.Registry, which
// schedules the delayed cache reset.
type EventSink interface {
	MutationSucceeded(ev MutationEvent)
}

// Config identifies one REST resource.
type Config struct {
	// Name uniquely identifies the entity within a registry. Also the
	// cache ownership key.
	Name string

	// Endpoint is the REST path template, optionally containing :param
	// placeholders, e.g. "users/:id/orders".
	Endpoint string
}

// Query is the argument to GetAll and GetSingle.
type Query struct {
	// Params fill :param tokens in the endpoint template; the rest become
	// query-string filters. Nil and empty-string values are dropped.
	Params map[string]any

	// ExtraPath is appended as an additional path segment for nested
	// sub-resource reads.
	ExtraPath string

	// Call tunes the underlying HTTP call.
	Call *transport.CallConfig
}

// ID is the argument to GetByID and Delete.
type ID struct {
	Value string

	// Params fill :param tokens in the endpoint template.
	Params map[string]any

	ExtraPath string
	Call      *transport.CallConfig
}

// Mutation is the argument to Create, Update and Patch.
type Mutation struct {
	// Data is the request payload.
	Data any

	// Params fill :param tokens in the endpoint template.
	Params map[string]any

	ExtraPath string
	Call      *transport.CallConfig
}

// Result is the outcome of a generated operation.
type Result struct {
	// Data is the extracted payload: the raw data object for GetAll and
	// Delete, data.item for singular ops, data.items for GetSingle.
	Data json.RawMessage

	// Pagination is present on GetAll results when the backend sent it.
	Pagination *loyalty.Pagination

	// Success is set on Delete acknowledgements.
	Success bool
}

// Decode unmarshals the result payload into v.
func (r *Result) Decode(v any) error {
	if len(r.Data) == 0 {
		return fmt.Errorf("entity: empty result payload")
	}
	return json.Unmarshal(r.Data, v)
}

// DecodeItems unmarshals the "items" collection of a GetAll result into v.
func (r *Result) DecodeItems(v any) error {
	var wrapper struct {
		Items json.RawMessage `json:"items"`
	}
	if err := r.Decode(&wrapper); err != nil {
		return err
	}
	if len(wrapper.Items) == 0 {
		return fmt.Errorf("entity: result payload has no items")
	}
	return json.Unmarshal(wrapper.Items, v)
}

// Client is the generated CRUD client for one REST resource.
type Client struct {
	name     string
	endpoint string
	rt       transport.Requester
	cache    *cache.Store
	sink     EventSink
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures the Client.
type Option func(*Client)

// WithCache attaches a query cache. Without one, every read hits the
// network.
func WithCache(s *cache.Store) Option {
	return func(c *Client) { c.cache = s }
}

// WithEventSink attaches the mutation event sink.
func WithEventSink(s EventSink) Option {
	return func(c *Client) { c.sink = s }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New generates the CRUD client for cfg, routed through rt.
func New(cfg Config, rt transport.Requester, opts ...Option) (*Client, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("entity: Name is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("entity: Endpoint is required")
	}
	if rt == nil {
		return nil, fmt.Errorf("entity: transport is required")
	}

	c := &Client{
		name:     cfg.Name,
		endpoint: cfg.Endpoint,
		rt:       rt,
		metrics:  metrics.New(false),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Name returns the entity's unique name.
func (c *Client) Name() string { return c.name }

// GetAll reads the filtered collection. The result's Data is the raw data
// object; use DecodeItems for the item list and Pagination for position.
func (c *Client) GetAll(ctx context.Context, q *Query) (*Result, error) {
	if q == nil {
		q = &Query{}
	}
	url := buildURL(c.endpoint, q.Params, q.ExtraPath)
	return c.query(ctx, OpGetAll, url, q.Params, q.ExtraPath, q.Call, extractAll)
}

// GetByID reads a single record by ID, with an optional nested sub-resource
// path. The result's Data is the data.item payload.
func (c *Client) GetByID(ctx context.Context, id *ID) (*Result, error) {
	if id == nil || id.Value == "" {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "id is required", nil)
	}
	url := buildURL(c.endpoint+"/"+id.Value, id.Params, id.ExtraPath)
	return c.query(ctx, OpGetByID, url, idArgs(id), id.ExtraPath, id.Call, extractItem)
}

// GetSingle builds the same request as GetAll but returns the data.items
// collection, used for list-filtered-to-one-expected-match reads. The name
// and the collection-shaped return disagree; the behavior is kept so callers
// ported from the web client keep working unchanged.
func (c *Client) GetSingle(ctx context.Context, q *Query) (*Result, error) {
	if q == nil {
		q = &Query{}
	}
	url := buildURL(c.endpoint, q.Params, q.ExtraPath)
	return c.query(ctx, OpGetSingle, url, q.Params, q.ExtraPath, q.Call, extractItems)
}

// Create POSTs the payload and returns the created data.item.
func (c *Client) Create(ctx context.Context, m *Mutation) (*Result, error) {
	if m == nil || m.Data == nil {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "payload is required", nil)
	}
	url := buildURL(c.endpoint, m.Params, m.ExtraPath)
	return c.mutate(ctx, OpCreate, "POST", url, m.Data, m.Call, extractItem)
}

// Update PUTs the payload to the record and returns the updated data.item.
func (c *Client) Update(ctx context.Context, id string, m *Mutation) (*Result, error) {
	return c.write(ctx, OpUpdate, "PUT", id, m)
}

// Patch PATCHes the payload to the record and returns the updated data.item.
func (c *Client) Patch(ctx context.Context, id string, m *Mutation) (*Result, error) {
	return c.write(ctx, OpPatch, "PATCH", id, m)
}

func (c *Client) write(ctx context.Context, op Op, method, id string, m *Mutation) (*Result, error) {
	if id == "" {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "id is required", nil)
	}
	if m == nil || m.Data == nil {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "payload is required", nil)
	}
	url := buildURL(c.endpoint+"/"+id, m.Params, m.ExtraPath)
	return c.mutate(ctx, op, method, url, m.Data, m.Call, extractItem)
}

// Delete removes a record. The result's Data is the envelope's data object,
// or {"success": true} when the backend acknowledged with no payload.
func (c *Client) Delete(ctx context.Context, id *ID) (*Result, error) {
	if id == nil || id.Value == "" {
		return nil, loyalty.NewAPIError(loyalty.KindClient, 0, "id is required", nil)
	}
	url := buildURL(c.endpoint+"/"+id.Value, id.Params, id.ExtraPath)
	return c.mutate(ctx, OpDelete, "DELETE", url, nil, id.Call, extractDelete)
}

// idArgs merges the ID value into the parameter bag for cache keying.
func idArgs(id *ID) map[string]any {
	args := make(map[string]any, len(id.Params)+1)
	for k, v := range id.Params {
		args[k] = v
	}
	args["id"] = id.Value
	return args
}

// query serves a read from the cache when possible, otherwise dispatches
// and stores the result.
func (c *Client) query(ctx context.Context, op Op, url string, params map[string]any, extraPath string, call *transport.CallConfig, extract extractor) (*Result, error) {
	key := cache.Key(c.name, string(op), struct {
		Params    map[string]any `json:"params,omitempty"`
		ExtraPath string         `json:"extra_path,omitempty"`
	}{params, extraPath})

	if c.cache != nil {
		if v, ok := c.cache.Get(c.name, key); ok {
			return v.(*Result), nil
		}
	}

	res, err := c.dispatch(ctx, op, "GET", url, nil, call, extract)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		c.cache.Set(c.name, key, res)
	}
	return res, nil
}

// mutate dispatches a write and reports success to the event sink.
func (c *Client) mutate(ctx context.Context, op Op, method, url string, body any, call *transport.CallConfig, extract extractor) (*Result, error) {
	res, err := c.dispatch(ctx, op, method, url, body, call, extract)
	if err != nil {
		return nil, err
	}
	if c.sink != nil {
		c.sink.MutationSucceeded(MutationEvent{Entity: c.name, Op: op})
	}
	return res, nil
}

// extractor maps an unwrapped reply onto a Result.
type extractor func(reply *transport.Reply) (*Result, error)

func (c *Client) dispatch(ctx context.Context, op Op, method, url string, body any, call *transport.CallConfig, extract extractor) (*Result, error) {
	start := time.Now()
	reply, err := c.rt.Do(ctx, method, url, body, call)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		c.metrics.RecordRequest(c.name, string(op), "error", elapsed)
		if c.logger != nil {
			c.logger.Debug("entity operation failed",
				"entity", c.name, "op", string(op), "url", url, "err", err)
		}
		return nil, err
	}
	c.metrics.RecordRequest(c.name, string(op), "ok", elapsed)

	res, err := extract(reply)
	if err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, reply.StatusCode, "unexpected response shape", err)
	}
	return res, nil
}

// extractAll returns the raw data object plus pagination.
func extractAll(reply *transport.Reply) (*Result, error) {
	res := &Result{Data: reply.Data}
	if reply.Meta != nil {
		res.Pagination = reply.Meta.Pagination
	}
	return res, nil
}

// extractItem returns data.item.
func extractItem(reply *transport.Reply) (*Result, error) {
	var data struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, err
	}
	if len(data.Item) == 0 {
		return nil, fmt.Errorf("missing item in response data")
	}
	return &Result{Data: data.Item}, nil
}

// extractItems returns data.items.
func extractItems(reply *transport.Reply) (*Result, error) {
	var data struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, err
	}
	if len(data.Items) == 0 {
		return nil, fmt.Errorf("missing items in response data")
	}
	return &Result{Data: data.Items}, nil
}

// extractDelete returns the data object, or {"success":true} when the
// backend acknowledged with nothing in it.
func extractDelete(reply *transport.Reply) (*Result, error) {
	trimmed := string(reply.Data)
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return &Result{Data: json.RawMessage(`{"success":true}`), Success: true}, nil
	}
	return &Result{Data: reply.Data, Success: true}, nil
}
