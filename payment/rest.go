package payment

import (
	"context"
	"encoding/json"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/transport"
)

// RESTBackend implements Backend against the loyalty REST API.
type RESTBackend struct {
	rt transport.Requester
}

// compile-time check
var _ Backend = (*RESTBackend)(nil)

// NewRESTBackend creates a REST backend over the given transport.
func NewRESTBackend(rt transport.Requester) *RESTBackend {
	return &RESTBackend{rt: rt}
}

// Initialize posts /payments/initialize.
func (b *RESTBackend) Initialize(ctx context.Context, req loyalty.PaymentRequest) (*loyalty.Payment, error) {
	reply, err := b.rt.Do(ctx, "POST", "/payments/initialize", req, nil)
	if err != nil {
		return nil, err
	}
	return decodePayment(reply.Data, reply.StatusCode)
}

// Verify reads /payments/verify/{reference}.
func (b *RESTBackend) Verify(ctx context.Context, reference string) (*loyalty.Payment, error) {
	reply, err := b.rt.Do(ctx, "GET", "/payments/verify/"+reference, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodePayment(reply.Data, reply.StatusCode)
}

func decodePayment(data json.RawMessage, status int) (*loyalty.Payment, error) {
	var payload struct {
		Item loyalty.Payment `json:"item"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, status, "malformed payment payload", err)
	}
	return &payload.Item, nil
}
