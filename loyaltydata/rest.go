package loyaltydata

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

// Summary reads /loyalty/summary.
func (b *RESTBackend) Summary(ctx context.Context) (*loyalty.LoyaltySummary, error) {
	reply, err := b.rt.Do(ctx, "GET", "/loyalty/summary", nil, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Item loyalty.LoyaltySummary `json:"item"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, reply.StatusCode, "malformed summary payload", err)
	}
	return &data.Item, nil
}

// Achievements reads /loyalty/achievements.
func (b *RESTBackend) Achievements(ctx context.Context) ([]loyalty.Achievement, error) {
	reply, err := b.rt.Do(ctx, "GET", "/loyalty/achievements", nil, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Items []loyalty.Achievement `json:"items"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, reply.StatusCode, "malformed achievements payload", err)
	}
	return data.Items, nil
}

// Badges reads /loyalty/badges.
func (b *RESTBackend) Badges(ctx context.Context) ([]loyalty.Badge, error) {
	reply, err := b.rt.Do(ctx, "GET", "/loyalty/badges", nil, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Items []loyalty.Badge `json:"items"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, reply.StatusCode, "malformed badges payload", err)
	}
	return data.Items, nil
}

// SimulateUnlock posts /loyalty/achievements/{id}/simulate.
func (b *RESTBackend) SimulateUnlock(ctx context.Context, achievementID string) (*loyalty.Achievement, error) {
	reply, err := b.rt.Do(ctx, "POST", "/loyalty/achievements/"+achievementID+"/simulate", nil, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Item loyalty.Achievement `json:"item"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, reply.StatusCode, "malformed achievement payload", err)
	}
	return &data.Item, nil
}
