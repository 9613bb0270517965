package cashback

import (
	"context"
	"encoding/json"
	"fmt"

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

// Balance reads /cashback/balance.
func (b *RESTBackend) Balance(ctx context.Context) (int64, error) {
	reply, err := b.rt.Do(ctx, "GET", "/cashback/balance", nil, nil)
	if err != nil {
		return 0, err
	}
	var data struct {
		Item struct {
			Balance int64 `json:"balance"`
		} `json:"item"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return 0, loyalty.NewAPIError(loyalty.KindServer, reply.StatusCode, "malformed balance payload", err)
	}
	return data.Item.Balance, nil
}

// History reads /cashback/history with pagination parameters.
func (b *RESTBackend) History(ctx context.Context, opts loyalty.ListOptions) ([]loyalty.CashbackEntry, *loyalty.Pagination, error) {
	endpoint := "/cashback/history"
	if opts.Page > 0 {
		endpoint = fmt.Sprintf("%s?page=%d&per_page=%d", endpoint, opts.Page, opts.PageSize)
	}

	reply, err := b.rt.Do(ctx, "GET", endpoint, nil, nil)
	if err != nil {
		return nil, nil, err
	}
	var data struct {
		Items []loyalty.CashbackEntry `json:"items"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, nil, loyalty.NewAPIError(loyalty.KindServer, reply.StatusCode, "malformed history payload", err)
	}

	var pagination *loyalty.Pagination
	if reply.Meta != nil {
		pagination = reply.Meta.Pagination
	}
	return data.Items, pagination, nil
}

// Withdraw posts /cashback/withdrawals.
func (b *RESTBackend) Withdraw(ctx context.Context, amount int64) (*loyalty.CashbackEntry, error) {
	reply, err := b.rt.Do(ctx, "POST", "/cashback/withdrawals", map[string]int64{"amount": amount}, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Item loyalty.CashbackEntry `json:"item"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, reply.StatusCode, "malformed withdrawal payload", err)
	}
	return &data.Item, nil
}
