// Package admin provides the admin-console analytics service: aggregate
// program statistics plus convenience reads over the users entity client.
package admin

import (
	"context"
	"encoding/json"
	"fmt"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/entity"
	"github.com/loyaltyclub/loyalty-go/transport"
)

// Service implements loyalty.AdminService.
type Service struct {
	rt    transport.Requester
	users *entity.Client
}

// compile-time check
var _ loyalty.AdminService = (*Service)(nil)

// New creates an admin service. users is the registered users entity
// client; it may be nil, in which case RecentUsers is unavailable.
func New(rt transport.Requester, users *entity.Client) (*Service, error) {
	if rt == nil {
		return nil, fmt.Errorf("admin: transport is required")
	}
	return &Service{rt: rt, users: users}, nil
}

// Dashboard reads /admin/dashboard.
func (s *Service) Dashboard(ctx context.Context) (*loyalty.AdminDashboard, error) {
	reply, err := s.rt.Do(ctx, "GET", "/admin/dashboard", nil, nil)
	if err != nil {
		return nil, err
	}
	var data struct {
		Item loyalty.AdminDashboard `json:"item"`
	}
	if err := json.Unmarshal(reply.Data, &data); err != nil {
		return nil, loyalty.NewAPIError(loyalty.KindServer, reply.StatusCode, "malformed dashboard payload", err)
	}
	return &data.Item, nil
}

// RecentUsers lists the n most recently registered users through the users
// entity client, so the read shares its cache and reset policy.
func (s *Service) RecentUsers(ctx context.Context, n int) ([]loyalty.User, error) {
	if s.users == nil {
		return nil, fmt.Errorf("admin: users entity client not configured")
	}
	if n <= 0 {
		n = 10
	}

	res, err := s.users.GetAll(ctx, &entity.Query{
		Params: map[string]any{"per_page": n, "sort": "-created_at"},
	})
	if err != nil {
		return nil, err
	}

	var users []loyalty.User
	if err := res.DecodeItems(&users); err != nil {
		return nil, fmt.Errorf("admin: %w", err)
	}
	return users, nil
}
