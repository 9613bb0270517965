package cashback_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/cashback"
	"github.com/loyaltyclub/loyalty-go/transport"
)

type mockBackend struct {
	balance    int64
	entries    []loyalty.CashbackEntry
	pagination *loyalty.Pagination
	withdrawn  *loyalty.CashbackEntry
	err        error

	withdrawCalls int
}

func (m *mockBackend) Balance(ctx context.Context) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.balance, nil
}

func (m *mockBackend) History(ctx context.Context, opts loyalty.ListOptions) ([]loyalty.CashbackEntry, *loyalty.Pagination, error) {
	if m.err != nil {
		return nil, nil, m.err
	}
	return m.entries, m.pagination, nil
}

func (m *mockBackend) Withdraw(ctx context.Context, amount int64) (*loyalty.CashbackEntry, error) {
	m.withdrawCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.withdrawn, nil
}

func TestBalance_DelegatesToBackend(t *testing.T) {
	s := cashback.New(&mockBackend{balance: 2500})
	got, err := s.Balance(context.Background())
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if got != 2500 {
		t.Errorf("Balance() = %d, want 2500", got)
	}
}

func TestHistory_ReturnsEntriesAndPagination(t *testing.T) {
	backend := &mockBackend{
		entries:    []loyalty.CashbackEntry{{ID: "c-1", Amount: 100, Kind: "earned"}},
		pagination: &loyalty.Pagination{CurrentPage: 1, Total: 1},
	}
	s := cashback.New(backend)

	entries, pagination, err := s.History(context.Background(), loyalty.ListOptions{Page: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(entries) != 1 || entries[0].Kind != "earned" {
		t.Errorf("entries = %+v", entries)
	}
	if pagination == nil || pagination.Total != 1 {
		t.Errorf("pagination = %+v", pagination)
	}
}

func TestWithdraw_RequiresPositiveAmount(t *testing.T) {
	s := cashback.New(&mockBackend{balance: 100})
	for _, amount := range []int64{0, -5} {
		_, err := s.Withdraw(context.Background(), amount)
		apiErr, ok := loyalty.AsAPIError(err)
		if !ok || apiErr.Kind != loyalty.KindClient {
			t.Errorf("Withdraw(%d) error = %v, want client-kind APIError", amount, err)
		}
	}
}

func TestWithdraw_RejectsOverdraw(t *testing.T) {
	backend := &mockBackend{balance: 100}
	s := cashback.New(backend)

	_, err := s.Withdraw(context.Background(), 101)
	apiErr, ok := loyalty.AsAPIError(err)
	if !ok || apiErr.Kind != loyalty.KindClient {
		t.Fatalf("error = %v, want client-kind APIError", err)
	}
	if backend.withdrawCalls != 0 {
		t.Errorf("backend Withdraw called %d times, want 0 on overdraw", backend.withdrawCalls)
	}
}

func TestWithdraw_WithinBalanceSucceeds(t *testing.T) {
	backend := &mockBackend{
		balance:   100,
		withdrawn: &loyalty.CashbackEntry{ID: "w-1", Amount: 100, Kind: "withdrawn"},
	}
	s := cashback.New(backend)

	entry, err := s.Withdraw(context.Background(), 100)
	if err != nil {
		t.Fatalf("Withdraw() error: %v", err)
	}
	if entry.Kind != "withdrawn" {
		t.Errorf("entry = %+v", entry)
	}
}

func TestWithdraw_SurfacesBalanceError(t *testing.T) {
	backend := &mockBackend{err: errors.New("down")}
	s := cashback.New(backend)

	_, err := s.Withdraw(context.Background(), 50)
	if err == nil || !errors.Is(err, backend.err) {
		t.Fatalf("error = %v, want wrapped backend error", err)
	}
}

type scriptedRequester struct {
	replies map[string]string
	meta    *loyalty.Meta
	calls   []string
}

func (s *scriptedRequester) Do(ctx context.Context, method, endpoint string, body any, cfg *transport.CallConfig) (*transport.Reply, error) {
	key := method + " " + endpoint
	s.calls = append(s.calls, key)
	data, ok := s.replies[key]
	if !ok {
		return nil, loyalty.NewAPIError(loyalty.KindServer, 404, "not scripted: "+key, nil)
	}
	return &transport.Reply{Data: json.RawMessage(data), Meta: s.meta, StatusCode: 200}, nil
}

func TestRESTBackend_Endpoints(t *testing.T) {
	rt := &scriptedRequester{
		replies: map[string]string{
			"GET /cashback/balance":                    `{"item":{"balance":4200}}`,
			"GET /cashback/history?page=2&per_page=10": `{"items":[{"id":"c-1","amount":100}]}`,
			"POST /cashback/withdrawals":               `{"item":{"id":"w-1","amount":200,"kind":"withdrawn"}}`,
		},
		meta: &loyalty.Meta{Pagination: &loyalty.Pagination{CurrentPage: 2, Total: 11}},
	}
	backend := cashback.NewRESTBackend(rt)
	ctx := context.Background()

	balance, err := backend.Balance(ctx)
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if balance != 4200 {
		t.Errorf("balance = %d, want 4200", balance)
	}

	entries, pagination, err := backend.History(ctx, loyalty.ListOptions{Page: 2, PageSize: 10})
	if err != nil {
		t.Fatalf("History() error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %+v", entries)
	}
	if pagination == nil || pagination.CurrentPage != 2 {
		t.Errorf("pagination = %+v", pagination)
	}

	entry, err := backend.Withdraw(ctx, 200)
	if err != nil {
		t.Fatalf("Withdraw() error: %v", err)
	}
	if entry.ID != "w-1" {
		t.Errorf("entry = %+v", entry)
	}
}
