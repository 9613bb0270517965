package fake_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/fake"
)

func get(t *testing.T, url string) *loyalty.Envelope {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var env loyalty.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return &env
}

func TestServer_ListAndItem(t *testing.T) {
	srv := fake.NewServer(fake.WithResource("users",
		map[string]any{"id": "u-1", "name": "Ada"},
		map[string]any{"id": "u-2", "name": "Grace"},
	))
	defer srv.Close()

	env := get(t, srv.URL()+"/users")
	if !env.Success() {
		t.Fatalf("list envelope = %+v", env)
	}
	var list struct {
		Items []loyalty.User `json:"items"`
	}
	if err := json.Unmarshal(env.Data, &list); err != nil {
		t.Fatalf("unmarshal items: %v", err)
	}
	if len(list.Items) != 2 {
		t.Errorf("items = %d, want 2", len(list.Items))
	}
	if env.Meta == nil || env.Meta.Pagination == nil || env.Meta.Pagination.Total != 2 {
		t.Errorf("meta = %+v, want pagination with total 2", env.Meta)
	}

	env = get(t, srv.URL()+"/users/u-1")
	var item struct {
		Item loyalty.User `json:"item"`
	}
	if err := json.Unmarshal(env.Data, &item); err != nil {
		t.Fatalf("unmarshal item: %v", err)
	}
	if item.Item.Name != "Ada" {
		t.Errorf("item = %+v", item.Item)
	}
}

func TestServer_CreateAssignsID(t *testing.T) {
	srv := fake.NewServer(fake.WithResource("users"))
	defer srv.Close()

	body := bytes.NewReader([]byte(`{"name":"Lin"}`))
	resp, err := http.Post(srv.URL()+"/users", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var env loyalty.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	var item struct {
		Item map[string]any `json:"item"`
	}
	if err := json.Unmarshal(env.Data, &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	id, _ := item.Item["id"].(string)
	if id == "" {
		t.Fatal("created record has no id")
	}

	if _, ok := srv.Get("users", id); !ok {
		t.Error("created record not stored")
	}
}

func TestServer_DeleteRemovesRecord(t *testing.T) {
	srv := fake.NewServer(fake.WithResource("users", map[string]any{"id": "u-1"}))
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL()+"/users/u-1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	resp.Body.Close()

	if _, ok := srv.Get("users", "u-1"); ok {
		t.Error("record still present after delete")
	}
}

func TestServer_UnknownResourceIs404Envelope(t *testing.T) {
	srv := fake.NewServer()
	defer srv.Close()

	resp, err := http.Get(srv.URL() + "/ghosts")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	var env loyalty.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success() {
		t.Error("error response reported success")
	}
}

func TestServer_CustomHandlerOverrides(t *testing.T) {
	srv := fake.NewServer(fake.WithHandler("/loyalty/summary", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","code":200,"data":{"item":{"points":7}}}`))
	}))
	defer srv.Close()

	env := get(t, srv.URL()+"/loyalty/summary")
	var payload struct {
		Item loyalty.LoyaltySummary `json:"item"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.Item.Points != 7 {
		t.Errorf("points = %d, want 7", payload.Item.Points)
	}
}

func TestServer_RequestCount(t *testing.T) {
	srv := fake.NewServer(fake.WithResource("users"))
	defer srv.Close()

	get(t, srv.URL()+"/users")
	get(t, srv.URL()+"/users")

	if n := srv.RequestCount(http.MethodGet, "/users"); n != 2 {
		t.Errorf("RequestCount() = %d, want 2", n)
	}
	if n := srv.RequestCount(http.MethodPost, "/users"); n != 0 {
		t.Errorf("RequestCount(POST) = %d, want 0", n)
	}
}

func TestSessionProvider_Counts(t *testing.T) {
	p := &fake.SessionProvider{TokenValue: "tok"}

	tok, err := p.Token(context.Background())
	if err != nil || tok != "tok" {
		t.Fatalf("Token() = %q, %v", tok, err)
	}
	p.Invalidate()

	if p.Resolutions() != 1 {
		t.Errorf("Resolutions() = %d, want 1", p.Resolutions())
	}
	if p.Invalidations() != 1 {
		t.Errorf("Invalidations() = %d, want 1", p.Invalidations())
	}
}

func TestNotifier_Records(t *testing.T) {
	n := fake.NewNotifier()
	n.Notify(loyalty.Notification{Level: "error", Message: "boom"})

	notes := n.Notifications()
	if len(notes) != 1 || notes[0].Message != "boom" {
		t.Errorf("notifications = %+v", notes)
	}
}
