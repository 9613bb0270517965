package loyaltydata_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/loyaltydata"
	"github.com/loyaltyclub/loyalty-go/transport"
)

// mockBackend scripts per-method results; summaryErrs fail the first N
// Summary calls.
type mockBackend struct {
	summary      *loyalty.LoyaltySummary
	achievements []loyalty.Achievement
	badges       []loyalty.Badge
	unlocked     *loyalty.Achievement
	err          error

	summaryCalls int
	summaryErrs  int
}

func (m *mockBackend) Summary(ctx context.Context) (*loyalty.LoyaltySummary, error) {
	m.summaryCalls++
	if m.err != nil {
		return nil, m.err
	}
	if m.summaryCalls <= m.summaryErrs {
		return nil, errors.New("backend still processing")
	}
	return m.summary, nil
}

func (m *mockBackend) Achievements(ctx context.Context) ([]loyalty.Achievement, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.achievements, nil
}

func (m *mockBackend) Badges(ctx context.Context) ([]loyalty.Badge, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.badges, nil
}

func (m *mockBackend) SimulateUnlock(ctx context.Context, achievementID string) (*loyalty.Achievement, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.unlocked, nil
}

func TestSummary_DelegatesToBackend(t *testing.T) {
	backend := &mockBackend{summary: &loyalty.LoyaltySummary{Points: 420, Tier: "gold"}}
	s := loyaltydata.New(backend)

	summary, err := s.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if summary.Points != 420 || summary.Tier != "gold" {
		t.Errorf("summary = %+v", summary)
	}
}

func TestSummary_WrapsBackendError(t *testing.T) {
	backend := &mockBackend{err: errors.New("down")}
	s := loyaltydata.New(backend)

	_, err := s.Summary(context.Background())
	if err == nil || !errors.Is(err, backend.err) {
		t.Fatalf("Summary() error = %v, want wrapped backend error", err)
	}
}

func TestSimulateUnlock_RequiresID(t *testing.T) {
	s := loyaltydata.New(&mockBackend{})
	_, err := s.SimulateUnlock(context.Background(), "")
	apiErr, ok := loyalty.AsAPIError(err)
	if !ok || apiErr.Kind != loyalty.KindClient {
		t.Fatalf("error = %v, want client-kind APIError", err)
	}
}

func TestRefresh_RetriesUntilSuccess(t *testing.T) {
	backend := &mockBackend{
		summary:     &loyalty.LoyaltySummary{Points: 10},
		summaryErrs: 2,
	}
	s := loyaltydata.New(backend, loyaltydata.WithRetry(3, time.Millisecond))

	summary, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if summary.Points != 10 {
		t.Errorf("Points = %d, want 10", summary.Points)
	}
	if backend.summaryCalls != 3 {
		t.Errorf("summary calls = %d, want 3", backend.summaryCalls)
	}
}

func TestRefresh_GivesUpAfterAttempts(t *testing.T) {
	backend := &mockBackend{err: errors.New("down")}
	s := loyaltydata.New(backend, loyaltydata.WithRetry(3, time.Millisecond))

	_, err := s.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh() expected error when every attempt fails")
	}
	if backend.summaryCalls != 3 {
		t.Errorf("summary calls = %d, want 3", backend.summaryCalls)
	}
}

func TestRefresh_StopsOnCanceledContext(t *testing.T) {
	backend := &mockBackend{err: errors.New("down")}
	s := loyaltydata.New(backend, loyaltydata.WithRetry(5, 50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := s.Refresh(ctx)
	if err == nil {
		t.Fatal("Refresh() expected error on canceled context")
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("Refresh() took %v, should stop at the first delay", elapsed)
	}
	if backend.summaryCalls != 1 {
		t.Errorf("summary calls = %d, want 1", backend.summaryCalls)
	}
}

// scriptedRequester plays back replies keyed by "METHOD path".
type scriptedRequester struct {
	replies map[string]string
	calls   []string
}

func (s *scriptedRequester) Do(ctx context.Context, method, endpoint string, body any, cfg *transport.CallConfig) (*transport.Reply, error) {
	key := method + " " + endpoint
	s.calls = append(s.calls, key)
	data, ok := s.replies[key]
	if !ok {
		return nil, loyalty.NewAPIError(loyalty.KindServer, 404, "not scripted: "+key, nil)
	}
	return &transport.Reply{Data: json.RawMessage(data), StatusCode: 200}, nil
}

func TestRESTBackend_Endpoints(t *testing.T) {
	rt := &scriptedRequester{replies: map[string]string{
		"GET /loyalty/summary":                    `{"item":{"points":100,"tier":"silver"}}`,
		"GET /loyalty/achievements":               `{"items":[{"id":"a-1","name":"First Purchase"}]}`,
		"GET /loyalty/badges":                     `{"items":[{"id":"b-1","tier":"bronze"}]}`,
		"POST /loyalty/achievements/a-1/simulate": `{"item":{"id":"a-1","name":"First Purchase","progress":1,"target":1}}`,
	}}
	backend := loyaltydata.NewRESTBackend(rt)
	ctx := context.Background()

	summary, err := backend.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error: %v", err)
	}
	if summary.Points != 100 {
		t.Errorf("Points = %d, want 100", summary.Points)
	}

	achievements, err := backend.Achievements(ctx)
	if err != nil {
		t.Fatalf("Achievements() error: %v", err)
	}
	if len(achievements) != 1 || achievements[0].ID != "a-1" {
		t.Errorf("achievements = %+v", achievements)
	}

	badges, err := backend.Badges(ctx)
	if err != nil {
		t.Fatalf("Badges() error: %v", err)
	}
	if len(badges) != 1 || badges[0].Tier != "bronze" {
		t.Errorf("badges = %+v", badges)
	}

	unlocked, err := backend.SimulateUnlock(ctx, "a-1")
	if err != nil {
		t.Fatalf("SimulateUnlock() error: %v", err)
	}
	if unlocked.Progress != 1 {
		t.Errorf("Progress = %d, want 1", unlocked.Progress)
	}
}
