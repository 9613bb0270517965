package loyalty_test

import (
	"context"
	"testing"
	"time"

	loyalty "github.com/loyaltyclub/loyalty-go"
)

func TestNewClient_RequiresAPIBaseURL(t *testing.T) {
	_, err := loyalty.NewClient(loyalty.Config{})
	if err == nil {
		t.Fatal("NewClient() expected error when APIBaseURL is empty")
	}
}

func TestNewClient_AcceptsAPIBaseURL(t *testing.T) {
	c, err := loyalty.NewClient(loyalty.Config{APIBaseURL: "https://api.example.com"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if c.Config().APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q, want %q", c.Config().APIBaseURL, "https://api.example.com")
	}
}

func TestConfigFromEnv_ReadsVariables(t *testing.T) {
	t.Setenv("LOYALTY_API_URL", "https://api.example.com")
	t.Setenv("LOYALTY_API_KEY", "key-1")
	t.Setenv("LOYALTY_REALTIME_URL", "wss://rt.example.com")
	t.Setenv("LOYALTY_REALTIME_KEY", "rt-key-1")

	cfg := loyalty.ConfigFromEnv()
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "https://api.example.com")
	}
	if cfg.APIKey != "key-1" {
		t.Errorf("APIKey = %q, want %q", cfg.APIKey, "key-1")
	}
	if cfg.RealtimeURL != "wss://rt.example.com" {
		t.Errorf("RealtimeURL = %q, want %q", cfg.RealtimeURL, "wss://rt.example.com")
	}
	if cfg.RealtimeKey != "rt-key-1" {
		t.Errorf("RealtimeKey = %q, want %q", cfg.RealtimeKey, "rt-key-1")
	}
}

func TestConfigFromEnv_MissingRealtimeIsNotFatal(t *testing.T) {
	t.Setenv("LOYALTY_API_URL", "https://api.example.com")
	t.Setenv("LOYALTY_API_KEY", "key-1")
	t.Setenv("LOYALTY_REALTIME_URL", "")
	t.Setenv("LOYALTY_REALTIME_KEY", "")

	cfg := loyalty.ConfigFromEnv()
	if cfg.RealtimeURL != "" {
		t.Errorf("RealtimeURL = %q, want empty", cfg.RealtimeURL)
	}
	if _, err := loyalty.NewClient(cfg); err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
}

func TestNewClient_DefaultDurations(t *testing.T) {
	c, err := loyalty.NewClient(loyalty.Config{APIBaseURL: "https://api.example.com"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	cfg := c.Config()
	if cfg.TokenLease != 23*time.Hour {
		t.Errorf("TokenLease = %v, want %v", cfg.TokenLease, 23*time.Hour)
	}
	if cfg.ResetDelay != 300*time.Millisecond {
		t.Errorf("ResetDelay = %v, want %v", cfg.ResetDelay, 300*time.Millisecond)
	}
	if cfg.RefreshAttempts != 3 {
		t.Errorf("RefreshAttempts = %d, want 3", cfg.RefreshAttempts)
	}
	if cfg.RefreshDelay != 2*time.Second {
		t.Errorf("RefreshDelay = %v, want %v", cfg.RefreshDelay, 2*time.Second)
	}
}

func TestNewClient_CustomDurations(t *testing.T) {
	c, err := loyalty.NewClient(loyalty.Config{
		APIBaseURL: "https://api.example.com",
		TokenLease: time.Hour,
		ResetDelay: time.Second,
	})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if c.Config().TokenLease != time.Hour {
		t.Errorf("TokenLease = %v, want %v", c.Config().TokenLease, time.Hour)
	}
	if c.Config().ResetDelay != time.Second {
		t.Errorf("ResetDelay = %v, want %v", c.Config().ResetDelay, time.Second)
	}
}

func TestNewClient_NilServicesBeforeInjection(t *testing.T) {
	c, _ := loyalty.NewClient(loyalty.Config{APIBaseURL: "https://api.example.com"})

	if c.LoyaltyData() != nil {
		t.Error("LoyaltyData() should be nil before injection")
	}
	if c.Payments() != nil {
		t.Error("Payments() should be nil before injection")
	}
	if c.Cashback() != nil {
		t.Error("Cashback() should be nil before injection")
	}
	if c.Admin() != nil {
		t.Error("Admin() should be nil before injection")
	}
}

func TestHealthCheck_FailsWithoutServices(t *testing.T) {
	c, _ := loyalty.NewClient(loyalty.Config{APIBaseURL: "https://api.example.com"})
	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("HealthCheck() expected error with no services injected")
	}
}

type stubLoyaltyData struct{ loyalty.LoyaltyDataService }

func TestHealthCheck_PassesWithService(t *testing.T) {
	c, _ := loyalty.NewClient(loyalty.Config{APIBaseURL: "https://api.example.com"},
		loyalty.WithLoyaltyData(stubLoyaltyData{}),
	)
	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error: %v", err)
	}
}

func TestClose_NoErrorWithoutClosers(t *testing.T) {
	c, _ := loyalty.NewClient(loyalty.Config{APIBaseURL: "https://api.example.com"})
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

type closingProvider struct {
	closed bool
}

func (p *closingProvider) Token(ctx context.Context) (string, error) { return "t", nil }
func (p *closingProvider) Invalidate()                               {}
func (p *closingProvider) Close() error {
	p.closed = true
	return nil
}

func TestClose_ClosesInjectedClosers(t *testing.T) {
	p := &closingProvider{}
	c, _ := loyalty.NewClient(loyalty.Config{APIBaseURL: "https://api.example.com"},
		loyalty.WithSessionProvider(p),
	)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !p.closed {
		t.Error("Close() should close the injected session provider")
	}
}

func TestSessionTokenContext_RoundTrip(t *testing.T) {
	ctx := loyalty.WithSessionToken(context.Background(), "tok-123")
	if got := loyalty.SessionTokenFromContext(ctx); got != "tok-123" {
		t.Errorf("SessionTokenFromContext() = %q, want %q", got, "tok-123")
	}
	if got := loyalty.SessionTokenFromContext(context.Background()); got != "" {
		t.Errorf("SessionTokenFromContext() on empty context = %q, want empty", got)
	}
}

func TestUserIDContext_RoundTrip(t *testing.T) {
	ctx := loyalty.WithUserID(context.Background(), "user-9")
	if got := loyalty.UserIDFromContext(ctx); got != "user-9" {
		t.Errorf("UserIDFromContext() = %q, want %q", got, "user-9")
	}
}
