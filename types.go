package loyalty

import (
	"encoding/json"
	"time"
)

// Envelope is the uniform wire response shape returned by every endpoint of
// the loyalty API. Singular reads carry the payload under Data as
// {"item": ...}, list reads as {"items": [...]} with pagination in Meta.
type Envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []FieldError    `json:"errors,omitempty"`
	Meta    *Meta           `json:"meta,omitempty"`
}

// Success reports whether the envelope carries a successful response.
func (e *Envelope) Success() bool { return e.Status == "success" }

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta carries response metadata, currently only pagination.
type Meta struct {
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination describes the position of a list response within the full
// result set.
type Pagination struct {
	CurrentPage int `json:"current_page"`
	From        int `json:"from"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`
	To          int `json:"to"`
	Total       int `json:"total"`
}

// User represents a loyalty-program member or admin account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Points    int       `json:"points"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
}

// Achievement represents a named goal a member can unlock by activity.
type Achievement struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Icon        string     `json:"icon"`
	Points      int        `json:"points"`
	Progress    int        `json:"progress"`
	Target      int        `json:"target"`
	UnlockedAt  *time.Time `json:"unlocked_at,omitempty"`
}

// Badge represents a tiered award granted to a member.
type Badge struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Tier      string     `json:"tier"`
	Icon      string     `json:"icon"`
	AwardedAt *time.Time `json:"awarded_at,omitempty"`
}

// Payment represents a payment transaction and its provider state.
type Payment struct {
	ID          string    `json:"id"`
	Reference   string    `json:"reference"`
	Amount      int64     `json:"amount"` // minor currency units
	Currency    string    `json:"currency"`
	Status      string    `json:"status"` // pending, completed, failed
	RedirectURL string    `json:"redirect_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// CashbackEntry is a single credit or debit on a member's cashback ledger.
type CashbackEntry struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Kind      string    `json:"kind"` // earned, withdrawn
	Reference string    `json:"reference"`
	CreatedAt time.Time `json:"created_at"`
}

// LoyaltySummary is the aggregate view shown on the member dashboard.
type LoyaltySummary struct {
	Points          int    `json:"points"`
	Tier            string `json:"tier"`
	TierProgress    int    `json:"tier_progress"` // percent toward next tier
	NextTier        string `json:"next_tier,omitempty"`
	CashbackBalance int64  `json:"cashback_balance"`
	Achievements    int    `json:"achievements_unlocked"`
	Badges          int    `json:"badges_awarded"`
}

// Session is the authenticated session returned by a credential login.
type Session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

// ListOptions holds pagination parameters for list reads.
type ListOptions struct {
	Page     int
	PageSize int
}

// RealtimeEvent is a push notification delivered over the private per-user
// channel. Type is one of EventAchievementUnlocked or EventBadgeUnlocked.
type RealtimeEvent struct {
	Type    string          `json:"type"`
	UserID  string          `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

// Realtime event types consumed by the SDK.
const (
	EventAchievementUnlocked = "achievement.unlocked"
	EventBadgeUnlocked       = "badge.unlocked"
)
