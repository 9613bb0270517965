package loyalty

import "context"

type ctxKey string

const (
	ctxKeySessionToken ctxKey = "loyalty_session_token"
	ctxKeyUserID       ctxKey = "loyalty_user_id"
)

// WithSessionToken stores a request-scoped session token in the context.
// Services fronting the loyalty API on behalf of a browser user attach the
// inbound bearer token here so SDK calls run as that user.
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKeySessionToken, token)
}

// SessionTokenFromContext extracts the request-scoped session token, or ""
// when none was attached.
func SessionTokenFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeySessionToken).(string)
	return v
}

// WithUserID stores the acting user's ID in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKeyUserID, userID)
}

// UserIDFromContext extracts the acting user's ID from the context.
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyUserID).(string)
	return v
}
