// Package ginmw provides Gin HTTP middleware for services that front the
// loyalty API on behalf of browser users.
//
// SessionToken lifts the inbound bearer token into the request context;
// SDK calls made with that context (via session.FromContext) then run as
// the calling user instead of a machine identity.
package ginmw

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	loyalty "github.com/loyaltyclub/loyalty-go"
)

// KeyHasSession marks requests that carried a bearer token.
const KeyHasSession = "loyalty_has_session"

// SessionToken extracts the Authorization bearer token and stores it in the
// request context for downstream SDK calls. Requests without a token pass
// through unchanged.
func SessionToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c.GetHeader("Authorization")); token != "" {
			ctx := loyalty.WithSessionToken(c.Request.Context(), token)
			c.Request = c.Request.WithContext(ctx)
			c.Set(KeyHasSession, true)
		}
		c.Next()
	}
}

// RequireSession aborts with 401 when the request carries no bearer token.
// Use after SessionToken on routes that act as a specific user.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(KeyHasSession) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": loyalty.UnauthenticatedMessage,
			})
			return
		}
		c.Next()
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
