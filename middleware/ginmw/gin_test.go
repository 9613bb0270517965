package ginmw_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	loyalty "github.com/loyaltyclub/loyalty-go"
	"github.com/loyaltyclub/loyalty-go/middleware/ginmw"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(extra ...gin.HandlerFunc) (*gin.Engine, *string) {
	r := gin.New()
	r.Use(ginmw.SessionToken())
	for _, h := range extra {
		r.Use(h)
	}

	var seenToken string
	r.GET("/probe", func(c *gin.Context) {
		seenToken = loyalty.SessionTokenFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r, &seenToken
}

func TestSessionToken_LiftsBearerIntoContext(t *testing.T) {
	r, seen := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer tok-55")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *seen != "tok-55" {
		t.Errorf("context token = %q, want tok-55", *seen)
	}
}

func TestSessionToken_NoHeaderPassesThrough(t *testing.T) {
	r, seen := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *seen != "" {
		t.Errorf("context token = %q, want empty", *seen)
	}
}

func TestSessionToken_IgnoresNonBearerSchemes(t *testing.T) {
	r, seen := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwdw==")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if *seen != "" {
		t.Errorf("context token = %q, want empty for Basic auth", *seen)
	}
}

func TestRequireSession_AbortsWithoutToken(t *testing.T) {
	r, _ := newRouter(ginmw.RequireSession())

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if !strings.Contains(w.Body.String(), loyalty.UnauthenticatedMessage) {
		t.Errorf("body = %q, want the unauthenticated message", w.Body.String())
	}
}

func TestRequireSession_AllowsWithToken(t *testing.T) {
	r, seen := newRouter(ginmw.RequireSession())

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if *seen != "tok-1" {
		t.Errorf("context token = %q, want tok-1", *seen)
	}
}

func TestSessionToken_CaseInsensitiveScheme(t *testing.T) {
	r, seen := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "bearer tok-lc")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if *seen != "tok-lc" {
		t.Errorf("context token = %q, want tok-lc", *seen)
	}
}
