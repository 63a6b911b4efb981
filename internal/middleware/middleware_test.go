package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"suki-be/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubParser map[string]*auth.Principal

func (s stubParser) ParseToken(token string) (*auth.Principal, error) {
	if p, ok := s[token]; ok {
		return p, nil
	}
	return nil, errors.New("invalid token")
}

var parser = stubParser{
	"customer": {Subject: "idp|1", Email: "juan@example.ph", Role: auth.RoleCustomer},
	"admin":    {Subject: "admin@suki.ph", Role: auth.RoleAdmin},
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(Authenticate(parser))
	r.GET("/test", append(mw, func(c *gin.Context) {
		p, ok := auth.FromContext(c.Request.Context())
		if ok {
			c.String(http.StatusOK, p.Subject)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthenticate(t *testing.T) {
	r := newRouter()

	t.Run("MissingToken", func(t *testing.T) {
		w := do(r, "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "anonymous", w.Body.String())
	})

	t.Run("InvalidToken", func(t *testing.T) {
		w := do(r, "garbage")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"invalid or expired session"}`, w.Body.String())
	})

	t.Run("ValidToken", func(t *testing.T) {
		w := do(r, "customer")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "idp|1", w.Body.String())
	})

	t.Run("CookieToken", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: "admin"})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, "admin@suki.ph", w.Body.String())
	})
}

func TestRequireRoles(t *testing.T) {
	tests := []struct {
		name   string
		mw     gin.HandlerFunc
		token  string
		status int
	}{
		{"CustomerAnonymous", RequireCustomer(), "", http.StatusUnauthorized},
		{"CustomerOK", RequireCustomer(), "customer", http.StatusOK},
		{"CustomerRouteAdmin", RequireCustomer(), "admin", http.StatusForbidden},
		{"AdminAnonymous", RequireAdmin(), "", http.StatusUnauthorized},
		{"AdminAsCustomer", RequireAdmin(), "customer", http.StatusForbidden},
		{"AdminOK", RequireAdmin(), "admin", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(tt.mw), tt.token)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	t.Run("StrictTierExhausts", func(t *testing.T) {
		l := NewLimiter("/api/admin/login")
		r := gin.New()
		r.Use(RateLimit(l))
		r.POST("/api/admin/login", func(c *gin.Context) { c.Status(http.StatusOK) })

		codes := map[int]int{}
		for i := 0; i < burstStrict+3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			codes[w.Code]++
		}

		assert.Equal(t, burstStrict, codes[http.StatusOK])
		assert.Equal(t, 3, codes[http.StatusTooManyRequests])
	})

	t.Run("SeparateBucketsPerDevice", func(t *testing.T) {
		l := NewLimiter("/login")
		r := gin.New()
		r.Use(RateLimit(l))
		r.GET("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

		for i := 0; i < burstStrict; i++ {
			req := httptest.NewRequest(http.MethodGet, "/login", nil)
			req.Header.Set("X-Device-ID", "a")
			r.ServeHTTP(httptest.NewRecorder(), req)
		}

		req := httptest.NewRequest(http.MethodGet, "/login", nil)
		req.Header.Set("X-Device-ID", "b")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("TierSelection", func(t *testing.T) {
		l := NewLimiter("/api/admin/login")

		_, _, tier := l.tier("/api/admin/login")
		assert.Equal(t, tierStrict, tier)
		_, _, tier = l.tier("/api/me")
		assert.Equal(t, tierGeneral, tier)
	})
}

func TestLimiter_Cleanup(t *testing.T) {
	l := NewLimiter()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.get("ip:1:general", limitGeneral, burstGeneral)
	now = now.Add(time.Minute)
	l.get("ip:2:general", limitGeneral, burstGeneral)

	now = now.Add(visitorTTL)
	l.cleanup()

	require.Len(t, l.visitors, 1)
	_, kept := l.visitors["ip:2:general"]
	assert.True(t, kept)
}
