package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/metrics"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/testhelpers"
	"github.com/pageza/foodgram/backend/internal/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator struct {
	tokens  map[string]uint
	revoked map[string]bool
	err     error
}

func (f fakeValidator) ValidateToken(_ context.Context, token string) (*types.TokenClaims, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.revoked[token] {
		return nil, service.ErrTokenRevoked
	}
	id, ok := f.tokens[token]
	if !ok {
		return nil, service.ErrInvalidToken
	}
	return &types.TokenClaims{UserID: id, Username: "cook"}, nil
}

func whoAmI(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
}

func TestAuthMiddleware(t *testing.T) {
	v := fakeValidator{tokens: map[string]uint{"good": 7}, revoked: map[string]bool{"old": true}}
	r := gin.New()
	r.GET("/me", AuthMiddleware(v), whoAmI)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"revoked token", "Bearer old", http.StatusUnauthorized},
		{"bearer", "Bearer good", http.StatusOK},
		{"token scheme", "Token good", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.JSONEq(t, `{"user_id":7}`, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

func TestAuthMiddlewareDenylistDown(t *testing.T) {
	v := fakeValidator{err: errors.New("failed to check token denylist: dial tcp 10.0.0.5:6379: connect: connection refused")}
	r := gin.New()
	r.GET("/me", AuthMiddleware(v), whoAmI)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"error"`)
	assert.NotContains(t, w.Body.String(), "6379")
	assert.NotContains(t, w.Body.String(), "denylist")
}

func TestOptionalAuthLetsAnonymousThrough(t *testing.T) {
	v := fakeValidator{tokens: map[string]uint{"good": 3}}
	r := gin.New()
	r.GET("/recipes", OptionalAuth(v), whoAmI)

	for header, want := range map[string]string{
		"":            `{"user_id":0}`,
		"Token bad":   `{"user_id":0}`,
		"Token good":  `{"user_id":3}`,
		"Bearer good": `{"user_id":3}`,
	} {
		req := httptest.NewRequest(http.MethodGet, "/recipes", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, header)
		assert.JSONEq(t, want, w.Body.String(), header)
	}
}

func TestRecoveryReturnsJSON(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(logger.FromZap(zap.New(core))))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "kaboom", logs.All()[0].ContextMap()["panic"])
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(RequestLogger(logger.FromZap(zap.New(core))))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "request handled", entries[0].Message)
	assert.Equal(t, "request rejected", entries[1].Message)
	assert.Equal(t, "abc-123", entries[1].ContextMap()["request_id"])
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	r := gin.New()
	r.Use(Metrics())
	r.GET("/recipes/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/recipes/:id", "200")
	before := testutil.ToFloat64(counter)

	for _, path := range []string{"/recipes/1", "/recipes/2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, before+2, testutil.ToFloat64(counter))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000"}))
	r.GET("/tags", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/tags", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/tags", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimiterBlocksAfterLimit(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	rl := NewRateLimiter(client, RateLimitConfig{Window: time.Hour, Limit: 2, KeyPrefix: "test:" + t.Name()}, logger.NewNop())
	fixed := time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	v := fakeValidator{tokens: map[string]uint{"a": 1, "b": 2}}
	r := gin.New()
	r.POST("/recipes", AuthMiddleware(v), rl.Middleware(), func(c *gin.Context) { c.Status(http.StatusCreated) })

	post := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/recipes", nil)
		req.Header.Set("Authorization", "Token "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, post("a").Code)
	w := post("a")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = post("a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2700", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, post("b").Code)
}
