package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/authz"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/model"
	"github.com/mbwalabat/virtual-campus-tour-vcts/internal/service"
	"github.com/mbwalabat/virtual-campus-tour-vcts/pkg/redis"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthenticator struct {
	principals map[string]*service.Principal
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (*service.Principal, error) {
	if p, ok := s.principals[token]; ok {
		return p, nil
	}
	return nil, service.ErrInvalidToken
}

func newStubAuthenticator() *stubAuthenticator {
	admin := &model.User{Name: "Root", Email: "root@campus.edu", Role: model.RoleSuperAdmin, IsActive: true}
	admin.UserID = "u-root"
	visitor := &model.User{Name: "Visitor", Email: "v@campus.edu", Role: model.RoleUser, IsActive: true}
	visitor.UserID = "u-visitor"

	return &stubAuthenticator{principals: map[string]*service.Principal{
		"admin-token":   {User: admin, Actor: authz.SuperAdmin{ID: admin.UserID}, TokenID: "jti-a"},
		"visitor-token": {User: visitor, Actor: authz.Visitor{ID: visitor.UserID}, TokenID: "jti-v"},
	}}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestJWTAuth(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWTAuth(newStubAuthenticator()), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(KeyUserID))
	})

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid token", "Bearer admin-token", http.StatusOK, "u-root"},
		{"lowercase scheme", "bearer visitor-token", http.StatusOK, "u-visitor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, w.Body.String())
				return
			}
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.EqualValues(t, http.StatusUnauthorized, body["statusCode"])
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	r := gin.New()
	r.GET("/locations", OptionalAuth(newStubAuthenticator()), func(c *gin.Context) {
		_, ok := c.Get(KeyActor)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/locations", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["authenticated"])

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/locations", nil)
	req.Header.Set("Authorization", "Bearer visitor-token")
	r.ServeHTTP(w, req)
	assert.Equal(t, true, decode(t, w)["authenticated"])

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/locations", nil)
	req.Header.Set("Authorization", "Bearer expired")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleAuth(t *testing.T) {
	r := gin.New()
	r.GET("/admin", JWTAuth(newStubAuthenticator()), RoleAuth(model.RoleSuperAdmin, model.RoleDepartmentAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })

	for token, want := range map[string]int{
		"admin-token":   http.StatusOK,
		"visitor-token": http.StatusForbidden,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, token)
	}
}

func TestRoleAuth_WithoutPrincipal(t *testing.T) {
	r := gin.New()
	r.GET("/admin", RoleAuth(model.RoleSuperAdmin), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return redis.Wrap(rdb, zap.NewNop()), mr
}

func hit(r http.Handler, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestRateLimit_Redis(t *testing.T) {
	rdb, _ := newRedis(t)
	r := gin.New()
	r.Use(RateLimit(rdb, 2, time.Minute, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, hit(r, "/ping"))
	assert.Equal(t, http.StatusOK, hit(r, "/ping"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "/ping"))
}

func TestRateLimit_FallsBackWhenRedisDown(t *testing.T) {
	rdb, mr := newRedis(t)
	mr.Close()

	r := gin.New()
	r.Use(RateLimit(rdb, 1, time.Minute, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, hit(r, "/ping"))
	assert.Equal(t, http.StatusTooManyRequests, hit(r, "/ping"))
}

func TestRateLimit_SharedAcrossRoutes(t *testing.T) {
	rdb, _ := newRedis(t)
	backends := map[string]*redis.Client{"redis": rdb, "memory": nil}

	for name, client := range backends {
		t.Run(name, func(t *testing.T) {
			r := gin.New()
			r.Use(RateLimit(client, 2, time.Minute, zap.NewNop()))
			r.GET("/api/a", func(c *gin.Context) { c.Status(http.StatusOK) })
			r.GET("/api/b", func(c *gin.Context) { c.Status(http.StatusOK) })

			assert.Equal(t, http.StatusOK, hit(r, "/api/a"))
			assert.Equal(t, http.StatusOK, hit(r, "/api/b"))
			assert.Equal(t, http.StatusTooManyRequests, hit(r, "/api/b"))
			assert.Equal(t, http.StatusTooManyRequests, hit(r, "/api/a"))
		})
	}
}

func TestRateLimit_NoRedis(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(nil, 1, time.Minute, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, hit(r, "/ping"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, decode(t, w)["message"], "Too many requests")
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(requestIDKey)) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	assert.Equal(t, "abc-123", w.Body.String())

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", requestIDMaxLen+1))
	r.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:3000/"}))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(false, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "res.cloudinary.com")
}

func TestSecurityHeaders_ProductionRedirect(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders(true, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://campus.example/ping", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://"))
}

func TestBodyLimit(t *testing.T) {
	r := gin.New()
	r.Use(BodyLimit(8))
	r.POST("/echo", func(c *gin.Context) {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(b))
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"name":"too long"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("0123456789abcdef"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
