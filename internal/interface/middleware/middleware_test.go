package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-anon-feedback/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	return mr, helpers.NewRedisClient(mr.Addr(), "", 0)
}

func authEngine(rdb *redis.Client, jwt *helpers.JWTManager) *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/me", Auth(rdb, jwt), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxUserIDKey)+"|"+c.GetString(CtxUsernameKey))
	})
	return r
}

func get(r http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	mr, rdb := newRedis(t)
	jwt := helpers.NewJWTManager("a", "r", time.Hour, time.Hour)
	r := authEngine(rdb, jwt)

	token, _, err := jwt.GenerateAccessToken(helpers.SessionUser{UserID: "u-1", Username: "alice"}, "sid-1")
	require.NoError(t, err)
	cookie := &http.Cookie{Name: helpers.AccessCookie, Value: token}

	w := get(r, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)

	w = get(r, "/me", &http.Cookie{Name: helpers.AccessCookie, Value: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(r, "/me", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "no active session")

	mr.HSet(helpers.SessionKey("u-1"), "sid", "sid-1")
	w = get(r, "/me", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u-1|alice", w.Body.String())

	mr.HSet(helpers.SessionKey("u-1"), "sid", "sid-2")
	w = get(r, "/me", cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "rotated session revokes the old token")
}

func TestAuth_WithoutRedisTrustsToken(t *testing.T) {
	jwt := helpers.NewJWTManager("a", "r", time.Hour, time.Hour)
	token, _, err := jwt.GenerateAccessToken(helpers.SessionUser{UserID: "u-1"}, "sid")
	require.NoError(t, err)

	w := get(authEngine(nil, jwt), "/me", &http.Cookie{Name: helpers.AccessCookie, Value: token})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit(t *testing.T) {
	_, rdb := newRedis(t)
	r := gin.New()
	r.Use(RealIP())
	r.GET("/x", RateLimit(rdb, 2, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		w := get(r, "/x", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := get(r, "/x", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimit_FailsOpen(t *testing.T) {
	rdb := helpers.NewRedisClient("127.0.0.1:1", "", 0)

	r := gin.New()
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(r, "/x", nil).Code)
	}
}

func TestRateLimit_AllowPrivateIP(t *testing.T) {
	_, rdb := newRedis(t)
	r := gin.New()
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyByIP(), AllowPrivateIP()), func(c *gin.Context) { c.Status(http.StatusOK) })

	// httptest requests come from 192.0.2.1, which is not private
	assert.Equal(t, http.StatusOK, get(r, "/x", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "/x", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestRealIP_PrefersForwardedHeaders(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRealIPKey)) })

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "203.0.113.7", w.Body.String())
}

func TestRealIP_HeaderPrecedence(t *testing.T) {
	r := gin.New()
	r.Use(RealIP())
	r.GET("/ip", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(CtxRealIPKey)) })

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	req.Header.Set("X-Real-IP", "198.51.100.2")
	req.Header.Set("CF-Connecting-IP", "not-an-ip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "198.51.100.2", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/ip", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "192.0.2.1", w.Body.String())
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := get(r, "/", nil)
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())
	assert.Len(t, w.Body.String(), 36)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "6f1c2a9e-8a0e-4c1e-9a55-3a8b3f6f1b10")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "6f1c2a9e-8a0e-4c1e-9a55-3a8b3f6f1b10", w.Body.String())
}
