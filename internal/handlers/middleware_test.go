package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yyup/kindergarten-service/internal/utils"
)

func newMiddlewareEngine(cfg MiddlewareConfig) *gin.Engine {
	engine := gin.New()
	SetupMiddleware(engine, utils.NewNopLogger(), cfg)
	engine.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	engine.GET("/panic", func(c *gin.Context) { panic("boom") })
	engine.GET("/deadline", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": ok})
	})
	return engine
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	engine := newMiddlewareEngine(MiddlewareConfig{})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))

	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	req.Header.Set("X-Request-ID", "req-123")
	w = serve(engine, req)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	engine := newMiddlewareEngine(MiddlewareConfig{})

	req := httptest.NewRequest(http.MethodOptions, "/ok", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := serve(engine, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRecoveryWritesEnvelope(t *testing.T) {
	engine := newMiddlewareEngine(MiddlewareConfig{})

	w := serve(engine, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
}

func TestTimeoutSetsDeadline(t *testing.T) {
	w := serve(newMiddlewareEngine(MiddlewareConfig{RequestTimeout: time.Second}),
		httptest.NewRequest(http.MethodGet, "/deadline", nil))
	assert.JSONEq(t, `{"deadline":true}`, w.Body.String())

	w = serve(newMiddlewareEngine(MiddlewareConfig{}),
		httptest.NewRequest(http.MethodGet, "/deadline", nil))
	assert.JSONEq(t, `{"deadline":false}`, w.Body.String())
}

func TestRateLimitPerClientIP(t *testing.T) {
	engine := newMiddlewareEngine(MiddlewareConfig{RateLimitRPS: 1, RateLimitBurst: 2})

	request := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ok", nil)
		req.RemoteAddr = ip + ":1234"
		return serve(engine, req)
	}

	assert.Equal(t, http.StatusOK, request("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, request("10.0.0.1").Code)

	w := request("10.0.0.1")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	body := decode(t, w)
	assert.Equal(t, "RATE_LIMITED", body["code"])
	assert.Equal(t, "请求过于频繁", body["message"])

	assert.Equal(t, http.StatusOK, request("10.0.0.2").Code)
}
