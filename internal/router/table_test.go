package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func named(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"handler": name, "id": c.Param("id")})
	}
}

func newEngine(t *Table) *gin.Engine {
	engine := gin.New()
	engine.Any("/api/*path", t.Dispatch)
	engine.NoRoute(NotFound)
	return engine
}

func serve(engine *gin.Engine, method, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var body map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestLiteralRegisteredBeforeParamWins(t *testing.T) {
	table := NewTable()
	students := table.Group("/api/students")
	students.GET("/stats", named("stats"))
	students.GET("/:id", named("detail"))

	engine := newEngine(table)

	_, body := serve(engine, http.MethodGet, "/api/students/stats")
	assert.Equal(t, "stats", body["handler"])

	_, body = serve(engine, http.MethodGet, "/api/students/42")
	assert.Equal(t, "detail", body["handler"])
	assert.Equal(t, "42", body["id"])
}

func TestParamRegisteredFirstShadowsLiteral(t *testing.T) {
	table := NewTable()
	students := table.Group("/api/students")
	students.GET("/:id", named("detail"))
	students.GET("/stats", named("stats"))

	_, body := serve(newEngine(table), http.MethodGet, "/api/students/stats")
	assert.Equal(t, "detail", body["handler"])
	assert.Equal(t, "stats", body["id"])
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	table := NewTable()
	table.Group("/api/students").GET("", named("list"))
	engine := newEngine(table)

	for _, path := range []string{"/api/unknown", "/api/students/1/2", "/not-api"} {
		w, body := serve(engine, http.MethodGet, path)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "接口不存在", body["message"])
		assert.Equal(t, "NOT_FOUND", body["code"])
	}
}

func TestMethodMustMatch(t *testing.T) {
	table := NewTable()
	table.Group("/api/tasks").POST("", named("create"))

	w, _ := serve(newEngine(table), http.MethodGet, "/api/tasks")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTrailingSlashIgnored(t *testing.T) {
	table := NewTable()
	table.Group("/api/tasks").GET("", named("list"))

	w, body := serve(newEngine(table), http.MethodGet, "/api/tasks/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "list", body["handler"])
}

func TestAbortStopsChain(t *testing.T) {
	table := NewTable()
	reached := false
	gate := func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false})
	}
	table.Group("/api/system", gate).GET("/info", func(c *gin.Context) {
		reached = true
	})

	w, _ := serve(newEngine(table), http.MethodGet, "/api/system/info")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.False(t, reached)
}

func TestGroupMiddlewareOrderAndPattern(t *testing.T) {
	table := NewTable()
	var order []string
	mark := func(name string) gin.HandlerFunc {
		return func(c *gin.Context) { order = append(order, name) }
	}

	api := table.Group("/api", mark("outer"))
	api.Group("/notifications", mark("inner")).GET("/:id/read", func(c *gin.Context) {
		order = append(order, "handler")
		c.String(http.StatusOK, c.GetString(RoutePatternKey))
	})

	w := httptest.NewRecorder()
	newEngine(table).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/notifications/7/read", nil))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
	assert.Equal(t, "/api/notifications/:id/read", w.Body.String())
}

func TestRulesListedInRegistrationOrder(t *testing.T) {
	table := NewTable()
	g := table.Group("/api/activities")
	g.GET("/statistics", named("a"))
	g.GET("/:id", named("b"))
	g.PUT("/:id/status", named("c"))

	rules := table.Rules()
	require.Len(t, rules, 3)
	assert.Contains(t, rules[0], "/api/activities/statistics")
	assert.Contains(t, rules[2], "PUT")
	assert.Equal(t, 3, table.Len())
}
