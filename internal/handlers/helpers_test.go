package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/yyup/kindergarten-service/internal/auth"
	"github.com/yyup/kindergarten-service/internal/cache"
	"github.com/yyup/kindergarten-service/internal/config"
	"github.com/yyup/kindergarten-service/internal/events"
	"github.com/yyup/kindergarten-service/internal/models"
	"github.com/yyup/kindergarten-service/internal/repositories/memory"
	"github.com/yyup/kindergarten-service/internal/services"
	"github.com/yyup/kindergarten-service/internal/tenant"
	"github.com/yyup/kindergarten-service/internal/utils"
	"github.com/yyup/kindergarten-service/internal/validator"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSchema = "kindergarten"

type fakeStreamer struct {
	chunks []string
	err    error
}

func (f *fakeStreamer) Stream(ctx context.Context, modelID string, messages []models.ChatMessage, emit func(string) error) error {
	for _, c := range f.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return f.err
}

type testServer struct {
	engine    *gin.Engine
	repo      *memory.Repository
	verifier  *auth.JWTVerifier
	publisher *events.MockEventPublisher
}

type serverOption func(*services.Dependencies)

func withStreamer(s services.ChatStreamer) serverOption {
	return func(d *services.Dependencies) { d.Streamer = s }
}

func newTestServer(t *testing.T, opts ...serverOption) *testServer {
	t.Helper()
	logger := utils.NewNopLogger()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cacheManager := cache.NewCacheManager(client, logger)

	registry, err := tenant.NewRegistry([]string{testSchema, "kg_demo"}, testSchema)
	require.NoError(t, err)

	repo := memory.New()
	publisher := events.NewMockEventPublisher()
	deps := services.Dependencies{
		Repo:      repo,
		Cache:     cacheManager,
		Publisher: publisher,
		Logger:    logger,
		Validator: validator.New(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	sm := services.NewServiceManager(deps, services.ServiceManagerConfig{
		Environment: config.EnvTest,
		UploadDir:   t.TempDir(),
		AI:          config.AIConfig{Model: "doubao-pro", Models: []string{"doubao-pro"}},
	})
	require.NoError(t, sm.Initialize(context.Background()))

	verifier := auth.NewJWTVerifier("handler-test-secret", "kg-test")
	gate := auth.NewGate(verifier, registry, repo.Grants(), logger)

	engine := gin.New()
	SetupMiddleware(engine, logger, MiddlewareConfig{RequestTimeout: 5 * time.Second})
	NewHandlerManager(HandlerDeps{
		Services: sm,
		Gate:     gate,
		Metadata: repo.Metadata(),
		Tenants:  registry,
		Cache:    cacheManager,
		Logger:   logger,
	}).SetupRoutes(engine)

	return &testServer{engine: engine, repo: repo, verifier: verifier, publisher: publisher}
}

func (s *testServer) token(t *testing.T, identity models.Identity) string {
	t.Helper()
	token, err := s.verifier.IssueToken(identity, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) tokenFor(t *testing.T, role models.UserRole, permissions ...models.Permission) string {
	t.Helper()
	perms := make([]string, len(permissions))
	for i, p := range permissions {
		perms[i] = string(p)
	}
	return s.token(t, models.Identity{UserID: "u-" + string(role), Username: string(role), Role: role, Permissions: perms})
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(req, token)
}

func (s *testServer) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := decode(t, w)["data"].(map[string]interface{})
	require.True(t, ok, w.Body.String())
	return data
}

func formatID(id float64) string {
	return strconv.FormatUint(uint64(id), 10)
}
