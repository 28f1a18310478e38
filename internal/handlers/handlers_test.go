package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mw "go-logstore/internal/middleware"
	"go-logstore/internal/models"
	"go-logstore/internal/repositories"
	"go-logstore/internal/services"
	"go-logstore/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "handlers-secret"
	testPIN    = "2468"
)

type testServer struct {
	app   *fiber.App
	repo  *repositories.MemoryLogRepository
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	hash, err := utils.HashPassword(testPIN)
	require.NoError(t, err)

	repo := repositories.NewMemoryLogRepository()
	admin := services.NewAdminService(services.AdminConfig{
		PINHash:     hash,
		MaxAttempts: 3,
		Lockout:     time.Minute,
		JWTSecret:   testSecret,
		JWTExpires:  time.Minute,
	}, zap.NewNop(), nil)

	app := fiber.New()
	app.Use(mw.RequestLoggers(zap.NewNop(), zap.NewNop()))
	api := app.Group("/api/v1")
	NewAdminHandler(admin).SetupAdminRoutes(api)
	NewLogHandler(repo).SetupLogRoutes(api, mw.Protected(testSecret))

	token, _, err := utils.GenerateToken(services.AdminSubject, utils.RoleAdmin, testSecret, time.Minute)
	require.NoError(t, err)
	return &testServer{app: app, repo: repo, token: token}
}

func (s *testServer) do(t *testing.T, method, target, body string, auth bool) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		req.Header.Set(mw.AuthorizationHeader, mw.BearerPrefix+s.token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (s *testServer) seed(t *testing.T, entries ...models.LogEntry) {
	t.Helper()
	for _, e := range entries {
		_, err := s.repo.Save(context.Background(), e)
		require.NoError(t, err)
	}
}

func TestLogHandler_CreateIsPublic(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/logs",
		`{"level":"warn","message":"disk almost full","tag":"disk","data":{"free":12}}`, false)
	require.Equal(t, http.StatusCreated, code)
	assert.EqualValues(t, 1, body["id"])

	got, err := s.repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "disk", got.Tag)
	assert.EqualValues(t, 12, got.Data["free"])
	assert.Positive(t, got.Timestamp, "timestamp defaults to now")
}

func TestLogHandler_CreateRejectsBadInput(t *testing.T) {
	s := newTestServer(t)

	cases := map[string]string{
		"unknown level":   `{"level":"verbose","message":"m"}`,
		"missing message": `{"level":"info"}`,
		"malformed json":  `{"level":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			code, _ := s.do(t, http.MethodPost, "/api/v1/logs", body, false)
			assert.Equal(t, http.StatusBadRequest, code)
		})
	}
	n, err := s.repo.GetCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLogHandler_ReadRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	for _, target := range []string{"/api/v1/logs", "/api/v1/logs/count", "/api/v1/logs/1"} {
		code, _ := s.do(t, http.MethodGet, target, "", false)
		assert.Equal(t, http.StatusUnauthorized, code, target)
	}
	code, _ := s.do(t, http.MethodDelete, "/api/v1/logs", "", false)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestLogHandler_ListFiltersAndPaginates(t *testing.T) {
	s := newTestServer(t)
	s.seed(t,
		models.LogEntry{Level: "info", Message: "a", Tag: "auth", Timestamp: 1000},
		models.LogEntry{Level: "error", Message: "b", Tag: "auth", Timestamp: 2000},
		models.LogEntry{Level: "warn", Message: "c", Tag: "db", Timestamp: 3000},
	)

	code, body := s.do(t, http.MethodGet, "/api/v1/logs", "", true)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 3, body["count"])
	logs := body["logs"].([]any)
	assert.Equal(t, "c", logs[0].(map[string]any)["message"], "newest first")

	code, body = s.do(t, http.MethodGet, "/api/v1/logs?level=info,error&tag=auth&limit=1", "", true)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
	assert.Equal(t, "b", body["logs"].([]any)[0].(map[string]any)["message"])

	code, body = s.do(t, http.MethodGet, "/api/v1/logs?from=1500&to=2500", "", true)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])

	code, _ = s.do(t, http.MethodGet, "/api/v1/logs?level=loud", "", true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/logs?limit=5000", "", true)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLogHandler_ListDefaultsToMaxLimit(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < maxQueryLimit+5; i++ {
		s.seed(t, models.LogEntry{Level: "info", Message: "m", Timestamp: int64(1000 + i)})
	}

	code, body := s.do(t, http.MethodGet, "/api/v1/logs", "", true)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, maxQueryLimit, body["count"])
}

func TestLogHandler_GetAndCount(t *testing.T) {
	s := newTestServer(t)
	s.seed(t, models.LogEntry{Level: "info", Message: "hello", Timestamp: 1000})

	code, body := s.do(t, http.MethodGet, "/api/v1/logs/1", "", true)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "hello", body["message"])

	code, _ = s.do(t, http.MethodGet, "/api/v1/logs/99", "", true)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/logs/abc", "", true)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, http.MethodGet, "/api/v1/logs/count", "", true)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["count"])
}

func TestLogHandler_PurgeAndClear(t *testing.T) {
	s := newTestServer(t)
	s.seed(t,
		models.LogEntry{Level: "info", Message: "old", Timestamp: 1000},
		models.LogEntry{Level: "info", Message: "boundary", Timestamp: 2000},
		models.LogEntry{Level: "info", Message: "new", Timestamp: 3000},
	)

	code, _ := s.do(t, http.MethodDelete, "/api/v1/logs/old", "", true)
	assert.Equal(t, http.StatusBadRequest, code, "before is required")

	code, body := s.do(t, http.MethodDelete, "/api/v1/logs/old?before=2000", "", true)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, body["deleted"])

	code, _ = s.do(t, http.MethodDelete, "/api/v1/logs", "", true)
	require.Equal(t, http.StatusOK, code)
	n, err := s.repo.GetCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAdminHandler_UnlockFlow(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, http.MethodPost, "/api/v1/admin/unlock", `{"pin":"1111"}`, false)
	require.Equal(t, http.StatusUnauthorized, code)
	assert.EqualValues(t, 2, body["remainingAttempts"])

	code, body = s.do(t, http.MethodPost, "/api/v1/admin/unlock", `{"pin":"`+testPIN+`"}`, false)
	require.Equal(t, http.StatusOK, code)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	// the issued token opens the protected routes
	req := httptest.NewRequest(http.MethodGet, "/api/v1/logs/count", nil)
	req.Header.Set(mw.AuthorizationHeader, mw.BearerPrefix+token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/unlock", `{"pin":"12ab"}`, false)
	assert.Equal(t, http.StatusBadRequest, code, "non-numeric PIN fails validation")
}

func TestAdminHandler_LocksAfterMaxAttempts(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 2; i++ {
		code, _ := s.do(t, http.MethodPost, "/api/v1/admin/unlock", `{"pin":"0000"}`, false)
		require.Equal(t, http.StatusUnauthorized, code)
	}
	code, body := s.do(t, http.MethodPost, "/api/v1/admin/unlock", `{"pin":"0000"}`, false)
	require.Equal(t, http.StatusLocked, code)
	assert.NotEmpty(t, body["lockedUntil"])

	// even the right PIN is refused while locked
	code, _ = s.do(t, http.MethodPost, "/api/v1/admin/unlock", `{"pin":"`+testPIN+`"}`, false)
	assert.Equal(t, http.StatusLocked, code)

	code, body = s.do(t, http.MethodGet, "/api/v1/admin/status", "", false)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["locked"])
}

type stubDiagnostics struct {
	status repositories.BackendStatus
	count  int64
	ok     bool
}

func (s stubDiagnostics) CurrentBackend() repositories.BackendStatus { return s.status }
func (s stubDiagnostics) CheckHealth(context.Context) (int64, bool)  { return s.count, s.ok }

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name   string
		stub   stubDiagnostics
		code   int
		status string
	}{
		{"healthy", stubDiagnostics{status: repositories.BackendStatus{Backend: "sqlite", State: "ready"}, count: 7, ok: true}, http.StatusOK, "healthy"},
		{"unhealthy", stubDiagnostics{status: repositories.BackendStatus{Backend: "memory", State: "closed"}}, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/health", NewHealthHandler(tc.stub).Health)

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tc.code, resp.StatusCode)

			var body map[string]any
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tc.status, body["status"])
			store := body["store"].(map[string]any)
			assert.EqualValues(t, tc.stub.count, store["records"])
			assert.Equal(t, tc.stub.status.Backend, store["backend"].(map[string]any)["backend"])
		})
	}
}
