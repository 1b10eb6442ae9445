package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"users-admin/internal/config"
	"users-admin/internal/store"
	"users-admin/pkg/logging"
)

// testConfig 测试用配置，限流放宽避免干扰其他用例
func testConfig() *config.Config {
	return &config.Config{
		Env:       config.EnvTest,
		Server:    config.ServerConfig{Host: "127.0.0.1", Port: "0", MaxBodyBytes: 64 * 1024},
		CORS:      config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit: config.RateLimitConfig{Window: time.Minute, MaxRequests: 100000},
		Client:    config.ClientConfig{CacheTTL: 30 * time.Second},
		Log:       config.LogConfig{Level: "error"},
	}
}

func newTestHandler(cfg *config.Config) *Handler {
	logger := logging.New(logging.Config{Level: "error", Output: "stderr", Component: "test"})
	return NewHandler(store.New(), cfg, logger)
}

// do 向路由发起请求并解析 JSON 信封
func do(t *testing.T, router http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	var env map[string]any
	if rr.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "body: %s", rr.Body.String())
	}
	return rr, env
}

func TestHealth(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	for _, path := range []string{"/health", "/api/v1/health"} {
		rr, env := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, true, env["success"])
		assert.Equal(t, "healthy", env["status"])
		assert.Equal(t, Version, env["version"])
		assert.NotEmpty(t, env["timestamp"])
	}
}

func TestCreateUser(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	rr, env := do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Ann Lee", "email": "ann@example.com"})

	require.Equal(t, http.StatusCreated, rr.Code, "body: %v", env)
	assert.Equal(t, true, env["success"])
	data := env["data"].(map[string]any)
	assert.Equal(t, float64(1), data["id"])
	assert.Equal(t, "user", data["role"], "role defaults to user")
	assert.NotEmpty(t, data["created_at"])
	_, hasUpdated := data["updated_at"]
	assert.False(t, hasUpdated, "updated_at absent until first update")
}

func TestCreateUserValidation(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	tests := []struct {
		name        string
		body        map[string]string
		wantField   string
		wantMessage string
	}{
		{"missing name", map[string]string{"email": "ann@example.com"}, "name", "name is required"},
		{"empty name", map[string]string{"name": "", "email": "ann@example.com"}, "name", "name is required"},
		{"short name", map[string]string{"name": "A", "email": "ann@example.com"}, "name", "name must be between 2 and 50 characters"},
		{"long name", map[string]string{"name": strings.Repeat("a", 51), "email": "ann@example.com"}, "name", ""},
		{"missing email", map[string]string{"name": "Ann Lee"}, "email", "email is required"},
		{"bad email", map[string]string{"name": "Ann Lee", "email": "nope"}, "email", "email must be a valid address"},
		{"bad role", map[string]string{"name": "Ann Lee", "email": "ann@example.com", "role": "root"}, "role", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, env := do(t, router, http.MethodPost, "/api/v1/users", tt.body)
			require.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, false, env["success"])
			details := env["details"].([]any)
			require.Len(t, details, 1, "first violation wins")
			assert.Equal(t, tt.wantField, details[0].(map[string]any)["field"])
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, details[0].(map[string]any)["message"])
			}
		})
	}
}

func TestNameBoundariesAccepted(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	for i, length := range []int{2, 50} {
		rr, env := do(t, router, http.MethodPost, "/api/v1/users", map[string]string{
			"name":  strings.Repeat("a", length),
			"email": fmt.Sprintf("user%d@example.com", i),
		})
		assert.Equal(t, http.StatusCreated, rr.Code, "name of %d chars: %v", length, env)
	}
}

func TestDuplicateEmail(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	rr, _ := do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Ann Lee", "email": "ann@example.com"})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr, env := do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Other", "email": "ann@example.com"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Email already exists", env["error"])

	// 冲突不产生新记录
	_, list := do(t, router, http.MethodGet, "/api/v1/users", nil)
	assert.Equal(t, float64(1), list["total"])
}

func TestGetUser(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	_, created := do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Ann Lee", "email": "ann@example.com"})
	id := created["data"].(map[string]any)["id"].(float64)

	rr, env := do(t, router, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", int(id)), nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, created["data"], env["data"], "round-trip equality")

	rr, _ = do(t, router, http.MethodGet, "/api/v1/users/999", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMalformedID(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rr, env := do(t, router, method, "/api/v1/users/abc", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "%s: must be 400, never 404 or 500", method)
		assert.Equal(t, "Invalid user id", env["error"])
	}

	rr, _ := do(t, router, http.MethodPut, "/api/v1/users/abc", map[string]string{"name": "Ann Lee"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListUsersFilterAndLimit(t *testing.T) {
	h := newTestHandler(testConfig())
	router := h.Router()

	for i := 0; i < 5; i++ {
		role := "user"
		if i%2 == 0 {
			role = "admin"
		}
		rr, _ := do(t, router, http.MethodPost, "/api/v1/users", map[string]string{
			"name":  fmt.Sprintf("User %d", i),
			"email": fmt.Sprintf("u%d@example.com", i),
			"role":  role,
		})
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr, env := do(t, router, http.MethodGet, "/api/v1/users?role=admin", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, float64(3), env["total"])
	for _, item := range env["data"].([]any) {
		assert.Equal(t, "admin", item.(map[string]any)["role"])
	}

	_, env = do(t, router, http.MethodGet, "/api/v1/users?limit=2", nil)
	assert.Equal(t, float64(5), env["total"])
	assert.Equal(t, float64(2), env["returned"])
	assert.Len(t, env["data"].([]any), 2)

	rr, _ = do(t, router, http.MethodGet, "/api/v1/users?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = do(t, router, http.MethodGet, "/api/v1/users?role=root", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateUser(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	_, created := do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Ann Lee", "email": "ann@example.com"})
	id := int(created["data"].(map[string]any)["id"].(float64))

	rr, env := do(t, router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", id),
		map[string]string{"name": "Ann B. Lee"})
	require.Equal(t, http.StatusOK, rr.Code)
	data := env["data"].(map[string]any)
	assert.Equal(t, "Ann B. Lee", data["name"])
	assert.Equal(t, "ann@example.com", data["email"], "unsent fields untouched")
	assert.NotEmpty(t, data["updated_at"])

	rr, env = do(t, router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", id),
		map[string]string{"name": "A"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "name", env["details"].([]any)[0].(map[string]any)["field"])

	rr, _ = do(t, router, http.MethodPut, "/api/v1/users/999",
		map[string]string{"name": "Ann Lee"})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateEmptyPatchIsNoOp(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	_, created := do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Ann Lee", "email": "ann@example.com"})
	id := int(created["data"].(map[string]any)["id"].(float64))

	rr, env := do(t, router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", id),
		map[string]string{})
	require.Equal(t, http.StatusOK, rr.Code)
	data := env["data"].(map[string]any)
	assert.Equal(t, "Ann Lee", data["name"])
	_, hasUpdated := data["updated_at"]
	assert.False(t, hasUpdated, "empty patch does not refresh updated_at")

	// 对不存在的用户仍然 404
	rr, _ = do(t, router, http.MethodPut, "/api/v1/users/999", map[string]string{})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateEmailConflict(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	do(t, router, http.MethodPost, "/api/v1/users", map[string]string{"name": "Ann Lee", "email": "ann@example.com"})
	_, created := do(t, router, http.MethodPost, "/api/v1/users", map[string]string{"name": "Bob Ray", "email": "bob@example.com"})
	id := int(created["data"].(map[string]any)["id"].(float64))

	rr, env := do(t, router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", id),
		map[string]string{"email": "ann@example.com"})
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Email already exists", env["error"])
}

func TestDeleteUser(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	_, created := do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Ann Lee", "email": "ann@example.com"})
	id := int(created["data"].(map[string]any)["id"].(float64))
	path := fmt.Sprintf("/api/v1/users/%d", id)

	rr, env := do(t, router, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Ann Lee", env["data"].(map[string]any)["name"], "returns the removed record")

	// 删除不是幂等操作
	rr, _ = do(t, router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = do(t, router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

// TestLifecycleScenario 建-重建-改-删的完整脚本
func TestLifecycleScenario(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	rr, env := do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Ann Lee", "email": "ann@example.com"})
	require.Equal(t, http.StatusCreated, rr.Code)
	data := env["data"].(map[string]any)
	assert.Equal(t, "user", data["role"])
	id := int(data["id"].(float64))
	require.Greater(t, id, 0)

	rr, env = do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Other", "email": "ann@example.com"})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "Email already exists", env["error"])

	rr, env = do(t, router, http.MethodPut, fmt.Sprintf("/api/v1/users/%d", id),
		map[string]string{"name": "A"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "name", env["details"].([]any)[0].(map[string]any)["field"])

	rr, _ = do(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", id), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr, _ = do(t, router, http.MethodGet, fmt.Sprintf("/api/v1/users/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIDMonotonicAcrossDeletes(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	var lastID float64
	for i := 0; i < 3; i++ {
		_, env := do(t, router, http.MethodPost, "/api/v1/users", map[string]string{
			"name":  "Ann Lee",
			"email": fmt.Sprintf("ann%d@example.com", i),
		})
		id := env["data"].(map[string]any)["id"].(float64)
		assert.Greater(t, id, lastID)
		lastID = id

		rr, _ := do(t, router, http.MethodDelete, fmt.Sprintf("/api/v1/users/%d", int(id)), nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestNotFoundEnvelope(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	rr, env := do(t, router, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, false, env["success"])
	assert.Equal(t, "Endpoint not found", env["error"])
	assert.Equal(t, "/api/v1/nope", env["path"])
}

func TestInvalidRequestBody(t *testing.T) {
	router := newTestHandler(testConfig()).Router()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "Invalid request body")
}

func TestBodySizeLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxBodyBytes = 16
	router := newTestHandler(cfg).Router()

	rr, env := do(t, router, http.MethodPost, "/api/v1/users",
		map[string]string{"name": "Ann Lee", "email": "ann@example.com"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, false, env["success"])
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.MaxRequests = 3
	router := newTestHandler(cfg).Router()

	for i := 0; i < 3; i++ {
		rr, _ := do(t, router, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr, env := do(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "Too many requests", env["error"])
}
