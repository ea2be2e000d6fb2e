package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"talentlink/internal/config"
	"talentlink/internal/logging"
	"talentlink/internal/securestore"
	"talentlink/internal/session"

	"github.com/prometheus/client_golang/prometheus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingMedium rejects every write
type failingMedium struct {
	*securestore.MemoryMedium
}

func (f *failingMedium) Set(ctx context.Context, key, value string) error {
	return errors.New("read-only filesystem")
}

func createTestServer(t *testing.T, medium securestore.Medium) *Server {
	t.Helper()
	return createTestServerWithConfig(t, medium, config.DefaultConfig().API)
}

func createTestServerWithConfig(t *testing.T, medium securestore.Medium, cfg config.APIConfig) *Server {
	t.Helper()

	reg := prometheus.NewRegistry()
	store := securestore.New(medium, nil, securestore.NewMetrics(reg))
	sessions := session.NewManager(store, nil)

	return NewServer(cfg, nil, store, sessions, reg, "test-version")
}

func doRequest(t *testing.T, server *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

func TestNewServer(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	assert.NotNil(t, server.router)
	assert.NotNil(t, server.handlers)
	assert.Equal(t, "127.0.0.1:8181", server.httpServer.Addr)
}

func TestServerRoutes(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		expectedStatus int
	}{
		{"Health check", "GET", "/api/v1/health", nil, http.StatusOK},
		{"Session status", "GET", "/api/v1/session", nil, http.StatusOK},
		{"Sign out", "DELETE", "/api/v1/session", nil, http.StatusOK},
		{"Sign in without body", "POST", "/api/v1/session", "", http.StatusBadRequest},
		{"Validate email", "POST", "/api/v1/validate/email", ValidateRequest{Value: "a@b.com"}, http.StatusOK},
		{"Unknown validation kind", "POST", "/api/v1/validate/zipcode", ValidateRequest{}, http.StatusNotFound},
		{"Metrics", "GET", "/api/v1/metrics", nil, http.StatusOK},
		{"Wrong method", "PUT", "/api/v1/session", nil, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, server, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	w := doRequest(t, server, "GET", "/api/v1/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp HealthCheckResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "memory", resp.Backend)
	assert.False(t, resp.SecretGrade)
	assert.Equal(t, "test-version", resp.Version)
}

func TestSessionLifecycle(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	w := doRequest(t, server, "POST", "/api/v1/session", SessionRequest{
		Email:        " Ada@Example.com ",
		Password:     "anything",
		AccessToken:  "opaque-token",
		RefreshToken: "refresh",
		User:         session.User{ID: "u-1", Name: "Ada"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var status session.Status
	decodeBody(t, w, &status)
	assert.True(t, status.Authenticated)
	assert.True(t, status.HasRefresh)
	require.NotNil(t, status.User)
	assert.Equal(t, "ada@example.com", status.User.Email)
	assert.NotContains(t, w.Body.String(), "opaque-token")

	w = doRequest(t, server, "GET", "/api/v1/session", nil)
	decodeBody(t, w, &status)
	assert.True(t, status.Authenticated)

	w = doRequest(t, server, "DELETE", "/api/v1/session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	status = session.Status{}
	decodeBody(t, w, &status)
	assert.False(t, status.Authenticated)
	assert.Nil(t, status.User)
}

func TestCreateSessionValidation(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	w := doRequest(t, server, "POST", "/api/v1/session", SessionRequest{Email: "not-an-email", AccessToken: "tok"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, string(ErrorCodeValidationFailed), resp.Code)
	assert.Equal(t, "Please enter a valid email address", resp.Details["email"])
	assert.Equal(t, "Password is required", resp.Details["password"])

	w = doRequest(t, server, "POST", "/api/v1/session", SessionRequest{Email: "a@b.com", Password: "pw"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	decodeBody(t, w, &resp)
	assert.Equal(t, string(ErrorCodeMissingField), resp.Code)
}

func TestRejectedLoginIsLogged(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	reg := prometheus.NewRegistry()
	store := securestore.New(securestore.NewMemoryMedium(), logger, securestore.NewMetrics(reg))
	server := NewServer(config.DefaultConfig().API, logger, store, session.NewManager(store, logger), reg, "test-version")

	w := doRequest(t, server, "POST", "/api/v1/session", SessionRequest{Email: "not-an-email", Password: "hunter2", AccessToken: "tok"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var found bool
	for _, entry := range hook.AllEntries() {
		if entry.Data["error_category"] == logging.ErrorCategoryValidation {
			found = true
			assert.Equal(t, []string{"email"}, entry.Data["meta_fields"])
			assert.Equal(t, "POST /api/v1/session", entry.Data["operation"])
		}
		for _, value := range entry.Data {
			assert.NotContains(t, fmt.Sprint(value), "hunter2")
		}
		assert.NotContains(t, entry.Message, "not-an-email")
	}
	assert.True(t, found, "rejected login was not logged")
}

func TestCreateSessionStorageFailure(t *testing.T) {
	server := createTestServer(t, &failingMedium{securestore.NewMemoryMedium()})

	w := doRequest(t, server, "POST", "/api/v1/session", SessionRequest{Email: "a@b.com", Password: "pw", AccessToken: "tok"})
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, string(ErrorCodeStorageError), resp.Code)
	assert.NotContains(t, w.Body.String(), "read-only filesystem")
}

func TestValidateScalars(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	tests := []struct {
		kind    string
		value   string
		valid   bool
		cleaned interface{}
		message string
	}{
		{"email", " A@B.com ", true, "a@b.com", ""},
		{"email", "not-an-email", false, "not-an-email", "Please enter a valid email address"},
		{"password", "short1A", false, nil, "Password must be at least 8 characters long"},
		{"password", "Valid123", true, nil, ""},
		{"url", "javascript:alert(1)", false, nil, "URL must be an absolute http or https address"},
		{"url", "https://example.com/a", true, "https://example.com/a", ""},
		{"url", "https://Example.com", true, "https://example.com/", ""},
		{"phone", "call me", false, nil, "Please enter a valid phone number"},
		{"phone", "x 1", false, "1", "Please enter a valid phone number"},
		{"phone", "+1 555-0100", true, "+1 555-0100", ""},
	}

	for _, tt := range tests {
		t.Run(tt.kind+"/"+tt.value, func(t *testing.T) {
			w := doRequest(t, server, "POST", "/api/v1/validate/"+tt.kind, ValidateRequest{Value: tt.value})
			require.Equal(t, http.StatusOK, w.Code)

			var resp ValidateResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Equal(t, tt.valid, resp.Valid)
			assert.Equal(t, tt.cleaned, resp.Value)
			assert.Equal(t, tt.message, resp.Message)
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	w := doRequest(t, server, "PATCH", "/api/v1/health", nil)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)

	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, string(ErrorCodeMethodNotAllowed), resp.Code)
	assert.Equal(t, "PATCH", resp.Details["method"])
	assert.NotEmpty(t, resp.RequestID)
}

func TestRequestsMustBeJSON(t *testing.T) {
	medium := securestore.NewMemoryMedium()
	server := createTestServer(t, medium)

	for _, contentType := range []string{"text/plain", "application/x-www-form-urlencoded", ""} {
		t.Run(contentType, func(t *testing.T) {
			body := `{"email":"attacker@evil.com","password":"x","accessToken":"ATTACKER"}`
			req := httptest.NewRequest("POST", "/api/v1/session", strings.NewReader(body))
			if contentType != "" {
				req.Header.Set("Content-Type", contentType)
			}
			w := httptest.NewRecorder()
			server.Handler().ServeHTTP(w, req)

			require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
			var resp ErrorResponse
			decodeBody(t, w, &resp)
			assert.Equal(t, string(ErrorCodeUnsupportedMedia), resp.Code)
			assert.Zero(t, medium.Len())
		})
	}

	req := httptest.NewRequest("POST", "/api/v1/validate/email", strings.NewReader(`{"value":"a@b.com"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCrossOriginRequests(t *testing.T) {
	cfg := config.DefaultConfig().API
	cfg.AllowedOrigins = []string{"https://app.talentlink.dev"}
	medium := securestore.NewMemoryMedium()
	server := createTestServerWithConfig(t, medium, cfg)

	signIn := func(origin, token string) *httptest.ResponseRecorder {
		data, err := json.Marshal(SessionRequest{Email: "a@b.com", Password: "pw", AccessToken: token})
		require.NoError(t, err)

		req := httptest.NewRequest("POST", "/api/v1/session", bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Origin", origin)
		w := httptest.NewRecorder()
		server.Handler().ServeHTTP(w, req)
		return w
	}

	w := signIn("https://evil.example", "ATTACKER")
	require.Equal(t, http.StatusForbidden, w.Code)
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, string(ErrorCodeForbiddenOrigin), resp.Code)
	assert.Zero(t, medium.Len())

	w = signIn("https://app.talentlink.dev", "good")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = signIn("http://127.0.0.1:8181", "self")
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// A rebound name pointing at the shell still carries a foreign origin
	data, err := json.Marshal(SessionRequest{Email: "a@b.com", Password: "pw", AccessToken: "rebound"})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "http://rebind.evil.example:8181/api/v1/session", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "http://rebind.evil.example:8181")
	w = httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestValidateForms(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	w := doRequest(t, server, "POST", "/api/v1/validate/signup", map[string]string{
		"name":     "Ada",
		"email":    "ada@example.com",
		"password": "alllowercase1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ValidateResponse
	decodeBody(t, w, &resp)
	assert.False(t, resp.Valid)
	assert.Equal(t, "Password must contain uppercase, lowercase, and number", resp.Errors["password"])
	assert.NotContains(t, w.Body.String(), "alllowercase1")

	w = doRequest(t, server, "POST", "/api/v1/validate/post", map[string]string{
		"body": "<b>Hiring</b> Go engineers",
		"link": "https://example.com/jobs",
	})
	resp = ValidateResponse{}
	decodeBody(t, w, &resp)
	assert.True(t, resp.Valid)
	value, ok := resp.Value.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Hiring Go engineers", value["body"])

	w = doRequest(t, server, "POST", "/api/v1/validate/profile", map[string]string{
		"name":    "Ada",
		"website": "data:text/html,hi",
	})
	resp = ValidateResponse{}
	decodeBody(t, w, &resp)
	assert.False(t, resp.Valid)
	assert.Contains(t, resp.Errors, "website")
}

func TestMetricsEndpoint(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	doRequest(t, server, "GET", "/api/v1/session", nil)

	w := doRequest(t, server, "GET", "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "talentlink_securestore_operations_total")
}

func TestSecurityHeaders(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	w := doRequest(t, server, "GET", "/api/v1/health", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Request-ID"), "req_"))
}

func TestRecoveryMiddleware(t *testing.T) {
	server := createTestServer(t, securestore.NewMemoryMedium())

	handler := server.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/anything", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	decodeBody(t, w, &resp)
	assert.Equal(t, string(ErrorCodeInternalError), resp.Code)
}
