package http

import (
	"bytes"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/whiteboard-server/internal/config"
)

func doJSON(t *testing.T, env *testEnv, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func registerUser(t *testing.T, env *testEnv, name, email string) string {
	t.Helper()

	rec := doJSON(t, env, stdhttp.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "secret123",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code, rec.Body.String())
	return decode[AuthResponse](t, rec).Token
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := doJSON(t, env, stdhttp.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name: "Alice", Email: "Alice@Example.com", Password: "secret123",
	})
	require.Equal(t, stdhttp.StatusCreated, rec.Code)
	resp := decode[AuthResponse](t, rec)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "alice@example.com", resp.User.Email)
	require.Contains(t, rec.Header().Get("Set-Cookie"), tokenCookieName+"=")
	require.Contains(t, rec.Header().Get("Set-Cookie"), "HttpOnly")

	rec = doJSON(t, env, stdhttp.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name: "Other", Email: "alice@example.com", Password: "secret123",
	})
	require.Equal(t, stdhttp.StatusConflict, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPost, "/api/auth/register", "", RegisterRequest{
		Name: "Bob", Email: "bob@example.com", Password: "123",
	})
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPost, "/api/auth/login", "", LoginRequest{Email: "alice@example.com", Password: "wrong-pass"})
	require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPost, "/api/auth/login", "", LoginRequest{Email: "alice@example.com", Password: "secret123"})
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	login := decode[AuthResponse](t, rec)
	require.NotNil(t, login.User.LastLogin)

	rec = doJSON(t, env, stdhttp.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestAuthMiddleware(t *testing.T) {
	env := newTestEnv(t, nil)
	token := registerUser(t, env, "Alice", "alice@example.com")

	rec := doJSON(t, env, stdhttp.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodGet, "/api/auth/me", "not-a-token", nil)
	require.Equal(t, stdhttp.StatusForbidden, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	// Cookie carries the token as well.
	req := httptest.NewRequest(stdhttp.MethodGet, "/api/auth/me", nil)
	req.AddCookie(&stdhttp.Cookie{Name: tokenCookieName, Value: token})
	cookieRec := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(cookieRec, req)
	require.Equal(t, stdhttp.StatusOK, cookieRec.Code)
}

func TestUserEndpoints(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := registerUser(t, env, "Alice", "alice@example.com")
	registerUser(t, env, "Bob", "bob@example.com")

	rec := doJSON(t, env, stdhttp.MethodGet, "/api/users/profile", alice, nil)
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPut, "/api/users/profile", alice, UpdateProfileRequest{Email: "bob@example.com"})
	require.Equal(t, stdhttp.StatusConflict, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPut, "/api/users/profile", alice, UpdateProfileRequest{Name: "Alice B"})
	require.Equal(t, stdhttp.StatusOK, rec.Code)
	updated := decode[struct {
		User UserResponse `json:"user"`
	}](t, rec)
	require.Equal(t, "Alice B", updated.User.Name)
	require.Equal(t, "alice@example.com", updated.User.Email)

	rec = doJSON(t, env, stdhttp.MethodPut, "/api/users/password", alice, ChangePasswordRequest{
		CurrentPassword: "wrong-pass", NewPassword: "another123",
	})
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPut, "/api/users/password", alice, ChangePasswordRequest{
		CurrentPassword: "secret123", NewPassword: "another123",
	})
	require.Equal(t, stdhttp.StatusOK, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPut, "/api/users/subscription", alice, SubscriptionRequest{Subscription: "platinum"})
	require.Equal(t, stdhttp.StatusBadRequest, rec.Code)

	rec = doJSON(t, env, stdhttp.MethodPut, "/api/users/subscription", alice, SubscriptionRequest{Subscription: "pro"})
	require.Equal(t, stdhttp.StatusOK, rec.Code)
}

func TestRateLimitEndpoint(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.APIRateLimit = 2
	})

	for i := 0; i < 2; i++ {
		rec := doJSON(t, env, stdhttp.MethodGet, "/api/auth/me", "", nil)
		require.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
		require.Equal(t, "2", rec.Header().Get("RateLimit-Limit"))
	}

	rec := doJSON(t, env, stdhttp.MethodGet, "/api/auth/me", "", nil)
	require.Equal(t, stdhttp.StatusTooManyRequests, rec.Code)
	require.Equal(t, "0", rec.Header().Get("RateLimit-Remaining"))

	// Routes outside /api are not limited.
	health := httptest.NewRecorder()
	env.server.Handler.ServeHTTP(health, httptest.NewRequest(stdhttp.MethodGet, "/health", nil))
	require.Equal(t, stdhttp.StatusOK, health.Code)
}
