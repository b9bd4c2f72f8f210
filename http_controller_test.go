package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, env *testEnv, debug bool) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(nil, debug),
	})

	controller := NewAuthController(env.lifecycle, env.auther, env.tokens,
		WithControllerDebug(debug),
	)
	RegisterAuthRoutes(app.Group("/auth"), controller)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any, headers ...string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestHTTP_RegistrationAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	app := newTestApp(t, env, false)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/register", map[string]any{"email": "Alice@Example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "alice@example.com", body["email"])
	assert.NotContains(t, body, "devOtp")

	code := env.notifier.last(t).Code

	resp, body = doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]any{"email": "alice@example.com", "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = doJSON(t, app, http.MethodPost, "/auth/complete-register", map[string]any{
		"email": "alice@example.com", "otp": code, "name": "Alice", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = doJSON(t, app, http.MethodPost, "/auth/login", map[string]any{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	assert.NotEmpty(t, body["expiresAt"])

	resp, body = doJSON(t, app, http.MethodGet, "/auth/session", nil, fiber.HeaderAuthorization, "Bearer "+token)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, "alice@example.com", body["email"])
	assert.Equal(t, "Alice", body["name"])
	assert.Equal(t, "user", body["role"])
}

func TestHTTP_ErrorStatuses(t *testing.T) {
	env := newTestEnv(t)
	app := newTestApp(t, env, false)
	env.registerVerified(t, "a@x.com", "Alice", "secret1")

	resp, body := doJSON(t, app, http.MethodPost, "/auth/register", map[string]any{"email": "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/register", map[string]any{"email": "a@x.com"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "existing account is a conflict")

	resp, body = doJSON(t, app, http.MethodPost, "/auth/verify-otp", map[string]any{"email": "a@x.com", "otp": "000000"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid or expired code", body["error"])

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/resend-otp", map[string]any{"email": "ghost@x.com"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/set-password", map[string]any{"email": "a@x.com", "password": "secret2"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/auth/login", map[string]any{"email": "a@x.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid email or password", body["error"])

	resp, _ = doJSON(t, app, http.MethodGet, "/auth/session", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/auth/session", nil, fiber.HeaderAuthorization, "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTP_MalformedBody(t *testing.T) {
	env := newTestEnv(t)
	app := newTestApp(t, env, false)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTP_CooldownSetsRetryAfter(t *testing.T) {
	env := newTestEnv(t)
	app := newTestApp(t, env, false)

	resp, _ := doJSON(t, app, http.MethodPost, "/auth/register", map[string]any{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/auth/resend-otp", map[string]any{"email": "a@x.com"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Contains(t, body["error"], "60 seconds")
}

func TestHTTP_PasswordResetFlowWithDevOTP(t *testing.T) {
	env := newTestEnv(t, WithDebug(true))
	app := newTestApp(t, env, true)
	env.registerVerified(t, "a@x.com", "Alice", "secret1")

	resp, body := doJSON(t, app, http.MethodPost, "/auth/forgot-password", map[string]any{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	code, _ := body["devOtp"].(string)
	require.Len(t, code, OTPDigits)

	resp, body = doJSON(t, app, http.MethodPost, "/auth/forgot-password", map[string]any{"email": "ghost@x.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, true, body["success"])
	assert.NotContains(t, body, "devOtp")

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/verify-reset-otp", map[string]any{"email": "a@x.com", "otp": code})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodPost, "/auth/reset-password", map[string]any{
		"email": "a@x.com", "otp": code, "newPassword": "fresh-secret",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, _ = doJSON(t, app, http.MethodPost, "/auth/login", map[string]any{"email": "a@x.com", "password": "fresh-secret"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type lookupConfig struct {
	testConfig
	lookup string
	scheme string
}

func (c lookupConfig) GetTokenLookup() string { return c.lookup }
func (c lookupConfig) GetAuthScheme() string  { return c.scheme }

func TestHTTP_SessionHonorsTokenLookup(t *testing.T) {
	tests := []struct {
		name     string
		cfg      lookupConfig
		accepted func(token string) (string, []string)
		rejected func(token string) (string, []string)
	}{
		{
			name: "query parameter",
			cfg:  lookupConfig{lookup: "query:token", scheme: "Bearer"},
			accepted: func(token string) (string, []string) {
				return "/auth/session?token=" + token, nil
			},
			rejected: func(token string) (string, []string) {
				return "/auth/session", []string{fiber.HeaderAuthorization, "Bearer " + token}
			},
		},
		{
			name: "custom scheme",
			cfg:  lookupConfig{lookup: "header:Authorization", scheme: "Token"},
			accepted: func(token string) (string, []string) {
				return "/auth/session", []string{fiber.HeaderAuthorization, "Token " + token}
			},
			rejected: func(token string) (string, []string) {
				return "/auth/session", []string{fiber.HeaderAuthorization, "Bearer " + token}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.registerVerified(t, "dana@example.com", "Dana", "secret1")

			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(nil, false)})
			controller := NewAuthController(env.lifecycle, env.auther, env.tokens,
				WithControllerConfig(tt.cfg),
			)
			RegisterAuthRoutes(app.Group("/auth"), controller)

			token, err := env.auther.Login(context.Background(), "dana@example.com", "secret1")
			require.NoError(t, err)

			path, headers := tt.accepted(token)
			resp, body := doJSON(t, app, http.MethodGet, path, nil, headers...)
			require.Equal(t, http.StatusOK, resp.StatusCode, body)
			assert.Equal(t, "dana@example.com", body["email"])

			path, headers = tt.rejected(token)
			resp, _ = doJSON(t, app, http.MethodGet, path, nil, headers...)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}
