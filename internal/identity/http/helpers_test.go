package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aussiebroadwan/bookly/internal/identity/cache/drivers/memory"
	identityhttp "github.com/aussiebroadwan/bookly/internal/identity/http"
	"github.com/aussiebroadwan/bookly/internal/identity/service"
	"github.com/aussiebroadwan/bookly/internal/identity/store/drivers/sqlite"
	"github.com/aussiebroadwan/bookly/pkg/authsdk"
	"github.com/aussiebroadwan/bookly/pkg/cryptox"
	"github.com/aussiebroadwan/bookly/pkg/httpx"
	"github.com/aussiebroadwan/bookly/pkg/idx"
	"github.com/aussiebroadwan/bookly/pkg/jwtx"
	"github.com/aussiebroadwan/bookly/pkg/slogx"
)

var generous = httpx.RateLimitConfig{RequestsPerWindow: 10000, Window: time.Minute, Burst: 10000}

type harness struct {
	t       *testing.T
	handler http.Handler
	svc     *service.IdentityService
}

func newHarness(t *testing.T, tweak ...func(*identityhttp.RouterConfig)) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	tokens, err := jwtx.NewCodec(jwtx.CodecConfig{
		Secret:    "http-test-secret",
		Algorithm: jwtx.AlgorithmHS256,
		Issuer:    "bookly",
	})
	require.NoError(t, err)

	hasher, err := cryptox.NewHasher(cryptox.HasherConfig{
		Memory:      1024,
		Iterations:  1,
		Parallelism: 1,
		BcryptCost:  bcrypt.MinCost,
	})
	require.NoError(t, err)

	c := memory.New()
	svc := &service.IdentityService{
		Store:                          st,
		Cache:                          c,
		Tokens:                         tokens,
		Hasher:                         hasher,
		IDs:                            idx.NewGenerator(),
		RevokeSessionsOnPasswordChange: true,
	}

	cfg := identityhttp.RouterConfig{
		Service:      svc,
		Store:        st,
		Cache:        c,
		BuildVersion: "test",
		Logger:       slogx.Discard(),
		RateLimits: identityhttp.RateLimits{
			Auth:   generous,
			User:   generous,
			Public: generous,
		},
	}
	for _, fn := range tweak {
		fn(&cfg)
	}

	return &harness{t: t, handler: identityhttp.NewRouter(cfg), svc: svc}
}

// do sends body as JSON (when non-nil) with an optional bearer token.
func (h *harness) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) authsdk.Envelope {
	t.Helper()
	var env authsdk.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

// data decodes the envelope's data member into a T.
func data[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := envelope(t, rec)
	require.True(t, env.Success, "message: %s", env.Message)
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func requireFailure(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) authsdk.Envelope {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	env := envelope(t, rec)
	require.False(t, env.Success)
	if message != "" {
		require.Equal(t, message, env.Message)
	}
	return env
}

func (h *harness) signUp(name, email, password string) authsdk.Profile {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/auth/sign-up", authsdk.SignUpRequest{
		Name: name, Email: email, Password: password,
	}, "")
	require.Equal(h.t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	return data[authsdk.Profile](h.t, rec)
}

func (h *harness) signIn(req authsdk.SignInRequest) authsdk.SessionResponse {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/auth/sign-in", req, "")
	require.Equal(h.t, http.StatusOK, rec.Code, "body: %s", rec.Body.String())
	return data[authsdk.SessionResponse](h.t, rec)
}

type pingerFunc func(context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }
