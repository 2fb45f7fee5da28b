package auth

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"parley/pkg/config"
)

type fakeUsers map[string]string

func (f fakeUsers) ResolveExternal(ext string) (string, error) {
	return f[ext], nil
}

func testConfig() SecConfig {
	config.SetRuntime(&config.RuntimeConfig{
		BackendKeys: map[string]struct{}{"sk_backend": {}},
		SigningKeys: map[string]struct{}{"sk_backend": {}},
	})
	return SecConfig{
		RPS:          100,
		Burst:        100,
		BackendKeys:  map[string]struct{}{"sk_backend": {}},
		FrontendKeys: map[string]struct{}{"pk_frontend": {}},
		AdminKeys:    map[string]struct{}{"ak_admin": {}},
		JWTSecret:    "jwt-secret",
		JWTIssuer:    "auth.example",
		Users:        fakeUsers{"ext_alice": "u-alice"},
	}
}

type result struct {
	status int
	caller string
	called bool
}

func run(t *testing.T, cfg SecConfig, method, path string, headers map[string]string) result {
	t.Helper()
	mw, stop := AuthenticateRequestMiddleware(cfg)
	defer stop()

	var res result
	h := mw(func(ctx *fasthttp.RequestCtx) {
		res.called = true
		res.caller = Caller(ctx)
	})
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(path)
	for k, v := range headers {
		ctx.Request.Header.Set(k, v)
	}
	h(&ctx)
	res.status = ctx.Response.StatusCode()
	return res
}

func userToken(t *testing.T, secret, sub, iss string) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": sub,
		"iss": iss,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	s, err := tok.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestRolesAndRouteRestrictions(t *testing.T) {
	cfg := testConfig()

	res := run(t, cfg, "GET", "/v1/conversations", nil)
	assert.Equal(t, fasthttp.StatusUnauthorized, res.status)
	assert.False(t, res.called)

	res = run(t, cfg, "GET", "/healthz", nil)
	assert.True(t, res.called)

	res = run(t, cfg, "GET", "/v1/conversations", map[string]string{"X-API-Key": "pk_frontend"})
	assert.True(t, res.called)
	assert.Empty(t, res.caller)

	res = run(t, cfg, "POST", "/v1/sign", map[string]string{"X-API-Key": "pk_frontend"})
	assert.Equal(t, fasthttp.StatusForbidden, res.status)

	res = run(t, cfg, "POST", "/v1/users/sync", map[string]string{"X-API-Key": "pk_frontend"})
	assert.Equal(t, fasthttp.StatusForbidden, res.status)

	res = run(t, cfg, "GET", "/admin/stats", map[string]string{"Authorization": "Bearer sk_backend"})
	assert.Equal(t, fasthttp.StatusForbidden, res.status)

	res = run(t, cfg, "GET", "/v1/unreads", map[string]string{"X-API-Key": "ak_admin"})
	assert.Equal(t, fasthttp.StatusForbidden, res.status)

	res = run(t, cfg, "GET", "/admin/stats", map[string]string{"X-API-Key": "ak_admin"})
	assert.True(t, res.called)
}

func TestSignedIdentity(t *testing.T) {
	cfg := testConfig()
	sig := CreateHMACSignature("ext_alice", "sk_backend")

	res := run(t, cfg, "GET", "/v1/unreads", map[string]string{
		"X-API-Key":        "pk_frontend",
		"X-User-ID":        "ext_alice",
		"X-User-Signature": sig,
	})
	require.True(t, res.called)
	assert.Equal(t, "u-alice", res.caller)

	res = run(t, cfg, "GET", "/v1/unreads", map[string]string{
		"X-API-Key":        "pk_frontend",
		"X-User-ID":        "ext_bob",
		"X-User-Signature": sig,
	})
	assert.Equal(t, fasthttp.StatusUnauthorized, res.status)

	// frontend cannot assert an identity without a signature
	res = run(t, cfg, "GET", "/v1/unreads", map[string]string{
		"X-API-Key": "pk_frontend",
		"X-User-ID": "ext_alice",
	})
	require.True(t, res.called)
	assert.Empty(t, res.caller)

	// backend can
	res = run(t, cfg, "GET", "/v1/unreads", map[string]string{
		"Authorization": "Bearer sk_backend",
		"X-User-ID":     "ext_alice",
	})
	require.True(t, res.called)
	assert.Equal(t, "u-alice", res.caller)
}

func TestTokenIdentity(t *testing.T) {
	cfg := testConfig()

	res := run(t, cfg, "GET", "/v1/conversations", map[string]string{
		"X-API-Key":     "pk_frontend",
		"Authorization": "Bearer " + userToken(t, "jwt-secret", "ext_alice", "auth.example"),
	})
	require.True(t, res.called)
	assert.Equal(t, "u-alice", res.caller)

	// synced nowhere: proceeds without a caller
	res = run(t, cfg, "GET", "/v1/conversations", map[string]string{
		"X-API-Key":     "pk_frontend",
		"Authorization": "Bearer " + userToken(t, "jwt-secret", "ext_nobody", "auth.example"),
	})
	require.True(t, res.called)
	assert.Empty(t, res.caller)

	res = run(t, cfg, "GET", "/v1/conversations", map[string]string{
		"X-API-Key":     "pk_frontend",
		"Authorization": "Bearer " + userToken(t, "wrong", "ext_alice", "auth.example"),
	})
	assert.Equal(t, fasthttp.StatusUnauthorized, res.status)

	res = run(t, cfg, "GET", "/v1/conversations", map[string]string{
		"X-API-Key":     "pk_frontend",
		"Authorization": "Bearer " + userToken(t, "jwt-secret", "ext_alice", "someone.else"),
	})
	assert.Equal(t, fasthttp.StatusUnauthorized, res.status)
}

func TestRateLimitPerKey(t *testing.T) {
	cfg := testConfig()
	cfg.RPS = 0.001
	cfg.Burst = 1
	mw, stop := AuthenticateRequestMiddleware(cfg)
	defer stop()
	h := mw(func(ctx *fasthttp.RequestCtx) {})

	status := func() int {
		var ctx fasthttp.RequestCtx
		ctx.Request.Header.SetMethod("GET")
		ctx.Request.SetRequestURI("/v1/unreads")
		ctx.Request.Header.Set("X-API-Key", "pk_frontend")
		h(&ctx)
		return ctx.Response.StatusCode()
	}
	assert.Equal(t, fasthttp.StatusOK, status())
	assert.Equal(t, fasthttp.StatusTooManyRequests, status())
}
