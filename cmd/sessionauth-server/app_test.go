package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MForofontov/sessionauth/cookie"
	"github.com/MForofontov/sessionauth/credentials"
	"github.com/MForofontov/sessionauth/internal/config"
	"github.com/MForofontov/sessionauth/password"
	"github.com/MForofontov/sessionauth/revocation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "server-test-secret-server-test-000"

func runApp(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"sessionauth-server"}, args...))
	return out.String(), err
}

func TestHashPasswordCommand(t *testing.T) {
	out, err := runApp(t, "correct-horse-battery\n", "hash-password")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"), hash)

	hasher, err := password.NewArgon2(password.DefaultConfig())
	require.NoError(t, err)
	ok, err := hasher.Verify("correct-horse-battery", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = runApp(t, "", "hash-password")
	assert.Error(t, err)
}

func TestMintCommand(t *testing.T) {
	t.Setenv("SESSIONAUTH_JWT__SECRET", testSecret)
	t.Setenv("SESSIONAUTH_LOG__LEVEL", "error")

	out, err := runApp(t, "", "mint", "--subject", "user-42")
	require.NoError(t, err)

	var got mintOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "user-42", got.Subject)
	assert.NotEmpty(t, got.AccessToken)
	assert.NotEmpty(t, got.RefreshToken)
	assert.NotEqual(t, got.AccessID, got.RefreshID)
	assert.True(t, got.RefreshExpiresAt.After(got.AccessExpiresAt))
}

func TestMintRequiresSecret(t *testing.T) {
	t.Setenv("SESSIONAUTH_LOG__LEVEL", "error")
	_, err := runApp(t, "", "mint", "--subject", "user-42")
	assert.ErrorContains(t, err, "PrivateKey")
}

func TestMigrateRequiresPostgres(t *testing.T) {
	_, err := runApp(t, "", "migrate")
	assert.ErrorContains(t, err, "postgres backend")
}

func TestPruneMemoryBackend(t *testing.T) {
	t.Setenv("SESSIONAUTH_LOG__LEVEL", "error")
	out, err := runApp(t, "", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "pruned 0 entries")
}

func TestRouter(t *testing.T) {
	t.Setenv("SESSIONAUTH_JWT__SECRET", testSecret)
	cfg, err := config.Load()
	require.NoError(t, err)

	hasher, err := password.NewArgon2(password.DefaultConfig())
	require.NoError(t, err)
	hash, err := hasher.Hash("correct-horse-battery")
	require.NoError(t, err)
	cfg.Users = []credentials.User{{Username: "alice", Subject: "user-alice", PasswordHash: hash}}

	store := revocation.NewMemoryStore()
	directory, err := newDirectory(cfg)
	require.NoError(t, err)
	engine, err := newEngine(cfg, store, directory, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	cookies, err := cookie.NewPolicy(cfg.CookiePolicy())
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(cfg, engine, cookies, store, zap.NewNop()))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/auth/login", "application/json",
		strings.NewReader(`{"username":"alice","password":"correct-horse-battery"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, resp.Cookies(), 2)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL+"/metrics", nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	var body bytes.Buffer
	_, _ = body.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, body.String(), "sessionauth_login_success_total 1")
}
