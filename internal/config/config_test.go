package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MForofontov/sessionauth/cookie"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithEnvPrefix("SESSIONAUTH_TEST_DEFAULTS_"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.JWT.AccessTTL)
	assert.Equal(t, 24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, "hs256", cfg.JWT.SigningMethod)
	assert.True(t, cfg.Refresh.Rotate)
	assert.True(t, cfg.Refresh.BlacklistAfterRotation)
	assert.Equal(t, BackendMemory, cfg.Revocation.Backend)
	assert.Equal(t, 10*time.Minute, cfg.Revocation.PruneInterval)
	assert.False(t, cfg.IsProduction())
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "config.yaml", `
env: staging
server:
  addr: ":9000"
jwt:
  access_ttl: 15m
  refresh_ttl: 12h
  issuer: file-issuer
refresh:
  rotate: false
revocation:
  backend: redis
  redis:
    addr: "127.0.0.1:6379"
users:
  - username: alice
    subject: user-alice
    password_hash: "$argon2id$v=19$m=65536,t=3,p=2$c2FsdA$aGFzaA"
    attributes:
      role: admin
`)

	t.Setenv("SESSIONAUTH_JWT__ACCESS_TTL", "5m")
	t.Setenv("SESSIONAUTH_SERVER__PRODUCTION", "true")

	cfg, err := Load(WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.JWT.AccessTTL, "env overrides file")
	assert.Equal(t, 12*time.Hour, cfg.JWT.RefreshTTL, "file overrides defaults")
	assert.Equal(t, "file-issuer", cfg.JWT.Issuer)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.False(t, cfg.Refresh.Rotate)
	assert.True(t, cfg.Refresh.BlacklistAfterRotation, "unset keys keep defaults")
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "127.0.0.1:6379", cfg.Revocation.Redis.Addr)

	require.Len(t, cfg.Users, 1)
	assert.Equal(t, "user-alice", cfg.Users[0].Subject)
	assert.Equal(t, "admin", cfg.Users[0].Attributes["role"])
}

func TestLoadDotenv(t *testing.T) {
	dotenv := writeFile(t, ".env", "SESSIONAUTH_DOTENV_ENV=production\n")
	t.Cleanup(func() { os.Unsetenv("SESSIONAUTH_DOTENV_ENV") })

	cfg, err := Load(
		WithEnvPrefix("SESSIONAUTH_DOTENV_"),
		WithDotenv(dotenv, filepath.Join(t.TempDir(), "missing.env")),
	)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Env)
	assert.True(t, cfg.IsProduction())
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("SESSIONAUTH_INVALID_REVOCATION__BACKEND", "etcd")
	_, err := Load(WithEnvPrefix("SESSIONAUTH_INVALID_"))
	assert.ErrorContains(t, err, "unknown revocation backend")

	t.Setenv("SESSIONAUTH_INVALID_REVOCATION__BACKEND", "postgres")
	_, err = Load(WithEnvPrefix("SESSIONAUTH_INVALID_"))
	assert.ErrorContains(t, err, "dsn is required")

	_, err = Load(WithConfigFile(filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, err)
}

func TestEngineConfig(t *testing.T) {
	cfg, err := Load(WithEnvPrefix("SESSIONAUTH_TEST_ENGINE_"))
	require.NoError(t, err)

	_, err = cfg.Engine()
	assert.ErrorContains(t, err, "PrivateKey", "no secret configured")

	cfg.JWT.SecretFile = writeFile(t, "secret", "  file-secret-file-secret-file-secret  \n")
	engineCfg, err := cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, []byte("file-secret-file-secret-file-secret"), engineCfg.JWT.PrivateKey)
	assert.True(t, engineCfg.Refresh.RotateRefreshTokens)
	assert.True(t, engineCfg.Metrics.EnableLatencyHistograms)

	cfg.JWT.Secret = "inline-secret-inline-secret-inline!"
	engineCfg, err = cfg.Engine()
	require.NoError(t, err)
	assert.Equal(t, []byte(cfg.JWT.Secret), engineCfg.JWT.PrivateKey)

	cfg.JWT.Secret = ""
	cfg.JWT.SecretFile = filepath.Join(t.TempDir(), "missing")
	_, err = cfg.Engine()
	assert.Error(t, err)
}

func TestCookiePolicyFollowsTokenLifetimes(t *testing.T) {
	cfg, err := Load(WithEnvPrefix("SESSIONAUTH_TEST_COOKIE_"))
	require.NoError(t, err)
	cfg.Env = "production"

	cc := cfg.CookiePolicy()
	assert.True(t, cc.Production)
	assert.Equal(t, cfg.JWT.AccessTTL, cc.AccessMaxAge)
	assert.Equal(t, cfg.JWT.RefreshTTL, cc.RefreshMaxAge)

	_, err = cookie.NewPolicy(cc)
	assert.NoError(t, err)
}
