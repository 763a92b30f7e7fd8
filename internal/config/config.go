package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MForofontov/sessionauth"
	"github.com/MForofontov/sessionauth/cookie"
	"github.com/MForofontov/sessionauth/credentials"
	"github.com/MForofontov/sessionauth/internal/database"
	"github.com/MForofontov/sessionauth/internal/logging"
)

// Revocation backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// Config is the server configuration.
type Config struct {
	Env        string             `koanf:"env"`
	Server     ServerConfig       `koanf:"server"`
	JWT        JWTConfig          `koanf:"jwt"`
	Refresh    RefreshConfig      `koanf:"refresh"`
	Cookie     CookieConfig       `koanf:"cookie"`
	Revocation RevocationConfig   `koanf:"revocation"`
	Log        logging.Config     `koanf:"log"`
	Metrics    MetricsConfig      `koanf:"metrics"`
	Audit      AuditConfig        `koanf:"audit"`
	Users      []credentials.User `koanf:"users"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	Production      bool          `koanf:"production"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type JWTConfig struct {
	AccessTTL      time.Duration `koanf:"access_ttl"`
	RefreshTTL     time.Duration `koanf:"refresh_ttl"`
	SigningMethod  string        `koanf:"signing_method"`
	Secret         string        `koanf:"secret"`
	SecretFile     string        `koanf:"secret_file"`
	PrivateKeyFile string        `koanf:"private_key_file"`
	PublicKeyFile  string        `koanf:"public_key_file"`
	Issuer         string        `koanf:"issuer"`
	Audience       string        `koanf:"audience"`
	Leeway         time.Duration `koanf:"leeway"`
	KeyID          string        `koanf:"key_id"`
	TokenIDFormat  string        `koanf:"token_id_format"`
	SnowflakeNode  int64         `koanf:"snowflake_node"`
}

type RefreshConfig struct {
	Rotate                 bool `koanf:"rotate"`
	BlacklistAfterRotation bool `koanf:"blacklist_after_rotation"`
}

type CookieConfig struct {
	SameSite    string `koanf:"same_site"`
	Domain      string `koanf:"domain"`
	Path        string `koanf:"path"`
	AccessName  string `koanf:"access_name"`
	RefreshName string `koanf:"refresh_name"`
}

type RevocationConfig struct {
	Backend       string          `koanf:"backend"`
	PruneInterval time.Duration   `koanf:"prune_interval"`
	Redis         RedisConfig     `koanf:"redis"`
	Postgres      database.Config `koanf:"postgres"`
	Badger        BadgerConfig    `koanf:"badger"`
}

type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Prefix   string `koanf:"prefix"`
}

type BadgerConfig struct {
	Dir        string `koanf:"dir"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Latency bool   `koanf:"latency"`
	Path    string `koanf:"path"`
}

type AuditConfig struct {
	Enabled    bool `koanf:"enabled"`
	BufferSize int  `koanf:"buffer_size"`
}

// IsProduction reports whether cookies must be written for production.
func (c *Config) IsProduction() bool {
	return c.Server.Production || strings.EqualFold(c.Env, "production")
}

// Validate checks server-level settings. Engine-level settings are checked
// by sessionauth.Config.Validate once keys are resolved.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.Addr) == "" {
		return errors.New("server.addr is required")
	}
	switch c.Revocation.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Revocation.Redis.Addr == "" {
			return errors.New("revocation.redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Revocation.Postgres.DSN == "" {
			return errors.New("revocation.postgres.dsn is required for the postgres backend")
		}
	case BackendBadger:
		if !c.Revocation.Badger.InMemory && c.Revocation.Badger.Dir == "" {
			return errors.New("revocation.badger.dir is required for the badger backend")
		}
	default:
		return fmt.Errorf("unknown revocation backend %q", c.Revocation.Backend)
	}
	if c.Revocation.PruneInterval < 0 {
		return errors.New("revocation.prune_interval must be >= 0")
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return errors.New("metrics.path must start with /")
	}
	return nil
}

// Engine resolves keys and returns the library configuration.
func (c *Config) Engine() (sessionauth.Config, error) {
	out := sessionauth.DefaultConfig()
	out.JWT.AccessTTL = c.JWT.AccessTTL
	out.JWT.RefreshTTL = c.JWT.RefreshTTL
	out.JWT.SigningMethod = c.JWT.SigningMethod
	out.JWT.Issuer = c.JWT.Issuer
	out.JWT.Audience = c.JWT.Audience
	out.JWT.Leeway = c.JWT.Leeway
	out.JWT.KeyID = c.JWT.KeyID
	out.JWT.TokenIDFormat = c.JWT.TokenIDFormat
	out.JWT.SnowflakeNode = c.JWT.SnowflakeNode
	out.Refresh.RotateRefreshTokens = c.Refresh.Rotate
	out.Refresh.BlacklistAfterRotation = c.Refresh.BlacklistAfterRotation
	out.Audit.Enabled = c.Audit.Enabled
	if c.Audit.BufferSize > 0 {
		out.Audit.BufferSize = c.Audit.BufferSize
	}
	out.Metrics.Enabled = c.Metrics.Enabled
	out.Metrics.EnableLatencyHistograms = c.Metrics.Enabled && c.Metrics.Latency

	switch {
	case c.JWT.Secret != "":
		out.JWT.PrivateKey = []byte(c.JWT.Secret)
	case c.JWT.SecretFile != "":
		b, err := readKey(c.JWT.SecretFile)
		if err != nil {
			return out, err
		}
		out.JWT.PrivateKey = b
	case c.JWT.PrivateKeyFile != "":
		b, err := readKey(c.JWT.PrivateKeyFile)
		if err != nil {
			return out, err
		}
		out.JWT.PrivateKey = b
	}
	if c.JWT.PublicKeyFile != "" {
		b, err := readKey(c.JWT.PublicKeyFile)
		if err != nil {
			return out, err
		}
		out.JWT.PublicKey = b
	}

	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("jwt config: %w", err)
	}
	return out, nil
}

// CookiePolicy returns the cookie transport settings. Cookie lifetimes follow
// the token lifetimes.
func (c *Config) CookiePolicy() cookie.Config {
	return cookie.Config{
		Production:    c.IsProduction(),
		SameSite:      c.Cookie.SameSite,
		AccessName:    c.Cookie.AccessName,
		RefreshName:   c.Cookie.RefreshName,
		AccessMaxAge:  c.JWT.AccessTTL,
		RefreshMaxAge: c.JWT.RefreshTTL,
		Path:          c.Cookie.Path,
		Domain:        c.Cookie.Domain,
	}
}

func readKey(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key %s: %w", path, err)
	}
	return []byte(strings.TrimSpace(string(b))), nil
}
