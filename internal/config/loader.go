package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the prefix of environment overrides. Nested keys are
// separated by a double underscore: SESSIONAUTH_JWT__ACCESS_TTL=30m.
const DefaultEnvPrefix = "SESSIONAUTH_"

// Loader merges defaults, an optional YAML file and the environment, in that
// order of increasing priority.
type Loader struct {
	k          *koanf.Koanf
	envPrefix  string
	filePath   string
	dotenvPath []string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix overrides DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithConfigFile sets the YAML file to load. Empty skips the file layer.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.filePath = path }
}

// WithDotenv loads the given .env files into the process environment before
// environment overrides are read. Missing files are skipped.
func WithDotenv(paths ...string) Option {
	return func(l *Loader) { l.dotenvPath = append(l.dotenvPath, paths...) }
}

// NewLoader returns a Loader with opts applied.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the merged, validated configuration.
func (l *Loader) Load() (*Config, error) {
	if err := l.k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if l.filePath != "" {
		if err := l.k.Load(file.Provider(l.filePath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load file %s: %w", l.filePath, err)
		}
	}

	for _, p := range l.dotenvPath {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load dotenv %s: %w", p, err)
		}
	}

	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load is shorthand for NewLoader(opts...).Load().
func Load(opts ...Option) (*Config, error) {
	return NewLoader(opts...).Load()
}

func defaults() map[string]any {
	return map[string]any{
		"env":                              "development",
		"server.addr":                      ":8080",
		"server.production":                false,
		"server.read_timeout":              "10s",
		"server.write_timeout":             "10s",
		"server.shutdown_timeout":          "15s",
		"jwt.access_ttl":                   "1h",
		"jwt.refresh_ttl":                  "24h",
		"jwt.signing_method":               "hs256",
		"jwt.token_id_format":              "uuid",
		"refresh.rotate":                   true,
		"refresh.blacklist_after_rotation": true,
		"cookie.same_site":                 "auto",
		"cookie.path":                      "/",
		"revocation.backend":               BackendMemory,
		"revocation.prune_interval":        "10m",
		"revocation.redis.prefix":          "sessionauth",
		"revocation.postgres.driver":       "pgx",
		"log.level":                        "info",
		"metrics.enabled":                  true,
		"metrics.latency":                  true,
		"metrics.path":                     "/metrics",
		"audit.enabled":                    true,
		"audit.buffer_size":                1024,
	}
}

// mapProvider feeds a flat map of dotted keys to koanf.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("config: map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any)
	for k, v := range m {
		setPath(out, strings.Split(k, "."), v)
	}
	return out, nil
}

func setPath(dst map[string]any, path []string, v any) {
	for _, p := range path[:len(path)-1] {
		next, ok := dst[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			dst[p] = next
		}
		dst = next
	}
	dst[path[len(path)-1]] = v
}
