package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAccessName  = "accessToken"
	DefaultRefreshName = "refreshToken"
)

// SameSite values accepted in Config.
const (
	SameSiteAuto   = "auto"
	SameSiteLax    = "lax"
	SameSiteStrict = "strict"
	SameSiteNone   = "none"
)

// Config describes how session cookies are written.
type Config struct {
	// Production turns on Secure and, with SameSite auto, selects Strict.
	Production bool
	// SameSite is auto, lax, strict or none. Auto resolves to Strict in
	// production and Lax otherwise. None always implies Secure.
	SameSite      string
	AccessName    string
	RefreshName   string
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	Path          string
	Domain        string
}

// DefaultConfig matches the default token lifetimes: one hour for the access
// cookie and one day for the refresh cookie.
func DefaultConfig() Config {
	return Config{
		SameSite:      SameSiteAuto,
		AccessName:    DefaultAccessName,
		RefreshName:   DefaultRefreshName,
		AccessMaxAge:  time.Hour,
		RefreshMaxAge: 24 * time.Hour,
		Path:          "/",
	}
}

// ConfigFor returns DefaultConfig with cookie max-ages equal to the given
// token lifetimes, so a cookie never outlives or undercuts its token.
func ConfigFor(accessTTL, refreshTTL time.Duration) Config {
	cfg := DefaultConfig()
	cfg.AccessMaxAge = accessTTL
	cfg.RefreshMaxAge = refreshTTL
	return cfg
}

// Policy writes and reads the access/refresh cookie pair. A Policy is
// immutable and safe for concurrent use.
type Policy struct {
	accessName    string
	refreshName   string
	accessMaxAge  int
	refreshMaxAge int
	path          string
	domain        string
	secure        bool
	sameSite      http.SameSite
}

// NewPolicy validates cfg, filling unset fields from DefaultConfig.
func NewPolicy(cfg Config) (*Policy, error) {
	def := DefaultConfig()
	if cfg.AccessName == "" {
		cfg.AccessName = def.AccessName
	}
	if cfg.RefreshName == "" {
		cfg.RefreshName = def.RefreshName
	}
	if cfg.AccessMaxAge == 0 {
		cfg.AccessMaxAge = def.AccessMaxAge
	}
	if cfg.RefreshMaxAge == 0 {
		cfg.RefreshMaxAge = def.RefreshMaxAge
	}
	if cfg.Path == "" {
		cfg.Path = def.Path
	}

	if cfg.AccessName == cfg.RefreshName {
		return nil, errors.New("cookie: access and refresh cookie names must differ")
	}
	if cfg.AccessMaxAge < time.Second || cfg.RefreshMaxAge < time.Second {
		return nil, errors.New("cookie: max ages must be at least one second")
	}

	p := &Policy{
		accessName:    cfg.AccessName,
		refreshName:   cfg.RefreshName,
		accessMaxAge:  int(cfg.AccessMaxAge / time.Second),
		refreshMaxAge: int(cfg.RefreshMaxAge / time.Second),
		path:          cfg.Path,
		domain:        cfg.Domain,
		secure:        cfg.Production,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.SameSite)) {
	case "", SameSiteAuto:
		if cfg.Production {
			p.sameSite = http.SameSiteStrictMode
		} else {
			p.sameSite = http.SameSiteLaxMode
		}
	case SameSiteLax:
		p.sameSite = http.SameSiteLaxMode
	case SameSiteStrict:
		p.sameSite = http.SameSiteStrictMode
	case SameSiteNone:
		p.sameSite = http.SameSiteNoneMode
		p.secure = true
	default:
		return nil, fmt.Errorf("cookie: unsupported SameSite %q", cfg.SameSite)
	}

	return p, nil
}

// Attach sets the access cookie and, when refresh is non-empty, the refresh
// cookie.
func (p *Policy) Attach(w http.ResponseWriter, access, refresh string) {
	if access != "" {
		http.SetCookie(w, p.build(p.accessName, access, p.accessMaxAge))
	}
	if refresh != "" {
		http.SetCookie(w, p.build(p.refreshName, refresh, p.refreshMaxAge))
	}
}

// Clear expires both cookies.
func (p *Policy) Clear(w http.ResponseWriter) {
	http.SetCookie(w, p.build(p.accessName, "", -1))
	http.SetCookie(w, p.build(p.refreshName, "", -1))
}

// RefreshToken returns the refresh cookie value, or "" when absent.
func (p *Policy) RefreshToken(r *http.Request) string {
	return value(r, p.refreshName)
}

// AccessToken returns the access cookie value, or "" when absent.
func (p *Policy) AccessToken(r *http.Request) string {
	return value(r, p.accessName)
}

// AccessName and RefreshName report the configured cookie names.
func (p *Policy) AccessName() string  { return p.accessName }
func (p *Policy) RefreshName() string { return p.refreshName }

func (p *Policy) build(name, val string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    val,
		Path:     p.path,
		Domain:   p.domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: p.sameSite,
	}
}

func value(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
