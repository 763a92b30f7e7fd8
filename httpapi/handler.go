package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/MForofontov/sessionauth"
	"github.com/MForofontov/sessionauth/cookie"
	"github.com/MForofontov/sessionauth/middleware"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 16

// Handler serves the /auth endpoints. Tokens travel only in cookies; JSON
// bodies carry subjects and expiry times.
type Handler struct {
	engine  *sessionauth.Engine
	cookies *cookie.Policy
	logger  *zap.Logger
}

// New returns a Handler serving the auth routes. A nil logger is replaced
// with zap.NewNop.
func New(engine *sessionauth.Engine, cookies *cookie.Policy, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		engine:  engine,
		cookies: cookies,
		logger:  logger.Named("httpapi"),
	}
}

// Register adds the auth routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /auth/login", h.login)
	mux.HandleFunc("POST /auth/refresh", h.refresh)
	mux.HandleFunc("POST /auth/logout", h.logout)
	mux.Handle("GET /auth/session", middleware.Guard(h.engine, h.cookies)(http.HandlerFunc(h.session)))
}

// Routes returns a standalone handler with the auth routes, request context
// propagation and panic recovery.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	h.Register(mux)
	return middleware.Recover(h.logger)(middleware.RequestContext(mux))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Subject          string            `json:"subject"`
	AccessExpiresAt  time.Time         `json:"access_expires_at"`
	RefreshExpiresAt time.Time         `json:"refresh_expires_at"`
	Attributes       map[string]string `json:"attributes,omitempty"`
}

type refreshResponse struct {
	Subject          string     `json:"subject"`
	AccessExpiresAt  time.Time  `json:"access_expires_at"`
	Rotated          bool       `json:"rotated"`
	RefreshExpiresAt *time.Time `json:"refresh_expires_at,omitempty"`
}

type sessionResponse struct {
	Subject   string    `json:"subject"`
	TokenID   string    `json:"token_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.engine.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, sessionauth.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
			return
		}
		writeDetail(w, http.StatusBadRequest, "Unable to issue tokens")
		return
	}

	h.cookies.Attach(w, res.Tokens.Access.Token, res.Tokens.Refresh.Token)
	writeJSON(w, http.StatusOK, loginResponse{
		Subject:          res.Identity.Subject,
		AccessExpiresAt:  res.Tokens.Access.ExpiresAt,
		RefreshExpiresAt: res.Tokens.Refresh.ExpiresAt,
		Attributes:       res.Identity.Attributes,
	})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Refresh(r.Context(), h.cookies.RefreshToken(r))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, refreshDetail(err))
		return
	}

	out := refreshResponse{
		Subject:         res.Subject,
		AccessExpiresAt: res.Access.ExpiresAt,
		Rotated:         res.Rotated,
	}
	next := ""
	if res.Refresh != nil {
		next = res.Refresh.Token
		exp := res.Refresh.ExpiresAt
		out.RefreshExpiresAt = &exp
	}

	h.cookies.Attach(w, res.Access.Token, next)
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	err := h.engine.Revoke(r.Context(), h.cookies.RefreshToken(r))
	h.cookies.Clear(w)

	if err != nil && !errors.Is(err, sessionauth.ErrMissingCredential) &&
		!errors.Is(err, sessionauth.ErrExpiredCredential) &&
		!errors.Is(err, sessionauth.ErrInvalidCredential) {
		writeDetail(w, http.StatusBadRequest, "Unable to revoke token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
		return
	}

	out := sessionResponse{
		Subject: claims.Subject,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	writeJSON(w, http.StatusOK, out)
}

func refreshDetail(err error) string {
	switch {
	case errors.Is(err, sessionauth.ErrMissingCredential):
		return "Refresh token missing"
	case errors.Is(err, sessionauth.ErrExpiredCredential):
		return "Token is expired"
	case errors.Is(err, sessionauth.ErrRevokedCredential):
		return "Token is blacklisted"
	case errors.Is(err, sessionauth.ErrInvalidCredential):
		return "Token is invalid"
	default:
		return "Unable to refresh token"
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
