package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MForofontov/sessionauth"
	"github.com/MForofontov/sessionauth/cookie"
	"github.com/MForofontov/sessionauth/jwt"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the access-token claims stored by Guard.
func ClaimsFromContext(ctx context.Context) (*jwt.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*jwt.Claims)
	return claims, ok
}

// Guard rejects requests without a valid access token. The token is read
// from the access cookie first and the Authorization bearer header second.
// A nil policy disables the cookie lookup.
func Guard(engine *sessionauth.Engine, policy *cookie.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnauthorized(w, "Authentication credentials were not provided.")
				return
			}

			token := ""
			if policy != nil {
				token = policy.AccessToken(r)
			}
			if token == "" {
				token, _ = bearerToken(r.Header.Get("Authorization"))
			}
			if token == "" {
				writeUnauthorized(w, "Authentication credentials were not provided.")
				return
			}

			claims, err := engine.Authenticate(r.Context(), token)
			if err != nil {
				if errors.Is(err, sessionauth.ErrExpiredCredential) {
					writeUnauthorized(w, "Token is expired")
					return
				}
				writeUnauthorized(w, "Token is invalid")
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func writeUnauthorized(w http.ResponseWriter, detail string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": detail})
}
