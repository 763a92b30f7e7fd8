package flows

import (
	"context"
	"time"

	"github.com/MForofontov/sessionauth/jwt"
)

type LogoutRevocationStore interface {
	Blacklist(ctx context.Context, jti string, expiresAt time.Time) error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	VerifyRefresh func(string) (*jwt.Claims, error)
	Store         LogoutRevocationStore
	AcceptUntil   func(*jwt.Claims) time.Time
}

// LogoutResult reports which refresh token was revoked. Failure reuses the
// refresh classification; RefreshFailureRecord means the store write failed.
type LogoutResult struct {
	Failure RefreshFailureKind
	Err     error
	Subject string
	TokenID string
}

// RunLogout blacklists the jti of a still-valid refresh token. Blacklisting an
// already revoked token is a no-op success.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) LogoutResult {
	if refreshToken == "" {
		return LogoutResult{Failure: RefreshFailureMissing}
	}

	claims, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return LogoutResult{Failure: VerifyFailure(err), Err: err}
	}

	if err := deps.Store.Blacklist(ctx, claims.ID, retainUntil(claims, deps.AcceptUntil)); err != nil {
		return LogoutResult{
			Failure: RefreshFailureRecord,
			Err:     err,
			Subject: claims.Subject,
			TokenID: claims.ID,
		}
	}

	return LogoutResult{Subject: claims.Subject, TokenID: claims.ID}
}
