package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MForofontov/sessionauth/jwt"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureMissing
	RefreshFailureMalformed
	RefreshFailureSignature
	RefreshFailureClaims
	RefreshFailureWrongKind
	RefreshFailureExpired
	RefreshFailureRevoked
	RefreshFailureReuseRace
	RefreshFailureStoreCheck
	RefreshFailureIssueAccess
	RefreshFailureIssueRefresh
	RefreshFailureRecord
)

// Token is a freshly minted token and the claims it was signed with.
type Token struct {
	Value  string
	Claims *jwt.Claims
}

// RefreshResult carries either the new tokens or failure metadata.
// Refresh is nil when rotation is disabled.
type RefreshResult struct {
	Failure RefreshFailureKind
	Err     error
	Subject string
	TokenID string
	Access  Token
	Refresh *Token
	Rotated bool
}

type RefreshRevocationStore interface {
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	Claim(ctx context.Context, jti string, expiresAt time.Time) (bool, error)
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	VerifyRefresh          func(string) (*jwt.Claims, error)
	MintAccess             func(string) (string, *jwt.Claims, error)
	MintRefresh            func(string) (string, *jwt.Claims, error)
	Store                  RefreshRevocationStore
	AcceptUntil            func(*jwt.Claims) time.Time
	RotateRefreshTokens    bool
	BlacklistAfterRotation bool
}

// RunRefresh validates an incoming refresh token, mints a new access token and,
// when rotation is enabled, a successor refresh token.
//
// With blacklist-after-rotation the incoming jti is claimed in the store before
// the successor is returned. Losing the claim means a concurrent request already
// rotated this token, so the freshly minted successor is discarded.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) RefreshResult {
	if refreshToken == "" {
		return RefreshResult{Failure: RefreshFailureMissing}
	}

	claims, err := deps.VerifyRefresh(refreshToken)
	if err != nil {
		return RefreshResult{
			Failure: VerifyFailure(err),
			Err:     err,
		}
	}
	subject, jti := claims.Subject, claims.ID

	revoked, err := deps.Store.IsBlacklisted(ctx, jti)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureStoreCheck,
			Err:     err,
			Subject: subject,
			TokenID: jti,
		}
	}
	if revoked {
		return RefreshResult{
			Failure: RefreshFailureRevoked,
			Subject: subject,
			TokenID: jti,
		}
	}

	access, accessClaims, err := deps.MintAccess(subject)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureIssueAccess,
			Err:     err,
			Subject: subject,
			TokenID: jti,
		}
	}
	result := RefreshResult{
		Subject: subject,
		TokenID: jti,
		Access:  Token{Value: access, Claims: accessClaims},
	}
	if !deps.RotateRefreshTokens {
		return result
	}

	next, nextClaims, err := deps.MintRefresh(subject)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureIssueRefresh,
			Err:     err,
			Subject: subject,
			TokenID: jti,
		}
	}

	if deps.BlacklistAfterRotation {
		won, err := deps.Store.Claim(ctx, jti, retainUntil(claims, deps.AcceptUntil))
		if err != nil {
			return RefreshResult{
				Failure: RefreshFailureRecord,
				Err:     err,
				Subject: subject,
				TokenID: jti,
			}
		}
		if !won {
			return RefreshResult{
				Failure: RefreshFailureReuseRace,
				Subject: subject,
				TokenID: jti,
			}
		}
	}

	result.Refresh = &Token{Value: next, Claims: nextClaims}
	result.Rotated = true
	return result
}

// retainUntil is how long a revocation entry for claims must survive. It
// falls back to the raw expiry when no acceptance horizon is wired.
func retainUntil(claims *jwt.Claims, acceptUntil func(*jwt.Claims) time.Time) time.Time {
	if acceptUntil != nil {
		return acceptUntil(claims)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// VerifyFailure maps a codec verification error onto a failure kind.
func VerifyFailure(err error) RefreshFailureKind {
	switch {
	case errors.Is(err, jwt.ErrExpired):
		return RefreshFailureExpired
	case errors.Is(err, jwt.ErrMalformed):
		return RefreshFailureMalformed
	case errors.Is(err, jwt.ErrInvalidSignature):
		return RefreshFailureSignature
	case errors.Is(err, jwt.ErrWrongKind):
		return RefreshFailureWrongKind
	default:
		return RefreshFailureClaims
	}
}
