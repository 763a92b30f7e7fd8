package sessionauth

import (
	"context"
	"time"

	"github.com/MForofontov/sessionauth/internal/flows"
)

// IssuedToken is an encoded token together with the claims it was signed
// with, so callers never need to re-parse what they were just handed.
type IssuedToken struct {
	Token     string
	ID        string
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenPair is the result of issuing a session.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// Identity is the principal a CredentialVerifier resolved.
type Identity struct {
	Subject    string
	Attributes map[string]string
}

// CredentialVerifier checks a username and password. Implementations return an
// error matching ErrInvalidCredentials for an unknown user or wrong password.
// Any other error is treated as a backend failure.
type CredentialVerifier interface {
	VerifyCredentials(ctx context.Context, username, password string) (Identity, error)
}

// CredentialVerifierFunc adapts a function to CredentialVerifier.
type CredentialVerifierFunc func(ctx context.Context, username, password string) (Identity, error)

// VerifyCredentials calls f.
func (f CredentialVerifierFunc) VerifyCredentials(ctx context.Context, username, password string) (Identity, error) {
	return f(ctx, username, password)
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	Identity Identity
	Tokens   TokenPair
}

// RefreshResult is returned by Engine.Refresh. Refresh is nil and Rotated is
// false when rotation is disabled.
type RefreshResult struct {
	Subject string
	Access  IssuedToken
	Refresh *IssuedToken
	Rotated bool
}

func issuedFromFlow(t flows.Token) IssuedToken {
	out := IssuedToken{Token: t.Value}
	if t.Claims == nil {
		return out
	}
	out.ID = t.Claims.ID
	out.Subject = t.Claims.Subject
	if t.Claims.IssuedAt != nil {
		out.IssuedAt = t.Claims.IssuedAt.Time
	}
	if t.Claims.ExpiresAt != nil {
		out.ExpiresAt = t.Claims.ExpiresAt.Time
	}
	return out
}
