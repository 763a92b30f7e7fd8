package sessionauth

import "errors"

var (
	// ErrMissingCredential is returned when no refresh token was presented.
	ErrMissingCredential = errors.New("refresh token missing")
	// ErrInvalidCredential covers malformed tokens, bad signatures, rejected
	// claims and tokens of the wrong kind.
	ErrInvalidCredential = errors.New("token is invalid")
	// ErrExpiredCredential is returned for a correctly signed token past its expiry.
	ErrExpiredCredential = errors.New("token is expired")
	// ErrRevokedCredential is returned for a refresh token whose jti is blacklisted,
	// including the loser of a concurrent rotation.
	ErrRevokedCredential = errors.New("token is blacklisted")
	// ErrInternal wraps signing and revocation store failures.
	ErrInternal = errors.New("internal token error")
	// ErrInvalidCredentials is returned by Login for an unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEngineNotReady is returned when a required dependency was not configured.
	ErrEngineNotReady = errors.New("engine not initialized")
)
