package jwt

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed reports a token that cannot be decoded.
	ErrMalformed = errors.New("token malformed")
	// ErrInvalidSignature reports a signature mismatch, a disallowed algorithm, or an unknown key id.
	ErrInvalidSignature = errors.New("token signature invalid")
	// ErrExpired reports a correctly signed token whose exp claim has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalidClaims reports issuer, audience, iat, nbf or required-claim violations.
	ErrInvalidClaims = errors.New("token claims invalid")
	// ErrWrongKind reports an access token presented where a refresh token is expected, or the reverse.
	ErrWrongKind = errors.New("token kind mismatch")
)

// classify maps golang-jwt validation errors onto the codec's error kinds.
// Expiry is tested first: the library validates claims only after the
// signature has been accepted.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return ErrInvalidClaims
	}
}
