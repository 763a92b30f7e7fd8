// Package jwt mints and verifies the signed access and refresh tokens of a
// session. Verification failures are reported as distinct error kinds
// (malformed, bad signature, expired) rather than a single opaque failure.
package jwt
