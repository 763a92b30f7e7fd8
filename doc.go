// Package sessionauth implements the lifecycle of cookie-delivered JWT
// sessions: issuing an access/refresh pair, refreshing with optional rotation,
// blacklisting superseded refresh tokens and revoking on logout.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// sessionauth is the public surface. It exposes [Engine], [Builder], [Config]
// and value types ([TokenPair], [RefreshResult], [MetricsSnapshot]). Flow
// orchestration lives under internal/flows; token encoding lives in the jwt
// package; blacklist backends live in the revocation package. HTTP concerns
// (cookies, handlers, middleware) live in their own packages and depend on
// this one, never the other way around.
//
// # What this package must NOT do
//
//   - Read or write HTTP requests, responses or cookies.
//   - Blacklist access tokens.
//   - Import any sub-package that re-imports sessionauth (no import cycles).
//
// # Concurrency contract
//
// With rotation and blacklist-after-rotation enabled, a refresh token can be
// exchanged successfully at most once, even when the same token is presented
// concurrently from several processes sharing a revocation store. The store's
// Claim operation is the single serialization point.
package sessionauth
