// Package middleware exposes net/http middleware around sessionauth.Engine.
//
//   - [Guard] requires a valid access token (cookie first, then bearer header)
//     and stores its claims in the request context.
//   - [Recover] converts panics into a generic 500 JSON response.
//   - [RequestContext] attaches client IP and User-Agent for audit events.
//   - [AccessLog] writes one structured log line per request.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine.Authenticate).
//   - Consult the revocation store.
package middleware
