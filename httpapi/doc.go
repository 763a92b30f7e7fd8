// Package httpapi exposes the session lifecycle over HTTP.
//
//	POST /auth/login    {"username","password"} -> cookies + subject/expiry body
//	POST /auth/refresh  refresh cookie          -> new access cookie (+ rotated refresh)
//	POST /auth/logout   refresh cookie          -> revoke, clear cookies, 204
//	GET  /auth/session  access cookie or bearer -> access claims
//
// Failed refreshes answer 400 with {"detail": reason}. Failed logins answer
// 401 with {"error": "Invalid credentials"}.
package httpapi
