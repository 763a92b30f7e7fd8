// Package cookie moves session tokens between the server and the browser as
// HttpOnly cookies, so token strings never appear in response bodies.
//
// A [Policy] decides the cookie names, lifetimes and the Secure and SameSite
// flags from a [Config]. Production deployments get Secure cookies with
// SameSite=Strict; development gets SameSite=Lax over plain HTTP.
package cookie
