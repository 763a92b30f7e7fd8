// Package flows contains pure-function orchestrators for every Engine operation.
//
// Each flow function (RunIssue, RunLogin, RunRefresh, RunLogout) accepts a
// typed dependency struct and returns a result carrying a failure kind instead
// of a mapped error. The root package translates failure kinds into its public
// error taxonomy, audit events and metrics.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the token codec and the revocation store.
// They do NOT own either; ownership stays with the Engine.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import sessionauth (to avoid import cycles).
//   - Log, emit audit events or record metrics.
package flows
