// Package revocation records refresh-token identifiers that were rotated out
// or logged out, so a superseded token cannot be replayed before it expires.
//
// Every backend implements Store. Claim is the first-writer-wins primitive
// used during rotation: of several concurrent callers presenting the same
// identifier, exactly one is told it created the record.
//
// Backends:
//
//   - MemoryStore: process-local map, pruned explicitly.
//   - RedisStore: SET NX with a TTL matching the token expiry.
//   - PostgresStore: revoked_tokens table with a primary key on jti, schema via goose.
//   - BadgerStore: embedded KV with entry TTLs and conflict-detecting transactions.
package revocation
