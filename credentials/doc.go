// Package credentials provides a static user directory that satisfies
// sessionauth.CredentialVerifier. Users and their Argon2id hashes are loaded
// from server configuration; hashes are produced by the hash-password command.
package credentials
