// Package password hashes and verifies passwords with Argon2id.
//
// Hashes are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Salt and hash are unpadded base64; padded input is accepted on Verify.
// [Argon2.NeedsUpgrade] reports hashes produced with weaker parameters so a
// caller can rehash after the next successful login.
package password
