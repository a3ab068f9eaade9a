// Package password implements password hashing and verification with
// Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Argon2.NeedsUpgrade] supports transparent parameter upgrades: if a stored
// hash was produced with weaker parameters it returns true so the caller can
// re-hash on the next successful verification.
//
// # Architecture boundaries
//
// This package owns hashing and verification only. Password policy (length,
// character classes) is enforced by whoever implements the user provider.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords — callers supply plaintext and receive hashes.
//   - Import any other authgate package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
