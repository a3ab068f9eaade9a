// Package provider bundles a reference in-memory user store implementing
// the authgate UserProvider contract.
//
// It exists for tests, examples, and bootstrapping a deployment before a
// real user database is wired in. It enforces a conventional account policy
// (valid email shape, password length and character classes) and hashes
// passwords with argon2id. It is not a durable store: state lives in process
// memory.
package provider
