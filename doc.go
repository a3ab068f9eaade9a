// Package authgate manages the lifecycle of API session credentials: short-lived
// signed access tokens, long-lived single-use refresh tokens, and server-side
// revocation.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authgate is the public surface. It exposes [Engine], [Builder], [Config], and
// value types (AuthResult, UserRecord, AuditEvent, MetricsSnapshot). Flow
// orchestration lives under internal/ and is never exported. Access token
// signing is in the jwt subpackage, refresh-token persistence in the token
// subpackage.
//
// The persistent user store is an external collaborator behind the
// [UserProvider] interface: lookup, creation, password verification, and role
// membership are its job, never this package's. HTTP transport, request
// validation, and response shaping likewise stay outside.
//
// # Failure contract
//
// Business-rule failures (bad credentials, duplicate registration, token
// replay) are reported inside [AuthResult] as Success=false plus caller-facing
// error strings, never as returned Go errors. Returned errors mean the engine
// could not honor its contract at all: storage faults, collaborator faults,
// and configuration problems. Callers own any retry policy.
package authgate
