// Package flows contains the credential lifecycle orchestration logic,
// decoupled from the root package through dependency structs.
//
// Each flow is a pure function over its deps: it classifies every failure
// into a flow-specific kind so the root engine can map outcomes to caller
// messages, audit events, and metrics without re-deriving them.
//
// # What this package must NOT do
//
//   - Import authgate (the root package imports flows, never the reverse).
//   - Talk to Redis, Postgres, or the user store directly — only through
//     injected functions.
//   - Produce caller-facing message strings.
package flows
