// Package token persists refresh tokens and enforces their single-use
// lifecycle.
//
// A refresh token is an opaque 64-byte random value; it carries no claims and
// means nothing without its stored [Record]. Records transition used=true on
// redemption and revoked=true on bulk revocation, and are never deleted by
// the engine — a replayed value must still classify as "used or revoked", not
// vanish into "not found".
//
// Two backends implement [Store]: [RedisStore] (Lua scripts make the
// read-decide-write on redemption a single atomic step) and [PostgresStore]
// (row locking inside a transaction does the same).
package token
