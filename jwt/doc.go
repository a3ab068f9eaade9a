// Package jwt signs and verifies access tokens for authgate.
//
// Signing is HMAC-SHA-256 only. The verifier pins the method twice: once via
// the parser's valid-methods list and once inside the keyfunc, so an
// alg-substitution token can never reach signature verification with the
// wrong algorithm.
//
// [Issuer.ExtractExpired] exists for the refresh flow only: it verifies the
// signature and signing method but skips lifetime and issuer/audience
// validation, because refresh legitimately presents an expired access token.
// It must never gate access to a protected resource.
package jwt
