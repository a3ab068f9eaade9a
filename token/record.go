package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

var (
	// ErrNotFound reports that no record matches the presented value and user.
	ErrNotFound = errors.New("refresh token not found")
	// ErrExpired reports a record past its expiry instant.
	ErrExpired = errors.New("refresh token expired")
	// ErrReused reports redemption of a record already used or revoked.
	ErrReused = errors.New("refresh token already used or revoked")
)

// Record is one stored refresh token. JTI links the record to the access
// token issued alongside it.
type Record struct {
	UserID    string
	Value     string
	JTI       string
	Used      bool
	Revoked   bool
	AddedAt   time.Time
	ExpiresAt time.Time
}

// LiveAt reports whether the record could still be redeemed at now.
func (r *Record) LiveAt(now time.Time) bool {
	return r != nil && !r.Used && !r.Revoked && !now.After(r.ExpiresAt)
}

// Store is the persistence contract for refresh tokens.
//
// Redeem performs the whole redemption decision server-side: locate the
// record for (value, userID), classify it, and mark it used — in one atomic
// step, so two concurrent presentations of the same value produce exactly one
// success. Failures are ErrNotFound, ErrExpired, or ErrReused; expiry is
// checked before the used/revoked flags, so an expired-and-used record
// reports ErrExpired.
//
// RevokeAllForUser flips revoked=true on every live record of the user and
// reports how many it touched. Records added after the revocation snapshot
// stay live.
type Store interface {
	Add(ctx context.Context, rec *Record) error
	Find(ctx context.Context, value, userID string) (*Record, error)
	Redeem(ctx context.Context, value, userID string, now time.Time) (*Record, error)
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

const valueSize = 64

// NewValue generates an opaque refresh token value: 64 bytes from
// crypto/rand, standard base64.
func NewValue() (string, error) {
	buf := make([]byte, valueSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}
