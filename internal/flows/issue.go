package flows

import (
	"context"
	"time"

	"github.com/mwalcott3/authgate/token"
)

// User is the account view flows operate on.
type User struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Active    bool
}

// IssueStep identifies where token pair issuance failed.
type IssueStep int

const (
	IssueStepNone IssueStep = iota
	IssueStepRoles
	IssueStepAccess
	IssueStepValue
	IssueStepStore
)

// Issuance bundles the dependencies for minting one access + refresh pair.
// Every successful flow ends by running it.
type Issuance struct {
	Roles           func(ctx context.Context, userID string) ([]string, error)
	IssueAccess     func(user User, roles []string) (accessToken, jti string, err error)
	NewRefreshValue func() (string, error)
	AddRecord       func(ctx context.Context, rec *token.Record) error
	Now             func() time.Time
	RefreshLifetime time.Duration
}

// IssuePair mints a token pair for user and persists the refresh record
// linked to the access token's jti.
func (i Issuance) IssuePair(ctx context.Context, user User) (access, refresh, jti string, step IssueStep, err error) {
	roles, err := i.Roles(ctx, user.ID)
	if err != nil {
		return "", "", "", IssueStepRoles, err
	}

	access, jti, err = i.IssueAccess(user, roles)
	if err != nil {
		return "", "", "", IssueStepAccess, err
	}

	refresh, err = i.NewRefreshValue()
	if err != nil {
		return "", "", "", IssueStepValue, err
	}

	now := i.Now()
	rec := &token.Record{
		UserID:    user.ID,
		Value:     refresh,
		JTI:       jti,
		AddedAt:   now,
		ExpiresAt: now.Add(i.RefreshLifetime),
	}
	if err := i.AddRecord(ctx, rec); err != nil {
		return "", "", "", IssueStepStore, err
	}

	return access, refresh, jti, IssueStepNone, nil
}
