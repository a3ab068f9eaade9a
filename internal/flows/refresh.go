package flows

import (
	"context"
	"errors"

	"github.com/mwalcott3/authgate/token"
)

// RefreshFailureKind classifies refresh flow failures for root-level mapping.
type RefreshFailureKind int

const (
	RefreshFailureNone RefreshFailureKind = iota
	RefreshFailureBadAccessToken
	RefreshFailureUserNotFound
	RefreshFailureLookup
	RefreshFailureTokenNotFound
	RefreshFailureTokenExpired
	RefreshFailureReuse
	RefreshFailureRedeem
	RefreshFailureIssue
)

// RefreshResult carries either the rotated token pair or failure metadata.
type RefreshResult struct {
	Failure      RefreshFailureKind
	Err          error
	UserID       string
	JTI          string
	AccessToken  string
	RefreshToken string
}

// RefreshDeps captures refresh flow dependencies. The sentinel error fields
// classify Redeem outcomes without importing the store package's identity
// into the decision logic.
type RefreshDeps struct {
	SubjectFromExpired func(accessToken string) (userID string, err error)
	LookupByID         func(ctx context.Context, userID string) (User, bool, error)
	Redeem             func(ctx context.Context, value, userID string) (*token.Record, error)
	RevokeAllForUser   func(ctx context.Context, userID string) (int64, error)
	RevokeOnReuse      bool
	NotFoundErr        error
	ExpiredErr         error
	ReusedErr          error
	Issuance           Issuance
}

// RunRefresh redeems a refresh token against the expired access token that
// accompanied it and issues a replacement pair. The presented refresh value
// is consumed exactly once; redemption failures never mutate the record.
func RunRefresh(ctx context.Context, accessToken, refreshValue string, deps RefreshDeps) RefreshResult {
	userID, err := deps.SubjectFromExpired(accessToken)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureBadAccessToken,
			Err:     err,
		}
	}

	user, found, err := deps.LookupByID(ctx, userID)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureLookup,
			Err:     err,
			UserID:  userID,
		}
	}
	if !found || !user.Active {
		return RefreshResult{
			Failure: RefreshFailureUserNotFound,
			UserID:  userID,
		}
	}

	rec, err := deps.Redeem(ctx, refreshValue, user.ID)
	if err != nil {
		switch {
		case deps.NotFoundErr != nil && errors.Is(err, deps.NotFoundErr):
			return RefreshResult{
				Failure: RefreshFailureTokenNotFound,
				Err:     err,
				UserID:  user.ID,
			}
		case deps.ExpiredErr != nil && errors.Is(err, deps.ExpiredErr):
			return RefreshResult{
				Failure: RefreshFailureTokenExpired,
				Err:     err,
				UserID:  user.ID,
			}
		case deps.ReusedErr != nil && errors.Is(err, deps.ReusedErr):
			if deps.RevokeOnReuse && deps.RevokeAllForUser != nil {
				// Best effort: the replay is rejected either way.
				_, _ = deps.RevokeAllForUser(ctx, user.ID)
			}
			return RefreshResult{
				Failure: RefreshFailureReuse,
				Err:     err,
				UserID:  user.ID,
			}
		default:
			return RefreshResult{
				Failure: RefreshFailureRedeem,
				Err:     err,
				UserID:  user.ID,
			}
		}
	}

	access, refresh, jti, _, err := deps.Issuance.IssuePair(ctx, user)
	if err != nil {
		return RefreshResult{
			Failure: RefreshFailureIssue,
			Err:     err,
			UserID:  user.ID,
			JTI:     rec.JTI,
		}
	}

	return RefreshResult{
		Failure:      RefreshFailureNone,
		UserID:       user.ID,
		JTI:          jti,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
