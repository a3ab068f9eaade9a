package flows

import "context"

// LoginFailureKind classifies login flow failures for root-level mapping.
type LoginFailureKind int

const (
	LoginFailureNone LoginFailureKind = iota
	LoginFailureUserNotFound
	LoginFailureLookup
	LoginFailureInactive
	LoginFailureBadPassword
	LoginFailureVerify
	LoginFailureRevoke
	LoginFailureIssue
)

// LoginResult carries either the issued token pair or failure metadata.
type LoginResult struct {
	Failure      LoginFailureKind
	Err          error
	UserID       string
	JTI          string
	Revoked      int64
	AccessToken  string
	RefreshToken string
}

// LoginDeps captures login flow dependencies.
type LoginDeps struct {
	LookupByEmail    func(ctx context.Context, email string) (User, bool, error)
	VerifyPassword   func(ctx context.Context, userID, password string) (bool, error)
	RevokeAllForUser func(ctx context.Context, userID string) (int64, error)
	Issuance         Issuance
}

// RunLogin authenticates credentials, revokes the user's live refresh chain,
// and issues a fresh pair. Revocation runs before the new record is
// persisted so at most one live chain exists per user.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) LoginResult {
	user, found, err := deps.LookupByEmail(ctx, email)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureLookup,
			Err:     err,
		}
	}
	if !found {
		return LoginResult{
			Failure: LoginFailureUserNotFound,
		}
	}

	if !user.Active {
		return LoginResult{
			Failure: LoginFailureInactive,
			UserID:  user.ID,
		}
	}

	ok, err := deps.VerifyPassword(ctx, user.ID, password)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureVerify,
			Err:     err,
			UserID:  user.ID,
		}
	}
	if !ok {
		return LoginResult{
			Failure: LoginFailureBadPassword,
			UserID:  user.ID,
		}
	}

	revoked, err := deps.RevokeAllForUser(ctx, user.ID)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureRevoke,
			Err:     err,
			UserID:  user.ID,
		}
	}

	access, refresh, jti, _, err := deps.Issuance.IssuePair(ctx, user)
	if err != nil {
		return LoginResult{
			Failure: LoginFailureIssue,
			Err:     err,
			UserID:  user.ID,
			Revoked: revoked,
		}
	}

	return LoginResult{
		Failure:      LoginFailureNone,
		UserID:       user.ID,
		JTI:          jti,
		Revoked:      revoked,
		AccessToken:  access,
		RefreshToken: refresh,
	}
}
