package flows

import "context"

// RevokeResult reports how many live records a bulk revocation touched.
type RevokeResult struct {
	Err     error
	Revoked int64
}

// RevokeDeps captures revoke flow dependencies.
type RevokeDeps struct {
	RevokeAllForUser func(ctx context.Context, userID string) (int64, error)
}

// RunRevoke revokes every live refresh token of userID. Revoking a user with
// no live tokens is a successful no-op.
func RunRevoke(ctx context.Context, userID string, deps RevokeDeps) RevokeResult {
	revoked, err := deps.RevokeAllForUser(ctx, userID)
	if err != nil {
		return RevokeResult{Err: err}
	}

	return RevokeResult{Revoked: revoked}
}
