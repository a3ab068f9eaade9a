package authgate_test

import (
	"context"
	"strings"
	"testing"
	"time"

	authgate "github.com/mwalcott3/authgate"
	"github.com/mwalcott3/authgate/token"
)

func TestRefreshRotatesPair(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := env.register(t, "jane@example.com")

	rotated, err := env.engine.Refresh(context.Background(), reg.AccessToken, reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !rotated.Success {
		t.Fatalf("expected refresh success: %v", rotated.Errors)
	}
	if rotated.AccessToken == reg.AccessToken {
		t.Fatal("expected a new access token")
	}
	if rotated.RefreshToken == reg.RefreshToken {
		t.Fatal("expected a new refresh token")
	}

	// The consumed value is single-use.
	replay, err := env.engine.Refresh(context.Background(), reg.AccessToken, reg.RefreshToken)
	expectFailure(t, replay, err, "Refresh token has been used or revoked.")

	// The rotated pair keeps working.
	again, err := env.engine.Refresh(context.Background(), rotated.AccessToken, rotated.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !again.Success {
		t.Fatalf("expected rotated pair to refresh: %v", again.Errors)
	}
}

func TestRefreshAcceptsExpiredAccessToken(t *testing.T) {
	env := newTestEnv(t, func(cfg *authgate.Config) {
		cfg.JWT.AccessTTL = time.Millisecond
	})
	reg := env.register(t, "jane@example.com")

	time.Sleep(5 * time.Millisecond)

	rotated, err := env.engine.Refresh(context.Background(), reg.AccessToken, reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !rotated.Success {
		t.Fatalf("expected refresh with expired access token to succeed: %v", rotated.Errors)
	}
}

func TestRefreshTamperedAccessToken(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := env.register(t, "jane@example.com")

	parts := strings.Split(reg.AccessToken, ".")
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	res, err := env.engine.Refresh(context.Background(), tampered, reg.RefreshToken)
	expectFailure(t, res, err, "Invalid token.")
}

func TestRefreshGarbageAccessToken(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := env.register(t, "jane@example.com")

	res, err := env.engine.Refresh(context.Background(), "not-a-jwt", reg.RefreshToken)
	expectFailure(t, res, err, "Invalid token.")
}

func TestRefreshCrossUserToken(t *testing.T) {
	env := newTestEnv(t, nil)
	alice := env.register(t, "alice@example.com")
	bob := env.register(t, "bob@example.com")

	// Bob's refresh value presented under Alice's identity does not exist
	// for her.
	res, err := env.engine.Refresh(context.Background(), alice.AccessToken, bob.RefreshToken)
	expectFailure(t, res, err, "Refresh token not found.")

	// Bob's chain is unharmed.
	rotated, err := env.engine.Refresh(context.Background(), bob.AccessToken, bob.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !rotated.Success {
		t.Fatalf("expected bob's refresh to succeed: %v", rotated.Errors)
	}
}

func TestRefreshUnknownValue(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := env.register(t, "jane@example.com")

	value, err := token.NewValue()
	if err != nil {
		t.Fatalf("NewValue failed: %v", err)
	}

	res, engineErr := env.engine.Refresh(context.Background(), reg.AccessToken, value)
	expectFailure(t, res, engineErr, "Refresh token not found.")
}

func TestRefreshExpiredToken(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := env.register(t, "jane@example.com")
	userID := env.userID(t, reg.AccessToken)

	value, err := token.NewValue()
	if err != nil {
		t.Fatalf("NewValue failed: %v", err)
	}
	now := time.Now().UTC()
	err = env.store.Add(context.Background(), &token.Record{
		UserID:    userID,
		Value:     value,
		JTI:       "stale-jti",
		AddedAt:   now.Add(-2 * time.Hour),
		ExpiresAt: now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	res, engineErr := env.engine.Refresh(context.Background(), reg.AccessToken, value)
	expectFailure(t, res, engineErr, "Refresh token expired.")
}

func TestRefreshInactiveUser(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := env.register(t, "jane@example.com")
	userID := env.userID(t, reg.AccessToken)

	if err := env.users.SetActive(userID, false); err != nil {
		t.Fatalf("SetActive failed: %v", err)
	}

	res, err := env.engine.Refresh(context.Background(), reg.AccessToken, reg.RefreshToken)
	expectFailure(t, res, err, "User not found or inactive.")
}

func TestRefreshReuseLeavesSiblingsByDefault(t *testing.T) {
	env := newTestEnv(t, nil)
	reg := env.register(t, "jane@example.com")

	rotated, err := env.engine.Refresh(context.Background(), reg.AccessToken, reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	replay, err := env.engine.Refresh(context.Background(), reg.AccessToken, reg.RefreshToken)
	expectFailure(t, replay, err, "Refresh token has been used or revoked.")

	// Default policy: only the replayed value is rejected.
	live, err := env.engine.Refresh(context.Background(), rotated.AccessToken, rotated.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !live.Success {
		t.Fatalf("expected live chain to survive a replay: %v", live.Errors)
	}
}

func TestRefreshReuseRevokesSiblingsWhenEnabled(t *testing.T) {
	env := newTestEnv(t, func(cfg *authgate.Config) {
		cfg.Security.RevokeOnReuse = true
	})
	reg := env.register(t, "jane@example.com")

	rotated, err := env.engine.Refresh(context.Background(), reg.AccessToken, reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	replay, err := env.engine.Refresh(context.Background(), reg.AccessToken, reg.RefreshToken)
	expectFailure(t, replay, err, "Refresh token has been used or revoked.")

	// Hardened policy: the replay took the whole chain down.
	live, err := env.engine.Refresh(context.Background(), rotated.AccessToken, rotated.RefreshToken)
	expectFailure(t, live, err, "Refresh token has been used or revoked.")
}
