package authgate_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authgate "github.com/mwalcott3/authgate"
	"github.com/mwalcott3/authgate/provider"
	"github.com/mwalcott3/authgate/token"
)

const testPassword = "Sup3rSecret"

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type testEnv struct {
	engine *authgate.Engine
	users  *provider.Memory
	store  *token.RedisStore
}

func newTestEnv(t *testing.T, mutate func(*authgate.Config)) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := authgate.DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.JWT.Issuer = "authgate-test"
	cfg.Metrics.Enabled = true
	if mutate != nil {
		mutate(&cfg)
	}

	store, err := token.NewRedisStore(client, cfg.Tokens.RedisPrefix, 2*cfg.JWT.RefreshTTL)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}

	users, err := provider.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	engine, err := authgate.New().
		WithConfig(cfg).
		WithTokenStore(store).
		WithUserProvider(users).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{engine: engine, users: users, store: store}
}

func (env *testEnv) register(t *testing.T, email string) *authgate.AuthResult {
	t.Helper()

	res, err := env.engine.Register(context.Background(), authgate.RegisterRequest{
		Email:     email,
		Password:  testPassword,
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !res.Success {
		t.Fatalf("Register rejected: %v", res.Errors)
	}
	return res
}

func (env *testEnv) userID(t *testing.T, accessToken string) string {
	t.Helper()

	claims, err := env.engine.Validate(context.Background(), accessToken)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	return claims.UserID
}

func expectFailure(t *testing.T, res *authgate.AuthResult, err error, wantMessage string) {
	t.Helper()

	if err != nil {
		t.Fatalf("unexpected engine error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure result")
	}
	if res.AccessToken != "" || res.RefreshToken != "" {
		t.Fatal("failure result must not carry tokens")
	}
	if len(res.Errors) != 1 || res.Errors[0] != wantMessage {
		t.Fatalf("expected errors [%q], got %v", wantMessage, res.Errors)
	}
}
