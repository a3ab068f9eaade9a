package authgate_test

import (
	"context"
	"testing"
	"time"

	authgate "github.com/mwalcott3/authgate"
	"github.com/mwalcott3/authgate/provider"
)

func validConfig() authgate.Config {
	cfg := authgate.DefaultConfig()
	cfg.JWT.Secret = testSecret
	return cfg
}

func TestConfigValidateDefaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config with a secret should validate: %v", err)
	}
}

func TestConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*authgate.Config)
	}{
		{name: "missing secret", mutate: func(c *authgate.Config) { c.JWT.Secret = nil }},
		{name: "short secret", mutate: func(c *authgate.Config) { c.JWT.Secret = []byte("too-short") }},
		{name: "zero access ttl", mutate: func(c *authgate.Config) { c.JWT.AccessTTL = 0 }},
		{name: "zero refresh ttl", mutate: func(c *authgate.Config) { c.JWT.RefreshTTL = 0 }},
		{name: "refresh not beyond access", mutate: func(c *authgate.Config) {
			c.JWT.AccessTTL = time.Hour
			c.JWT.RefreshTTL = time.Hour
		}},
		{name: "negative leeway", mutate: func(c *authgate.Config) { c.JWT.Leeway = -time.Second }},
		{name: "oversized leeway", mutate: func(c *authgate.Config) { c.JWT.Leeway = 3 * time.Minute }},
		{name: "empty redis prefix", mutate: func(c *authgate.Config) { c.Tokens.RedisPrefix = "" }},
		{name: "negative retention", mutate: func(c *authgate.Config) { c.Tokens.Retention = -time.Hour }},
		{name: "empty default role", mutate: func(c *authgate.Config) { c.Account.DefaultRole = "" }},
		{name: "audit enabled without buffer", mutate: func(c *authgate.Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuilderRequiresUserProvider(t *testing.T) {
	if _, err := authgate.New().WithConfig(validConfig()).Build(); err == nil {
		t.Fatal("expected error without user provider")
	}
}

func TestBuilderRequiresTokenBackend(t *testing.T) {
	users, err := provider.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	_, err = authgate.New().
		WithConfig(validConfig()).
		WithUserProvider(users).
		Build()
	if err == nil {
		t.Fatal("expected error without a token store or redis client")
	}
}

func TestBuilderPlumbsLeewayToValidation(t *testing.T) {
	env := newTestEnv(t, func(cfg *authgate.Config) {
		cfg.JWT.AccessTTL = time.Millisecond
		cfg.JWT.Leeway = time.Minute
	})
	reg := env.register(t, "jane@example.com")

	time.Sleep(5 * time.Millisecond)

	if _, err := env.engine.Validate(context.Background(), reg.AccessToken); err != nil {
		t.Fatalf("expected configured leeway to absorb recent expiry, got %v", err)
	}
}

func TestBuilderRejectsInvalidConfig(t *testing.T) {
	users, err := provider.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	cfg := validConfig()
	cfg.JWT.Secret = []byte("short")

	_, err = authgate.New().
		WithConfig(cfg).
		WithUserProvider(users).
		Build()
	if err == nil {
		t.Fatal("expected config validation to abort Build")
	}
}
