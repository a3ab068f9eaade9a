package authgate

import (
	"errors"
	"time"
)

// Config defines the engine configuration. Instances are configured during
// initialization and treated as immutable after [Builder.Build].
type Config struct {
	JWT      JWTConfig
	Tokens   TokenStoreConfig
	Account  AccountConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

// JWTConfig controls access token signing. Signing is HMAC-SHA-256 only;
// Secret is the shared signing key and must be at least 32 bytes. Leeway
// widens expiry checks during validation to absorb clock skew; at most two
// minutes.
type JWTConfig struct {
	Secret     []byte
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// TokenStoreConfig controls the refresh-token store built by [Builder.Build]
// when a Redis client is supplied.
//
// Redeemed and revoked rows are kept, not deleted. Retention bounds how long
// the Redis backend keeps a row past its natural lifetime; zero means twice
// the refresh TTL, so a recently expired token still classifies as expired
// rather than unknown.
type TokenStoreConfig struct {
	RedisPrefix string
	Retention   time.Duration
}

// AccountConfig controls registration behavior.
type AccountConfig struct {
	DefaultRole string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig holds opt-in hardening switches.
type SecurityConfig struct {
	// RevokeOnReuse bulk-revokes a user's remaining live refresh tokens when
	// a used or revoked token is presented again. Off by default: the
	// default behavior rejects the replay and leaves siblings untouched.
	RevokeOnReuse bool
}

const minSecretLength = 32

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Tokens: TokenStoreConfig{
			RedisPrefix: "ag",
		},
		Account: AccountConfig{
			DefaultRole: "User",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			RevokeOnReuse: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate checks the configuration for missing or unusable values. It is
// called by [Builder.Build]; a failed check aborts construction.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) == 0 {
		return errors.New("JWT Secret is required")
	}
	if len(c.JWT.Secret) < minSecretLength {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must exceed AccessTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2 minutes")
	}

	// Tokens
	if c.Tokens.RedisPrefix == "" {
		return errors.New("Tokens RedisPrefix must not be empty")
	}
	if c.Tokens.Retention < 0 {
		return errors.New("Tokens Retention must be >= 0")
	}

	// Account
	if c.Account.DefaultRole == "" {
		return errors.New("Account DefaultRole is required")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
