package authgate

import (
	"errors"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/mwalcott3/authgate/internal/audit"
	"github.com/mwalcott3/authgate/jwt"
	"github.com/mwalcott3/authgate/token"
)

// Builder assembles an [Engine]. Construction is allocation-only until
// Build, which validates the configuration and wires every component.
type Builder struct {
	config    Config
	hasConfig bool
	redis     redis.UniversalClient
	store     token.Store
	users     UserProvider
	auditSink AuditSink
}

func New() *Builder {
	return &Builder{}
}

// WithConfig replaces the default configuration. Start from [DefaultConfig]
// and override fields rather than building a Config from zero.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	b.hasConfig = true
	return b
}

// WithRedis supplies the Redis client backing the default token store. It is
// ignored when WithTokenStore is also set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithTokenStore supplies an explicit refresh-token store, e.g.
// [token.PostgresStore].
func (b *Builder) WithTokenStore(store token.Store) *Builder {
	b.store = store
	return b
}

// WithUserProvider supplies the persistent user store collaborator.
func (b *Builder) WithUserProvider(provider UserProvider) *Builder {
	b.users = provider
	return b
}

// WithAuditSink supplies the audit event consumer. Without one, audit events
// are discarded even when auditing is enabled.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// DefaultConfig returns the baseline configuration: 15 minute access tokens,
// 7 day refresh tokens, audit and metrics off.
func DefaultConfig() Config {
	return defaultConfig()
}

// Build validates the configuration and returns a ready engine.
func (b *Builder) Build() (*Engine, error) {
	cfg := b.config
	if !b.hasConfig {
		cfg = defaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user provider is required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("a token store or redis client is required")
		}
		retention := cfg.Tokens.Retention
		if retention == 0 {
			retention = 2 * cfg.JWT.RefreshTTL
		}
		redisStore, err := token.NewRedisStore(b.redis, cfg.Tokens.RedisPrefix, retention)
		if err != nil {
			return nil, err
		}
		store = redisStore
	}

	issuer, err := jwt.NewIssuer(jwt.Config{
		Secret:    cfg.JWT.Secret,
		Issuer:    cfg.JWT.Issuer,
		Audience:  cfg.JWT.Audience,
		AccessTTL: cfg.JWT.AccessTTL,
		Leeway:    cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	dispatcher := internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	return &Engine{
		config:  cfg,
		issuer:  issuer,
		tokens:  store,
		users:   b.users,
		audit:   dispatcher,
		metrics: NewMetrics(cfg.Metrics),
	}, nil
}
