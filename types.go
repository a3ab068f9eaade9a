package authgate

import (
	"context"
	"io"

	internalaudit "github.com/mwalcott3/authgate/internal/audit"
	internalmetrics "github.com/mwalcott3/authgate/internal/metrics"
)

// AuthResult is the outcome of Register, Login, and Refresh. Success=false
// carries caller-facing messages in Errors; tokens are only set on success.
type AuthResult struct {
	Success      bool
	AccessToken  string
	RefreshToken string
	Errors       []string
}

// UserRecord is the account view the engine needs from a [UserProvider].
// Password hashes never cross this boundary.
type UserRecord struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	Active    bool
}

// CreateUserInput is the input for [UserProvider.CreateUser]. The provider
// owns password hashing and policy validation.
type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Active    bool
}

// UserProvider is the interface callers implement to integrate authgate with
// their user database. Lookups return [ErrUserNotFound] when no account
// matches; CreateUser returns a [*RegistrationError] when the input violates
// account policy.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (UserRecord, error)
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	VerifyPassword(ctx context.Context, userID, password string) (bool, error)
	AddToRole(ctx context.Context, userID, role string) error
	GetRoles(ctx context.Context, userID string) ([]string, error)
}

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer], one per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// MetricID identifies a specific counter or histogram in the in-process
// metrics system.
type MetricID = internalmetrics.MetricID

const (
	MetricRegisterSuccess      = MetricID(internalmetrics.MetricRegisterSuccess)
	MetricRegisterDuplicate    = MetricID(internalmetrics.MetricRegisterDuplicate)
	MetricRegisterRejected     = MetricID(internalmetrics.MetricRegisterRejected)
	MetricLoginSuccess         = MetricID(internalmetrics.MetricLoginSuccess)
	MetricLoginFailure         = MetricID(internalmetrics.MetricLoginFailure)
	MetricRefreshSuccess       = MetricID(internalmetrics.MetricRefreshSuccess)
	MetricRefreshFailure       = MetricID(internalmetrics.MetricRefreshFailure)
	MetricRefreshReuseDetected = MetricID(internalmetrics.MetricRefreshReuseDetected)
	MetricTokensRevoked        = MetricID(internalmetrics.MetricTokensRevoked)
	MetricTokenPairIssued      = MetricID(internalmetrics.MetricTokenPairIssued)
	MetricValidateLatency      = MetricID(internalmetrics.MetricValidateLatency)
)

// Metrics holds atomic counters and optional latency histograms.
type Metrics = internalmetrics.Metrics

// MetricsSnapshot is a point-in-time deep copy of all metrics.
type MetricsSnapshot = internalmetrics.Snapshot

// NewMetrics creates a [Metrics] instance configured by cfg. When Enabled is
// false, all operations are no-ops.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:       cfg.Enabled,
		EnableLatency: cfg.EnableLatencyHistograms,
	})
}
