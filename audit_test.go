package authgate_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	authgate "github.com/mwalcott3/authgate"
	"github.com/mwalcott3/authgate/provider"
)

func newAuditedEngine(t *testing.T) (*authgate.Engine, *authgate.ChannelSink) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	users, err := provider.NewMemory()
	if err != nil {
		t.Fatalf("NewMemory failed: %v", err)
	}

	cfg := authgate.DefaultConfig()
	cfg.JWT.Secret = testSecret
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 64

	sink := authgate.NewChannelSink(64)
	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(users).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	return engine, sink
}

func drainEvents(sink *authgate.ChannelSink) []authgate.AuditEvent {
	var events []authgate.AuditEvent
	for {
		select {
		case event := <-sink.Events():
			events = append(events, event)
		default:
			return events
		}
	}
}

func TestAuditEventsEmitted(t *testing.T) {
	engine, sink := newAuditedEngine(t)
	ctx := authgate.WithClientIP(context.Background(), "203.0.113.9")

	reg, err := engine.Register(ctx, authgate.RegisterRequest{
		Email:    "jane@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if !reg.Success {
		t.Fatalf("Register rejected: %v", reg.Errors)
	}

	if _, err := engine.Login(ctx, "jane@example.com", "Wr0ngPassword"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "jane@example.com", testPassword); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Close drains the dispatcher so every emitted event reached the sink.
	engine.Close()

	events := drainEvents(sink)
	byType := make(map[string][]authgate.AuditEvent)
	for _, event := range events {
		byType[event.EventType] = append(byType[event.EventType], event)
	}

	success, ok := byType["register_success"]
	if !ok {
		t.Fatalf("missing register_success event, got %v", byType)
	}
	if !success[0].Success || success[0].UserID == "" || success[0].JTI == "" {
		t.Fatalf("malformed register_success event: %+v", success[0])
	}
	if success[0].IP != "203.0.113.9" {
		t.Fatalf("expected client IP on event, got %q", success[0].IP)
	}

	failure, ok := byType["login_failure"]
	if !ok {
		t.Fatalf("missing login_failure event, got %v", byType)
	}
	if failure[0].Success {
		t.Fatal("login_failure event must report success=false")
	}
	if failure[0].Error != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials code, got %q", failure[0].Error)
	}

	login, ok := byType["login_success"]
	if !ok {
		t.Fatalf("missing login_success event, got %v", byType)
	}
	if login[0].Metadata["revoked"] != "1" {
		t.Fatalf("expected revoked count metadata, got %v", login[0].Metadata)
	}
}

func TestAuditReuseDetectedEvent(t *testing.T) {
	engine, sink := newAuditedEngine(t)
	ctx := context.Background()

	reg, err := engine.Register(ctx, authgate.RegisterRequest{
		Email:    "jane@example.com",
		Password: testPassword,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, err := engine.Refresh(ctx, reg.AccessToken, reg.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := engine.Refresh(ctx, reg.AccessToken, reg.RefreshToken); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	engine.Close()

	var found bool
	for _, event := range drainEvents(sink) {
		if event.EventType == "refresh_reuse_detected" {
			found = true
			if event.Error != "refresh_reuse" {
				t.Fatalf("expected refresh_reuse code, got %q", event.Error)
			}
		}
	}
	if !found {
		t.Fatal("missing refresh_reuse_detected event")
	}
}

func TestAuditDisabledEmitsNothing(t *testing.T) {
	env := newTestEnv(t, nil)

	env.register(t, "jane@example.com")
	if got := env.engine.AuditDropped(); got != 0 {
		t.Fatalf("expected no drops with audit disabled, got %d", got)
	}
}
