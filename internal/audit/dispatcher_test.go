package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NewChannelSink(1))
	if d != nil {
		t.Fatal("disabled config must yield a nil dispatcher")
	}

	// Nil dispatchers absorb everything.
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher reports zero drops")
	}
}

func TestDispatcherDeliversAndDrainsOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	var got int
	for {
		select {
		case <-sink.Events():
			got++
		default:
			if got != 5 {
				t.Fatalf("expected 5 delivered events, got %d", got)
			}
			return
		}
	}
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	block := make(chan struct{})
	sink := &blockingSink{release: block}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// First event occupies the run loop, second fills the buffer, the rest
	// must be dropped rather than block the caller.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}

	deadline := time.After(time.Second)
	for d.Dropped() == 0 {
		select {
		case <-deadline:
			t.Fatal("expected dropped events with a full buffer")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	close(block)
	d.Close()
}

func TestDispatcherEmitAfterCloseIsNoOp(t *testing.T) {
	sink := NewChannelSink(4)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)
	d.Close()

	d.Emit(context.Background(), Event{EventType: "late"})

	select {
	case event := <-sink.Events():
		t.Fatalf("unexpected event after close: %+v", event)
	default:
	}
}

func TestJSONWriterSink(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 4}, sink)

	d.Emit(context.Background(), Event{
		Timestamp: time.Now().UTC(),
		EventType: "tokens_revoked",
		UserID:    "user-1",
		Success:   true,
		Metadata:  map[string]string{"revoked": "2"},
	})
	d.Close()

	var decoded Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("decoding sink output failed: %v\noutput: %s", err, buf.Bytes())
	}
	if decoded.EventType != "tokens_revoked" || decoded.UserID != "user-1" || !decoded.Success {
		t.Fatalf("unexpected event: %+v", decoded)
	}
	if decoded.Metadata["revoked"] != "2" {
		t.Fatalf("unexpected metadata: %v", decoded.Metadata)
	}
}

type blockingSink struct {
	release <-chan struct{}
}

func (s *blockingSink) Emit(ctx context.Context, event Event) {
	<-s.release
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}
