package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type blockingSink struct {
	release chan struct{}
	mu      sync.Mutex
	events  []Event
}

func (s *blockingSink) Emit(_ context.Context, e Event) {
	<-s.release
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, NoOpSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "x"})
	d.Close()
	if d.Dropped() != 0 {
		t.Fatal("nil dispatcher must report zero drops")
	}
}

func TestDispatcherDeliversAndFlushesOnClose(t *testing.T) {
	sink := NewChannelSink(16)
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 5; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success", Username: "alice", Success: true})
	}
	d.Close()

	if got := len(sink.Events()); got != 5 {
		t.Fatalf("expected 5 delivered events, got %d", got)
	}
	d.Emit(context.Background(), Event{EventType: "late"})
	if got := len(sink.Events()); got != 5 {
		t.Fatalf("events after Close must be discarded, have %d", got)
	}
	if d.Dropped() != 1 {
		t.Fatalf("late event must be counted as dropped, got %d", d.Dropped())
	}
	d.Close()
}

type countingSink struct {
	n atomic.Uint64
}

func (s *countingSink) Emit(context.Context, Event) { s.n.Add(1) }

func TestDispatcherAccountsForEveryEventAcrossClose(t *testing.T) {
	for _, dropIfFull := range []bool{true, false} {
		for round := 0; round < 50; round++ {
			sink := &countingSink{}
			d := NewDispatcher(Config{Enabled: true, BufferSize: 4, DropIfFull: dropIfFull}, sink)

			const emitters, perEmitter = 8, 50
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < emitters; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					for j := 0; j < perEmitter; j++ {
						d.Emit(context.Background(), Event{EventType: "e"})
					}
				}()
			}

			close(start)
			d.Close()
			wg.Wait()

			if got := sink.n.Load() + d.Dropped(); got != emitters*perEmitter {
				t.Fatalf("dropIfFull=%v round %d: delivered %d + dropped %d != %d",
					dropIfFull, round, sink.n.Load(), d.Dropped(), emitters*perEmitter)
			}
		}
	}
}

func TestDispatcherEmitHonorsContextWhenBlocked(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1}, sink)

	d.Emit(context.Background(), Event{EventType: "held"})
	d.Emit(context.Background(), Event{EventType: "buffered"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	d.Emit(ctx, Event{EventType: "blocked"})

	close(sink.release)
	d.Close()

	sink.mu.Lock()
	delivered := len(sink.events)
	sink.mu.Unlock()
	if delivered+int(d.Dropped()) != 3 {
		t.Fatalf("expected 3 events accounted for, delivered %d dropped %d", delivered, d.Dropped())
	}
	if d.Dropped() < 1 {
		t.Fatal("expected the blocked event to be dropped on context expiry")
	}
}

func TestDispatcherDropIfFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink)

	// One event is held by the blocked sink, one fills the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "e"})
	}
	deadline := time.Now().Add(time.Second)
	for d.Dropped() < 8 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if d.Dropped() < 8 {
		t.Fatalf("expected at least 8 drops, got %d", d.Dropped())
	}
	close(sink.release)
	d.Close()
}

func TestJSONWriterSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{EventType: "authorize_failure", Username: AnonymousUser, Metadata: map[string]string{"reason": "expired"}})

	var decoded Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.EventType != "authorize_failure" || decoded.Metadata["reason"] != "expired" {
		t.Fatalf("unexpected event: %+v", decoded)
	}
}

func TestZerologSinkLevels(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerologSink(zerolog.New(&buf))

	sink.Emit(context.Background(), Event{EventType: "login_success", Username: "bob", IP: "10.0.0.1", Success: true})
	sink.Emit(context.Background(), Event{EventType: "login_failure", Username: "bob", Error: "invalid_credentials", Metadata: map[string]string{"reason": "wrong"}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}

	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if first["level"] != "info" || first["ip"] != "10.0.0.1" {
		t.Fatalf("unexpected success line: %v", first)
	}
	if second["level"] != "warn" || second["error"] != "invalid_credentials" {
		t.Fatalf("unexpected failure line: %v", second)
	}
	meta, ok := second["metadata"].(map[string]any)
	if !ok || meta["reason"] != "wrong" {
		t.Fatalf("expected metadata dict, got %v", second["metadata"])
	}
}

func TestMultiSink(t *testing.T) {
	a, b := NewChannelSink(1), NewChannelSink(1)
	MultiSink{a, nil, b}.Emit(context.Background(), Event{EventType: "x"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Fatal("expected both sinks to receive the event")
	}
}
