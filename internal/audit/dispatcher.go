package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher hands events to a sink from one forwarding goroutine.
// A nil *Dispatcher is valid and discards everything.
//
// Every event passed to Emit is either delivered to the sink or counted by
// Dropped, including events that race with or follow Close.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool

	// mu orders sends against Close: Emit holds the read side while it
	// writes to queue, Close takes the write side to close it.
	mu     sync.RWMutex
	queue  chan Event
	closed bool

	forwarded sync.WaitGroup
	dropped   atomic.Uint64
}

// NewDispatcher starts a dispatcher. It returns nil when cfg.Enabled is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		queue:      make(chan Event, size),
	}
	d.forwarded.Add(1)
	go d.forward()
	return d
}

// forward runs until Close closes the queue, then returns once the
// remaining buffered events reached the sink.
func (d *Dispatcher) forward() {
	defer d.forwarded.Done()
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
	}
}

// Emit queues event. With DropIfFull a full buffer counts a drop instead of
// blocking; otherwise Emit waits for space or for ctx. Events emitted after
// Close are counted as dropped.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops accepting events and blocks until the buffer is flushed to the
// sink. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}

	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	d.forwarded.Wait()
}

// Dropped returns the number of events that never reached the sink.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
