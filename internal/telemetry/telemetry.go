// Package telemetry records named timing events without blocking callers.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Recorder accepts timing events. Implementations must not block.
type Recorder interface {
	Record(name string, d time.Duration)
}

// Sink persists events.
type Sink interface {
	Increment(name string, d time.Duration) error
}

// Discard drops every event.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Record(string, time.Duration) {}

type event struct {
	name string
	d    time.Duration
}

// Async queues events and writes them to a Sink from one goroutine. Events
// arriving while the queue is full are dropped.
type Async struct {
	sink   Sink
	logger *zap.Logger
	events chan event
	done   chan struct{}

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

// NewAsync starts the writer goroutine.
func NewAsync(sink Sink, queueSize int, logger *zap.Logger) *Async {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Async{
		sink:   sink,
		logger: logger.With(zap.String("component", "telemetry")),
		events: make(chan event, queueSize),
		done:   make(chan struct{}),
	}
	go a.run()
	return a
}

// Record queues an event.
func (a *Async) Record(name string, d time.Duration) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return
	}
	select {
	case a.events <- event{name: name, d: d}:
	default:
		a.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (a *Async) Dropped() int64 {
	return a.dropped.Load()
}

func (a *Async) run() {
	defer close(a.done)
	for e := range a.events {
		if err := a.sink.Increment(e.name, e.d); err != nil {
			a.logger.Warn("failed to record event", zap.String("event", e.name), zap.Error(err))
		}
	}
}

// Close stops accepting events and waits until queued ones are written or
// the timeout passes.
func (a *Async) Close(timeout time.Duration) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	close(a.events)
	a.mu.Unlock()

	select {
	case <-a.done:
	case <-time.After(timeout):
		a.logger.Warn("telemetry flush timed out", zap.Int("pending", len(a.events)))
	}
}

// Memory keeps events in memory.
type Memory struct {
	mu     sync.Mutex
	events []string
	counts map[string]int
}

// NewMemory creates an empty in-memory recorder.
func NewMemory() *Memory {
	return &Memory{counts: make(map[string]int)}
}

// Record stores the event name.
func (m *Memory) Record(name string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, name)
	m.counts[name]++
}

// Count returns how often name was recorded.
func (m *Memory) Count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

// Events returns the recorded event names in order.
func (m *Memory) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	copy(out, m.events)
	return out
}
