package watcher

import (
	"sort"
	"sync"
	"time"
)

// BatchDebouncer collects events and emits them as one batch once no new
// event has arrived for the delay. Events for the same path collapse into the
// latest one.
type BatchDebouncer struct {
	delay  time.Duration
	timer  *time.Timer
	mu     sync.Mutex
	events map[string]Event
	emit   func([]Event)
}

// NewBatchDebouncer creates a new batch debouncer
func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{
		delay:  delay,
		events: make(map[string]Event),
		emit:   emit,
	}
}

// Add adds an event to the batch and restarts the quiet period
func (b *BatchDebouncer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.Path] = event

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

// flush emits collected events sorted by path
func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	events := sortedEvents(b.events)
	b.events = make(map[string]Event)
	b.timer = nil
	b.mu.Unlock()

	if len(events) == 0 || b.emit == nil {
		return
	}
	b.emit(events)
}

// Cancel drops any pending events
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.events = make(map[string]Event)
}

// Flush immediately emits any pending events
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// EventCount returns the number of pending events
func (b *BatchDebouncer) EventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}

func sortedEvents(m map[string]Event) []Event {
	events := make([]Event, 0, len(m))
	for _, e := range m {
		events = append(events, e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}

// serialRunner runs batches one at a time. Batches submitted while a run is
// in progress are merged and run once when it finishes.
type serialRunner struct {
	mu      sync.Mutex
	running bool
	pending map[string]Event
	run     func([]Event)
}

// submit runs events, or queues them when a run is in progress. It reports
// whether the batch was queued.
func (r *serialRunner) submit(events []Event) bool {
	r.mu.Lock()
	if r.running {
		if r.pending == nil {
			r.pending = make(map[string]Event)
		}
		for _, e := range events {
			r.pending[e.Path] = e
		}
		r.mu.Unlock()
		return true
	}
	r.running = true
	r.mu.Unlock()

	for {
		r.run(events)

		r.mu.Lock()
		if len(r.pending) == 0 {
			r.running = false
			r.mu.Unlock()
			return false
		}
		events = sortedEvents(r.pending)
		r.pending = nil
		r.mu.Unlock()
	}
}
