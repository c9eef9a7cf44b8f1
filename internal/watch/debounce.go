package watch

import (
	"context"
	"sync"
	"time"
)

// State is the debouncer's position in its idle → pending → rebuilding cycle.
type State string

const (
	StateIdle       State = "idle"
	StatePending    State = "pending"
	StateRebuilding State = "rebuilding"
)

// DefaultDelay is the quiet period used when none is configured.
const DefaultDelay = 300 * time.Millisecond

// Debouncer coalesces bursts of Trigger calls into single rebuilds. A
// rebuild never overlaps another; triggers that settle while one is
// running produce exactly one follow-up rebuild.
type Debouncer struct {
	delay   time.Duration
	rebuild func(context.Context)

	mu       sync.Mutex
	timer    *time.Timer
	timing   bool
	running  bool
	requests chan struct{}
}

// NewDebouncer creates a debouncer calling rebuild after delay of quiet.
func NewDebouncer(delay time.Duration, rebuild func(context.Context)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{
		delay:    delay,
		rebuild:  rebuild,
		requests: make(chan struct{}, 1),
	}
}

// Trigger records a change and restarts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timing = true
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	d.timing = false
	d.mu.Unlock()
	select {
	case d.requests <- struct{}{}:
	default:
	}
}

// State reports the current state.
func (d *Debouncer) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.running:
		return StateRebuilding
	case d.timing || len(d.requests) > 0:
		return StatePending
	default:
		return StateIdle
	}
}

// Run processes rebuild requests sequentially until ctx is done.
func (d *Debouncer) Run(ctx context.Context) {
	defer d.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.requests:
			d.mu.Lock()
			d.running = true
			d.mu.Unlock()

			d.rebuild(ctx)

			d.mu.Lock()
			d.running = false
			d.mu.Unlock()
		}
	}
}

// Stop cancels a pending quiet-period timer.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timing = false
}
