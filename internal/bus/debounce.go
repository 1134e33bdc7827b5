package bus

import (
	"sync"
	"time"
)

// Debouncer coalesces a burst of triggers into a single deferred call to
// fn after a quiet period. Each trigger cancels and restarts the pending
// timer; a cancelled run simply never happens.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
}

// NewDebouncer creates a debouncer that calls fn once per quiet period.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Trigger schedules fn after the quiet period, replacing any pending run.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fn)
}

// Stop cancels any pending run. Safe to call multiple times.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// SubscribeDebounced registers a debounced listener for ev: bursts of the
// same event collapse into one call to fn after the delay. The returned
// teardown unsubscribes and cancels any pending run.
func SubscribeDebounced(b *Bus, ev Event, delay time.Duration, fn func()) (unsubscribe func()) {
	d := NewDebouncer(delay, fn)
	unsub := b.Subscribe(ev, d.Trigger)
	return func() {
		unsub()
		d.Stop()
	}
}
