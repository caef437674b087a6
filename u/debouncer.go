package u

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls into a single call that runs
// Timeout after the first call of the burst.
type Debouncer struct {
	Timeout time.Duration

	mu    sync.Mutex
	timer *time.Timer
	f     func()
	// incremented every time a timer is started. A timer only runs f
	// if it's still the current one
	gen uint64

	// held while running f so that Flush() can wait for
	// a run started by the timer
	runMu sync.Mutex
}

// Debounce schedules f to run after Timeout. If a call is already pending
// it's not re-scheduled but f replaces the pending function.
func (d *Debouncer) Debounce(f func()) {
	PanicIf(d.Timeout == 0, "debounce timeout is 0")
	d.mu.Lock()
	defer d.mu.Unlock()
	d.f = f
	if d.timer != nil {
		return
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.Timeout, func() { d.run(gen) })
}

// take grabs and clears the pending function
func (d *Debouncer) take() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	f := d.f
	d.f = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return f
}

// takeIfCurrent is like take but only if the timer that fired
// wasn't stopped or replaced in the meantime
func (d *Debouncer) takeIfCurrent(gen uint64) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil || d.gen != gen {
		return nil
	}
	f := d.f
	d.f = nil
	d.timer = nil
	return f
}

func (d *Debouncer) run(gen uint64) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if f := d.takeIfCurrent(gen); f != nil {
		f()
	}
}

// Flush runs the pending function (if any) on the calling goroutine.
// If the timer already started running it, waits for it to finish.
// Returns true if it ran the pending function.
func (d *Debouncer) Flush() bool {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	f := d.take()
	if f == nil {
		return false
	}
	f()
	return true
}

// Pending returns true if a call is scheduled but didn't run yet
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.f != nil
}
