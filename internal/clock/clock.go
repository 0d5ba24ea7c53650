// Package clock provides the millisecond time source shared by the control
// loop and its handlers.
//
// The counter is a single 32-bit word updated atomically, so a reader never
// observes a partially written value. It wraps after ~49.7 days; every
// duration must be computed with Since, which relies on unsigned wraparound.
package clock

import (
	"context"
	"sync/atomic"
	"time"
)

// Millis is a millisecond count since boot.
type Millis uint32

// Duration converts m to a time.Duration.
func (m Millis) Duration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// FromDuration converts d to whole milliseconds, truncating.
func FromDuration(d time.Duration) Millis {
	return Millis(d / time.Millisecond)
}

// Since returns now - then using unsigned arithmetic. It is correct across a
// single wrap of the counter.
func Since(now, then Millis) Millis {
	return now - then
}

// Source returns the current millisecond count.
type Source interface {
	Now() Millis
}

// Counter is a Source incremented by a periodic tick.
type Counter struct {
	ms atomic.Uint32
}

// NewCounter returns a Counter starting at start.
func NewCounter(start Millis) *Counter {
	c := &Counter{}
	c.ms.Store(uint32(start))
	return c
}

// Now returns the current count. Safe to call from any goroutine.
func (c *Counter) Now() Millis {
	return Millis(c.ms.Load())
}

// Tick advances the counter by one millisecond.
func (c *Counter) Tick() {
	c.ms.Add(1)
}

// Advance moves the counter forward by n milliseconds.
func (c *Counter) Advance(n Millis) {
	c.ms.Add(uint32(n))
}

// Run ticks the counter from a time.Ticker until ctx is done. Each firing
// adds the elapsed wall time in whole milliseconds, so a late wakeup does
// not lose time.
func (c *Counter) Run(ctx context.Context, period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	var carry time.Duration
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			carry += now.Sub(last)
			last = now
			if n := carry / time.Millisecond; n > 0 {
				c.Advance(Millis(n))
				carry -= n * time.Millisecond
			}
		}
	}
}
