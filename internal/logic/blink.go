package logic

import "github.com/sweeney/button-blinker/internal/clock"

// Blinker toggles a level every period, measured from the previous toggle.
// It is polled from the control loop against the time source.
type Blinker struct {
	enabled    bool
	period     clock.Millis
	level      bool
	lastToggle clock.Millis
}

// Start enables blinking with the given period. The level starts low and the
// first toggle happens one period after now.
func (b *Blinker) Start(period, now clock.Millis) {
	if period == 0 {
		period = 1
	}
	b.period = period
	b.level = false
	b.lastToggle = now
	b.enabled = true
}

// Stop disables blinking and forces the level low.
func (b *Blinker) Stop() {
	b.enabled = false
	b.level = false
}

// Enabled reports whether the blinker is running.
func (b *Blinker) Enabled() bool {
	return b.enabled
}

// Period returns the configured period.
func (b *Blinker) Period() clock.Millis {
	return b.period
}

// Level advances the blinker to now and returns the current level. If several
// periods have elapsed since the last poll, all of them are applied so the
// cadence stays aligned with the original start.
func (b *Blinker) Level(now clock.Millis) bool {
	if !b.enabled {
		return false
	}
	elapsed := clock.Since(now, b.lastToggle)
	if elapsed < b.period {
		return b.level
	}
	n := elapsed / b.period
	if n%2 == 1 {
		b.level = !b.level
	}
	b.lastToggle += n * b.period
	return b.level
}
