package logic

import "github.com/sweeney/button-blinker/internal/clock"

// EdgeDetector turns raw button levels into debounced press events.
//
// A transition is accepted only when at least the debounce interval has
// passed since the previous accepted transition. Rejected transitions do not
// move that timestamp.
type EdgeDetector struct {
	debounce     clock.Millis
	pressed      bool
	primed       bool
	lastAccepted clock.Millis
	pressTime    clock.Millis
	missed       bool
	rejected     uint64
}

// NewEdgeDetector creates a detector with the given debounce interval. The
// button is assumed released at startup.
func NewEdgeDetector(debounce clock.Millis) *EdgeDetector {
	return &EdgeDetector{debounce: debounce}
}

// Process takes the current level and returns an event if it is an accepted
// transition.
//
// For edge-triggered input the caller passes the level read at dispatch
// time, not the level implied by the edge: the line may have moved again
// since the notification was raised.
func (d *EdgeDetector) Process(pressed bool, now clock.Millis) (ButtonEvent, bool) {
	if pressed == d.pressed {
		d.missed = false
		return ButtonEvent{}, false
	}

	if d.primed && clock.Since(now, d.lastAccepted) < d.debounce {
		d.missed = true
		d.rejected++
		return ButtonEvent{}, false
	}

	d.primed = true
	d.lastAccepted = now
	d.pressed = pressed
	d.missed = false

	if pressed {
		d.pressTime = now
		return ButtonEvent{Type: EventPressStarted, Time: now}, true
	}
	return ButtonEvent{
		Type:     EventPressEnded,
		Time:     now,
		Duration: clock.Since(now, d.pressTime),
	}, true
}

// Unsettled reports whether a transition was rejected and the debounce window
// has closed since. Edge-triggered callers re-sample the line when this is
// true, because no further notification may arrive.
func (d *EdgeDetector) Unsettled(now clock.Millis) bool {
	return d.missed && clock.Since(now, d.lastAccepted) >= d.debounce
}

// Pressed returns the last accepted level.
func (d *EdgeDetector) Pressed() bool {
	return d.pressed
}

// Rejected returns the number of transitions discarded as bounce.
func (d *EdgeDetector) Rejected() uint64 {
	return d.rejected
}
