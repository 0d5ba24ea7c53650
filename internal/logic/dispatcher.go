package logic

import (
	"fmt"

	"github.com/sweeney/button-blinker/internal/clock"
)

// maxPeriod keeps blink periods well inside the wraparound window of Since.
const maxPeriod clock.Millis = 1<<31 - 1

// Dispatcher applies classified presses to SystemState and owns the single
// output intent shared by the feedback flash and the periodic blink.
type Dispatcher struct {
	cfg   Config
	state SystemState
	blink Blinker

	flashing   bool
	flashStart clock.Millis
	forceLow   bool

	transitions int
}

// NewDispatcher creates a dispatcher in the initial state.
func NewDispatcher(cfg Config) *Dispatcher {
	return &Dispatcher{cfg: cfg}
}

// Dispatch applies one classification at time now.
func (d *Dispatcher) Dispatch(c Classification, duration, now clock.Millis) Report {
	r := Report{Time: now, Classification: c, Duration: duration}

	switch c {
	case Short:
		r.Kind, r.Message = d.short(now)
	case Medium:
		r.Kind, r.Message = d.medium(now)
	case Long:
		r.Kind, r.Message = d.long(now)
	}

	r.State = d.state
	return r
}

func (d *Dispatcher) short(now clock.Millis) (ReportKind, string) {
	if d.state.BlinkEnabled {
		if !d.cfg.CountWhileBlinking {
			return ReportIgnored, "short press ignored while blinking"
		}
		// Counted, but the blink keeps the output.
		d.state.PressCount++
		return ReportCount, fmt.Sprintf("short press number %d", d.state.PressCount)
	}

	d.state.PressCount++
	d.flashing = true
	d.flashStart = now
	return ReportCount, fmt.Sprintf("short press number %d", d.state.PressCount)
}

func (d *Dispatcher) medium(now clock.Millis) (ReportKind, string) {
	if d.state.PressCount == 0 {
		return ReportInvalid, "medium press with no counted presses, nothing to blink"
	}

	kind := ReportBlinkStart
	if d.state.BlinkEnabled {
		if d.cfg.MediumWhileBlinking != MediumRestart {
			return ReportIgnored, fmt.Sprintf("medium press ignored, already blinking every %dms", d.state.BlinkPeriod)
		}
		kind = ReportBlinkRestart
	}

	period := blinkPeriod(d.state.PressCount, d.cfg.BaseInterval)
	d.flashing = false
	d.blink.Start(period, now)
	d.state.BlinkEnabled = true
	d.state.BlinkPeriod = period

	if kind == ReportBlinkRestart {
		return kind, fmt.Sprintf("medium press, blinking restarted every %dms (count %d)", period, d.state.PressCount)
	}
	return kind, fmt.Sprintf("medium press, blinking every %dms (count %d)", period, d.state.PressCount)
}

// long disables the periodic source before the output is forced low, so no
// toggle can land after the reset.
func (d *Dispatcher) long(now clock.Millis) (ReportKind, string) {
	d.Halt(now)
	d.state.PressCount = 0

	return ReportReset, "long press, system reset: blinking stopped, output off"
}

// Halt stops the blink and any flash and forces the output low on the next
// Reconcile. The press count is kept.
func (d *Dispatcher) Halt(now clock.Millis) {
	d.blink.Stop()
	d.flashing = false

	if d.state.OutputOn {
		d.state.OutputOn = false
		d.state.LastTransition = now
		d.transitions++
	}
	d.forceLow = true

	d.state.BlinkEnabled = false
	d.state.BlinkPeriod = 0
}

func blinkPeriod(count uint32, base clock.Millis) clock.Millis {
	p := uint64(count) * uint64(base)
	if p > uint64(maxPeriod) {
		return maxPeriod
	}
	return clock.Millis(p)
}

// intent returns the level the output should have at now.
func (d *Dispatcher) intent(now clock.Millis) bool {
	if d.state.BlinkEnabled {
		return d.blink.Level(now)
	}
	if d.flashing {
		if clock.Since(now, d.flashStart) >= d.cfg.Feedback {
			d.flashing = false
			return false
		}
		return true
	}
	return false
}

// Reconcile updates the output intent at now. It returns the level and
// whether the physical line must be driven. After a reset the line is always
// driven low once, even if the state already says off.
func (d *Dispatcher) Reconcile(now clock.Millis) (on, changed bool) {
	want := d.intent(now)

	if d.forceLow {
		d.forceLow = false
		return false, true
	}
	if want == d.state.OutputOn {
		return want, false
	}

	d.state.OutputOn = want
	d.state.LastTransition = now
	d.transitions++
	return want, true
}

// State returns a copy of the current state.
func (d *Dispatcher) State() SystemState {
	return d.state
}

// Transitions returns the number of output level changes since startup.
func (d *Dispatcher) Transitions() int {
	return d.transitions
}
