package logic

import (
	"strings"
	"testing"

	"github.com/sweeney/button-blinker/internal/clock"
)

func newTestDispatcher(t *testing.T, mutate func(*Config)) *Dispatcher {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}
	return NewDispatcher(cfg)
}

func TestDispatcherInitialState(t *testing.T) {
	d := newTestDispatcher(t, nil)
	if got := d.State(); got != (SystemState{}) {
		t.Errorf("expected zero initial state, got %+v", got)
	}
}

func TestShortPressCountsAndFlashes(t *testing.T) {
	d := newTestDispatcher(t, nil)

	r := d.Dispatch(Short, 300, 1000)
	if r.Kind != ReportCount {
		t.Errorf("expected COUNT, got %s", r.Kind)
	}
	if r.State.PressCount != 1 {
		t.Errorf("expected count 1, got %d", r.State.PressCount)
	}
	if !strings.Contains(r.Message, "1") {
		t.Errorf("message should carry the count: %q", r.Message)
	}

	on, changed := d.Reconcile(1000)
	if !on || !changed {
		t.Fatalf("expected flash on, got on=%v changed=%v", on, changed)
	}

	// Still on before feedback expires
	if on, changed := d.Reconcile(1199); !on || changed {
		t.Errorf("at 199ms: expected on/unchanged, got on=%v changed=%v", on, changed)
	}

	// Off at 200ms
	on, changed = d.Reconcile(1200)
	if on || !changed {
		t.Errorf("at 200ms: expected off/changed, got on=%v changed=%v", on, changed)
	}
	if d.State().OutputOn {
		t.Error("OutputOn should be false after flash")
	}
	if d.State().LastTransition != 1200 {
		t.Errorf("expected LastTransition 1200, got %d", d.State().LastTransition)
	}
}

func TestMediumWithZeroCountIsInvalid(t *testing.T) {
	d := newTestDispatcher(t, nil)

	before := d.State()
	r := d.Dispatch(Medium, 2000, 500)
	if r.Kind != ReportInvalid {
		t.Errorf("expected INVALID, got %s", r.Kind)
	}
	if r.Message == "" {
		t.Error("expected a diagnostic message")
	}
	if d.State() != before {
		t.Errorf("state changed on invalid transition: %+v", d.State())
	}
	if d.State().BlinkEnabled {
		t.Error("blink should remain disabled")
	}
	if _, changed := d.Reconcile(600); changed {
		t.Error("output should not change")
	}
}

func TestThreeShortsThenMediumBlinks(t *testing.T) {
	d := newTestDispatcher(t, nil)

	now := clock.Millis(0)
	for i := 0; i < 3; i++ {
		d.Dispatch(Short, 200, now)
		d.Reconcile(now)
		now += 1000
		d.Reconcile(now)
	}
	if d.State().PressCount != 3 {
		t.Fatalf("expected count 3, got %d", d.State().PressCount)
	}

	r := d.Dispatch(Medium, 2000, now)
	if r.Kind != ReportBlinkStart {
		t.Fatalf("expected BLINK_START, got %s", r.Kind)
	}
	if !r.State.BlinkEnabled {
		t.Error("expected BlinkEnabled")
	}
	if r.State.BlinkPeriod != 3*DefaultBaseInterval {
		t.Errorf("expected period %d, got %d", 3*DefaultBaseInterval, r.State.BlinkPeriod)
	}

	start := now
	period := 3 * DefaultBaseInterval
	if on, _ := d.Reconcile(start); on {
		t.Error("blink should start low")
	}

	// Toggles indefinitely at the period.
	want := false
	for k := clock.Millis(1); k <= 20; k++ {
		want = !want
		on, changed := d.Reconcile(start + k*period)
		if on != want || !changed {
			t.Fatalf("period %d: got on=%v changed=%v, want on=%v changed=true", k, on, changed, want)
		}
		if on2, changed2 := d.Reconcile(start + k*period + period - 1); on2 != want || changed2 {
			t.Fatalf("period %d: level moved before next toggle", k)
		}
	}
}

func TestMediumCancelsActiveFlash(t *testing.T) {
	d := newTestDispatcher(t, nil)

	d.Dispatch(Short, 100, 0)
	if on, _ := d.Reconcile(0); !on {
		t.Fatal("expected flash on")
	}

	d.Dispatch(Medium, 2000, 50)
	on, changed := d.Reconcile(50)
	if on || !changed {
		t.Errorf("medium should drive the output low to start blinking, got on=%v changed=%v", on, changed)
	}
	// The stale flash must not bring the output back before the first toggle.
	if on, _ := d.Reconcile(150); on {
		t.Error("stale flash fought the blink")
	}
}

func TestLongResetsState(t *testing.T) {
	d := newTestDispatcher(t, nil)

	d.Dispatch(Short, 100, 0)
	d.Dispatch(Short, 100, 1000)
	d.Dispatch(Medium, 2000, 2000)
	d.Reconcile(3000) // toggled high

	r := d.Dispatch(Long, 5000, 3100)
	if r.Kind != ReportReset {
		t.Errorf("expected RESET, got %s", r.Kind)
	}
	st := d.State()
	if st.PressCount != 0 || st.BlinkEnabled || st.OutputOn || st.BlinkPeriod != 0 {
		t.Errorf("expected reset state, got %+v", st)
	}

	on, changed := d.Reconcile(3100)
	if on || !changed {
		t.Errorf("expected output forced low, got on=%v changed=%v", on, changed)
	}

	// No stray toggle afterwards.
	for now := clock.Millis(3100); now < 20000; now += 250 {
		if on, changed := d.Reconcile(now); on || changed {
			t.Fatalf("stray output activity at %d: on=%v changed=%v", now, on, changed)
		}
	}
}

func TestLongIsIdempotent(t *testing.T) {
	d := newTestDispatcher(t, nil)
	d.Dispatch(Short, 100, 0)
	d.Dispatch(Medium, 2000, 500)
	d.Reconcile(1000)

	d.Dispatch(Long, 5000, 2000)
	d.Reconcile(2000)
	once := d.State()

	d.Dispatch(Long, 5000, 2000)
	on, changed := d.Reconcile(2000)
	twice := d.State()

	if once != twice {
		t.Errorf("second LONG changed state: %+v -> %+v", once, twice)
	}
	if on {
		t.Error("output must stay low")
	}
	if !changed {
		t.Error("second LONG should still force the line low")
	}
	if twice.PressCount != 0 || twice.BlinkEnabled || twice.OutputOn {
		t.Errorf("expected initial values, got %+v", twice)
	}
}

func TestLongWhenIdle(t *testing.T) {
	d := newTestDispatcher(t, nil)
	r := d.Dispatch(Long, 4000, 100)
	if r.Kind != ReportReset {
		t.Errorf("expected RESET, got %s", r.Kind)
	}
	if d.Transitions() != 0 {
		t.Errorf("no transition expected when output already off, got %d", d.Transitions())
	}
}

func TestShortWhileBlinkingIgnored(t *testing.T) {
	d := newTestDispatcher(t, nil)
	d.Dispatch(Short, 100, 0)
	d.Dispatch(Short, 100, 500)
	d.Dispatch(Medium, 2000, 1000) // period 1000

	period := clock.Millis(1000)
	var levels []bool
	for k := clock.Millis(1); k <= 3; k++ {
		on, _ := d.Reconcile(1000 + k*period)
		levels = append(levels, on)
	}

	r := d.Dispatch(Short, 100, 4100)
	if r.Kind != ReportIgnored {
		t.Errorf("expected IGNORED, got %s", r.Kind)
	}
	if d.State().PressCount != 2 {
		t.Errorf("count should stay 2, got %d", d.State().PressCount)
	}

	// Cadence undisturbed: no change until the next scheduled toggle at 5000.
	if _, changed := d.Reconcile(4100); changed {
		t.Error("short press must not change the output while blinking")
	}
	if _, changed := d.Reconcile(4999); changed {
		t.Error("no toggle expected before 5000")
	}
	on, changed := d.Reconcile(5000)
	if !changed || on != !levels[2] {
		t.Errorf("expected scheduled toggle at 5000, got on=%v changed=%v", on, changed)
	}
}

func TestShortWhileBlinkingCountedWhenGuardOff(t *testing.T) {
	d := newTestDispatcher(t, func(c *Config) { c.CountWhileBlinking = true })
	d.Dispatch(Short, 100, 0)
	d.Dispatch(Medium, 2000, 500)

	r := d.Dispatch(Short, 100, 700)
	if r.Kind != ReportCount {
		t.Errorf("expected COUNT, got %s", r.Kind)
	}
	if d.State().PressCount != 2 {
		t.Errorf("expected count 2, got %d", d.State().PressCount)
	}
	if d.State().BlinkPeriod != DefaultBaseInterval {
		t.Errorf("period must not change, got %d", d.State().BlinkPeriod)
	}
	if on, changed := d.Reconcile(700); on || changed {
		t.Error("no flash while blinking")
	}
}

func TestMediumWhileBlinkingIgnoredByDefault(t *testing.T) {
	d := newTestDispatcher(t, nil)
	d.Dispatch(Short, 100, 0)
	d.Dispatch(Medium, 2000, 500)

	r := d.Dispatch(Medium, 2000, 800)
	if r.Kind != ReportIgnored {
		t.Errorf("expected IGNORED, got %s", r.Kind)
	}
	if d.State().BlinkPeriod != DefaultBaseInterval {
		t.Errorf("period changed: %d", d.State().BlinkPeriod)
	}
	// Phase unchanged: toggle still at 1000.
	if on, _ := d.Reconcile(1000); !on {
		t.Error("expected toggle at original phase")
	}
}

func TestMediumWhileBlinkingRestart(t *testing.T) {
	d := newTestDispatcher(t, func(c *Config) {
		c.MediumWhileBlinking = MediumRestart
		c.CountWhileBlinking = true
	})
	d.Dispatch(Short, 100, 0)
	d.Dispatch(Medium, 2000, 500) // period 500
	d.Dispatch(Short, 100, 600)   // count 2

	r := d.Dispatch(Medium, 2000, 800)
	if r.Kind != ReportBlinkRestart {
		t.Fatalf("expected BLINK_RESTART, got %s", r.Kind)
	}
	if r.State.BlinkPeriod != 2*DefaultBaseInterval {
		t.Errorf("expected period %d, got %d", 2*DefaultBaseInterval, r.State.BlinkPeriod)
	}
	if on, _ := d.Reconcile(1799); on {
		t.Error("should be low before first toggle of restarted phase")
	}
	if on, _ := d.Reconcile(1800); !on {
		t.Error("expected toggle one new period after restart")
	}
}

func TestBlinkPeriodClamped(t *testing.T) {
	if got := blinkPeriod(1<<31, 1000); got != maxPeriod {
		t.Errorf("expected clamp to %d, got %d", maxPeriod, got)
	}
	if got := blinkPeriod(3, 500); got != 1500 {
		t.Errorf("expected 1500, got %d", got)
	}
}
