package logic

import (
	"testing"

	"github.com/sweeney/button-blinker/internal/clock"
)

func TestNewEdgeDetector(t *testing.T) {
	d := NewEdgeDetector(50)
	if d == nil {
		t.Fatal("NewEdgeDetector returned nil")
	}
	if d.debounce != 50 {
		t.Errorf("expected debounce 50, got %d", d.debounce)
	}
	if d.Pressed() {
		t.Error("new detector should start released")
	}
	if d.Rejected() != 0 {
		t.Errorf("expected 0 rejections, got %d", d.Rejected())
	}
}

func TestNoEventForStableLevel(t *testing.T) {
	d := NewEdgeDetector(50)
	for i := 0; i < 10; i++ {
		if _, ok := d.Process(false, clock.Millis(i*10)); ok {
			t.Errorf("iteration %d: expected no event for stable released level", i)
		}
	}
}

func TestPressAndRelease(t *testing.T) {
	d := NewEdgeDetector(50)

	ev, ok := d.Process(true, 1000)
	if !ok {
		t.Fatal("expected PRESS_STARTED")
	}
	if ev.Type != EventPressStarted {
		t.Errorf("expected PRESS_STARTED, got %s", ev.Type)
	}
	if ev.Time != 1000 {
		t.Errorf("expected time 1000, got %d", ev.Time)
	}

	// Held, no new event
	if _, ok := d.Process(true, 1500); ok {
		t.Error("expected no event while held")
	}

	ev, ok = d.Process(false, 2200)
	if !ok {
		t.Fatal("expected PRESS_ENDED")
	}
	if ev.Type != EventPressEnded {
		t.Errorf("expected PRESS_ENDED, got %s", ev.Type)
	}
	if ev.Duration != 1200 {
		t.Errorf("expected duration 1200, got %d", ev.Duration)
	}
}

func TestFirstTransitionAcceptedImmediately(t *testing.T) {
	// The clock starts at 0; a press at 10ms must not be treated as bounce.
	d := NewEdgeDetector(50)
	if _, ok := d.Process(true, 10); !ok {
		t.Error("first transition should be accepted regardless of debounce")
	}
}

func TestDebounceRejectsFastTransition(t *testing.T) {
	d := NewEdgeDetector(50)

	if _, ok := d.Process(true, 100); !ok {
		t.Fatal("expected press accepted")
	}
	// Bounce 49ms later
	if _, ok := d.Process(false, 149); ok {
		t.Error("transition 49ms after accepted one should be rejected")
	}
	if d.Rejected() != 1 {
		t.Errorf("expected 1 rejection, got %d", d.Rejected())
	}
	if !d.Pressed() {
		t.Error("level should remain pressed after rejection")
	}
}

func TestDebounceAcceptsAtInterval(t *testing.T) {
	d := NewEdgeDetector(50)

	d.Process(true, 100)
	ev, ok := d.Process(false, 150)
	if !ok {
		t.Fatal("transition exactly 50ms later should be accepted")
	}
	if ev.Duration != 50 {
		t.Errorf("expected duration 50, got %d", ev.Duration)
	}
}

func TestDebounceDoesNotRetrigger(t *testing.T) {
	// Rejected transitions must not push the window forward.
	d := NewEdgeDetector(50)

	d.Process(true, 0)
	d.Process(false, 20) // rejected
	d.Process(true, 30)  // same as accepted level, no transition
	d.Process(false, 40) // rejected

	if _, ok := d.Process(false, 50); !ok {
		t.Error("release 50ms after the accepted press should be accepted")
	}
	if d.Rejected() != 2 {
		t.Errorf("expected 2 rejections, got %d", d.Rejected())
	}
}

func TestDebounceTwoTransitions(t *testing.T) {
	tests := []struct {
		name string
		gap  clock.Millis
		want int
	}{
		{"under debounce", 49, 1},
		{"at debounce", 50, 2},
		{"over debounce", 120, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewEdgeDetector(50)
			got := 0
			if _, ok := d.Process(true, 500); ok {
				got++
			}
			if _, ok := d.Process(false, 500+tt.gap); ok {
				got++
			}
			if got != tt.want {
				t.Errorf("expected %d accepted events, got %d", tt.want, got)
			}
		})
	}
}

func TestUnsettledAfterSwallowedRelease(t *testing.T) {
	d := NewEdgeDetector(50)

	d.Process(true, 100)
	d.Process(false, 120) // swallowed

	if d.Unsettled(130) {
		t.Error("should not be unsettled inside the debounce window")
	}
	if !d.Unsettled(150) {
		t.Error("should be unsettled once the window closes")
	}

	ev, ok := d.Process(false, 150)
	if !ok || ev.Type != EventPressEnded {
		t.Fatalf("re-sample should accept the release, got %+v ok=%v", ev, ok)
	}
	if d.Unsettled(500) {
		t.Error("should be settled after the re-sample")
	}
}

func TestUnsettledClearedWhenLevelReturns(t *testing.T) {
	d := NewEdgeDetector(50)

	d.Process(true, 100)
	d.Process(false, 110) // swallowed bounce
	d.Process(true, 200)  // line is back to the accepted level

	if d.Unsettled(300) {
		t.Error("bounce that returned to the accepted level should not need a re-sample")
	}
}

func TestDurationAcrossWraparound(t *testing.T) {
	d := NewEdgeDetector(50)

	d.Process(true, 0xFFFFFFF0)
	ev, ok := d.Process(false, 0x00000010+100)
	if !ok {
		t.Fatal("expected release accepted across wrap")
	}
	if ev.Duration != 0x20+100 {
		t.Errorf("expected duration %d, got %d", 0x20+100, ev.Duration)
	}
}
