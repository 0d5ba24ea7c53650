package logic

import (
	"testing"

	"github.com/sweeney/button-blinker/internal/clock"
)

func TestBlinkerDisabledIsLow(t *testing.T) {
	var b Blinker
	for _, now := range []clock.Millis{0, 500, 1000, 99999} {
		if b.Level(now) {
			t.Errorf("disabled blinker high at %d", now)
		}
	}
}

func TestBlinkerTogglesEveryPeriod(t *testing.T) {
	var b Blinker
	b.Start(1500, 1000)

	tests := []struct {
		now  clock.Millis
		want bool
	}{
		{1000, false},
		{2499, false},
		{2500, true},
		{3999, true},
		{4000, false},
		{5500, true},
		{7000, false},
	}
	for _, tt := range tests {
		if got := b.Level(tt.now); got != tt.want {
			t.Errorf("Level(%d): got %v, want %v", tt.now, got, tt.want)
		}
	}
}

func TestBlinkerKeepsCadenceWhenPolledLate(t *testing.T) {
	var b Blinker
	b.Start(100, 0)

	// Poll late: 3.5 periods elapsed, odd number of toggles.
	if !b.Level(350) {
		t.Error("after 3 periods level should be high")
	}
	// Next toggle is still at 400, not 450.
	if b.Level(399) != true {
		t.Error("should still be high at 399")
	}
	if b.Level(400) != false {
		t.Error("should toggle low at 400")
	}
}

func TestBlinkerStopForcesLow(t *testing.T) {
	var b Blinker
	b.Start(100, 0)
	if !b.Level(100) {
		t.Fatal("expected high after one period")
	}

	b.Stop()
	if b.Enabled() {
		t.Error("expected disabled after Stop")
	}
	for _, now := range []clock.Millis{100, 200, 300, 10000} {
		if b.Level(now) {
			t.Errorf("stopped blinker high at %d", now)
		}
	}
}

func TestBlinkerAcrossWraparound(t *testing.T) {
	var b Blinker
	b.Start(100, 0xFFFFFFC0) // 64ms before wrap

	if b.Level(0xFFFFFFFF) {
		t.Error("should still be low before first period")
	}
	if !b.Level(0x24) { // 0xFFFFFFC0 + 100 wraps to 0x24
		t.Error("should toggle high one period after start, across wrap")
	}
}

func TestBlinkerZeroPeriodClamped(t *testing.T) {
	var b Blinker
	b.Start(0, 0)
	if b.Period() != 1 {
		t.Errorf("expected period clamped to 1, got %d", b.Period())
	}
}
