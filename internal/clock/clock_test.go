package clock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestSinceWraparound(t *testing.T) {
	t1 := Millis(0xFFFFFFF0)
	t2 := Millis(0x00000010)

	got := Since(t2, t1)
	if got != 0x20 {
		t.Errorf("Since(0x10, 0xFFFFFFF0): got %#x, want 0x20", uint32(got))
	}
}

func TestSinceOrdinary(t *testing.T) {
	if got := Since(1500, 0); got != 1500 {
		t.Errorf("got %d, want 1500", got)
	}
	if got := Since(42, 42); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
}

func TestCounterTickAndAdvance(t *testing.T) {
	c := NewCounter(10)
	if c.Now() != 10 {
		t.Fatalf("start: got %d, want 10", c.Now())
	}

	c.Tick()
	c.Tick()
	if c.Now() != 12 {
		t.Errorf("after 2 ticks: got %d, want 12", c.Now())
	}

	c.Advance(1000)
	if c.Now() != 1012 {
		t.Errorf("after advance: got %d, want 1012", c.Now())
	}
}

func TestCounterWrapsAt32Bits(t *testing.T) {
	c := NewCounter(0xFFFFFFFF)
	before := c.Now()
	c.Tick()
	after := c.Now()

	if after != 0 {
		t.Errorf("expected wrap to 0, got %d", after)
	}
	if Since(after, before) != 1 {
		t.Errorf("elapsed across wrap: got %d, want 1", Since(after, before))
	}
}

func TestCounterConcurrentTicks(t *testing.T) {
	c := NewCounter(0)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				c.Tick()
				_ = c.Now()
			}
		}()
	}
	wg.Wait()

	if c.Now() != 8000 {
		t.Errorf("got %d, want 8000", c.Now())
	}
}

func TestCounterRunAdvances(t *testing.T) {
	c := NewCounter(0)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for c.Now() < 20 {
		select {
		case <-deadline:
			cancel()
			t.Fatalf("counter did not advance, at %d", c.Now())
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
	cancel()
	<-done

	stopped := c.Now()
	time.Sleep(20 * time.Millisecond)
	if c.Now() != stopped {
		t.Errorf("counter advanced after cancel: %d -> %d", stopped, c.Now())
	}
}

func TestDurationConversions(t *testing.T) {
	if got := Millis(1500).Duration(); got != 1500*time.Millisecond {
		t.Errorf("Duration: got %v", got)
	}
	if got := FromDuration(2*time.Second + 999*time.Microsecond); got != 2000 {
		t.Errorf("FromDuration: got %d, want 2000", got)
	}
}
