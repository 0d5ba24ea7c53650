package logic

import (
	"sync"
	"testing"

	"github.com/sweeney/button-blinker/internal/clock"
)

func TestInboxDrainOrder(t *testing.T) {
	in := NewInbox(4)
	in.Notify(10)
	in.Notify(20)
	in.Notify(30)

	var got []clock.Millis
	n := in.Drain(func(note Notification) {
		got = append(got, note.Time)
	})
	if n != 3 {
		t.Fatalf("expected 3 drained, got %d", n)
	}
	for i, want := range []clock.Millis{10, 20, 30} {
		if got[i] != want {
			t.Errorf("item %d: got %d, want %d", i, got[i], want)
		}
	}

	if n := in.Drain(func(Notification) {}); n != 0 {
		t.Errorf("second drain: expected 0, got %d", n)
	}
}

func TestInboxDropsWhenFull(t *testing.T) {
	in := NewInbox(2)
	in.Notify(1)
	in.Notify(2)
	in.Notify(3) // dropped, must not block

	if in.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", in.Dropped())
	}
	if n := in.Drain(func(Notification) {}); n != 2 {
		t.Errorf("expected 2 queued, got %d", n)
	}
}

func TestInboxDefaultSize(t *testing.T) {
	in := NewInbox(0)
	if cap(in.ch) != DefaultInboxSize {
		t.Errorf("expected capacity %d, got %d", DefaultInboxSize, cap(in.ch))
	}
}

func TestInboxConcurrentNotify(t *testing.T) {
	in := NewInbox(1000)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				in.Notify(clock.Millis(j))
			}
		}()
	}
	wg.Wait()

	if n := in.Drain(func(Notification) {}); n != 400 {
		t.Errorf("expected 400, got %d", n)
	}
	if in.Dropped() != 0 {
		t.Errorf("expected no drops, got %d", in.Dropped())
	}
}
