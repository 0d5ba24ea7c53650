package logic

import (
	"sync/atomic"

	"github.com/sweeney/button-blinker/internal/clock"
)

// DefaultInboxSize is the default capacity of an Inbox.
const DefaultInboxSize = 32

// Notification is raised by an edge handler. It carries only the time of the
// edge; the level is sampled when the notification is dispatched.
type Notification struct {
	Time clock.Millis
}

// Inbox is a bounded queue from an edge handler to the control loop.
// Notify is called only by the handler, Drain only by the loop.
type Inbox struct {
	ch      chan Notification
	dropped atomic.Uint64
}

// NewInbox creates an inbox holding up to size notifications.
func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{ch: make(chan Notification, size)}
}

// Notify queues a notification without blocking. When the inbox is full the
// notification is dropped and counted.
func (i *Inbox) Notify(t clock.Millis) {
	select {
	case i.ch <- Notification{Time: t}:
	default:
		i.dropped.Add(1)
	}
}

// C exposes the queue so the loop can select on it.
func (i *Inbox) C() <-chan Notification {
	return i.ch
}

// Drain hands every queued notification to fn and returns how many there were.
func (i *Inbox) Drain(fn func(Notification)) int {
	n := 0
	for {
		select {
		case note := <-i.ch:
			fn(note)
			n++
		default:
			return n
		}
	}
}

// Dropped returns how many notifications were lost to a full inbox.
func (i *Inbox) Dropped() uint64 {
	return i.dropped.Load()
}
