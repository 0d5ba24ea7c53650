package mqtt

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/sweeney/button-blinker/internal/logic"
)

// DefaultQueueSize is the Forwarder queue length used when none is given.
const DefaultQueueSize = 64

type queued struct {
	report logic.Report
	system *SystemEvent
	at     time.Time
}

// Forwarder moves reports and system events from the control loop to a
// Publisher on its own goroutine so a slow broker never stalls the loop.
type Forwarder struct {
	pub     Publisher
	queue   chan queued
	now     func() time.Time
	dropped atomic.Uint64
	sent    atomic.Uint64
}

// NewForwarder creates a Forwarder with a queue of the given size.
func NewForwarder(pub Publisher, size int, now func() time.Time) *Forwarder {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if now == nil {
		now = time.Now
	}
	return &Forwarder{
		pub:   pub,
		queue: make(chan queued, size),
		now:   now,
	}
}

// Enqueue stamps the report with the wall clock and queues it. It never
// blocks; when the queue is full the report is dropped and false is returned.
func (f *Forwarder) Enqueue(report logic.Report) bool {
	select {
	case f.queue <- queued{report: report, at: f.now()}:
		return true
	default:
		n := f.dropped.Add(1)
		log.Printf("mqtt: forward queue full, dropped %s report (%d total)", report.Kind, n)
		return false
	}
}

// EnqueueSystem queues a system event. Like Enqueue it never blocks.
func (f *Forwarder) EnqueueSystem(ev SystemEvent) bool {
	select {
	case f.queue <- queued{system: &ev, at: f.now()}:
		return true
	default:
		n := f.dropped.Add(1)
		log.Printf("mqtt: forward queue full, dropped %s event (%d total)", ev.Event, n)
		return false
	}
}

// Run publishes queued items until ctx is cancelled, then publishes
// whatever is still queued and returns.
func (f *Forwarder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case q := <-f.queue:
					f.publish(q)
				default:
					return
				}
			}
		case q := <-f.queue:
			f.publish(q)
		}
	}
}

func (f *Forwarder) publish(q queued) {
	var err error
	if q.system != nil {
		err = f.pub.PublishSystem(*q.system)
	} else {
		err = f.pub.Publish(q.report, q.at)
	}
	if err != nil {
		log.Printf("mqtt: %v", err)
		return
	}
	f.sent.Add(1)
}

// Dropped returns the number of items discarded because the queue was full.
func (f *Forwarder) Dropped() uint64 {
	return f.dropped.Load()
}

// Sent returns the number of items the publisher accepted.
func (f *Forwarder) Sent() uint64 {
	return f.sent.Load()
}
