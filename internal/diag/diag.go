// Package diag writes the human-readable diagnostic channel: one line per
// press decision, mirrored from the process log to an optional console.
package diag

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"github.com/sweeney/button-blinker/internal/logic"
)

// DefaultQueueSize bounds the lines waiting for a slow console.
const DefaultQueueSize = 64

// Console writes diagnostic lines to the log and, if set, to w.
// Writes to w happen on the Run goroutine so a stalled serial port never
// blocks the caller.
type Console struct {
	w       io.Writer
	lines   chan string
	dropped atomic.Uint64
}

// NewConsole creates a Console. w may be nil for log-only output.
func NewConsole(w io.Writer, size int) *Console {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Console{w: w, lines: make(chan string, size)}
}

// Println logs line and queues it for the console.
func (c *Console) Println(line string) {
	log.Printf("diag: %s", line)
	if c.w == nil {
		return
	}
	select {
	case c.lines <- line:
	default:
		c.dropped.Add(1)
	}
}

// Report writes the line for a dispatcher decision.
func (c *Console) Report(r logic.Report) {
	c.Println(FormatLine(r))
}

// Run copies queued lines to the console until ctx is done, then writes
// whatever is still queued. It returns immediately for a log-only Console.
func (c *Console) Run(ctx context.Context) {
	if c.w == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case line := <-c.lines:
					c.write(line)
				default:
					return
				}
			}
		case line := <-c.lines:
			c.write(line)
		}
	}
}

func (c *Console) write(line string) {
	if _, err := io.WriteString(c.w, line+"\r\n"); err != nil {
		log.Printf("diag: console write: %v", err)
	}
}

// Dropped returns the number of lines discarded because the queue was full.
func (c *Console) Dropped() uint64 {
	return c.dropped.Load()
}

// FormatLine renders a report as a single console line, prefixed with the
// uptime in milliseconds.
func FormatLine(r logic.Report) string {
	s := r.State
	blink := "off"
	if s.BlinkEnabled {
		blink = fmt.Sprintf("%dms", s.BlinkPeriod)
	}
	return fmt.Sprintf("[%10d] %-6s %5dms %-13s %s (count=%d blink=%s)",
		r.Time, r.Classification, r.Duration, r.Kind, r.Message, s.PressCount, blink)
}
