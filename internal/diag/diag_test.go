package diag

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/sweeney/button-blinker/internal/logic"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("port gone") }

func TestFormatLine(t *testing.T) {
	r := logic.Report{
		Time:           12345,
		Kind:           logic.ReportBlinkStart,
		Classification: logic.Medium,
		Duration:       2100,
		Message:        "medium press, blinking every 1500ms (count 3)",
		State:          logic.SystemState{PressCount: 3, BlinkEnabled: true, BlinkPeriod: 1500},
	}

	line := FormatLine(r)
	for _, want := range []string{"12345", "MEDIUM", "2100ms", "BLINK_START", "count=3", "blink=1500ms", r.Message} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if strings.Contains(line, "\n") {
		t.Error("line must be a single line")
	}
}

func TestFormatLineNotBlinking(t *testing.T) {
	line := FormatLine(logic.Report{Kind: logic.ReportReset, Classification: logic.Long, Duration: 4000})
	if !strings.Contains(line, "blink=off") {
		t.Errorf("expected blink=off in %q", line)
	}
}

func TestConsoleWritesQueuedLines(t *testing.T) {
	var out syncBuffer
	c := NewConsole(&out, 8)

	c.Println("System Ready.")
	c.Report(logic.Report{Kind: logic.ReportCount, Classification: logic.Short, Message: "short press number 1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Run(ctx)

	got := out.String()
	lines := strings.Split(strings.TrimSuffix(got, "\r\n"), "\r\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", got)
	}
	if lines[0] != "System Ready." {
		t.Errorf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "short press number 1") {
		t.Errorf("unexpected second line %q", lines[1])
	}
}

func TestConsoleDropsWhenFull(t *testing.T) {
	c := NewConsole(&syncBuffer{}, 1)
	c.Println("one")
	c.Println("two")

	if c.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", c.Dropped())
	}
}

func TestConsoleLogOnly(t *testing.T) {
	c := NewConsole(nil, 0)
	c.Println("only logged")

	if len(c.lines) != 0 {
		t.Error("log-only console should not queue")
	}
	c.Run(context.Background()) // must return immediately
}

func TestConsoleSurvivesWriteError(t *testing.T) {
	c := NewConsole(failWriter{}, 4)
	c.Println("a")
	c.Println("b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Run(ctx)

	if len(c.lines) != 0 {
		t.Error("queue should be drained despite write errors")
	}
}

func TestOpenSerialMissingPort(t *testing.T) {
	if _, err := OpenSerial("/dev/does-not-exist-blinker", 9600); err == nil {
		t.Error("expected error for missing port")
	}
}
