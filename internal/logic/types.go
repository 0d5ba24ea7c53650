// Package logic contains the pure press-classification state machine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via clock.Millis parameters.
package logic

import (
	"github.com/sweeney/button-blinker/internal/clock"
)

// Defaults, in milliseconds.
const (
	DefaultDebounce       clock.Millis = 50
	DefaultShortThreshold clock.Millis = 1500
	DefaultLongThreshold  clock.Millis = 4000
	DefaultFeedback       clock.Millis = 200
	DefaultBaseInterval   clock.Millis = 500
)

// EventType identifies an accepted button edge.
type EventType string

const (
	EventPressStarted EventType = "PRESS_STARTED"
	EventPressEnded   EventType = "PRESS_ENDED"
)

// ButtonEvent is a debounced edge. Duration is set only for PRESS_ENDED.
type ButtonEvent struct {
	Type     EventType
	Time     clock.Millis
	Duration clock.Millis
}

// Classification is the outcome of a completed press.
type Classification string

const (
	Short  Classification = "SHORT"
	Medium Classification = "MEDIUM"
	Long   Classification = "LONG"
)

// ReportKind identifies a dispatcher decision.
type ReportKind string

const (
	ReportCount        ReportKind = "COUNT"
	ReportIgnored      ReportKind = "IGNORED"
	ReportBlinkStart   ReportKind = "BLINK_START"
	ReportBlinkRestart ReportKind = "BLINK_RESTART"
	ReportInvalid      ReportKind = "INVALID"
	ReportReset        ReportKind = "RESET"
)

// MediumPolicy decides what a MEDIUM press does while already blinking.
type MediumPolicy string

const (
	MediumIgnore  MediumPolicy = "ignore"
	MediumRestart MediumPolicy = "restart"
)

// SystemState is the dispatcher-owned state. The zero value is the initial
// state.
type SystemState struct {
	PressCount     uint32
	BlinkEnabled   bool
	BlinkPeriod    clock.Millis
	OutputOn       bool
	LastTransition clock.Millis
}

// Report describes one dispatcher decision for the diagnostic channel.
type Report struct {
	Time           clock.Millis
	Kind           ReportKind
	Classification Classification
	Duration       clock.Millis
	State          SystemState
	Message        string
}

// Counts tracks totals since startup.
type Counts struct {
	Short    int
	Medium   int
	Long     int
	Rejected uint64
	Toggles  int
}

// Input is a single sample of the button level.
type Input struct {
	Pressed bool
	Time    clock.Millis
}

// Step is the result of one controller cycle.
type Step struct {
	Event         *ButtonEvent
	Report        *Report
	Output        bool
	OutputChanged bool
}

// Config holds the tunables of the state machine.
type Config struct {
	Debounce            clock.Millis
	Thresholds          Thresholds
	Feedback            clock.Millis
	BaseInterval        clock.Millis
	CountWhileBlinking  bool
	MediumWhileBlinking MediumPolicy
}

// DefaultConfig returns the configuration of the interrupt-driven board:
// 50ms debounce, 1500/4000ms thresholds, 200ms flash, 500ms per counted press.
func DefaultConfig() Config {
	return Config{
		Debounce: DefaultDebounce,
		Thresholds: Thresholds{
			Short: DefaultShortThreshold,
			Long:  DefaultLongThreshold,
		},
		Feedback:            DefaultFeedback,
		BaseInterval:        DefaultBaseInterval,
		MediumWhileBlinking: MediumIgnore,
	}
}
