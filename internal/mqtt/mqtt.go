// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/button-blinker/internal/logic"
)

// Topic is the MQTT topic for dispatcher reports.
const Topic = "home/button-blinker/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/button-blinker/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a dispatcher report to the broker. at is the wall-clock
	// time the report was produced.
	// Returns error if publishing fails (should not crash the process).
	Publish(report logic.Report, at time.Time) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Button ButtonPayload `json:"button"`
}

// ButtonPayload contains one dispatcher report.
type ButtonPayload struct {
	Timestamp      string       `json:"timestamp"`
	UptimeMs       uint32       `json:"uptime_ms"`
	Event          string       `json:"event"`
	Classification string       `json:"classification"`
	DurationMs     uint32       `json:"duration_ms"`
	Message        string       `json:"message"`
	State          StatePayload `json:"state"`
}

// StatePayload mirrors logic.SystemState.
type StatePayload struct {
	PressCount       uint32 `json:"press_count"`
	BlinkEnabled     bool   `json:"blink_enabled"`
	BlinkPeriodMs    uint32 `json:"blink_period_ms"`
	OutputOn         bool   `json:"output_on"`
	LastTransitionMs uint32 `json:"last_transition_ms"`
}

// NewStatePayload converts the dispatcher state for JSON output.
func NewStatePayload(s logic.SystemState) StatePayload {
	return StatePayload{
		PressCount:       s.PressCount,
		BlinkEnabled:     s.BlinkEnabled,
		BlinkPeriodMs:    uint32(s.BlinkPeriod),
		OutputOn:         s.OutputOn,
		LastTransitionMs: uint32(s.LastTransition),
	}
}

// FormatPayload creates the JSON payload for a dispatcher report.
func FormatPayload(report logic.Report, at time.Time) ([]byte, error) {
	payload := Payload{
		Button: ButtonPayload{
			Timestamp:      at.UTC().Format(time.RFC3339),
			UptimeMs:       uint32(report.Time),
			Event:          string(report.Kind),
			Classification: string(report.Classification),
			DurationMs:     uint32(report.Duration),
			Message:        report.Message,
			State:          NewStatePayload(report.State),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
