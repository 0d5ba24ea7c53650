package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Button        string       `json:"button"`
	State         StateJSON    `json:"state"`
	UptimeMs      uint32       `json:"uptime_ms"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"press_counts"`
	LastReport    *ReportJSON  `json:"last_report,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// StateJSON is the JSON representation of the dispatcher state.
type StateJSON struct {
	PressCount       uint32 `json:"press_count"`
	BlinkEnabled     bool   `json:"blink_enabled"`
	BlinkPeriodMs    uint32 `json:"blink_period_ms"`
	OutputOn         bool   `json:"output_on"`
	LastTransitionMs uint32 `json:"last_transition_ms"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of press totals.
type CountsJSON struct {
	Short             int    `json:"short"`
	Medium            int    `json:"medium"`
	Long              int    `json:"long"`
	DebounceRejected  uint64 `json:"debounce_rejected"`
	OutputTransitions int    `json:"output_transitions"`
}

// ReportJSON is the JSON representation of the last dispatcher report.
type ReportJSON struct {
	UptimeMs       uint32 `json:"uptime_ms"`
	Kind           string `json:"kind"`
	Classification string `json:"classification"`
	DurationMs     uint32 `json:"duration_ms"`
	Message        string `json:"message"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Mode                string `json:"mode"`
	PollMs              int64  `json:"poll_ms"`
	DebounceMs          int64  `json:"debounce_ms"`
	ShortMs             int64  `json:"short_ms"`
	LongMs              int64  `json:"long_ms"`
	FeedbackMs          int64  `json:"feedback_ms"`
	BaseIntervalMs      int64  `json:"base_interval_ms"`
	HeartbeatMs         int64  `json:"heartbeat_ms"`
	CountWhileBlinking  bool   `json:"count_while_blinking"`
	MediumWhileBlinking string `json:"medium_while_blinking"`
	Broker              string `json:"broker"`
	HTTPAddr            string `json:"http_addr"`
}

// ButtonString renders the debounced button level.
func ButtonString(pressed bool) string {
	if pressed {
		return "PRESSED"
	}
	return "RELEASED"
}

func buildInner(snap Snapshot) StatusInner {
	s := snap.State
	c := snap.Config

	inner := StatusInner{
		Button: ButtonString(snap.Pressed),
		State: StateJSON{
			PressCount:       s.PressCount,
			BlinkEnabled:     s.BlinkEnabled,
			BlinkPeriodMs:    uint32(s.BlinkPeriod),
			OutputOn:         s.OutputOn,
			LastTransitionMs: uint32(s.LastTransition),
		},
		UptimeMs:      uint32(snap.Uptime),
		UptimeSeconds: int64(snap.Elapsed().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: c.Broker},
		Counts: CountsJSON{
			Short:             snap.Counts.Short,
			Medium:            snap.Counts.Medium,
			Long:              snap.Counts.Long,
			DebounceRejected:  snap.Counts.Rejected,
			OutputTransitions: snap.Counts.Toggles,
		},
		Config: ConfigJSON{
			Mode:                c.Mode,
			PollMs:              c.PollMs,
			DebounceMs:          c.DebounceMs,
			ShortMs:             c.ShortMs,
			LongMs:              c.LongMs,
			FeedbackMs:          c.FeedbackMs,
			BaseIntervalMs:      c.BaseIntervalMs,
			HeartbeatMs:         c.HeartbeatMs,
			CountWhileBlinking:  c.CountWhileBlinking,
			MediumWhileBlinking: c.MediumWhileBlinking,
			Broker:              c.Broker,
			HTTPAddr:            c.HTTPAddr,
		},
	}

	if r := snap.LastReport; r != nil {
		inner.LastReport = &ReportJSON{
			UptimeMs:       uint32(r.Time),
			Kind:           string(r.Kind),
			Classification: string(r.Classification),
			DurationMs:     uint32(r.Duration),
			Message:        r.Message,
		}
	}
	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
