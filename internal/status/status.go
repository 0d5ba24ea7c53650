// Package status provides a thread-safe status tracker for the button-blinker daemon.
// The control loop writes it; HTTP handlers and MQTT status events read it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-blinker/internal/clock"
	"github.com/sweeney/button-blinker/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Mode                string
	PollMs              int64
	DebounceMs          int64
	ShortMs             int64
	LongMs              int64
	FeedbackMs          int64
	BaseIntervalMs      int64
	HeartbeatMs         int64
	CountWhileBlinking  bool
	MediumWhileBlinking string
	Broker              string
	HTTPAddr            string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.SystemState
	Pressed       bool
	Counts        logic.Counts
	Uptime        clock.Millis
	LastReport    *logic.Report
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Elapsed returns the wall-clock duration since the daemon started.
func (s Snapshot) Elapsed() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update sets the dispatcher state, debounced button level, counts and
// uptime. Called from runLoop on every cycle.
func (t *Tracker) Update(state logic.SystemState, pressed bool, counts logic.Counts, uptime clock.Millis) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Pressed = pressed
	t.snap.Counts = counts
	t.snap.Uptime = uptime
	t.mu.Unlock()
}

// SetLastReport records the most recent dispatcher report.
func (t *Tracker) SetLastReport(r logic.Report) {
	t.mu.Lock()
	t.snap.LastReport = &r
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	if s.LastReport != nil {
		r := *s.LastReport
		s.LastReport = &r
	}
	if s.Network != nil {
		n := *s.Network
		s.Network = &n
	}
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
