package web

import (
	"encoding/json"
	"time"

	"github.com/sweeney/button-blinker/internal/status"
)

// HealthJSON is the /healthz body. The daemon keeps classifying presses
// without a broker, so a lost MQTT connection is "degraded", not down.
type HealthJSON struct {
	Status        string `json:"status"`
	MQTTConnected bool   `json:"mqtt_connected"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func formatHealth(snap status.Snapshot) []byte {
	h := HealthJSON{
		Status:        "ok",
		MQTTConnected: snap.MQTTConnected,
		UptimeSeconds: int64(snap.Elapsed().Truncate(time.Second).Seconds()),
	}
	if !snap.MQTTConnected {
		h.Status = "degraded"
	}
	data, _ := json.Marshal(h)
	return data
}
