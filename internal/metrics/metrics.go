// Package metrics exposes the daemon's counters and gauges to Prometheus.
package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sweeney/button-blinker/internal/logic"
)

const namespace = "button_blinker"

// Recorder translates controller output into Prometheus metrics.
// Observe* methods are called from the control loop only.
type Recorder struct {
	presses *prometheus.CounterVec
	reports *prometheus.CounterVec

	pressCount  prometheus.Gauge
	blinkPeriod prometheus.Gauge
	blinking    prometheus.Gauge
	outputOn    prometheus.Gauge

	// Totals owned elsewhere (detector, dispatcher, inbox, forwarder) are
	// mirrored here and exported through CounterFuncs.
	rejected       atomic.Uint64
	transitions    atomic.Uint64
	inboxDropped   atomic.Uint64
	forwardDropped atomic.Uint64
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		presses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presses_total",
			Help:      "Completed presses by classification.",
		}, []string{"classification"}),
		reports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_total",
			Help:      "Dispatcher decisions by kind.",
		}, []string{"kind"}),
		pressCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "press_count",
			Help:      "Short presses counted since the last reset.",
		}),
		blinkPeriod: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blink_period_ms",
			Help:      "Current blink half-period in milliseconds, 0 when not blinking.",
		}),
		blinking: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blinking",
			Help:      "1 while the output is blinking.",
		}),
		outputOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "output_on",
			Help:      "1 while the output line is high.",
		}),
	}

	reg.MustRegister(
		r.presses,
		r.reports,
		r.pressCount,
		r.blinkPeriod,
		r.blinking,
		r.outputOn,
		counterFunc("debounce_rejected_total", "Edges discarded by the debounce window.", &r.rejected),
		counterFunc("output_transitions_total", "Output line level changes.", &r.transitions),
		counterFunc("inbox_dropped_total", "Edge notifications dropped because the inbox was full.", &r.inboxDropped),
		counterFunc("forward_dropped_total", "Reports dropped because the MQTT forward queue was full.", &r.forwardDropped),
	)
	return r
}

func counterFunc(name, help string, v *atomic.Uint64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, func() float64 { return float64(v.Load()) })
}

// ObserveReport counts a dispatcher report.
func (r *Recorder) ObserveReport(rep logic.Report) {
	r.presses.WithLabelValues(string(rep.Classification)).Inc()
	r.reports.WithLabelValues(string(rep.Kind)).Inc()
}

// ObserveState sets the state gauges.
func (r *Recorder) ObserveState(s logic.SystemState) {
	r.pressCount.Set(float64(s.PressCount))
	r.blinkPeriod.Set(float64(s.BlinkPeriod))
	r.blinking.Set(boolFloat(s.BlinkEnabled))
	r.outputOn.Set(boolFloat(s.OutputOn))
}

// ObserveTotals mirrors running totals kept by other components.
func (r *Recorder) ObserveTotals(c logic.Counts, inboxDropped, forwardDropped uint64) {
	r.rejected.Store(c.Rejected)
	r.transitions.Store(uint64(c.Toggles))
	r.inboxDropped.Store(inboxDropped)
	r.forwardDropped.Store(forwardDropped)
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
