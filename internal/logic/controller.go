package logic

import (
	"fmt"

	"github.com/sweeney/button-blinker/internal/clock"
)

// Controller wires the edge detector, the classifier and the dispatcher.
// It is owned by a single goroutine.
type Controller struct {
	cfg        Config
	detector   *EdgeDetector
	dispatcher *Dispatcher
	counts     Counts
}

// NewController validates cfg and returns a controller in the initial state.
func NewController(cfg Config) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Controller{
		cfg:        cfg,
		detector:   NewEdgeDetector(cfg.Debounce),
		dispatcher: NewDispatcher(cfg),
	}, nil
}

// Process handles one button sample: debounce, classify on release, dispatch,
// then reconcile the output at the sample time.
func (c *Controller) Process(in Input) Step {
	var step Step

	if ev, ok := c.detector.Process(in.Pressed, in.Time); ok {
		step.Event = &ev
		if ev.Type == EventPressEnded {
			class := c.cfg.Thresholds.Classify(ev.Duration)
			c.count(class)
			r := c.dispatcher.Dispatch(class, ev.Duration, ev.Time)
			step.Report = &r
		}
	}

	step.Output, step.OutputChanged = c.dispatcher.Reconcile(in.Time)
	return step
}

// Tick reconciles the output without a button sample.
func (c *Controller) Tick(now clock.Millis) Step {
	var step Step
	step.Output, step.OutputChanged = c.dispatcher.Reconcile(now)
	return step
}

// Halt stops all output activity, as on shutdown, and returns the step that
// drives the line low.
func (c *Controller) Halt(now clock.Millis) Step {
	c.dispatcher.Halt(now)
	return c.Tick(now)
}

func (c *Controller) count(class Classification) {
	switch class {
	case Short:
		c.counts.Short++
	case Medium:
		c.counts.Medium++
	case Long:
		c.counts.Long++
	}
}

// Unsettled reports whether the button should be re-sampled because a
// transition was swallowed by debounce.
func (c *Controller) Unsettled(now clock.Millis) bool {
	return c.detector.Unsettled(now)
}

// Pressed returns the debounced button level.
func (c *Controller) Pressed() bool {
	return c.detector.Pressed()
}

// State returns a copy of the system state.
func (c *Controller) State() SystemState {
	return c.dispatcher.State()
}

// Counts returns a snapshot of the counters.
func (c *Controller) Counts() Counts {
	counts := c.counts
	counts.Rejected = c.detector.Rejected()
	counts.Toggles = c.dispatcher.Transitions()
	return counts
}

// Config returns the active configuration.
func (c *Controller) Config() Config {
	return c.cfg
}
