package logic

import (
	"errors"
	"fmt"

	"github.com/sweeney/button-blinker/internal/clock"
)

var (
	// ErrThresholdOrder is returned when the short threshold is not below the long one.
	ErrThresholdOrder = errors.New("short threshold must be below long threshold")
	// ErrZeroInterval is returned when a timing value that must be positive is zero.
	ErrZeroInterval = errors.New("interval must be positive")
)

// Thresholds are the press duration boundaries. A tie resolves to the
// shorter classification.
type Thresholds struct {
	Short clock.Millis
	Long  clock.Millis
}

// Validate checks that the thresholds are positive and strictly ordered.
func (t Thresholds) Validate() error {
	if t.Short == 0 {
		return fmt.Errorf("short threshold: %w", ErrZeroInterval)
	}
	if t.Short >= t.Long {
		return fmt.Errorf("%w (short=%d long=%d)", ErrThresholdOrder, t.Short, t.Long)
	}
	return nil
}

// Classify maps a press duration to SHORT, MEDIUM or LONG.
func (t Thresholds) Classify(d clock.Millis) Classification {
	switch {
	case d < t.Short:
		return Short
	case d < t.Long:
		return Medium
	default:
		return Long
	}
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := c.Thresholds.Validate(); err != nil {
		return err
	}
	if c.Feedback == 0 {
		return fmt.Errorf("feedback: %w", ErrZeroInterval)
	}
	if c.BaseInterval == 0 {
		return fmt.Errorf("base interval: %w", ErrZeroInterval)
	}
	switch c.MediumWhileBlinking {
	case MediumIgnore, MediumRestart:
	default:
		return fmt.Errorf("unknown medium policy %q", c.MediumWhileBlinking)
	}
	return nil
}
