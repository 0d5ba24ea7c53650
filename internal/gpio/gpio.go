// Package gpio provides the button input and LED output with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Button reads the push button.
type Button interface {
	// Pressed returns the logical level: true while the button is held.
	// Active-low wiring is resolved by the implementation.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// LED drives the output line.
type LED interface {
	// Set drives the line high (on) or low (off).
	Set(on bool) error

	// Close drives the line low and releases it.
	Close() error
}

// Defaults (BCM numbering on gpiochip0)
const (
	DefaultChip      = "gpiochip0"
	DefaultButtonPin = 17
	DefaultLEDPin    = 27
)

// Consumer is the label shown for requested lines in gpioinfo.
const Consumer = "button-blinker"
