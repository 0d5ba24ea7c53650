package gpio

import (
	"errors"
	"sync"
)

// FakeButton is a test double that returns scripted button levels.
type FakeButton struct {
	mu sync.Mutex

	// Samples contains scripted levels to return.
	// Each call to Pressed() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Reads counts calls to Pressed
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given samples.
func NewFakeButton(samples ...bool) *FakeButton {
	return &FakeButton{Samples: samples}
}

// Pressed returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeButton) Pressed() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Reads++
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Set replaces the script with a single level. Used to move the line while
// a loop is reading it from another goroutine.
func (f *FakeButton) Set(pressed bool) {
	f.mu.Lock()
	f.Samples = []bool{pressed}
	f.index = 0
	f.mu.Unlock()
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Reset resets the button to the beginning of samples.
func (f *FakeButton) Reset() {
	f.mu.Lock()
	f.index = 0
	f.Reads = 0
	f.Closed = false
	f.mu.Unlock()
}

// FakeLED records every level written to it.
type FakeLED struct {
	mu sync.Mutex

	// Writes contains every level passed to Set, in order.
	Writes []bool

	// On is the current level.
	On bool

	// Closed tracks if Close was called
	Closed bool

	// WriteError, if set, will be returned by Set()
	WriteError error
}

// NewFakeLED creates a FakeLED that starts off.
func NewFakeLED() *FakeLED {
	return &FakeLED{}
}

// Set records the level.
func (f *FakeLED) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, on)
	f.On = on
	return nil
}

// Close turns the LED off and marks it closed.
func (f *FakeLED) Close() error {
	f.mu.Lock()
	f.On = false
	f.Closed = true
	f.mu.Unlock()
	return nil
}

// Level returns the current level.
func (f *FakeLED) Level() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.On
}

// History returns a copy of the recorded writes.
func (f *FakeLED) History() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bool, len(f.Writes))
	copy(out, f.Writes)
	return out
}
