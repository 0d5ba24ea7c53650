// Package config loads daemon settings from a YAML file, an optional .env
// file and BLINKER_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-blinker/internal/clock"
	"github.com/sweeney/button-blinker/internal/gpio"
	"github.com/sweeney/button-blinker/internal/logic"
)

// Input sampling modes.
const (
	ModePoll      = "poll"
	ModeInterrupt = "interrupt"
)

var (
	ErrInvalidMode   = errors.New("invalid button mode")
	ErrInvalidPolicy = errors.New("invalid medium_while_blinking policy")
)

// Config represents the daemon configuration.
type Config struct {
	Button  ButtonConfig  `yaml:"button"`
	LED     LEDConfig     `yaml:"led"`
	Timing  TimingConfig  `yaml:"timing"`
	Policy  PolicyConfig  `yaml:"policy"`
	MQTT    MQTTConfig    `yaml:"mqtt"`
	HTTP    HTTPConfig    `yaml:"http"`
	Serial  SerialConfig  `yaml:"serial"`
	Network NetworkConfig `yaml:"network"`
}

// ButtonConfig describes the input line.
type ButtonConfig struct {
	Chip      string `yaml:"chip"`
	Pin       int    `yaml:"pin"`
	ActiveLow bool   `yaml:"active_low"` // pressed pulls the line to ground
	Mode      string `yaml:"mode"`       // poll or interrupt
}

// LEDConfig describes the output line.
type LEDConfig struct {
	Chip string `yaml:"chip"`
	Pin  int    `yaml:"pin"`
}

// TimingConfig holds every interval the daemon uses.
type TimingConfig struct {
	Tick         time.Duration `yaml:"tick"` // millisecond counter update period
	Poll         time.Duration `yaml:"poll"`
	Debounce     time.Duration `yaml:"debounce"`
	Short        time.Duration `yaml:"short"` // presses shorter than this are SHORT
	Long         time.Duration `yaml:"long"`  // presses at least this long are LONG
	Feedback     time.Duration `yaml:"feedback"`
	BaseInterval time.Duration `yaml:"base_interval"`
}

// PolicyConfig resolves presses that arrive while blinking.
type PolicyConfig struct {
	CountWhileBlinking  bool   `yaml:"count_while_blinking"`
	MediumWhileBlinking string `yaml:"medium_while_blinking"`
}

// MQTTConfig contains broker settings. An empty broker disables MQTT.
type MQTTConfig struct {
	Broker    string        `yaml:"broker"`
	ClientID  string        `yaml:"client_id"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables
	Queue     int           `yaml:"queue"`
	Buffer    int           `yaml:"buffer"`
}

// HTTPConfig contains the status server address. Empty disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// SerialConfig contains the diagnostic console port. Empty disables it.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

// NetworkConfig points at the pi-helper env file with network details.
type NetworkConfig struct {
	EnvFile string `yaml:"env_file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Button: ButtonConfig{
			Chip:      gpio.DefaultChip,
			Pin:       gpio.DefaultButtonPin,
			ActiveLow: true,
			Mode:      ModeInterrupt,
		},
		LED: LEDConfig{
			Chip: gpio.DefaultChip,
			Pin:  gpio.DefaultLEDPin,
		},
		Timing: TimingConfig{
			Tick:         time.Millisecond,
			Poll:         5 * time.Millisecond,
			Debounce:     logic.DefaultDebounce.Duration(),
			Short:        logic.DefaultShortThreshold.Duration(),
			Long:         logic.DefaultLongThreshold.Duration(),
			Feedback:     logic.DefaultFeedback.Duration(),
			BaseInterval: logic.DefaultBaseInterval.Duration(),
		},
		Policy: PolicyConfig{
			MediumWhileBlinking: string(logic.MediumIgnore),
		},
		MQTT: MQTTConfig{
			Broker:    "tcp://192.168.1.200:1883",
			ClientID:  "button-blinker",
			Heartbeat: 15 * time.Minute,
			Queue:     64,
			Buffer:    100,
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Serial: SerialConfig{
			Baud: 9600,
		},
		Network: NetworkConfig{
			EnvFile: "/run/pi-helper.env",
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()
	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ensureDefaults restores defaults for fields explicitly set to zero where
// zero is never meaningful.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Button.Chip == "" {
		c.Button.Chip = def.Button.Chip
	}
	if c.Button.Mode == "" {
		c.Button.Mode = def.Button.Mode
	}
	if c.LED.Chip == "" {
		c.LED.Chip = def.LED.Chip
	}

	if c.Timing.Tick == 0 {
		c.Timing.Tick = def.Timing.Tick
	}
	if c.Timing.Poll == 0 {
		c.Timing.Poll = def.Timing.Poll
	}
	if c.Timing.Short == 0 {
		c.Timing.Short = def.Timing.Short
	}
	if c.Timing.Long == 0 {
		c.Timing.Long = def.Timing.Long
	}
	if c.Timing.Feedback == 0 {
		c.Timing.Feedback = def.Timing.Feedback
	}
	if c.Timing.BaseInterval == 0 {
		c.Timing.BaseInterval = def.Timing.BaseInterval
	}

	if c.Policy.MediumWhileBlinking == "" {
		c.Policy.MediumWhileBlinking = def.Policy.MediumWhileBlinking
	}

	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}
	if c.MQTT.Queue == 0 {
		c.MQTT.Queue = def.MQTT.Queue
	}
	if c.MQTT.Buffer == 0 {
		c.MQTT.Buffer = def.MQTT.Buffer
	}

	if c.Serial.Baud == 0 {
		c.Serial.Baud = def.Serial.Baud
	}
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	switch c.Button.Mode {
	case ModePoll, ModeInterrupt:
	default:
		return fmt.Errorf("%w: %q (want %s or %s)", ErrInvalidMode, c.Button.Mode, ModePoll, ModeInterrupt)
	}

	switch logic.MediumPolicy(c.Policy.MediumWhileBlinking) {
	case logic.MediumIgnore, logic.MediumRestart:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPolicy, c.Policy.MediumWhileBlinking)
	}

	if c.Button.Pin < 0 || c.LED.Pin < 0 {
		return fmt.Errorf("gpio pins must not be negative")
	}
	if c.Button.Chip == c.LED.Chip && c.Button.Pin == c.LED.Pin {
		return fmt.Errorf("button and led share pin %d", c.Button.Pin)
	}
	if c.Timing.Tick < time.Millisecond {
		return fmt.Errorf("timing.tick must be at least 1ms, got %v", c.Timing.Tick)
	}
	for name, d := range map[string]time.Duration{
		"debounce":      c.Timing.Debounce,
		"short":         c.Timing.Short,
		"long":          c.Timing.Long,
		"feedback":      c.Timing.Feedback,
		"base_interval": c.Timing.BaseInterval,
	} {
		if d < 0 {
			return fmt.Errorf("timing.%s must not be negative, got %v", name, d)
		}
	}
	if c.Timing.Poll <= 0 {
		return fmt.Errorf("timing.poll must be positive, got %v", c.Timing.Poll)
	}
	if c.MQTT.Heartbeat < 0 {
		return fmt.Errorf("mqtt.heartbeat must not be negative, got %v", c.MQTT.Heartbeat)
	}
	if c.Serial.Port != "" && c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}

	if err := c.Logic().Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}
	return nil
}

// Logic converts the timing and policy sections to the state machine config.
func (c *Config) Logic() logic.Config {
	return logic.Config{
		Debounce: clock.FromDuration(c.Timing.Debounce),
		Thresholds: logic.Thresholds{
			Short: clock.FromDuration(c.Timing.Short),
			Long:  clock.FromDuration(c.Timing.Long),
		},
		Feedback:            clock.FromDuration(c.Timing.Feedback),
		BaseInterval:        clock.FromDuration(c.Timing.BaseInterval),
		CountWhileBlinking:  c.Policy.CountWhileBlinking,
		MediumWhileBlinking: logic.MediumPolicy(c.Policy.MediumWhileBlinking),
	}
}
