package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BLINKER_"

// ApplyEnv loads envFile (if present) into the process environment without
// overriding variables already set, then applies BLINKER_* overrides.
// An empty envFile skips the file.
func (c *Config) ApplyEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	strs := map[string]*string{
		"BROKER":                &c.MQTT.Broker,
		"CLIENT_ID":             &c.MQTT.ClientID,
		"HTTP_ADDR":             &c.HTTP.Addr,
		"MODE":                  &c.Button.Mode,
		"BUTTON_CHIP":           &c.Button.Chip,
		"LED_CHIP":              &c.LED.Chip,
		"SERIAL_PORT":           &c.Serial.Port,
		"MEDIUM_WHILE_BLINKING": &c.Policy.MediumWhileBlinking,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"BUTTON_PIN":  &c.Button.Pin,
		"LED_PIN":     &c.LED.Pin,
		"SERIAL_BAUD": &c.Serial.Baud,
		"MQTT_QUEUE":  &c.MQTT.Queue,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"POLL":          &c.Timing.Poll,
		"DEBOUNCE":      &c.Timing.Debounce,
		"SHORT":         &c.Timing.Short,
		"LONG":          &c.Timing.Long,
		"FEEDBACK":      &c.Timing.Feedback,
		"BASE_INTERVAL": &c.Timing.BaseInterval,
		"HEARTBEAT":     &c.MQTT.Heartbeat,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = d
	}

	bools := map[string]*bool{
		"ACTIVE_LOW":           &c.Button.ActiveLow,
		"COUNT_WHILE_BLINKING": &c.Policy.CountWhileBlinking,
	}
	for key, dst := range bools {
		v, ok := os.LookupEnv(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
		}
		*dst = b
	}

	return nil
}

// NetworkInfo holds the pi-helper network variables.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// ReadNetworkInfo reads the pi-helper env file without touching the process
// environment. It returns nil if the file is missing or has no status.
func ReadNetworkInfo(path string) *NetworkInfo {
	if path == "" {
		return nil
	}
	env, err := godotenv.Read(path)
	if err != nil {
		return nil
	}
	s := env["NETWORK_STATUS"]
	if s == "" {
		return nil
	}
	return &NetworkInfo{
		Type:       env["NETWORK_TYPE"],
		IP:         env["NETWORK_IP"],
		Status:     s,
		Gateway:    env["NETWORK_GATEWAY"],
		WifiStatus: env["NETWORK_WIFI_STATUS"],
		SSID:       env["NETWORK_WIFI_SSID"],
	}
}
