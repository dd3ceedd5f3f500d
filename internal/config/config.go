// Package config loads the terminal configuration from a YAML file, an
// optional .env file and DOOR_COUNTER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/door-counter/internal/door"
	"github.com/sweeney/door-counter/internal/gpio"
	"github.com/sweeney/door-counter/internal/keypad"
)

// Credential lengths are fixed by the keypad entry screens.
const (
	UsernameLength = 5
	PasswordLength = 6
)

// Sensor sources.
const (
	SourceADS1115 = "ads1115"
	SourceSim     = "sim"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOOR_COUNTER_"

// Config holds the terminal configuration.
type Config struct {
	Admin       AdminConfig    `yaml:"admin"`
	Keypad      KeypadConfig   `yaml:"keypad"`
	Sensor      SensorConfig   `yaml:"sensor"`
	Buzzer      BuzzerConfig   `yaml:"buzzer"`
	Terminal    TerminalConfig `yaml:"terminal"`
	HeartbeatMs int64          `yaml:"heartbeat_ms"` // 0 disables the status heartbeat
	LogLevel    string         `yaml:"log_level"`
}

// AdminConfig is the single administrator account.
type AdminConfig struct {
	Name     string `yaml:"name"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// KeypadConfig describes the matrix wiring.
type KeypadConfig struct {
	Chip       string `yaml:"chip"`
	Rows       []int  `yaml:"rows"`
	Cols       []int  `yaml:"cols"`
	DebounceMs int64  `yaml:"debounce_ms"`
}

// SensorConfig describes the beam sensor and its sampling.
type SensorConfig struct {
	Source       string `yaml:"source"` // "ads1115" or "sim"
	Bus          string `yaml:"bus"`    // I2C bus name, "" for the first bus
	Channel      int    `yaml:"channel"`
	MaxVoltageMV int64  `yaml:"max_voltage_mv"`
	RateHz       int64  `yaml:"rate_hz"`
	IntervalMs   int64  `yaml:"interval_ms"`
	ThresholdMV  int64  `yaml:"threshold_mv"`
	ReferenceMV  int64  `yaml:"reference_mv"`
	FullScale    int32  `yaml:"full_scale"`
}

// BuzzerConfig selects the piezo output line. A negative pin logs notes
// instead of sounding them.
type BuzzerConfig struct {
	Chip string `yaml:"chip"`
	Pin  int    `yaml:"pin"`
}

// TerminalConfig tunes the main loop.
type TerminalConfig struct {
	LoopMs      int64 `yaml:"loop_ms"`
	PromptClock bool  `yaml:"prompt_clock"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Admin: AdminConfig{
			Name:     "Mitchell",
			Username: "62653",
			Password: "123ABC",
		},
		Keypad: KeypadConfig{
			Chip:       "gpiochip0",
			Rows:       append([]int(nil), gpio.DefaultRowPins[:]...),
			Cols:       append([]int(nil), gpio.DefaultColPins[:]...),
			DebounceMs: 20,
		},
		Sensor: SensorConfig{
			Source:       SourceADS1115,
			Channel:      0,
			MaxVoltageMV: 4096,
			RateHz:       128,
			IntervalMs:   door.DefaultInterval.Milliseconds(),
			ThresholdMV:  door.DefaultThresholdMV,
			ReferenceMV:  door.DefaultReferenceMV,
			FullScale:    door.DefaultFullScale,
		},
		Buzzer: BuzzerConfig{
			Chip: "gpiochip0",
			Pin:  gpio.DefaultBuzzerPin,
		},
		Terminal: TerminalConfig{
			LoopMs:      10,
			PromptClock: true,
		},
		HeartbeatMs: 60000,
		LogLevel:    "info",
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadEnvFile loads a .env file into the process environment without
// overriding variables already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.WithField("path", path).Debug("config: no env file")
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ReadEnvFile parses a .env file without touching the environment.
func ReadEnvFile(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		return nil, fmt.Errorf("read env file: %w", err)
	}
	return vars, nil
}

// ApplyEnv applies DOOR_COUNTER_* overrides found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int64) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = n
		return nil
	}

	str("ADMIN_NAME", &c.Admin.Name)
	str("USERNAME", &c.Admin.Username)
	str("PASSWORD", &c.Admin.Password)
	str("GPIO_CHIP", &c.Keypad.Chip)
	str("SENSOR", &c.Sensor.Source)
	str("I2C_BUS", &c.Sensor.Bus)
	str("LOG_LEVEL", &c.LogLevel)

	for name, dst := range map[string]*int64{
		"THRESHOLD_MV": &c.Sensor.ThresholdMV,
		"INTERVAL_MS":  &c.Sensor.IntervalMs,
		"HEARTBEAT_MS": &c.HeartbeatMs,
	} {
		if err := num(name, dst); err != nil {
			return err
		}
	}

	if v, ok := lookup(EnvPrefix + "PROMPT_CLOCK"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sPROMPT_CLOCK: %w", EnvPrefix, err)
		}
		c.Terminal.PromptClock = b
	}
	return nil
}

// Validate reports the first problem with the configuration.
func (c *Config) Validate() error {
	if err := checkSecret("username", c.Admin.Username, UsernameLength); err != nil {
		return err
	}
	if err := checkSecret("password", c.Admin.Password, PasswordLength); err != nil {
		return err
	}
	if err := checkPins("keypad.rows", c.Keypad.Rows); err != nil {
		return err
	}
	if err := checkPins("keypad.cols", c.Keypad.Cols); err != nil {
		return err
	}
	if c.Keypad.DebounceMs < 0 {
		return fmt.Errorf("keypad.debounce_ms must not be negative")
	}

	switch c.Sensor.Source {
	case SourceADS1115:
		if c.Sensor.Channel < 0 || c.Sensor.Channel > 3 {
			return fmt.Errorf("sensor.channel %d out of range 0..3", c.Sensor.Channel)
		}
		if c.Sensor.MaxVoltageMV <= 0 || c.Sensor.RateHz <= 0 {
			return fmt.Errorf("sensor.max_voltage_mv and sensor.rate_hz must be positive")
		}
	case SourceSim:
	default:
		return fmt.Errorf("sensor.source %q: want %q or %q", c.Sensor.Source, SourceADS1115, SourceSim)
	}
	if c.Sensor.IntervalMs <= 0 {
		return fmt.Errorf("sensor.interval_ms must be positive")
	}
	if c.Sensor.ThresholdMV <= 0 {
		return fmt.Errorf("sensor.threshold_mv must be positive")
	}
	if c.Sensor.ReferenceMV <= 0 || c.Sensor.FullScale <= 0 {
		return fmt.Errorf("sensor.reference_mv and sensor.full_scale must be positive")
	}

	if c.Terminal.LoopMs < 0 {
		return fmt.Errorf("terminal.loop_ms must not be negative")
	}
	if c.HeartbeatMs < 0 {
		return fmt.Errorf("heartbeat_ms must not be negative")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

func checkSecret(field, s string, length int) error {
	if len(s) != length {
		return fmt.Errorf("admin.%s must be %d characters, got %d", field, length, len(s))
	}
	for i := 0; i < len(s); i++ {
		if !keypad.KeyForChar(s[i]).Valid() {
			return fmt.Errorf("admin.%s: %q is not on the keypad", field, s[i])
		}
	}
	return nil
}

func checkPins(field string, pins []int) error {
	if len(pins) != gpio.Lines {
		return fmt.Errorf("%s: want %d pins, got %d", field, gpio.Lines, len(pins))
	}
	seen := map[int]bool{}
	for _, p := range pins {
		if p < 0 {
			return fmt.Errorf("%s: negative pin %d", field, p)
		}
		if seen[p] {
			return fmt.Errorf("%s: pin %d used twice", field, p)
		}
		seen[p] = true
	}
	return nil
}

// RowPins returns the keypad row offsets. Call after Validate.
func (c *Config) RowPins() [gpio.Lines]int {
	var p [gpio.Lines]int
	copy(p[:], c.Keypad.Rows)
	return p
}

// ColPins returns the keypad column offsets. Call after Validate.
func (c *Config) ColPins() [gpio.Lines]int {
	var p [gpio.Lines]int
	copy(p[:], c.Keypad.Cols)
	return p
}

// Debounce returns the keypad debounce period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Keypad.DebounceMs) * time.Millisecond
}

// SampleInterval returns the sensor sampling period.
func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.Sensor.IntervalMs) * time.Millisecond
}

// LoopInterval returns the pause between main loop iterations.
func (c *Config) LoopInterval() time.Duration {
	return time.Duration(c.Terminal.LoopMs) * time.Millisecond
}

// Heartbeat returns the status heartbeat period, 0 when disabled.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// Scale returns the raw-to-millivolt conversion for the sensor.
func (c *Config) Scale() door.Scale {
	return door.Scale{ReferenceMV: c.Sensor.ReferenceMV, FullScale: c.Sensor.FullScale}
}
