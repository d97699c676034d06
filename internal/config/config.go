package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coreman2200/funtimes-boogie/internal/feedback"
)

type Serial struct {
	Port string `yaml:"port"` // e.g. /dev/ttyACM0; "" or "stdout" renders to stdout
	Baud int    `yaml:"baud"`
}

type Stick struct {
	Source   string `yaml:"source"`           // "sim" | "script" | "ads1115"
	Script   string `yaml:"script,omitempty"` // yaml step file for source=script
	Bus      string `yaml:"bus,omitempty"`    // i2c bus for source=ads1115
	XChannel int    `yaml:"x_channel"`
	YChannel int    `yaml:"y_channel"`
}

type Feedback struct {
	Kind string            `yaml:"kind"` // "none" | "gpio" | "strip" | "record", comma separated
	GPIO feedback.GPIOPins `yaml:"gpio,omitempty"`
	SPI  string            `yaml:"spi,omitempty"` // spireg port for the strike strip
	WAV  string            `yaml:"wav,omitempty"` // output file for kind=record
}

type Config struct {
	Serial Serial `yaml:"serial"`
	Stick  Stick  `yaml:"stick"`

	SampleMs       int `yaml:"sample_ms"`
	BeatMs         int `yaml:"beat_ms"`
	InputTimeoutMs int `yaml:"input_timeout_ms"`
	StrikeLimit    int `yaml:"strike_limit"`

	Feedback Feedback `yaml:"feedback"`

	Telemetry string `yaml:"telemetry,omitempty"` // listen address, "" disables
	Songs     string `yaml:"songs,omitempty"`     // soundtrack yaml, "" uses the built-in songs
}

// Default is the configuration of a board with nothing attached but the
// serial terminal.
func Default() *Config {
	return &Config{
		Serial:         Serial{Baud: 115200},
		Stick:          Stick{Source: "sim", XChannel: 0, YChannel: 1},
		SampleMs:       100,
		BeatMs:         1000,
		InputTimeoutMs: 10000,
		StrikeLimit:    3,
		Feedback:       Feedback{Kind: "none", WAV: "tones.wav"},
	}
}

func (c *Config) SampleInterval() time.Duration {
	return time.Duration(c.SampleMs) * time.Millisecond
}

func (c *Config) BeatInterval() time.Duration {
	return time.Duration(c.BeatMs) * time.Millisecond
}

func (c *Config) InputTimeout() time.Duration {
	return time.Duration(c.InputTimeoutMs) * time.Millisecond
}

// Validate rejects settings the game cannot run with.
func (c *Config) Validate() error {
	switch c.Stick.Source {
	case "sim", "script", "ads1115":
	default:
		return fmt.Errorf("config: unknown stick source %q", c.Stick.Source)
	}
	if c.Stick.Source == "script" && c.Stick.Script == "" {
		return fmt.Errorf("config: stick source script needs stick.script")
	}
	if c.SampleMs <= 0 || c.BeatMs <= 0 {
		return fmt.Errorf("config: sample_ms and beat_ms must be positive")
	}
	if c.InputTimeoutMs < 0 {
		return fmt.Errorf("config: input_timeout_ms must not be negative")
	}
	return nil
}

// Overlay applies the yaml file at path over c. Only keys present in the
// file change c, so an explicit zero such as input_timeout_ms: 0 overrides
// the current value. On error c is left untouched.
func (c *Config) Overlay(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	next := *c
	if err := yaml.Unmarshal(b, &next); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	*c = next
	return nil
}

// Load reads the file at path over the defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if err := c.Overlay(path); err != nil {
		return nil, err
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
