// Package config holds daemon settings: defaults, an optional TOML file
// overlay, and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sweeney/climate-sensor/internal/am2301"
	"github.com/sweeney/climate-sensor/internal/gpio"
)

// Config is the full daemon configuration.
type Config struct {
	Driver      string
	Chip        string
	Pin         int
	Poll        time.Duration
	MinInterval time.Duration
	Timeout     time.Duration
	Heartbeat   time.Duration
	LostAfter   int
	Broker      string
	HTTPAddr    string
	WSBroker    string
	LogLevel    string
	Timing      am2301.Timing
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Driver:      gpio.DriverCdev,
		Chip:        gpio.DefaultChip,
		Pin:         gpio.DefaultPin,
		Poll:        5 * time.Second,
		MinInterval: 2 * time.Second,
		Timeout:     250 * time.Millisecond,
		Heartbeat:   15 * time.Minute,
		LostAfter:   5,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
		WSBroker:    "=broker",
		LogLevel:    "info",
		Timing:      am2301.DefaultTiming(),
	}
}

type fileConfig struct {
	Driver      string     `toml:"driver"`
	Chip        string     `toml:"chip"`
	Pin         int        `toml:"pin"`
	Poll        string     `toml:"poll"`
	MinInterval string     `toml:"min_interval"`
	Timeout     string     `toml:"timeout"`
	Heartbeat   string     `toml:"heartbeat"`
	LostAfter   int        `toml:"lost_after"`
	Broker      string     `toml:"broker"`
	HTTPAddr    string     `toml:"http"`
	WSBroker    string     `toml:"ws_broker"`
	LogLevel    string     `toml:"log_level"`
	Timing      fileTiming `toml:"timing"`
}

type fileTiming struct {
	StartPulseUs  int `toml:"start_pulse_us"`
	AckBudget     int `toml:"ack_budget"`
	BitBudget     int `toml:"bit_budget"`
	SampleDelayUs int `toml:"sample_delay_us"`
	EndBudget     int `toml:"end_budget"`
	PollDelayUs   int `toml:"poll_delay_us"`
}

// Load overlays the TOML file at path onto cfg. Only keys present in the
// file are applied.
func Load(path string, cfg Config) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("driver") {
		cfg.Driver = strings.TrimSpace(raw.Driver)
	}
	if meta.IsDefined("chip") {
		cfg.Chip = strings.TrimSpace(raw.Chip)
	}
	if meta.IsDefined("pin") {
		cfg.Pin = raw.Pin
	}

	durations := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"poll", raw.Poll, &cfg.Poll},
		{"min_interval", raw.MinInterval, &cfg.MinInterval},
		{"timeout", raw.Timeout, &cfg.Timeout},
		{"heartbeat", raw.Heartbeat, &cfg.Heartbeat},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.val))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if meta.IsDefined("lost_after") {
		cfg.LostAfter = raw.LostAfter
	}
	if meta.IsDefined("broker") {
		cfg.Broker = strings.TrimSpace(raw.Broker)
	}
	if meta.IsDefined("http") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("ws_broker") {
		cfg.WSBroker = strings.TrimSpace(raw.WSBroker)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	timing := []struct {
		key string
		val int
		dst *int
	}{
		{"start_pulse_us", raw.Timing.StartPulseUs, &cfg.Timing.StartPulse},
		{"ack_budget", raw.Timing.AckBudget, &cfg.Timing.AckBudget},
		{"bit_budget", raw.Timing.BitBudget, &cfg.Timing.BitBudget},
		{"sample_delay_us", raw.Timing.SampleDelayUs, &cfg.Timing.SampleDelay},
		{"end_budget", raw.Timing.EndBudget, &cfg.Timing.EndBudget},
		{"poll_delay_us", raw.Timing.PollDelayUs, &cfg.Timing.PollDelay},
	}
	for _, tm := range timing {
		if meta.IsDefined("timing", tm.key) {
			*tm.dst = tm.val
		}
	}

	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	switch c.Driver {
	case gpio.DriverCdev, gpio.DriverPeriph:
	default:
		return fmt.Errorf("unknown driver %q (want %s or %s)", c.Driver, gpio.DriverCdev, gpio.DriverPeriph)
	}
	if c.Pin < 0 {
		return fmt.Errorf("pin must not be negative, got %d", c.Pin)
	}
	if c.Poll <= 0 {
		return fmt.Errorf("poll must be positive, got %v", c.Poll)
	}
	if c.MinInterval <= 0 {
		return fmt.Errorf("min interval must be positive, got %v", c.MinInterval)
	}
	if c.Poll < c.MinInterval {
		return fmt.Errorf("poll %v is shorter than the sensor's minimum interval %v", c.Poll, c.MinInterval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.LostAfter < 0 {
		return fmt.Errorf("lost_after must not be negative, got %d", c.LostAfter)
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}
	return nil
}
