// Package config loads and validates the daemon configuration. YAML and
// JSON are both accepted; YAML is coerced to JSON so one strict decoder
// covers both and unknown keys are always rejected.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// Load reads, strictly decodes, and validates the config at path.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, b)
}

// Parse decodes and validates config bytes. The path determines the format
// by extension.
func Parse(path string, b []byte) (*Config, error) {
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, err
	}

	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return nil, errors.New("invalid config: trailing data")
		}
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.EventsDir == "" {
		return errors.New("events_dir is required")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
	}
	if _, err := ParseDurationField("tick", c.Tick); err != nil {
		return err
	}
	if _, err := ParseDurationField("firelog.busy_timeout", c.Firelog.BusyTimeout); err != nil {
		return err
	}
	if c.Mail != nil {
		if c.Mail.Host == "" || c.Mail.Port <= 0 || c.Mail.From == "" {
			return errors.New("mail: host, port, and from are required")
		}
		if _, err := ParseDurationField("mail.timeout", c.Mail.Timeout); err != nil {
			return err
		}
	}
	if c.Telegram != nil && c.Telegram.Token == "" {
		return errors.New("telegram: token is required")
	}
	return nil
}

// Location resolves the configured timezone, defaulting to host local time.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// TickDuration resolves the scheduler tick, defaulting to one second.
func (c *Config) TickDuration() time.Duration {
	d, err := ParseDurationOrDefault("tick", c.Tick, time.Second)
	if err != nil {
		return time.Second
	}
	return d
}
