// Package config loads and validates the daemon's TOML configuration,
// writing a default file on first run, constructed and validated the
// way a typical service layer wires dependencies: construct, then
// validate, then fail fast.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Feed is one configured shell pipeline.
type Feed struct {
	Name    string `toml:"name" validate:"required"`
	Command string `toml:"command" validate:"required"`
	Shell   string `toml:"shell,omitempty"`
	TTLSecs float64 `toml:"ttl_secs,omitempty" validate:"omitempty,gt=0"`
}

// Sink selects where the composed bar string is published. Exactly one
// of the fields is populated; File and X11Root are mutually exclusive
// with the boolean selectors.
type Sink struct {
	Stdout bool   `toml:"stdout,omitempty"`
	Stderr bool   `toml:"stderr,omitempty"`
	File   string `toml:"file,omitempty"`
	X11Root bool  `toml:"x11_root,omitempty"`
}

// Kind reports which sink variant is selected, or an error if the
// selector is ambiguous or empty.
func (s Sink) Kind() (string, error) {
	n := 0
	kind := ""
	if s.Stdout {
		n++
		kind = "stdout"
	}
	if s.Stderr {
		n++
		kind = "stderr"
	}
	if s.File != "" {
		n++
		kind = "file"
	}
	if s.X11Root {
		n++
		kind = "x11_root"
	}
	if n != 1 {
		return "", fmt.Errorf("sink: exactly one of stdout/stderr/file/x11_root must be set, got %d", n)
	}
	return kind, nil
}

// Config is the full on-disk configuration.
type Config struct {
	Feeds           []Feed  `toml:"feeds" validate:"dive"`
	Sink            Sink    `toml:"sink"`
	Sep             string  `toml:"sep"`
	PadLeft         string  `toml:"pad_left"`
	PadRight        string  `toml:"pad_right"`
	ExpiryCharacter string  `toml:"expiry_character"`
	OutputInterval  float64 `toml:"output_interval" validate:"gt=0"`
}

// Default returns the configuration written on first run.
func Default() *Config {
	return &Config{
		Feeds:           nil,
		Sink:            Sink{Stdout: true},
		Sep:             " ",
		PadLeft:         "",
		PadRight:        "",
		ExpiryCharacter: "_",
		OutputInterval:  1.0,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct constraints and cross-field invariants not
// expressible via struct tags (the expiry character must be exactly
// one codepoint, the sink selector must be unambiguous).
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if n := len([]rune(c.ExpiryCharacter)); n != 1 {
		return fmt.Errorf("config: expiry_character must be exactly one character, got %d", n)
	}
	if _, err := c.Sink.Kind(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	seen := make(map[string]struct{}, len(c.Feeds))
	for _, f := range c.Feeds {
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("config: duplicate feed name %q", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

// LoadOrInit reads path, writing and using Default() if the file is
// absent. Unknown keys are rejected, following the
// DisallowUnknownFields-style strict decoding convention.
func LoadOrInit(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := Default()
		if err := writeDefault(path, cfg); err != nil {
			return nil, fmt.Errorf("config: write default: %w", err)
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func writeDefault(path string, cfg *Config) error {
	b, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return os.WriteFile(path, b, 0o644)
}
