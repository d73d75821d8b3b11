// Package config loads analysis settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"unclass/internal/descriptor"
	"unclass/internal/diag"
	"unclass/internal/flow"
)

// Config is the on-disk configuration. Command-line flags override it.
type Config struct {
	Mode        string `yaml:"mode"`
	MaxSteps    int    `yaml:"max_steps"`
	CacheSize   int    `yaml:"cache_size"`
	Jobs        int    `yaml:"jobs"`
	Color       string `yaml:"color"`
	SwitchEdges string `yaml:"switch_edges"`
	Theme       string `yaml:"theme"`
	Log         Log    `yaml:"log"`
	Output      Output `yaml:"output"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json or empty for auto
}

type Output struct {
	Dir string `yaml:"dir"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:        diag.ModeBestEffort.String(),
		MaxSteps:    diag.DefaultMaxSteps,
		CacheSize:   descriptor.DefaultCacheSize,
		Jobs:        1,
		Color:       "auto",
		SwitchEdges: "expand",
		Theme:       "nasa",
		Log:         Log{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path returns Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects unknown enum values and negative limits.
func (c Config) Validate() error {
	var errs []error
	if _, err := diag.ParseMode(c.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := flow.ParseSwitchMode(c.SwitchEdges); err != nil {
		errs = append(errs, err)
	}
	switch c.Color {
	case "", "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("unknown color mode %q", c.Color))
	}
	switch c.Theme {
	case "", "nasa", "dark":
	default:
		errs = append(errs, fmt.Errorf("unknown theme %q", c.Theme))
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.MaxSteps < 0 {
		errs = append(errs, fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps))
	}
	if c.CacheSize < 0 {
		errs = append(errs, fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize))
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must not be negative, got %d", c.Jobs))
	}
	return errors.Join(errs...)
}

// Options converts the run-level settings into analysis options.
func (c Config) Options() (diag.Options, error) {
	mode, err := diag.ParseMode(c.Mode)
	if err != nil {
		return diag.Options{}, err
	}
	return diag.Options{Mode: mode, MaxSteps: c.MaxSteps}, nil
}
