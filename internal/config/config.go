// Package config loads the engine tuning file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/climabus/climabus/internal/validate"
	"github.com/climabus/climabus/pkg/climate"
)

// maxFileSize bounds the tuning file.
const maxFileSize = 1 * 1024 * 1024

// Config holds the engine tuning. Durations are strings like "10ms" so the
// file stays hand-editable.
type Config struct {
	MaxTrackedIDs    int     `json:"max_tracked_ids" validate:"gt=0"`
	HistoryDepth     int     `json:"history_depth" validate:"min=2"`
	MaxCandidates    int     `json:"max_candidates" validate:"gt=0"`
	ReceiveBudget    string  `json:"receive_budget" validate:"duration"`
	DisplayInterval  string  `json:"display_interval" validate:"duration"`
	StatusInterval   string  `json:"status_interval" validate:"duration"`
	RedrawThresholdF float64 `json:"redraw_threshold_f" validate:"gte=0"`

	Signals climate.SignalMap `json:"signals"`
}

// Default returns the built-in tuning.
func Default() *Config {
	return &Config{
		MaxTrackedIDs:    30,
		HistoryDepth:     10,
		MaxCandidates:    20,
		ReceiveBudget:    "10ms",
		DisplayInterval:  "1s",
		StatusInterval:   "3s",
		RedrawThresholdF: climate.DefaultRedrawThresholdF,
		Signals:          climate.DefaultSignalMap(),
	}
}

// Load reads a JSON tuning file. Fields omitted from the file keep their
// default values, so partial files are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks that the configuration values are usable, including the
// signal map offsets.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.GetReceiveBudget() > c.GetDisplayInterval() {
		return fmt.Errorf("receive_budget %s exceeds display_interval %s", c.ReceiveBudget, c.DisplayInterval)
	}
	return nil
}

// GetReceiveBudget returns the bounded receive wait.
func (c *Config) GetReceiveBudget() time.Duration {
	return parseOr(c.ReceiveBudget, 10*time.Millisecond)
}

// GetDisplayInterval returns the display refresh cadence.
func (c *Config) GetDisplayInterval() time.Duration {
	return parseOr(c.DisplayInterval, time.Second)
}

// GetStatusInterval returns the status line cadence.
func (c *Config) GetStatusInterval() time.Duration {
	return parseOr(c.StatusInterval, 3*time.Second)
}

func parseOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
