package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/catprint/internal/printer"
	"github.com/srg/catprint/scanner"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	LogLevel       string        `json:"log_level" yaml:"log_level" default:"info"`
	ScanTimeout    time.Duration `json:"scan_timeout" yaml:"scan_timeout" default:"10s"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout" default:"30s"`
	ChunkSize      int           `json:"chunk_size" yaml:"chunk_size" default:"20"`
	ChunkDelay     time.Duration `json:"chunk_delay" yaml:"chunk_delay" default:"20ms"`
	AckTimeout     time.Duration `json:"ack_timeout" yaml:"ack_timeout" default:"30s"`
	// Variant forces a printer family ("ae30", "af30" or a service UUID) for
	// addresses that were not seen by a scan. Empty means scan first.
	Variant      string `json:"variant,omitempty" yaml:"variant,omitempty"`
	OutputFormat string `json:"output_format" yaml:"output_format" default:"table"` // table, json
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads a YAML config file. Keys missing from the file keep their defaults.
// An empty path returns DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	defaults.SetDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	switch c.OutputFormat {
	case "table", "json":
	default:
		errs = append(errs, fmt.Errorf("output_format: %q must be table or json", c.OutputFormat))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size: %d must be positive", c.ChunkSize))
	}
	if c.ChunkDelay < 0 {
		errs = append(errs, fmt.Errorf("chunk_delay: %s must not be negative", c.ChunkDelay))
	}
	for name, d := range map[string]time.Duration{
		"scan_timeout":    c.ScanTimeout,
		"connect_timeout": c.ConnectTimeout,
		"ack_timeout":     c.AckTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s: %s must be positive", name, d))
		}
	}
	if c.Variant != "" {
		if _, ok := printer.LookupVariant(c.Variant); !ok {
			errs = append(errs, fmt.Errorf("variant: unknown printer variant %q", c.Variant))
		}
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level, falling back to info.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(c.LogLevel))
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.Level())

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}

// SessionOptions returns the write pacing.
func (c *Config) SessionOptions() printer.SessionOptions {
	return printer.SessionOptions{ChunkSize: c.ChunkSize, ChunkDelay: c.ChunkDelay}
}

// JobOptions returns the per-job defaults.
func (c *Config) JobOptions() printer.JobOptions {
	return printer.JobOptions{ChunkSize: c.ChunkSize, AckTimeout: c.AckTimeout}
}

// ScanOptions returns first-match scan options bounded by ScanTimeout.
func (c *Config) ScanOptions() *scanner.ScanOptions {
	opts := scanner.DefaultScanOptions()
	opts.Duration = c.ScanTimeout
	return opts
}

// ResolveVariant returns the forced variant, or nil when none is configured.
func (c *Config) ResolveVariant() (*printer.Variant, error) {
	if c.Variant == "" {
		return nil, nil
	}
	v, ok := printer.LookupVariant(c.Variant)
	if !ok {
		return nil, fmt.Errorf("unknown printer variant %q", c.Variant)
	}
	return &v, nil
}

// ManagerOptions assembles printer manager options.
func (c *Config) ManagerOptions() (printer.ManagerOptions, error) {
	v, err := c.ResolveVariant()
	if err != nil {
		return printer.ManagerOptions{}, err
	}
	return printer.ManagerOptions{
		Session:        c.SessionOptions(),
		Job:            c.JobOptions(),
		Variant:        v,
		ConnectTimeout: c.ConnectTimeout,
	}, nil
}
