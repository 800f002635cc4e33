// Package config loads swapgraph configuration from YAML with environment
// variable expansion and optional .env files.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/LuisRevillaM/swapgraph-sub007/internal/ir"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Exporter names.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterPrometheus = "prometheus"
)

// Config represents the swapgraph configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" json:"log"`
	Matching  MatchingConfig  `yaml:"matching" json:"matching"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry" json:"telemetry"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Matching.Validate(); err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  slog.Level `yaml:"level" json:"level"`
	Format string     `yaml:"format" json:"format"`
}

// Validate validates the log configuration.
func (c *LogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Format, validation.Required, validation.In(LogFormatText, LogFormatJSON)),
	)
}

// MatchingConfig holds default run knobs. An input document's own knobs
// always win; these only fill the gaps. Zero means "engine default" for
// MaxEnumeratedCycles and TimeoutMs.
type MatchingConfig struct {
	MinCycleLength      int  `yaml:"min_cycle_length" json:"min_cycle_length"`
	MaxCycleLength      int  `yaml:"max_cycle_length" json:"max_cycle_length"`
	MaxEnumeratedCycles int  `yaml:"max_enumerated_cycles" json:"max_enumerated_cycles"`
	TimeoutMs           int  `yaml:"timeout_ms" json:"timeout_ms"`
	IncludeDiagnostics  bool `yaml:"include_diagnostics" json:"include_diagnostics"`
}

// Validate validates the matching configuration.
func (c *MatchingConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MinCycleLength, validation.Required, validation.Min(2)),
		validation.Field(&c.MaxCycleLength, validation.Required, validation.Min(c.MinCycleLength)),
		validation.Field(&c.MaxEnumeratedCycles, validation.Min(0)),
		validation.Field(&c.TimeoutMs, validation.Min(0)),
	)
}

// ApplyTo fills knobs the input leaves unset.
func (c *MatchingConfig) ApplyTo(in *ir.MatchInput) {
	if in.MinCycleLength == nil {
		in.MinCycleLength = ir.IntPtr(c.MinCycleLength)
	}
	if in.MaxCycleLength == nil {
		in.MaxCycleLength = ir.IntPtr(c.MaxCycleLength)
	}
	if in.MaxEnumeratedCycles == nil && c.MaxEnumeratedCycles > 0 {
		in.MaxEnumeratedCycles = ir.IntPtr(c.MaxEnumeratedCycles)
	}
	if in.TimeoutMs == nil && c.TimeoutMs > 0 {
		in.TimeoutMs = ir.IntPtr(c.TimeoutMs)
	}
	if c.IncludeDiagnostics {
		in.IncludeCycleDiagnostics = true
	}
}

// StoreConfig holds SQLite run log configuration.
type StoreConfig struct {
	Path string `yaml:"path" json:"path"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// TelemetryConfig selects OpenTelemetry exporters.
//
// MetricsAddr is where the Prometheus exporter is served; only used with
// the prometheus metric exporter.
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" json:"service_name"`
	TraceExporter  string `yaml:"trace_exporter" json:"trace_exporter"`
	MetricExporter string `yaml:"metric_exporter" json:"metric_exporter"`
	MetricsAddr    string `yaml:"metrics_addr" json:"metrics_addr"`
}

// Validate validates the telemetry configuration.
func (c *TelemetryConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.ServiceName, validation.Required),
		validation.Field(&c.TraceExporter, validation.Required, validation.In(ExporterNone, ExporterStdout)),
		validation.Field(&c.MetricExporter, validation.Required, validation.In(ExporterNone, ExporterStdout, ExporterPrometheus)),
		validation.Field(&c.MetricsAddr, validation.When(c.MetricExporter == ExporterPrometheus, validation.Required)),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  slog.LevelInfo,
			Format: LogFormatText,
		},
		Matching: MatchingConfig{
			MinCycleLength: ir.DefaultMinCycleLength,
			MaxCycleLength: ir.DefaultMaxCycleLength,
		},
		Store: StoreConfig{
			Path: "./swapgraph.db",
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "swapgraph",
			TraceExporter:  ExporterNone,
			MetricExporter: ExporterNone,
			MetricsAddr:    ":9464",
		},
	}
}

// Load reads configuration from a YAML file on top of the defaults.
//
// Environment variables in the file are expanded with os.ExpandEnv. An
// empty filename returns the validated defaults.
func Load(filename string) (*Config, error) {
	cfg := NewDefaultConfig()
	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
		}

		expandedData := os.ExpandEnv(string(data))

		decoder := yaml.NewDecoder(strings.NewReader(expandedData))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("failed to parse config file %s: %w", filename, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadEnv loads .env files into the process environment. Missing files
// are skipped; variables already set are never overwritten.
func LoadEnv(files ...string) error {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		existing = append(existing, f)
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// NewLogger builds the process logger described by c. Logs go to w.
func (c *LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level}
	if c.Format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
