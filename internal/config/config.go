// Package config handles modeltool configuration loading and management.
package config

import (
	"fmt"
	"runtime"

	"github.com/Faultbox/vismodel/internal/logger"
)

// Output formats understood by the info and materials commands.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Config holds all tool settings.
type Config struct {
	Decode  DecodeConfig  `yaml:"decode"`
	Catalog CatalogConfig `yaml:"catalog"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// DecodeConfig holds model decoding settings.
type DecodeConfig struct {
	ApplyOverrides  bool   `yaml:"apply_overrides"`   // apply materials.xml sidecars
	MaxStringLength uint32 `yaml:"max_string_length"` // upper bound for any string in a model
	Workers         int    `yaml:"workers"`           // parallel decoders for check and index
}

// CatalogConfig holds the asset catalog settings.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig holds report formatting settings.
type OutputConfig struct {
	Format string `yaml:"format"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Decode: DecodeConfig{
			ApplyOverrides:  true,
			MaxStringLength: 1 << 20,
			Workers:         runtime.NumCPU(),
		},
		Catalog: CatalogConfig{
			Path: "catalog.db",
		},
		Output: OutputConfig{
			Format: FormatText,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Decode.Workers < 1 {
		return fmt.Errorf("decode.workers must be at least 1, got %d", c.Decode.Workers)
	}
	if c.Decode.MaxStringLength == 0 {
		return fmt.Errorf("decode.max_string_length must be positive")
	}
	switch c.Output.Format {
	case FormatText, FormatYAML:
	default:
		return fmt.Errorf("output.format must be %q or %q, got %q", FormatText, FormatYAML, c.Output.Format)
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}
