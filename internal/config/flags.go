package config

import (
	"flag"
	"strings"
)

// Flags are the command-line overrides shared by every modeltool command.
type Flags struct {
	Config      string
	Debug       bool
	NoOverrides bool
	Workers     int
	Catalog     string
	Format      string
	LogFile     string
	Packs       []string
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&f.NoOverrides, "no-overrides", false, "Ignore materials.xml sidecars")
	fs.IntVar(&f.Workers, "workers", 0, "Parallel decoders (default from config)")
	fs.StringVar(&f.Catalog, "catalog", "", "Catalog database path")
	fs.StringVar(&f.Format, "format", "", "Output format: text or yaml")
	fs.StringVar(&f.LogFile, "log-file", "", "Write logs to this file")
	fs.Var((*stringList)(&f.Packs), "pack", "Read models from a zip asset pack (repeatable, later packs win)")
	return f
}

// apply copies the flags that were set onto cfg.
func (f *Flags) apply(cfg *Config) {
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.NoOverrides {
		cfg.Decode.ApplyOverrides = false
	}
	if f.Workers > 0 {
		cfg.Decode.Workers = f.Workers
	}
	if f.Catalog != "" {
		cfg.Catalog.Path = f.Catalog
	}
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
}

// stringList is a flag that may be given more than once.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}
