package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/vismodel/internal/config"
	"github.com/Faultbox/vismodel/internal/logger"
	"github.com/Faultbox/vismodel/pkg/formats"
	"github.com/Faultbox/vismodel/pkg/overrides"
	"github.com/Faultbox/vismodel/pkg/pack"
)

var errUsage = errors.New("usage")

// app is the state shared by every command.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	pack *pack.Stack
	out  io.Writer
	args []string
}

type command func(a *app) error

// run parses the shared flags, sets up logging and the optional pack, and runs cmd.
func run(name string, args []string, minArgs int, cmd command) error {
	a, err := newApp(name, args, os.Stdout, true)
	if err != nil {
		return err
	}
	defer a.close()

	if len(a.args) < minArgs {
		return fmt.Errorf("%w: modeltool %s needs %d file argument(s)", errUsage, name, minArgs)
	}
	return cmd(a)
}

func newApp(name string, args []string, out io.Writer, initLogger bool) (*app, error) {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	flags := config.RegisterFlags(set)
	if err := set.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if initLogger {
		if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
			return nil, fmt.Errorf("initializing logger: %w", err)
		}
	}

	a := &app{cfg: cfg, log: logger.Named(name), out: out, args: set.Args()}
	if len(flags.Packs) > 0 {
		a.pack = pack.NewStack()
		for _, path := range flags.Packs {
			if err := a.pack.Add(path); err != nil {
				a.pack.Close()
				return nil, err
			}
			a.log.Debug("pack opened", zap.String("path", path))
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.pack != nil {
		a.pack.Close()
	}
}

// decodeOptions builds the decoder options from the config.
func (a *app) decodeOptions() []formats.Option {
	opts := []formats.Option{
		formats.WithLogger(a.log.Named("decode")),
		formats.WithMaxStringLength(a.cfg.Decode.MaxStringLength),
	}
	if !a.cfg.Decode.ApplyOverrides {
		// an empty set stops the sidecar lookup
		opts = append(opts, formats.WithOverrides(overrides.NewSet()))
	}
	return opts
}

// decode reads one model from the pack or from disk and returns it with its size.
func (a *app) decode(name string) (*formats.Model, int64, error) {
	m := &formats.Model{}
	if a.pack != nil {
		entry, err := a.pack.Stat(name)
		if err != nil {
			return nil, 0, err
		}
		if err := formats.DecodeFS(a.pack, entry.Name, m, a.decodeOptions()...); err != nil {
			return nil, 0, err
		}
		return m, int64(entry.UncompressedSize), nil
	}

	st, err := os.Stat(name)
	if err != nil {
		return nil, 0, err
	}
	if err := formats.DecodeFile(name, m, a.decodeOptions()...); err != nil {
		return nil, 0, err
	}
	return m, st.Size(), nil
}

// targets returns the files a batch command works on. Directories on disk are
// searched for .model files.
func (a *app) targets() ([]string, error) {
	if len(a.args) == 0 {
		if a.pack != nil {
			return a.pack.Glob(".model"), nil
		}
		return nil, fmt.Errorf("%w: no files given", errUsage)
	}
	if a.pack != nil {
		return a.args, nil
	}

	var files []string
	for _, arg := range a.args {
		st, err := os.Stat(arg)
		if err != nil || !st.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isModelPath(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", arg, err)
		}
	}
	return files, nil
}

func isModelPath(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".model")
}
