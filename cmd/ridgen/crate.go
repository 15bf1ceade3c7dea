package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wippyai/ridgen"
	"github.com/wippyai/ridgen/config"
	"github.com/wippyai/ridgen/errors"
)

// crateFlags are shared by every command that reads a crate. Set flags
// override Cargo.toml.
type crateFlags struct {
	dir     string
	lib     string
	sources string
	timeout time.Duration
	infer   bool
	strict  bool
}

func (c *crateFlags) register(f *flag.FlagSet) {
	f.StringVar(&c.dir, "dir", ".", "crate directory containing Cargo.toml")
	f.StringVar(&c.lib, "lib", "", "library name, opened as lib<name>.so")
	f.StringVar(&c.sources, "sources", "", "comma separated source files relative to -dir")
	f.DurationVar(&c.timeout, "timeout", 0, "message reply timeout")
	f.BoolVar(&c.infer, "infer", false, "treat every declared struct and enum as a type hint")
	f.BoolVar(&c.strict, "strict", false, "fail when any item was skipped")
}

func (c *crateFlags) config() (*config.Config, error) {
	cfg, err := config.Load(c.dir)
	if err != nil {
		return nil, err
	}
	if c.lib != "" {
		cfg.LibName = c.lib
	}
	if c.sources != "" {
		cfg.Sources = strings.Split(c.sources, ",")
	}
	if c.timeout > 0 {
		cfg.MsgTimeout = c.timeout
	}
	if c.infer {
		cfg.InferTypes = true
	}
	return cfg, nil
}

func readSources(cfg *config.Config) ([]ridgen.Source, error) {
	out := make([]ridgen.Source, 0, len(cfg.Sources))
	for _, name := range cfg.Sources {
		data, err := os.ReadFile(filepath.Join(cfg.Dir, name))
		if err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read source "+name)
		}
		out = append(out, ridgen.Source{Name: name, Data: string(data)})
	}
	return out, nil
}

// imports returns the Dart imports of the host unit. The ffigen binding is
// imported relative to the generated file.
func imports(cfg *config.Config) []string {
	if cfg.FfigenBinding == "" {
		return nil
	}
	rel, err := filepath.Rel(filepath.Dir(cfg.DartOut), cfg.FfigenBinding)
	if err != nil {
		rel = cfg.FfigenBinding
	}
	return []string{filepath.ToSlash(rel)}
}

func (c *crateFlags) generate(ctx context.Context) (*config.Config, *ridgen.Output, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, nil, err
	}
	sources, err := readSources(cfg)
	if err != nil {
		return cfg, nil, err
	}
	out, err := ridgen.Generate(ctx, sources, ridgen.Options{
		LibPath:    cfg.LibPath(),
		MsgTimeout: cfg.MsgTimeout,
		Imports:    imports(cfg),
		InferTypes: cfg.InferTypes,
		Strict:     c.strict,
	})
	return cfg, out, err
}

func printDiagnostics(w io.Writer, d errors.Diagnostics) {
	for _, e := range d {
		fmt.Fprintf(w, "warning: %v\n", e)
	}
	if len(d) > 0 {
		fmt.Fprintf(w, "%d item(s) skipped\n", len(d))
	}
}
