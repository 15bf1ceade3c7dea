package ridgen

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/ridgen/access"
	"github.com/wippyai/ridgen/errors"
	"github.com/wippyai/ridgen/genstate"
	"github.com/wippyai/ridgen/host"
	"github.com/wippyai/ridgen/native"
	"github.com/wippyai/ridgen/parse"
	"github.com/wippyai/ridgen/syntax"
)

// Source is one Rust source file of the crate.
type Source struct {
	Name string
	Data string
}

// Options configures generation.
type Options struct {
	// LibPath is the shared library the Dart side opens.
	LibPath string
	// MsgTimeout bounds how long a message send waits for its reply.
	// Zero uses the host default.
	MsgTimeout time.Duration
	// Imports are extra Dart imports of the host unit.
	Imports []string
	// InferTypes treats every struct and enum declared in the sources as a
	// type hint for every item.
	InferTypes bool
	// Strict fails generation when any item was reported.
	Strict bool
}

// Output holds both generated units of one crate.
type Output struct {
	Rust        string
	Dart        string
	Artifacts   []genstate.Artifact
	Diagnostics errors.Diagnostics
	Model       *parse.Crate
}

// Generate parses sources as one translation unit and renders it.
//
// Syntax errors abort generation. Items that fail validation or rendering
// are reported in Output.Diagnostics and skipped on both sides.
func Generate(ctx context.Context, sources []Source, opts Options) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.InvalidInput(errors.PhaseParse, "no sources")
	}

	files := make([]*syntax.File, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, src := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := syntax.ParseFile(src.Name, src.Data)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := parse.Parse(files, parse.Options{InferTypes: opts.InferTypes})
	gen := genstate.New()
	agg := access.NewAggregator(gen)
	nat := native.Render(c, gen, agg)
	dart := host.Render(c, gen, agg, host.Options{
		LibPath:    opts.LibPath,
		MsgTimeout: opts.MsgTimeout,
		Imports:    opts.Imports,
		Skip:       nat.Diagnostics,
	})

	out := &Output{
		Rust:      nat.Code,
		Dart:      dart.Code,
		Artifacts: gen.Artifacts(),
		Model:     c,
	}
	out.Diagnostics = append(out.Diagnostics, c.Diagnostics...)
	out.Diagnostics = append(out.Diagnostics, nat.Diagnostics...)
	out.Diagnostics = append(out.Diagnostics, dart.Diagnostics...)

	Logger().Info("generated bridge",
		zap.Int("sources", len(sources)),
		zap.Int("items", len(c.Items)),
		zap.Int("artifacts", len(out.Artifacts)),
		zap.Int("diagnostics", len(out.Diagnostics)))

	if opts.Strict {
		if err := out.Diagnostics.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}
