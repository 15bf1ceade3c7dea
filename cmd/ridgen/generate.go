package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/subcommands"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/ridgen"
)

type generateCmd struct {
	crateFlags
	dryRun bool
}

func (*generateCmd) Name() string { return "generate" }

func (*generateCmd) Synopsis() string {
	return "Generate the Rust shims and Dart bindings of a crate."
}

func (*generateCmd) Usage() string {
	return "ridgen generate [-dir <crate>] [-lib <name>] [-timeout <d>] [-strict] [-n]\n"
}

func (cmd *generateCmd) SetFlags(f *flag.FlagSet) {
	cmd.register(f)
	f.BoolVar(&cmd.dryRun, "n", false, "print the output paths without writing")
}

func (cmd *generateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, out, err := cmd.generate(ctx)
	if out != nil {
		printDiagnostics(os.Stderr, out.Diagnostics)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	targets := map[string]string{
		filepath.Join(cfg.Dir, cfg.RustOut): out.Rust,
		filepath.Join(cfg.Dir, cfg.DartOut): out.Dart,
	}
	if cmd.dryRun {
		for path, code := range targets {
			fmt.Printf("%s (%d bytes)\n", path, len(code))
		}
		return subcommands.ExitSuccess
	}
	if err := write(ctx, targets); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	ridgen.Logger().Info("wrote bridge",
		zap.String("rust", cfg.RustOut),
		zap.String("dart", cfg.DartOut),
		zap.Int("artifacts", len(out.Artifacts)))
	return subcommands.ExitSuccess
}

func write(ctx context.Context, targets map[string]string) error {
	g, gctx := errgroup.WithContext(ctx)
	for path, code := range targets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
			}
			if err := os.WriteFile(path, []byte(code), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			return nil
		})
	}
	return g.Wait()
}
