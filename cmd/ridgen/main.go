// Command ridgen generates the Rust and Dart sides of a rid bridge.
//
//	ridgen generate -dir path/to/crate
//	ridgen describe -dir path/to/crate
//	ridgen graph -dir path/to/crate > artifacts.dot
//	ridgen explore -dir path/to/crate
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/wippyai/ridgen"
	"github.com/wippyai/ridgen/access"
	"github.com/wippyai/ridgen/channel"
	"github.com/wippyai/ridgen/config"
	"github.com/wippyai/ridgen/host"
	"github.com/wippyai/ridgen/native"
	"github.com/wippyai/ridgen/resource"
	"github.com/wippyai/ridgen/store"
)

var (
	level = flag.String("level", "warn", "log level: debug, info, warn or error")
	dev   = flag.Bool("dev", false, "human readable development logging")
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(&generateCmd{}, "")
	subcommands.Register(&describeCmd{}, "inspect")
	subcommands.Register(&graphCmd{}, "inspect")
	subcommands.Register(&exploreCmd{}, "inspect")

	flag.Parse()

	l, err := newLogger(*level, *dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(int(subcommands.ExitUsageError))
	}
	installLogger(l)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	status := subcommands.Execute(ctx)
	cancel()
	_ = l.Sync()
	os.Exit(int(status))
}

func newLogger(level string, dev bool) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	if dev {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = lvl
	return cfg.Build()
}

func installLogger(l *zap.Logger) {
	ridgen.SetLogger(l.Named("ridgen"))
	access.SetLogger(l.Named("access"))
	native.SetLogger(l.Named("native"))
	host.SetLogger(l.Named("host"))
	config.SetLogger(l.Named("config"))
	store.SetLogger(l.Named("store"))
	channel.SetLogger(l.Named("channel"))
	resource.SetLogger(l.Named("resource"))
}
