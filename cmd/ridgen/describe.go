package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/wippyai/ridgen/witmap"
)

type describeCmd struct {
	crateFlags
}

func (*describeCmd) Name() string { return "describe" }

func (*describeCmd) Synopsis() string {
	return "Print the bridged surface of a crate as a WIT interface."
}

func (*describeCmd) Usage() string {
	return "ridgen describe [-dir <crate>]\n"
}

func (cmd *describeCmd) SetFlags(f *flag.FlagSet) {
	cmd.register(f)
}

func (cmd *describeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, out, err := cmd.generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	iface := witmap.Describe(cfg.Name, out.Model)
	printDiagnostics(os.Stderr, iface.Diagnostics)
	fmt.Print(iface.String())
	return subcommands.ExitSuccess
}
