package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/google/subcommands"

	"github.com/wippyai/ridgen/graph"
)

type graphCmd struct {
	crateFlags
	shared bool
}

func (*graphCmd) Name() string { return "graph" }

func (*graphCmd) Synopsis() string {
	return "Print the dependency graph of generated artifacts in DOT format."
}

func (*graphCmd) Usage() string {
	return "ridgen graph [-dir <crate>] [-shared]\n"
}

func (cmd *graphCmd) SetFlags(f *flag.FlagSet) {
	cmd.register(f)
	f.BoolVar(&cmd.shared, "shared", false, "list artifacts used by more than one item instead")
}

func (cmd *graphCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	cfg, out, err := cmd.generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	if !cmd.shared {
		fmt.Print(graph.DOT(graph.Build(out.Model, out.Artifacts), cfg.Name))
		return subcommands.ExitSuccess
	}

	for _, a := range graph.Shared(out.Artifacts) {
		fmt.Printf("%s\t%d users\n", graph.Label(a), len(a.Users))
	}
	counts := graph.Counts(out.Artifacts)
	kinds := make([]string, 0, len(counts))
	for k, n := range counts {
		kinds = append(kinds, fmt.Sprintf("%s=%d", k, n))
	}
	sort.Strings(kinds)
	fmt.Fprintln(os.Stderr, kinds)
	return subcommands.ExitSuccess
}
