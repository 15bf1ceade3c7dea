// Package graph builds the dependency graph of a generated unit: each
// item points at the shared artifacts (accessors, free entries, pointer
// aliases, coders) it requested, so deduplicated artifacts show up as
// nodes with several callers.
package graph

import (
	"sort"

	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"github.com/wippyai/ridgen/genstate"
	"github.com/wippyai/ridgen/parse"
)

// Label names the node of an artifact.
func Label(a genstate.Artifact) string {
	return a.Kind.String() + ":" + a.Key
}

// Build returns the graph of c's items and the artifacts they claimed.
// Items come first in source order, then artifacts in claim order.
func Build(c *parse.Crate, artifacts []genstate.Artifact) *lattice.Graph {
	g := &lattice.Graph{}
	seen := make(map[string]bool)
	node := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			g.Nodes = append(g.Nodes, name)
		}
	}

	if c != nil {
		for _, it := range c.Items {
			node(it.Name)
		}
	}
	for _, a := range artifacts {
		node(Label(a))
	}
	for _, a := range artifacts {
		callee := Label(a)
		for _, user := range a.Users {
			node(user)
			g.Edges = append(g.Edges, lattice.Edge{Caller: user, Callee: callee})
		}
	}
	g.Dedup()
	return g
}

// DOT renders g.
func DOT(g *lattice.Graph, title string) string {
	return render.DOT(g, title)
}

// Shared returns the artifacts requested by more than one distinct user,
// sorted by label.
func Shared(artifacts []genstate.Artifact) []genstate.Artifact {
	var out []genstate.Artifact
	for _, a := range artifacts {
		users := make(map[string]bool)
		for _, u := range a.Users {
			users[u] = true
		}
		if len(users) > 1 {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return Label(out[i]) < Label(out[j]) })
	return out
}

// Counts tallies artifacts per kind.
func Counts(artifacts []genstate.Artifact) map[genstate.Kind]int {
	out := make(map[genstate.Kind]int)
	for _, a := range artifacts {
		out[a.Kind]++
	}
	return out
}
