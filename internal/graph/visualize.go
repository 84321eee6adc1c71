package graph

import (
	"fmt"
	"strings"
)

const (
	vizColorScheme = "set312"
	vizMaxColors   = 12
	vizMaxState    = 64
)

// Visualize renders the subgraph reachable from roots as DOT lines.
//
// Each node is a DOT vertex "nN", numbered in order of first mention, and
// labelled "Product:(subject):Type == state", with the subject followed by
// "@variants" when the node has a variant context and the state truncated.
// Distinct nodes may share a label. Fill colour cycles through the set312
// scheme per product; Throw nodes are tomato and Noop nodes white. Output
// depends only on graph content, so identical graphs render byte-identically.
func (g *ProductGraph) Visualize(roots []NodeKey) []string {
	colors := make(map[TypeID]int)
	colorOf := func(n Node, s State) string {
		switch s.Status {
		case StatusThrow:
			return "tomato"
		case StatusNoop:
			return "white"
		}
		c, ok := colors[n.Product()]
		if !ok {
			c = len(colors)%vizMaxColors + 1
			colors[n.Product()] = c
		}
		return fmt.Sprint(c)
	}

	lines := []string{
		"digraph plans {",
		fmt.Sprintf("  node[colorscheme=%s];", vizColorScheme),
		"  concentrate=true;",
		"  rankdir=LR;",
	}
	ids := make(map[NodeKey]string)
	idOf := func(k NodeKey) string {
		id, ok := ids[k]
		if !ok {
			id = fmt.Sprintf("n%d", len(ids))
			ids[k] = id
		}
		return id
	}
	for n, s := range g.Walk(roots) {
		id := idOf(n.Key)
		lines = append(lines, fmt.Sprintf("  %s [label=%q, style=filled, fillcolor=%s];",
			id, formatVizNode(n, s), colorOf(n, s)))
		for _, dep := range g.DependenciesOf(n.Key) {
			lines = append(lines, fmt.Sprintf("    %s -> %s", id, idOf(dep.Key)))
		}
	}
	return append(lines, "}")
}

func formatVizNode(n Node, s State) string {
	product := string(n.Product())
	if sv, ok := n.Selector.(SelectVariant); ok {
		product += "@" + sv.VariantKey
	}

	subject := "(" + n.Key.Subject + ")"
	if n.Key.Variants != "" {
		subject = n.Key.Subject + "@" + n.Key.Variants
	}

	typ := string(n.Kind())
	if n.Kind() == KindTask {
		typ = n.Task
	}

	return fmt.Sprintf("%s:%s:%s == %s", product, subject, typ, truncate(s.String(), vizMaxState))
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
