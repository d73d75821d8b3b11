package render

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"unclass/internal/callgraph"
)

// ClassgraphDOT renders a class-level callgraph where each owner class is
// one node and edges aggregate inter-class calls. Classes with no analyzed
// methods are drawn as external. maxNodes limits rendered classes (0 = all).
func ClassgraphDOT(methods []callgraph.Method, title string, t Theme, maxNodes int) string {
	ownerMethodCount := make(map[string]int)
	for _, m := range methods {
		if owner := ownerOf(m.Name); owner != "" {
			ownerMethodCount[owner]++
		}
	}

	type classEdge struct {
		from, to string
	}
	classCounts := make(map[classEdge]int)
	for _, m := range methods {
		src := ownerOf(m.Name)
		for _, c := range m.Calls {
			dst := ownerOf(c.Callee)
			if src == "" || dst == "" || src == dst {
				continue // intra-class or unnamed
			}
			classCounts[classEdge{src, dst}]++
		}
	}

	involvement := make(map[string]int)
	for ce, count := range classCounts {
		involvement[ce.from] += count
		involvement[ce.to] += count
	}
	type rankedClass struct {
		name        string
		involvement int
	}
	ranked := make([]rankedClass, 0, len(involvement))
	for name, inv := range involvement {
		ranked = append(ranked, rankedClass{name, inv})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].involvement != ranked[j].involvement {
			return ranked[i].involvement > ranked[j].involvement
		}
		return ranked[i].name < ranked[j].name
	})
	if maxNodes > 0 && len(ranked) > maxNodes {
		ranked = ranked[:maxNodes]
	}
	renderSet := make(map[string]bool, len(ranked))
	maxMethods := 1
	for _, rc := range ranked {
		renderSet[rc.name] = true
		if c := ownerMethodCount[rc.name]; c > maxMethods {
			maxMethods = c
		}
	}

	var b strings.Builder
	b.WriteString("digraph classgraph {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.5;\n")
	b.WriteString("  ranksep=0.8;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=\"filled,rounded\", fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Helvetica Neue,Helvetica,Arial\", fontsize=10, fontcolor=%q, height=0.4, margin=\"0.15,0.08\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee, color=%q];\n", t.EdgeVirtual)
	writeTitle(&b, title, 8, t)
	b.WriteByte('\n')

	for _, rc := range ranked {
		methods := ownerMethodCount[rc.name]
		if methods == 0 {
			fmt.Fprintf(&b, "  %s [label=<<font point-size=\"10\">%s</font><br/><font point-size=\"7\" color=\"%s\">external</font>>, fillcolor=%q];\n",
				dotID(rc.name), dotEscape(rc.name), t.ExternalText, t.StubFill)
			continue
		}
		// Scale node height by method count (log scale).
		height := 0.4 + 0.3*math.Log2(float64(methods)+1)/math.Log2(float64(maxMethods)+1)
		fmt.Fprintf(&b, "  %s [label=<<font point-size=\"10\">%s</font><br/><font point-size=\"7\" color=\"%s\">%d methods</font>>, height=%.2f];\n",
			dotID(rc.name), dotEscape(rc.name), t.ExternalText, methods, height)
	}
	b.WriteByte('\n')

	edges := make([]classEdge, 0, len(classCounts))
	maxEdgeCount := 1
	for ce, count := range classCounts {
		if !renderSet[ce.from] || !renderSet[ce.to] {
			continue
		}
		edges = append(edges, ce)
		if count > maxEdgeCount {
			maxEdgeCount = count
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})
	for _, ce := range edges {
		count := classCounts[ce]
		pw := 0.5 + 2.0*math.Log2(float64(count)+1)/math.Log2(float64(maxEdgeCount)+1)
		attrs := fmt.Sprintf("penwidth=%.1f", pw)
		if count > 1 {
			attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%d</font>>",
				t.ExternalText, count)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(ce.from), dotID(ce.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
