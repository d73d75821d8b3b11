package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zboralski/lattice"
)

// ReachabilityDOT renders a callgraph filtered to the reachable set.
// Entry points are highlighted. Only edges between reachable methods are shown.
func ReachabilityDOT(g *lattice.Graph, reachable map[string]bool, entryPoints []string, title string, t Theme) string {
	entrySet := make(map[string]bool, len(entryPoints))
	for _, ep := range entryPoints {
		entrySet[ep] = true
	}

	type edgeKey struct{ from, to string }
	edgeCount := make(map[edgeKey]int)
	for _, e := range g.Edges {
		if !reachable[e.Caller] || !reachable[e.Callee] {
			continue
		}
		edgeCount[edgeKey{e.Caller, e.Callee}]++
	}

	refNodes := make(map[string]bool)
	for k := range edgeCount {
		refNodes[k.from] = true
		refNodes[k.to] = true
	}
	// Entry points show even without edges.
	for _, ep := range entryPoints {
		refNodes[ep] = true
	}

	ownerMethods := make(map[string][]string)
	var noOwner []string
	for _, name := range sortedKeys(refNodes) {
		if owner := ownerOf(name); owner != "" {
			ownerMethods[owner] = append(ownerMethods[owner], name)
		} else {
			noOwner = append(noOwner, name)
		}
	}

	var b strings.Builder
	writeHeader(&b, "reachable", title, t)

	writeNode := func(name, label string) {
		id := dotID(name)
		if entrySet[name] {
			fmt.Fprintf(&b, "    %s [label=%q, penwidth=1.5, color=%q];\n", id, label, t.EntryBorder)
		} else {
			fmt.Fprintf(&b, "    %s [label=%q];\n", id, label)
		}
	}

	for _, owner := range sortedKeys(ownerMethods) {
		names := ownerMethods[owner]
		if len(names) < 2 {
			noOwner = append(noOwner, names...)
			continue
		}
		fmt.Fprintf(&b, "  subgraph cluster_%s {\n", dotID(owner))
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.ClusterLabel, dotEscape(owner))
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, name := range names {
			writeNode(name, truncLabel(stripMethodName(name, owner), 50))
		}
		b.WriteString("  }\n")
	}
	sort.Strings(noOwner)
	for _, name := range noOwner {
		b.WriteString("  ")
		writeNode(name, truncLabel(name, 50))
	}
	b.WriteByte('\n')

	keys := make([]edgeKey, 0, len(edgeCount))
	for k := range edgeCount {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		return keys[i].to < keys[j].to
	})
	for _, k := range keys {
		attrs := fmt.Sprintf("color=%q", t.EdgeVirtual)
		if count := edgeCount[k]; count > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(count)*0.1)
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(k.from), dotID(k.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}
