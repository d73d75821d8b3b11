package render

import (
	"fmt"
	"sort"
	"strings"

	"unclass/internal/bytecode"
	"unclass/internal/callgraph"
)

// Provenance categories for call edges, one per invoke instruction.
const (
	ProvVirtual    = "virtual"
	ProvInterface  = "interface"
	ProvStatic     = "static"
	ProvSpecial    = "special"
	ProvDynamic    = "dynamic"
	ProvUnresolved = "unresolved"
)

// ClassifyEdgeProv returns the provenance category for a call.
func ClassifyEdgeProv(c callgraph.Call) string {
	if strings.HasPrefix(c.Callee, "#") {
		return ProvUnresolved
	}
	switch c.Op {
	case bytecode.OpInvokevirtual:
		return ProvVirtual
	case bytecode.OpInvokeinterface:
		return ProvInterface
	case bytecode.OpInvokestatic:
		return ProvStatic
	case bytecode.OpInvokespecial:
		return ProvSpecial
	case bytecode.OpInvokedynamic:
		return ProvDynamic
	default:
		return ProvUnresolved
	}
}

// edgeColor returns the DOT color for an edge provenance category.
func edgeColor(prov string, t Theme) string {
	switch prov {
	case ProvVirtual:
		return t.EdgeVirtual
	case ProvInterface:
		return t.EdgeInterface
	case ProvStatic:
		return t.EdgeStatic
	case ProvSpecial:
		return t.EdgeSpecial
	case ProvDynamic:
		return t.EdgeDynamic
	default:
		return t.EdgeUnresolved
	}
}

// edgeStyle returns dot style attributes for provenance.
func edgeStyle(prov string) string {
	switch prov {
	case ProvInterface, ProvDynamic:
		return "dotted"
	case ProvUnresolved:
		return "dashed"
	default:
		return "solid"
	}
}

// CallgraphDOT renders methods and their invoke edges as DOT.
// Methods with at least one edge are clustered by owner class; callees
// outside the method set are shown as plaintext nodes.
// maxNodes limits the number of method nodes rendered (0 = all).
func CallgraphDOT(methods []callgraph.Method, title string, t Theme, maxNodes int) string {
	type edgeKey struct {
		from, to, prov string
	}
	counts := make(map[edgeKey]int)
	refNodes := make(map[string]bool)
	for _, m := range methods {
		for _, c := range m.Calls {
			k := edgeKey{m.Name, c.Callee, ClassifyEdgeProv(c)}
			counts[k]++
			refNodes[k.from] = true
			refNodes[k.to] = true
		}
	}

	// Filter to methods that participate in edges.
	var shown []string
	for _, m := range methods {
		if refNodes[m.Name] {
			shown = append(shown, m.Name)
		}
	}
	if maxNodes > 0 && len(shown) > maxNodes {
		shown = shown[:maxNodes]
	}
	methodSet := make(map[string]bool, len(shown))
	for _, name := range shown {
		methodSet[name] = true
	}
	known := make(map[string]bool, len(methods))
	for _, m := range methods {
		known[m.Name] = true
	}

	keys := make([]edgeKey, 0, len(counts))
	externals := make(map[string]bool)
	for k := range counts {
		if !methodSet[k.from] {
			continue // edge from a method that is not rendered
		}
		if !known[k.to] {
			externals[k.to] = true
		} else if !methodSet[k.to] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].from != keys[j].from {
			return keys[i].from < keys[j].from
		}
		if keys[i].to != keys[j].to {
			return keys[i].to < keys[j].to
		}
		return keys[i].prov < keys[j].prov
	})

	ownerMethods := make(map[string][]string)
	var noOwner []string
	for _, name := range shown {
		if owner := ownerOf(name); owner != "" {
			ownerMethods[owner] = append(ownerMethods[owner], name)
		} else {
			noOwner = append(noOwner, name)
		}
	}

	var b strings.Builder
	writeHeader(&b, "callgraph", title, t)

	for _, owner := range sortedKeys(ownerMethods) {
		names := ownerMethods[owner]
		if len(names) < 2 {
			// Singletons go at top level.
			noOwner = append(noOwner, names...)
			continue
		}
		fmt.Fprintf(&b, "  subgraph cluster_%s {\n", dotID(owner))
		fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.ClusterLabel, dotEscape(owner))
		fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
		for _, name := range names {
			// Inside a cluster, strip the owner prefix for shorter labels.
			label := truncLabel(stripMethodName(name, owner), 50)
			fmt.Fprintf(&b, "    %s [label=%q];\n", dotID(name), label)
		}
		b.WriteString("  }\n")
	}
	sort.Strings(noOwner)
	for _, name := range noOwner {
		fmt.Fprintf(&b, "  %s [label=%q];\n", dotID(name), truncLabel(name, 60))
	}
	b.WriteByte('\n')

	for _, name := range sortedKeys(externals) {
		fmt.Fprintf(&b, "  %s [label=%q, shape=plaintext, style=\"\", fillcolor=none, fontcolor=%q, fontsize=8];\n",
			dotID(name), truncLabel(name, 50), t.ExternalText)
	}
	b.WriteByte('\n')

	for _, k := range keys {
		color := edgeColor(k.prov, t)
		attrs := fmt.Sprintf("color=%q, style=%q", color, edgeStyle(k.prov))
		if n := counts[k]; n > 1 {
			attrs += fmt.Sprintf(", penwidth=%.1f", 0.5+float64(n)*0.1)
			if n > 2 {
				attrs += fmt.Sprintf(", label=<<font point-size=\"7\" color=\"%s\">%dx</font>>", color, n)
			}
		}
		fmt.Fprintf(&b, "  %s -> %s [%s];\n", dotID(k.from), dotID(k.to), attrs)
	}

	b.WriteString("}\n")
	return b.String()
}

// CallgraphStats summarizes invoke edges across a method set.
type CallgraphStats struct {
	TotalMethods int
	TotalEdges   int
	Unresolved   int
	UniqueOwners int
	ProvCounts   map[string]int
	TopCallers   []NameCount // sorted desc
	TopCallees   []NameCount // sorted desc
	TopOwners    []NameCount // sorted desc by callee count
}

// NameCount pairs a name with a count.
type NameCount struct {
	Name  string
	Count int
}

// ComputeStats computes callgraph statistics for methods.
func ComputeStats(methods []callgraph.Method) CallgraphStats {
	stats := CallgraphStats{
		TotalMethods: len(methods),
		ProvCounts:   make(map[string]int),
	}
	callerCount := make(map[string]int)
	calleeCount := make(map[string]int)
	ownerCount := make(map[string]int)
	for _, m := range methods {
		for _, c := range m.Calls {
			stats.TotalEdges++
			prov := ClassifyEdgeProv(c)
			stats.ProvCounts[prov]++
			callerCount[m.Name]++
			if prov == ProvUnresolved {
				stats.Unresolved++
				continue
			}
			calleeCount[c.Callee]++
			if owner := ownerOf(c.Callee); owner != "" {
				ownerCount[owner]++
			}
		}
	}
	stats.UniqueOwners = len(ownerCount)
	stats.TopCallers = topNMap(callerCount, 20)
	stats.TopCallees = topNMap(calleeCount, 20)
	stats.TopOwners = topNMap(ownerCount, 30)
	return stats
}

// topNMap returns the top N entries from a map, sorted descending with
// ties broken by name.
func topNMap(m map[string]int, n int) []NameCount {
	entries := make([]NameCount, 0, len(m))
	for name, count := range m {
		entries = append(entries, NameCount{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
