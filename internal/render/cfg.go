package render

import (
	"fmt"
	"strings"

	"unclass/internal/bytecode"
	"unclass/internal/flow"
)

// maxBlockLines bounds the instruction lines shown per block.
const maxBlockLines = 12

// CFGDOT renders a method's surviving basic blocks as DOT.
// The entry block is highlighted, blocks without successors are shaded
// and blocks unreachable from the entry are dashed. Conditional edges use
// T/F colors; switch edges carry their case labels.
func CFGDOT(name string, g *flow.Graph, t Theme, annotators ...bytecode.Annotator) string {
	live := g.Live()
	if len(live) == 0 {
		return ""
	}
	reach := g.Reachable()

	var b strings.Builder
	b.WriteString("digraph cfg {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.4;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Courier,monospace\", fontsize=8, fontcolor=%q, margin=\"0.08,0.04\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	b.WriteString("  edge [penwidth=0.7, arrowsize=0.5, arrowhead=vee];\n")
	writeTitle(&b, name, 9, t)
	b.WriteByte('\n')

	for _, blk := range live {
		lines := make([]string, 0, len(blk.Insts))
		for _, inst := range blk.Insts {
			lines = append(lines, dotEscape(bytecode.FormatInst(inst, annotators...)))
		}
		if len(lines) > maxBlockLines {
			kept := make([]string, 0, 11)
			kept = append(kept, lines[:5]...)
			kept = append(kept, fmt.Sprintf("... (%d more)", len(lines)-10))
			lines = append(kept, lines[len(lines)-5:]...)
		}
		label := strings.Join(lines, "<br align=\"left\"/>") + "<br align=\"left\"/>"

		attrs := ""
		if blk.ID == flow.Entry {
			attrs = fmt.Sprintf(", penwidth=1.5, color=%q", t.EntryBorder)
		}
		switch {
		case !reach[blk.ID]:
			attrs += fmt.Sprintf(", style=\"filled,dashed\", fillcolor=%q", t.UnreachableFill)
		case len(blk.Children) == 0:
			attrs += fmt.Sprintf(", fillcolor=%q", t.StubFill)
		}
		fmt.Fprintf(&b, "  bb%d [label=<%s>%s];\n", blk.ID, label, attrs)
	}
	b.WriteByte('\n')

	for _, blk := range live {
		for _, e := range g.Edges(blk) {
			from, to := fmt.Sprintf("bb%d", blk.ID), fmt.Sprintf("bb%d", e.To)
			switch e.Cond {
			case "":
				fmt.Fprintf(&b, "  %s -> %s [color=%q];\n", from, to, t.EdgeFlow)
			case "T", "F":
				color := t.EdgeTaken
				if e.Cond == "F" {
					color = t.EdgeFallthrough
				}
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">%s</font>>];\n",
					from, to, color, color, e.Cond)
			default:
				fmt.Fprintf(&b, "  %s -> %s [color=%q, label=<<font point-size=\"7\" color=\"%s\">%s</font>>];\n",
					from, to, t.EdgeSwitch, t.EdgeSwitch, dotEscape(e.Cond))
			}
		}
	}

	b.WriteString("}\n")
	return b.String()
}
