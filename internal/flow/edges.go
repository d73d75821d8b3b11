package flow

import (
	"fmt"
	"io"
	"strings"

	"unclass/internal/bytecode"
)

// Edge is an outgoing edge with a display label.
// Cond is "" for plain flow, "T" / "F" for conditional branches and
// "case k" / "default" for switches.
type Edge struct {
	To   BlockID
	Cond string
}

// Edges returns b's outgoing edges labeled by the terminating instruction.
func (g *Graph) Edges(b *Block) []Edge {
	if b.dead || len(b.Insts) == 0 {
		return nil
	}
	last := b.Last()
	bi := bytecode.DecodeBranch(last)
	out := make([]Edge, 0, len(b.Children))
	for _, c := range b.Children {
		out = append(out, Edge{To: c, Cond: g.label(last, bi, c)})
	}
	return out
}

func (g *Graph) label(last bytecode.Inst, bi bytecode.BranchInfo, to BlockID) string {
	switch bi.Kind {
	case bytecode.KindCond:
		if id, ok := g.byOffset[bi.Target]; ok && id == to {
			return "T"
		}
		return "F"
	case bytecode.KindSwitch:
		def, cases, _ := last.Switch()
		var keys []string
		for _, c := range cases {
			if id, ok := g.byOffset[c.Target]; ok && id == to {
				keys = append(keys, fmt.Sprint(c.Key))
			}
		}
		if id, ok := g.byOffset[def]; ok && id == to {
			keys = append(keys, "default")
			if len(keys) == 1 {
				return "default"
			}
		}
		if len(keys) > 0 {
			return "case " + strings.Join(keys, ",")
		}
	}
	return ""
}

// Reachable returns the set of live blocks reachable from the entry block.
func (g *Graph) Reachable() map[BlockID]bool {
	seen := make(map[BlockID]bool)
	if len(g.blocks) == 0 {
		return seen
	}
	queue := []BlockID{Entry}
	seen[Entry] = true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, c := range g.blocks[id].Children {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return seen
}

// Unreachable returns live blocks with no path from the entry block.
func (g *Graph) Unreachable() []*Block {
	seen := g.Reachable()
	var out []*Block
	for _, b := range g.Live() {
		if !seen[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

// WriteText writes every live block with its parents, instructions and
// labeled children.
//
//	block 0  <- []
//	    0000  iconst_0
//	    0001  ifeq  00 05  ; -> 0006
//	  -> [1 F, 2 T]
func (g *Graph) WriteText(w io.Writer, annotators ...bytecode.Annotator) error {
	for _, b := range g.Live() {
		if _, err := fmt.Fprintf(w, "block %d  <- %v\n", b.ID, b.Parents); err != nil {
			return err
		}
		for _, inst := range b.Insts {
			if _, err := fmt.Fprintf(w, "    %s\n", bytecode.FormatInst(inst, annotators...)); err != nil {
				return err
			}
		}
		edges := g.Edges(b)
		parts := make([]string, len(edges))
		for i, e := range edges {
			parts[i] = fmt.Sprint(e.To)
			if e.Cond != "" {
				parts[i] += " " + e.Cond
			}
		}
		if _, err := fmt.Fprintf(w, "  -> [%s]\n", strings.Join(parts, ", ")); err != nil {
			return err
		}
	}
	return nil
}

// Text returns WriteText output as a string.
func (g *Graph) Text(annotators ...bytecode.Annotator) string {
	var sb strings.Builder
	_ = g.WriteText(&sb, annotators...)
	return sb.String()
}
