// Package flow builds per-method control-flow graphs from decoded
// instructions. Blocks live in an arena addressed by BlockID; merged blocks
// are tombstoned in place so every id stays valid.
package flow

import (
	"errors"
	"fmt"

	"unclass/internal/bytecode"
)

var (
	ErrUnsupported = errors.New("flow: unsupported construct")
	ErrBadTarget   = errors.New("flow: unresolvable jump target")
	ErrStepLimit   = errors.New("flow: coalescing step limit reached")
)

// UnsupportedError reports an instruction whose successors cannot be
// derived statically.
type UnsupportedError struct {
	Offset uint32
	Op     bytecode.Op
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("flow: %s at %04X not supported", e.Op, e.Offset)
}

func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

// BlockID is a stable index into a Graph's block arena.
type BlockID int

// Block is a basic block. Children are ordered; Parents may repeat an id
// when two edges join the same pair.
type Block struct {
	ID       BlockID
	Insts    []bytecode.Inst
	Parents  []BlockID
	Children []BlockID
	dead     bool
}

// Tombstoned reports whether the block was merged into its parent.
func (b *Block) Tombstoned() bool { return b.dead }

// Start returns the offset of the first instruction.
func (b *Block) Start() uint32 {
	if len(b.Insts) == 0 {
		return 0
	}
	return b.Insts[0].Offset
}

// End returns the offset just past the last instruction. A block that
// absorbed a jump target can have gaps between Start and End.
func (b *Block) End() uint32 {
	if len(b.Insts) == 0 {
		return 0
	}
	return b.Insts[len(b.Insts)-1].Next()
}

// Last returns the block's terminating instruction.
func (b *Block) Last() bytecode.Inst {
	return b.Insts[len(b.Insts)-1]
}

// SwitchMode selects how tableswitch and lookupswitch edges are handled.
type SwitchMode int

const (
	SwitchExpand SwitchMode = iota // default target then each case target
	SwitchReject                   // fail with ErrUnsupported
)

// ParseSwitchMode maps a config value to a SwitchMode.
func ParseSwitchMode(s string) (SwitchMode, error) {
	switch s {
	case "", "expand":
		return SwitchExpand, nil
	case "reject":
		return SwitchReject, nil
	}
	return SwitchExpand, fmt.Errorf("unknown switch mode %q", s)
}

// Options controls graph construction.
type Options struct {
	Switches SwitchMode
	MaxSteps int // coalescing merge cap; 0 = 10M
}

const defaultMaxSteps = 10_000_000

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

// Graph is a method's control-flow graph.
type Graph struct {
	blocks   []*Block
	byOffset map[uint32]BlockID
}

// Len returns the arena size, including tombstones.
func (g *Graph) Len() int { return len(g.blocks) }

// Block returns the block with the given id, tombstoned or not.
func (g *Graph) Block(id BlockID) (*Block, bool) {
	if id < 0 || int(id) >= len(g.blocks) {
		return nil, false
	}
	return g.blocks[id], true
}

// Lookup maps an instruction offset to the block created for it before
// coalescing. The block may since have been tombstoned.
func (g *Graph) Lookup(offset uint32) (BlockID, bool) {
	id, ok := g.byOffset[offset]
	return id, ok
}

// Owner maps an instruction offset to the live block containing it.
// Merged blocks need not cover a contiguous offset range, so membership is
// decided per instruction.
func (g *Graph) Owner(offset uint32) (*Block, bool) {
	for _, b := range g.Live() {
		for _, inst := range b.Insts {
			if offset >= inst.Offset && offset < inst.Next() {
				return b, true
			}
		}
	}
	return nil, false
}

// Live returns the surviving blocks in id order.
func (g *Graph) Live() []*Block {
	out := make([]*Block, 0, len(g.blocks))
	for _, b := range g.blocks {
		if !b.dead {
			out = append(out, b)
		}
	}
	return out
}

// Tombstones returns the number of merged-away blocks.
func (g *Graph) Tombstones() int {
	n := 0
	for _, b := range g.blocks {
		if b.dead {
			n++
		}
	}
	return n
}

// Entry is the id of the block holding the method's first instruction.
const Entry BlockID = 0

// Build creates one block per instruction, links them and coalesces
// straight-line chains.
func Build(insts []bytecode.Inst, opts Options) (*Graph, error) {
	g := &Graph{
		blocks:   make([]*Block, len(insts)),
		byOffset: make(map[uint32]BlockID, len(insts)),
	}
	for i, inst := range insts {
		g.blocks[i] = &Block{ID: BlockID(i), Insts: []bytecode.Inst{inst}}
		g.byOffset[inst.Offset] = BlockID(i)
	}
	for i := range g.blocks {
		if err := g.link(BlockID(i), opts); err != nil {
			return nil, err
		}
	}
	if err := g.coalesce(opts.effectiveMax()); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) addEdge(from, to BlockID) {
	g.blocks[from].Children = append(g.blocks[from].Children, to)
	g.blocks[to].Parents = append(g.blocks[to].Parents, from)
}

func (g *Graph) target(inst bytecode.Inst, off uint32) (BlockID, error) {
	id, ok := g.byOffset[off]
	if !ok {
		return 0, fmt.Errorf("%w: %s at %04X -> %04X", ErrBadTarget, inst.Op, inst.Offset, off)
	}
	return id, nil
}

// link installs the outgoing edges of a single-instruction block.
// Falling off the end of the code adds no edge.
func (g *Graph) link(id BlockID, opts Options) error {
	inst := g.blocks[id].Insts[0]
	next := id + 1
	hasNext := int(next) < len(g.blocks)

	bi := bytecode.DecodeBranch(inst)
	switch bi.Kind {
	case bytecode.KindNext:
		if hasNext {
			g.addEdge(id, next)
		}
	case bytecode.KindCond:
		t, err := g.target(inst, bi.Target)
		if err != nil {
			return err
		}
		if hasNext {
			g.addEdge(id, next)
		}
		g.addEdge(id, t)
	case bytecode.KindJump:
		t, err := g.target(inst, bi.Target)
		if err != nil {
			return err
		}
		g.addEdge(id, t)
	case bytecode.KindTerm:
	case bytecode.KindRet:
		return &UnsupportedError{Offset: inst.Offset, Op: inst.Op}
	case bytecode.KindSwitch:
		if opts.Switches == SwitchReject {
			return &UnsupportedError{Offset: inst.Offset, Op: inst.Op}
		}
		def, cases, _ := inst.Switch()
		seen := make(map[BlockID]bool, len(cases)+1)
		for _, off := range append([]uint32{def}, caseTargets(cases)...) {
			t, err := g.target(inst, off)
			if err != nil {
				return err
			}
			if !seen[t] {
				seen[t] = true
				g.addEdge(id, t)
			}
		}
	}
	return nil
}

func caseTargets(cases []bytecode.SwitchCase) []uint32 {
	out := make([]uint32, len(cases))
	for i, c := range cases {
		out[i] = c.Target
	}
	return out
}

// coalesce merges each block that has a single parent into that parent
// when the parent has no other child, until a full pass merges nothing.
// After a merge the scan resumes at min(parent, index+1) so chains that
// end behind the cursor are revisited.
func (g *Graph) coalesce(maxSteps int) error {
	steps := 0
	for {
		merged := false
		for idx := 0; idx < len(g.blocks); {
			b := g.blocks[idx]
			if b.dead || BlockID(idx) == Entry || len(b.Parents) != 1 {
				idx++
				continue
			}
			p := b.Parents[0]
			parent := g.blocks[p]
			if p == b.ID || len(parent.Children) != 1 {
				idx++
				continue
			}
			if steps++; steps > maxSteps {
				return ErrStepLimit
			}
			g.merge(parent, b)
			merged = true
			idx = min(int(p), idx+1)
		}
		if !merged {
			return nil
		}
	}
}

func (g *Graph) merge(parent, b *Block) {
	parent.Children = b.Children
	parent.Insts = append(parent.Insts, b.Insts...)
	for _, c := range parent.Children {
		ps := g.blocks[c].Parents
		for i := range ps {
			if ps[i] == b.ID {
				ps[i] = parent.ID
			}
		}
	}
	b.dead = true
	b.Insts = nil
	b.Parents = nil
	b.Children = nil
}
