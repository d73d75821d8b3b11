package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unclass/internal/bytecode"
)

func op(o bytecode.Op) byte { return byte(o) }

func decode(t *testing.T, code ...byte) []bytecode.Inst {
	t.Helper()
	insts, _, err := bytecode.Decode(code, bytecode.Options{})
	require.NoError(t, err)
	return insts
}

func build(t *testing.T, opts Options, code ...byte) *Graph {
	t.Helper()
	g, err := Build(decode(t, code...), opts)
	require.NoError(t, err)
	return g
}

func liveIDs(g *Graph) []BlockID {
	var ids []BlockID
	for _, b := range g.Live() {
		ids = append(ids, b.ID)
	}
	return ids
}

func TestBuild_Linear(t *testing.T) {
	g := build(t, Options{},
		op(bytecode.OpIconst1),
		op(bytecode.OpIconst2),
		op(bytecode.OpIadd),
		op(bytecode.OpIstore0),
		op(bytecode.OpReturn),
	)
	assert.Equal(t, 5, g.Len())
	assert.Equal(t, 4, g.Tombstones())
	require.Equal(t, []BlockID{0}, liveIDs(g))

	b, ok := g.Block(0)
	require.True(t, ok)
	assert.Len(t, b.Insts, 5)
	assert.Empty(t, b.Children)
	assert.Empty(t, b.Parents)
	assert.Equal(t, uint32(0), b.Start())
	assert.Equal(t, uint32(5), b.End())

	for id := BlockID(1); id < 5; id++ {
		dead, _ := g.Block(id)
		assert.True(t, dead.Tombstoned(), "block %d", id)
		assert.Nil(t, dead.Insts)
	}
}

func TestBuild_Empty(t *testing.T) {
	g, err := Build(nil, Options{})
	require.NoError(t, err)
	assert.Zero(t, g.Len())
	assert.Empty(t, g.Live())
	assert.Empty(t, g.Unreachable())
}

// condCode:
//
//	0000  iload_0
//	0001  ifeq  -> 0007
//	0004  iconst_1
//	0005  istore_1
//	0006  return
//	0007  iconst_0
//	0008  ireturn
func condCode() []byte {
	return []byte{
		op(bytecode.OpIload0),
		op(bytecode.OpIfeq), 0x00, 0x06,
		op(bytecode.OpIconst1),
		op(bytecode.OpIstore1),
		op(bytecode.OpReturn),
		op(bytecode.OpIconst0),
		op(bytecode.OpIreturn),
	}
}

func TestBuild_Conditional(t *testing.T) {
	g := build(t, Options{}, condCode()...)
	require.Equal(t, []BlockID{0, 2, 5}, liveIDs(g))
	assert.Equal(t, 4, g.Tombstones())

	entry, _ := g.Block(0)
	assert.Len(t, entry.Insts, 2)
	assert.Equal(t, []BlockID{2, 5}, entry.Children)
	assert.Equal(t, []Edge{{To: 2, Cond: "F"}, {To: 5, Cond: "T"}}, g.Edges(entry))

	then, _ := g.Block(2)
	assert.Len(t, then.Insts, 3)
	assert.Equal(t, []BlockID{0}, then.Parents)
	assert.Empty(t, then.Children)

	els, _ := g.Block(5)
	assert.Len(t, els.Insts, 2)
	assert.Equal(t, []BlockID{0}, els.Parents)
}

func TestBuild_EdgesSymmetric(t *testing.T) {
	g := build(t, Options{}, condCode()...)
	for _, b := range g.Live() {
		for _, c := range b.Children {
			child, ok := g.Block(c)
			require.True(t, ok)
			assert.False(t, child.Tombstoned())
			assert.Contains(t, child.Parents, b.ID)
		}
		for _, p := range b.Parents {
			parent, _ := g.Block(p)
			assert.Contains(t, parent.Children, b.ID)
		}
	}
}

func TestBuild_GotoAndUnreachable(t *testing.T) {
	// 0000 goto -> 0004; 0003 nop; 0004 return
	g := build(t, Options{},
		op(bytecode.OpGoto), 0x00, 0x04,
		op(bytecode.OpNop),
		op(bytecode.OpReturn),
	)
	require.Equal(t, []BlockID{0, 1, 2}, liveIDs(g))
	entry, _ := g.Block(0)
	assert.Equal(t, []BlockID{2}, entry.Children)

	target, _ := g.Block(2)
	assert.Equal(t, []BlockID{0, 1}, target.Parents)

	dead := g.Unreachable()
	require.Len(t, dead, 1)
	assert.Equal(t, BlockID(1), dead[0].ID)
}

func TestBuild_SelfLoop(t *testing.T) {
	// 0000 iinc 0 1; 0003 goto -> 0000
	g := build(t, Options{},
		op(bytecode.OpIinc), 0x00, 0x01,
		op(bytecode.OpGoto), 0xff, 0xfd,
	)
	require.Equal(t, []BlockID{0}, liveIDs(g))
	b, _ := g.Block(0)
	assert.Len(t, b.Insts, 2)
	assert.Equal(t, []BlockID{0}, b.Children)
	assert.Equal(t, []BlockID{0}, b.Parents)
}

func TestBuild_EntryNeverMerged(t *testing.T) {
	// 0000 nop; 0001 goto -> 0000
	g := build(t, Options{},
		op(bytecode.OpNop),
		op(bytecode.OpGoto), 0xff, 0xff,
	)
	entry, _ := g.Block(Entry)
	require.False(t, entry.Tombstoned())
	assert.Len(t, entry.Insts, 2)
}

func TestBuild_CondToNext(t *testing.T) {
	// ifeq whose target is the fallthrough instruction yields two edges.
	g := build(t, Options{},
		op(bytecode.OpIconst0),
		op(bytecode.OpIfeq), 0x00, 0x03,
		op(bytecode.OpReturn),
	)
	require.Equal(t, []BlockID{0, 2}, liveIDs(g))
	entry, _ := g.Block(0)
	assert.Equal(t, []BlockID{2, 2}, entry.Children)
	ret, _ := g.Block(2)
	assert.Equal(t, []BlockID{0, 0}, ret.Parents)
}

func TestBuild_Ret(t *testing.T) {
	_, err := Build(decode(t, op(bytecode.OpRet), 0x01), Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))

	var ue *UnsupportedError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, bytecode.OpRet, ue.Op)
	assert.Equal(t, uint32(0), ue.Offset)
}

func TestBuild_BadTarget(t *testing.T) {
	_, err := Build(decode(t, op(bytecode.OpGoto), 0x00, 0x64), Options{})
	assert.ErrorIs(t, err, ErrBadTarget)
}

// switchCode: tableswitch at 0 with low=0 high=1.
//
//	default -> 0018, case 0 -> 001A, case 1 -> 0018
func switchCode() []byte {
	return []byte{
		op(bytecode.OpTableswitch), 0, 0, 0,
		0, 0, 0, 0x18, // default
		0, 0, 0, 0, // low
		0, 0, 0, 1, // high
		0, 0, 0, 0x1a,
		0, 0, 0, 0x18,
		op(bytecode.OpIconst0), // 0018
		op(bytecode.OpIreturn),
		op(bytecode.OpIconst1), // 001A
		op(bytecode.OpIreturn),
	}
}

func TestBuild_SwitchExpand(t *testing.T) {
	g := build(t, Options{}, switchCode()...)
	require.Equal(t, []BlockID{0, 1, 3}, liveIDs(g))
	entry, _ := g.Block(0)
	assert.Equal(t, []Edge{
		{To: 1, Cond: "case 1,default"},
		{To: 3, Cond: "case 0"},
	}, g.Edges(entry))
}

func TestBuild_SwitchReject(t *testing.T) {
	_, err := Build(decode(t, switchCode()...), Options{Switches: SwitchReject})
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestParseSwitchMode(t *testing.T) {
	m, err := ParseSwitchMode("reject")
	require.NoError(t, err)
	assert.Equal(t, SwitchReject, m)
	m, err = ParseSwitchMode("")
	require.NoError(t, err)
	assert.Equal(t, SwitchExpand, m)
	_, err = ParseSwitchMode("bogus")
	assert.Error(t, err)
}

func TestBuild_StepLimit(t *testing.T) {
	insts := decode(t,
		op(bytecode.OpNop), op(bytecode.OpNop), op(bytecode.OpNop), op(bytecode.OpReturn),
	)
	_, err := Build(insts, Options{MaxSteps: 1})
	assert.ErrorIs(t, err, ErrStepLimit)
}

func TestGraph_Owner(t *testing.T) {
	g := build(t, Options{}, condCode()...)
	b, ok := g.Owner(5)
	require.True(t, ok)
	assert.Equal(t, BlockID(2), b.ID)
	_, ok = g.Owner(99)
	assert.False(t, ok)

	id, ok := g.Lookup(5)
	require.True(t, ok)
	assert.Equal(t, BlockID(3), id)
}

func TestGraph_Text(t *testing.T) {
	g := build(t, Options{}, condCode()...)
	text := g.Text(bytecode.JumpAnnotator())
	assert.Contains(t, text, "block 0  <- []\n")
	assert.Contains(t, text, "    0001  ifeq            00 06  ; -> 0007\n")
	assert.Contains(t, text, "  -> [2 F, 5 T]\n")
	assert.Contains(t, text, "block 5  <- [0]\n")
}
