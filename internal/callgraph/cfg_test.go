package callgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zboralski/lattice/render"

	"unclass/internal/bytecode"
	"unclass/internal/classfile"
	"unclass/internal/flow"
)

var pool = classfile.Pool{
	classfile.Empty{},
	classfile.Utf8{Value: "Foo"},                                    // 1
	classfile.Class{NameIndex: 1},                                   // 2
	classfile.Utf8{Value: "bar"},                                    // 3
	classfile.Utf8{Value: "()V"},                                    // 4
	classfile.NameAndType{NameIndex: 3, DescriptorIndex: 4},         // 5
	classfile.Methodref{ClassIndex: 2, NameAndTypeIndex: 5},         // 6
	classfile.Utf8{Value: "qux"},                                    // 7
	classfile.NameAndType{NameIndex: 7, DescriptorIndex: 4},         // 8
	classfile.Methodref{ClassIndex: 2, NameAndTypeIndex: 8},         // 9
	classfile.InvokeDynamic{BootstrapIndex: 0, NameAndTypeIndex: 5}, // 10
}

func op(o bytecode.Op) byte { return byte(o) }

// branchy:
//
//	0000  iload_0
//	0001  ifeq           -> 000A
//	0004  invokestatic   Foo.bar()V
//	0007  goto           -> 000E
//	000A  invokestatic   Foo.qux()V
//	000D  return
//	000E  return
func branchy(t *testing.T) Method {
	t.Helper()
	insts, _, err := bytecode.Decode([]byte{
		op(bytecode.OpIload0),
		op(bytecode.OpIfeq), 0, 9,
		op(bytecode.OpInvokestatic), 0, 6,
		op(bytecode.OpGoto), 0, 7,
		op(bytecode.OpInvokestatic), 0, 9,
		op(bytecode.OpReturn),
		op(bytecode.OpReturn),
	}, bytecode.Options{})
	require.NoError(t, err)
	g, err := flow.Build(insts, flow.Options{})
	require.NoError(t, err)
	return Method{Name: "Main.run(I)V", Graph: g, Calls: Calls(insts, pool)}
}

func TestCalls(t *testing.T) {
	m := branchy(t)
	assert.Equal(t, []Call{
		{Offset: 4, Op: bytecode.OpInvokestatic, Callee: "Foo.bar()V"},
		{Offset: 10, Op: bytecode.OpInvokestatic, Callee: "Foo.qux()V"},
	}, m.Calls)

	insts, _, err := bytecode.Decode([]byte{
		op(bytecode.OpInvokedynamic), 0, 10, 0, 0,
		op(bytecode.OpInvokestatic), 0, 99,
	}, bytecode.Options{})
	require.NoError(t, err)
	calls := Calls(insts, pool)
	require.Len(t, calls, 2)
	assert.Equal(t, "invokedynamic #0:bar:()V", calls[0].Callee)
	assert.Equal(t, "#99", calls[1].Callee)
}

func TestBuildCFG_DOTOutput(t *testing.T) {
	cfg := BuildCFG([]Method{branchy(t), {Name: "Broken.m()V"}})

	require.Len(t, cfg.Funcs, 1)
	f := cfg.Funcs[0]
	assert.Equal(t, "Main.run(I)V", f.Name)
	// entry, taken path, and the fallthrough path that absorbed the goto target
	require.Len(t, f.Blocks, 3)

	b0 := f.Blocks[0]
	assert.Equal(t, 0, b0.ID)
	assert.False(t, b0.Term)
	assert.Empty(t, b0.Calls)
	require.Len(t, b0.Succs, 2)
	assert.Equal(t, "F", b0.Succs[0].Cond)
	assert.Equal(t, "T", b0.Succs[1].Cond)

	// 0004..0007 plus 000E: only the bar call belongs to it.
	b2 := f.Blocks[1]
	assert.Equal(t, 2, b2.ID)
	assert.True(t, b2.Term)
	require.Len(t, b2.Calls, 1)
	assert.Equal(t, "Foo.bar()V", b2.Calls[0].Callee)

	b4 := f.Blocks[2]
	assert.Equal(t, 4, b4.ID)
	assert.True(t, b4.Term)
	require.Len(t, b4.Calls, 1)
	assert.Equal(t, "Foo.qux()V", b4.Calls[0].Callee)

	dot := render.DOTCFG(cfg, "unclass CFG example")
	assert.NotEmpty(t, dot)
}

func TestBuildFuncCFG_NoGraph(t *testing.T) {
	lcfg, n := BuildFuncCFG(Method{Name: "Abstract.m()V"})
	assert.Zero(t, n)
	assert.Empty(t, lcfg.Blocks)
}

func TestBuildCallGraph_DOTOutput(t *testing.T) {
	methods := []Method{
		{Name: "Main.main([Ljava/lang/String;)V", Calls: []Call{
			{Offset: 1, Callee: "Foo.init()V"},
			{Offset: 4, Callee: "Bar.run()V"},
			{Offset: 7, Callee: "Bar.run()V"},
		}},
		{Name: "Foo.init()V", Calls: []Call{{Offset: 0, Callee: "Logger.log()V"}}},
		{Name: "Bar.run()V", Calls: []Call{
			{Offset: 0, Callee: "Logger.log()V"},
			{Offset: 3, Callee: "Bar.run()V"},
		}},
		{Name: "Logger.log()V"},
		{Name: "Main.lambda$main$0()V"},
		{Name: "Unused.helper()V", Calls: []Call{{Offset: 0, Callee: "java.lang.Object.<init>()V"}}},
	}

	cg := BuildCallGraph(methods)
	assert.Len(t, cg.Nodes, 6)

	entries := FindEntryPoints(methods)
	assert.Equal(t, []string{"Main.main([Ljava/lang/String;)V", "Unused.helper()V"}, entries)

	reach := ReachableSet(entries[:1], cg)
	assert.True(t, reach["Logger.log()V"])
	assert.True(t, reach["Bar.run()V"])
	assert.False(t, reach["Unused.helper()V"])
	assert.False(t, reach["java.lang.Object.<init>()V"])

	dot := render.DOT(cg, "unclass call graph example")
	assert.NotEmpty(t, dot)
}
