package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unclass/internal/bytecode"
	"unclass/internal/callgraph"
	"unclass/internal/classfile"
	"unclass/internal/classfile/classtest"
	"unclass/internal/descriptor"
	"unclass/internal/diag"
	"unclass/internal/flow"
)

func op(o bytecode.Op) byte { return byte(o) }

func u16(v uint16) (byte, byte) { return byte(v >> 8), byte(v) }

func helloClass(t *testing.T) *classfile.File {
	t.Helper()
	b := classtest.New("com/example/Hello", "java/lang/Object")
	b.Interface("java/lang/Runnable")
	b.Attribute(b.SourceFile("Hello.java"))

	b.Field(classfile.AccPrivate|classfile.AccStatic|classfile.AccFinal, "COUNT", "I",
		b.ConstantValue(b.Integer(3)))
	b.Field(classfile.AccPrivate, "names", "Ljava/util/List;",
		b.Signature("Ljava/util/List<Ljava/lang/String;>;"))

	super := b.Methodref("java/lang/Object", "<init>", "()V")
	out := b.Fieldref("java/lang/System", "out", "Ljava/io/PrintStream;")
	hello := b.String("hello")
	printlnRef := b.Methodref("java/io/PrintStream", "println", "(Ljava/lang/String;)V")

	s1, s2 := u16(super)
	b.Method(classfile.AccPublic, "<init>", "()V", b.Code(1, 1, []byte{
		op(bytecode.OpAload0),
		op(bytecode.OpInvokespecial), s1, s2,
		op(bytecode.OpReturn),
	}))
	o1, o2 := u16(out)
	p1, p2 := u16(printlnRef)
	b.Method(classfile.AccPublic|classfile.AccStatic, "main", "([Ljava/lang/String;)V",
		b.Code(2, 1, []byte{
			op(bytecode.OpGetstatic), o1, o2,
			op(bytecode.OpLdc), byte(hello),
			op(bytecode.OpInvokevirtual), p1, p2,
			op(bytecode.OpReturn),
		}),
		b.Exceptions("java/io/IOException"))
	b.Method(classfile.AccPublic|classfile.AccAbstract, "run", "()V")
	b.Method(classfile.AccPrivate, "legacy$1", "(I)V", b.Code(0, 2, []byte{
		op(bytecode.OpRet), 1,
	}))

	f, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)
	return f
}

func analyze(t *testing.T, f *classfile.File, opts Options) *Class {
	t.Helper()
	c, err := AnalyzeClass(context.Background(), f, opts)
	require.NoError(t, err)
	return c
}

func TestAnalyzeClass(t *testing.T) {
	c := analyze(t, helloClass(t), Options{})
	require.Len(t, c.Methods, 4)

	ctor, main, run, legacy := c.Methods[0], c.Methods[1], c.Methods[2], c.Methods[3]
	assert.Equal(t, "com.example.Hello.<init>()V", ctor.Key)
	assert.Equal(t, "com.example.Hello.main([Ljava/lang/String;)V", main.Key)

	require.NoError(t, main.Err)
	assert.Len(t, main.Insts, 4)
	require.NotNil(t, main.Graph)
	assert.Len(t, main.Graph.Live(), 1)
	assert.Equal(t, []callgraph.Call{
		{Offset: 5, Op: bytecode.OpInvokevirtual, Callee: "java.io.PrintStream.println(Ljava/lang/String;)V"},
	}, main.Calls)
	require.Len(t, main.Events, 2)
	assert.Equal(t, `java.lang.System.out.println("hello")`, main.Events[0].Text)
	assert.Empty(t, main.Stack)

	assert.False(t, run.HasCode())
	assert.Nil(t, run.Code)
	assert.NoError(t, run.Err)

	require.Error(t, legacy.Err)
	assert.ErrorIs(t, legacy.Err, flow.ErrUnsupported)
	assert.Nil(t, legacy.Graph)
	assert.Len(t, legacy.Insts, 1)

	assert.Equal(t, []*Method{legacy}, c.Failed())
	items := c.Diags.Items()
	require.Len(t, items, 2)
	assert.Equal(t, diag.KindUnimplemented, items[0].Kind)
	assert.Equal(t, legacy.Key, items[0].Method)
	assert.Equal(t, diag.KindFailed, items[1].Kind)
	assert.Equal(t, "flow: ret at 0000 not supported", items[1].Msg)
}

func TestAnalyzeClass_Strict(t *testing.T) {
	_, err := AnalyzeClass(context.Background(), helloClass(t), Options{
		Options: diag.Options{Mode: diag.ModeStrict},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, flow.ErrUnsupported)
	assert.Contains(t, err.Error(), "com.example.Hello.legacy$1(I)V: ")
}

func TestAnalyzeClass_Parallel(t *testing.T) {
	f := helloClass(t)
	types, err := descriptor.NewCache(0)
	require.NoError(t, err)
	seq := analyze(t, f, Options{})
	par := analyze(t, f, Options{Jobs: 4, Types: types})

	require.Len(t, par.Methods, len(seq.Methods))
	for i := range seq.Methods {
		assert.Equal(t, seq.Methods[i].Key, par.Methods[i].Key)
		assert.Equal(t, seq.Methods[i].Events, par.Methods[i].Events)
	}
	assert.Positive(t, types.Len())
}

func TestAnalyzeClass_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := AnalyzeClass(ctx, helloClass(t), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeClass_SwitchReject(t *testing.T) {
	b := classtest.New("S", "java/lang/Object")
	// iload_0; tableswitch default and case 0 both jump to the return at 0014
	b.Method(classfile.AccStatic, "pick", "(I)V", b.Code(1, 1, []byte{
		op(bytecode.OpIload0),
		op(bytecode.OpTableswitch), 0, 0,
		0, 0, 0, 19,
		0, 0, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 19,
		op(bytecode.OpReturn),
	}))
	f, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)

	c := analyze(t, f, Options{})
	require.NoError(t, c.Methods[0].Err)

	c = analyze(t, f, Options{Switches: flow.SwitchReject})
	assert.ErrorIs(t, c.Methods[0].Err, flow.ErrUnsupported)
}

const helloSource = `// compiled from Hello.java (version 52.0)
public class com.example.Hello implements java.lang.Runnable {
    private static final int COUNT = 3;
    private java.util.List<java.lang.String> names;

    public Hello() {
        super()
        return
    }

    public static void main(java.lang.String[] arg0) throws java.io.IOException {
        java.lang.System.out.println("hello")
        return
    }

    public abstract void run() {}

    private void legacy(int arg0) {
        // Simulation not yet implemented for opcode ret
        // error: flow: ret at 0000 not supported
    }
}
`

func TestRenderClass_Simulate(t *testing.T) {
	c := analyze(t, helloClass(t), Options{})
	var buf bytes.Buffer
	require.NoError(t, RenderClass(&buf, c, RenderOptions{Simulate: true}))
	assert.Equal(t, helloSource, buf.String())
}

func TestRenderClass_ListingAndFlow(t *testing.T) {
	c := analyze(t, helloClass(t), Options{})
	var buf bytes.Buffer
	require.NoError(t, RenderClass(&buf, c, RenderOptions{Listing: true, Flow: true, Simulate: true}))
	out := buf.String()

	assert.Contains(t, out, "        // stack 2, locals 1, 9 bytes\n")
	assert.Contains(t, out, "java.lang.System.out:Ljava/io/PrintStream;")
	assert.Contains(t, out, "        0008  return\n")
	assert.Contains(t, out, " // flow\n        block 0  <- []\n")
	assert.Contains(t, out, " // simulate\n        java.lang.System.out.println(\"hello\")\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestRenderClass_Interface(t *testing.T) {
	b := classtest.New("com/example/Shape", "java/lang/Object")
	b.Flags = classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract
	b.Interface("java/lang/Comparable")
	b.Attribute(b.Signature("<T:Ljava/lang/Object;>Ljava/lang/Object;Ljava/lang/Comparable<TT;>;"))
	b.Field(classfile.AccPrivate, "bad", "Q")
	b.Method(classfile.AccPublic|classfile.AccAbstract, "id", "(Ljava/lang/Object;)Ljava/lang/Object;",
		b.Signature("<T:Ljava/lang/Object;>(TT;)TT;"))
	b.Method(classfile.AccStatic, "<clinit>", "()V", b.Code(0, 0, []byte{op(bytecode.OpReturn)}))
	f, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)
	c := analyze(t, f, Options{})

	var buf bytes.Buffer
	require.NoError(t, RenderClass(&buf, c, RenderOptions{Simulate: true}))
	lines := strings.Split(buf.String(), "\n")
	assert.Equal(t, "// version 52.0", lines[0])
	assert.Equal(t, "public interface com.example.Shape<T> extends java.lang.Comparable<T> {", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], "    // error: bad: "), lines[2])
	assert.Equal(t, "    private Q bad;", lines[3])
	assert.Contains(t, buf.String(), "    public abstract T<T> id(T arg0) {}\n")
	assert.Contains(t, buf.String(), "    static {\n        return\n    }\n")

	err = RenderClass(&bytes.Buffer{}, c, RenderOptions{Strict: true})
	assert.ErrorIs(t, err, descriptor.ErrMalformed)
}

func TestRenderClass_Colors(t *testing.T) {
	c := analyze(t, helloClass(t), Options{})
	var buf bytes.Buffer
	require.NoError(t, RenderClass(&buf, c, RenderOptions{Listing: true, Colors: NewColors(true)}))
	assert.Contains(t, buf.String(), "\x1b[")
}

func TestColors_Listing(t *testing.T) {
	line := "0001  ifeq            00 06  ; -> 0007"
	var nilColors *Colors
	assert.Equal(t, line, nilColors.Listing(line))
	assert.Nil(t, NewColors(false))

	got := NewColors(true).Listing(line)
	assert.Contains(t, got, "\x1b[90m0001\x1b[0m")
	assert.Contains(t, got, "ifeq\x1b[0m            00 06")
	assert.Contains(t, got, "; -> 0007\x1b[0m")
}

func TestColorEnabled(t *testing.T) {
	on, err := ColorEnabled("always")
	require.NoError(t, err)
	assert.True(t, on)
	on, err = ColorEnabled("never")
	require.NoError(t, err)
	assert.False(t, on)
	_, err = ColorEnabled("sometimes")
	assert.ErrorContains(t, err, `unknown color mode "sometimes"`)
}

func TestSummary(t *testing.T) {
	c := analyze(t, helloClass(t), Options{})
	rows := Summarize(c)
	require.Len(t, rows, 4)
	assert.Equal(t, SummaryRow{
		Method: "main", Descriptor: "([Ljava/lang/String;)V",
		CodeLength: 9, Insts: 4, Blocks: 1, Tombstones: 3, Status: "ok",
	}, rows[1])
	assert.Equal(t, "no code", rows[2].Status)
	assert.Equal(t, "failed", rows[3].Status)
	assert.Equal(t, 2, rows[3].Diags)

	var buf bytes.Buffer
	WriteSummary(&buf, c)
	out := buf.String()
	for _, want := range []string{"Method", "Tombstones", "<init>", "legacy$1", "com.example.Hello", "4 methods", "1 failed"} {
		assert.Contains(t, out, want)
	}
}

func TestCallgraphMethods(t *testing.T) {
	c := analyze(t, helloClass(t), Options{})
	ms := c.CallgraphMethods()
	require.Len(t, ms, 4)
	assert.Equal(t, []string{
		"com.example.Hello.<init>()V",
		"com.example.Hello.legacy$1(I)V",
		"com.example.Hello.main([Ljava/lang/String;)V",
		"com.example.Hello.run()V",
	}, callgraph.FindEntryPoints(ms))
}
