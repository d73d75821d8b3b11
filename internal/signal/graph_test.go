package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unclass/internal/bytecode"
	"unclass/internal/callgraph"
	"unclass/internal/classfile"
	"unclass/internal/classfile/classtest"
)

func sampleMethods() []callgraph.Method {
	return []callgraph.Method{
		{Name: "a.A.main()V", Calls: []callgraph.Call{
			{Offset: 0, Op: bytecode.OpInvokestatic, Callee: "a.A.fetch()V"},
			{Offset: 3, Op: bytecode.OpInvokestatic, Callee: "a.A.log()V"},
			{Offset: 6, Op: bytecode.OpInvokestatic, Callee: "a.A.log()V"},
		}},
		{Name: "a.A.fetch()V", Calls: []callgraph.Call{
			{Offset: 4, Op: bytecode.OpInvokevirtual, Callee: "java.net.URL.openConnection()Ljava/net/URLConnection;"},
		}},
		{Name: "a.A.log()V"},
		{Name: "a.A.secret()V"},
		{Name: "b.B.unrelated()V"},
	}
}

func TestBuildGraph(t *testing.T) {
	strs := []StringRef{
		{Method: "a.A.secret()V", Offset: 3, Value: "encrypt payload"},
		{Method: "a.A.log()V", Offset: 0, Value: "hello"},
	}
	entries := map[string]bool{"a.A.main()V": true, "a.A.secret()V": true, "b.B.unrelated()V": true}
	g := BuildGraph(sampleMethods(), strs, 1, entries)

	var names, roles []string
	for _, m := range g.Methods {
		names = append(names, m.Name)
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"a.A.secret()V", "a.A.fetch()V", "a.A.main()V", "a.A.log()V", "b.B.unrelated()V"}, names)
	assert.Equal(t, []string{"signal", "signal", "context", "", ""}, roles)

	secret := g.Methods[0]
	assert.Equal(t, "a.A", secret.Owner)
	assert.Equal(t, []string{CatEncryption}, secret.Categories)
	assert.Equal(t, SeverityHigh, secret.Severity)
	require.Len(t, secret.Strings, 1)
	assert.Equal(t, []string{CatEncryption}, secret.Strings[0].Categories)
	assert.True(t, secret.IsEntryPoint)

	fetch := g.Methods[1]
	assert.Equal(t, []APIRef{{Offset: 4, Callee: "java.net.URL.openConnection()Ljava/net/URLConnection;", Category: CatNet}}, fetch.APIs)
	assert.Equal(t, SeverityLow, fetch.Severity)

	assert.Equal(t, Stats{
		TotalMethods:   5,
		SignalMethods:  2,
		ContextMethods: 1,
		TotalEdges:     3,
		StringRefCount: 2,
		Categories:     map[string]int{CatEncryption: 1, CatNet: 1},
	}, g.Stats)
	assert.Len(t, g.Signals(), 2)
}

func TestBuildGraph_Hops(t *testing.T) {
	g := BuildGraph(sampleMethods(), nil, 0, nil)
	assert.Equal(t, 1, g.Stats.SignalMethods)
	assert.Equal(t, 0, g.Stats.ContextMethods)

	g = BuildGraph(sampleMethods(), nil, 2, nil)
	assert.Equal(t, 2, g.Stats.ContextMethods) // main, then log through main
}

func TestStrings(t *testing.T) {
	b := classtest.New("a/A", "java/lang/Object")
	url := b.String("https://example.com")
	num := b.Integer(7)
	b.Method(classfile.AccStatic, "f", "()V", b.Code(1, 0, []byte{
		byte(bytecode.OpLdc), byte(url),
		byte(bytecode.OpPop),
		byte(bytecode.OpLdcW), byte(num >> 8), byte(num),
		byte(bytecode.OpPop),
		byte(bytecode.OpReturn),
	}))
	f, err := classfile.Parse(b.Bytes())
	require.NoError(t, err)
	code, err := f.Methods[0].Code(f.Pool)
	require.NoError(t, err)
	insts, err := bytecode.DecodeMethod(code.Bytes, int(code.Length), bytecode.Options{})
	require.NoError(t, err)

	assert.Equal(t, []StringRef{{Method: "a.A.f()V", Offset: 0, Value: "https://example.com"}},
		Strings("a.A.f()V", insts, f.Pool))
}

func TestOwnerOf(t *testing.T) {
	assert.Equal(t, "a.b.C", ownerOf("a.b.C.run(Ljava/lang/String;)V"))
	assert.Equal(t, "", ownerOf("run()V"))
}
