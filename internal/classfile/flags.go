package classfile

import "strings"

// AccessFlags is the access_flags bit set of a class, field or method.
// Several bits mean different things depending on where they appear.
type AccessFlags uint16

const (
	AccPublic       AccessFlags = 0x0001
	AccPrivate      AccessFlags = 0x0002
	AccProtected    AccessFlags = 0x0004
	AccStatic       AccessFlags = 0x0008
	AccFinal        AccessFlags = 0x0010
	AccSuper        AccessFlags = 0x0020
	AccSynchronized AccessFlags = 0x0020
	AccVolatile     AccessFlags = 0x0040
	AccBridge       AccessFlags = 0x0040
	AccTransient    AccessFlags = 0x0080
	AccVarargs      AccessFlags = 0x0080
	AccNative       AccessFlags = 0x0100
	AccInterface    AccessFlags = 0x0200
	AccAbstract     AccessFlags = 0x0400
	AccStrict       AccessFlags = 0x0800
	AccSynthetic    AccessFlags = 0x1000
	AccAnnotation   AccessFlags = 0x2000
	AccEnum         AccessFlags = 0x4000
	AccModule       AccessFlags = 0x8000
)

// Context selects which meaning ambiguous bits take when rendering.
type Context int

const (
	ContextClass Context = iota
	ContextField
	ContextMethod
)

func (f AccessFlags) Has(bit AccessFlags) bool { return f&bit != 0 }
func (f AccessFlags) IsStatic() bool           { return f&AccStatic != 0 }
func (f AccessFlags) IsInterface() bool        { return f&AccInterface != 0 }
func (f AccessFlags) IsAbstract() bool         { return f&AccAbstract != 0 }
func (f AccessFlags) IsSynthetic() bool        { return f&AccSynthetic != 0 }

type flagWord struct {
	bit  AccessFlags
	word string
}

var (
	classWords = []flagWord{
		{AccPublic, "public"}, {AccPrivate, "private"}, {AccProtected, "protected"},
		{AccStatic, "static"}, {AccFinal, "final"}, {AccAbstract, "abstract"},
	}
	fieldWords = []flagWord{
		{AccPublic, "public"}, {AccPrivate, "private"}, {AccProtected, "protected"},
		{AccStatic, "static"}, {AccFinal, "final"}, {AccVolatile, "volatile"},
		{AccTransient, "transient"},
	}
	methodWords = []flagWord{
		{AccPublic, "public"}, {AccPrivate, "private"}, {AccProtected, "protected"},
		{AccStatic, "static"}, {AccFinal, "final"}, {AccSynchronized, "synchronized"},
		{AccNative, "native"}, {AccAbstract, "abstract"}, {AccStrict, "strictfp"},
	}
)

// Keywords renders the Java modifiers for f in source order.
// Interfaces drop the implied abstract modifier.
func (f AccessFlags) Keywords(ctx Context) []string {
	words := classWords
	switch ctx {
	case ContextField:
		words = fieldWords
	case ContextMethod:
		words = methodWords
	}
	var out []string
	for _, w := range words {
		if f&w.bit == 0 {
			continue
		}
		if ctx == ContextClass && w.bit == AccAbstract && f.IsInterface() {
			continue
		}
		out = append(out, w.word)
	}
	return out
}

// Render renders f as space-separated modifiers.
func (f AccessFlags) Render(ctx Context) string {
	return strings.Join(f.Keywords(ctx), " ")
}

// Kind returns the class declaration keyword.
func (f AccessFlags) Kind() string {
	switch {
	case f&AccAnnotation != 0:
		return "@interface"
	case f&AccInterface != 0:
		return "interface"
	case f&AccEnum != 0:
		return "enum"
	case f&AccModule != 0:
		return "module"
	}
	return "class"
}
