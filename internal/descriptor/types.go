// Package descriptor decodes JVM field descriptors, method descriptors and
// generic signatures into type trees and renders them as Java source text.
package descriptor

import "strings"

// Type is a decoded descriptor: either a Value or a Function.
type Type interface {
	// Render renders the type, optionally followed by a declaration name.
	// argNames only apply to functions; missing or empty names are omitted.
	Render(name string, argNames ...string) string
	String() string
	isType()
}

// Wildcard marks a generic type argument bound.
type Wildcard int

const (
	WildcardNone    Wildcard = iota
	WildcardAny              // *
	WildcardExtends          // +T
	WildcardSuper            // -T
)

// Value is a primitive, class, type variable or array type.
type Value struct {
	Base     string `json:"base"` // primitive keyword or dotted class name
	Dims     int    `json:"dims,omitempty"`
	Generics []Type `json:"generics,omitempty"`
	// Var marks a type variable reference such as TT;.
	Var      bool     `json:"var,omitempty"`
	Wildcard Wildcard `json:"wildcard,omitempty"`
	// Bounds is set on formal type parameters only.
	Bounds []Type `json:"bounds,omitempty"`
}

// Function is a method type. Generics holds formal type parameters.
type Function struct {
	Generics []Type `json:"generics,omitempty"`
	Return   Type   `json:"return"`
	Args     []Type `json:"args"`
}

func (Value) isType()    {}
func (Function) isType() {}

func (v Value) String() string    { return v.Render("") }
func (f Function) String() string { return f.Render("") }

func (v Value) Render(name string, _ ...string) string {
	var b strings.Builder
	switch v.Wildcard {
	case WildcardAny:
		return "?"
	case WildcardExtends:
		b.WriteString("? extends ")
	case WildcardSuper:
		b.WriteString("? super ")
	}
	b.WriteString(v.Base)
	writeGenerics(&b, v.Generics)
	if bounds := v.explicitBounds(); len(bounds) > 0 {
		b.WriteString(" extends ")
		for i, t := range bounds {
			if i > 0 {
				b.WriteString(" & ")
			}
			b.WriteString(t.String())
		}
	}
	for i := 0; i < v.Dims; i++ {
		b.WriteString("[]")
	}
	if name != "" {
		b.WriteByte(' ')
		b.WriteString(name)
	}
	return b.String()
}

// explicitBounds drops the implicit java.lang.Object bound.
func (v Value) explicitBounds() []Type {
	var out []Type
	for _, t := range v.Bounds {
		if bv, ok := t.(Value); ok && bv.Base == "java.lang.Object" && bv.Dims == 0 && len(bv.Generics) == 0 {
			continue
		}
		out = append(out, t)
	}
	return out
}

func (f Function) Render(name string, argNames ...string) string {
	var b strings.Builder
	if f.Return != nil {
		b.WriteString(f.Return.String())
	}
	writeGenerics(&b, f.Generics)
	if name != "" {
		b.WriteByte(' ')
		b.WriteString(name)
	}
	b.WriteByte('(')
	for i, a := range f.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
		if i < len(argNames) && argNames[i] != "" {
			b.WriteByte(' ')
			b.WriteString(argNames[i])
		}
	}
	b.WriteByte(')')
	return b.String()
}

func writeGenerics(b *strings.Builder, gs []Type) {
	if len(gs) == 0 {
		return
	}
	b.WriteByte('<')
	for i, g := range gs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(g.String())
	}
	b.WriteByte('>')
}

// IsVoid reports whether t is the void return type.
func IsVoid(t Type) bool {
	v, ok := t.(Value)
	return ok && v.Base == "void" && v.Dims == 0
}

// Slots returns the number of local variable or operand stack slots a value
// of type t occupies.
func Slots(t Type) int {
	v, ok := t.(Value)
	if !ok {
		return 1
	}
	if v.Dims == 0 && (v.Base == "long" || v.Base == "double") {
		return 2
	}
	if IsVoid(t) {
		return 0
	}
	return 1
}

// ClassName converts an internal class name to dotted form.
func ClassName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// SimpleName returns the part of a dotted or internal name after the last
// package separator.
func SimpleName(name string) string {
	if i := strings.LastIndexAny(name, "./"); i >= 0 {
		return name[i+1:]
	}
	return name
}
