package simulate

import (
	"fmt"
	"strings"
)

// Expr is a symbolic operand stack value. Nodes are rendered to text only
// when a statement is emitted or the stack is inspected.
type Expr interface {
	String() string
}

// Literal is pre-rendered source text: constants, null, class literals.
type Literal string

func (l Literal) String() string { return string(l) }

// Local reads a local variable slot.
type Local struct{ Slot uint16 }

func (l Local) String() string { return fmt.Sprintf("var%d", l.Slot) }

// Binary is an infix operation, always parenthesized.
type Binary struct {
	Op   string
	L, R Expr
}

func (b Binary) String() string { return "(" + b.L.String() + " " + b.Op + " " + b.R.String() + ")" }

// Neg is arithmetic negation.
type Neg struct{ X Expr }

func (n Neg) String() string { return "(-" + n.X.String() + ")" }

// Index is an array element read.
type Index struct{ Array, Index Expr }

func (i Index) String() string { return i.Array.String() + "[" + i.Index.String() + "]" }

// Length is arraylength.
type Length struct{ Array Expr }

func (l Length) String() string { return l.Array.String() + ".length" }

// Cast is a primitive conversion or checkcast.
type Cast struct {
	Type string
	X    Expr
}

func (c Cast) String() string { return "((" + c.Type + ") " + c.X.String() + ")" }

// Field reads a field. Recv is nil for static fields.
type Field struct {
	Recv  Expr
	Owner string
	Name  string
}

func (f Field) String() string {
	if f.Recv == nil {
		return f.Owner + "." + f.Name
	}
	return f.Recv.String() + "." + f.Name
}

// Call is a method invocation. Recv is nil for static and dynamic calls;
// a dynamic call site has no Owner.
type Call struct {
	Recv  Expr
	Owner string
	Name  string
	Args  []Expr
}

func (c Call) String() string {
	var b strings.Builder
	switch {
	case c.Recv != nil:
		b.WriteString(c.Recv.String())
		b.WriteByte('.')
	case c.Owner != "":
		b.WriteString(c.Owner)
		b.WriteByte('.')
	}
	b.WriteString(c.Name)
	writeArgs(&b, c.Args)
	return b.String()
}

// Alloc is an object allocation. It renders "new Owner" until the matching
// constructor call fills in Args; copies made by dup share the node.
type Alloc struct {
	Class string
	Args  []Expr
	Init  bool
}

func (n *Alloc) String() string {
	if !n.Init {
		return "new " + n.Class
	}
	var b strings.Builder
	b.WriteString("new ")
	b.WriteString(n.Class)
	writeArgs(&b, n.Args)
	return b.String()
}

// NewArray allocates an array with len(Dims) sized dimensions followed by
// Extra unsized ones.
type NewArray struct {
	Elem  string
	Dims  []Expr
	Extra int
}

func (n NewArray) String() string {
	var b strings.Builder
	b.WriteString("new ")
	b.WriteString(n.Elem)
	for _, d := range n.Dims {
		b.WriteByte('[')
		b.WriteString(d.String())
		b.WriteByte(']')
	}
	b.WriteString(strings.Repeat("[]", n.Extra))
	return b.String()
}

func writeArgs(b *strings.Builder, args []Expr) {
	b.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte(')')
}
