package descriptor

import (
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("descriptor: malformed")

// Error locates a decoding failure within the full input string.
type Error struct {
	Input string
	Pos   int
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("descriptor %q: %s at %d", e.Input, e.Msg, e.Pos)
}

func (e *Error) Unwrap() error { return ErrMalformed }

var primitives = [256]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'V': "void",
	'Z': "boolean",
}

// Decode decodes s and returns its first type.
func Decode(s string) (Type, error) {
	ts, err := DecodeAll(s)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, &Error{Input: s, Pos: 0, Msg: "no type"}
	}
	return ts[0], nil
}

// DecodeAll decodes a field descriptor, a method descriptor or signature,
// or a run of concatenated types. A method descriptor always yields exactly
// one Function.
func DecodeAll(s string) ([]Type, error) {
	open := strings.IndexByte(s, '(')
	closing := strings.IndexByte(s, ')')
	switch {
	case open < 0 && closing < 0:
		if strings.HasPrefix(s, "<") {
			return nil, &Error{Input: s, Pos: 0, Msg: "formal type parameters outside a method signature"}
		}
		d := decoder{in: s}
		return d.seq(s, 0, false)
	case open < 0 || closing < 0 || closing < open:
		return nil, &Error{Input: s, Pos: max(open, closing), Msg: "unbalanced parentheses"}
	}
	d := decoder{in: s}
	f, err := d.function(open, closing)
	if err != nil {
		return nil, err
	}
	return []Type{f}, nil
}

// ClassSignature is a decoded class Signature attribute.
type ClassSignature struct {
	Params     []Type
	Super      Type
	Interfaces []Type
}

// DecodeClassSignature decodes a class-level generic signature such as
// "<T:Ljava/lang/Object;>Ljava/util/AbstractList<TT;>;Ljava/util/List<TT;>;".
func DecodeClassSignature(s string) (ClassSignature, error) {
	d := decoder{in: s}
	var cs ClassSignature
	pos := 0
	if strings.HasPrefix(s, "<") {
		params, end, err := d.formals(0)
		if err != nil {
			return cs, err
		}
		cs.Params = params
		pos = end
	}
	ts, err := d.seq(s[pos:], pos, false)
	if err != nil {
		return cs, err
	}
	if len(ts) == 0 {
		return cs, &Error{Input: s, Pos: pos, Msg: "missing superclass"}
	}
	cs.Super, cs.Interfaces = ts[0], ts[1:]
	return cs, nil
}

type decoder struct {
	in     string
	inArgs bool // decoding a method's parameter list
}

func (d *decoder) errorf(pos int, format string, args ...any) error {
	return &Error{Input: d.in, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (d *decoder) function(open, closing int) (Function, error) {
	var f Function
	if open > 0 {
		if d.in[0] != '<' {
			return f, d.errorf(0, "unexpected %q before '('", d.in[0])
		}
		params, end, err := d.formals(0)
		if err != nil {
			return f, err
		}
		if end != open {
			return f, d.errorf(end, "unexpected text before '('")
		}
		f.Generics = params
	}
	d.inArgs = true
	args, err := d.seq(d.in[open+1:closing], open+1, false)
	d.inArgs = false
	if err != nil {
		return f, err
	}
	f.Args = args

	// A throws clause (^...) may follow the return type in signatures.
	ret := d.in[closing+1:]
	if i := strings.IndexByte(ret, '^'); i >= 0 {
		ret = ret[:i]
	}
	rets, err := d.seq(ret, closing+1, false)
	if err != nil {
		return f, err
	}
	if len(rets) != 1 {
		return f, d.errorf(closing+1, "want one return type, got %d", len(rets))
	}
	f.Return = rets[0]
	return f, nil
}

// formals parses "<Name:ClassBound:IfaceBound...>" starting at pos and
// returns the parameters and the index just past the closing '>'.
func (d *decoder) formals(pos int) ([]Type, int, error) {
	s := d.in
	i := pos + 1
	var params []Type
	for i < len(s) && s[i] != '>' {
		colon := strings.IndexByte(s[i:], ':')
		if colon <= 0 {
			return nil, 0, d.errorf(i, "bad type parameter")
		}
		p := Value{Base: s[i : i+colon]}
		i += colon
		for i < len(s) && s[i] == ':' {
			i++
			if i < len(s) && s[i] == ':' {
				// empty class bound, interface bound follows
				continue
			}
			end, err := d.typeEnd(i)
			if err != nil {
				return nil, 0, err
			}
			bound, err := d.seq(s[i:end], i, false)
			if err != nil {
				return nil, 0, err
			}
			p.Bounds = append(p.Bounds, bound...)
			i = end
		}
		params = append(params, p)
	}
	if i >= len(s) {
		return nil, 0, d.errorf(i, "unterminated type parameters")
	}
	return params, i + 1, nil
}

// typeEnd returns the index just past the single reference type at pos.
func (d *decoder) typeEnd(pos int) (int, error) {
	s := d.in
	i := pos
	for i < len(s) && s[i] == '[' {
		i++
	}
	if i >= len(s) {
		return 0, d.errorf(i, "truncated type")
	}
	if primitives[s[i]] != "" {
		return i + 1, nil
	}
	if s[i] != 'L' && s[i] != 'T' {
		return 0, d.errorf(i, "unexpected %q", s[i])
	}
	depth := 0
	for i++; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ';':
			if depth == 0 {
				return i + 1, nil
			}
		}
	}
	return 0, d.errorf(pos, "unterminated class type")
}

type state int

const (
	stateFull  state = iota // primitive, array or the start of a reference
	stateClass              // inside L...;
	stateVar                // inside T...;
)

// seq decodes a run of types from s, which starts at offset off in the
// full input. Generic argument lists are captured verbatim by depth and
// decoded recursively once their closing '>' is seen.
func (d *decoder) seq(s string, off int, inGenerics bool) ([]Type, error) {
	var (
		types    []Type
		st       = stateFull
		dims     int
		wildcard = WildcardNone
		name     strings.Builder
		captured strings.Builder
		generics []Type
		depth    int
		genStart int
	)
	reset := func() {
		st, dims, wildcard, depth = stateFull, 0, WildcardNone, 0
		name.Reset()
		captured.Reset()
		generics = nil
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if st == stateFull {
			switch {
			case c == '[':
				dims++
			case primitives[c] != "":
				if c == 'V' && dims > 0 {
					return nil, d.errorf(off+i, "array of void")
				}
				if c == 'V' && (inGenerics || d.inArgs) {
					return nil, d.errorf(off+i, "void used as a value type")
				}
				types = append(types, Value{Base: primitives[c], Dims: dims, Wildcard: wildcard})
				reset()
			case c == 'L':
				st = stateClass
			case c == 'T':
				st = stateVar
			case c == '*' && inGenerics && dims == 0 && wildcard == WildcardNone:
				types = append(types, Value{Base: "?", Wildcard: WildcardAny})
				reset()
			case (c == '+' || c == '-') && inGenerics && dims == 0 && wildcard == WildcardNone:
				wildcard = WildcardExtends
				if c == '-' {
					wildcard = WildcardSuper
				}
			default:
				return nil, d.errorf(off+i, "unexpected %q", c)
			}
			continue
		}

		if depth > 0 {
			switch c {
			case '<':
				depth++
			case '>':
				depth--
				if depth == 0 {
					args, err := d.seq(captured.String(), off+genStart, true)
					if err != nil {
						return nil, err
					}
					if len(args) == 0 {
						return nil, d.errorf(off+genStart, "empty type argument list")
					}
					generics = args
					captured.Reset()
					continue
				}
			}
			captured.WriteByte(c)
			continue
		}

		switch c {
		case '<':
			if st == stateVar {
				return nil, d.errorf(off+i, "type arguments on a type variable")
			}
			if len(generics) > 0 {
				return nil, d.errorf(off+i, "second type argument list")
			}
			depth = 1
			genStart = i + 1
		case '>':
			return nil, d.errorf(off+i, "unmatched '>'")
		case '.':
			// Inner class of a parameterized outer: Outer<T>.Inner
			if st == stateVar {
				return nil, d.errorf(off+i, "unexpected '.'")
			}
			if len(generics) > 0 {
				var b strings.Builder
				writeGenerics(&b, generics)
				name.WriteString(b.String())
				generics = nil
			}
			name.WriteByte('.')
		case ';':
			if name.Len() == 0 {
				return nil, d.errorf(off+i, "empty class name")
			}
			v := Value{
				Base:     classDisplayName(name.String()),
				Dims:     dims,
				Generics: generics,
				Var:      st == stateVar,
				Wildcard: wildcard,
			}
			types = append(types, v)
			reset()
		default:
			name.WriteByte(c)
		}
	}
	if depth != 0 {
		return nil, d.errorf(off+len(s), "unbalanced '<' (depth %d)", depth)
	}
	if st != stateFull {
		return nil, d.errorf(off+len(s), "unterminated class type")
	}
	if dims > 0 || wildcard != WildcardNone {
		return nil, d.errorf(off+len(s), "dangling type prefix")
	}
	return types, nil
}

// classDisplayName rewrites package and nested-class separators to '.'.
func classDisplayName(internal string) string {
	return strings.NewReplacer("/", ".", "$", ".").Replace(internal)
}
