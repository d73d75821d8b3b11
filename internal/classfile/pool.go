package classfile

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"unclass/internal/descriptor"
)

var (
	ErrBadIndex = errors.New("classfile: constant pool index out of range")
	ErrWrongTag = errors.New("classfile: unexpected constant pool entry")
)

// Constant is one constant pool entry. Each tag has its own type; callers
// switch on the concrete type.
type Constant interface {
	Tag() Tag
}

type (
	// Empty fills index 0 and the slot after each Long or Double.
	Empty   struct{}
	Utf8    struct{ Value string }
	Integer struct{ Value int32 }
	Float   struct{ Value float32 }
	Long    struct{ Value int64 }
	Double  struct{ Value float64 }
	Class   struct{ NameIndex uint16 }
	String  struct{ StringIndex uint16 }

	Fieldref struct {
		ClassIndex       uint16
		NameAndTypeIndex uint16
	}
	Methodref struct {
		ClassIndex       uint16
		NameAndTypeIndex uint16
	}
	InterfaceMethodref struct {
		ClassIndex       uint16
		NameAndTypeIndex uint16
	}
	NameAndType struct {
		NameIndex       uint16
		DescriptorIndex uint16
	}
	MethodHandle struct {
		Kind     MethodHandleKind
		RefIndex uint16
	}
	MethodType struct{ DescriptorIndex uint16 }
	Dynamic    struct {
		BootstrapIndex   uint16
		NameAndTypeIndex uint16
	}
	InvokeDynamic struct {
		BootstrapIndex   uint16
		NameAndTypeIndex uint16
	}
	Module  struct{ NameIndex uint16 }
	Package struct{ NameIndex uint16 }
)

func (Empty) Tag() Tag              { return TagEmpty }
func (Utf8) Tag() Tag               { return TagUtf8 }
func (Integer) Tag() Tag            { return TagInteger }
func (Float) Tag() Tag              { return TagFloat }
func (Long) Tag() Tag               { return TagLong }
func (Double) Tag() Tag             { return TagDouble }
func (Class) Tag() Tag              { return TagClass }
func (String) Tag() Tag             { return TagString }
func (Fieldref) Tag() Tag           { return TagFieldref }
func (Methodref) Tag() Tag          { return TagMethodref }
func (InterfaceMethodref) Tag() Tag { return TagInterfaceMethodref }
func (NameAndType) Tag() Tag        { return TagNameAndType }
func (MethodHandle) Tag() Tag       { return TagMethodHandle }
func (MethodType) Tag() Tag         { return TagMethodType }
func (Dynamic) Tag() Tag            { return TagDynamic }
func (InvokeDynamic) Tag() Tag      { return TagInvokeDynamic }
func (Module) Tag() Tag             { return TagModule }
func (Package) Tag() Tag            { return TagPackage }

// Pool is a constant pool indexed from 1. Index 0 holds Empty.
type Pool []Constant

// MemberRef is a resolved field, method or interface method reference.
type MemberRef struct {
	Kind       Tag
	Owner      string // dotted class name
	Name       string
	Descriptor string
}

func (m MemberRef) String() string {
	return m.Owner + "." + m.Name + ":" + m.Descriptor
}

func readPool(s *Stream) (Pool, error) {
	count, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("constant_pool_count: %w", err)
	}
	pool := make(Pool, 1, int(count)+1)
	pool[0] = Empty{}
	for idx := 1; idx < int(count); idx++ {
		c, err := readConstant(s)
		if err != nil {
			return nil, fmt.Errorf("constant #%d: %w", idx, err)
		}
		pool = append(pool, c)
		switch c.(type) {
		case Long, Double:
			// Category-2 constants take two indices.
			pool = append(pool, Empty{})
			idx++
		}
	}
	return pool, nil
}

func readConstant(s *Stream) (Constant, error) {
	tb, err := s.ReadByte()
	if err != nil {
		return nil, err
	}
	tag := Tag(tb)
	switch tag {
	case TagUtf8:
		n, err := s.ReadUint16()
		if err != nil {
			return nil, err
		}
		b, err := s.ReadBytes(int(n))
		if err != nil {
			return nil, err
		}
		return Utf8{Value: decodeModifiedUTF8(b)}, nil
	case TagInteger:
		v, err := s.ReadInt32()
		return Integer{Value: v}, err
	case TagFloat:
		v, err := s.ReadUint32()
		return Float{Value: math.Float32frombits(v)}, err
	case TagLong:
		v, err := s.ReadUint64()
		return Long{Value: int64(v)}, err
	case TagDouble:
		v, err := s.ReadUint64()
		return Double{Value: math.Float64frombits(v)}, err
	case TagClass, TagString, TagMethodType, TagModule, TagPackage:
		v, err := s.ReadUint16()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagClass:
			return Class{NameIndex: v}, nil
		case TagString:
			return String{StringIndex: v}, nil
		case TagMethodType:
			return MethodType{DescriptorIndex: v}, nil
		case TagModule:
			return Module{NameIndex: v}, nil
		}
		return Package{NameIndex: v}, nil
	case TagFieldref, TagMethodref, TagInterfaceMethodref, TagNameAndType, TagDynamic, TagInvokeDynamic:
		a, err := s.ReadUint16()
		if err != nil {
			return nil, err
		}
		b, err := s.ReadUint16()
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagFieldref:
			return Fieldref{ClassIndex: a, NameAndTypeIndex: b}, nil
		case TagMethodref:
			return Methodref{ClassIndex: a, NameAndTypeIndex: b}, nil
		case TagInterfaceMethodref:
			return InterfaceMethodref{ClassIndex: a, NameAndTypeIndex: b}, nil
		case TagNameAndType:
			return NameAndType{NameIndex: a, DescriptorIndex: b}, nil
		case TagDynamic:
			return Dynamic{BootstrapIndex: a, NameAndTypeIndex: b}, nil
		}
		return InvokeDynamic{BootstrapIndex: a, NameAndTypeIndex: b}, nil
	case TagMethodHandle:
		k, err := s.ReadByte()
		if err != nil {
			return nil, err
		}
		ref, err := s.ReadUint16()
		return MethodHandle{Kind: MethodHandleKind(k), RefIndex: ref}, err
	}
	return nil, fmt.Errorf("%w: tag %d", ErrWrongTag, tb)
}

// decodeModifiedUTF8 decodes the class file string encoding: NUL is two
// bytes and supplementary characters are encoded surrogate pairs.
func decodeModifiedUTF8(b []byte) string {
	ascii := true
	for _, c := range b {
		if c >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(b)
	}
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xE0 == 0xC0 && i+1 < len(b):
			units = append(units, uint16(c&0x1F)<<6|uint16(b[i+1]&0x3F))
			i += 2
		case c&0xF0 == 0xE0 && i+2 < len(b):
			units = append(units, uint16(c&0x0F)<<12|uint16(b[i+1]&0x3F)<<6|uint16(b[i+2]&0x3F))
			i += 3
		default:
			units = append(units, 0xFFFD)
			i++
		}
	}
	return string(utf16.Decode(units))
}

// Len returns the constant_pool_count value.
func (p Pool) Len() int { return len(p) }

// Entry returns the constant at idx. Empty slots are returned as Empty
// without error; only out-of-range indices fail.
func (p Pool) Entry(idx uint16) (Constant, error) {
	if int(idx) >= len(p) {
		return nil, fmt.Errorf("%w: #%d of %d", ErrBadIndex, idx, len(p)-1)
	}
	return p[idx], nil
}

// Get returns a non-empty constant at idx.
func (p Pool) Get(idx uint16) (Constant, error) {
	c, err := p.Entry(idx)
	if err != nil {
		return nil, err
	}
	if _, ok := c.(Empty); ok {
		return nil, fmt.Errorf("%w: #%d is empty", ErrBadIndex, idx)
	}
	return c, nil
}

func wrongTag(idx uint16, got Constant, want Tag) error {
	return fmt.Errorf("%w: #%d is %s, want %s", ErrWrongTag, idx, got.Tag(), want)
}

// Utf8 returns the text of a Utf8 constant.
func (p Pool) Utf8(idx uint16) (string, error) {
	c, err := p.Get(idx)
	if err != nil {
		return "", err
	}
	u, ok := c.(Utf8)
	if !ok {
		return "", wrongTag(idx, c, TagUtf8)
	}
	return u.Value, nil
}

// InternalClassName returns the raw name of a Class constant ("java/lang/String").
func (p Pool) InternalClassName(idx uint16) (string, error) {
	c, err := p.Get(idx)
	if err != nil {
		return "", err
	}
	cl, ok := c.(Class)
	if !ok {
		return "", wrongTag(idx, c, TagClass)
	}
	return p.Utf8(cl.NameIndex)
}

// ClassName returns the dotted name of a Class constant.
func (p Pool) ClassName(idx uint16) (string, error) {
	name, err := p.InternalClassName(idx)
	if err != nil {
		return "", err
	}
	return descriptor.ClassName(name), nil
}

// NameAndType resolves a NameAndType constant.
func (p Pool) NameAndType(idx uint16) (name, desc string, err error) {
	c, err := p.Get(idx)
	if err != nil {
		return "", "", err
	}
	nt, ok := c.(NameAndType)
	if !ok {
		return "", "", wrongTag(idx, c, TagNameAndType)
	}
	if name, err = p.Utf8(nt.NameIndex); err != nil {
		return "", "", err
	}
	if desc, err = p.Utf8(nt.DescriptorIndex); err != nil {
		return "", "", err
	}
	return name, desc, nil
}

// Member resolves a Fieldref, Methodref or InterfaceMethodref constant.
func (p Pool) Member(idx uint16) (MemberRef, error) {
	c, err := p.Get(idx)
	if err != nil {
		return MemberRef{}, err
	}
	var classIdx, ntIdx uint16
	switch m := c.(type) {
	case Fieldref:
		classIdx, ntIdx = m.ClassIndex, m.NameAndTypeIndex
	case Methodref:
		classIdx, ntIdx = m.ClassIndex, m.NameAndTypeIndex
	case InterfaceMethodref:
		classIdx, ntIdx = m.ClassIndex, m.NameAndTypeIndex
	default:
		return MemberRef{}, fmt.Errorf("%w: #%d is %s, want a member reference", ErrWrongTag, idx, c.Tag())
	}
	owner, err := p.ClassName(classIdx)
	if err != nil {
		return MemberRef{}, err
	}
	name, desc, err := p.NameAndType(ntIdx)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Kind: c.Tag(), Owner: owner, Name: name, Descriptor: desc}, nil
}

// Render produces the human-readable form of the constant at idx.
func (p Pool) Render(idx uint16) (string, error) {
	c, err := p.Get(idx)
	if err != nil {
		return "", err
	}
	switch v := c.(type) {
	case Utf8:
		return v.Value, nil
	case Integer:
		return strconv.FormatInt(int64(v.Value), 10), nil
	case Float:
		return FormatFloat(float64(v.Value), 32), nil
	case Long:
		return strconv.FormatInt(v.Value, 10), nil
	case Double:
		return FormatFloat(v.Value, 64), nil
	case Class:
		name, err := p.Utf8(v.NameIndex)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(name, "[") {
			t, err := descriptor.Decode(name)
			if err != nil {
				return "", err
			}
			return t.String(), nil
		}
		return descriptor.ClassName(name), nil
	case String:
		s, err := p.Utf8(v.StringIndex)
		if err != nil {
			return "", err
		}
		return QuoteJava(s), nil
	case Fieldref, Methodref, InterfaceMethodref:
		m, err := p.Member(idx)
		if err != nil {
			return "", err
		}
		return m.String(), nil
	case NameAndType:
		name, desc, err := p.NameAndType(idx)
		if err != nil {
			return "", err
		}
		return name + ":" + desc, nil
	case MethodHandle:
		m, err := p.Member(v.RefIndex)
		if err != nil {
			return "", err
		}
		return v.Kind.String() + " " + m.String(), nil
	case MethodType:
		return p.Utf8(v.DescriptorIndex)
	case Dynamic:
		return p.renderDynamic(v.BootstrapIndex, v.NameAndTypeIndex)
	case InvokeDynamic:
		return p.renderDynamic(v.BootstrapIndex, v.NameAndTypeIndex)
	case Module:
		return p.Utf8(v.NameIndex)
	case Package:
		name, err := p.Utf8(v.NameIndex)
		if err != nil {
			return "", err
		}
		return descriptor.ClassName(name), nil
	}
	return "", wrongTag(idx, c, TagUtf8)
}

func (p Pool) renderDynamic(bootstrap, nt uint16) (string, error) {
	name, desc, err := p.NameAndType(nt)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("#%d:%s:%s", bootstrap, name, desc), nil
}

// FormatFloat renders a float the way Java's toString does for the common
// cases: integral values keep a ".0" and exponents use "E".
func FormatFloat(v float64, bits int) string {
	switch {
	case math.IsNaN(v):
		return "NaN"
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if mant, exp, ok := strings.Cut(s, "e"); ok {
		if !strings.Contains(mant, ".") {
			mant += ".0"
		}
		n, _ := strconv.Atoi(exp)
		return mant + "E" + strconv.Itoa(n)
	}
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// QuoteJava returns s as a Java string literal.
func QuoteJava(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
