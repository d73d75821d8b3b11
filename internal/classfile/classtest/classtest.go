// Package classtest assembles class file images in memory for tests.
package classtest

import (
	"encoding/binary"
	"fmt"
	"math"

	"unclass/internal/classfile"
)

// Attr is an attribute to attach to a class, field, method or Code body.
type Attr struct {
	Name string
	Data []byte
}

type member struct {
	flags      classfile.AccessFlags
	name, desc uint16
	attrs      []Attr
}

// Builder accumulates a constant pool and class members. Pool entries are
// deduplicated, so calling Utf8 or Class twice returns the same index.
type Builder struct {
	Flags classfile.AccessFlags
	Major uint16

	pool       []byte
	count      uint16
	index      map[string]uint16
	this       uint16
	super      uint16
	interfaces []uint16
	fields     []member
	methods    []member
	attrs      []Attr
}

// New starts a class named name (internal form, "pkg/Name"). An empty
// super leaves super_class 0.
func New(name, super string) *Builder {
	b := &Builder{
		Flags: classfile.AccPublic | classfile.AccSuper,
		Major: 52,
		count: 1,
		index: make(map[string]uint16),
	}
	b.this = b.Class(name)
	if super != "" {
		b.super = b.Class(super)
	}
	return b
}

func be16(v uint16) []byte { return binary.BigEndian.AppendUint16(nil, v) }

func (b *Builder) add(key string, slots uint16, body ...byte) uint16 {
	if idx, ok := b.index[key]; ok {
		return idx
	}
	idx := b.count
	b.pool = append(b.pool, body...)
	b.count += slots
	b.index[key] = idx
	return idx
}

func (b *Builder) ref(tag classfile.Tag, key string, x, y uint16) uint16 {
	body := append([]byte{byte(tag)}, be16(x)...)
	return b.add(key, 1, append(body, be16(y)...)...)
}

// Utf8 adds a Utf8 constant. Only ASCII round-trips unchanged.
func (b *Builder) Utf8(s string) uint16 {
	body := append([]byte{byte(classfile.TagUtf8)}, be16(uint16(len(s)))...)
	return b.add("utf8:"+s, 1, append(body, s...)...)
}

func (b *Builder) Class(name string) uint16 {
	n := b.Utf8(name)
	return b.add("class:"+name, 1, append([]byte{byte(classfile.TagClass)}, be16(n)...)...)
}

func (b *Builder) String(s string) uint16 {
	n := b.Utf8(s)
	return b.add("string:"+s, 1, append([]byte{byte(classfile.TagString)}, be16(n)...)...)
}

func (b *Builder) Integer(v int32) uint16 {
	body := binary.BigEndian.AppendUint32([]byte{byte(classfile.TagInteger)}, uint32(v))
	return b.add(fmt.Sprintf("int:%d", v), 1, body...)
}

func (b *Builder) Float(v float32) uint16 {
	body := binary.BigEndian.AppendUint32([]byte{byte(classfile.TagFloat)}, math.Float32bits(v))
	return b.add(fmt.Sprintf("float:%x", math.Float32bits(v)), 1, body...)
}

// Long adds a Long constant, which takes two pool slots.
func (b *Builder) Long(v int64) uint16 {
	body := binary.BigEndian.AppendUint64([]byte{byte(classfile.TagLong)}, uint64(v))
	return b.add(fmt.Sprintf("long:%d", v), 2, body...)
}

// Double adds a Double constant, which takes two pool slots.
func (b *Builder) Double(v float64) uint16 {
	body := binary.BigEndian.AppendUint64([]byte{byte(classfile.TagDouble)}, math.Float64bits(v))
	return b.add(fmt.Sprintf("double:%x", math.Float64bits(v)), 2, body...)
}

func (b *Builder) NameAndType(name, desc string) uint16 {
	n, d := b.Utf8(name), b.Utf8(desc)
	return b.ref(classfile.TagNameAndType, "nt:"+name+":"+desc, n, d)
}

func (b *Builder) Fieldref(owner, name, desc string) uint16 {
	c, nt := b.Class(owner), b.NameAndType(name, desc)
	return b.ref(classfile.TagFieldref, "field:"+owner+"."+name+":"+desc, c, nt)
}

func (b *Builder) Methodref(owner, name, desc string) uint16 {
	c, nt := b.Class(owner), b.NameAndType(name, desc)
	return b.ref(classfile.TagMethodref, "method:"+owner+"."+name+":"+desc, c, nt)
}

func (b *Builder) InterfaceMethodref(owner, name, desc string) uint16 {
	c, nt := b.Class(owner), b.NameAndType(name, desc)
	return b.ref(classfile.TagInterfaceMethodref, "imethod:"+owner+"."+name+":"+desc, c, nt)
}

func (b *Builder) MethodType(desc string) uint16 {
	d := b.Utf8(desc)
	return b.add("mtype:"+desc, 1, append([]byte{byte(classfile.TagMethodType)}, be16(d)...)...)
}

func (b *Builder) MethodHandle(kind classfile.MethodHandleKind, ref uint16) uint16 {
	body := append([]byte{byte(classfile.TagMethodHandle), byte(kind)}, be16(ref)...)
	return b.add(fmt.Sprintf("mh:%d:%d", kind, ref), 1, body...)
}

func (b *Builder) InvokeDynamic(bootstrap uint16, name, desc string) uint16 {
	nt := b.NameAndType(name, desc)
	return b.ref(classfile.TagInvokeDynamic, fmt.Sprintf("indy:%d:%d", bootstrap, nt), bootstrap, nt)
}

// Interface adds an implemented interface.
func (b *Builder) Interface(name string) {
	b.interfaces = append(b.interfaces, b.Class(name))
}

func (b *Builder) Field(flags classfile.AccessFlags, name, desc string, attrs ...Attr) {
	b.fields = append(b.fields, member{flags, b.Utf8(name), b.Utf8(desc), attrs})
}

func (b *Builder) Method(flags classfile.AccessFlags, name, desc string, attrs ...Attr) {
	b.methods = append(b.methods, member{flags, b.Utf8(name), b.Utf8(desc), attrs})
}

// Attribute adds a class-level attribute.
func (b *Builder) Attribute(a Attr) {
	b.attrs = append(b.attrs, a)
}

// Code builds a Code attribute body.
func (b *Builder) Code(maxStack, maxLocals uint16, code []byte, handlers ...classfile.ExceptionHandler) Attr {
	var d []byte
	d = binary.BigEndian.AppendUint16(d, maxStack)
	d = binary.BigEndian.AppendUint16(d, maxLocals)
	d = binary.BigEndian.AppendUint32(d, uint32(len(code)))
	d = append(d, code...)
	d = binary.BigEndian.AppendUint16(d, uint16(len(handlers)))
	for _, h := range handlers {
		for _, v := range []uint16{h.Start, h.End, h.Handler, h.CatchType} {
			d = binary.BigEndian.AppendUint16(d, v)
		}
	}
	d = binary.BigEndian.AppendUint16(d, 0)
	return Attr{Name: classfile.AttrCode, Data: d}
}

func (b *Builder) ConstantValue(idx uint16) Attr {
	return Attr{Name: classfile.AttrConstantValue, Data: be16(idx)}
}

func (b *Builder) Signature(sig string) Attr {
	return Attr{Name: classfile.AttrSignature, Data: be16(b.Utf8(sig))}
}

func (b *Builder) SourceFile(name string) Attr {
	return Attr{Name: classfile.AttrSourceFile, Data: be16(b.Utf8(name))}
}

func (b *Builder) Exceptions(classes ...string) Attr {
	d := be16(uint16(len(classes)))
	for _, c := range classes {
		d = append(d, be16(b.Class(c))...)
	}
	return Attr{Name: classfile.AttrExceptions, Data: d}
}

// Bytes serializes the class. Attribute names are interned first so the
// pool is complete before it is written.
func (b *Builder) Bytes() []byte {
	names := func(as []Attr) {
		for _, a := range as {
			b.Utf8(a.Name)
		}
	}
	names(b.attrs)
	for _, m := range b.fields {
		names(m.attrs)
	}
	for _, m := range b.methods {
		names(m.attrs)
	}

	var out []byte
	out = binary.BigEndian.AppendUint32(out, classfile.Magic)
	out = binary.BigEndian.AppendUint16(out, 0)
	out = binary.BigEndian.AppendUint16(out, b.Major)
	out = binary.BigEndian.AppendUint16(out, b.count)
	out = append(out, b.pool...)
	out = binary.BigEndian.AppendUint16(out, uint16(b.Flags))
	out = binary.BigEndian.AppendUint16(out, b.this)
	out = binary.BigEndian.AppendUint16(out, b.super)
	out = binary.BigEndian.AppendUint16(out, uint16(len(b.interfaces)))
	for _, i := range b.interfaces {
		out = binary.BigEndian.AppendUint16(out, i)
	}
	for _, ms := range [][]member{b.fields, b.methods} {
		out = binary.BigEndian.AppendUint16(out, uint16(len(ms)))
		for _, m := range ms {
			out = binary.BigEndian.AppendUint16(out, uint16(m.flags))
			out = binary.BigEndian.AppendUint16(out, m.name)
			out = binary.BigEndian.AppendUint16(out, m.desc)
			out = b.appendAttrs(out, m.attrs)
		}
	}
	return b.appendAttrs(out, b.attrs)
}

func (b *Builder) appendAttrs(out []byte, as []Attr) []byte {
	out = binary.BigEndian.AppendUint16(out, uint16(len(as)))
	for _, a := range as {
		out = binary.BigEndian.AppendUint16(out, b.index["utf8:"+a.Name])
		out = binary.BigEndian.AppendUint32(out, uint32(len(a.Data)))
		out = append(out, a.Data...)
	}
	return out
}
