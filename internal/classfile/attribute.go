package classfile

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Attribute names the parser knows how to interpret.
const (
	AttrCode          = "Code"
	AttrConstantValue = "ConstantValue"
	AttrSignature     = "Signature"
	AttrSourceFile    = "SourceFile"
	AttrExceptions    = "Exceptions"
)

var ErrNoCode = errors.New("classfile: method has no Code attribute")

// Attribute is a raw attribute with its name already resolved.
type Attribute struct {
	NameIndex uint16 `json:"name_index"`
	Name      string `json:"name"`
	Data      []byte `json:"-"`
}

// Attributes is an attribute table.
type Attributes []Attribute

// Find returns the first attribute with the given name.
func (as Attributes) Find(name string) (Attribute, bool) {
	for _, a := range as {
		if a.Name == name {
			return a, true
		}
	}
	return Attribute{}, false
}

// index reads the u2 constant pool index that makes up the whole body of
// Signature, ConstantValue and SourceFile attributes.
func (a Attribute) index() (uint16, error) {
	if len(a.Data) != 2 {
		return 0, fmt.Errorf("%s attribute: length %d, want 2", a.Name, len(a.Data))
	}
	return binary.BigEndian.Uint16(a.Data), nil
}

func readAttributes(s *Stream, pool Pool) (Attributes, error) {
	count, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("attributes_count: %w", err)
	}
	attrs := make(Attributes, 0, count)
	for i := 0; i < int(count); i++ {
		nameIdx, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("attribute %d: %w", i, err)
		}
		name, err := pool.Utf8(nameIdx)
		if err != nil {
			return nil, fmt.Errorf("attribute %d name: %w", i, err)
		}
		n, err := s.ReadUint32()
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		data, err := s.ReadBytes(int(n))
		if err != nil {
			return nil, fmt.Errorf("attribute %s body: %w", name, err)
		}
		attrs = append(attrs, Attribute{NameIndex: nameIdx, Name: name, Data: data})
	}
	return attrs, nil
}

// ExceptionHandler is one exception_table entry. End is exclusive.
// CatchType 0 catches everything.
type ExceptionHandler struct {
	Start     uint16 `json:"start"`
	End       uint16 `json:"end"`
	Handler   uint16 `json:"handler"`
	CatchType uint16 `json:"catch_type"`
}

// CatchName renders the caught class, or "any".
func (h ExceptionHandler) CatchName(pool Pool) string {
	if h.CatchType == 0 {
		return "any"
	}
	name, err := pool.ClassName(h.CatchType)
	if err != nil {
		return fmt.Sprintf("#%d", h.CatchType)
	}
	return name
}

// Code is a parsed Code attribute. Bytes is the undecoded instruction stream.
type Code struct {
	MaxStack   uint16             `json:"max_stack"`
	MaxLocals  uint16             `json:"max_locals"`
	Length     uint32             `json:"code_length"`
	Bytes      []byte             `json:"-"`
	Handlers   []ExceptionHandler `json:"handlers,omitempty"`
	Attributes Attributes         `json:"attributes,omitempty"`
}

// ParseCode parses the body of a Code attribute.
func ParseCode(data []byte, pool Pool) (*Code, error) {
	s := NewStream(data)
	c := &Code{}
	var err error
	if c.MaxStack, err = s.ReadUint16(); err != nil {
		return nil, fmt.Errorf("code: max_stack: %w", err)
	}
	if c.MaxLocals, err = s.ReadUint16(); err != nil {
		return nil, fmt.Errorf("code: max_locals: %w", err)
	}
	if c.Length, err = s.ReadUint32(); err != nil {
		return nil, fmt.Errorf("code: code_length: %w", err)
	}
	n := c.Length
	if c.Bytes, err = s.ReadBytes(int(n)); err != nil {
		return nil, fmt.Errorf("code: %d code bytes: %w", n, err)
	}
	handlers, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("code: exception_table_length: %w", err)
	}
	for i := 0; i < int(handlers); i++ {
		var h ExceptionHandler
		for _, dst := range []*uint16{&h.Start, &h.End, &h.Handler, &h.CatchType} {
			if *dst, err = s.ReadUint16(); err != nil {
				return nil, fmt.Errorf("code: exception handler %d: %w", i, err)
			}
		}
		c.Handlers = append(c.Handlers, h)
	}
	if c.Attributes, err = readAttributes(s, pool); err != nil {
		return nil, fmt.Errorf("code: %w", err)
	}
	return c, nil
}

// Member is a field_info or method_info.
type Member struct {
	Flags      AccessFlags `json:"flags"`
	Name       string      `json:"name"`
	Descriptor string      `json:"descriptor"`
	Attributes Attributes  `json:"attributes,omitempty"`
}

// HasCode reports whether the member carries a Code attribute.
func (m *Member) HasCode() bool {
	_, ok := m.Attributes.Find(AttrCode)
	return ok
}

// Code parses the member's Code attribute.
func (m *Member) Code(pool Pool) (*Code, error) {
	a, ok := m.Attributes.Find(AttrCode)
	if !ok {
		return nil, ErrNoCode
	}
	return ParseCode(a.Data, pool)
}

// Signature returns the generic signature if the member has one.
func (m *Member) Signature(pool Pool) (string, bool, error) {
	return signature(m.Attributes, pool)
}

// ConstantValueIndex returns the pool index of a field initializer.
func (m *Member) ConstantValueIndex() (uint16, bool, error) {
	a, ok := m.Attributes.Find(AttrConstantValue)
	if !ok {
		return 0, false, nil
	}
	idx, err := a.index()
	return idx, err == nil, err
}

// Exceptions returns the dotted names from a method's throws clause.
func (m *Member) Exceptions(pool Pool) ([]string, error) {
	a, ok := m.Attributes.Find(AttrExceptions)
	if !ok {
		return nil, nil
	}
	s := NewStream(a.Data)
	n, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("exceptions: %w", err)
	}
	out := make([]string, 0, n)
	for i := 0; i < int(n); i++ {
		idx, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("exceptions: %w", err)
		}
		name, err := pool.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("exceptions: %w", err)
		}
		out = append(out, name)
	}
	return out, nil
}

func signature(attrs Attributes, pool Pool) (string, bool, error) {
	a, ok := attrs.Find(AttrSignature)
	if !ok {
		return "", false, nil
	}
	idx, err := a.index()
	if err != nil {
		return "", false, err
	}
	sig, err := pool.Utf8(idx)
	if err != nil {
		return "", false, err
	}
	return sig, true, nil
}

func readMembers(s *Stream, pool Pool, what string) ([]*Member, error) {
	count, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("%s_count: %w", what, err)
	}
	out := make([]*Member, 0, count)
	for i := 0; i < int(count); i++ {
		m, err := readMember(s, pool)
		if err != nil {
			return nil, fmt.Errorf("%s %d: %w", what, i, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func readMember(s *Stream, pool Pool) (*Member, error) {
	flags, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	nameIdx, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	descIdx, err := s.ReadUint16()
	if err != nil {
		return nil, err
	}
	name, err := pool.Utf8(nameIdx)
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	desc, err := pool.Utf8(descIdx)
	if err != nil {
		return nil, fmt.Errorf("descriptor: %w", err)
	}
	attrs, err := readAttributes(s, pool)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Member{Flags: AccessFlags(flags), Name: name, Descriptor: desc, Attributes: attrs}, nil
}
