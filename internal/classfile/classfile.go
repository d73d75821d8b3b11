// Package classfile reads the Java class file container: constant pool,
// access flags, fields, methods and attributes.
package classfile

import (
	"errors"
	"fmt"
	"os"

	"unclass/internal/descriptor"
)

var ErrBadMagic = errors.New("classfile: bad magic number")

// File is a parsed class file. Class names are dotted.
type File struct {
	Minor      uint16      `json:"minor"`
	Major      uint16      `json:"major"`
	Pool       Pool        `json:"-"`
	Flags      AccessFlags `json:"flags"`
	Name       string      `json:"name"`
	Super      string      `json:"super,omitempty"` // empty only for java.lang.Object
	Interfaces []string    `json:"interfaces,omitempty"`
	Fields     []*Member   `json:"fields,omitempty"`
	Methods    []*Member   `json:"methods,omitempty"`
	Attributes Attributes  `json:"attributes,omitempty"`
}

// Open reads and parses a class file from disk.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses a complete class file image.
func Parse(data []byte) (*File, error) {
	s := NewStream(data)
	magic, err := s.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("magic: %w", err)
	}
	if magic != Magic {
		return nil, fmt.Errorf("%w: 0x%08X", ErrBadMagic, magic)
	}
	f := &File{}
	if f.Minor, err = s.ReadUint16(); err != nil {
		return nil, fmt.Errorf("minor_version: %w", err)
	}
	if f.Major, err = s.ReadUint16(); err != nil {
		return nil, fmt.Errorf("major_version: %w", err)
	}
	if f.Pool, err = readPool(s); err != nil {
		return nil, err
	}
	flags, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("access_flags: %w", err)
	}
	f.Flags = AccessFlags(flags)

	this, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	if f.Name, err = f.Pool.ClassName(this); err != nil {
		return nil, fmt.Errorf("this_class: %w", err)
	}
	super, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("super_class: %w", err)
	}
	if super != 0 {
		if f.Super, err = f.Pool.ClassName(super); err != nil {
			return nil, fmt.Errorf("super_class: %w", err)
		}
	}

	n, err := s.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("interfaces_count: %w", err)
	}
	for i := 0; i < int(n); i++ {
		idx, err := s.ReadUint16()
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		name, err := f.Pool.ClassName(idx)
		if err != nil {
			return nil, fmt.Errorf("interface %d: %w", i, err)
		}
		f.Interfaces = append(f.Interfaces, name)
	}

	if f.Fields, err = readMembers(s, f.Pool, "field"); err != nil {
		return nil, err
	}
	if f.Methods, err = readMembers(s, f.Pool, "method"); err != nil {
		return nil, err
	}
	if f.Attributes, err = readAttributes(s, f.Pool); err != nil {
		return nil, fmt.Errorf("class attributes: %w", err)
	}
	return f, nil
}

// SimpleName returns the class name without its package.
func (f *File) SimpleName() string {
	return descriptor.SimpleName(f.Name)
}

// SourceFile returns the SourceFile attribute value, if present.
func (f *File) SourceFile() string {
	a, ok := f.Attributes.Find(AttrSourceFile)
	if !ok {
		return ""
	}
	idx, err := a.index()
	if err != nil {
		return ""
	}
	name, err := f.Pool.Utf8(idx)
	if err != nil {
		return ""
	}
	return name
}

// Signature returns the class-level generic signature, if present.
func (f *File) Signature() (string, bool, error) {
	return signature(f.Attributes, f.Pool)
}

// Version renders the class file version as "major.minor".
func (f *File) Version() string {
	return fmt.Sprintf("%d.%d", f.Major, f.Minor)
}
