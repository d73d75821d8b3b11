package report

import (
	"fmt"
	"io"
	"strings"

	"unclass/internal/bytecode"
	"unclass/internal/classfile"
	"unclass/internal/descriptor"
	"unclass/internal/diag"
	"unclass/internal/simulate"
)

const (
	memberIndent = "    "
	bodyIndent   = "        "
)

// RenderOptions selects the sections of each method body.
type RenderOptions struct {
	Listing  bool // annotated disassembly with a code summary
	Flow     bool // coalesced flow graph in text form
	Simulate bool // simulator statements
	Strict   bool // a signature that does not decode aborts the render
	Colors   *Colors
	Types    *descriptor.Cache
}

// RenderClass writes c as Java-like source: the class header, fields with
// their initializers and methods with the requested body sections.
// Failures are rendered inline as "// error:" lines unless opts.Strict.
func RenderClass(w io.Writer, c *Class, opts RenderOptions) error {
	r := &renderer{f: c.File, opts: opts}
	if err := r.class(c); err != nil {
		return err
	}
	_, err := io.WriteString(w, r.b.String())
	return err
}

type renderer struct {
	f    *classfile.File
	opts RenderOptions
	b    strings.Builder
}

func (r *renderer) line(indent, s string) {
	r.b.WriteString(indent)
	r.b.WriteString(s)
	r.b.WriteByte('\n')
}

// fail records a rendering error inline, or returns it in strict mode.
func (r *renderer) fail(indent string, err error) error {
	if r.opts.Strict {
		return err
	}
	for _, l := range strings.Split(err.Error(), "\n") {
		r.line(indent, r.opts.Colors.err("// error: "+l))
	}
	return nil
}

func (r *renderer) decode(s string) (descriptor.Type, error) {
	return r.opts.Types.Decode(s)
}

func (r *renderer) class(c *Class) error {
	f := r.f
	if src := f.SourceFile(); src != "" {
		r.line("", r.opts.Colors.comment(fmt.Sprintf("// compiled from %s (version %s)", src, f.Version())))
	} else {
		r.line("", r.opts.Colors.comment("// version "+f.Version()))
	}
	header, err := r.header()
	if err != nil {
		return err
	}
	r.line("", header+" {")

	for _, m := range f.Fields {
		if err := r.field(m); err != nil {
			return err
		}
	}
	if len(f.Fields) > 0 && len(c.Methods) > 0 {
		r.b.WriteByte('\n')
	}
	for i, m := range c.Methods {
		if i > 0 {
			r.b.WriteByte('\n')
		}
		if err := r.method(m); err != nil {
			return err
		}
	}
	r.line("", "}")
	return nil
}

func (r *renderer) header() (string, error) {
	f := r.f
	name, super, ifaces := f.Name, f.Super, f.Interfaces
	sig, ok, err := f.Signature()
	if err == nil && ok {
		var cs descriptor.ClassSignature
		if cs, err = descriptor.DecodeClassSignature(sig); err == nil {
			if len(cs.Params) > 0 {
				params := make([]string, len(cs.Params))
				for i, p := range cs.Params {
					params[i] = p.String()
				}
				name += "<" + strings.Join(params, ", ") + ">"
			}
			super = cs.Super.String()
			ifaces = nil
			for _, t := range cs.Interfaces {
				ifaces = append(ifaces, t.String())
			}
		}
	}
	if err != nil {
		if err := r.fail("", fmt.Errorf("class signature: %w", err)); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	if flags := f.Flags.Render(classfile.ContextClass); flags != "" {
		b.WriteString(r.opts.Colors.keyword(flags))
		b.WriteByte(' ')
	}
	b.WriteString(r.opts.Colors.keyword(f.Flags.Kind()))
	b.WriteByte(' ')
	b.WriteString(name)
	isInterface := f.Flags.IsInterface()
	if super != "" && super != "java.lang.Object" && !isInterface {
		b.WriteString(" " + r.opts.Colors.keyword("extends") + " " + super)
	}
	if len(ifaces) > 0 {
		kw := "implements"
		if isInterface {
			kw = "extends"
		}
		b.WriteString(" " + r.opts.Colors.keyword(kw) + " " + strings.Join(ifaces, ", "))
	}
	return b.String(), nil
}

// memberType decodes a member's Signature attribute, or its descriptor
// when it has none. Generic signatures keep the type arguments that the
// descriptor erases.
func (r *renderer) memberType(m *classfile.Member) (descriptor.Type, error) {
	s := m.Descriptor
	sig, ok, err := m.Signature(r.f.Pool)
	if err != nil {
		return nil, fmt.Errorf("%s: signature: %w", m.Name, err)
	}
	if ok {
		s = sig
	}
	t, err := r.decode(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	return t, nil
}

func (r *renderer) modifiers(flags classfile.AccessFlags, ctx classfile.Context) string {
	s := flags.Render(ctx)
	if s == "" {
		return ""
	}
	return r.opts.Colors.keyword(s) + " "
}

func (r *renderer) field(m *classfile.Member) error {
	typ := m.Descriptor
	if t, err := r.memberType(m); err != nil {
		if err := r.fail(memberIndent, err); err != nil {
			return err
		}
	} else {
		typ = t.String()
	}
	s := r.modifiers(m.Flags, classfile.ContextField) + typ + " " + m.Name

	idx, ok, err := m.ConstantValueIndex()
	switch {
	case err != nil:
		if err := r.fail(memberIndent, fmt.Errorf("%s: constant value: %w", m.Name, err)); err != nil {
			return err
		}
	case ok:
		v, err := r.f.Pool.Render(idx)
		if err != nil {
			if err := r.fail(memberIndent, fmt.Errorf("%s: constant value: %w", m.Name, err)); err != nil {
				return err
			}
			break
		}
		s += " = " + v
	}
	r.line(memberIndent, s+";")
	return nil
}

// displayName maps a method name to its source form. Compiler-generated
// suffixes after '$' are dropped.
func (r *renderer) displayName(name string) string {
	if name == "<init>" {
		return r.f.SimpleName()
	}
	if i := strings.IndexByte(name, '$'); i > 0 {
		return name[:i]
	}
	return name
}

func (r *renderer) signature(m *classfile.Member) (string, error) {
	name := r.displayName(m.Name)
	t, err := r.memberType(m)
	if err != nil {
		return name + "(" + m.Descriptor + ")", err
	}
	fn, ok := t.(descriptor.Function)
	if !ok {
		return name + "(" + m.Descriptor + ")", fmt.Errorf("%s: %q is not a method descriptor", m.Name, m.Descriptor)
	}
	argNames := make([]string, len(fn.Args))
	for i := range argNames {
		argNames[i] = fmt.Sprintf("arg%d", i)
	}
	if m.Name == "<init>" {
		fn.Return = nil
		return strings.TrimPrefix(fn.Render(name, argNames...), " "), nil
	}
	return fn.Render(name, argNames...), nil
}

func (r *renderer) method(m *Method) error {
	mem := m.Member
	var decl string
	if mem.Name == "<clinit>" {
		decl = r.opts.Colors.keyword("static")
	} else {
		sig, err := r.signature(mem)
		if err != nil {
			if err := r.fail(memberIndent, err); err != nil {
				return err
			}
		}
		decl = r.modifiers(mem.Flags, classfile.ContextMethod) + sig
		throws, err := mem.Exceptions(r.f.Pool)
		if err != nil {
			if err := r.fail(memberIndent, fmt.Errorf("%s: %w", mem.Name, err)); err != nil {
				return err
			}
		}
		if len(throws) > 0 {
			decl += " " + r.opts.Colors.keyword("throws") + " " + strings.Join(throws, ", ")
		}
	}
	if !m.HasCode() {
		r.line(memberIndent, decl+" {}")
		return nil
	}
	r.line(memberIndent, decl+" {")
	r.body(m)
	r.line(memberIndent, "}")
	return nil
}

func (r *renderer) annotators() []bytecode.Annotator {
	return []bytecode.Annotator{
		bytecode.JumpAnnotator(),
		bytecode.PoolAnnotator(r.f.Pool),
		bytecode.LocalAnnotator(),
	}
}

func (r *renderer) body(m *Method) {
	col := r.opts.Colors
	if r.opts.Listing && m.Code != nil {
		code := m.Code
		r.line(bodyIndent, col.comment(fmt.Sprintf("// stack %d, locals %d, %d bytes", code.MaxStack, code.MaxLocals, len(code.Bytes))))
		for _, h := range code.Handlers {
			r.line(bodyIndent, col.comment(fmt.Sprintf("// try [%04X, %04X) -> %04X %s", h.Start, h.End, h.Handler, h.CatchName(r.f.Pool))))
		}
		if len(code.Attributes) > 0 {
			names := make([]string, len(code.Attributes))
			for i, a := range code.Attributes {
				names[i] = a.Name
			}
			r.line(bodyIndent, col.comment("// attributes: "+strings.Join(names, ", ")))
		}
		anns := r.annotators()
		for _, inst := range m.Insts {
			r.line(bodyIndent, col.Listing(bytecode.FormatInst(inst, anns...)))
		}
	}
	if r.opts.Flow && m.Graph != nil && m.Graph.Len() > 0 {
		r.line(bodyIndent, col.comment("// flow"))
		text := strings.TrimSuffix(m.Graph.Text(bytecode.JumpAnnotator()), "\n")
		for _, l := range strings.Split(text, "\n") {
			r.line(bodyIndent, l)
		}
	}
	if r.opts.Simulate && len(m.Events) > 0 {
		if r.opts.Listing || r.opts.Flow {
			r.line(bodyIndent, col.comment("// simulate"))
		}
		for _, e := range m.Events {
			if e.Kind == simulate.EventDiagnostic {
				r.line(bodyIndent, col.diag("// "+e.Text))
				continue
			}
			r.line(bodyIndent, e.Text)
		}
		if len(m.Stack) > 0 {
			r.line(bodyIndent, col.diag("// stack: "+strings.Join(m.Stack, ", ")))
		}
	}
	for _, d := range m.Diags.Items() {
		switch d.Kind {
		case diag.KindUnimplemented, diag.KindFailed:
			continue // shown as simulator output or as the error below
		}
		r.line(bodyIndent, col.diag(fmt.Sprintf("// %s %04X: %s", d.Kind, d.Offset, d.Msg)))
	}
	if m.Err != nil {
		for _, l := range strings.Split(m.Err.Error(), "\n") {
			r.line(bodyIndent, col.err("// error: "+l))
		}
	}
}
