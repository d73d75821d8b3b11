// Package simulate replays a method's instructions on a symbolic operand
// stack and emits source-like statements.
//
// Category-2 values (long, double) occupy two stack entries holding the
// same expression, so the stack-shuffle opcodes work on fixed slot offsets.
package simulate

import (
	"errors"
	"fmt"
	"strconv"

	"unclass/internal/bytecode"
	"unclass/internal/classfile"
	"unclass/internal/descriptor"
	"unclass/internal/diag"
)

var (
	ErrConstant       = errors.New("simulate: invalid constant")
	ErrStackUnderflow = errors.New("simulate: operand stack underflow")
)

// Error aborts the simulation of one method.
type Error struct {
	Offset uint32
	Op     bytecode.Op
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("simulate: %s at %04X: %v", e.Op, e.Offset, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Pool is the constant pool access the simulator needs.
// classfile.Pool implements it.
type Pool interface {
	Entry(idx uint16) (classfile.Constant, error)
	Render(idx uint16) (string, error)
	Member(idx uint16) (classfile.MemberRef, error)
	NameAndType(idx uint16) (name, desc string, err error)
}

// Options describes the method being simulated.
type Options struct {
	MaxStack  int
	MaxLocals int
	Static    bool
	Class     string            // dotted name of the declaring class
	Types     *descriptor.Cache // optional
}

// Simulator holds the per-method operand stack. It is not safe for
// concurrent use; create one per method.
type Simulator struct {
	pool       Pool
	opts       Options
	sink       Sink
	stack      []Expr
	diags      diag.Diags
	overflowed bool
}

// New returns a simulator with an empty stack. A nil sink discards output.
func New(pool Pool, opts Options, sink Sink) *Simulator {
	if sink == nil {
		sink = Discard
	}
	return &Simulator{
		pool:  pool,
		opts:  opts,
		sink:  sink,
		stack: make([]Expr, 0, max(opts.MaxStack, 0)),
	}
}

// Run steps through insts in order and stops at the first fatal error.
func (s *Simulator) Run(insts []bytecode.Inst) error {
	for _, inst := range insts {
		if err := s.Step(inst); err != nil {
			return err
		}
	}
	return nil
}

// Depth returns the number of stack entries.
func (s *Simulator) Depth() int { return len(s.stack) }

// Stack returns the rendered stack, bottom first.
func (s *Simulator) Stack() []string {
	out := make([]string, len(s.stack))
	for i, e := range s.stack {
		out[i] = e.String()
	}
	return out
}

// Diags returns the diagnostics collected so far.
func (s *Simulator) Diags() *diag.Diags { return &s.diags }

var constants = [...]struct {
	text string
	wide bool
}{
	{"null", false},
	{"-1", false}, {"0", false}, {"1", false}, {"2", false}, {"3", false}, {"4", false}, {"5", false},
	{"0L", true}, {"1L", true},
	{"0.0f", false}, {"1.0f", false}, {"2.0f", false},
	{"0.0", true}, {"1.0", true},
}

var arith = [...]string{"+", "-", "*", "/", "%"}

var bitwise = [...]string{"<<", "<<", ">>", ">>", ">>>", ">>>", "&", "&", "|", "|", "^", "^"}

var conversions = [...]struct {
	to       string
	fromWide bool
	toWide   bool
}{
	{"long", false, true}, {"float", false, false}, {"double", false, true},
	{"int", true, false}, {"float", true, false}, {"double", true, true},
	{"int", false, false}, {"long", false, true}, {"double", false, true},
	{"int", true, false}, {"long", true, true}, {"float", true, false},
	{"byte", false, false}, {"char", false, false}, {"short", false, false},
}

var conditions = [...]string{"==", "!=", "<", ">=", ">", "<="}

var arrayTypes = map[uint8]string{
	4: "boolean", 5: "char", 6: "float", 7: "double",
	8: "byte", 9: "short", 10: "int", 11: "long",
}

// Type letters by opcode family, used to tell category-2 operands apart.
const (
	localKinds = "ilfda"
	arrayKinds = "ilfdabcs"
)

func isWide(k byte) bool { return k == 'l' || k == 'd' }

func localKind(op, long, short bytecode.Op) byte {
	if op < short {
		return localKinds[op-long]
	}
	return localKinds[(op-short)/4]
}

// Step applies one instruction. Opcodes without a rendering rule produce
// a diagnostic and leave the stack unchanged.
func (s *Simulator) Step(inst bytecode.Inst) error {
	op := inst.Op
	if op == bytecode.OpWide {
		op = inst.Wrapped()
	}
	slot, _ := inst.Local()

	var err error
	switch {
	case op == bytecode.OpNop:

	case op >= bytecode.OpAconstNull && op <= bytecode.OpDconst1:
		c := constants[op-bytecode.OpAconstNull]
		s.push(Literal(c.text), c.wide)
	case op == bytecode.OpBipush:
		s.push(Literal(strconv.Itoa(int(inst.S8(0)))), false)
	case op == bytecode.OpSipush:
		s.push(Literal(strconv.Itoa(int(inst.S16(0)))), false)
	case op == bytecode.OpLdc, op == bytecode.OpLdcW, op == bytecode.OpLdc2W:
		idx, _ := inst.PoolIndex()
		err = s.ldc(idx)

	case op >= bytecode.OpIload && op <= bytecode.OpAload3:
		s.checkLocal(inst, slot)
		s.push(Local{Slot: slot}, isWide(localKind(op, bytecode.OpIload, bytecode.OpIload0)))
	case op >= bytecode.OpIaload && op <= bytecode.OpSaload:
		var arr, idx Expr
		if idx, err = s.pop(false); err == nil {
			if arr, err = s.pop(false); err == nil {
				s.push(Index{Array: arr, Index: idx}, isWide(arrayKinds[op-bytecode.OpIaload]))
			}
		}
	case op >= bytecode.OpIstore && op <= bytecode.OpAstore3:
		s.checkLocal(inst, slot)
		var v Expr
		if v, err = s.pop(isWide(localKind(op, bytecode.OpIstore, bytecode.OpIstore0))); err == nil {
			s.emitf(inst, "%s = %s", Local{Slot: slot}, v)
		}
	case op >= bytecode.OpIastore && op <= bytecode.OpSastore:
		var xs []Expr
		if xs, err = s.popOperands(false, false, isWide(arrayKinds[op-bytecode.OpIastore])); err == nil {
			s.emitf(inst, "%s = %s", Index{Array: xs[0], Index: xs[1]}, xs[2])
		}

	case op >= bytecode.OpPop && op <= bytecode.OpSwap:
		err = s.shuffle(op)

	case op >= bytecode.OpIadd && op <= bytecode.OpDrem:
		k := (op - bytecode.OpIadd) % 4
		err = s.binary(arith[(op-bytecode.OpIadd)/4], k == 1 || k == 3, k == 1 || k == 3, k == 1 || k == 3)
	case op >= bytecode.OpIneg && op <= bytecode.OpDneg:
		k := op - bytecode.OpIneg
		wide := k == 1 || k == 3
		var x Expr
		if x, err = s.pop(wide); err == nil {
			s.push(Neg{X: x}, wide)
		}
	case op >= bytecode.OpIshl && op <= bytecode.OpLxor:
		k := op - bytecode.OpIshl
		long := k%2 == 1
		if op <= bytecode.OpLushr {
			err = s.binary(bitwise[k], long, false, long)
		} else {
			err = s.binary(bitwise[k], long, long, long)
		}
	case op == bytecode.OpIinc:
		s.checkLocal(inst, slot)
		c, _ := inst.Increment()
		if c < 0 {
			s.emitf(inst, "%s -= %d", Local{Slot: slot}, -int(c))
		} else {
			s.emitf(inst, "%s += %d", Local{Slot: slot}, c)
		}
	case op >= bytecode.OpI2l && op <= bytecode.OpI2s:
		c := conversions[op-bytecode.OpI2l]
		var x Expr
		if x, err = s.pop(c.fromWide); err == nil {
			s.push(Cast{Type: c.to, X: x}, c.toWide)
		}
	case op >= bytecode.OpLcmp && op <= bytecode.OpDcmpg:
		wide := op == bytecode.OpLcmp || op >= bytecode.OpDcmpl
		err = s.binary("cmp", wide, wide, false)

	case op >= bytecode.OpIfeq && op <= bytecode.OpIfle:
		var x Expr
		if x, err = s.pop(false); err == nil {
			s.emitf(inst, "if (%s %s 0) goto %04X", x, conditions[op-bytecode.OpIfeq], target(inst))
		}
	case op >= bytecode.OpIfIcmpeq && op <= bytecode.OpIfAcmpne:
		cond := conditions[(op-bytecode.OpIfIcmpeq)%6]
		var xs []Expr
		if xs, err = s.popOperands(false, false); err == nil {
			s.emitf(inst, "if (%s %s %s) goto %04X", xs[0], cond, xs[1], target(inst))
		}
	case op == bytecode.OpIfnull, op == bytecode.OpIfnonnull:
		cond := "=="
		if op == bytecode.OpIfnonnull {
			cond = "!="
		}
		var x Expr
		if x, err = s.pop(false); err == nil {
			s.emitf(inst, "if (%s %s null) goto %04X", x, cond, target(inst))
		}
	case op == bytecode.OpGoto, op == bytecode.OpGotoW:
		s.emitf(inst, "goto %04X", target(inst))
	case op == bytecode.OpTableswitch, op == bytecode.OpLookupswitch:
		var x Expr
		if x, err = s.pop(false); err == nil {
			s.emitf(inst, "switch (%s)", x)
		}

	case op >= bytecode.OpIreturn && op <= bytecode.OpAreturn:
		k := op - bytecode.OpIreturn
		var x Expr
		if x, err = s.pop(k == 1 || k == 3); err == nil {
			s.emitf(inst, "return %s", x)
		}
	case op == bytecode.OpReturn:
		s.emitf(inst, "return")
	case op == bytecode.OpAthrow:
		var x Expr
		if x, err = s.pop(false); err == nil {
			s.emitf(inst, "throw %s", x)
		}

	case op >= bytecode.OpGetstatic && op <= bytecode.OpPutfield:
		err = s.field(inst, op)
	case op >= bytecode.OpInvokevirtual && op <= bytecode.OpInvokedynamic:
		err = s.invoke(inst, op)

	case op == bytecode.OpNew:
		var cls string
		if cls, err = s.className(inst); err == nil {
			s.push(&Alloc{Class: cls}, false)
		}
	case op == bytecode.OpNewarray:
		elem, ok := arrayTypes[inst.U8(0)]
		if !ok {
			elem = fmt.Sprintf("<atype %d>", inst.U8(0))
		}
		var n Expr
		if n, err = s.pop(false); err == nil {
			s.push(NewArray{Elem: elem, Dims: []Expr{n}}, false)
		}
	case op == bytecode.OpAnewarray:
		var cls string
		if cls, err = s.className(inst); err == nil {
			var n Expr
			if n, err = s.pop(false); err == nil {
				elem, extra := splitArray(cls)
				s.push(NewArray{Elem: elem, Dims: []Expr{n}, Extra: extra}, false)
			}
		}
	case op == bytecode.OpMultianewarray:
		var cls string
		if cls, err = s.className(inst); err == nil {
			dims := int(inst.U8(2))
			var xs []Expr
			if xs, err = s.popOperands(make([]bool, dims)...); err == nil {
				elem, total := splitArray(cls)
				s.push(NewArray{Elem: elem, Dims: xs, Extra: max(total-dims, 0)}, false)
			}
		}
	case op == bytecode.OpArraylength:
		var x Expr
		if x, err = s.pop(false); err == nil {
			s.push(Length{Array: x}, false)
		}
	case op == bytecode.OpCheckcast:
		var cls string
		if cls, err = s.className(inst); err == nil {
			var x Expr
			if x, err = s.pop(false); err == nil {
				s.push(Cast{Type: cls, X: x}, false)
			}
		}
	case op == bytecode.OpInstanceof:
		var cls string
		if cls, err = s.className(inst); err == nil {
			var x Expr
			if x, err = s.pop(false); err == nil {
				s.push(Binary{Op: "instanceof", L: x, R: Literal(cls)}, false)
			}
		}
	case op == bytecode.OpMonitorenter, op == bytecode.OpMonitorexit:
		var x Expr
		if x, err = s.pop(false); err == nil {
			s.emitf(inst, "%s %s", op, x)
		}

	default:
		msg := "Simulation not yet implemented for opcode " + inst.Op.String()
		s.diags.Add(inst.Offset, diag.KindUnimplemented, msg)
		s.sink.Emit(Event{Offset: inst.Offset, Op: inst.Op, Kind: EventDiagnostic, Text: msg})
	}

	if err != nil {
		return &Error{Offset: inst.Offset, Op: inst.Op, Err: err}
	}
	if s.opts.MaxStack > 0 && len(s.stack) > s.opts.MaxStack && !s.overflowed {
		s.overflowed = true
		s.diags.Addf(inst.Offset, diag.KindOverflow, "stack depth %d exceeds max_stack %d", len(s.stack), s.opts.MaxStack)
	}
	return nil
}

func target(inst bytecode.Inst) uint32 { return bytecode.DecodeBranch(inst).Target }

func (s *Simulator) emitf(inst bytecode.Inst, format string, args ...any) {
	s.sink.Emit(Event{
		Offset: inst.Offset,
		Op:     inst.Op,
		Kind:   EventStatement,
		Text:   fmt.Sprintf(format, args...),
	})
}

func (s *Simulator) checkLocal(inst bytecode.Inst, slot uint16) {
	if s.opts.MaxLocals > 0 && int(slot) >= s.opts.MaxLocals {
		s.diags.Addf(inst.Offset, diag.KindInvalid, "local slot %d exceeds max_locals %d", slot, s.opts.MaxLocals)
	}
}

func (s *Simulator) push(x Expr, wide bool) {
	s.stack = append(s.stack, x)
	if wide {
		s.stack = append(s.stack, x)
	}
}

// pop removes one value, two entries if wide.
func (s *Simulator) pop(wide bool) (Expr, error) {
	n := 1
	if wide {
		n = 2
	}
	if len(s.stack) < n {
		return nil, ErrStackUnderflow
	}
	x := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-n]
	return x, nil
}

// popOperands pops len(widths) values and returns them in push order.
func (s *Simulator) popOperands(widths ...bool) ([]Expr, error) {
	out := make([]Expr, len(widths))
	for i := len(widths) - 1; i >= 0; i-- {
		x, err := s.pop(widths[i])
		if err != nil {
			return nil, err
		}
		out[i] = x
	}
	return out, nil
}

func (s *Simulator) binary(op string, lwide, rwide, resWide bool) error {
	xs, err := s.popOperands(lwide, rwide)
	if err != nil {
		return err
	}
	s.push(Binary{Op: op, L: xs[0], R: xs[1]}, resWide)
	return nil
}

func (s *Simulator) need(n int) error {
	if len(s.stack) < n {
		return ErrStackUnderflow
	}
	return nil
}

func (s *Simulator) insert(at int, x Expr) {
	s.stack = append(s.stack, nil)
	copy(s.stack[at+1:], s.stack[at:])
	s.stack[at] = x
}

// shuffleDepth is the number of entries each shuffle opcode reads.
var shuffleDepth = map[bytecode.Op]int{
	bytecode.OpPop: 1, bytecode.OpPop2: 2,
	bytecode.OpDup: 1, bytecode.OpDupX1: 2, bytecode.OpDupX2: 3,
	bytecode.OpDup2: 2, bytecode.OpDup2X1: 3, bytecode.OpDup2X2: 4,
	bytecode.OpSwap: 2,
}

// shuffle implements pop..swap on raw stack entries.
func (s *Simulator) shuffle(op bytecode.Op) error {
	if err := s.need(shuffleDepth[op]); err != nil {
		return err
	}
	n := len(s.stack)
	top := s.stack[n-1]
	switch op {
	case bytecode.OpPop:
		s.stack = s.stack[:n-1]
	case bytecode.OpPop2:
		s.stack = s.stack[:n-2]
	case bytecode.OpDup:
		s.stack = append(s.stack, top)
	case bytecode.OpDupX1:
		s.insert(n-2, top)
	case bytecode.OpDupX2:
		s.insert(n-3, top)
	case bytecode.OpDup2:
		s.stack = append(s.stack, s.stack[n-2], top)
	case bytecode.OpDup2X1:
		second := s.stack[n-2]
		s.insert(n-3, top)
		s.insert(n-3, second)
	case bytecode.OpDup2X2:
		second := s.stack[n-2]
		s.insert(n-4, top)
		s.insert(n-4, second)
	case bytecode.OpSwap:
		s.stack[n-1], s.stack[n-2] = s.stack[n-2], top
	}
	return nil
}

func constantErr(err error) error {
	return fmt.Errorf("%w: %w", ErrConstant, err)
}

// ldc pushes a loadable constant. Member references, name-and-type,
// dynamic and empty entries cannot be loaded.
func (s *Simulator) ldc(idx uint16) error {
	c, err := s.pool.Entry(idx)
	if err != nil {
		return constantErr(err)
	}
	var text string
	switch c.(type) {
	case classfile.Utf8, classfile.String, classfile.Integer,
		classfile.Float, classfile.Long, classfile.Double, classfile.Class:
		if text, err = s.pool.Render(idx); err != nil {
			return constantErr(err)
		}
	}
	switch c.(type) {
	case classfile.Utf8, classfile.String, classfile.Integer:
		s.push(Literal(text), false)
	case classfile.Float:
		s.push(Literal(text+"f"), false)
	case classfile.Long:
		s.push(Literal(text+"L"), true)
	case classfile.Double:
		s.push(Literal(text), true)
	case classfile.Class:
		s.push(Literal("Class<"+text+">"), false)
	case classfile.MethodHandle:
		s.push(Literal("java.lang.invoke.MethodHandle"), false)
	case classfile.MethodType:
		s.push(Literal("java.lang.invoke.MethodType"), false)
	default:
		return fmt.Errorf("%w: #%d is %s, not loadable", ErrConstant, idx, c.Tag())
	}
	return nil
}

// className renders the Class constant named by a new, anewarray,
// multianewarray, checkcast or instanceof operand.
func (s *Simulator) className(inst bytecode.Inst) (string, error) {
	idx, _ := inst.PoolIndex()
	c, err := s.pool.Entry(idx)
	if err != nil {
		return "", constantErr(err)
	}
	if _, ok := c.(classfile.Class); !ok {
		return "", fmt.Errorf("%w: #%d is %s, want %s", ErrConstant, idx, c.Tag(), classfile.TagClass)
	}
	name, err := s.pool.Render(idx)
	if err != nil {
		return "", constantErr(err)
	}
	return name, nil
}

// splitArray strips trailing "[]" pairs from a rendered type.
func splitArray(t string) (elem string, dims int) {
	for len(t) > 2 && t[len(t)-2:] == "[]" {
		t = t[:len(t)-2]
		dims++
	}
	return t, dims
}

func (s *Simulator) decode(desc string) (descriptor.Type, error) {
	t, err := s.opts.Types.Decode(desc)
	if err != nil {
		return nil, constantErr(err)
	}
	return t, nil
}

func (s *Simulator) field(inst bytecode.Inst, op bytecode.Op) error {
	idx, _ := inst.PoolIndex()
	m, err := s.pool.Member(idx)
	if err != nil {
		return constantErr(err)
	}
	t, err := s.decode(m.Descriptor)
	if err != nil {
		return err
	}
	wide := descriptor.Slots(t) == 2

	switch op {
	case bytecode.OpGetstatic:
		s.push(Field{Owner: m.Owner, Name: m.Name}, wide)
	case bytecode.OpGetfield:
		obj, err := s.pop(false)
		if err != nil {
			return err
		}
		s.push(Field{Recv: obj, Owner: m.Owner, Name: m.Name}, wide)
	case bytecode.OpPutstatic:
		v, err := s.pop(wide)
		if err != nil {
			return err
		}
		s.emitf(inst, "%s = %s", Field{Owner: m.Owner, Name: m.Name}, v)
	case bytecode.OpPutfield:
		xs, err := s.popOperands(false, wide)
		if err != nil {
			return err
		}
		s.emitf(inst, "%s = %s", Field{Recv: xs[0], Owner: m.Owner, Name: m.Name}, xs[1])
	}
	return nil
}

func (s *Simulator) invoke(inst bytecode.Inst, op bytecode.Op) error {
	idx, _ := inst.PoolIndex()
	var owner, name, desc string
	if op == bytecode.OpInvokedynamic {
		c, err := s.pool.Entry(idx)
		if err != nil {
			return constantErr(err)
		}
		indy, ok := c.(classfile.InvokeDynamic)
		if !ok {
			return fmt.Errorf("%w: #%d is %s, want %s", ErrConstant, idx, c.Tag(), classfile.TagInvokeDynamic)
		}
		if name, desc, err = s.pool.NameAndType(indy.NameAndTypeIndex); err != nil {
			return constantErr(err)
		}
	} else {
		m, err := s.pool.Member(idx)
		if err != nil {
			return constantErr(err)
		}
		owner, name, desc = m.Owner, m.Name, m.Descriptor
	}

	t, err := s.decode(desc)
	if err != nil {
		return err
	}
	fn, ok := t.(descriptor.Function)
	if !ok {
		return fmt.Errorf("%w: %q is not a method descriptor", ErrConstant, desc)
	}

	widths := make([]bool, len(fn.Args))
	for i, a := range fn.Args {
		widths[i] = descriptor.Slots(a) == 2
	}
	args, err := s.popOperands(widths...)
	if err != nil {
		return err
	}

	call := Call{Owner: owner, Name: name, Args: args}
	if op != bytecode.OpInvokestatic && op != bytecode.OpInvokedynamic {
		recv, err := s.pop(false)
		if err != nil {
			return err
		}
		if op == bytecode.OpInvokespecial && name == "<init>" {
			s.construct(inst, recv, owner, args)
			return nil
		}
		call.Recv = recv
		call.Owner = ""
	}

	if descriptor.IsVoid(fn.Return) {
		s.emitf(inst, "%s", call)
		return nil
	}
	s.push(call, descriptor.Slots(fn.Return) == 2)
	return nil
}

// construct completes a pending "new" or renders a this/super constructor
// call on the receiver of an instance method. A completed allocation nobody
// kept a copy of is emitted as a statement. Any other receiver gets an
// explicit recv.<init>(args) call.
func (s *Simulator) construct(inst bytecode.Inst, recv Expr, owner string, args []Expr) {
	if n, ok := recv.(*Alloc); ok && !n.Init {
		n.Args = args
		n.Init = true
		for _, e := range s.stack {
			if e == Expr(n) {
				return
			}
		}
		s.emitf(inst, "%s", n)
		return
	}
	if l, ok := recv.(Local); !ok || l.Slot != 0 || s.opts.Static {
		s.emitf(inst, "%s", Call{Recv: recv, Name: "<init>", Args: args})
		return
	}
	kw := "super"
	if owner == s.opts.Class {
		kw = "this"
	}
	s.emitf(inst, "%s", Call{Name: kw, Args: args})
}
