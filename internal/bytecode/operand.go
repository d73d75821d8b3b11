package bytecode

import "encoding/binary"

// Operand readers. Out-of-range reads return 0; Decode always produces
// Args of the length the opcode requires.

func (i Inst) U8(at int) uint8 {
	if at >= len(i.Args) {
		return 0
	}
	return i.Args[at]
}

func (i Inst) S8(at int) int8 { return int8(i.U8(at)) }

func (i Inst) U16(at int) uint16 {
	if at+2 > len(i.Args) {
		return 0
	}
	return binary.BigEndian.Uint16(i.Args[at:])
}

func (i Inst) S16(at int) int16 { return int16(i.U16(at)) }

func (i Inst) S32(at int) int32 {
	if at+4 > len(i.Args) {
		return 0
	}
	return int32(binary.BigEndian.Uint32(i.Args[at:]))
}

// PoolIndex returns the constant pool index operand of ldc, field, class
// and invoke instructions.
func (i Inst) PoolIndex() (uint16, bool) {
	switch i.Op {
	case OpLdc:
		return uint16(i.U8(0)), true
	case OpLdcW, OpLdc2W,
		OpGetstatic, OpPutstatic, OpGetfield, OpPutfield,
		OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface, OpInvokedynamic,
		OpNew, OpAnewarray, OpCheckcast, OpInstanceof, OpMultianewarray:
		return i.U16(0), true
	}
	return 0, false
}

// Wrapped returns the opcode a wide instruction modifies.
func (i Inst) Wrapped() Op {
	if i.Op != OpWide {
		return i.Op
	}
	return Op(i.U8(0))
}

// Local returns the local variable slot of a load, store, iinc or ret,
// including the _0.._3 short forms and wide forms.
func (i Inst) Local() (uint16, bool) {
	switch {
	case i.Op == OpWide:
		return i.U16(1), true
	case i.Op >= OpIload && i.Op <= OpAload,
		i.Op >= OpIstore && i.Op <= OpAstore,
		i.Op == OpIinc, i.Op == OpRet:
		return uint16(i.U8(0)), true
	case i.Op >= OpIload0 && i.Op <= OpAload3:
		return uint16(i.Op-OpIload0) % 4, true
	case i.Op >= OpIstore0 && i.Op <= OpAstore3:
		return uint16(i.Op-OpIstore0) % 4, true
	}
	return 0, false
}

// Increment returns the constant of iinc or wide iinc.
func (i Inst) Increment() (int16, bool) {
	switch {
	case i.Op == OpIinc:
		return int16(i.S8(1)), true
	case i.Op == OpWide && i.Wrapped() == OpIinc:
		return i.S16(3), true
	}
	return 0, false
}

// SwitchCase is one match of a switch. Target is absolute.
type SwitchCase struct {
	Key    int32
	Target uint32
}

// Switch decodes the operands of a tableswitch or lookupswitch.
func (i Inst) Switch() (def uint32, cases []SwitchCase, ok bool) {
	rel := func(off int32) uint32 { return uint32(int64(i.Offset) + int64(off)) }
	switch i.Op {
	case OpTableswitch:
		low, high := i.S32(4), i.S32(8)
		def = rel(i.S32(0))
		for k := int64(low); k <= int64(high); k++ {
			at := 12 + 4*int(k-int64(low))
			cases = append(cases, SwitchCase{Key: int32(k), Target: rel(i.S32(at))})
		}
		return def, cases, true
	case OpLookupswitch:
		def = rel(i.S32(0))
		n := int(i.S32(4))
		for p := 0; p < n; p++ {
			at := 8 + 8*p
			cases = append(cases, SwitchCase{Key: i.S32(at), Target: rel(i.S32(at + 4))})
		}
		return def, cases, true
	}
	return 0, nil, false
}
