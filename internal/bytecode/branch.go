package bytecode

// Kind classifies how control leaves an instruction.
type Kind int

const (
	KindNext   Kind = iota // falls through to the next instruction
	KindCond               // conditional: target or fallthrough
	KindJump               // unconditional jump, no fallthrough
	KindTerm               // return or athrow
	KindRet                // ret: target depends on runtime state
	KindSwitch             // tableswitch or lookupswitch
)

func (k Kind) String() string {
	switch k {
	case KindNext:
		return "next"
	case KindCond:
		return "cond"
	case KindJump:
		return "jump"
	case KindTerm:
		return "term"
	case KindRet:
		return "ret"
	case KindSwitch:
		return "switch"
	}
	return "unknown"
}

// BranchInfo describes where control goes after an instruction.
type BranchInfo struct {
	Kind   Kind
	Target uint32 // absolute target for KindCond and KindJump
}

// DecodeBranch classifies inst and resolves its relative target.
func DecodeBranch(inst Inst) BranchInfo {
	switch inst.Op {
	case OpIfeq, OpIfne, OpIflt, OpIfge, OpIfgt, OpIfle,
		OpIfIcmpeq, OpIfIcmpne, OpIfIcmplt, OpIfIcmpge, OpIfIcmpgt, OpIfIcmple,
		OpIfAcmpeq, OpIfAcmpne, OpIfnull, OpIfnonnull:
		return BranchInfo{Kind: KindCond, Target: relative(inst.Offset, int32(inst.S16(0)))}
	case OpGoto, OpJsr:
		return BranchInfo{Kind: KindJump, Target: relative(inst.Offset, int32(inst.S16(0)))}
	case OpGotoW, OpJsrW:
		return BranchInfo{Kind: KindJump, Target: relative(inst.Offset, inst.S32(0))}
	case OpIreturn, OpLreturn, OpFreturn, OpDreturn, OpAreturn, OpReturn, OpAthrow:
		return BranchInfo{Kind: KindTerm}
	case OpRet:
		return BranchInfo{Kind: KindRet}
	case OpWide:
		if inst.Wrapped() == OpRet {
			return BranchInfo{Kind: KindRet}
		}
	case OpTableswitch, OpLookupswitch:
		return BranchInfo{Kind: KindSwitch}
	}
	return BranchInfo{Kind: KindNext}
}

func relative(offset uint32, delta int32) uint32 {
	return uint32(int64(offset) + int64(delta))
}

// IsTerminator reports whether inst ends a basic block.
func IsTerminator(inst Inst) bool {
	return DecodeBranch(inst).Kind != KindNext
}
