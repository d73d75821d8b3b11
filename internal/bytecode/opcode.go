package bytecode

import "fmt"

// Op is a one-byte JVM opcode.
type Op uint8

const (
	OpNop             Op = 0x00
	OpAconstNull      Op = 0x01
	OpIconstM1        Op = 0x02
	OpIconst0         Op = 0x03
	OpIconst1         Op = 0x04
	OpIconst2         Op = 0x05
	OpIconst3         Op = 0x06
	OpIconst4         Op = 0x07
	OpIconst5         Op = 0x08
	OpLconst0         Op = 0x09
	OpLconst1         Op = 0x0a
	OpFconst0         Op = 0x0b
	OpFconst1         Op = 0x0c
	OpFconst2         Op = 0x0d
	OpDconst0         Op = 0x0e
	OpDconst1         Op = 0x0f
	OpBipush          Op = 0x10
	OpSipush          Op = 0x11
	OpLdc             Op = 0x12
	OpLdcW            Op = 0x13
	OpLdc2W           Op = 0x14
	OpIload           Op = 0x15
	OpLload           Op = 0x16
	OpFload           Op = 0x17
	OpDload           Op = 0x18
	OpAload           Op = 0x19
	OpIload0          Op = 0x1a
	OpIload1          Op = 0x1b
	OpIload2          Op = 0x1c
	OpIload3          Op = 0x1d
	OpLload0          Op = 0x1e
	OpLload1          Op = 0x1f
	OpLload2          Op = 0x20
	OpLload3          Op = 0x21
	OpFload0          Op = 0x22
	OpFload1          Op = 0x23
	OpFload2          Op = 0x24
	OpFload3          Op = 0x25
	OpDload0          Op = 0x26
	OpDload1          Op = 0x27
	OpDload2          Op = 0x28
	OpDload3          Op = 0x29
	OpAload0          Op = 0x2a
	OpAload1          Op = 0x2b
	OpAload2          Op = 0x2c
	OpAload3          Op = 0x2d
	OpIaload          Op = 0x2e
	OpLaload          Op = 0x2f
	OpFaload          Op = 0x30
	OpDaload          Op = 0x31
	OpAaload          Op = 0x32
	OpBaload          Op = 0x33
	OpCaload          Op = 0x34
	OpSaload          Op = 0x35
	OpIstore          Op = 0x36
	OpLstore          Op = 0x37
	OpFstore          Op = 0x38
	OpDstore          Op = 0x39
	OpAstore          Op = 0x3a
	OpIstore0         Op = 0x3b
	OpIstore1         Op = 0x3c
	OpIstore2         Op = 0x3d
	OpIstore3         Op = 0x3e
	OpLstore0         Op = 0x3f
	OpLstore1         Op = 0x40
	OpLstore2         Op = 0x41
	OpLstore3         Op = 0x42
	OpFstore0         Op = 0x43
	OpFstore1         Op = 0x44
	OpFstore2         Op = 0x45
	OpFstore3         Op = 0x46
	OpDstore0         Op = 0x47
	OpDstore1         Op = 0x48
	OpDstore2         Op = 0x49
	OpDstore3         Op = 0x4a
	OpAstore0         Op = 0x4b
	OpAstore1         Op = 0x4c
	OpAstore2         Op = 0x4d
	OpAstore3         Op = 0x4e
	OpIastore         Op = 0x4f
	OpLastore         Op = 0x50
	OpFastore         Op = 0x51
	OpDastore         Op = 0x52
	OpAastore         Op = 0x53
	OpBastore         Op = 0x54
	OpCastore         Op = 0x55
	OpSastore         Op = 0x56
	OpPop             Op = 0x57
	OpPop2            Op = 0x58
	OpDup             Op = 0x59
	OpDupX1           Op = 0x5a
	OpDupX2           Op = 0x5b
	OpDup2            Op = 0x5c
	OpDup2X1          Op = 0x5d
	OpDup2X2          Op = 0x5e
	OpSwap            Op = 0x5f
	OpIadd            Op = 0x60
	OpLadd            Op = 0x61
	OpFadd            Op = 0x62
	OpDadd            Op = 0x63
	OpIsub            Op = 0x64
	OpLsub            Op = 0x65
	OpFsub            Op = 0x66
	OpDsub            Op = 0x67
	OpImul            Op = 0x68
	OpLmul            Op = 0x69
	OpFmul            Op = 0x6a
	OpDmul            Op = 0x6b
	OpIdiv            Op = 0x6c
	OpLdiv            Op = 0x6d
	OpFdiv            Op = 0x6e
	OpDdiv            Op = 0x6f
	OpIrem            Op = 0x70
	OpLrem            Op = 0x71
	OpFrem            Op = 0x72
	OpDrem            Op = 0x73
	OpIneg            Op = 0x74
	OpLneg            Op = 0x75
	OpFneg            Op = 0x76
	OpDneg            Op = 0x77
	OpIshl            Op = 0x78
	OpLshl            Op = 0x79
	OpIshr            Op = 0x7a
	OpLshr            Op = 0x7b
	OpIushr           Op = 0x7c
	OpLushr           Op = 0x7d
	OpIand            Op = 0x7e
	OpLand            Op = 0x7f
	OpIor             Op = 0x80
	OpLor             Op = 0x81
	OpIxor            Op = 0x82
	OpLxor            Op = 0x83
	OpIinc            Op = 0x84
	OpI2l             Op = 0x85
	OpI2f             Op = 0x86
	OpI2d             Op = 0x87
	OpL2i             Op = 0x88
	OpL2f             Op = 0x89
	OpL2d             Op = 0x8a
	OpF2i             Op = 0x8b
	OpF2l             Op = 0x8c
	OpF2d             Op = 0x8d
	OpD2i             Op = 0x8e
	OpD2l             Op = 0x8f
	OpD2f             Op = 0x90
	OpI2b             Op = 0x91
	OpI2c             Op = 0x92
	OpI2s             Op = 0x93
	OpLcmp            Op = 0x94
	OpFcmpl           Op = 0x95
	OpFcmpg           Op = 0x96
	OpDcmpl           Op = 0x97
	OpDcmpg           Op = 0x98
	OpIfeq            Op = 0x99
	OpIfne            Op = 0x9a
	OpIflt            Op = 0x9b
	OpIfge            Op = 0x9c
	OpIfgt            Op = 0x9d
	OpIfle            Op = 0x9e
	OpIfIcmpeq        Op = 0x9f
	OpIfIcmpne        Op = 0xa0
	OpIfIcmplt        Op = 0xa1
	OpIfIcmpge        Op = 0xa2
	OpIfIcmpgt        Op = 0xa3
	OpIfIcmple        Op = 0xa4
	OpIfAcmpeq        Op = 0xa5
	OpIfAcmpne        Op = 0xa6
	OpGoto            Op = 0xa7
	OpJsr             Op = 0xa8
	OpRet             Op = 0xa9
	OpTableswitch     Op = 0xaa
	OpLookupswitch    Op = 0xab
	OpIreturn         Op = 0xac
	OpLreturn         Op = 0xad
	OpFreturn         Op = 0xae
	OpDreturn         Op = 0xaf
	OpAreturn         Op = 0xb0
	OpReturn          Op = 0xb1
	OpGetstatic       Op = 0xb2
	OpPutstatic       Op = 0xb3
	OpGetfield        Op = 0xb4
	OpPutfield        Op = 0xb5
	OpInvokevirtual   Op = 0xb6
	OpInvokespecial   Op = 0xb7
	OpInvokestatic    Op = 0xb8
	OpInvokeinterface Op = 0xb9
	OpInvokedynamic   Op = 0xba
	OpNew             Op = 0xbb
	OpNewarray        Op = 0xbc
	OpAnewarray       Op = 0xbd
	OpArraylength     Op = 0xbe
	OpAthrow          Op = 0xbf
	OpCheckcast       Op = 0xc0
	OpInstanceof      Op = 0xc1
	OpMonitorenter    Op = 0xc2
	OpMonitorexit     Op = 0xc3
	OpWide            Op = 0xc4
	OpMultianewarray  Op = 0xc5
	OpIfnull          Op = 0xc6
	OpIfnonnull       Op = 0xc7
	OpGotoW           Op = 0xc8
	OpJsrW            Op = 0xc9
	OpBreakpoint      Op = 0xca
	OpImpdep1         Op = 0xfe
	OpImpdep2         Op = 0xff
)

// Variable marks opcodes whose operand length depends on context.
const Variable = -1

// OpInfo is the static metadata for one opcode.
type OpInfo struct {
	Name     string
	Operands int8 // fixed operand byte count, or Variable
}

// table covers all 256 byte values. Unassigned values decode as reserved
// opcodes with no operands.
var table = func() [256]OpInfo {
	var t [256]OpInfo
	for i := range t {
		t[i] = OpInfo{Name: fmt.Sprintf("reserved_%02x", i)}
	}
	for op, info := range known {
		t[op] = info
	}
	return t
}()

var known = map[Op]OpInfo{
	OpNop:             {"nop", 0},
	OpAconstNull:      {"aconst_null", 0},
	OpIconstM1:        {"iconst_m1", 0},
	OpIconst0:         {"iconst_0", 0},
	OpIconst1:         {"iconst_1", 0},
	OpIconst2:         {"iconst_2", 0},
	OpIconst3:         {"iconst_3", 0},
	OpIconst4:         {"iconst_4", 0},
	OpIconst5:         {"iconst_5", 0},
	OpLconst0:         {"lconst_0", 0},
	OpLconst1:         {"lconst_1", 0},
	OpFconst0:         {"fconst_0", 0},
	OpFconst1:         {"fconst_1", 0},
	OpFconst2:         {"fconst_2", 0},
	OpDconst0:         {"dconst_0", 0},
	OpDconst1:         {"dconst_1", 0},
	OpBipush:          {"bipush", 1},
	OpSipush:          {"sipush", 2},
	OpLdc:             {"ldc", 1},
	OpLdcW:            {"ldc_w", 2},
	OpLdc2W:           {"ldc2_w", 2},
	OpIload:           {"iload", 1},
	OpLload:           {"lload", 1},
	OpFload:           {"fload", 1},
	OpDload:           {"dload", 1},
	OpAload:           {"aload", 1},
	OpIload0:          {"iload_0", 0},
	OpIload1:          {"iload_1", 0},
	OpIload2:          {"iload_2", 0},
	OpIload3:          {"iload_3", 0},
	OpLload0:          {"lload_0", 0},
	OpLload1:          {"lload_1", 0},
	OpLload2:          {"lload_2", 0},
	OpLload3:          {"lload_3", 0},
	OpFload0:          {"fload_0", 0},
	OpFload1:          {"fload_1", 0},
	OpFload2:          {"fload_2", 0},
	OpFload3:          {"fload_3", 0},
	OpDload0:          {"dload_0", 0},
	OpDload1:          {"dload_1", 0},
	OpDload2:          {"dload_2", 0},
	OpDload3:          {"dload_3", 0},
	OpAload0:          {"aload_0", 0},
	OpAload1:          {"aload_1", 0},
	OpAload2:          {"aload_2", 0},
	OpAload3:          {"aload_3", 0},
	OpIaload:          {"iaload", 0},
	OpLaload:          {"laload", 0},
	OpFaload:          {"faload", 0},
	OpDaload:          {"daload", 0},
	OpAaload:          {"aaload", 0},
	OpBaload:          {"baload", 0},
	OpCaload:          {"caload", 0},
	OpSaload:          {"saload", 0},
	OpIstore:          {"istore", 1},
	OpLstore:          {"lstore", 1},
	OpFstore:          {"fstore", 1},
	OpDstore:          {"dstore", 1},
	OpAstore:          {"astore", 1},
	OpIstore0:         {"istore_0", 0},
	OpIstore1:         {"istore_1", 0},
	OpIstore2:         {"istore_2", 0},
	OpIstore3:         {"istore_3", 0},
	OpLstore0:         {"lstore_0", 0},
	OpLstore1:         {"lstore_1", 0},
	OpLstore2:         {"lstore_2", 0},
	OpLstore3:         {"lstore_3", 0},
	OpFstore0:         {"fstore_0", 0},
	OpFstore1:         {"fstore_1", 0},
	OpFstore2:         {"fstore_2", 0},
	OpFstore3:         {"fstore_3", 0},
	OpDstore0:         {"dstore_0", 0},
	OpDstore1:         {"dstore_1", 0},
	OpDstore2:         {"dstore_2", 0},
	OpDstore3:         {"dstore_3", 0},
	OpAstore0:         {"astore_0", 0},
	OpAstore1:         {"astore_1", 0},
	OpAstore2:         {"astore_2", 0},
	OpAstore3:         {"astore_3", 0},
	OpIastore:         {"iastore", 0},
	OpLastore:         {"lastore", 0},
	OpFastore:         {"fastore", 0},
	OpDastore:         {"dastore", 0},
	OpAastore:         {"aastore", 0},
	OpBastore:         {"bastore", 0},
	OpCastore:         {"castore", 0},
	OpSastore:         {"sastore", 0},
	OpPop:             {"pop", 0},
	OpPop2:            {"pop2", 0},
	OpDup:             {"dup", 0},
	OpDupX1:           {"dup_x1", 0},
	OpDupX2:           {"dup_x2", 0},
	OpDup2:            {"dup2", 0},
	OpDup2X1:          {"dup2_x1", 0},
	OpDup2X2:          {"dup2_x2", 0},
	OpSwap:            {"swap", 0},
	OpIadd:            {"iadd", 0},
	OpLadd:            {"ladd", 0},
	OpFadd:            {"fadd", 0},
	OpDadd:            {"dadd", 0},
	OpIsub:            {"isub", 0},
	OpLsub:            {"lsub", 0},
	OpFsub:            {"fsub", 0},
	OpDsub:            {"dsub", 0},
	OpImul:            {"imul", 0},
	OpLmul:            {"lmul", 0},
	OpFmul:            {"fmul", 0},
	OpDmul:            {"dmul", 0},
	OpIdiv:            {"idiv", 0},
	OpLdiv:            {"ldiv", 0},
	OpFdiv:            {"fdiv", 0},
	OpDdiv:            {"ddiv", 0},
	OpIrem:            {"irem", 0},
	OpLrem:            {"lrem", 0},
	OpFrem:            {"frem", 0},
	OpDrem:            {"drem", 0},
	OpIneg:            {"ineg", 0},
	OpLneg:            {"lneg", 0},
	OpFneg:            {"fneg", 0},
	OpDneg:            {"dneg", 0},
	OpIshl:            {"ishl", 0},
	OpLshl:            {"lshl", 0},
	OpIshr:            {"ishr", 0},
	OpLshr:            {"lshr", 0},
	OpIushr:           {"iushr", 0},
	OpLushr:           {"lushr", 0},
	OpIand:            {"iand", 0},
	OpLand:            {"land", 0},
	OpIor:             {"ior", 0},
	OpLor:             {"lor", 0},
	OpIxor:            {"ixor", 0},
	OpLxor:            {"lxor", 0},
	OpIinc:            {"iinc", 2},
	OpI2l:             {"i2l", 0},
	OpI2f:             {"i2f", 0},
	OpI2d:             {"i2d", 0},
	OpL2i:             {"l2i", 0},
	OpL2f:             {"l2f", 0},
	OpL2d:             {"l2d", 0},
	OpF2i:             {"f2i", 0},
	OpF2l:             {"f2l", 0},
	OpF2d:             {"f2d", 0},
	OpD2i:             {"d2i", 0},
	OpD2l:             {"d2l", 0},
	OpD2f:             {"d2f", 0},
	OpI2b:             {"i2b", 0},
	OpI2c:             {"i2c", 0},
	OpI2s:             {"i2s", 0},
	OpLcmp:            {"lcmp", 0},
	OpFcmpl:           {"fcmpl", 0},
	OpFcmpg:           {"fcmpg", 0},
	OpDcmpl:           {"dcmpl", 0},
	OpDcmpg:           {"dcmpg", 0},
	OpIfeq:            {"ifeq", 2},
	OpIfne:            {"ifne", 2},
	OpIflt:            {"iflt", 2},
	OpIfge:            {"ifge", 2},
	OpIfgt:            {"ifgt", 2},
	OpIfle:            {"ifle", 2},
	OpIfIcmpeq:        {"if_icmpeq", 2},
	OpIfIcmpne:        {"if_icmpne", 2},
	OpIfIcmplt:        {"if_icmplt", 2},
	OpIfIcmpge:        {"if_icmpge", 2},
	OpIfIcmpgt:        {"if_icmpgt", 2},
	OpIfIcmple:        {"if_icmple", 2},
	OpIfAcmpeq:        {"if_acmpeq", 2},
	OpIfAcmpne:        {"if_acmpne", 2},
	OpGoto:            {"goto", 2},
	OpJsr:             {"jsr", 2},
	OpRet:             {"ret", 1},
	OpTableswitch:     {"tableswitch", Variable},
	OpLookupswitch:    {"lookupswitch", Variable},
	OpIreturn:         {"ireturn", 0},
	OpLreturn:         {"lreturn", 0},
	OpFreturn:         {"freturn", 0},
	OpDreturn:         {"dreturn", 0},
	OpAreturn:         {"areturn", 0},
	OpReturn:          {"return", 0},
	OpGetstatic:       {"getstatic", 2},
	OpPutstatic:       {"putstatic", 2},
	OpGetfield:        {"getfield", 2},
	OpPutfield:        {"putfield", 2},
	OpInvokevirtual:   {"invokevirtual", 2},
	OpInvokespecial:   {"invokespecial", 2},
	OpInvokestatic:    {"invokestatic", 2},
	OpInvokeinterface: {"invokeinterface", 4},
	OpInvokedynamic:   {"invokedynamic", 4},
	OpNew:             {"new", 2},
	OpNewarray:        {"newarray", 1},
	OpAnewarray:       {"anewarray", 2},
	OpArraylength:     {"arraylength", 0},
	OpAthrow:          {"athrow", 0},
	OpCheckcast:       {"checkcast", 2},
	OpInstanceof:      {"instanceof", 2},
	OpMonitorenter:    {"monitorenter", 0},
	OpMonitorexit:     {"monitorexit", 0},
	OpWide:            {"wide", Variable},
	OpMultianewarray:  {"multianewarray", 3},
	OpIfnull:          {"ifnull", 2},
	OpIfnonnull:       {"ifnonnull", 2},
	OpGotoW:           {"goto_w", 4},
	OpJsrW:            {"jsr_w", 4},
	OpBreakpoint:      {"breakpoint", 0},
	OpImpdep1:         {"impdep1", 0},
	OpImpdep2:         {"impdep2", 0},
}

// Info returns the metadata for op.
func (op Op) Info() OpInfo { return table[op] }

func (op Op) String() string { return table[op].Name }

// Reserved reports whether op has no assigned instruction.
func (op Op) Reserved() bool {
	_, ok := known[op]
	return !ok
}

// Lookup finds an opcode by mnemonic.
func Lookup(name string) (Op, bool) {
	for op, info := range known {
		if info.Name == name {
			return op, true
		}
	}
	return 0, false
}
