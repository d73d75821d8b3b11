package bytecode

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFixedLengths(t *testing.T) {
	for v := 0; v < 256; v++ {
		op := Op(v)
		n := int(op.Info().Operands)
		if n == Variable {
			continue
		}
		code := make([]byte, 1+n+1)
		code[0] = byte(op)
		code[1+n] = byte(OpNop)
		insts, consumed, err := Decode(code, Options{})
		if err != nil {
			t.Errorf("%s: %v", op, err)
			continue
		}
		if consumed != len(code) {
			t.Errorf("%s: consumed %d, want %d", op, consumed, len(code))
		}
		if len(insts) != 2 {
			t.Fatalf("%s: insts = %d, want 2", op, len(insts))
		}
		if len(insts[0].Args) != n {
			t.Errorf("%s: args = %d, want %d", op, len(insts[0].Args), n)
		}
		if insts[1].Offset != uint32(1+n) {
			t.Errorf("%s: next offset = %d, want %d", op, insts[1].Offset, 1+n)
		}
	}
}

func TestReservedOpcodesHaveNoOperands(t *testing.T) {
	for _, op := range []Op{0xcb, 0xd0, 0xfd, OpBreakpoint, OpImpdep1, OpImpdep2} {
		if n := op.Info().Operands; n != 0 {
			t.Errorf("%s operands = %d, want 0", op, n)
		}
	}
	if !Op(0xcb).Reserved() {
		t.Error("0xcb should be reserved")
	}
	if OpNop.Reserved() {
		t.Error("nop should not be reserved")
	}
	if got := Op(0xe0).String(); got != "reserved_e0" {
		t.Errorf("name = %q", got)
	}
}

func tableswitchAt0() []byte {
	return []byte{
		byte(OpTableswitch),
		0, 0, 0, // padding to offset 4
		0, 0, 0, 10, // default
		0, 0, 0, 0, // low
		0, 0, 0, 2, // high
		0, 0, 0, 0x1c,
		0, 0, 0, 0x1d,
		0, 0, 0, 0x1e,
	}
}

func TestDecodeTableswitch(t *testing.T) {
	code := append(tableswitchAt0(), byte(OpReturn))
	insts, n, err := Decode(code, Options{})
	require.NoError(t, err)
	require.Equal(t, len(code), n)
	require.Len(t, insts, 2)

	sw := insts[0]
	assert.Equal(t, 3, sw.Pad())
	assert.Len(t, sw.Args, 4+4+4+3*4)
	assert.Equal(t, 28, sw.Size())
	assert.Equal(t, uint32(28), insts[1].Offset)

	def, cases, ok := sw.Switch()
	require.True(t, ok)
	assert.Equal(t, uint32(10), def)
	require.Len(t, cases, 3)
	assert.Equal(t, SwitchCase{Key: 2, Target: 0x1e}, cases[2])
}

func TestDecodeLookupswitchAligned(t *testing.T) {
	code := []byte{
		byte(OpNop),
		byte(OpLookupswitch),
		0, 0, // padding to offset 4
		0, 0, 0, 0x20, // default
		0, 0, 0, 2, // npairs
		0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0x18, // -1 -> +0x18
		0, 0, 0, 7, 0, 0, 0, 0x1a, // 7 -> +0x1a
		byte(OpReturn),
	}
	insts, n, err := Decode(code, Options{})
	require.NoError(t, err)
	require.Equal(t, len(code), n)
	require.Len(t, insts, 3)

	sw := insts[1]
	assert.Equal(t, 2, sw.Pad())
	def, cases, _ := sw.Switch()
	assert.Equal(t, uint32(0x21), def)
	assert.Equal(t, []SwitchCase{{Key: -1, Target: 0x19}, {Key: 7, Target: 0x1b}}, cases)
	assert.Equal(t, len(code), TotalSize(insts))
}

func TestDecodeWide(t *testing.T) {
	code := []byte{
		byte(OpWide), byte(OpIload), 0x01, 0x2c,
		byte(OpWide), byte(OpIinc), 0x00, 0x05, 0xff, 0xfe,
	}
	insts, _, err := Decode(code, Options{})
	require.NoError(t, err)
	require.Len(t, insts, 2)

	assert.Len(t, insts[0].Args, 3)
	slot, ok := insts[0].Local()
	assert.True(t, ok)
	assert.Equal(t, uint16(300), slot)

	assert.Len(t, insts[1].Args, 5)
	c, ok := insts[1].Increment()
	assert.True(t, ok)
	assert.Equal(t, int16(-2), c)
	assert.Equal(t, uint32(4), insts[1].Offset)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code []byte
		want error
		off  uint32
	}{
		{"sipush", []byte{byte(OpSipush), 0x01}, ErrTruncated, 0},
		{"late", []byte{byte(OpNop), byte(OpGotoW), 0, 0}, ErrTruncated, 1},
		{"wide", []byte{byte(OpWide), byte(OpIinc), 0, 1}, ErrTruncated, 0},
		{"tableswitch range", []byte{byte(OpTableswitch), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 5, 0, 0, 0, 1}, ErrBadSwitch, 0},
		{"tableswitch table", append(tableswitchAt0()[:20], 0, 0), ErrTruncated, 0},
	}
	for _, tt := range tests {
		_, _, err := Decode(tt.code, Options{})
		if !errors.Is(err, tt.want) {
			t.Errorf("%s: err = %v, want %v", tt.name, err, tt.want)
			continue
		}
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Errorf("%s: err %T is not *DecodeError", tt.name, err)
			continue
		}
		if de.Offset != tt.off {
			t.Errorf("%s: offset = %d, want %d", tt.name, de.Offset, tt.off)
		}
	}
}

func TestDecodeMaxSteps(t *testing.T) {
	code := []byte{byte(OpNop), byte(OpNop), byte(OpNop)}
	_, _, err := Decode(code, Options{MaxSteps: 2})
	if !errors.Is(err, ErrTooManyInsts) {
		t.Errorf("err = %v, want ErrTooManyInsts", err)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	code := []byte{
		byte(OpIconst1),
		byte(OpIstore1),
		byte(OpIload1),
		byte(OpIfeq), 0x00, 0x0a,
		byte(OpSipush), 0x01, 0x00,
		byte(OpInvokeinterface), 0x00, 0x02, 0x01, 0x00,
		byte(OpGoto), 0xff, 0xf2,
		byte(OpReturn),
	}
	insts, err := DecodeMethod(code, len(code), Options{})
	require.NoError(t, err)
	assert.Equal(t, len(code), TotalSize(insts))
	for i := 1; i < len(insts); i++ {
		if insts[i].Offset != insts[i-1].Next() {
			t.Errorf("inst %d offset = %d, want %d", i, insts[i].Offset, insts[i-1].Next())
		}
	}

	_, err = DecodeMethod(code, len(code)+1, Options{})
	assert.ErrorIs(t, err, ErrLength)
}

func TestDecodeMethodDeclaredLength(t *testing.T) {
	code := []byte{byte(OpSipush), 0x01, 0x00, byte(OpReturn)}

	insts, err := DecodeMethod(code, 3, Options{})
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, OpSipush, insts[0].Op)

	// code_length ends inside sipush's operand.
	_, err = DecodeMethod(code, 2, Options{})
	assert.ErrorIs(t, err, ErrLength)
	assert.ErrorContains(t, err, "consumed 3, declared 2")
}

func TestDecodeBranch(t *testing.T) {
	tests := []struct {
		inst Inst
		want BranchInfo
	}{
		{Inst{Op: OpIfeq, Args: []byte{0x00, 0x07}, Offset: 3}, BranchInfo{Kind: KindCond, Target: 10}},
		{Inst{Op: OpIfnonnull, Args: []byte{0xff, 0xfd}, Offset: 8}, BranchInfo{Kind: KindCond, Target: 5}},
		{Inst{Op: OpGoto, Args: []byte{0xff, 0xfc}, Offset: 4}, BranchInfo{Kind: KindJump, Target: 0}},
		{Inst{Op: OpGotoW, Args: []byte{0x00, 0x01, 0x00, 0x00}, Offset: 2}, BranchInfo{Kind: KindJump, Target: 0x10002}},
		{Inst{Op: OpJsr, Args: []byte{0x00, 0x04}, Offset: 0}, BranchInfo{Kind: KindJump, Target: 4}},
		{Inst{Op: OpAthrow}, BranchInfo{Kind: KindTerm}},
		{Inst{Op: OpReturn}, BranchInfo{Kind: KindTerm}},
		{Inst{Op: OpRet, Args: []byte{1}}, BranchInfo{Kind: KindRet}},
		{Inst{Op: OpWide, Args: []byte{byte(OpRet), 0, 1}}, BranchInfo{Kind: KindRet}},
		{Inst{Op: OpIadd}, BranchInfo{Kind: KindNext}},
	}
	for _, tt := range tests {
		got := DecodeBranch(tt.inst)
		if got != tt.want {
			t.Errorf("DecodeBranch(%s) = %+v, want %+v", tt.inst.Op, got, tt.want)
		}
	}
}

type stubPool map[uint16]string

func (p stubPool) Render(idx uint16) (string, error) {
	if s, ok := p[idx]; ok {
		return s, nil
	}
	return "", errors.New("bad index")
}

func TestFormat(t *testing.T) {
	insts := []Inst{
		{Op: OpLdc, Args: []byte{2}, Offset: 0},
		{Op: OpIfeq, Args: []byte{0x00, 0x07}, Offset: 3},
		{Op: OpReturn, Offset: 10},
	}
	got := Format(insts, JumpAnnotator(), PoolAnnotator(stubPool{2: `"hi"`}))
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "0000  ldc             02  ; #2 \"hi\"", lines[0])
	assert.Equal(t, "0003  ifeq            00 07  ; -> 000A", lines[1])
	assert.Equal(t, "000A  return", lines[2])
}

func TestPoolAnnotatorError(t *testing.T) {
	ann := PoolAnnotator(stubPool{})
	got := ann(Inst{Op: OpGetstatic, Args: []byte{0, 9}})
	assert.Equal(t, "#9 <bad index>", got)
	assert.Equal(t, "", ann(Inst{Op: OpIadd}))
}

func TestLookup(t *testing.T) {
	op, ok := Lookup("invokedynamic")
	require.True(t, ok)
	assert.Equal(t, OpInvokedynamic, op)
	_, ok = Lookup("nosuch")
	assert.False(t, ok)
}
