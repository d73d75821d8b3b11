// Package bytecode decodes JVM method code into instructions.
package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrTruncated       = errors.New("bytecode: truncated operand")
	ErrVariableOperand = errors.New("bytecode: opcode has no variable-length rule")
	ErrBadSwitch       = errors.New("bytecode: malformed switch")
	ErrTooManyInsts    = errors.New("bytecode: instruction limit reached")
	ErrLength          = errors.New("bytecode: consumed length differs from declared")
)

// Inst is a decoded instruction. Offset is the opcode's position within the
// method's code array. For switches Args omits the alignment padding.
type Inst struct {
	Op     Op     `json:"op"`
	Args   []byte `json:"args,omitempty"`
	Offset uint32 `json:"offset"`
}

// DecodeError locates a decoding failure.
type DecodeError struct {
	Offset uint32
	Op     Op
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %04X %s: %v", e.Offset, e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Options controls decoding behavior.
type Options struct {
	MaxSteps int // maximum instructions to decode; 0 = 10M
}

const defaultMaxSteps = 10_000_000

func (o Options) effectiveMax() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return defaultMaxSteps
}

// Decode walks code once and returns its instructions and the number of
// bytes consumed.
func Decode(code []byte, opts Options) ([]Inst, int, error) {
	return decodeUntil(code, len(code), opts)
}

// decodeUntil decodes instructions starting before limit. The last one may
// read operands past limit; the returned count then exceeds it.
func decodeUntil(code []byte, limit int, opts Options) ([]Inst, int, error) {
	maxSteps := opts.effectiveMax()
	var insts []Inst
	pos := 0
	for pos < limit {
		if len(insts) >= maxSteps {
			return insts, pos, &DecodeError{Offset: uint32(pos), Op: Op(code[pos]), Err: ErrTooManyInsts}
		}
		inst, next, err := decodeOne(code, pos)
		if err != nil {
			return insts, pos, err
		}
		insts = append(insts, inst)
		pos = next
	}
	return insts, pos, nil
}

// DecodeMethod decodes a Code attribute's instruction bytes and checks the
// consumed length against the declared code_length.
func DecodeMethod(code []byte, declared int, opts Options) ([]Inst, error) {
	if declared < 0 || declared > len(code) {
		return nil, fmt.Errorf("%w: declared %d, have %d bytes", ErrLength, declared, len(code))
	}
	insts, n, err := decodeUntil(code, declared, opts)
	if err != nil {
		return nil, err
	}
	if n != declared {
		return nil, fmt.Errorf("%w: consumed %d, declared %d", ErrLength, n, declared)
	}
	return insts, nil
}

func decodeOne(code []byte, pos int) (Inst, int, error) {
	op := Op(code[pos])
	inst := Inst{Op: op, Offset: uint32(pos)}
	fail := func(err error) (Inst, int, error) {
		return Inst{}, 0, &DecodeError{Offset: uint32(pos), Op: op, Err: err}
	}
	n := int(op.Info().Operands)
	if n != Variable {
		if pos+1+n > len(code) {
			return fail(fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, len(code)-pos-1))
		}
		inst.Args = code[pos+1 : pos+1+n]
		return inst, pos + 1 + n, nil
	}

	switch op {
	case OpTableswitch, OpLookupswitch:
		start := pos + 1 + padding(uint32(pos))
		if start+12 > len(code) {
			return fail(ErrTruncated)
		}
		var count int
		if op == OpTableswitch {
			low := int32(binary.BigEndian.Uint32(code[start+4:]))
			high := int32(binary.BigEndian.Uint32(code[start+8:]))
			if high < low {
				return fail(fmt.Errorf("%w: low %d > high %d", ErrBadSwitch, low, high))
			}
			count = 12 + 4*(int(high)-int(low)+1)
		} else {
			pairs := int32(binary.BigEndian.Uint32(code[start+4:]))
			if pairs < 0 {
				return fail(fmt.Errorf("%w: %d pairs", ErrBadSwitch, pairs))
			}
			count = 8 + 8*int(pairs)
		}
		if start+count > len(code) {
			return fail(fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, count, len(code)-start))
		}
		inst.Args = code[start : start+count]
		return inst, start + count, nil

	case OpWide:
		if pos+2 > len(code) {
			return fail(ErrTruncated)
		}
		n := 3
		if Op(code[pos+1]) == OpIinc {
			n = 5
		}
		if pos+1+n > len(code) {
			return fail(fmt.Errorf("%w: wide %s needs %d bytes", ErrTruncated, Op(code[pos+1]), n))
		}
		inst.Args = code[pos+1 : pos+1+n]
		return inst, pos + 1 + n, nil
	}
	return fail(ErrVariableOperand)
}

// padding returns the 0-3 bytes that align a switch's operands to a 4-byte
// boundary relative to the start of the method.
func padding(offset uint32) int {
	return int((4 - (offset+1)%4) % 4)
}

// Pad returns the alignment padding a switch at this offset carries.
func (i Inst) Pad() int {
	if i.Op == OpTableswitch || i.Op == OpLookupswitch {
		return padding(i.Offset)
	}
	return 0
}

// Size returns the encoded length including opcode and padding.
func (i Inst) Size() int {
	return 1 + i.Pad() + len(i.Args)
}

// Next returns the offset of the following instruction.
func (i Inst) Next() uint32 {
	return i.Offset + uint32(i.Size())
}

// TotalSize sums the encoded lengths of insts.
func TotalSize(insts []Inst) int {
	n := 0
	for _, in := range insts {
		n += in.Size()
	}
	return n
}
