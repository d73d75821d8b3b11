package bytecode

import (
	"fmt"
	"strings"
)

// Annotator returns an optional inline comment for an instruction.
// Empty string means no annotation.
type Annotator func(inst Inst) string

// Resolver renders constant pool entries for annotations.
type Resolver interface {
	Render(idx uint16) (string, error)
}

// Format renders instructions as stable text output.
// Each line: <offset>  <mnemonic>  <hex operands>  ; <comments>
// Every non-empty annotation is appended, in annotator order.
func Format(insts []Inst, annotators ...Annotator) string {
	var b strings.Builder
	for _, inst := range insts {
		b.WriteString(FormatInst(inst, annotators...))
		b.WriteByte('\n')
	}
	return b.String()
}

// FormatInst renders one listing line without a trailing newline.
func FormatInst(inst Inst, annotators ...Annotator) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%04X  %-15s", inst.Offset, inst.Op)
	if len(inst.Args) > 0 {
		b.WriteByte(' ')
		b.WriteString(hexArgs(inst.Args))
	}
	var notes []string
	for _, ann := range annotators {
		if s := ann(inst); s != "" {
			notes = append(notes, s)
		}
	}
	if len(notes) > 0 {
		b.WriteString("  ; ")
		b.WriteString(strings.Join(notes, "; "))
	}
	return strings.TrimRight(b.String(), " ")
}

func hexArgs(args []byte) string {
	const limit = 16
	var parts []string
	for i, a := range args {
		if i == limit {
			parts = append(parts, fmt.Sprintf("... (%d bytes)", len(args)))
			break
		}
		parts = append(parts, fmt.Sprintf("%02x", a))
	}
	return strings.Join(parts, " ")
}

// JumpAnnotator shows absolute targets for branches and switches.
func JumpAnnotator() Annotator {
	return func(inst Inst) string {
		bi := DecodeBranch(inst)
		switch bi.Kind {
		case KindCond, KindJump:
			return fmt.Sprintf("-> %04X", bi.Target)
		case KindSwitch:
			def, cases, _ := inst.Switch()
			parts := make([]string, 0, len(cases)+1)
			for _, c := range cases {
				parts = append(parts, fmt.Sprintf("%d -> %04X", c.Key, c.Target))
			}
			parts = append(parts, fmt.Sprintf("default -> %04X", def))
			return strings.Join(parts, ", ")
		}
		return ""
	}
}

// PoolAnnotator shows the constant referenced by ldc, field, class and
// invoke instructions.
func PoolAnnotator(r Resolver) Annotator {
	return func(inst Inst) string {
		idx, ok := inst.PoolIndex()
		if !ok {
			return ""
		}
		s, err := r.Render(idx)
		if err != nil {
			return fmt.Sprintf("#%d <%v>", idx, err)
		}
		return fmt.Sprintf("#%d %s", idx, s)
	}
}

// LocalAnnotator names the local slot of loads, stores and iinc.
func LocalAnnotator() Annotator {
	return func(inst Inst) string {
		if inst.Op >= OpIload0 && inst.Op <= OpAload3 || inst.Op >= OpIstore0 && inst.Op <= OpAstore3 {
			return "" // slot is in the mnemonic
		}
		slot, ok := inst.Local()
		if !ok {
			return ""
		}
		if c, ok := inst.Increment(); ok {
			return fmt.Sprintf("var%d += %d", slot, c)
		}
		return fmt.Sprintf("var%d", slot)
	}
}
