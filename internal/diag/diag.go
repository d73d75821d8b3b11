// Package diag provides diagnostics and run options shared by the analysis packages.
package diag

import "fmt"

// Kind classifies a diagnostic message.
type Kind string

const (
	KindUnimplemented Kind = "unimplemented"
	KindUnreachable   Kind = "unreachable"
	KindOverflow      Kind = "overflow"
	KindInvalid       Kind = "invalid"
	KindFailed        Kind = "failed"
	KindClamped       Kind = "clamped"
)

// Diag records a non-fatal issue. Offset is a bytecode offset within the
// method named by Method, or 0 for class-level issues.
type Diag struct {
	Method string `json:"method,omitempty"`
	Offset uint32 `json:"offset"`
	Kind   Kind   `json:"kind"`
	Msg    string `json:"msg"`
}

func (d Diag) String() string {
	if d.Method != "" {
		return fmt.Sprintf("[%s] %s@%04X: %s", d.Kind, d.Method, d.Offset, d.Msg)
	}
	return fmt.Sprintf("[%s] %04X: %s", d.Kind, d.Offset, d.Msg)
}

// Diags accumulates diagnostics. The zero value is ready to use.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(offset uint32, kind Kind, msg string) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(offset uint32, kind Kind, format string, args ...any) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

// Merge appends other's items tagged with method.
func (d *Diags) Merge(method string, other *Diags) {
	if other == nil {
		return
	}
	for _, it := range other.items {
		it.Method = method
		d.items = append(d.items, it)
	}
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Mode controls error handling behavior.
type Mode int

const (
	ModeBestEffort Mode = iota // record per-method failures and continue
	ModeStrict                 // first failing method aborts the class
)

func (m Mode) String() string {
	if m == ModeStrict {
		return "strict"
	}
	return "best-effort"
}

// ParseMode maps a config or flag value to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "best-effort", "besteffort":
		return ModeBestEffort, nil
	case "strict":
		return ModeStrict, nil
	}
	return ModeBestEffort, fmt.Errorf("unknown mode %q", s)
}

// Options controls analysis behavior across packages.
type Options struct {
	Mode     Mode
	MaxSteps int // global loop cap; 0 = use default
}

// DefaultMaxSteps is the global default loop cap.
const DefaultMaxSteps = 10_000_000

func (o Options) EffectiveMaxSteps() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return DefaultMaxSteps
}
