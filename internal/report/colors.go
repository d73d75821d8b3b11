package report

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Colors highlights listing output. A nil *Colors leaves text unchanged.
type Colors struct {
	Keyword *color.Color
	Offset  *color.Color
	Opcode  *color.Color
	Comment *color.Color
	Diag    *color.Color
	Error   *color.Color
}

// ColorEnabled resolves a color mode. "auto" follows fatih/color's own
// terminal detection, which also honors NO_COLOR.
func ColorEnabled(mode string) (bool, error) {
	switch mode {
	case "", "auto":
		return !color.NoColor, nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	}
	return false, fmt.Errorf("unknown color mode %q", mode)
}

// NewColors returns the listing palette, or nil when disabled.
func NewColors(enabled bool) *Colors {
	if !enabled {
		return nil
	}
	c := &Colors{
		Keyword: color.New(color.FgMagenta),
		Offset:  color.New(color.FgHiBlack),
		Opcode:  color.New(color.FgCyan, color.Bold),
		Comment: color.New(color.FgGreen),
		Diag:    color.New(color.FgYellow),
		Error:   color.New(color.FgRed, color.Bold),
	}
	for _, cc := range []*color.Color{c.Keyword, c.Offset, c.Opcode, c.Comment, c.Diag, c.Error} {
		cc.EnableColor()
	}
	return c
}

// Listing colors one line produced by bytecode.FormatInst.
func (c *Colors) Listing(line string) string {
	if c == nil {
		return line
	}
	body, comment, hasComment := strings.Cut(line, "  ; ")
	if len(body) < 6 {
		return line
	}
	op, args, _ := strings.Cut(body[6:], " ")
	var b strings.Builder
	b.WriteString(c.Offset.Sprint(body[:4]))
	b.WriteString("  ")
	b.WriteString(c.Opcode.Sprint(op))
	if args != "" {
		b.WriteByte(' ')
		b.WriteString(args)
	}
	if hasComment {
		b.WriteString("  ")
		b.WriteString(c.Comment.Sprint("; " + comment))
	}
	return b.String()
}

func (c *Colors) keyword(s string) string {
	if c == nil || s == "" {
		return s
	}
	return c.Keyword.Sprint(s)
}

func (c *Colors) comment(s string) string {
	if c == nil {
		return s
	}
	return c.Comment.Sprint(s)
}

func (c *Colors) diag(s string) string {
	if c == nil {
		return s
	}
	return c.Diag.Sprint(s)
}

func (c *Colors) err(s string) string {
	if c == nil {
		return s
	}
	return c.Error.Sprint(s)
}
