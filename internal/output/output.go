// Package output writes unclass analysis results to files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"unclass/internal/bytecode"
	"unclass/internal/classfile"
	"unclass/internal/diag"
	"unclass/internal/flow"
	"unclass/internal/report"
	"unclass/internal/signal"
	"unclass/internal/simulate"
)

// ClassRecord is the JSON form of an analyzed class.
type ClassRecord struct {
	Name       string         `json:"name"`
	Version    string         `json:"version"`
	Flags      []string       `json:"flags,omitempty"`
	Super      string         `json:"super,omitempty"`
	Interfaces []string       `json:"interfaces,omitempty"`
	SourceFile string         `json:"source_file,omitempty"`
	Fields     []FieldRecord  `json:"fields,omitempty"`
	Methods    []MethodRecord `json:"methods,omitempty"`
	Diags      []diag.Diag    `json:"diags,omitempty"`
}

// FieldRecord describes one field.
type FieldRecord struct {
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Flags      []string `json:"flags,omitempty"`
}

// MethodRecord describes one method and its analysis.
type MethodRecord struct {
	Name       string        `json:"name"`
	Descriptor string        `json:"descriptor"`
	Flags      []string      `json:"flags,omitempty"`
	MaxStack   uint16        `json:"max_stack,omitempty"`
	MaxLocals  uint16        `json:"max_locals,omitempty"`
	CodeLength int           `json:"code_length,omitempty"`
	Insts      int           `json:"insts,omitempty"`
	Blocks     []BlockRecord `json:"blocks,omitempty"`
	Tombstones int           `json:"tombstones,omitempty"`
	Calls      []CallRecord  `json:"calls,omitempty"`
	Statements []string      `json:"statements,omitempty"`
	Stack      []string      `json:"stack,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// BlockRecord is a live basic block. Start is the offset of its first
// instruction.
type BlockRecord struct {
	ID        int      `json:"id"`
	Start     uint32   `json:"start"`
	Insts     int      `json:"insts"`
	Parents   []int    `json:"parents,omitempty"`
	Edges     []string `json:"edges,omitempty"`
	Reachable bool     `json:"reachable"`
}

// CallRecord is one invoke site.
type CallRecord struct {
	Offset uint32 `json:"offset"`
	Op     string `json:"op"`
	Callee string `json:"callee"`
}

// NewClassRecord flattens c for JSON output.
func NewClassRecord(c *report.Class) ClassRecord {
	f := c.File
	rec := ClassRecord{
		Name:       f.Name,
		Version:    f.Version(),
		Flags:      f.Flags.Keywords(classfile.ContextClass),
		Super:      f.Super,
		Interfaces: f.Interfaces,
		SourceFile: f.SourceFile(),
		Diags:      c.Diags.Items(),
	}
	for _, m := range f.Fields {
		rec.Fields = append(rec.Fields, FieldRecord{
			Name:       m.Name,
			Descriptor: m.Descriptor,
			Flags:      m.Flags.Keywords(classfile.ContextField),
		})
	}
	for _, m := range c.Methods {
		rec.Methods = append(rec.Methods, newMethodRecord(m))
	}
	return rec
}

func newMethodRecord(m *report.Method) MethodRecord {
	rec := MethodRecord{
		Name:       m.Member.Name,
		Descriptor: m.Member.Descriptor,
		Flags:      m.Member.Flags.Keywords(classfile.ContextMethod),
		Insts:      len(m.Insts),
		Stack:      m.Stack,
	}
	if m.Code != nil {
		rec.MaxStack = m.Code.MaxStack
		rec.MaxLocals = m.Code.MaxLocals
		rec.CodeLength = len(m.Code.Bytes)
	}
	if m.Graph != nil {
		rec.Blocks = blockRecords(m.Graph)
		rec.Tombstones = m.Graph.Tombstones()
	}
	for _, c := range m.Calls {
		rec.Calls = append(rec.Calls, CallRecord{Offset: c.Offset, Op: c.Op.String(), Callee: c.Callee})
	}
	for _, e := range m.Events {
		s := e.Text
		if e.Kind == simulate.EventDiagnostic {
			s = "// " + s
		}
		rec.Statements = append(rec.Statements, s)
	}
	if m.Err != nil {
		rec.Error = m.Err.Error()
	}
	return rec
}

func blockRecords(g *flow.Graph) []BlockRecord {
	reach := g.Reachable()
	var out []BlockRecord
	for _, b := range g.Live() {
		rec := BlockRecord{
			ID:        int(b.ID),
			Start:     b.Start(),
			Insts:     len(b.Insts),
			Reachable: reach[b.ID],
		}
		for _, p := range b.Parents {
			rec.Parents = append(rec.Parents, int(p))
		}
		for _, e := range g.Edges(b) {
			s := fmt.Sprint(e.To)
			if e.Cond != "" {
				s += " " + e.Cond
			}
			rec.Edges = append(rec.Edges, s)
		}
		out = append(out, rec)
	}
	return out
}

// WriteClassJSON writes the class record to <dir>/<class>.json.
func WriteClassJSON(dir string, c *report.Class) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", dir, err)
	}
	return writeJSON(filepath.Join(dir, FileName(c.File.Name)+".json"), NewClassRecord(c))
}

// WriteSignalJSON writes the signal graph to signal.json.
func WriteSignalJSON(dir string, g *signal.Graph) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", dir, err)
	}
	return writeJSON(filepath.Join(dir, "signal.json"), g)
}

// WriteASM writes decoded instructions to asm/<name>.txt.
func WriteASM(dir string, name string, insts []bytecode.Inst, annotators ...bytecode.Annotator) error {
	path := filepath.Join(dir, "asm", FileName(name)+".txt")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir asm: %w", err)
	}
	return os.WriteFile(path, []byte(bytecode.Format(insts, annotators...)), 0644)
}

// WriteBin writes raw method code to asm/<name>.bin.
func WriteBin(dir string, name string, data []byte) error {
	path := filepath.Join(dir, "asm", FileName(name)+".bin")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir asm: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// WriteDOT writes a Graphviz document to dot/<name>.dot and returns its path.
func WriteDOT(dir string, name string, dot string) (string, error) {
	path := filepath.Join(dir, "dot", FileName(name)+".dot")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("output: mkdir dot: %w", err)
	}
	if err := os.WriteFile(path, []byte(dot), 0644); err != nil {
		return "", fmt.Errorf("output: write %s: %w", path, err)
	}
	return path, nil
}

// FileName maps a class name or method key to a portable file name.
// Descriptor punctuation and path separators become '_'.
func FileName(s string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', '<', '>', '(', ')', ';', '[', ':', '*', '?', '"', '|', ' ':
			return '_'
		}
		return r
	}, s)
	if name == "" {
		return "_"
	}
	return name
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
