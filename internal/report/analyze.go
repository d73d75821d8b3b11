// Package report runs the per-method pipeline over a class and renders the
// results as a source-like listing.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"unclass/internal/bytecode"
	"unclass/internal/callgraph"
	"unclass/internal/classfile"
	"unclass/internal/descriptor"
	"unclass/internal/diag"
	"unclass/internal/flow"
	"unclass/internal/simulate"
)

// Options controls AnalyzeClass.
type Options struct {
	diag.Options
	Switches flow.SwitchMode
	Jobs     int               // parallel methods; 0 or 1 runs sequentially
	Types    *descriptor.Cache // shared across methods; may be nil
}

// Method is the analysis of one method.
type Method struct {
	Member *classfile.Member
	Key    string // callgraph node name
	Code   *classfile.Code
	Insts  []bytecode.Inst
	Graph  *flow.Graph
	Events []simulate.Event
	Stack  []string // operand stack left after simulation
	Calls  []callgraph.Call
	Diags  diag.Diags
	Err    error // decode, flow or simulation failure
}

// HasCode reports whether the method carries a Code attribute.
func (m *Method) HasCode() bool { return m.Member.HasCode() }

// Class is the analysis of one class file.
type Class struct {
	File    *classfile.File
	Methods []*Method
	Diags   diag.Diags
}

// CallgraphMethods returns the methods in the form the callgraph package
// consumes. Methods without code are kept as nodes with no calls.
func (c *Class) CallgraphMethods() []callgraph.Method {
	out := make([]callgraph.Method, 0, len(c.Methods))
	for _, m := range c.Methods {
		out = append(out, callgraph.Method{Name: m.Key, Graph: m.Graph, Calls: m.Calls})
	}
	return out
}

// Failed returns the methods whose analysis failed.
func (c *Class) Failed() []*Method {
	var out []*Method
	for _, m := range c.Methods {
		if m.Err != nil {
			out = append(out, m)
		}
	}
	return out
}

// AnalyzeClass decodes, builds the flow graph of and simulates every
// method of f. Methods are independent and run on up to opts.Jobs
// goroutines. In strict mode the first failing method aborts the class;
// otherwise failures stay on Method.Err and are mirrored as diagnostics.
func AnalyzeClass(ctx context.Context, f *classfile.File, opts Options) (*Class, error) {
	c := &Class{File: f, Methods: make([]*Method, len(f.Methods))}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Jobs, 1))
	for i, m := range f.Methods {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := analyzeMethod(f, m, opts)
			c.Methods[i] = r
			if r.Err == nil {
				slog.Debug("method analyzed", "method", r.Key, "insts", len(r.Insts), "diags", r.Diags.Len())
				return nil
			}
			slog.Warn("method failed", "method", r.Key, "err", r.Err)
			if opts.Mode == diag.ModeStrict {
				return fmt.Errorf("%s: %w", r.Key, r.Err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, m := range c.Methods {
		if m.Err != nil {
			m.Diags.Add(0, diag.KindFailed, m.Err.Error())
		}
		c.Diags.Merge(m.Key, &m.Diags)
	}
	return c, nil
}

func analyzeMethod(f *classfile.File, m *classfile.Member, opts Options) *Method {
	r := &Method{Member: m, Key: callgraph.Key(f.Name, m.Name, m.Descriptor)}
	if !m.HasCode() {
		return r
	}
	code, err := m.Code(f.Pool)
	if err != nil {
		r.Err = fmt.Errorf("code: %w", err)
		return r
	}
	r.Code = code

	insts, err := bytecode.DecodeMethod(code.Bytes, int(code.Length), bytecode.Options{MaxSteps: opts.MaxSteps})
	if err != nil {
		r.Err = err
		return r
	}
	r.Insts = insts
	r.Calls = callgraph.Calls(insts, f.Pool)

	// The flow graph and the simulation only share the instructions, so a
	// failure in one still leaves the other usable.
	var errs []error
	g, err := flow.Build(insts, flow.Options{Switches: opts.Switches, MaxSteps: opts.MaxSteps})
	if err != nil {
		errs = append(errs, err)
	} else {
		r.Graph = g
		for _, b := range g.Unreachable() {
			r.Diags.Addf(b.Start(), diag.KindUnreachable, "block %d is unreachable from the entry", b.ID)
		}
	}

	var rec simulate.Recorder
	sim := simulate.New(f.Pool, simulate.Options{
		MaxStack:  int(code.MaxStack),
		MaxLocals: int(code.MaxLocals),
		Static:    m.Flags.IsStatic(),
		Class:     f.Name,
		Types:     opts.Types,
	}, &rec)
	if err := sim.Run(insts); err != nil {
		errs = append(errs, err)
	}
	r.Events = rec.Events
	r.Stack = sim.Stack()
	for _, d := range sim.Diags().Items() {
		r.Diags.Add(d.Offset, d.Kind, d.Msg)
	}
	r.Err = errors.Join(errs...)
	return r
}
