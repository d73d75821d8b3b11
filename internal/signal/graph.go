package signal

import (
	"slices"
	"sort"
	"strings"

	"unclass/internal/bytecode"
	"unclass/internal/callgraph"
	"unclass/internal/classfile"
)

// StringRef is a string constant loaded by a method.
type StringRef struct {
	Method     string   `json:"method"`
	Offset     uint32   `json:"offset"`
	Value      string   `json:"value"`
	Categories []string `json:"categories,omitempty"`
}

// APIRef is a call to a sensitive platform API.
type APIRef struct {
	Offset   uint32 `json:"offset"`
	Callee   string `json:"callee"`
	Category string `json:"category"`
}

// Method is a method in the signal graph.
type Method struct {
	Name         string      `json:"name"`
	Owner        string      `json:"owner,omitempty"`
	Strings      []StringRef `json:"strings,omitempty"`
	APIs         []APIRef    `json:"apis,omitempty"`
	Categories   []string    `json:"categories,omitempty"`
	Severity     string      `json:"severity,omitempty"` // high, medium or low
	Role         string      `json:"role"`               // signal, context or ""
	IsEntryPoint bool        `json:"is_entry_point,omitempty"`
}

// Edge is a deduplicated call edge.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
	Op   string `json:"op"`
}

// Graph is the signal view of a set of methods.
type Graph struct {
	Methods []Method `json:"methods"`
	Edges   []Edge   `json:"edges"`
	Stats   Stats    `json:"stats"`
}

// Stats summarizes a Graph.
type Stats struct {
	TotalMethods   int            `json:"total_methods"`
	SignalMethods  int            `json:"signal_methods"`
	ContextMethods int            `json:"context_methods"`
	TotalEdges     int            `json:"total_edges"`
	StringRefCount int            `json:"string_ref_count"`
	Categories     map[string]int `json:"categories"`
}

// Strings collects the String constants pushed by ldc and ldc_w.
func Strings(method string, insts []bytecode.Inst, pool classfile.Pool) []StringRef {
	var out []StringRef
	for _, inst := range insts {
		if inst.Op != bytecode.OpLdc && inst.Op != bytecode.OpLdcW {
			continue
		}
		idx, _ := inst.PoolIndex()
		c, err := pool.Get(idx)
		if err != nil {
			continue
		}
		s, ok := c.(classfile.String)
		if !ok {
			continue
		}
		v, err := pool.Utf8(s.StringIndex)
		if err != nil {
			continue
		}
		out = append(out, StringRef{Method: method, Offset: inst.Offset, Value: v})
	}
	return out
}

// BuildGraph classifies every method by the strings it loads and the APIs
// it calls. Methods with at least one category are signal methods; methods
// within k call hops of one, in either direction, are context.
func BuildGraph(methods []callgraph.Method, strs []StringRef, k int, entryPoints map[string]bool) *Graph {
	type found struct {
		strs []StringRef
		apis []APIRef
		cats []string
	}
	hits := make(map[string]*found)
	get := func(name string) *found {
		f, ok := hits[name]
		if !ok {
			f = &found{}
			hits[name] = f
		}
		return f
	}
	catCounts := make(map[string]int)
	mark := func(f *found, cat string) {
		if !slices.Contains(f.cats, cat) {
			f.cats = append(f.cats, cat)
			catCounts[cat]++
		}
	}

	for _, sr := range strs {
		cats := ClassifyString(sr.Value)
		if len(cats) == 0 {
			continue
		}
		sr.Categories = cats
		f := get(sr.Method)
		f.strs = append(f.strs, sr)
		for _, c := range cats {
			mark(f, c)
		}
	}
	for _, m := range methods {
		for _, c := range m.Calls {
			cat := ClassifyCallee(c.Callee)
			if cat == "" {
				continue
			}
			f := get(m.Name)
			f.apis = append(f.apis, APIRef{Offset: c.Offset, Callee: c.Callee, Category: cat})
			mark(f, cat)
		}
	}

	// Context: BFS k hops over call edges in both directions.
	fwd := make(map[string][]string)
	rev := make(map[string][]string)
	for _, m := range methods {
		for _, c := range m.Calls {
			fwd[m.Name] = append(fwd[m.Name], c.Callee)
			rev[c.Callee] = append(rev[c.Callee], m.Name)
		}
	}
	type item struct {
		name  string
		depth int
	}
	visited := make(map[string]bool, len(hits))
	var queue []item
	for _, name := range sortedNames(hits) {
		visited[name] = true
		queue = append(queue, item{name, 0})
	}
	near := make(map[string]bool)
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		if it.depth >= k {
			continue
		}
		for _, next := range slices.Concat(fwd[it.name], rev[it.name]) {
			if !visited[next] {
				visited[next] = true
				near[next] = true
				queue = append(queue, item{next, it.depth + 1})
			}
		}
	}

	g := &Graph{}
	for _, m := range methods {
		sm := Method{
			Name:         m.Name,
			Owner:        ownerOf(m.Name),
			IsEntryPoint: entryPoints[m.Name],
		}
		if f, ok := hits[m.Name]; ok {
			sm.Role = "signal"
			sm.Strings = f.strs
			sm.APIs = f.apis
			sm.Categories = slices.Clone(f.cats)
			sort.Strings(sm.Categories)
			sm.Severity = MaxSeverity(sm.Categories)
			g.Stats.SignalMethods++
		} else if near[m.Name] {
			sm.Role = "context"
			g.Stats.ContextMethods++
		}
		g.Methods = append(g.Methods, sm)
	}

	// signal, then context, then the rest; within signal entry points
	// first, then severity, then category count.
	roleOrd := map[string]int{"signal": 0, "context": 1, "": 2}
	sevOrd := map[string]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2, "": 3}
	sort.SliceStable(g.Methods, func(i, j int) bool {
		a, b := &g.Methods[i], &g.Methods[j]
		if a.Role != b.Role {
			return roleOrd[a.Role] < roleOrd[b.Role]
		}
		if a.Role == "signal" && a.IsEntryPoint != b.IsEntryPoint {
			return a.IsEntryPoint
		}
		if a.Severity != b.Severity {
			return sevOrd[a.Severity] < sevOrd[b.Severity]
		}
		if len(a.Categories) != len(b.Categories) {
			return len(a.Categories) > len(b.Categories)
		}
		return a.Name < b.Name
	})

	seen := make(map[Edge]bool)
	for _, m := range methods {
		for _, c := range m.Calls {
			e := Edge{From: m.Name, To: c.Callee, Op: c.Op.String()}
			if !seen[e] {
				seen[e] = true
				g.Edges = append(g.Edges, e)
			}
		}
	}

	g.Stats.TotalMethods = len(methods)
	g.Stats.TotalEdges = len(g.Edges)
	g.Stats.StringRefCount = len(strs)
	g.Stats.Categories = catCounts
	return g
}

// Signals returns the signal methods of g.
func (g *Graph) Signals() []Method {
	var out []Method
	for _, m := range g.Methods {
		if m.Role == "signal" {
			out = append(out, m)
		}
	}
	return out
}

// ownerOf returns the class part of a method key ("a.B.run()V" -> "a.B").
func ownerOf(key string) string {
	name, _, _ := strings.Cut(key, "(")
	if i := strings.LastIndexByte(name, '.'); i > 0 {
		return name[:i]
	}
	return ""
}

func sortedNames[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
