// Package callgraph exports method flow graphs and invoke edges as lattice
// graphs for DOT rendering and reachability queries.
package callgraph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zboralski/lattice"

	"unclass/internal/bytecode"
	"unclass/internal/classfile"
	"unclass/internal/flow"
)

// Pool resolves invoke operands. classfile.Pool implements it.
type Pool interface {
	Member(idx uint16) (classfile.MemberRef, error)
	Render(idx uint16) (string, error)
}

// Call is one invoke instruction.
type Call struct {
	Offset uint32      `json:"offset"`
	Op     bytecode.Op `json:"-"`
	Callee string      `json:"callee"`
}

// Method holds the data needed to build the call graph and CFG for one
// method. Graph may be nil when flow analysis failed.
type Method struct {
	Name  string
	Graph *flow.Graph
	Calls []Call
}

// Key names a method node: dotted owner, name and descriptor.
func Key(owner, name, desc string) string {
	return owner + "." + name + desc
}

// Calls collects the invoke instructions of a method. Unresolvable
// operands fall back to the raw pool index.
func Calls(insts []bytecode.Inst, pool Pool) []Call {
	var out []Call
	for _, inst := range insts {
		if inst.Op < bytecode.OpInvokevirtual || inst.Op > bytecode.OpInvokedynamic {
			continue
		}
		idx, _ := inst.PoolIndex()
		callee := fmt.Sprintf("#%d", idx)
		if inst.Op == bytecode.OpInvokedynamic {
			if s, err := pool.Render(idx); err == nil {
				callee = "invokedynamic " + s
			}
		} else if m, err := pool.Member(idx); err == nil {
			callee = Key(m.Owner, m.Name, m.Descriptor)
		}
		out = append(out, Call{Offset: inst.Offset, Op: inst.Op, Callee: callee})
	}
	return out
}

// BuildCallGraph constructs a lattice.Graph from methods.
// Each method becomes a node. Each invoke becomes an edge.
func BuildCallGraph(methods []Method) *lattice.Graph {
	g := &lattice.Graph{}
	for _, m := range methods {
		g.Nodes = append(g.Nodes, m.Name)
		for _, c := range m.Calls {
			g.Edges = append(g.Edges, lattice.Edge{
				Caller: m.Name,
				Callee: c.Callee,
			})
		}
	}
	g.Dedup()
	return g
}

// FindEntryPoints returns methods that no other method in the set invokes.
// Lambda bodies are excluded since they're reached through invokedynamic,
// which carries no direct edge.
func FindEntryPoints(methods []Method) []string {
	called := make(map[string]bool)
	for _, m := range methods {
		for _, c := range m.Calls {
			if c.Callee != m.Name {
				called[c.Callee] = true
			}
		}
	}
	var entries []string
	for _, m := range methods {
		if strings.Contains(m.Name, ".lambda$") {
			continue
		}
		if !called[m.Name] {
			entries = append(entries, m.Name)
		}
	}
	sort.Strings(entries)
	return entries
}

// ReachableSet performs BFS from entry points following call edges and
// returns the set of all reachable method names, callees outside the
// set included.
func ReachableSet(entryPoints []string, g *lattice.Graph) map[string]bool {
	adj := make(map[string][]string)
	for _, e := range g.Edges {
		adj[e.Caller] = append(adj[e.Caller], e.Callee)
	}

	reachable := make(map[string]bool)
	queue := make([]string, 0, len(entryPoints))
	for _, ep := range entryPoints {
		if !reachable[ep] {
			reachable[ep] = true
			queue = append(queue, ep)
		}
	}
	for len(queue) > 0 {
		fn := queue[0]
		queue = queue[1:]
		for _, target := range adj[fn] {
			if !reachable[target] {
				reachable[target] = true
				queue = append(queue, target)
			}
		}
	}
	return reachable
}
