package callgraph

import "github.com/zboralski/lattice"

// BuildCFG constructs a lattice.CFGGraph from methods. Methods without a
// flow graph are skipped.
func BuildCFG(methods []Method) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, m := range methods {
		if m.Graph == nil {
			continue
		}
		lcfg, _ := BuildFuncCFG(m)
		cg.Funcs = append(cg.Funcs, lcfg)
	}
	return cg
}

// BuildFuncCFG maps one method's surviving blocks to a lattice.FuncCFG.
// Returns the FuncCFG and the number of live blocks.
// Tombstoned blocks are skipped; live ids are kept so edges stay valid.
func BuildFuncCFG(m Method) (*lattice.FuncCFG, int) {
	lcfg := &lattice.FuncCFG{Name: m.Name}
	if m.Graph == nil {
		return lcfg, 0
	}
	callAt := make(map[uint32]string, len(m.Calls))
	for _, c := range m.Calls {
		callAt[c.Offset] = c.Callee
	}
	live := m.Graph.Live()
	for _, b := range live {
		lb := &lattice.BasicBlock{
			ID:    int(b.ID),
			Start: int(b.Start()),
			End:   int(b.End()),
			Term:  len(b.Children) == 0,
		}
		for _, e := range m.Graph.Edges(b) {
			lb.Succs = append(lb.Succs, lattice.Successor{
				BlockID: int(e.To),
				Cond:    e.Cond,
			})
		}
		for _, inst := range b.Insts {
			if callee, ok := callAt[inst.Offset]; ok {
				lb.Calls = append(lb.Calls, lattice.CallSite{
					Offset: int(inst.Offset),
					Callee: callee,
				})
			}
		}
		lcfg.Blocks = append(lcfg.Blocks, lb)
	}
	return lcfg, len(live)
}
