package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"
	latrender "github.com/zboralski/lattice/render"

	"unclass/internal/bytecode"
	"unclass/internal/callgraph"
	"unclass/internal/output"
	"unclass/internal/render"
	"unclass/internal/report"
)

var (
	maxNodesFlag = &cli.IntFlag{
		Name:  "max-nodes",
		Usage: "Node cap for call and class graphs (0 = no cap)",
		Value: 400,
	}
	formatFlag = &cli.StringFlag{
		Name:  "format",
		Usage: "Also run graphviz dot to produce this format (svg, png, pdf)",
	}

	graphCommand = &cli.Command{
		Action:    graph,
		Name:      "graph",
		Usage:     "Write per-method flow graphs and call, class and reachability graphs as DOT",
		ArgsUsage: "<file.class|dir>...",
		Flags: slices.Concat(analysisFlags,
			[]cli.Flag{outFlag, themeFlag, maxNodesFlag, formatFlag}),
		Description: `Writes dot/<method>.cfg.dot for every method with code and, per class,
<class>.callgraph, <class>.classgraph, <class>.reachable and the lattice
renderings <class>.lattice_cfg and <class>.lattice_callgraph. With more than
one class the call and class graphs are also written for the whole set.`,
	}
)

func graph(ctx *cli.Context) error {
	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	dir := s.cfg.Output.Dir
	if dir == "" {
		return fmt.Errorf("--out is required")
	}
	maxNodes := ctx.Int(maxNodesFlag.Name)

	var (
		written []string
		all     []callgraph.Method
		classes int
	)
	write := func(name, dot string) error {
		if dot == "" {
			return nil
		}
		path, err := output.WriteDOT(dir, name, dot)
		if err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	err = eachClass(ctx, s, func(_ string, c *report.Class) error {
		classes++
		methods := c.CallgraphMethods()
		all = append(all, methods...)
		name := c.File.Name

		for _, m := range c.Methods {
			if m.Graph == nil {
				continue
			}
			dot := render.CFGDOT(m.Key, m.Graph, s.theme,
				bytecode.JumpAnnotator(), bytecode.PoolAnnotator(c.File.Pool))
			if err := write(m.Key+".cfg", dot); err != nil {
				return err
			}
		}

		cg := callgraph.BuildCallGraph(methods)
		entries := callgraph.FindEntryPoints(methods)
		reachable := callgraph.ReachableSet(entries, cg)
		for _, g := range []struct{ suffix, dot string }{
			{".callgraph", render.CallgraphDOT(methods, name, s.theme, maxNodes)},
			{".classgraph", render.ClassgraphDOT(methods, name+" (class level)", s.theme, maxNodes)},
			{".reachable", render.ReachabilityDOT(cg, reachable, entries, name+" (reachable)", s.theme)},
			{".lattice_cfg", latrender.DOTCFG(callgraph.BuildCFG(methods), name)},
			{".lattice_callgraph", latrender.DOT(cg, name)},
		} {
			if err := write(name+g.suffix, g.dot); err != nil {
				return err
			}
		}

		stats := render.ComputeStats(methods)
		slog.Info("graphs written", "class", name, "methods", stats.TotalMethods,
			"edges", stats.TotalEdges, "unresolved", stats.Unresolved, "entries", len(entries))
		return nil
	})
	if err != nil {
		return err
	}

	if classes > 1 {
		if err := write("all.callgraph", render.CallgraphDOT(all, "all classes", s.theme, maxNodes)); err != nil {
			return err
		}
		if err := write("all.classgraph", render.ClassgraphDOT(all, "all classes (class level)", s.theme, maxNodes)); err != nil {
			return err
		}
	}

	if format := ctx.String(formatFlag.Name); format != "" {
		for _, path := range written {
			out := strings.TrimSuffix(path, ".dot") + "." + format
			if err := runDot(path, out, format); err != nil {
				return fmt.Errorf("dot %s: %w", path, err)
			}
		}
	}
	fmt.Fprintf(ctx.App.Writer, "%d graphs written to %s\n", len(written), dir)
	return nil
}

// runDot invokes graphviz dot to produce the given format.
func runDot(dotPath, outPath, format string) error {
	cmd := exec.Command("dot", "-T"+format, "-o", outPath, dotPath)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
