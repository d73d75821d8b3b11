package main

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"unclass/internal/callgraph"
	"unclass/internal/output"
	"unclass/internal/report"
	"unclass/internal/signal"
)

var (
	hopsFlag = &cli.IntFlag{
		Name:  "hops",
		Usage: "Call hops of context kept around each signal method",
		Value: 1,
	}
	allFlag = &cli.BoolFlag{
		Name:  "all",
		Usage: "List context methods too",
	}

	signalCommand = &cli.Command{
		Action:    signalAction,
		Name:      "signal",
		Usage:     "Find methods that load suspicious strings or call sensitive APIs",
		ArgsUsage: "<file.class|dir>...",
		Flags: slices.Concat(analysisFlags,
			[]cli.Flag{outFlag, hopsFlag, allFlag}),
		Description: `Classifies string constants (URLs, hosts, keys, credentials) and calls into
networking, crypto, process, reflection and class-loading APIs. With --out the
full graph is written to signal.json.`,
	}
)

func signalAction(ctx *cli.Context) error {
	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	var (
		methods []callgraph.Method
		strs    []signal.StringRef
	)
	err = eachClass(ctx, s, func(_ string, c *report.Class) error {
		methods = append(methods, c.CallgraphMethods()...)
		for _, m := range c.Methods {
			strs = append(strs, signal.Strings(m.Key, m.Insts, c.File.Pool)...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	entries := make(map[string]bool)
	for _, name := range callgraph.FindEntryPoints(methods) {
		entries[name] = true
	}
	g := signal.BuildGraph(methods, strs, ctx.Int(hopsFlag.Name), entries)

	table := tablewriter.NewWriter(ctx.App.Writer)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Method", "Role", "Severity", "Categories", "Strings", "APIs"})
	for _, m := range g.Methods {
		if m.Role == "" || (m.Role == "context" && !ctx.Bool(allFlag.Name)) {
			continue
		}
		table.Append([]string{
			m.Name,
			m.Role,
			m.Severity,
			strings.Join(m.Categories, ","),
			strconv.Itoa(len(m.Strings)),
			strconv.Itoa(len(m.APIs)),
		})
	}
	table.SetFooter([]string{
		fmt.Sprintf("%d methods", g.Stats.TotalMethods),
		fmt.Sprintf("%d signal", g.Stats.SignalMethods),
		fmt.Sprintf("%d context", g.Stats.ContextMethods),
		" ",
		strconv.Itoa(g.Stats.StringRefCount),
		" ",
	})
	table.Render()

	if dir := s.cfg.Output.Dir; dir != "" {
		return output.WriteSignalJSON(dir, g)
	}
	return nil
}
