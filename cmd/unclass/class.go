package main

import (
	"slices"

	"github.com/urfave/cli/v2"

	"unclass/internal/report"
)

var (
	listingFlag = &cli.BoolFlag{
		Name:  "listing",
		Usage: "Include the annotated disassembly",
		Value: true,
	}
	flowFlag = &cli.BoolFlag{
		Name:  "flow",
		Usage: "Include the coalesced flow graph",
		Value: true,
	}
	simulateFlag = &cli.BoolFlag{
		Name:  "simulate",
		Usage: "Include the simulated statements",
		Value: true,
	}

	classCommand = &cli.Command{
		Action:    classAction,
		Name:      "class",
		Usage:     "Render classes as Java-like source with every analysis section",
		ArgsUsage: "<file.class|dir>...",
		Flags: slices.Concat(analysisFlags,
			[]cli.Flag{listingFlag, flowFlag, simulateFlag}),
	}
	disasmCommand = &cli.Command{
		Action:    sectionAction(report.RenderOptions{Listing: true}),
		Name:      "disasm",
		Usage:     "Print the annotated disassembly of every method",
		ArgsUsage: "<file.class|dir>...",
		Flags:     analysisFlags,
	}
	flowCommand = &cli.Command{
		Action:    sectionAction(report.RenderOptions{Flow: true}),
		Name:      "flow",
		Usage:     "Print the coalesced control-flow graph of every method",
		ArgsUsage: "<file.class|dir>...",
		Flags:     analysisFlags,
	}
	simulateCommand = &cli.Command{
		Action:    sectionAction(report.RenderOptions{Simulate: true}),
		Name:      "simulate",
		Usage:     "Print the statements recovered by the stack simulator",
		ArgsUsage: "<file.class|dir>...",
		Flags:     analysisFlags,
	}
)

func classAction(ctx *cli.Context) error {
	return renderClasses(ctx, report.RenderOptions{
		Listing:  ctx.Bool(listingFlag.Name),
		Flow:     ctx.Bool(flowFlag.Name),
		Simulate: ctx.Bool(simulateFlag.Name),
	})
}

func sectionAction(opts report.RenderOptions) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		return renderClasses(ctx, opts)
	}
}

func renderClasses(ctx *cli.Context, opts report.RenderOptions) error {
	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	opts.Strict = s.strict()
	opts.Colors = s.colors
	opts.Types = s.analyze.Types

	first := true
	return eachClass(ctx, s, func(_ string, c *report.Class) error {
		if !first {
			if _, err := ctx.App.Writer.Write([]byte("\n")); err != nil {
				return err
			}
		}
		first = false
		return report.RenderClass(ctx.App.Writer, c, opts)
	})
}
