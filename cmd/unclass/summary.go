package main

import (
	"github.com/urfave/cli/v2"

	"unclass/internal/report"
)

var summaryCommand = &cli.Command{
	Action:    summary,
	Name:      "summary",
	Usage:     "Print a per-method table of code size, blocks and diagnostics",
	ArgsUsage: "<file.class|dir>...",
	Flags:     analysisFlags,
}

func summary(ctx *cli.Context) error {
	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	return eachClass(ctx, s, func(_ string, c *report.Class) error {
		report.WriteSummary(ctx.App.Writer, c)
		return nil
	})
}
