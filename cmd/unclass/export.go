package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/urfave/cli/v2"

	"unclass/internal/bytecode"
	"unclass/internal/output"
	"unclass/internal/report"
)

var (
	binFlag = &cli.BoolFlag{
		Name:  "bin",
		Usage: "Also write raw method code to asm/<method>.bin",
	}

	exportCommand = &cli.Command{
		Action:    export,
		Name:      "export",
		Usage:     "Write class records as JSON and per-method listings to a directory",
		ArgsUsage: "<file.class|dir>...",
		Flags: slices.Concat(analysisFlags,
			[]cli.Flag{outFlag, binFlag}),
	}
)

func export(ctx *cli.Context) error {
	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	dir := s.cfg.Output.Dir
	if dir == "" {
		return fmt.Errorf("--out is required")
	}
	withBin := ctx.Bool(binFlag.Name)

	var classes, listings int
	err = eachClass(ctx, s, func(_ string, c *report.Class) error {
		if err := output.WriteClassJSON(dir, c); err != nil {
			return err
		}
		classes++
		anns := []bytecode.Annotator{
			bytecode.JumpAnnotator(),
			bytecode.PoolAnnotator(c.File.Pool),
			bytecode.LocalAnnotator(),
		}
		for _, m := range c.Methods {
			if len(m.Insts) == 0 {
				continue
			}
			if err := output.WriteASM(dir, m.Key, m.Insts, anns...); err != nil {
				return err
			}
			listings++
			if withBin && m.Code != nil {
				if err := output.WriteBin(dir, m.Key, m.Code.Bytes); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.Info("export done", "dir", dir, "classes", classes, "listings", listings)
	return nil
}
