package main

import (
	"fmt"
	"slices"

	"github.com/davecgh/go-spew/spew"
	"github.com/urfave/cli/v2"

	"unclass/internal/classfile"
)

var (
	depthFlag = &cli.IntFlag{
		Name:  "depth",
		Usage: "Maximum nesting depth to print (0 = unlimited)",
	}
	poolFlag = &cli.BoolFlag{
		Name:  "pool",
		Usage: "Include the constant pool",
	}

	dumpCommand = &cli.Command{
		Action:    dump,
		Name:      "dump",
		Usage:     "Dump the raw parsed class structure",
		ArgsUsage: "<file.class>...",
		Flags: slices.Concat([]cli.Flag{configFlag, logLevelFlag, logFormatFlag},
			[]cli.Flag{depthFlag, poolFlag}),
	}
)

type dumpedClass struct {
	Path string
	File classfile.File
}

func dump(ctx *cli.Context) error {
	if _, err := loadSettings(ctx); err != nil {
		return err
	}
	if ctx.NArg() == 0 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	paths, err := classPaths(ctx.Args().Slice())
	if err != nil {
		return err
	}
	cfg := spew.ConfigState{
		Indent:                  "  ",
		MaxDepth:                ctx.Int(depthFlag.Name),
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		DisableMethods:          true,
		SortKeys:                true,
	}
	for _, path := range paths {
		f, err := classfile.Open(path)
		if err != nil {
			return err
		}
		d := dumpedClass{Path: path, File: *f}
		if !ctx.Bool(poolFlag.Name) {
			d.File.Pool = nil
		}
		cfg.Fdump(ctx.App.Writer, d)
	}
	return nil
}
