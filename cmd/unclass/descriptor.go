package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/urfave/cli/v2"

	"unclass/internal/descriptor"
)

var (
	classSigFlag = &cli.BoolFlag{
		Name:  "class",
		Usage: "Decode arguments as class Signature attributes",
	}
	seqFlag = &cli.BoolFlag{
		Name:  "seq",
		Usage: "Decode arguments as runs of concatenated types, one per line",
	}
	nameFlag = &cli.StringFlag{
		Name:  "name",
		Usage: "Declaration name to render after the type",
	}

	descriptorCommand = &cli.Command{
		Action:    decodeDescriptors,
		Name:      "descriptor",
		Usage:     "Decode JVM descriptors and generic signatures into Java types",
		ArgsUsage: "<descriptor>...",
		Flags: slices.Concat([]cli.Flag{configFlag, strictFlag, logLevelFlag, logFormatFlag},
			[]cli.Flag{classSigFlag, seqFlag, nameFlag}),
		Description: `Examples:
  unclass descriptor '(ILjava/lang/String;)[J'
  unclass descriptor --name get '<T:Ljava/lang/Object;>(TT;)Ljava/util/List<TT;>;'
  unclass descriptor --class '<E:Ljava/lang/Object;>Ljava/util/AbstractList<TE;>;'`,
	}
)

func decodeDescriptors(ctx *cli.Context) error {
	s, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() == 0 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	name := ctx.String(nameFlag.Name)
	w := ctx.App.Writer

	for _, in := range ctx.Args().Slice() {
		var lines []string
		switch {
		case ctx.Bool(classSigFlag.Name):
			var cs descriptor.ClassSignature
			if cs, err = descriptor.DecodeClassSignature(in); err == nil {
				lines = []string{classSignatureText(cs)}
			}
		case ctx.Bool(seqFlag.Name):
			var ts []descriptor.Type
			if ts, err = descriptor.DecodeAll(in); err == nil {
				for _, t := range ts {
					lines = append(lines, t.String())
				}
			}
		default:
			var t descriptor.Type
			if t, err = s.analyze.Types.Decode(in); err == nil {
				lines = []string{renderType(t, name)}
			}
		}
		if err != nil {
			if s.strict() {
				return err
			}
			fmt.Fprintf(w, "// error: %v\n", err)
			continue
		}
		for _, l := range lines {
			fmt.Fprintln(w, l)
		}
	}
	return nil
}

func renderType(t descriptor.Type, name string) string {
	fn, ok := t.(descriptor.Function)
	if !ok || name == "" {
		return t.Render(name)
	}
	args := make([]string, len(fn.Args))
	for i := range args {
		args[i] = fmt.Sprintf("arg%d", i)
	}
	return fn.Render(name, args...)
}

func classSignatureText(cs descriptor.ClassSignature) string {
	var b strings.Builder
	if len(cs.Params) > 0 {
		params := make([]string, len(cs.Params))
		for i, p := range cs.Params {
			params[i] = p.String()
		}
		b.WriteString("<" + strings.Join(params, ", ") + ">")
	}
	if cs.Super != nil {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("extends " + cs.Super.String())
	}
	if len(cs.Interfaces) > 0 {
		ifaces := make([]string, len(cs.Interfaces))
		for i, t := range cs.Interfaces {
			ifaces[i] = t.String()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("implements " + strings.Join(ifaces, ", "))
	}
	return b.String()
}
