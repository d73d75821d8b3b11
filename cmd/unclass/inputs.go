package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"unclass/internal/classfile"
	"unclass/internal/report"
)

// classPaths expands the command arguments into class files. Directories
// are walked for *.class files.
func classPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			paths = append(paths, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(d.Name(), ".class") {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	return paths, nil
}

// eachClass parses and analyzes every class named on the command line and
// hands it to fn. In best-effort mode a class that does not parse is logged
// and skipped.
func eachClass(ctx *cli.Context, s *settings, fn func(path string, c *report.Class) error) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("required arguments: %v", ctx.Command.ArgsUsage)
	}
	paths, err := classPaths(ctx.Args().Slice())
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no class files in %s", strings.Join(ctx.Args().Slice(), " "))
	}

	var skipped int
	for i, path := range paths {
		f, err := classfile.Open(path)
		if err != nil {
			if s.strict() {
				return err
			}
			slog.Warn("skipping class", "path", path, "err", err)
			skipped++
			continue
		}
		c, err := report.AnalyzeClass(ctx.Context, f, s.analyze)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if s.verbose {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s: %d methods, %d failed, %d diags\n",
				i+1, len(paths), f.Name, len(c.Methods), len(c.Failed()), c.Diags.Len())
		}
		if err := fn(path, c); err != nil {
			return err
		}
	}
	if skipped > 0 {
		slog.Info("classes skipped", "count", skipped, "total", len(paths))
	}
	return nil
}
