package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "unclass",
		Usage: "Java class file analyzer",
		Description: `Decodes method bytecode, builds coalesced control-flow graphs and
simulates the operand stack to print Java-like statements.`,
		Writer:          color.Output,
		ErrWriter:       os.Stderr,
		HideHelpCommand: true,
		Commands: []*cli.Command{
			classCommand,
			disasmCommand,
			flowCommand,
			simulateCommand,
			graphCommand,
			exportCommand,
			signalCommand,
			summaryCommand,
			dumpCommand,
			descriptorCommand,
		},
	}
}
