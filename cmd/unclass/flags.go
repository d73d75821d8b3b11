package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"unclass/internal/config"
	"unclass/internal/descriptor"
	"unclass/internal/diag"
	"unclass/internal/flow"
	"unclass/internal/logging"
	"unclass/internal/render"
	"unclass/internal/report"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "YAML config file; flags override its values",
	}
	strictFlag = &cli.BoolFlag{
		Name:  "strict",
		Usage: "Fail on the first method that does not analyze",
	}
	maxStepsFlag = &cli.IntFlag{
		Name:  "max-steps",
		Usage: "Global loop cap for decoding and block coalescing",
	}
	jobsFlag = &cli.IntFlag{
		Name:  "jobs",
		Usage: "Methods analyzed in parallel",
	}
	switchEdgesFlag = &cli.StringFlag{
		Name:  "switch-edges",
		Usage: "Switch handling in flow graphs: expand or reject",
	}
	colorFlag = &cli.StringFlag{
		Name:  "color",
		Usage: "Colorize listings: auto, always or never",
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level: debug, info, warn or error",
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format: text or json (default: text on a terminal)",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Print per-class progress to stderr",
	}
	outFlag = &cli.StringFlag{
		Name:  "out",
		Usage: "Output directory",
	}
	themeFlag = &cli.StringFlag{
		Name:  "theme",
		Usage: "Graph theme: nasa or dark",
	}

	analysisFlags = []cli.Flag{
		configFlag,
		strictFlag,
		maxStepsFlag,
		jobsFlag,
		switchEdgesFlag,
		colorFlag,
		logLevelFlag,
		logFormatFlag,
		verboseFlag,
	}
)

// settings is the merged view of the config file and the command line.
type settings struct {
	cfg     config.Config
	analyze report.Options
	colors  *report.Colors
	theme   render.Theme
	verbose bool
}

func (s *settings) strict() bool { return s.analyze.Mode == diag.ModeStrict }

// loadSettings reads --config, applies the flags set on the command line
// over it and installs the logger.
func loadSettings(ctx *cli.Context) (*settings, error) {
	cfg, err := config.Load(ctx.String(configFlag.Name))
	if err != nil {
		return nil, err
	}
	if ctx.Bool(strictFlag.Name) {
		cfg.Mode = diag.ModeStrict.String()
	}
	if ctx.IsSet(maxStepsFlag.Name) {
		cfg.MaxSteps = ctx.Int(maxStepsFlag.Name)
	}
	if ctx.IsSet(jobsFlag.Name) {
		cfg.Jobs = ctx.Int(jobsFlag.Name)
	}
	for name, dst := range map[string]*string{
		switchEdgesFlag.Name: &cfg.SwitchEdges,
		colorFlag.Name:       &cfg.Color,
		logLevelFlag.Name:    &cfg.Log.Level,
		logFormatFlag.Name:   &cfg.Log.Format,
		themeFlag.Name:       &cfg.Theme,
		outFlag.Name:         &cfg.Output.Dir,
	} {
		if ctx.IsSet(name) {
			*dst = ctx.String(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("flags: %w", err)
	}

	if _, err := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr); err != nil {
		return nil, err
	}

	s := &settings{cfg: cfg, verbose: ctx.Bool(verboseFlag.Name)}
	if s.analyze.Options, err = cfg.Options(); err != nil {
		return nil, err
	}
	if s.analyze.Switches, err = flow.ParseSwitchMode(cfg.SwitchEdges); err != nil {
		return nil, err
	}
	s.analyze.Jobs = cfg.Jobs
	if s.analyze.Types, err = descriptor.NewCache(cfg.CacheSize); err != nil {
		return nil, fmt.Errorf("descriptor cache: %w", err)
	}
	on, err := report.ColorEnabled(cfg.Color)
	if err != nil {
		return nil, err
	}
	s.colors = report.NewColors(on)
	if s.theme, err = render.ThemeByName(cfg.Theme); err != nil {
		return nil, err
	}
	return s, nil
}
