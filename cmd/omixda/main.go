// SPDX-License-Identifier: MIT

// Command omixda integrates omics blocks measured on the same samples into a
// sparse multi-block discriminant model and cross-validates it.
//
// Usage:
//
//	omixda -config run.yaml [-seed N] [-workers N] [-folds K] [-repeats R]
//	       [-components C] [-no-cv] [-metrics-out file.prom] [-log-level debug]
//
// Relative paths in the configuration are resolved against its directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/katalvlaran/omixda/config"
)

// errUsage marks command-line mistakes; main exits with 2 for them.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("omixda: %v", err))
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// flags holds the command-line overrides; zero values leave the file alone.
type flags struct {
	config     string
	seed       int64
	workers    int
	folds      int
	repeats    int
	components int
	noCV       bool
	metricsOut string
	logLevel   string
	noColor    bool
}

func parseFlags(args []string, stderr io.Writer) (flags, map[string]bool, error) {
	var f flags
	fs := flag.NewFlagSet("omixda", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.config, "config", "", "YAML run configuration (required)")
	fs.Int64Var(&f.seed, "seed", 0, "cross-validation seed")
	fs.IntVar(&f.workers, "workers", 0, "parallel cross-validation jobs")
	fs.IntVar(&f.folds, "folds", 0, "cross-validation folds")
	fs.IntVar(&f.repeats, "repeats", 0, "cross-validation repeats")
	fs.IntVar(&f.components, "components", 0, "latent components")
	fs.BoolVar(&f.noCV, "no-cv", false, "skip cross-validation")
	fs.StringVar(&f.metricsOut, "metrics-out", "", "write metrics in text exposition format to this file")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	fs.BoolVar(&f.noColor, "no-color", false, "disable coloured output")
	if err := fs.Parse(args); err != nil {
		return f, nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if f.config == "" {
		return f, nil, fmt.Errorf("%w: -config is required", errUsage)
	}
	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })

	return f, set, nil
}

// apply copies the explicitly set flags over cfg and revalidates it.
func (f flags) apply(cfg *config.Config, set map[string]bool) error {
	if set["seed"] {
		cfg.CrossVal.Seed = f.seed
	}
	if set["workers"] {
		cfg.CrossVal.Workers = f.workers
	}
	if set["folds"] {
		cfg.CrossVal.Folds = f.folds
	}
	if set["repeats"] {
		cfg.CrossVal.Repeats = f.repeats
	}
	if set["components"] {
		cfg.Model.Components = f.components
	}
	if f.noCV {
		cfg.CrossVal.Enabled = false
	}
	if set["metrics-out"] {
		cfg.Output.Metrics = f.metricsOut
	}
	if set["log-level"] {
		cfg.Log.Level = f.logLevel
	}

	return cfg.Validate()
}

func newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	lvl, _ := cfg.LogLevel()
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	f, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if f.noColor {
		color.NoColor = true
	}
	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	if err := f.apply(&cfg, set); err != nil {
		return err
	}
	resolvePaths(&cfg, f.config)

	log := newLogger(cfg, stderr)
	out, err := newPipeline(cfg, log).run(ctx)
	if err != nil {
		return err
	}
	for _, w := range out.warnings {
		log.Warn(w.Detail, "kind", w.Kind.String(), "block", w.Block)
	}
	printSummary(stdout, out)

	return nil
}
