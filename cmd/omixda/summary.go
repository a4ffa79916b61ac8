// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/katalvlaran/omixda/omics"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
)

// printSummary renders the terminal report of one run.
func printSummary(w io.Writer, out *outcome) {
	ds, m := out.dataset, out.model

	fmt.Fprintln(w, cyan("=== omixda ==="))
	fmt.Fprintf(w, "samples: %d  classes: %s\n", ds.NumSamples(), strings.Join(m.Classes, ", "))
	for _, b := range ds.Blocks {
		fmt.Fprintf(w, "  block %-12s %d features\n", b.Name, b.NumFeatures())
	}

	fmt.Fprintln(w, cyan("components:"))
	for h := 0; h < m.Components; h++ {
		status := green("converged")
		if !m.Converged[h] {
			status = yellow("iteration cap")
		}
		fmt.Fprintf(w, "  comp%d  %3d iterations  %s\n", h+1, m.Iterations[h], status)
	}
	fmt.Fprintf(w, "training accuracy (%s): %s\n", out.rule, rate(out.accuracy, true))

	if rep := out.report; rep != nil {
		fmt.Fprintln(w, cyan(fmt.Sprintf("cross-validation %s (%d folds x %d repeats, seed %d):",
			rep.RunID, rep.Folds, rep.Repeats, rep.Seed)))
		fmt.Fprintf(w, "  %-5s %-17s %-18s %s\n", "comp", "rule", "error ± sd", "BER")
		for _, e := range rep.Entries {
			fmt.Fprintf(w, "  %-5d %-17s %s ± %.3f   %s\n",
				e.Components, e.Rule, rate(e.ErrorRate, false), e.SD, rate(e.BER, false))
		}
	}

	if len(out.warnings) > 0 {
		fmt.Fprintln(w, yellow(fmt.Sprintf("warnings: %d", len(out.warnings))))
		for _, k := range warningKinds(out.warnings) {
			fmt.Fprintf(w, "  %-18s %d\n", k, out.warnings.Count(k))
		}
	}
	fmt.Fprintf(w, "done in %s\n", out.elapsed.Round(time.Millisecond))
}

// rate colours an accuracy (higher is better) or an error rate.
func rate(v float64, accuracy bool) string {
	s := fmt.Sprintf("%.3f", v)
	good := v <= 0.2
	if accuracy {
		good = v >= 0.8
	}
	if good {
		return green(s)
	}

	return red(s)
}

// warningKinds lists the distinct kinds in first-seen order.
func warningKinds(ws omics.Warnings) []omics.WarningKind {
	seen := make(map[omics.WarningKind]bool)
	var kinds []omics.WarningKind
	for _, w := range ws {
		if !seen[w.Kind] {
			seen[w.Kind] = true
			kinds = append(kinds, w.Kind)
		}
	}

	return kinds
}
