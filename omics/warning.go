// SPDX-License-Identifier: MIT

package omics

import "fmt"

// WarningKind classifies a degraded-but-recoverable condition.
type WarningKind int

const (
	// WarnDuplicateSample: two rows of one block collapsed to the same prefix;
	// the first occurrence was kept.
	WarnDuplicateSample WarningKind = iota + 1
	// WarnDuplicateLabel: two labelled entries share a prefix; the first was kept.
	WarnDuplicateLabel
	// WarnSmallBlock: fewer columns than the requested feature count.
	WarnSmallBlock
	// WarnNonConvergence: the iterative fit hit its iteration cap.
	WarnNonConvergence
	// WarnDegenerateClass: a class with fewer than two samples.
	WarnDegenerateClass
	// WarnClassAbsentInFold: a class missing from a training fold.
	WarnClassAbsentInFold
	// WarnImputed: missing entries were replaced by column means.
	WarnImputed
)

var warningNames = map[WarningKind]string{
	WarnDuplicateSample:   "DuplicateSample",
	WarnDuplicateLabel:    "DuplicateLabel",
	WarnSmallBlock:        "SmallBlock",
	WarnNonConvergence:    "NonConvergence",
	WarnDegenerateClass:   "DegenerateClass",
	WarnClassAbsentInFold: "ClassAbsentInFold",
	WarnImputed:           "Imputed",
}

// String returns the stable name used in logs, metrics labels and reports.
func (k WarningKind) String() string {
	if s, ok := warningNames[k]; ok {
		return s
	}

	return fmt.Sprintf("WarningKind(%d)", int(k))
}

// Warning is a structured, non-fatal condition surfaced to the caller.
type Warning struct {
	Kind   WarningKind
	Block  string // block (or "labels") the condition refers to; may be empty
	Detail string
}

// String renders "Kind[block]: detail".
func (w Warning) String() string {
	if w.Block == "" {
		return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
	}

	return fmt.Sprintf("%s[%s]: %s", w.Kind, w.Block, w.Detail)
}

// Warnings is an append-only collector.
type Warnings []Warning

// Addf appends a formatted warning.
func (ws *Warnings) Addf(kind WarningKind, block, format string, args ...any) {
	*ws = append(*ws, Warning{Kind: kind, Block: block, Detail: fmt.Sprintf(format, args...)})
}

// Count returns how many warnings of kind are recorded.
func (ws Warnings) Count(kind WarningKind) int {
	n := 0
	for _, w := range ws {
		if w.Kind == kind {
			n++
		}
	}

	return n
}
