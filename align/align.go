// SPDX-License-Identifier: MIT

// Package align reconciles sample identifiers across omics blocks and a label
// table into one canonical, ordered sample set.
//
// Algorithm:
//  1. Build, once per block, an ordered index prefix → row. When two rows of a
//     block share a comparison prefix the first row wins and a
//     WarnDuplicateSample warning is recorded.
//  2. Discard label entries whose class is missing, then index the rest by
//     prefix (first labelled entry wins).
//  3. Intersect the prefix sets of all blocks, then with the labelled prefixes.
//  4. Sort the intersection lexicographically: the canonical order is a pure
//     function of the prefix set, so re-aligning the output is a no-op.
//  5. Project every block's rows into canonical order and relabel them with
//     the prefix; reorder labels identically.
//
// Complexity: O(Σ rows + |L| + k log k + Σ k·p) for k common samples.
package align

import (
	"errors"
	"fmt"
	"sort"

	"github.com/katalvlaran/omixda/omics"
)

var (
	// ErrTooFewBlocks reports fewer than two input blocks.
	ErrTooFewBlocks = errors.New("align: at least two blocks are required")

	// ErrNoCommonSamples reports an empty intersection of sample prefixes.
	ErrNoCommonSamples = errors.New("align: no common samples")

	// ErrMissingAllLabels reports that every common sample lacks a class.
	ErrMissingAllLabels = errors.New("align: every common sample lacks a class")
)

// Options configures alignment.
type Options struct {
	// PrefixLen is the comparison-prefix length; <= 0 compares whole ids.
	PrefixLen int
	// MissingTokens are class strings treated as "no class" ("" always is).
	MissingTokens []string
}

// DefaultOptions returns PrefixLen = omics.DefaultPrefixLen and the default NA tokens.
func DefaultOptions() Options {
	return Options{PrefixLen: omics.DefaultPrefixLen, MissingTokens: omics.DefaultMissingTokens}
}

// Result is the aligned dataset plus the recoverable conditions met on the way.
type Result struct {
	Dataset  *omics.AlignedDataset
	Warnings omics.Warnings
}

// prefixIndex is the explicit ordered index built once per source.
type prefixIndex struct {
	order []string       // prefixes in first-seen order
	pos   map[string]int // prefix → row of first occurrence
}

func buildIndex(b *omics.Block, n int, ws *omics.Warnings) prefixIndex {
	idx := prefixIndex{pos: make(map[string]int, b.NumSamples())}
	for row, id := range b.Samples {
		p := omics.Prefix(id, n)
		if first, dup := idx.pos[p]; dup {
			ws.Addf(omics.WarnDuplicateSample, b.Name,
				"row %d (%q) collapses onto row %d by prefix %q; keeping row %d", row, id, first, p, first)
			continue
		}
		idx.pos[p] = row
		idx.order = append(idx.order, p)
	}

	return idx
}

// Align produces the AlignedDataset of blocks and labels.
//
// Errors:
//   - ErrTooFewBlocks, omics.ErrNilBlock;
//   - *omics.EntryError wrapping omics.ErrMalformedBlock when labels has
//     unequal IDs and Classes, naming the first unpaired entry;
//   - ErrNoCommonSamples when the blocks share no prefix;
//   - ErrMissingAllLabels when common samples exist but none has a class.
func Align(blocks []*omics.Block, labels omics.LabelVector, opts Options) (*Result, error) {
	if len(blocks) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewBlocks, len(blocks))
	}
	if len(labels.IDs) != len(labels.Classes) {
		return nil, &omics.EntryError{Block: "labels", Row: min(len(labels.IDs), len(labels.Classes)), Col: -1,
			Err: fmt.Errorf("%w: %d ids, %d classes", omics.ErrMalformedBlock, len(labels.IDs), len(labels.Classes))}
	}
	res := &Result{}

	// Stage 1: per-block prefix indices.
	indices := make([]prefixIndex, len(blocks))
	for k, b := range blocks {
		if b == nil {
			return nil, fmt.Errorf("align: block %d: %w", k, omics.ErrNilBlock)
		}
		indices[k] = buildIndex(b, opts.PrefixLen, &res.Warnings)
	}

	// Stage 2: labelled prefixes, missing classes dropped first.
	classOf := make(map[string]string, labels.Len())
	for i, id := range labels.IDs {
		class := labels.Classes[i]
		if omics.IsMissingClass(class, opts.MissingTokens) {
			continue
		}
		p := omics.Prefix(id, opts.PrefixLen)
		if prev, dup := classOf[p]; dup {
			res.Warnings.Addf(omics.WarnDuplicateLabel, "labels",
				"entry %d (%q → %q) shares prefix %q; keeping class %q", i, id, class, p, prev)
			continue
		}
		classOf[p] = class
	}

	// Stage 3: intersection across blocks, then with labels.
	var common, labelled []string
	for _, p := range indices[0].order {
		inAll := true
		for k := 1; k < len(indices); k++ {
			if _, ok := indices[k].pos[p]; !ok {
				inAll = false
				break
			}
		}
		if !inAll {
			continue
		}
		common = append(common, p)
		if _, ok := classOf[p]; ok {
			labelled = append(labelled, p)
		}
	}
	if len(common) == 0 {
		return nil, ErrNoCommonSamples
	}
	if len(labelled) == 0 {
		return nil, fmt.Errorf("%w: %d common samples", ErrMissingAllLabels, len(common))
	}

	// Stage 4: canonical order.
	sort.Strings(labelled)

	// Stage 5: project rows.
	ds := &omics.AlignedDataset{
		Samples: labelled,
		Labels:  make([]string, len(labelled)),
		Blocks:  make([]*omics.Block, len(blocks)),
	}
	for i, p := range labelled {
		ds.Labels[i] = classOf[p]
	}
	for k, b := range blocks {
		rows := make([]int, len(labelled))
		for i, p := range labelled {
			rows[i] = indices[k].pos[p]
		}
		pb, err := b.Project(rows, b.AllCols())
		if err != nil {
			return nil, fmt.Errorf("align: %w", err)
		}
		if pb, err = pb.WithSamples(labelled); err != nil {
			return nil, fmt.Errorf("align: %w", err)
		}
		ds.Blocks[k] = pb
	}
	res.Dataset = ds

	return res, nil
}
