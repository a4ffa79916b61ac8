// SPDX-License-Identifier: MIT

// Package selection restricts an omics block to its most variable features.
//
// Variance is the unbiased sample variance over observed entries
// (matrix.ColumnVariances): a column with fewer than two observations, such
// as any column of a single-sample block, has variance 0. Ranking is a stable
// descending sort, so ties keep original column order. Selection is a pure
// function of its input.
package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/katalvlaran/omixda/matrix"
	"github.com/katalvlaran/omixda/omics"
)

// ErrInvalidFeatureCount reports a non-positive target feature count.
var ErrInvalidFeatureCount = errors.New("selection: feature count must be > 0")

// Ranked describes one feature's position in the variance ranking.
type Ranked struct {
	Feature  string
	Index    int // column in the input block
	Variance float64
	Rank     int // 1-based; 1 = most variable
}

// Rank orders every column of b by descending variance, ties by column index.
func Rank(b *omics.Block) ([]Ranked, error) {
	if b == nil {
		return nil, omics.ErrNilBlock
	}
	vars, err := matrix.ColumnVariances(b.Data)
	if err != nil {
		return nil, fmt.Errorf("selection: rank %q: %w", b.Name, err)
	}
	out := make([]Ranked, len(vars))
	for j, v := range vars {
		out[j] = Ranked{Feature: b.Features[j], Index: j, Variance: v}
	}
	sort.SliceStable(out, func(a, c int) bool { return out[a].Variance > out[c].Variance })
	for i := range out {
		out[i].Rank = i + 1
	}

	return out, nil
}

// Result is a reduced block plus the ranking entries of its columns, in
// the column order of Block.
type Result struct {
	Block    *omics.Block
	Selected []Ranked
	Warnings omics.Warnings
}

// TopVariance returns b restricted to the k columns of greatest variance.
//
// Behavior:
//   - k < p: the top-k columns in rank order (highest variance first).
//   - k ≥ p: all columns unchanged in original order; k > p additionally
//     records WarnSmallBlock.
//
// Errors: ErrInvalidFeatureCount, omics.ErrNilBlock.
func TopVariance(b *omics.Block, k int) (*Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFeatureCount, k)
	}
	ranking, err := Rank(b)
	if err != nil {
		return nil, err
	}
	p := b.NumFeatures()
	res := &Result{}
	if k >= p {
		if k > p {
			res.Warnings.Addf(omics.WarnSmallBlock, b.Name, "requested %d features, block has %d; keeping all", k, p)
		}
		res.Selected = make([]Ranked, p)
		for _, r := range ranking {
			res.Selected[r.Index] = r
		}
		res.Block, err = b.Project(b.AllRows(), b.AllCols())
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	res.Selected = append([]Ranked(nil), ranking[:k]...)
	cols := make([]int, k)
	for i, r := range res.Selected {
		cols[i] = r.Index
	}
	if res.Block, err = b.Project(b.AllRows(), cols); err != nil {
		return nil, err
	}

	return res, nil
}

// SelectDataset applies TopVariance to every block of ds with keep[i] features
// for block i. Rows and labels are untouched. The per-block rankings are
// returned alongside for export.
func SelectDataset(ds *omics.AlignedDataset, keep []int) (*omics.AlignedDataset, [][]Ranked, omics.Warnings, error) {
	if len(keep) != len(ds.Blocks) {
		return nil, nil, nil, fmt.Errorf("selection: %d feature counts for %d blocks: %w",
			len(keep), len(ds.Blocks), ErrInvalidFeatureCount)
	}
	var ws omics.Warnings
	blocks := make([]*omics.Block, len(ds.Blocks))
	ranked := make([][]Ranked, len(ds.Blocks))
	for i, b := range ds.Blocks {
		r, err := TopVariance(b, keep[i])
		if err != nil {
			return nil, nil, nil, err
		}
		blocks[i] = r.Block
		ranked[i] = r.Selected
		ws = append(ws, r.Warnings...)
	}

	return ds.WithBlocks(blocks), ranked, ws, nil
}
