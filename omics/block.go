// SPDX-License-Identifier: MIT

package omics

import (
	"fmt"
	"math"

	"github.com/katalvlaran/omixda/matrix"
)

// Block is one modality's sample×feature matrix.
// Rows follow Samples, columns follow Features. Missing entries hold the
// matrix.Missing marker; ±Inf is never stored.
// A Block is treated as immutable: projections return new Blocks.
type Block struct {
	Name     string
	Samples  []string
	Features []string
	Data     *matrix.Dense
}

// NewBlock builds a Block from a row-major buffer (copied).
// Errors are *EntryError wrapping ErrMalformedBlock and name the offending cell.
func NewBlock(name string, samples, features []string, data []float64) (*Block, error) {
	r, c := len(samples), len(features)
	if r == 0 || c == 0 {
		return nil, &EntryError{Block: name, Row: -1, Col: -1,
			Err: fmt.Errorf("%w: %d samples × %d features", ErrMalformedBlock, r, c)}
	}
	if len(data) != r*c {
		return nil, &EntryError{Block: name, Row: -1, Col: -1,
			Err: fmt.Errorf("%w: %d values for %d×%d", ErrMalformedBlock, len(data), r, c)}
	}
	for idx, v := range data {
		if math.IsInf(v, 0) {
			return nil, &EntryError{Block: name, Row: idx / c, Col: idx % c,
				Err: fmt.Errorf("%w: infinite value", ErrMalformedBlock)}
		}
	}
	d, err := matrix.NewDenseFrom(r, c, data, matrix.WithAllowMissing())
	if err != nil {
		return nil, &EntryError{Block: name, Row: -1, Col: -1, Err: fmt.Errorf("%w: %v", ErrMalformedBlock, err)}
	}

	return NewBlockFromDense(name, samples, features, d)
}

// NewBlockFromDense wraps an existing matrix after checking label lengths and
// feature-label uniqueness. The matrix is not copied.
func NewBlockFromDense(name string, samples, features []string, d *matrix.Dense) (*Block, error) {
	if d == nil {
		return nil, &EntryError{Block: name, Row: -1, Col: -1, Err: fmt.Errorf("%w: nil data", ErrMalformedBlock)}
	}
	if d.Rows() != len(samples) || d.Cols() != len(features) {
		return nil, &EntryError{Block: name, Row: -1, Col: -1,
			Err: fmt.Errorf("%w: data %d×%d, labels %d×%d", ErrMalformedBlock, d.Rows(), d.Cols(), len(samples), len(features))}
	}
	seen := make(map[string]int, len(features))
	for j, f := range features {
		if first, dup := seen[f]; dup {
			return nil, &EntryError{Block: name, Row: -1, Col: j,
				Err: fmt.Errorf("%w: feature %q repeats column %d", ErrMalformedBlock, f, first)}
		}
		seen[f] = j
	}

	return &Block{
		Name:     name,
		Samples:  append([]string(nil), samples...),
		Features: append([]string(nil), features...),
		Data:     d,
	}, nil
}

// NumSamples returns the row count.
func (b *Block) NumSamples() int { return len(b.Samples) }

// NumFeatures returns the column count.
func (b *Block) NumFeatures() int { return len(b.Features) }

// Project returns a new Block holding rows[i] and cols[j] of b, in that order.
func (b *Block) Project(rows, cols []int) (*Block, error) {
	if b == nil {
		return nil, ErrNilBlock
	}
	d, err := b.Data.Induced(rows, cols)
	if err != nil {
		return nil, fmt.Errorf("project %q: %w", b.Name, err)
	}
	samples := make([]string, len(rows))
	for i, r := range rows {
		samples[i] = b.Samples[r]
	}
	features := make([]string, len(cols))
	for j, c := range cols {
		features[j] = b.Features[c]
	}

	return &Block{Name: b.Name, Samples: samples, Features: features, Data: d}, nil
}

// WithSamples returns a shallow copy of b carrying new row labels.
func (b *Block) WithSamples(samples []string) (*Block, error) {
	if len(samples) != b.NumSamples() {
		return nil, &EntryError{Block: b.Name, Row: -1, Col: -1,
			Err: fmt.Errorf("%w: %d labels for %d rows", ErrMalformedBlock, len(samples), b.NumSamples())}
	}
	cp := *b
	cp.Samples = append([]string(nil), samples...)

	return &cp, nil
}

// AllRows returns 0..n-1, handy for Project.
func (b *Block) AllRows() []int { return seq(b.NumSamples()) }

// AllCols returns 0..p-1, handy for Project.
func (b *Block) AllCols() []int { return seq(b.NumFeatures()) }

// FirstMissing reports the first missing cell as an *EntryError, or nil.
// Matrices that cannot hold the missing marker are not scanned.
func (b *Block) FirstMissing() error {
	if !b.Data.AllowsMissing() {
		return nil
	}
	if i, j, found := b.Data.FirstMissing(); found {
		return &EntryError{Block: b.Name, Row: i, Col: j, Err: matrix.ErrMissing}
	}

	return nil
}

// ImputeColumnMeans replaces missing entries by their column mean and records
// a WarnImputed warning when anything was replaced.
func (b *Block) ImputeColumnMeans(ws *Warnings) (*Block, error) {
	d, n, err := matrix.ImputeColumnMeans(b.Data)
	if err != nil {
		return nil, fmt.Errorf("impute %q: %w", b.Name, err)
	}
	if n > 0 && ws != nil {
		ws.Addf(WarnImputed, b.Name, "%d missing entries replaced by column means", n)
	}
	cp := *b
	cp.Data = d

	return &cp, nil
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}

	return out
}
