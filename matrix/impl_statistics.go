// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Provide the column statistics an omics pipeline needs: means and unbiased
//     variances over observed (non-missing) entries, centering and z-scoring.
//   - Keep tight loops centralized in ew* kernels where it improves reuse.
//
// Exposed API:
//   - ColumnMeans(X)              -> (means, observed)   // NaN-aware
//   - ColumnVariances(X)          -> variances           // unbiased; <2 observations → 0
//   - CenterColumns(X)            -> (Xc, means)
//   - Standardize(X, scale)       -> (Z, means, sds)     // sd==0 → zeroed column
//   - ApplyStandardize(X, m, sds) -> Z                   // reuse training statistics
//
// Determinism & Performance:
//   - Fixed i→j traversal for all explicit loops; operate on flat buffers.
//   - Two-pass variance (mean first, then squared deviations) for stability.

package matrix

import "math"

const (
	opColumnMeans      = "ColumnMeans"
	opColumnVariances  = "ColumnVariances"
	opCenterColumns    = "CenterColumns"
	opStandardize      = "Standardize"
	opApplyStandardize = "ApplyStandardize"
)

// ColumnMeans returns per-column means over observed entries and the count of
// observed entries per column. A fully missing column has mean 0 and count 0.
// A column whose observed entries are all equal gets that value exactly, so
// centering it yields exact zeros.
//
// Complexity:
//   - Time O(r*c), Space O(c).
func ColumnMeans(X Matrix) ([]float64, []int, error) {
	d, err := toDense(X)
	if err != nil {
		return nil, nil, matrixErrorf(opColumnMeans, err)
	}
	r, c := d.r, d.c
	means := make([]float64, c)
	counts := make([]int, c)
	first := make([]float64, c)
	varying := make([]bool, c)

	var i, j, base int
	var v float64
	for i = 0; i < r; i++ {
		base = i * c
		for j = 0; j < c; j++ {
			v = d.data[base+j]
			if IsMissing(v) {
				continue
			}
			if counts[j] == 0 {
				first[j] = v
			} else if v != first[j] {
				varying[j] = true
			}
			means[j] += v
			counts[j]++
		}
	}
	for j = 0; j < c; j++ {
		switch {
		case counts[j] > 0 && !varying[j]:
			means[j] = first[j]
		case counts[j] > 0:
			means[j] /= float64(counts[j])
		}
	}

	return means, counts, nil
}

// ColumnVariances returns the unbiased sample variance of each column,
// Σ(x−x̄)²/(n−1) over the n observed entries. Columns with fewer than two
// observations get variance 0 (no division by zero).
//
// Implementation:
//   - Stage 1: ColumnMeans (missing-aware).
//   - Stage 2: accumulate squared deviations in i→j order.
//
// Complexity:
//   - Time O(r*c), Space O(c).
func ColumnVariances(X Matrix) ([]float64, error) {
	means, counts, err := ColumnMeans(X)
	if err != nil {
		return nil, matrixErrorf(opColumnVariances, err)
	}
	d, _ := toDense(X) // validated by ColumnMeans
	r, c := d.r, d.c
	vars := make([]float64, c)

	var i, j, base int
	var dv float64
	for i = 0; i < r; i++ {
		base = i * c
		for j = 0; j < c; j++ {
			if IsMissing(d.data[base+j]) {
				continue
			}
			dv = d.data[base+j] - means[j]
			vars[j] += dv * dv
		}
	}
	for j = 0; j < c; j++ {
		if counts[j] < 2 {
			vars[j] = 0
			continue
		}
		vars[j] /= float64(counts[j] - 1)
	}

	return vars, nil
}

// CenterColumns subtracts the per-column mean from every element.
// Zero-size inputs are a strict no-op returning a zero-length means slice of
// the correct length.
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func CenterColumns(X Matrix) (*Dense, []float64, error) {
	d, err := toDense(X)
	if err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}
	if d.r == 0 || d.c == 0 {
		return d.clone(), make([]float64, d.c), nil
	}
	means, _, err := ColumnMeans(d)
	if err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}
	Xc, err := ewBroadcastSubCols(d, means)
	if err != nil {
		return nil, nil, matrixErrorf(opCenterColumns, err)
	}

	return Xc, means, nil
}

// Standardize centers every column and, when scale is true, divides by the
// column's sample standard deviation.
//
// Behavior highlights:
//   - X must be complete (ErrMissing otherwise); r ≥ 1.
//   - A column with sd == 0 (constant, or r < 2) becomes exactly zero; its
//     returned sd is 0 so ApplyStandardize reproduces the same zeroing.
//   - When scale is false the returned sds are all 1.
//
// Returns:
//   - Z (r×c), column means, column divisors (sds).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func Standardize(X Matrix, scale bool) (*Dense, []float64, []float64, error) {
	if err := ValidateComplete(X); err != nil {
		return nil, nil, nil, matrixErrorf(opStandardize, err)
	}
	Xc, means, err := CenterColumns(X)
	if err != nil {
		return nil, nil, nil, matrixErrorf(opStandardize, err)
	}
	c := Xc.c
	sds := make([]float64, c)
	inv := make([]float64, c)
	if !scale {
		for j := 0; j < c; j++ {
			sds[j], inv[j] = 1, 1
		}
		return Xc, means, sds, nil
	}
	vars, err := ColumnVariances(Xc)
	if err != nil {
		return nil, nil, nil, matrixErrorf(opStandardize, err)
	}
	for j := 0; j < c; j++ {
		sds[j] = math.Sqrt(vars[j])
		if sds[j] > 0 {
			inv[j] = 1.0 / sds[j]
		}
	}
	Z, err := ewScaleCols(Xc, inv)
	if err != nil {
		return nil, nil, nil, matrixErrorf(opStandardize, err)
	}

	return Z, means, sds, nil
}

// ApplyStandardize maps new rows into a previously fitted standardized space:
// z = (x − means[j]) / sds[j], with sds[j] == 0 yielding z = 0.
// Errors: ErrMissing, ErrDimensionMismatch.
// Complexity: O(r*c).
func ApplyStandardize(X Matrix, means, sds []float64) (*Dense, error) {
	if err := ValidateComplete(X); err != nil {
		return nil, matrixErrorf(opApplyStandardize, err)
	}
	if len(means) != X.Cols() || len(sds) != X.Cols() {
		return nil, matrixErrorf(opApplyStandardize, ErrDimensionMismatch)
	}
	Xc, err := ewBroadcastSubCols(X, means)
	if err != nil {
		return nil, matrixErrorf(opApplyStandardize, err)
	}
	inv := make([]float64, len(sds))
	for j, s := range sds {
		if s > 0 {
			inv[j] = 1.0 / s
		}
	}
	Z, err := ewScaleCols(Xc, inv)
	if err != nil {
		return nil, matrixErrorf(opApplyStandardize, err)
	}

	return Z, nil
}
