// SPDX-License-Identifier: MIT
// Package: matrix
//
// Purpose:
//   - Provide small, private element-wise and broadcast kernels (ew*) so the
//     statistics and sanitizing entry points share one tight loop each.
//   - Public API reaches them through thin wrappers (impl_statistics.go, api.go).
//
// Determinism & Performance:
//   - Fixed flat 0..n-1 or i→j loop orders on row-major buffers.
//   - No hidden allocations beyond the output Dense; O(r*c) time and space.

package matrix

// ewBroadcastSubCols computes out[i,j] = X[i,j] - colMeans[j].
// Missing entries stay missing (NaN arithmetic); the output inherits X's policy.
// Time: O(r*c). Space: O(r*c).
func ewBroadcastSubCols(X Matrix, colMeans []float64) (*Dense, error) {
	d, err := toDense(X)
	if err != nil {
		return nil, matrixErrorf("broadcastSubCols", err)
	}
	if len(colMeans) != d.c {
		return nil, matrixErrorf("broadcastSubCols", ErrDimensionMismatch)
	}
	out := d.clone()
	var i, j, base int
	for i = 0; i < d.r; i++ {
		base = i * d.c
		for j = 0; j < d.c; j++ {
			out.data[base+j] -= colMeans[j]
		}
	}

	return out, nil
}

// ewScaleCols computes out[i,j] = X[i,j] * scale[j].
// Use factors 1/sd for z-scoring and 0 for degenerate columns.
// Time: O(r*c). Space: O(r*c).
func ewScaleCols(X Matrix, scale []float64) (*Dense, error) {
	d, err := toDense(X)
	if err != nil {
		return nil, matrixErrorf("scaleCols", err)
	}
	if len(scale) != d.c {
		return nil, matrixErrorf("scaleCols", ErrDimensionMismatch)
	}
	out := d.clone()
	var i, j, base int
	for i = 0; i < d.r; i++ {
		base = i * d.c
		for j = 0; j < d.c; j++ {
			out.data[base+j] *= scale[j]
		}
	}

	return out, nil
}

// ewReplaceMissingCols copies X replacing each missing entry in column j by fill[j].
// Every fill value must be finite. Returns the number of replaced cells.
// Time: O(r*c). Space: O(r*c).
func ewReplaceMissingCols(X Matrix, fill []float64) (*Dense, int, error) {
	d, err := toDense(X)
	if err != nil {
		return nil, 0, matrixErrorf("ReplaceMissing", err)
	}
	if len(fill) != d.c {
		return nil, 0, matrixErrorf("ReplaceMissing", ErrDimensionMismatch)
	}
	for _, v := range fill {
		if isNonFinite(v) {
			return nil, 0, matrixErrorf("ReplaceMissing", ErrNaNInf)
		}
	}
	out := d.clone()
	var replaced int
	for idx, v := range out.data {
		if IsMissing(v) {
			out.data[idx] = fill[idx%d.c]
			replaced++
		}
	}

	return out, replaced, nil
}
