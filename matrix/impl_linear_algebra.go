// SPDX-License-Identifier: MIT
// Package matrix provides universal linear-algebra kernels over any Matrix
// implementation: element-wise add/sub, products, transpose, scaling,
// matrix-vector products, rank-one deflation and LU-based inversion.
//
// Purpose:
//   - Supply the handful of kernels the block projector needs (scores X·a,
//     covariances Xᵀz, deflation X − t·pᵀ, small C×C inverses).
//   - Perform strict fail-fast validation and return wrapped sentinels.
//
// Notes:
//   - Non-*Dense operands are materialized once via toDense (At in i→j order);
//     all arithmetic then runs on flat row-major buffers.

package matrix

import "fmt"

// ZeroSum is the initial value for accumulations.
const ZeroSum = 0.0

// ZeroPivot is the sentinel for detecting a zero pivot in LU/Inverse routines.
const ZeroPivot = 0.0

// Operation name constants for unified error wrapping.
const (
	opMul       = "Mul"
	opTranspose = "Transpose"
	opScale     = "Scale"
	opMatVec    = "MatVec"
	opMatTVec   = "MatTVec"
	opSubOuter  = "SubOuter"
	opLU        = "LU"
	opInverse   = "Inverse"
)

// matrixErrorf wraps err with an operation tag, preserving it for errors.Is/As.
// Call only with err != nil.
func matrixErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}

// toDense returns m itself when it is a *Dense, otherwise a Dense copy read
// through At in deterministic i→j order. Zero-area inputs are legal.
// Complexity: O(1) for *Dense, O(r*c) otherwise.
func toDense(m Matrix) (*Dense, error) {
	if err := ValidateNotNil(m); err != nil {
		return nil, err
	}
	if d, ok := m.(*Dense); ok {
		return d, nil
	}
	r, c := m.Rows(), m.Cols()
	out, err := newDenseZeroOK(r, c)
	if err != nil {
		return nil, err
	}
	var i, j int
	var v float64
	for i = 0; i < r; i++ {
		for j = 0; j < c; j++ {
			if v, err = m.At(i, j); err != nil {
				return nil, err
			}
			out.data[i*c+j] = v
		}
	}

	return out, nil
}

// Mul returns the matrix product a × b.
// Implementation:
//   - Stage 1: ValidateMulCompatible; allocate the result.
//   - Stage 2: i→k→j loop over flat buffers, skipping zero a(i,k)
//     (sparse loading vectors make this skip worthwhile).
//
// Errors:
//   - ErrNilMatrix, ErrDimensionMismatch.
//
// Complexity:
//   - Time O(r*n*c), Space O(r*c).
func Mul(a, b Matrix) (Matrix, error) {
	if err := ValidateMulCompatible(a, b); err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	da, err := toDense(a)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	db, err := toDense(b)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}
	aRows, aCols, bCols := da.r, da.c, db.c
	res, err := newDenseZeroOK(aRows, bCols)
	if err != nil {
		return nil, matrixErrorf(opMul, err)
	}

	var i, j, k, rowA, rowB, rowR int
	var av float64
	for i = 0; i < aRows; i++ {
		rowA = i * aCols
		rowR = i * bCols
		for k = 0; k < aCols; k++ {
			av = da.data[rowA+k]
			if av == 0 {
				continue
			}
			rowB = k * bCols
			for j = 0; j < bCols; j++ {
				res.data[rowR+j] += av * db.data[rowB+j]
			}
		}
	}

	return res, nil
}

// Transpose returns a new matrix mᵀ. The input is never mutated.
// Complexity: O(r*c).
func Transpose(m Matrix) (Matrix, error) {
	d, err := toDense(m)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	res, err := newDenseZeroOK(d.c, d.r)
	if err != nil {
		return nil, matrixErrorf(opTranspose, err)
	}
	var i, j int
	for i = 0; i < d.r; i++ {
		for j = 0; j < d.c; j++ {
			res.data[j*d.r+i] = d.data[i*d.c+j]
		}
	}

	return res, nil
}

// Scale returns alpha*m as a new matrix.
// Complexity: O(r*c).
func Scale(m Matrix, alpha float64) (Matrix, error) {
	d, err := toDense(m)
	if err != nil {
		return nil, matrixErrorf(opScale, err)
	}
	res := d.clone()
	for k := range res.data {
		res.data[k] *= alpha
	}

	return res, nil
}

// MatVec computes y = m·x.
// Contract: len(x) == m.Cols(). Determinism: fixed i→j loop order.
// Complexity: Time O(r*c), Space O(r).
func MatVec(m Matrix, x []float64) ([]float64, error) {
	d, err := toDense(m)
	if err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	if err = ValidateVecLen(x, d.c); err != nil {
		return nil, matrixErrorf(opMatVec, err)
	}
	y := make([]float64, d.r)
	var i, j, base int
	var acc, xv float64
	for i = 0; i < d.r; i++ {
		acc = ZeroSum
		base = i * d.c
		for j = 0; j < d.c; j++ {
			xv = x[j]
			if xv != 0 { // sparse loadings: skip exact zeros
				acc += d.data[base+j] * xv
			}
		}
		y[i] = acc
	}

	return y, nil
}

// MatTVec computes y = mᵀ·x without materializing mᵀ.
// Contract: len(x) == m.Rows(). Determinism: fixed i→j accumulation.
// Complexity: Time O(r*c), Space O(c).
func MatTVec(m Matrix, x []float64) ([]float64, error) {
	d, err := toDense(m)
	if err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	if err = ValidateVecLen(x, d.r); err != nil {
		return nil, matrixErrorf(opMatTVec, err)
	}
	y := make([]float64, d.c)
	var i, j, base int
	var xv float64
	for i = 0; i < d.r; i++ {
		xv = x[i]
		if xv == 0 {
			continue
		}
		base = i * d.c
		for j = 0; j < d.c; j++ {
			y[j] += d.data[base+j] * xv
		}
	}

	return y, nil
}

// SubOuter returns m − u·vᵀ (rank-one deflation) as a new matrix.
// Contract: len(u) == m.Rows(), len(v) == m.Cols().
// Complexity: Time O(r*c), Space O(r*c).
func SubOuter(m Matrix, u, v []float64) (*Dense, error) {
	d, err := toDense(m)
	if err != nil {
		return nil, matrixErrorf(opSubOuter, err)
	}
	if err = ValidateVecLen(u, d.r); err != nil {
		return nil, matrixErrorf(opSubOuter, err)
	}
	if err = ValidateVecLen(v, d.c); err != nil {
		return nil, matrixErrorf(opSubOuter, err)
	}
	res := d.clone()
	var i, j, base int
	var ui float64
	for i = 0; i < d.r; i++ {
		ui = u[i]
		if ui == 0 {
			continue
		}
		base = i * d.c
		for j = 0; j < d.c; j++ {
			res.data[base+j] -= ui * v[j]
		}
	}

	return res, nil
}

// LU computes the Doolittle factorization A = L*U with unit diagonal on L (no pivoting).
// Implementation:
//   - Stage 1: Validate m (not nil, square); allocate L,U; set diag(L)=1.
//   - Stage 2: For i=0..n-1, build row i of U and column i of L in fixed order.
//
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrSingular (U[i,i]==0 during factorization).
//
// Complexity:
//   - Time O(n^3), Space O(n^2).
//
// Notes:
//   - Callers invert small symmetric positive-definite systems (ridge-regularised
//     score Gram matrices), for which pivoting is unnecessary.
func LU(m Matrix) (*Dense, *Dense, error) {
	if err := ValidateSquare(m); err != nil {
		return nil, nil, matrixErrorf(opLU, err)
	}
	a, err := toDense(m)
	if err != nil {
		return nil, nil, matrixErrorf(opLU, err)
	}
	n := a.r
	L, err := newDenseZeroOK(n, n)
	if err != nil {
		return nil, nil, matrixErrorf(opLU, err)
	}
	U, err := newDenseZeroOK(n, n)
	if err != nil {
		return nil, nil, matrixErrorf(opLU, err)
	}

	var i, j, k int
	var sum float64
	for i = 0; i < n; i++ {
		L.data[i*n+i] = 1.0
		// Row i of U.
		for j = i; j < n; j++ {
			sum = ZeroSum
			for k = 0; k < i; k++ {
				sum += L.data[i*n+k] * U.data[k*n+j]
			}
			U.data[i*n+j] = a.data[i*n+j] - sum
		}
		if U.data[i*n+i] == ZeroPivot {
			return nil, nil, matrixErrorf(opLU, ErrSingular)
		}
		// Column i of L.
		for j = i + 1; j < n; j++ {
			sum = ZeroSum
			for k = 0; k < i; k++ {
				sum += L.data[j*n+k] * U.data[k*n+i]
			}
			L.data[j*n+i] = (a.data[j*n+i] - sum) / U.data[i*n+i]
		}
	}

	return L, U, nil
}

// Inverse returns A⁻¹ via LU and n triangular solves (no pivoting; deterministic).
// Errors:
//   - ErrNilMatrix, ErrNonSquare, ErrSingular.
//
// Complexity:
//   - Time O(n^3), Space O(n^2).
func Inverse(m Matrix) (*Dense, error) {
	L, U, err := LU(m)
	if err != nil {
		return nil, matrixErrorf(opInverse, err)
	}
	n := L.r
	inv, err := newDenseZeroOK(n, n)
	if err != nil {
		return nil, matrixErrorf(opInverse, err)
	}

	var col, i, k int
	var sum float64
	y := make([]float64, n)
	x := make([]float64, n)
	for col = 0; col < n; col++ {
		// Forward substitution: L*y = e_col.
		for i = 0; i < n; i++ {
			sum = ZeroSum
			for k = 0; k < i; k++ {
				sum += L.data[i*n+k] * y[k]
			}
			if i == col {
				y[i] = 1.0 - sum
			} else {
				y[i] = -sum
			}
		}
		// Backward substitution: U*x = y.
		for i = n - 1; i >= 0; i-- {
			sum = ZeroSum
			for k = i + 1; k < n; k++ {
				sum += U.data[i*n+k] * x[k]
			}
			x[i] = (y[i] - sum) / U.data[i*n+i]
		}
		for i = 0; i < n; i++ {
			inv.data[i*n+col] = x[i]
		}
	}

	return inv, nil
}
