// SPDX-License-Identifier: MIT

// Package matrix - Dense storage (row-major) & safe accessors.
//
// Purpose:
//   - Provide a cache-friendly row-major buffer with the explicit index formula i*cols + j.
//   - Guarantee safety at the public surface: At/Set return errors instead of panicking.
//   - Support copy-based row/column projection (Induced), which is how blocks are
//     aligned to a canonical sample order and restricted to selected features.
//   - Enforce the numeric policy (finite-only, optionally NaN-as-missing) from a single place.
//
// Complexity quicksheet:
//   - NewDense: O(r*c) zero-init; At/Set: O(1); Clone: O(r*c); Induced: O(r'*c').

package matrix

import (
	"fmt"
	"math"
	"strings"
)

// ---------- error context tags ----------

const (
	ctxAt     = "At"
	ctxSet    = "Set"
	ctxFrom   = "NewDenseFrom"
	ctxInduce = "Induced"
	ctxRow    = "Row"
	ctxCol    = "Col"
)

const (
	_fmtRowOpen  = "["
	_fmtRowClose = "]\n"
	_fmtSep      = ", "
)

// denseErrorf wraps an error with a uniform Dense context and callsite indices.
// Stable, human-friendly messages; preserves the sentinel via %w.
func denseErrorf(method string, row, col int, err error) error {
	return fmt.Errorf("Dense.%s(%d,%d): %w", method, row, col, err)
}

// Dense is a concrete row-major matrix.
//   - r,c hold dimensions (rows, cols).
//   - data is a flat buffer of length r*c in row-major order (offset = i*c + j).
//   - allowMissing is the numeric policy applied by Set: ±Inf is always
//     rejected, NaN only when allowMissing is false.
type Dense struct {
	r, c         int       // row and column counts (>=0; zero only via internal constructors)
	data         []float64 // contiguous row-major storage (len == r*c)
	allowMissing bool      // NaN accepted as missing marker when true
}

// Compile-time assertions for interface & fmt.Stringer conformance.
var (
	_ Matrix       = (*Dense)(nil)
	_ fmt.Stringer = (*Dense)(nil)
)

// NewDense creates an r×c zero matrix with the default (finite-only) policy.
// Implementation:
//   - Stage 1: validate rows>0 && cols>0; else ErrInvalidDimensions.
//   - Stage 2: allocate zero-filled buffer and set the default policy.
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func NewDense(rows, cols int) (*Dense, error) {
	return NewDenseWith(rows, cols)
}

// NewDenseWith creates an r×c zero matrix with an explicit numeric policy.
// Errors: ErrInvalidDimensions for non-positive shapes.
// Complexity: O(r*c).
func NewDenseWith(rows, cols int, opts ...Option) (*Dense, error) {
	if rows <= 0 || cols <= 0 {
		return nil, ErrInvalidDimensions
	}
	o := gatherOptions(opts...)

	return &Dense{
		r:            rows,
		c:            cols,
		data:         make([]float64, rows*cols),
		allowMissing: o.allowMissing,
	}, nil
}

// NewDenseFrom builds an r×c matrix from a row-major buffer (copied).
// Implementation:
//   - Stage 1: validate shape and len(data) == rows*cols.
//   - Stage 2: copy element by element, enforcing the numeric policy; the first
//     violating entry is reported with its coordinates.
//
// Errors:
//   - ErrInvalidDimensions, ErrBadShape, ErrNaNInf (wrapped with (row,col)).
//
// Complexity:
//   - Time O(r*c), Space O(r*c).
func NewDenseFrom(rows, cols int, data []float64, opts ...Option) (*Dense, error) {
	m, err := NewDenseWith(rows, cols, opts...)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("%s: len(data)=%d want %d: %w", ctxFrom, len(data), rows*cols, ErrBadShape)
	}
	var idx int
	for idx = 0; idx < len(data); idx++ {
		if !m.accepts(data[idx]) {
			return nil, denseErrorf(ctxFrom, idx/cols, idx%cols, ErrNaNInf)
		}
	}
	copy(m.data, data)

	return m, nil
}

// newDenseZeroOK is an internal constructor that allows rows==0 or cols==0.
// Used by projections that legally produce 0×N or N×0 results.
func newDenseZeroOK(rows, cols int) (*Dense, error) {
	if rows < 0 || cols < 0 {
		return nil, ErrInvalidDimensions
	}

	return &Dense{
		r:            rows,
		c:            cols,
		data:         make([]float64, rows*cols),
		allowMissing: DefaultAllowMissing,
	}, nil
}

// Rows returns the row count. Complexity: O(1).
func (m *Dense) Rows() int { return m.r }

// Cols returns the column count. Complexity: O(1).
func (m *Dense) Cols() int { return m.c }

// Shape packs Rows() and Cols() into a single call for convenience.
func (m *Dense) Shape() (rows, cols int) { return m.r, m.c }

// AllowsMissing reports whether this matrix may hold the missing marker.
func (m *Dense) AllowsMissing() bool { return m.allowMissing }

// accepts applies the numeric policy to a single value.
func (m *Dense) accepts(v float64) bool {
	if math.IsInf(v, 0) {
		return false
	}
	if math.IsNaN(v) {
		return m.allowMissing
	}

	return true
}

// indexOf computes the row-major offset or returns ErrOutOfRange.
// Public methods wrap the sentinel with coordinates and method name.
func (m *Dense) indexOf(row, col int) (int, error) {
	if row < 0 || row >= m.r {
		return 0, ErrOutOfRange
	}
	if col < 0 || col >= m.c {
		return 0, ErrOutOfRange
	}

	return row*m.c + col, nil
}

// At returns the value at (row, col) or ErrOutOfRange.
// Complexity: O(1).
func (m *Dense) At(row, col int) (float64, error) {
	off, err := m.indexOf(row, col)
	if err != nil {
		return 0, denseErrorf(ctxAt, row, col, err)
	}

	return m.data[off], nil
}

// Set stores v at (row, col) or returns an error (bounds or numeric policy).
// Errors: ErrOutOfRange for bounds; ErrNaNInf when the policy rejects v.
// Complexity: O(1).
func (m *Dense) Set(row, col int, v float64) error {
	off, err := m.indexOf(row, col)
	if err != nil {
		return denseErrorf(ctxSet, row, col, err)
	}
	if !m.accepts(v) {
		return denseErrorf(ctxSet, row, col, ErrNaNInf)
	}
	m.data[off] = v

	return nil
}

// Clone returns a deep copy (new buffer, same numeric policy).
// Complexity: O(r*c).
func (m *Dense) Clone() Matrix {
	return m.clone()
}

func (m *Dense) clone() *Dense {
	cp := make([]float64, len(m.data))
	copy(cp, m.data)

	return &Dense{
		r:            m.r,
		c:            m.c,
		data:         cp,
		allowMissing: m.allowMissing,
	}
}

// Row returns a copy of row i.
// Errors: ErrOutOfRange. Complexity: O(c).
func (m *Dense) Row(i int) ([]float64, error) {
	if i < 0 || i >= m.r {
		return nil, denseErrorf(ctxRow, i, 0, ErrOutOfRange)
	}
	out := make([]float64, m.c)
	copy(out, m.data[i*m.c:(i+1)*m.c])

	return out, nil
}

// Col returns a copy of column j.
// Errors: ErrOutOfRange. Complexity: O(r).
func (m *Dense) Col(j int) ([]float64, error) {
	if j < 0 || j >= m.c {
		return nil, denseErrorf(ctxCol, 0, j, ErrOutOfRange)
	}
	out := make([]float64, m.r)
	for i := 0; i < m.r; i++ {
		out[i] = m.data[i*m.c+j]
	}

	return out, nil
}

// FirstMissing scans in i→j order and reports the first missing entry.
// Complexity: O(r*c) worst case.
func (m *Dense) FirstMissing() (row, col int, found bool) {
	for idx, v := range m.data {
		if IsMissing(v) {
			return idx / m.c, idx % m.c, true
		}
	}

	return 0, 0, false
}

// String renders rows as comma-separated lines for diagnostics.
// Not for hot paths. Complexity: O(r*c).
func (m *Dense) String() string {
	var b strings.Builder
	var i, j, base int
	for i = 0; i < m.r; i++ {
		b.WriteString(_fmtRowOpen)
		base = i * m.c
		for j = 0; j < m.c; j++ {
			b.WriteString(fmt.Sprintf("%g", m.data[base+j]))
			if j+1 < m.c {
				b.WriteString(_fmtSep)
			}
		}
		b.WriteString(_fmtRowClose)
	}

	return b.String()
}

// Induced materializes a copy submatrix using explicit index sets.
// Implementation:
//   - Stage 1: handle zero-sized result (legal).
//   - Stage 2: allocate result and preserve the base numeric policy.
//   - Stage 3: nested loops with direct offset math; bounds-check each index.
//
// Behavior highlights:
//   - Duplicates in index sets are allowed (repeated rows/cols in the result).
//   - The result is independent of m; this is the projection used to reorder
//     block rows into canonical sample order and to keep selected columns.
//
// Errors:
//   - ErrOutOfRange (index outside bounds).
//
// Complexity:
//   - Time O(rp*cp), Space O(rp*cp).
func (m *Dense) Induced(rowsIdx, colsIdx []int) (*Dense, error) {
	rp, cp := len(rowsIdx), len(colsIdx)
	res, err := newDenseZeroOK(rp, cp)
	if err != nil {
		return nil, err
	}
	res.allowMissing = m.allowMissing

	var i, j, ri, cj int
	for i = 0; i < rp; i++ {
		ri = rowsIdx[i]
		if ri < 0 || ri >= m.r {
			return nil, fmt.Errorf("Dense.%s: row index %d: %w", ctxInduce, ri, ErrOutOfRange)
		}
		for j = 0; j < cp; j++ {
			cj = colsIdx[j]
			if cj < 0 || cj >= m.c {
				return nil, fmt.Errorf("Dense.%s: col index %d: %w", ctxInduce, cj, ErrOutOfRange)
			}
			res.data[i*cp+j] = m.data[ri*m.c+cj]
		}
	}

	return res, nil
}

// Do calls f for every element in i→j order until f returns false.
// Complexity: O(r*c).
func (m *Dense) Do(f func(i, j int, v float64) bool) {
	var i, j int
	for i = 0; i < m.r; i++ {
		for j = 0; j < m.c; j++ {
			if !f(i, j, m.data[i*m.c+j]) {
				return
			}
		}
	}
}
