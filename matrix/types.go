// SPDX-License-Identifier: MIT

// Package matrix: the Matrix abstraction and the missing-value marker.
package matrix

import "math"

// Matrix represents a two-dimensional mutable array of float64 values.
// Kernels accept any implementation and unlock flat-slice fast paths for *Dense.
//
// Complexity notes: all methods are expected O(1) except Clone (O(r*c)).
type Matrix interface {
	// Rows returns the number of rows in the matrix.
	Rows() int

	// Cols returns the number of columns in the matrix.
	Cols() int

	// At retrieves the element at position (i, j).
	// Returns ErrOutOfRange if the indices are invalid.
	At(i, j int) (float64, error)

	// Set assigns the value v at position (i, j).
	// Returns ErrOutOfRange for invalid indices and ErrNaNInf when the
	// numeric policy rejects v.
	Set(i, j int, v float64) error

	// Clone returns an independent deep copy.
	Clone() Matrix
}

// Missing returns the explicit missing-value marker (a quiet NaN).
// Blocks that allow missing entries store exactly this marker; ±Inf is never
// accepted as "missing".
func Missing() float64 { return math.NaN() }

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool { return math.IsNaN(v) }

// isNonFinite reports NaN or ±Inf.
func isNonFinite(v float64) bool { return math.IsNaN(v) || math.IsInf(v, 0) }
