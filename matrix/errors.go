// SPDX-License-Identifier: MIT
// Package matrix: sentinel error set.
// Kernels return these sentinels (optionally wrapped with an operation tag via
// matrixErrorf) and tests check them via errors.Is. No kernel panics on
// user-triggered conditions.

package matrix

import "errors"

// Every message is prefixed with "matrix: ..." so it can be grepped in logs.
// Wrap with fmt.Errorf("ctx: %w", ErrX) at outer boundaries only.

var (
	// ErrInvalidDimensions indicates that requested matrix dimensions are non-positive.
	ErrInvalidDimensions = errors.New("matrix: dimensions must be > 0")

	// ErrBadShape is returned when a raw buffer does not match the requested shape.
	ErrBadShape = errors.New("matrix: invalid shape")

	// ErrOutOfRange indicates that a row or column index is outside valid bounds.
	ErrOutOfRange = errors.New("matrix: index out of range")

	// ErrDimensionMismatch indicates incompatible operand dimensions.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNonSquare signals that a square matrix was required.
	ErrNonSquare = errors.New("matrix: matrix is not square")

	// ErrNaNInf signals a NaN or ±Inf value where the numeric policy forbids it.
	ErrNaNInf = errors.New("matrix: NaN or Inf encountered")

	// ErrMissing signals a missing-value marker in a kernel that needs complete data.
	ErrMissing = errors.New("matrix: missing value encountered")

	// ErrNilMatrix indicates that a nil Matrix (receiver or argument) was used.
	ErrNilMatrix = errors.New("matrix: nil matrix")

	// ErrSingular is returned when a zero pivot is met during LU or inversion.
	ErrSingular = errors.New("matrix: singular matrix")
)
