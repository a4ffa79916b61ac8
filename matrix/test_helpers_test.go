// SPDX-License-Identifier: MIT
// Package matrix_test contains test helpers.
//
// Purpose:
//   - Provide small, deterministic fixtures and utilities for kernel tests.

package matrix_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/omixda/matrix"
)

// hide wraps any Matrix to hide its concrete type from type assertions,
// forcing the non-*Dense (materializing) path in the code under test.
type hide struct{ matrix.Matrix }

// NewFilledDense allocates an r×c *Dense from a row-major slice or fails the test.
func NewFilledDense(t *testing.T, r, c int, vals []float64, opts ...matrix.Option) *matrix.Dense {
	t.Helper()
	m, err := matrix.NewDenseFrom(r, c, vals, opts...)
	require.NoError(t, err)

	return m
}

// MustAt reads (i,j) or fails the test.
func MustAt(t *testing.T, m matrix.Matrix, i, j int) float64 {
	t.Helper()
	v, err := m.At(i, j)
	require.NoError(t, err)

	return v
}

// CompareClose asserts a and b agree element-wise within rtol/atol.
func CompareClose(t *testing.T, a, b matrix.Matrix, rtol, atol float64) {
	t.Helper()
	require.Equal(t, a.Rows(), b.Rows())
	require.Equal(t, a.Cols(), b.Cols())
	for i := 0; i < a.Rows(); i++ {
		for j := 0; j < a.Cols(); j++ {
			x, y := MustAt(t, a, i, j), MustAt(t, b, i, j)
			require.LessOrEqualf(t, math.Abs(x-y), atol+rtol*math.Abs(y),
				"entry (%d,%d):\n%v\nvs\n%v", i, j, a, b)
		}
	}
}

// sliceClose asserts two slices agree element-wise within atol.
func sliceClose(t *testing.T, got, want []float64, atol float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.Abs(got[i]-want[i]) > atol {
			t.Fatalf("index %d: got %g want %g", i, got[i], want[i])
		}
	}
}
