// SPDX-License-Identifier: MIT

package matrix_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/omixda/matrix"
)

func TestMul_FastAndFallbackAgree(t *testing.T) {
	t.Parallel()

	A := NewFilledDense(t, 2, 3, []float64{1, 2, 3, 4, 5, 6})
	B := NewFilledDense(t, 3, 2, []float64{7, 8, 9, 10, 11, 12})
	want := NewFilledDense(t, 2, 2, []float64{58, 64, 139, 154})

	fast, err := matrix.Mul(A, B)
	require.NoError(t, err)
	CompareClose(t, fast, want, 0, 0)

	slow, err := matrix.Mul(hide{A}, hide{B})
	require.NoError(t, err)
	CompareClose(t, slow, want, 0, 0)

	_, err = matrix.Mul(A, A)
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
}

func TestTransposeAndScale(t *testing.T) {
	t.Parallel()

	A := NewFilledDense(t, 2, 3, []float64{1, 2, 3, 4, 5, 6})
	At, err := matrix.Transpose(A)
	require.NoError(t, err)
	CompareClose(t, At, NewFilledDense(t, 3, 2, []float64{1, 4, 2, 5, 3, 6}), 0, 0)

	S, err := matrix.Scale(hide{A}, -2)
	require.NoError(t, err)
	CompareClose(t, S, NewFilledDense(t, 2, 3, []float64{-2, -4, -6, -8, -10, -12}), 0, 0)
}

func TestMatVecAndMatTVec(t *testing.T) {
	t.Parallel()

	A := NewFilledDense(t, 2, 3, []float64{1, 2, 3, 4, 5, 6})
	y, err := matrix.MatVec(A, []float64{1, 0, -1})
	require.NoError(t, err)
	assert.Equal(t, []float64{-2, -2}, y)

	z, err := matrix.MatTVec(hide{A}, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, []float64{5, 7, 9}, z)

	_, err = matrix.MatVec(A, []float64{1})
	require.ErrorIs(t, err, matrix.ErrDimensionMismatch)
	_, err = matrix.MatTVec(A, nil)
	require.ErrorIs(t, err, matrix.ErrNilMatrix)
}

func TestSubOuter_Deflation(t *testing.T) {
	t.Parallel()

	A := NewFilledDense(t, 2, 3, []float64{1, 2, 3, 4, 5, 6})
	D, err := matrix.SubOuter(A, []float64{1, 1}, []float64{1, 2, 3})
	require.NoError(t, err)
	CompareClose(t, D, NewFilledDense(t, 2, 3, []float64{0, 0, 0, 3, 3, 3}), 0, 0)
	// Input untouched.
	assert.Equal(t, 1.0, MustAt(t, A, 0, 0))
}

func TestInverse_KnownAndSingular(t *testing.T) {
	t.Parallel()

	A := NewFilledDense(t, 2, 2, []float64{4, 7, 2, 6})
	inv, err := matrix.Inverse(A)
	require.NoError(t, err)
	CompareClose(t, inv, NewFilledDense(t, 2, 2, []float64{0.6, -0.7, -0.2, 0.4}), 0, 1e-12)

	prod, err := matrix.Mul(A, inv)
	require.NoError(t, err)
	CompareClose(t, prod, NewFilledDense(t, 2, 2, []float64{1, 0, 0, 1}), 0, 1e-12)

	_, err = matrix.Inverse(NewFilledDense(t, 2, 2, []float64{0, 1, 1, 0}))
	require.ErrorIs(t, err, matrix.ErrSingular)
	_, err = matrix.Inverse(NewFilledDense(t, 1, 2, []float64{1, 2}))
	require.ErrorIs(t, err, matrix.ErrNonSquare)
}
