// SPDX-License-Identifier: MIT

// Package matrix provides the dense numeric kernels used by the omixda
// integration pipeline.
//
// The package offers:
//
//   - Dense: a row-major float64 matrix with bounds-checked accessors and a
//     per-instance numeric policy (finite-only, or finite-plus-missing where
//     NaN is the explicit missing-value marker of an omics block).
//   - Linear algebra kernels: Mul, Transpose, Scale, Sub, MatVec, MatTVec,
//     SubOuter (rank-one deflation), LU and Inverse.
//   - Column statistics: ColumnMeans, ColumnVariances (missing-aware),
//     CenterColumns, Standardize / ApplyStandardize.
//
// All kernels are deterministic: loop orders are fixed, no map iteration and
// no hidden randomness. Errors are package sentinels wrapped with an
// operation tag; match them with errors.Is.
package matrix
