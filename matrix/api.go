// SPDX-License-Identifier: MIT
// Package matrix: public API facades.
//
// Purpose:
//   - Thin, intention-revealing entry points that delegate to canonical kernels.
//   - No logic duplication: validation lives in the kernels.

package matrix

// ImputeColumnMeans replaces every missing entry by its column's observed mean
// (0 for a fully missing column). Returns the copy and the substitution count.
// Complexity: O(r*c).
func ImputeColumnMeans(X Matrix) (*Dense, int, error) {
	means, _, err := ColumnMeans(X)
	if err != nil {
		return nil, 0, err
	}

	return ewReplaceMissingCols(X, means)
}
