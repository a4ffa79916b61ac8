// SPDX-License-Identifier: MIT

package crossval

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/katalvlaran/omixda/omics"
)

// Partition returns the k held-out index sets of repeat r.
//
// Policy (stratified): classes are visited in lexicographic order; the
// samples of each class are shuffled with the repeat's stream and dealt
// round-robin onto folds, the fold cursor carrying over from one class to
// the next. Fold sizes therefore differ by at most one and every class is
// spread as evenly as its size allows. Each returned set is sorted.
//
// Errors: ErrFoldTooSmall when k < 2 or k > len(labels).
func Partition(labels []string, k int, seed int64, r int) ([][]int, error) {
	if k < 2 || k > len(labels) {
		return nil, fmt.Errorf("%w: %d folds for %d samples", ErrFoldTooSmall, k, len(labels))
	}

	return stratify(labels, k, repeatRNG(seed, r)), nil
}

func stratify(labels []string, k int, rng *rand.Rand) [][]int {
	byClass := make(map[string][]int)
	for i, c := range labels {
		byClass[c] = append(byClass[c], i)
	}
	folds := make([][]int, k)
	cursor := 0
	for _, c := range omics.SortedClasses(labels) {
		idx := byClass[c]
		shuffleInts(idx, rng)
		for _, i := range idx {
			folds[cursor%k] = append(folds[cursor%k], i)
			cursor++
		}
	}
	for _, f := range folds {
		sort.Ints(f)
	}

	return folds
}

// complement returns 0..n-1 minus the sorted set held.
func complement(n int, held []int) []int {
	out := make([]int, 0, n-len(held))
	h := 0
	for i := 0; i < n; i++ {
		if h < len(held) && held[h] == i {
			h++
			continue
		}
		out = append(out, i)
	}

	return out
}
