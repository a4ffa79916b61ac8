// SPDX-License-Identifier: MIT

package crossval_test

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/omixda/crossval"
	"github.com/katalvlaran/omixda/diablo"
	"github.com/katalvlaran/omixda/omics"
)

func dataset(t *testing.T, seed int64, labels []string, p int) *omics.AlignedDataset {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	n := len(labels)
	samples := make([]string, n)
	for i := range samples {
		samples[i] = fmt.Sprintf("s%02d", i)
	}
	ds := &omics.AlignedDataset{Samples: samples, Labels: append([]string(nil), labels...)}
	for b := 0; b < 2; b++ {
		features := make([]string, p)
		for j := range features {
			features[j] = fmt.Sprintf("f%d_%d", b, j)
		}
		data := make([]float64, n*p)
		for i := 0; i < n; i++ {
			shift := float64(labels[i][0]-'A') * 2
			for j := 0; j < p; j++ {
				v := rng.NormFloat64()
				if j < p/2 {
					v += shift
				}
				data[i*p+j] = v
			}
		}
		blk, err := omics.NewBlock(fmt.Sprintf("block%d", b), samples, features, data)
		require.NoError(t, err)
		ds.Blocks = append(ds.Blocks, blk)
	}
	require.NoError(t, ds.Validate())

	return ds
}

func repeatLabels(counts map[string]int, order []string) []string {
	var out []string
	for round := 0; ; round++ {
		added := false
		for _, c := range order {
			if round < counts[c] {
				out = append(out, c)
				added = true
			}
		}
		if !added {
			return out
		}
	}
}

func smallConfig() crossval.Config {
	cfg := crossval.DefaultConfig()
	cfg.Folds = 4
	cfg.Repeats = 2
	cfg.Seed = 42
	cfg.Model.KeepX = [][]int{{4}, {4}}
	return cfg
}

func TestPartition_CoverageAndBalance(t *testing.T) {
	t.Parallel()

	labels := repeatLabels(map[string]int{"A": 10, "B": 8, "C": 5}, []string{"A", "B", "C"})
	for r := 0; r < 3; r++ {
		folds, err := crossval.Partition(labels, 5, 7, r)
		require.NoError(t, err)
		require.Len(t, folds, 5)

		seen := make(map[int]int)
		minSize, maxSize := len(labels), 0
		for _, f := range folds {
			require.NotEmpty(t, f)
			minSize, maxSize = min(minSize, len(f)), max(maxSize, len(f))
			for _, i := range f {
				seen[i]++
			}
			// Each class spread within one sample of even.
			per := map[string]int{}
			for _, i := range f {
				per[labels[i]]++
			}
			assert.InDelta(t, 2, per["A"], 1)
		}
		assert.LessOrEqual(t, maxSize-minSize, 1)
		require.Len(t, seen, len(labels))
		for i, k := range seen {
			assert.Equal(t, 1, k, "sample %d", i)
		}
	}

	a, err := crossval.Partition(labels, 5, 7, 0)
	require.NoError(t, err)
	b, err := crossval.Partition(labels, 5, 7, 0)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	c, err := crossval.Partition(labels, 5, 7, 1)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	// seed 0 behaves as seed 1.
	z, err := crossval.Partition(labels, 5, 0, 0)
	require.NoError(t, err)
	one, err := crossval.Partition(labels, 5, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, one, z)
}

func TestPartition_FoldTooSmall(t *testing.T) {
	t.Parallel()

	_, err := crossval.Partition([]string{"A", "B", "A"}, 1, 1, 0)
	require.ErrorIs(t, err, crossval.ErrFoldTooSmall)
	_, err = crossval.Partition([]string{"A", "B", "A"}, 4, 1, 0)
	require.ErrorIs(t, err, crossval.ErrFoldTooSmall)
}

func TestRun_ReproducibleAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	labels := repeatLabels(map[string]int{"A": 10, "B": 10}, []string{"A", "B"})
	ds := dataset(t, 3, labels, 8)

	cfg := smallConfig()
	cfg.Workers = 1
	serial, err := crossval.Run(context.Background(), ds, cfg)
	require.NoError(t, err)
	cfg.Workers = 4
	parallel, err := crossval.Run(context.Background(), ds, cfg)
	require.NoError(t, err)

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Fatalf("reports differ (-serial +parallel):\n%s", diff)
	}

	cfg.Seed = 43
	reseeded, err := crossval.Run(context.Background(), ds, cfg)
	require.NoError(t, err)
	assert.NotEqual(t, serial.RunID, reseeded.RunID)
}

func TestRun_ReportShape(t *testing.T) {
	t.Parallel()

	labels := repeatLabels(map[string]int{"A": 10, "B": 10}, []string{"A", "B"})
	ds := dataset(t, 5, labels, 8)
	cfg := smallConfig()
	rep, err := crossval.Run(context.Background(), ds, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, rep.Classes)
	require.Len(t, rep.Entries, cfg.Model.Components*len(cfg.Rules))
	for _, e := range rep.Entries {
		assert.Len(t, e.PerRepeat, cfg.Repeats)
		for _, v := range append([]float64{e.ErrorRate, e.SD, e.Overall, e.BER}, e.ClassError...) {
			assert.False(t, math.IsNaN(v))
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}
	e, ok := rep.Lookup(2, diablo.CentroidsDist)
	require.True(t, ok)
	assert.Less(t, e.ErrorRate, 0.25)

	_, ok = rep.Lookup(3, diablo.CentroidsDist)
	assert.False(t, ok)
}

func TestRun_ClassAbsentInFoldIsExcluded(t *testing.T) {
	t.Parallel()

	labels := repeatLabels(map[string]int{"A": 8, "B": 8, "C": 1}, []string{"A", "B", "C"})
	ds := dataset(t, 9, labels, 6)
	cfg := smallConfig()
	cfg.Repeats = 1
	cfg.Model.KeepX = nil
	rep, err := crossval.Run(context.Background(), ds, cfg)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Warnings.Count(omics.WarnClassAbsentInFold))
	assert.Positive(t, rep.Warnings.Count(omics.WarnDegenerateClass))
	for _, e := range rep.Entries {
		assert.Equal(t, 0.0, e.ClassError[2]) // "C" never scored with C in training
		assert.Equal(t, 0.0, e.SD)
	}
}

func TestRun_SingleClassTrainingFoldIsNotFitted(t *testing.T) {
	t.Parallel()

	labels := repeatLabels(map[string]int{"A": 11, "B": 1}, []string{"A", "B"})
	ds := dataset(t, 5, labels, 6)
	cfg := smallConfig()
	cfg.Repeats = 1
	cfg.Model.KeepX = nil
	obs := &foldCounter{}
	cfg.Observer = obs

	rep, err := crossval.Run(context.Background(), ds, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Folds, obs.n)
	assert.Equal(t, 1, rep.Warnings.Count(omics.WarnClassAbsentInFold))
	assert.Positive(t, rep.Warnings.Count(omics.WarnDegenerateClass))

	// The lone "B" is held out once and predicted "A"; that fold is left out
	// of the class-specific rate of "B".
	for _, e := range rep.Entries {
		assert.GreaterOrEqual(t, e.Overall, 1.0/12)
		assert.Equal(t, 0.0, e.ClassError[1])
		assert.Len(t, e.PerRepeat, 1)
	}
}

type foldCounter struct {
	mu sync.Mutex
	n  int
}

func (c *foldCounter) ObserveFold(crossval.FoldStats) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func TestRun_ObserverAndErrors(t *testing.T) {
	t.Parallel()

	labels := repeatLabels(map[string]int{"A": 6, "B": 6}, []string{"A", "B"})
	ds := dataset(t, 11, labels, 6)

	cfg := smallConfig()
	obs := &foldCounter{}
	cfg.Observer = obs
	cfg.Workers = 3
	_, err := crossval.Run(context.Background(), ds, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.Folds*cfg.Repeats, obs.n)

	bad := smallConfig()
	bad.Folds = 13
	_, err = crossval.Run(context.Background(), ds, bad)
	require.ErrorIs(t, err, crossval.ErrFoldTooSmall)

	bad = smallConfig()
	bad.Repeats = 0
	_, err = crossval.Run(context.Background(), ds, bad)
	require.ErrorIs(t, err, crossval.ErrInvalidConfig)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = crossval.Run(ctx, ds, smallConfig())
	require.ErrorIs(t, err, context.Canceled)
}
