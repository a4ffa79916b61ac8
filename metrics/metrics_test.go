// SPDX-License-Identifier: MIT

package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/omixda/crossval"
	"github.com/katalvlaran/omixda/diablo"
	"github.com/katalvlaran/omixda/omics"
)

func TestRecorder_Counts(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObserveFit(diablo.FitStats{Iterations: []int{4, 100}, Converged: []bool{true, false}, Duration: time.Millisecond})
	r.ObserveFit(diablo.FitStats{Iterations: []int{3, 7}, Converged: []bool{true, true}})
	r.ObserveFold(crossval.FoldStats{Repeat: 0, Fold: 1, Duration: 2 * time.Millisecond})

	var ws omics.Warnings
	ws.Addf(omics.WarnNonConvergence, "", "c2")
	ws.Addf(omics.WarnSmallBlock, "meth", "k > p")
	ws.Addf(omics.WarnSmallBlock, "mirna", "k > p")
	r.ObserveWarnings(ws)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.fits))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.nonConverged))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.folds))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.warningsTotal.WithLabelValues("SmallBlock")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.iterations))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObserveFold(crossval.FoldStats{})
	path := filepath.Join(t.TempDir(), "omixda.prom")
	require.NoError(t, r.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "omixda_folds_total 1"), string(raw))
}
