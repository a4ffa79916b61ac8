// SPDX-License-Identifier: MIT

package tabular_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/omixda/crossval"
	"github.com/katalvlaran/omixda/diablo"
	"github.com/katalvlaran/omixda/omics"
	"github.com/katalvlaran/omixda/selection"
	"github.com/katalvlaran/omixda/tabular"
)

const sampleRows = `id,g1,g2,g3
s1,1.5,2,NA
s2,0,-1,3
`

const featureRows = `gene,s1,s2
g1,1.5,0
g2,2,-1
g3,,3
`

func TestReadBlock_Orientations(t *testing.T) {
	t.Parallel()

	a, err := tabular.ReadBlock(strings.NewReader(sampleRows), "mrna", tabular.DefaultReadOptions())
	require.NoError(t, err)
	opts := tabular.DefaultReadOptions()
	opts.Transposed = true
	b, err := tabular.ReadBlock(strings.NewReader(featureRows), "mrna", opts)
	require.NoError(t, err)

	for _, blk := range []*omics.Block{a, b} {
		assert.Equal(t, []string{"s1", "s2"}, blk.Samples)
		assert.Equal(t, []string{"g1", "g2", "g3"}, blk.Features)
		v, err := blk.Data.At(1, 1)
		require.NoError(t, err)
		assert.Equal(t, -1.0, v)
		v, err = blk.Data.At(0, 2)
		require.NoError(t, err)
		assert.True(t, math.IsNaN(v), "missing token must become the missing marker")
	}
}

func TestReadBlock_ReportsOffendingEntry(t *testing.T) {
	t.Parallel()

	_, err := tabular.ReadBlock(strings.NewReader("id,g1,g2\ns1,1,two\n"), "meth", tabular.DefaultReadOptions())
	require.ErrorIs(t, err, omics.ErrMalformedBlock)
	var ee *omics.EntryError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "meth", ee.Block)
	assert.Equal(t, 0, ee.Row)
	assert.Equal(t, 1, ee.Col)

	_, err = tabular.ReadBlock(strings.NewReader("id,g1\ns1,1,2\n"), "meth", tabular.DefaultReadOptions())
	require.ErrorIs(t, err, omics.ErrMalformedBlock)

	_, err = tabular.ReadBlock(strings.NewReader("id,g1\ns1,Inf\n"), "meth", tabular.DefaultReadOptions())
	require.ErrorIs(t, err, omics.ErrMalformedBlock)
}

func TestReadLabels(t *testing.T) {
	t.Parallel()

	in := "barcode;subtype;age\nTCGA-A;LumA;50\nTCGA-B;NA;61\n"
	lv, err := tabular.ReadLabels(strings.NewReader(in), "barcode", "subtype", ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"TCGA-A", "TCGA-B"}, lv.IDs)
	assert.Equal(t, []string{"LumA", "NA"}, lv.Classes)

	_, err = tabular.ReadLabels(strings.NewReader(in), "barcode", "stage", ';')
	require.ErrorIs(t, err, tabular.ErrColumnNotFound)
}

func fitted(t *testing.T) (*diablo.Model, [][]selection.Ranked) {
	t.Helper()
	samples := []string{"s1", "s2", "s3", "s4", "s5", "s6"}
	labels := []string{"A", "B", "A", "B", "A", "B"}
	mk := func(name string, off float64) *omics.Block {
		data := []float64{
			1, 5 + off, 0.3,
			4, 1 + off, 0.1,
			1.2, 5.5 + off, 0.2,
			4.4, 0.5 + off, 0.4,
			0.8, 4.8 + off, 0.9,
			3.9, 1.2 + off, 0.6,
		}
		b, err := omics.NewBlock(name, samples, []string{name + "_x", name + "_y", name + "_z"}, data)
		require.NoError(t, err)
		return b
	}
	ds := &omics.AlignedDataset{Samples: samples, Labels: labels, Blocks: []*omics.Block{mk("mrna", 0), mk("mirna", 1)}}
	reduced, ranked, _, err := selection.SelectDataset(ds, []int{2, 3})
	require.NoError(t, err)
	m, err := diablo.Fit(reduced, diablo.DefaultConfig())
	require.NoError(t, err)

	return m, ranked
}

func readAll(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	recs, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)

	return recs
}

func TestWriteScoresAndFeatureTable(t *testing.T) {
	t.Parallel()

	m, ranked := fitted(t)

	var buf bytes.Buffer
	require.NoError(t, tabular.WriteScores(&buf, m))
	recs := readAll(t, &buf)
	assert.Equal(t, []string{"block", "sample", "comp1", "comp2"}, recs[0])
	assert.Len(t, recs, 1+2*6)
	assert.Equal(t, []string{"mrna", "s1"}, recs[1][:2])

	buf.Reset()
	require.NoError(t, tabular.WriteFeatureTable(&buf, m, ranked))
	recs = readAll(t, &buf)
	assert.Equal(t, []string{"block", "feature", "rank", "variance", "loading1", "loading2"}, recs[0])
	assert.Len(t, recs, 1+2+3)
	assert.Equal(t, "1", recs[1][2])
	for h := 0; h < m.Components; h++ {
		want, err := m.Blocks[1].Loadings.At(2, h)
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatFloat(want, 'g', -1, 64), recs[1+2+2][4+h])
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	rep := &crossval.Report{
		RunID:   "run-1",
		Classes: []string{"A", "B"},
		Entries: []crossval.Entry{
			{Components: 1, Rule: diablo.CentroidsDist, ErrorRate: 0.25, SD: 0.05, Overall: 0.25, BER: 0.3, ClassError: []float64{0.2, 0.4}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, tabular.WriteReport(&buf, rep))
	recs := readAll(t, &buf)
	require.Len(t, recs, 2)
	assert.Equal(t, []string{"run_id", "components", "rule", "error_rate", "sd", "overall", "ber", "err_A", "err_B"}, recs[0])
	assert.Equal(t, []string{"run-1", "1", "centroids.dist", "0.25", "0.05", "0.25", "0.3", "0.2", "0.4"}, recs[1])
}
