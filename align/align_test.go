// SPDX-License-Identifier: MIT

package align_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/omixda/align"
	"github.com/katalvlaran/omixda/omics"
)

func mustBlock(t *testing.T, name string, samples []string, p int) *omics.Block {
	t.Helper()
	data := make([]float64, len(samples)*p)
	for i := range samples {
		for j := 0; j < p; j++ {
			data[i*p+j] = float64(i*10 + j)
		}
	}
	b, err := omics.NewBlock(name, samples, featureNames(p), data)
	require.NoError(t, err)

	return b
}

func featureNames(p int) []string {
	out := make([]string, p)
	for j := range out {
		out[j] = "f" + string(rune('a'+j))
	}

	return out
}

func opts() align.Options {
	return align.Options{PrefixLen: 4, MissingTokens: omics.DefaultMissingTokens}
}

func TestAlign_IntersectionAndOrder(t *testing.T) {
	t.Parallel()

	mrna := mustBlock(t, "mrna", []string{"s003-01", "s001-01", "s002-01", "s009-01"}, 2)
	meth := mustBlock(t, "meth", []string{"s002-11", "s003-11", "s001-11"}, 3)
	labels, err := omics.NewLabelVector(
		[]string{"s001", "s002", "s003", "s009"},
		[]string{"LumA", "NA", "Basal", "LumA"},
	)
	require.NoError(t, err)

	res, err := align.Align([]*omics.Block{mrna, meth}, labels, opts())
	require.NoError(t, err)
	ds := res.Dataset
	require.NoError(t, ds.Validate())

	// s002 has a missing class, s009 is absent from meth.
	assert.Equal(t, []string{"s001", "s003"}, ds.Samples)
	assert.Equal(t, []string{"LumA", "Basal"}, ds.Labels)

	// Row content follows the sample: s001 was row 1 of mrna, row 2 of meth.
	v, err := ds.Blocks[0].Data.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 10.0, v)
	v, err = ds.Blocks[1].Data.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 20.0, v)
	assert.Empty(t, res.Warnings)
}

func TestAlign_Idempotent(t *testing.T) {
	t.Parallel()

	mrna := mustBlock(t, "mrna", []string{"s3", "s1", "s2"}, 2)
	meth := mustBlock(t, "meth", []string{"s2", "s1", "s3"}, 2)
	labels, err := omics.NewLabelVector([]string{"s1", "s2", "s3"}, []string{"a", "b", "a"})
	require.NoError(t, err)

	first, err := align.Align([]*omics.Block{mrna, meth}, labels, opts())
	require.NoError(t, err)
	second, err := align.Align([]*omics.Block{mrna, meth}, labels, opts())
	require.NoError(t, err)
	assert.Equal(t, first.Dataset, second.Dataset)

	// Aligning the aligned output changes nothing.
	l2, err := omics.NewLabelVector(first.Dataset.Samples, first.Dataset.Labels)
	require.NoError(t, err)
	again, err := align.Align(first.Dataset.Blocks, l2, opts())
	require.NoError(t, err)
	assert.Equal(t, first.Dataset, again.Dataset)
}

func TestAlign_CompletenessMatchesSetIntersection(t *testing.T) {
	t.Parallel()

	a := []string{"x01", "x02", "x03", "x04", "x05"}
	b := []string{"x05", "x03", "x01", "x07"}
	c := []string{"x01", "x03", "x05", "x06"}
	blocks := []*omics.Block{mustBlock(t, "a", a, 1), mustBlock(t, "b", b, 1), mustBlock(t, "c", c, 1)}
	labels, err := omics.NewLabelVector([]string{"x01", "x03", "x05"}, []string{"p", "", "q"})
	require.NoError(t, err)

	res, err := align.Align(blocks, labels, align.Options{PrefixLen: 0})
	require.NoError(t, err)

	want := []string{"x01", "x05"}
	got := append([]string(nil), res.Dataset.Samples...)
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func TestAlign_DuplicatePrefixKeepsFirst(t *testing.T) {
	t.Parallel()

	mrna := mustBlock(t, "mrna", []string{"s001-01A", "s001-01B", "s002-01A"}, 1)
	meth := mustBlock(t, "meth", []string{"s001", "s002"}, 1)
	labels, err := omics.NewLabelVector([]string{"s001", "s002"}, []string{"a", "b"})
	require.NoError(t, err)

	res, err := align.Align([]*omics.Block{mrna, meth}, labels, opts())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Warnings.Count(omics.WarnDuplicateSample))
	v, err := res.Dataset.Blocks[0].Data.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v) // first occurrence (row 0) kept
}

func TestAlign_Failures(t *testing.T) {
	t.Parallel()

	mrna := mustBlock(t, "mrna", []string{"s1", "s2"}, 1)
	meth := mustBlock(t, "meth", []string{"s3", "s4"}, 1)
	labels, err := omics.NewLabelVector([]string{"s1", "s2"}, []string{"a", "b"})
	require.NoError(t, err)

	_, err = align.Align([]*omics.Block{mrna}, labels, opts())
	require.ErrorIs(t, err, align.ErrTooFewBlocks)

	_, err = align.Align([]*omics.Block{mrna, meth}, labels, opts())
	require.ErrorIs(t, err, align.ErrNoCommonSamples)

	unlabelled, err := omics.NewLabelVector([]string{"s1", "s2"}, []string{"NA", ""})
	require.NoError(t, err)
	_, err = align.Align([]*omics.Block{mrna, mrna}, unlabelled, opts())
	require.ErrorIs(t, err, align.ErrMissingAllLabels)

	unpaired := omics.LabelVector{IDs: []string{"s1", "s2"}, Classes: []string{"a"}}
	_, err = align.Align([]*omics.Block{mrna, mrna}, unpaired, opts())
	require.ErrorIs(t, err, omics.ErrMalformedBlock)
	var ee *omics.EntryError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "labels", ee.Block)
	assert.Equal(t, 1, ee.Row)
}
