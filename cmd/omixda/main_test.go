// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/omixda/config"
)

const runYAML = `
blocks:
  - {name: mrna, path: mrna.csv}
  - {name: meth, path: meth.csv, transposed: true}
labels: {path: labels.csv}
selection: {keep: [6, 5]}
model:
  components: 2
  keep_x: [[3], [3]]
crossval: {folds: 3, repeats: 2, seed: 5, workers: 2}
output: {scores: scores.csv, report: report.csv, features: features.csv}
log: {level: error}
`

// writeRun lays out two blocks, labels and a configuration in a fresh
// directory and returns the configuration path. Block ids carry different
// aliquot suffixes so that only their 12-character prefixes match.
func writeRun(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rng := rand.New(rand.NewSource(7))
	const n, pm, pt = 12, 8, 7

	shift := func(i int) float64 {
		if i%2 == 0 {
			return -2
		}
		return 2
	}

	var mrna, labels bytes.Buffer
	mrna.WriteString("sample")
	for j := 0; j < pm; j++ {
		fmt.Fprintf(&mrna, ",g%d", j)
	}
	mrna.WriteString("\n")
	labels.WriteString("sample,class\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&mrna, "TCGA-AA-%04d-01A", i)
		for j := 0; j < pm; j++ {
			v := rng.NormFloat64()
			if j < 2 {
				v += shift(i)
			}
			fmt.Fprintf(&mrna, ",%.6f", v)
		}
		mrna.WriteString("\n")
		class := "Basal"
		if i%2 == 1 {
			class = "LumA"
		}
		fmt.Fprintf(&labels, "TCGA-AA-%04d,%s\n", i, class)
	}

	var meth bytes.Buffer
	meth.WriteString("probe")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&meth, ",TCGA-AA-%04d-11B", i)
	}
	meth.WriteString("\n")
	for j := 0; j < pt; j++ {
		fmt.Fprintf(&meth, "cg%05d", j)
		for i := 0; i < n; i++ {
			v := 0.5 + 0.1*rng.NormFloat64()
			if j == 0 {
				v -= 0.1 * shift(i)
			}
			if j == 3 && i == 4 {
				meth.WriteString(",NA")
				continue
			}
			fmt.Fprintf(&meth, ",%.6f", v)
		}
		meth.WriteString("\n")
	}

	for name, buf := range map[string]*bytes.Buffer{"mrna.csv": &mrna, "meth.csv": &meth, "labels.csv": &labels} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0o600))
	}
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(runYAML), 0o600))

	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	recs, err := csv.NewReader(fh).ReadAll()
	require.NoError(t, err)

	return recs
}

func TestRun_EndToEnd(t *testing.T) {
	cfgPath := writeRun(t)
	dir := filepath.Dir(cfgPath)
	prom := filepath.Join(dir, "omixda.prom")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfgPath, "-no-color", "-metrics-out", prom}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	summary := stdout.String()
	assert.Contains(t, summary, "samples: 12  classes: Basal, LumA")
	assert.Contains(t, summary, "training accuracy (centroids.dist)")
	assert.Contains(t, summary, "cross-validation")
	assert.Contains(t, summary, "Imputed")

	scores := readCSV(t, filepath.Join(dir, "scores.csv"))
	assert.Len(t, scores, 1+2*12)
	assert.Equal(t, "TCGA-AA-0000", scores[1][1])

	report := readCSV(t, filepath.Join(dir, "report.csv"))
	assert.Len(t, report, 1+2*3)
	assert.Equal(t, "err_LumA", report[0][len(report[0])-1])

	features := readCSV(t, filepath.Join(dir, "features.csv"))
	assert.Len(t, features, 1+6+5)

	raw, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "omixda_folds_total 6")
	assert.Contains(t, string(raw), "omixda_fits_total 7")
	assert.Contains(t, string(raw), `omixda_warnings_total{kind="Imputed"} 1`)
}

func TestRun_FlagsOverrideFile(t *testing.T) {
	cfgPath := writeRun(t)
	dir := filepath.Dir(cfgPath)
	require.NoError(t, os.Remove(filepath.Join(dir, "labels.csv")))

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfgPath, "-no-color", "-folds", "1"}, &stdout, &stderr)
	require.ErrorIs(t, err, config.ErrInvalid)

	err = run(context.Background(), []string{"-config", cfgPath, "-no-color", "-no-cv"}, &stdout, &stderr)
	require.Error(t, err, "labels file is gone")
	assert.True(t, strings.Contains(err.Error(), "labels.csv"), err.Error())
}

func TestRun_NoCrossValidation(t *testing.T) {
	cfgPath := writeRun(t)
	dir := filepath.Dir(cfgPath)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-config", cfgPath, "-no-color", "-no-cv", "-components", "1"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())
	assert.NotContains(t, stdout.String(), "cross-validation")
	assert.Contains(t, stdout.String(), "comp1")

	_, err = os.Stat(filepath.Join(dir, "report.csv"))
	assert.True(t, os.IsNotExist(err))
	assert.Len(t, readCSV(t, filepath.Join(dir, "scores.csv"))[0], 3)
}

func TestRun_UsageErrors(t *testing.T) {
	var stdout, stderr bytes.Buffer
	for name, args := range map[string][]string{
		"no config":    nil,
		"unknown flag": {"-config", "x.yaml", "-bogus"},
	} {
		err := run(context.Background(), args, &stdout, &stderr)
		require.ErrorIs(t, err, errUsage, name)
	}

	err := run(context.Background(), []string{"-config", filepath.Join(t.TempDir(), "absent.yaml")}, &stdout, &stderr)
	require.Error(t, err)
	require.NotErrorIs(t, err, errUsage)
}
