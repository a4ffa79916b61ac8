// SPDX-License-Identifier: MIT

package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/omixda/config"
	"github.com/katalvlaran/omixda/diablo"
)

const minimal = `
blocks:
  - name: mrna
    path: data/mrna.csv
    transposed: true
  - name: mirna
    path: data/mirna.tsv
    comma: tab
labels:
  path: data/clinical.csv
  id_column: bcr_patient_barcode
  class_column: subtype
`

func TestParse_MinimalKeepsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.Parse(strings.NewReader(minimal))
	require.NoError(t, err)

	def := config.Default()
	assert.Equal(t, def.Model, cfg.Model)
	assert.Equal(t, def.CrossVal, cfg.CrossVal)
	assert.Equal(t, 12, cfg.Align.PrefixLen)
	assert.Equal(t, '\t', cfg.ReadOptions(1).Comma)
	assert.True(t, cfg.ReadOptions(0).Transposed)
	assert.Equal(t, diablo.CentroidsDist, cfg.PredictRule())

	lvl, err := cfg.LogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, lvl)

	cv, err := cfg.CrossValConfig()
	require.NoError(t, err)
	assert.Equal(t, diablo.AllRules(), cv.Rules)
	assert.Equal(t, 2, cv.Model.Components)
}

func TestParse_Overrides(t *testing.T) {
	t.Parallel()

	in := minimal + `
selection:
  keep: [100, 50]
model:
  components: 3
  keep_x: [[10, 5], [8]]
  rule: mahalanobis
crossval:
  folds: 3
  repeats: 2
  seed: 99
  rules: [centroids.dist]
log:
  level: debug
  format: json
`
	cfg, err := config.Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []int{100, 50}, cfg.Selection.Keep)
	dc := cfg.DiabloConfig()
	assert.Equal(t, 3, dc.Components)
	assert.Equal(t, [][]int{{10, 5}, {8}}, dc.KeepX)
	assert.Equal(t, 0.1, dc.Design)
	assert.Equal(t, diablo.MahalanobisDist, cfg.PredictRule())

	cv, err := cfg.CrossValConfig()
	require.NoError(t, err)
	assert.Equal(t, []diablo.Rule{diablo.CentroidsDist}, cv.Rules)
	assert.Equal(t, int64(99), cv.Seed)
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	for name, in := range map[string]string{
		"unknown key":    minimal + "modle:\n  components: 2\n",
		"one block":      "blocks:\n  - {name: a, path: a.csv}\nlabels: {path: l.csv}\n",
		"duplicate name": strings.Replace(minimal, "name: mirna", "name: mrna", 1),
		"bad keep":       minimal + "selection:\n  keep: [10]\n",
		"bad folds":      minimal + "crossval:\n  folds: 1\n",
		"bad rule":       minimal + "crossval:\n  rules: [euclid]\n",
		"bad sparsity":   minimal + "model:\n  sparsity: [1.5, 0.2]\n",
		"bad log":        minimal + "log:\n  format: xml\n",
		"bad comma":      strings.Replace(minimal, "comma: tab", "comma: ';;'", 1),
	} {
		_, err := config.Parse(strings.NewReader(in))
		require.ErrorIs(t, err, config.ErrInvalid, name)
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(minimal), 0o600))
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Blocks, 2)

	_, err = config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
