// SPDX-License-Identifier: MIT

// Package config loads the YAML run configuration of the omixda pipeline and
// maps it onto the per-package option structs.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/omixda/align"
	"github.com/katalvlaran/omixda/crossval"
	"github.com/katalvlaran/omixda/diablo"
	"github.com/katalvlaran/omixda/omics"
	"github.com/katalvlaran/omixda/tabular"
)

// ErrInvalid reports a configuration that fails validation.
var ErrInvalid = errors.New("config: invalid")

// BlockInput locates one omics block on disk.
type BlockInput struct {
	Name       string `yaml:"name"`
	Path       string `yaml:"path"`
	Transposed bool   `yaml:"transposed"`
	Comma      string `yaml:"comma"`
}

// LabelsInput locates the label table.
type LabelsInput struct {
	Path        string `yaml:"path"`
	IDColumn    string `yaml:"id_column"`
	ClassColumn string `yaml:"class_column"`
	Comma       string `yaml:"comma"`
}

// AlignConfig mirrors align.Options.
type AlignConfig struct {
	PrefixLen     int      `yaml:"prefix_len"`
	MissingTokens []string `yaml:"missing_tokens"`
}

// SelectionConfig holds the per-block feature counts; empty keeps everything.
type SelectionConfig struct {
	Keep []int `yaml:"keep"`
}

// ModelConfig mirrors diablo.Config.
type ModelConfig struct {
	Components int       `yaml:"components"`
	KeepX      [][]int   `yaml:"keep_x"`
	Sparsity   []float64 `yaml:"sparsity"`
	Design     float64   `yaml:"design"`
	Tol        float64   `yaml:"tol"`
	MaxIter    int       `yaml:"max_iter"`
	Scale      bool      `yaml:"scale"`
	Rule       string    `yaml:"rule"`
}

// CrossValConfig mirrors crossval.Config.
type CrossValConfig struct {
	Enabled bool     `yaml:"enabled"`
	Folds   int      `yaml:"folds"`
	Repeats int      `yaml:"repeats"`
	Seed    int64    `yaml:"seed"`
	Workers int      `yaml:"workers"`
	Rules   []string `yaml:"rules"`
}

// OutputConfig names the files written by the CLI; empty paths are skipped.
type OutputConfig struct {
	Scores   string `yaml:"scores"`
	Report   string `yaml:"report"`
	Features string `yaml:"features"`
	Metrics  string `yaml:"metrics"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Config is the full run configuration.
type Config struct {
	Blocks    []BlockInput    `yaml:"blocks"`
	Labels    LabelsInput     `yaml:"labels"`
	Align     AlignConfig     `yaml:"align"`
	Selection SelectionConfig `yaml:"selection"`
	Model     ModelConfig     `yaml:"model"`
	CrossVal  CrossValConfig  `yaml:"crossval"`
	Output    OutputConfig    `yaml:"output"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns a configuration without inputs and with every tunable at
// its package default.
func Default() Config {
	m := diablo.DefaultConfig()
	cv := crossval.DefaultConfig()

	return Config{
		Labels: LabelsInput{IDColumn: "sample", ClassColumn: "class"},
		Align: AlignConfig{
			PrefixLen:     omics.DefaultPrefixLen,
			MissingTokens: append([]string(nil), omics.DefaultMissingTokens...),
		},
		Model: ModelConfig{
			Components: m.Components,
			Design:     m.Design,
			Tol:        m.Tol,
			MaxIter:    m.MaxIter,
			Scale:      m.Scale,
			Rule:       diablo.CentroidsDist.String(),
		},
		CrossVal: CrossValConfig{
			Enabled: true,
			Folds:   cv.Folds,
			Repeats: cv.Repeats,
			Seed:    1,
			Rules:   []string{"max.dist", "centroids.dist", "mahalanobis.dist"},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over Default and validates the result.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return Parse(bytes.NewReader(raw))
}

// Parse decodes YAML from r over Default, rejecting unknown keys, and validates.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks inputs, tunables and enumerations.
func (c Config) Validate() error {
	if len(c.Blocks) < 2 {
		return fmt.Errorf("%w: need at least two blocks, got %d", ErrInvalid, len(c.Blocks))
	}
	names := make(map[string]bool, len(c.Blocks))
	for i, b := range c.Blocks {
		if b.Name == "" || b.Path == "" {
			return fmt.Errorf("%w: block %d needs name and path", ErrInvalid, i)
		}
		if names[b.Name] {
			return fmt.Errorf("%w: duplicate block name %q", ErrInvalid, b.Name)
		}
		names[b.Name] = true
		if _, err := delimiter(b.Comma); err != nil {
			return fmt.Errorf("%w: block %q: %v", ErrInvalid, b.Name, err)
		}
	}
	if c.Labels.Path == "" || c.Labels.IDColumn == "" || c.Labels.ClassColumn == "" {
		return fmt.Errorf("%w: labels need path, id_column and class_column", ErrInvalid)
	}
	if _, err := delimiter(c.Labels.Comma); err != nil {
		return fmt.Errorf("%w: labels: %v", ErrInvalid, err)
	}
	if n := len(c.Selection.Keep); n != 0 && n != len(c.Blocks) {
		return fmt.Errorf("%w: selection.keep has %d entries for %d blocks", ErrInvalid, n, len(c.Blocks))
	}
	for i, k := range c.Selection.Keep {
		if k < 1 {
			return fmt.Errorf("%w: selection.keep[%d] = %d", ErrInvalid, i, k)
		}
	}
	if err := c.DiabloConfig().Validate(len(c.Blocks)); err != nil {
		return fmt.Errorf("%w: model: %w", ErrInvalid, err)
	}
	if _, err := diablo.ParseRule(c.Model.Rule); err != nil {
		return fmt.Errorf("%w: model.rule: %w", ErrInvalid, err)
	}
	if c.CrossVal.Enabled {
		if c.CrossVal.Folds < 2 || c.CrossVal.Repeats < 1 {
			return fmt.Errorf("%w: crossval needs folds ≥ 2 and repeats ≥ 1", ErrInvalid)
		}
		if _, err := c.rules(); err != nil {
			return fmt.Errorf("%w: crossval.rules: %w", ErrInvalid, err)
		}
	}
	if _, err := c.LogLevel(); err != nil {
		return fmt.Errorf("%w: log.level: %v", ErrInvalid, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalid, c.Log.Format)
	}

	return nil
}

// DiabloConfig maps the model section.
func (c Config) DiabloConfig() diablo.Config {
	return diablo.Config{
		Components: c.Model.Components,
		KeepX:      c.Model.KeepX,
		Sparsity:   c.Model.Sparsity,
		Design:     c.Model.Design,
		Tol:        c.Model.Tol,
		MaxIter:    c.Model.MaxIter,
		Scale:      c.Model.Scale,
	}
}

// PredictRule returns the rule used for the final model's training predictions.
func (c Config) PredictRule() diablo.Rule {
	r, _ := diablo.ParseRule(c.Model.Rule)
	return r
}

// CrossValConfig maps the crossval section (model settings included).
func (c Config) CrossValConfig() (crossval.Config, error) {
	rules, err := c.rules()
	if err != nil {
		return crossval.Config{}, err
	}

	return crossval.Config{
		Folds:   c.CrossVal.Folds,
		Repeats: c.CrossVal.Repeats,
		Seed:    c.CrossVal.Seed,
		Workers: c.CrossVal.Workers,
		Rules:   rules,
		Model:   c.DiabloConfig(),
	}, nil
}

func (c Config) rules() ([]diablo.Rule, error) {
	if len(c.CrossVal.Rules) == 0 {
		return diablo.AllRules(), nil
	}
	out := make([]diablo.Rule, len(c.CrossVal.Rules))
	for i, s := range c.CrossVal.Rules {
		r, err := diablo.ParseRule(s)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}

	return out, nil
}

// AlignOptions maps the align section.
func (c Config) AlignOptions() align.Options {
	return align.Options{PrefixLen: c.Align.PrefixLen, MissingTokens: c.Align.MissingTokens}
}

// ReadOptions returns the tabular options of block i.
func (c Config) ReadOptions(i int) tabular.ReadOptions {
	comma, _ := delimiter(c.Blocks[i].Comma)
	return tabular.ReadOptions{
		Transposed:    c.Blocks[i].Transposed,
		MissingTokens: c.Align.MissingTokens,
		Comma:         comma,
	}
}

// LabelsComma returns the label table delimiter (0 for the default).
func (c Config) LabelsComma() rune {
	comma, _ := delimiter(c.Labels.Comma)
	return comma
}

// LogLevel parses log.level.
func (c Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(c.Log.Level))

	return lvl, err
}

// delimiter accepts "", a single character, or "tab".
func delimiter(s string) (rune, error) {
	switch {
	case s == "":
		return 0, nil
	case s == "tab" || s == `\t`:
		return '\t', nil
	case len([]rune(s)) == 1:
		return []rune(s)[0], nil
	}

	return 0, fmt.Errorf("delimiter %q must be one character", s)
}
