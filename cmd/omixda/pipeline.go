// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/katalvlaran/omixda/align"
	"github.com/katalvlaran/omixda/config"
	"github.com/katalvlaran/omixda/crossval"
	"github.com/katalvlaran/omixda/diablo"
	"github.com/katalvlaran/omixda/metrics"
	"github.com/katalvlaran/omixda/omics"
	"github.com/katalvlaran/omixda/selection"
	"github.com/katalvlaran/omixda/tabular"
)

// outcome is everything the summary and the writers need.
type outcome struct {
	dataset  *omics.AlignedDataset
	ranked   [][]selection.Ranked
	model    *diablo.Model
	rule     diablo.Rule
	accuracy float64
	report   *crossval.Report // nil when cross-validation is disabled
	warnings omics.Warnings
	elapsed  time.Duration
}

type pipeline struct {
	cfg config.Config
	log *slog.Logger
	rec *metrics.Recorder
}

func newPipeline(cfg config.Config, log *slog.Logger) *pipeline {
	return &pipeline{cfg: cfg, log: log, rec: metrics.NewRecorder()}
}

// resolvePaths makes relative input and output paths relative to the
// directory of the configuration file.
func resolvePaths(cfg *config.Config, cfgPath string) {
	dir := filepath.Dir(cfgPath)
	fix := func(p *string) {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	for i := range cfg.Blocks {
		fix(&cfg.Blocks[i].Path)
	}
	fix(&cfg.Labels.Path)
	fix(&cfg.Output.Scores)
	fix(&cfg.Output.Report)
	fix(&cfg.Output.Features)
	fix(&cfg.Output.Metrics)
}

// run executes load → align → impute → select → fit → cross-validate → export.
func (p *pipeline) run(ctx context.Context) (*outcome, error) {
	start := time.Now()
	out := &outcome{rule: p.cfg.PredictRule()}

	ds, err := p.load(out)
	if err != nil {
		return nil, err
	}
	if len(p.cfg.Selection.Keep) > 0 {
		reduced, ranked, ws, err := selection.SelectDataset(ds, p.cfg.Selection.Keep)
		if err != nil {
			return nil, err
		}
		ds, out.ranked = reduced, ranked
		out.warnings = append(out.warnings, ws...)
	}
	out.dataset = ds

	mc := p.cfg.DiabloConfig()
	mc.Logger, mc.Observer = p.log, p.rec
	model, err := diablo.Fit(ds, mc)
	if err != nil {
		return nil, err
	}
	out.model = model
	out.warnings = append(out.warnings, model.Warnings...)

	pred, err := model.Predict(ds.Blocks, model.Components, out.rule)
	if err != nil {
		return nil, err
	}
	hits := 0
	for i, c := range pred {
		if c == ds.Labels[i] {
			hits++
		}
	}
	out.accuracy = float64(hits) / float64(len(pred))

	if p.cfg.CrossVal.Enabled {
		cv, err := p.cfg.CrossValConfig()
		if err != nil {
			return nil, err
		}
		cv.Logger, cv.Observer = p.log, p.rec
		cv.Model.Observer = p.rec
		rep, err := crossval.Run(ctx, ds, cv)
		if err != nil {
			return nil, err
		}
		out.report = rep
		out.warnings = append(out.warnings, rep.Warnings...)
	}

	if err := p.export(out); err != nil {
		return nil, err
	}
	out.elapsed = time.Since(start)

	return out, nil
}

// load reads every block and the labels, aligns them and imputes missing entries.
func (p *pipeline) load(out *outcome) (*omics.AlignedDataset, error) {
	blocks := make([]*omics.Block, len(p.cfg.Blocks))
	for i, in := range p.cfg.Blocks {
		b, err := readFile(in.Path, func(r io.Reader) (*omics.Block, error) {
			return tabular.ReadBlock(r, in.Name, p.cfg.ReadOptions(i))
		})
		if err != nil {
			return nil, err
		}
		p.log.Info("block loaded", "block", b.Name, "samples", b.NumSamples(), "features", b.NumFeatures())
		blocks[i] = b
	}
	lbl := p.cfg.Labels
	labels, err := readFile(lbl.Path, func(r io.Reader) (omics.LabelVector, error) {
		return tabular.ReadLabels(r, lbl.IDColumn, lbl.ClassColumn, p.cfg.LabelsComma())
	})
	if err != nil {
		return nil, err
	}

	res, err := align.Align(blocks, labels, p.cfg.AlignOptions())
	if err != nil {
		return nil, err
	}
	out.warnings = append(out.warnings, res.Warnings...)
	ds := res.Dataset
	p.log.Info("samples aligned", "samples", ds.NumSamples(), "classes", len(ds.Classes()))

	imputed := make([]*omics.Block, len(ds.Blocks))
	for i, b := range ds.Blocks {
		if imputed[i], err = b.ImputeColumnMeans(&out.warnings); err != nil {
			return nil, err
		}
	}

	return ds.WithBlocks(imputed), nil
}

// export writes every configured output file.
func (p *pipeline) export(out *outcome) error {
	o := p.cfg.Output
	if err := writeFile(o.Scores, func(w io.Writer) error { return tabular.WriteScores(w, out.model) }); err != nil {
		return err
	}
	if out.report != nil {
		if err := writeFile(o.Report, func(w io.Writer) error { return tabular.WriteReport(w, out.report) }); err != nil {
			return err
		}
	}
	if err := writeFile(o.Features, func(w io.Writer) error {
		return tabular.WriteFeatureTable(w, out.model, out.ranked)
	}); err != nil {
		return err
	}
	if o.Metrics != "" {
		p.rec.ObserveWarnings(out.warnings)
		if err := p.rec.WriteTextfile(o.Metrics); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	fh, err := os.Open(path)
	if err != nil {
		return zero, err
	}
	defer fh.Close()

	v, err := read(fh)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}

	return v, nil
}

// writeFile creates path and runs write on it; an empty path is skipped.
func writeFile(path string, write func(io.Writer) error) error {
	if path == "" {
		return nil
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(fh); err != nil {
		fh.Close()
		return fmt.Errorf("%s: %w", path, err)
	}

	return fh.Close()
}
