// SPDX-License-Identifier: MIT

// Package crossval estimates the generalisation error of a diablo model by
// repeated stratified k-fold cross-validation.
//
// Every (repeat, fold) pair is an independent job: fit on the training
// indices, predict the held-out samples for each component count c = 1..C
// and each decision rule. Jobs run on a bounded errgroup pool and write into
// pre-indexed slots; the reduction runs after the pool drains, in fixed
// (repeat, fold) order, so a seed reproduces the report bit for bit
// regardless of the worker count.
package crossval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/katalvlaran/omixda/diablo"
	"github.com/katalvlaran/omixda/omics"
)

var (
	// ErrFoldTooSmall reports k < 2 or more folds than samples.
	ErrFoldTooSmall = errors.New("crossval: fold count must be in 2..n")

	// ErrInvalidConfig reports an inconsistent Config.
	ErrInvalidConfig = errors.New("crossval: invalid config")
)

// Defaults for Config.
const (
	DefaultFolds   = 5
	DefaultRepeats = 10
)

// Config parameterizes Run.
type Config struct {
	Folds   int
	Repeats int
	Seed    int64 // 0 ⇒ 1
	Workers int   // ≤ 0 ⇒ GOMAXPROCS
	Rules   []diablo.Rule
	Model   diablo.Config

	Logger   *slog.Logger
	Observer Observer
}

// DefaultConfig returns 5 folds × 10 repeats, all rules, diablo.DefaultConfig.
func DefaultConfig() Config {
	return Config{
		Folds:   DefaultFolds,
		Repeats: DefaultRepeats,
		Rules:   diablo.AllRules(),
		Model:   diablo.DefaultConfig(),
	}
}

// FoldStats describes one finished job.
type FoldStats struct {
	Repeat, Fold int
	Train, Test  int
	Duration     time.Duration
}

// Observer receives per-fold progress (metrics.Recorder implements it).
// Calls may arrive concurrently.
type Observer interface {
	ObserveFold(FoldStats)
}

// Entry is the error summary of one (component count, rule) pair.
type Entry struct {
	Components int
	Rule       diablo.Rule

	// ErrorRate is the mean across repeats of the per-repeat mean fold error;
	// SD is its sample standard deviation across repeats (0 for one repeat).
	ErrorRate float64
	SD        float64
	PerRepeat []float64

	// Overall is the pooled misclassification rate of all predictions.
	Overall float64
	// ClassError[g] is the pooled error rate of Report.Classes[g], leaving out
	// folds whose training set lacked the class; NaN-free (0 when unobserved).
	ClassError []float64
	// BER is the balanced error rate: the mean of ClassError over observed classes.
	BER float64
}

// Report is the outcome of Run.
type Report struct {
	// RunID is a name-based UUID of the samples, labels, block layouts and
	// configuration, so equal inputs give equal ids.
	RunID    string
	Seed     int64
	Folds    int
	Repeats  int
	Classes  []string
	Entries  []Entry // ordered by component count, then Config.Rules order
	Warnings omics.Warnings
}

// Lookup returns the entry for (c, rule).
func (r *Report) Lookup(c int, rule diablo.Rule) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Components == c && e.Rule == rule {
			return e, true
		}
	}

	return Entry{}, false
}

// foldResult is the slot one job writes.
type foldResult struct {
	test     []int
	pred     [][][]string // [c-1][rule][i]
	absent   map[string]bool
	warnings omics.Warnings
}

func (cfg Config) validate(n int) error {
	if cfg.Folds < 2 || cfg.Folds > n {
		return fmt.Errorf("%w: %d folds for %d samples", ErrFoldTooSmall, cfg.Folds, n)
	}
	if cfg.Repeats < 1 {
		return fmt.Errorf("%w: repeats %d < 1", ErrInvalidConfig, cfg.Repeats)
	}
	if len(cfg.Rules) == 0 {
		return fmt.Errorf("%w: no decision rules", ErrInvalidConfig)
	}

	return nil
}

// Run cross-validates cfg.Model on ds.
//
// A training fold holding a single class is not fitted: every held-out sample
// is predicted as that class and a WarnDegenerateClass warning is recorded.
//
// Errors: ErrFoldTooSmall, ErrInvalidConfig, any diablo.Fit error of a fold,
// ctx.Err() when cancelled between folds.
func Run(ctx context.Context, ds *omics.AlignedDataset, cfg Config) (*Report, error) {
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("crossval: %w", err)
	}
	n := ds.NumSamples()
	if err := cfg.validate(n); err != nil {
		return nil, err
	}
	if err := cfg.Model.Validate(len(ds.Blocks)); err != nil {
		return nil, fmt.Errorf("crossval: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rep := &Report{
		RunID:   runID(ds, cfg),
		Seed:    effectiveSeed(cfg.Seed),
		Folds:   cfg.Folds,
		Repeats: cfg.Repeats,
		Classes: ds.Classes(),
	}
	log.Info("cross-validation started", "run", rep.RunID, "folds", cfg.Folds,
		"repeats", cfg.Repeats, "workers", workers, "seed", rep.Seed)

	// Partitions are generated up front, one stream per repeat.
	parts := make([][][]int, cfg.Repeats)
	for r := range parts {
		p, err := Partition(ds.Labels, cfg.Folds, cfg.Seed, r)
		if err != nil {
			return nil, err
		}
		parts[r] = p
	}

	results := make([][]foldResult, cfg.Repeats)
	for r := range results {
		results[r] = make([]foldResult, cfg.Folds)
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for r := 0; r < cfg.Repeats; r++ {
		for f := 0; f < cfg.Folds; f++ {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				res, err := runFold(ds, parts[r][f], cfg, r, f)
				if err != nil {
					return fmt.Errorf("crossval: repeat %d fold %d: %w", r+1, f+1, err)
				}
				results[r][f] = *res
				log.Debug("fold done", "repeat", r+1, "fold", f+1, "test", len(res.test))
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reduce(rep, ds.Labels, results, cfg)
	log.Info("cross-validation finished", "run", rep.RunID, "warnings", len(rep.Warnings))

	return rep, nil
}

// runID hashes everything that determines the report into a version 5 UUID.
func runID(ds *omics.AlignedDataset, cfg Config) string {
	m := cfg.Model
	key := fmt.Sprintf("%d|%d|%d|%v|%v|%v|%d|%v|%v|%g|%g|%d|%t",
		effectiveSeed(cfg.Seed), cfg.Folds, cfg.Repeats, cfg.Rules, ds.Samples, ds.Labels,
		m.Components, m.KeepX, m.Sparsity, m.Design, m.Tol, m.MaxIter, m.Scale)
	for _, b := range ds.Blocks {
		key += fmt.Sprintf("|%s:%v", b.Name, b.Features)
	}

	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("omixda|"+key)).String()
}

// runFold fits on the complement of test and predicts test.
func runFold(ds *omics.AlignedDataset, test []int, cfg Config, r, f int) (*foldResult, error) {
	start := time.Now()
	train := complement(ds.NumSamples(), test)
	trainDS, err := ds.Subset(train)
	if err != nil {
		return nil, err
	}
	testDS, err := ds.Subset(test)
	if err != nil {
		return nil, err
	}

	res := &foldResult{test: test, absent: make(map[string]bool)}
	present := make(map[string]bool)
	for _, c := range trainDS.Labels {
		present[c] = true
	}
	for _, c := range ds.Classes() {
		if !present[c] {
			res.absent[c] = true
			res.warnings.Addf(omics.WarnClassAbsentInFold, "",
				"repeat %d fold %d: class %q absent from training", r+1, f+1, c)
		}
	}

	if len(present) < 2 {
		only := trainDS.Labels[0]
		res.warnings.Addf(omics.WarnDegenerateClass, "",
			"repeat %d fold %d: training holds only class %q; predicting it for every held-out sample", r+1, f+1, only)
		res.pred = constantPredictions(cfg.Model.Components, len(cfg.Rules), len(test), only)
		observeFold(cfg, r, f, len(train), len(test), start)
		return res, nil
	}

	model, err := diablo.Fit(trainDS, cfg.Model)
	if err != nil {
		return nil, err
	}
	for _, w := range model.Warnings {
		w.Detail = fmt.Sprintf("repeat %d fold %d: %s", r+1, f+1, w.Detail)
		res.warnings = append(res.warnings, w)
	}
	pr, err := model.Prepare(testDS.Blocks)
	if err != nil {
		return nil, err
	}
	res.pred = make([][][]string, model.Components)
	for c := 1; c <= model.Components; c++ {
		res.pred[c-1] = make([][]string, len(cfg.Rules))
		for k, rule := range cfg.Rules {
			if res.pred[c-1][k], err = pr.Classify(c, rule); err != nil {
				return nil, err
			}
		}
	}
	observeFold(cfg, r, f, len(train), len(test), start)

	return res, nil
}

func observeFold(cfg Config, r, f, train, test int, start time.Time) {
	if cfg.Observer != nil {
		cfg.Observer.ObserveFold(FoldStats{
			Repeat: r, Fold: f, Train: train, Test: test, Duration: time.Since(start),
		})
	}
}

// constantPredictions assigns class to every held-out sample for every
// component count and rule.
func constantPredictions(components, rules, n int, class string) [][][]string {
	out := make([][][]string, components)
	for c := range out {
		out[c] = make([][]string, rules)
		for k := range out[c] {
			out[c][k] = make([]string, n)
			for i := range out[c][k] {
				out[c][k][i] = class
			}
		}
	}

	return out
}

// reduce aggregates fold slots in (repeat, fold) order.
func reduce(rep *Report, labels []string, results [][]foldResult, cfg Config) {
	classIdx := make(map[string]int, len(rep.Classes))
	for g, c := range rep.Classes {
		classIdx[c] = g
	}
	for r := range results {
		for f := range results[r] {
			rep.Warnings = append(rep.Warnings, results[r][f].warnings...)
		}
	}

	C := cfg.Model.Components
	for c := 1; c <= C; c++ {
		for k, rule := range cfg.Rules {
			e := Entry{Components: c, Rule: rule, PerRepeat: make([]float64, len(results))}
			wrong, total := 0, 0
			classWrong := make([]int, len(rep.Classes))
			classTotal := make([]int, len(rep.Classes))
			for r := range results {
				sum := 0.0
				for f := range results[r] {
					res := &results[r][f]
					fw := 0
					for i, s := range res.test {
						truth := labels[s]
						miss := res.pred[c-1][k][i] != truth
						if miss {
							fw++
						}
						if !res.absent[truth] {
							g := classIdx[truth]
							classTotal[g]++
							if miss {
								classWrong[g]++
							}
						}
					}
					wrong += fw
					total += len(res.test)
					sum += float64(fw) / float64(len(res.test))
				}
				e.PerRepeat[r] = sum / float64(len(results[r]))
			}
			if len(e.PerRepeat) > 1 {
				e.ErrorRate, e.SD = stat.MeanStdDev(e.PerRepeat, nil)
			} else {
				e.ErrorRate = e.PerRepeat[0]
			}
			e.Overall = float64(wrong) / float64(total)
			e.ClassError = make([]float64, len(rep.Classes))
			observed := 0
			for g := range rep.Classes {
				if classTotal[g] == 0 {
					continue
				}
				e.ClassError[g] = float64(classWrong[g]) / float64(classTotal[g])
				e.BER += e.ClassError[g]
				observed++
			}
			if observed > 0 {
				e.BER /= float64(observed)
			}
			rep.Entries = append(rep.Entries, e)
		}
	}
}
