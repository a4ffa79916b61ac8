// SPDX-License-Identifier: MIT

// Package metrics records pipeline counters and histograms in a private
// prometheus registry. A Recorder plugs into diablo.Config.Observer and
// crossval.Config.Observer; the CLI dumps it in text exposition format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/katalvlaran/omixda/crossval"
	"github.com/katalvlaran/omixda/diablo"
	"github.com/katalvlaran/omixda/omics"
)

// Namespace prefixes every metric name.
const Namespace = "omixda"

// Recorder implements diablo.Observer and crossval.Observer. Safe for
// concurrent use.
type Recorder struct {
	reg *prometheus.Registry

	fits          prometheus.Counter
	nonConverged  prometheus.Counter
	iterations    prometheus.Histogram
	fitDuration   prometheus.Histogram
	folds         prometheus.Counter
	foldDuration  prometheus.Histogram
	warningsTotal *prometheus.CounterVec
}

var (
	_ diablo.Observer   = (*Recorder)(nil)
	_ crossval.Observer = (*Recorder)(nil)
)

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		fits: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fits_total",
			Help:      "Completed model fits, cross-validation folds included.",
		}),
		nonConverged: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "nonconverged_components_total",
			Help:      "Components that stopped at the iteration cap.",
		}),
		iterations: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "component_iterations",
			Help:      "Iterations per fitted component.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
		}),
		fitDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fit_duration_seconds",
			Help:      "Wall time of one model fit.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		folds: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "folds_total",
			Help:      "Completed cross-validation folds.",
		}),
		foldDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fold_duration_seconds",
			Help:      "Wall time of one cross-validation fold (fit and predict).",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		warningsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "warnings_total",
			Help:      "Recoverable conditions by kind.",
		}, []string{"kind"}),
	}
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// ObserveFit records one fit.
func (r *Recorder) ObserveFit(s diablo.FitStats) {
	r.fits.Inc()
	r.fitDuration.Observe(s.Duration.Seconds())
	for h, it := range s.Iterations {
		r.iterations.Observe(float64(it))
		if h < len(s.Converged) && !s.Converged[h] {
			r.nonConverged.Inc()
		}
	}
}

// ObserveFold records one cross-validation fold.
func (r *Recorder) ObserveFold(s crossval.FoldStats) {
	r.folds.Inc()
	r.foldDuration.Observe(s.Duration.Seconds())
}

// ObserveWarnings counts ws by kind.
func (r *Recorder) ObserveWarnings(ws omics.Warnings) {
	for _, w := range ws {
		r.warningsTotal.WithLabelValues(w.Kind.String()).Inc()
	}
}

// WriteTextfile writes the registry to path in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
