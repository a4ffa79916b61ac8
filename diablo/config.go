// SPDX-License-Identifier: MIT

package diablo

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/katalvlaran/omixda/omics"
)

// Defaults for Config fields.
const (
	DefaultComponents = 2
	DefaultDesign     = 0.1
	DefaultTol        = 1e-6
	DefaultMaxIter    = 100
)

// Config parameterizes Fit. Build it with DefaultConfig and override fields.
type Config struct {
	// Components is the number of latent components C (≥ 1).
	Components int

	// KeepX[b][h] is the number of non-zero loadings of block b on component h.
	// A row shorter than Components repeats its last value. Nil means use
	// Sparsity, or keep every feature when that is nil too.
	KeepX [][]int

	// Sparsity[b] is the fraction of loadings of block b forced to zero,
	// in [0, 1). Ignored when KeepX is set.
	Sparsity []float64

	// Design is the link weight between two omics blocks; every block is
	// linked to the class response with weight 1.
	Design float64

	// Tol bounds the largest loading change between iterations at convergence.
	Tol float64

	// MaxIter is the hard iteration cap per component.
	MaxIter int

	// Scale divides each column by its standard deviation after centring.
	Scale bool

	// Logger receives debug progress; nil discards.
	Logger *slog.Logger

	// Observer is notified once per successful Fit; nil skips.
	Observer Observer
}

// DefaultConfig returns C=2, Design 0.1, Tol 1e-6, MaxIter 100, Scale on,
// and no sparsity.
func DefaultConfig() Config {
	return Config{
		Components: DefaultComponents,
		Design:     DefaultDesign,
		Tol:        DefaultTol,
		MaxIter:    DefaultMaxIter,
		Scale:      true,
	}
}

// Validate checks cfg against a dataset of nBlocks blocks.
func (cfg Config) Validate(nBlocks int) error {
	switch {
	case cfg.Components < 1:
		return fmt.Errorf("%w: components %d < 1", ErrInvalidConfig, cfg.Components)
	case cfg.MaxIter < 1:
		return fmt.Errorf("%w: max iterations %d < 1", ErrInvalidConfig, cfg.MaxIter)
	case !(cfg.Tol > 0) || math.IsInf(cfg.Tol, 0):
		return fmt.Errorf("%w: tolerance %v", ErrInvalidConfig, cfg.Tol)
	case cfg.Design < 0 || cfg.Design > 1 || math.IsNaN(cfg.Design):
		return fmt.Errorf("%w: design weight %v outside [0,1]", ErrInvalidConfig, cfg.Design)
	}
	if cfg.KeepX != nil {
		if len(cfg.KeepX) != nBlocks {
			return fmt.Errorf("%w: keepX has %d rows for %d blocks", ErrInvalidConfig, len(cfg.KeepX), nBlocks)
		}
		for b, row := range cfg.KeepX {
			if len(row) == 0 {
				return fmt.Errorf("%w: keepX row %d is empty", ErrInvalidConfig, b)
			}
			for h, k := range row {
				if k < 1 {
					return fmt.Errorf("%w: keepX[%d][%d] = %d < 1", ErrInvalidConfig, b, h, k)
				}
			}
		}
	}
	if cfg.KeepX == nil && cfg.Sparsity != nil {
		if len(cfg.Sparsity) != nBlocks {
			return fmt.Errorf("%w: sparsity has %d entries for %d blocks", ErrInvalidConfig, len(cfg.Sparsity), nBlocks)
		}
		for b, s := range cfg.Sparsity {
			if !(s >= 0 && s < 1) {
				return fmt.Errorf("%w: sparsity[%d] = %v outside [0,1)", ErrInvalidConfig, b, s)
			}
		}
	}

	return nil
}

// keep resolves the non-zero loading budget of block b on component h for a
// block with p features. The result is in [1, p].
func (cfg Config) keep(b, h, p int) int {
	k := p
	switch {
	case cfg.KeepX != nil:
		row := cfg.KeepX[b]
		if h < len(row) {
			k = row[h]
		} else {
			k = row[len(row)-1]
		}
	case cfg.Sparsity != nil:
		k = p - int(math.Floor(cfg.Sparsity[b]*float64(p)))
	}
	if k > p {
		k = p
	}
	if k < 1 {
		k = 1
	}

	return k
}

func (cfg Config) logger() *slog.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}

	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// FitStats summarises one Fit for an Observer.
type FitStats struct {
	Blocks     int
	Samples    int
	Components int
	Iterations []int  // per component
	Converged  []bool // per component
	Duration   time.Duration
	Warnings   omics.Warnings
}

// Observer receives fit statistics (metrics.Recorder implements it).
type Observer interface {
	ObserveFit(FitStats)
}
