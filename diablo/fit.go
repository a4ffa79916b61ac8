// SPDX-License-Identifier: MIT

package diablo

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/omixda/matrix"
	"github.com/katalvlaran/omixda/omics"
)

const (
	opFit       = "Fit"
	opComponent = "component"
	opRotation  = "rotation"
)

// BlockFit is the fitted state of one block.
type BlockFit struct {
	Name     string
	Features []string
	Means    []float64 // training column centres
	Sds      []float64 // training column scales (0 for constant columns)

	Loadings  *matrix.Dense // W, p×C, sparse
	XLoadings *matrix.Dense // P, p×C, deflation regressors
	Scores    *matrix.Dense // T, n×C training variates

	// rotations[c-1] = W_c (P_cᵀ W_c)⁻¹, p×c: maps standardized data to the
	// scores of the partial model with c components.
	rotations []*matrix.Dense
}

// Model is an immutable fitted multi-block model.
type Model struct {
	Classes    []string // sorted
	Samples    []string // training samples, dataset order
	Blocks     []BlockFit
	Components int
	Iterations []int  // per component
	Converged  []bool // per component
	Warnings   omics.Warnings

	labels     []int           // class index of each training sample
	trainJoint []*matrix.Dense // [c-1]: n×(B·c) training scores of the partial model
}

// component is the result of one fitted latent component.
type component struct {
	a         [][]float64 // per block loading
	t         [][]float64 // per block score
	iter      int
	converged bool
	delta     float64
}

// Fit trains a model on ds, whose blocks must be complete (see
// omics.Block.ImputeColumnMeans).
//
// Errors:
//   - ErrInvalidConfig, ErrTooFewClasses, omics.ErrMisaligned;
//   - ErrSingularBlock for a block without features;
//   - ErrMissingValues (wrapping the *omics.EntryError of the first missing cell);
//   - ErrNumeric when a fitted quantity is not finite.
//
// Soft conditions are returned in Model.Warnings: WarnDegenerateClass for a
// class with fewer than two samples, WarnNonConvergence per component that hit
// MaxIter.
func Fit(ds *omics.AlignedDataset, cfg Config) (*Model, error) {
	start := time.Now()
	if err := ds.Validate(); err != nil {
		return nil, diabloErrorf(opFit, err)
	}
	if len(ds.Blocks) == 0 {
		return nil, diabloErrorf(opFit, fmt.Errorf("%w: no blocks", ErrInvalidConfig))
	}
	if err := cfg.Validate(len(ds.Blocks)); err != nil {
		return nil, diabloErrorf(opFit, err)
	}
	log := cfg.logger()
	nBlocks, n, C := len(ds.Blocks), ds.NumSamples(), cfg.Components

	m := &Model{
		Samples:    append([]string(nil), ds.Samples...),
		Blocks:     make([]BlockFit, nBlocks),
		Components: C,
		Iterations: make([]int, C),
		Converged:  make([]bool, C),
	}

	// Stage 1: response.
	Y, err := m.encodeResponse(ds.Labels)
	if err != nil {
		return nil, diabloErrorf(opFit, err)
	}

	// Stage 2: standardized blocks.
	Z := make([]*matrix.Dense, nBlocks)
	for b, blk := range ds.Blocks {
		if blk.Data == nil || blk.NumFeatures() == 0 || blk.Data.Cols() == 0 {
			return nil, diabloErrorf(opFit, fmt.Errorf("%w: %q", ErrSingularBlock, blk.Name))
		}
		if err = blk.FirstMissing(); err != nil {
			return nil, diabloErrorf(opFit, fmt.Errorf("%w: %w", ErrMissingValues, err))
		}
		z, means, sds, err := matrix.Standardize(blk.Data, cfg.Scale)
		if err != nil {
			return nil, diabloErrorf(opFit, fmt.Errorf("block %q: %w", blk.Name, err))
		}
		Z[b] = z
		p := blk.NumFeatures()
		W, _ := matrix.NewDense(p, C)
		P, _ := matrix.NewDense(p, C)
		T, _ := matrix.NewDense(n, C)
		m.Blocks[b] = BlockFit{
			Name:      blk.Name,
			Features:  append([]string(nil), blk.Features...),
			Means:     means,
			Sds:       sds,
			Loadings:  W,
			XLoadings: P,
			Scores:    T,
		}
	}

	// Stage 3: components with deflation.
	X := append([]*matrix.Dense(nil), Z...)
	for h := 0; h < C; h++ {
		comp, err := fitComponent(X, Y, cfg, h)
		if err != nil {
			return nil, diabloErrorf(opFit, err)
		}
		m.Iterations[h], m.Converged[h] = comp.iter, comp.converged
		if !comp.converged {
			m.Warnings.Addf(omics.WarnNonConvergence, "",
				"component %d stopped at the %d-iteration cap (max loading change %.3g)", h+1, comp.iter, comp.delta)
		}
		log.Debug("component fitted", "component", h+1, "iterations", comp.iter, "converged", comp.converged)

		tbar := make([]float64, n)
		for b := range X {
			pb, xd, err := deflate(X[b], comp.t[b])
			if err != nil {
				return nil, diabloErrorf(opFit, err)
			}
			X[b] = xd
			bf := &m.Blocks[b]
			setCol(bf.Loadings, h, comp.a[b])
			setCol(bf.XLoadings, h, pb)
			setCol(bf.Scores, h, comp.t[b])
			floats.AddScaled(tbar, 1/float64(nBlocks), comp.t[b])
		}
		if _, Y, err = deflate(Y, tbar); err != nil {
			return nil, diabloErrorf(opFit, err)
		}
	}

	// Stage 4: rotations and training joint scores per partial model.
	m.trainJoint = make([]*matrix.Dense, C)
	for b := range m.Blocks {
		bf := &m.Blocks[b]
		bf.rotations = make([]*matrix.Dense, C)
		for c := 1; c <= C; c++ {
			if bf.rotations[c-1], err = rotation(bf.Loadings, bf.XLoadings, c); err != nil {
				return nil, diabloErrorf(opFit, fmt.Errorf("block %q: %w", bf.Name, err))
			}
		}
	}
	for c := 1; c <= C; c++ {
		if m.trainJoint[c-1], err = m.jointScores(Z, c); err != nil {
			return nil, diabloErrorf(opFit, err)
		}
	}
	if err = m.checkFinite(); err != nil {
		return nil, diabloErrorf(opFit, err)
	}

	if cfg.Observer != nil {
		cfg.Observer.ObserveFit(FitStats{
			Blocks:     nBlocks,
			Samples:    n,
			Components: C,
			Iterations: append([]int(nil), m.Iterations...),
			Converged:  append([]bool(nil), m.Converged...),
			Duration:   time.Since(start),
			Warnings:   append(omics.Warnings(nil), m.Warnings...),
		})
	}

	return m, nil
}

// encodeResponse sets Classes and labels, records degenerate classes and
// returns the standardized one-hot indicator matrix.
func (m *Model) encodeResponse(labels []string) (*matrix.Dense, error) {
	m.Classes = omics.SortedClasses(labels)
	if len(m.Classes) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewClasses, len(m.Classes))
	}
	index := make(map[string]int, len(m.Classes))
	for g, cl := range m.Classes {
		index[cl] = g
	}
	counts := make([]int, len(m.Classes))
	m.labels = make([]int, len(labels))
	onehot, err := matrix.NewDense(len(labels), len(m.Classes))
	if err != nil {
		return nil, err
	}
	for i, cl := range labels {
		g := index[cl]
		m.labels[i] = g
		counts[g]++
		_ = onehot.Set(i, g, 1)
	}
	for g, k := range counts {
		if k < 2 {
			m.Warnings.Addf(omics.WarnDegenerateClass, "",
				"class %q has %d training sample(s); its centroid is degenerate", m.Classes[g], k)
		}
	}
	Y, _, _, err := matrix.Standardize(onehot, true)

	return Y, err
}

// fitComponent runs the initialisation and Gauss–Seidel iterations of
// component h on the current (deflated) blocks X and response Y.
func fitComponent(X []*matrix.Dense, Y *matrix.Dense, cfg Config, h int) (*component, error) {
	nBlocks, n := len(X), Y.Rows()
	keep := make([]int, nBlocks)
	comp := &component{a: make([][]float64, nBlocks), t: make([][]float64, nBlocks)}

	var err error
	for b := range X {
		keep[b] = cfg.keep(b, h, X[b].Cols())
		w, err := initLoading(X[b], Y)
		if err != nil {
			return nil, diabloErrorf(opComponent, err)
		}
		comp.a[b] = softNormalize(w, keep[b], nil)
		if comp.t[b], err = matrix.MatVec(X[b], comp.a[b]); err != nil {
			return nil, diabloErrorf(opComponent, err)
		}
	}
	yLoad, u, err := responseUpdate(Y, comp.t, nil)
	if err != nil {
		return nil, diabloErrorf(opComponent, err)
	}

	z := make([]float64, n)
	for comp.iter = 1; comp.iter <= cfg.MaxIter; comp.iter++ {
		delta := 0.0
		for j := range X {
			copy(z, u)
			for k := range X {
				if k != j {
					floats.AddScaled(z, cfg.Design, comp.t[k])
				}
			}
			w, err := matrix.MatTVec(X[j], z)
			if err != nil {
				return nil, diabloErrorf(opComponent, err)
			}
			w = softNormalize(w, keep[j], comp.a[j])
			delta = math.Max(delta, floats.Distance(w, comp.a[j], 2))
			comp.a[j] = w
			if comp.t[j], err = matrix.MatVec(X[j], w); err != nil {
				return nil, diabloErrorf(opComponent, err)
			}
		}
		next, nu, err := responseUpdate(Y, comp.t, yLoad)
		if err != nil {
			return nil, diabloErrorf(opComponent, err)
		}
		delta = math.Max(delta, floats.Distance(next, yLoad, 2))
		yLoad, u, comp.delta = next, nu, delta
		if delta < cfg.Tol {
			comp.converged = true
			break
		}
	}
	if comp.iter > cfg.MaxIter {
		comp.iter = cfg.MaxIter
	}

	return comp, nil
}

// initLoading returns Xᵀ(Y·v₁) = σ₁u₁, the leading singular direction of XᵀY
// scaled by its singular value. Columns of X that are exactly zero get an
// exactly zero entry.
func initLoading(X, Y *matrix.Dense) ([]float64, error) {
	G := Y.Cols()
	var cov mat.Dense
	cov.Mul(toGonum(X).T(), toGonum(Y))

	v1 := make([]float64, G)
	var svd mat.SVD
	if svd.Factorize(&cov, mat.SVDThin) {
		var v mat.Dense
		svd.VTo(&v)
		for g := range v1 {
			v1[g] = v.At(g, 0)
		}
	} else {
		for g := range v1 {
			v1[g] = 1 / math.Sqrt(float64(G))
		}
	}
	yv, err := matrix.MatVec(Y, v1)
	if err != nil {
		return nil, err
	}

	return matrix.MatTVec(X, yv)
}

// responseUpdate computes the response loading normalise(Yᵀ Σ tᵦ) and its
// score Y·b. A zero direction keeps prev (or zeros on the first call).
func responseUpdate(Y *matrix.Dense, t [][]float64, prev []float64) ([]float64, []float64, error) {
	sum := make([]float64, Y.Rows())
	for _, tb := range t {
		floats.Add(sum, tb)
	}
	b, err := matrix.MatTVec(Y, sum)
	if err != nil {
		return nil, nil, err
	}
	if norm := floats.Norm(b, 2); norm > 0 {
		floats.Scale(1/norm, b)
	} else if prev != nil {
		copy(b, prev)
	}
	u, err := matrix.MatVec(Y, b)

	return b, u, err
}

// softNormalize soft-thresholds w at the (keep+1)-th largest magnitude, so at
// least len(w)−keep entries become exactly zero, then scales to unit length.
// A zero result falls back to prev when given.
func softNormalize(w []float64, keep int, prev []float64) []float64 {
	out := append([]float64(nil), w...)
	if keep < len(out) {
		mags := make([]float64, len(out))
		for i, v := range out {
			mags[i] = math.Abs(v)
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(mags)))
		lambda := mags[keep]
		for i, v := range out {
			if a := math.Abs(v); a <= lambda {
				out[i] = 0
			} else {
				out[i] = math.Copysign(a-lambda, v)
			}
		}
	}
	norm := floats.Norm(out, 2)
	if !(norm > 0) || math.IsInf(norm, 0) {
		if prev != nil {
			return append([]float64(nil), prev...)
		}
		for i := range out {
			out[i] = 0
		}
		return out
	}
	floats.Scale(1/norm, out)

	return out
}

// deflate regresses X on t and removes the fitted part: p = Xᵀt/tᵀt,
// X − t·pᵀ. A zero score leaves X unchanged with p = 0.
func deflate(X *matrix.Dense, t []float64) ([]float64, *matrix.Dense, error) {
	p := make([]float64, X.Cols())
	tt := floats.Dot(t, t)
	if tt == 0 {
		return p, X, nil
	}
	xt, err := matrix.MatTVec(X, t)
	if err != nil {
		return nil, nil, err
	}
	floats.ScaleTo(p, 1/tt, xt)
	out, err := matrix.SubOuter(X, t, p)

	return p, out, err
}

// rotation returns W_c (P_cᵀ W_c)⁻¹ for the first c components. A component
// whose score vanished has a zero diagonal entry, replaced by 1 so the
// remaining components stay invertible.
func rotation(W, P *matrix.Dense, c int) (*matrix.Dense, error) {
	p := W.Rows()
	cols := make([]int, c)
	for k := range cols {
		cols[k] = k
	}
	rows := make([]int, p)
	for i := range rows {
		rows[i] = i
	}
	Wc, err := W.Induced(rows, cols)
	if err != nil {
		return nil, diabloErrorf(opRotation, err)
	}
	Pc, err := P.Induced(rows, cols)
	if err != nil {
		return nil, diabloErrorf(opRotation, err)
	}
	Pt, err := matrix.Transpose(Pc)
	if err != nil {
		return nil, diabloErrorf(opRotation, err)
	}
	ptw, err := matrix.Mul(Pt, Wc)
	if err != nil {
		return nil, diabloErrorf(opRotation, err)
	}
	for k := 0; k < c; k++ {
		if v, _ := ptw.At(k, k); v == 0 {
			_ = ptw.Set(k, k, 1)
		}
	}
	inv, err := matrix.Inverse(ptw)
	if err != nil {
		return nil, diabloErrorf(opRotation, fmt.Errorf("%w: %w", ErrNumeric, err))
	}
	rot, err := matrix.Mul(Wc, inv)
	if err != nil {
		return nil, diabloErrorf(opRotation, err)
	}

	return rot.(*matrix.Dense), nil
}

// jointScores concatenates, block by block, the scores of the partial model
// with c components for standardized blocks Z: an n×(B·c) matrix.
func (m *Model) jointScores(Z []*matrix.Dense, c int) (*matrix.Dense, error) {
	n := Z[0].Rows()
	out, err := matrix.NewDense(n, len(Z)*c)
	if err != nil {
		return nil, err
	}
	for b, z := range Z {
		s, err := matrix.Mul(z, m.Blocks[b].rotations[c-1])
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", m.Blocks[b].Name, err)
		}
		for i := 0; i < n; i++ {
			for k := 0; k < c; k++ {
				v, _ := s.At(i, k)
				if err = out.Set(i, b*c+k, v); err != nil {
					return nil, fmt.Errorf("block %q: %w", m.Blocks[b].Name, ErrNumeric)
				}
			}
		}
	}

	return out, nil
}

func (m *Model) checkFinite() error {
	for _, bf := range m.Blocks {
		for _, d := range []*matrix.Dense{bf.Loadings, bf.XLoadings, bf.Scores} {
			if !finite(d) {
				return fmt.Errorf("%w: block %q", ErrNumeric, bf.Name)
			}
		}
	}

	return nil
}

func finite(d *matrix.Dense) bool {
	ok := true
	d.Do(func(_, _ int, v float64) bool {
		ok = !math.IsNaN(v) && !math.IsInf(v, 0)
		return ok
	})

	return ok
}

func setCol(d *matrix.Dense, j int, v []float64) {
	for i, x := range v {
		_ = d.Set(i, j, x)
	}
}

// toGonum copies d into a gonum matrix for factorizations.
func toGonum(d *matrix.Dense) *mat.Dense {
	out := mat.NewDense(d.Rows(), d.Cols(), nil)
	d.Do(func(i, j int, v float64) bool {
		out.Set(i, j, v)
		return true
	})

	return out
}
