// SPDX-License-Identifier: MIT

package diablo

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/katalvlaran/omixda/matrix"
	"github.com/katalvlaran/omixda/omics"
)

// Rule selects how a joint score vector is assigned to a class.
type Rule int

const (
	// MaxDist regresses the class indicator on the joint scores and picks
	// the class with the largest fitted value.
	MaxDist Rule = iota + 1
	// CentroidsDist picks the class whose centroid is nearest in Euclidean distance.
	CentroidsDist
	// MahalanobisDist picks the nearest centroid under the pooled
	// within-class covariance.
	MahalanobisDist
)

var ruleNames = map[Rule]string{
	MaxDist:         "max.dist",
	CentroidsDist:   "centroids.dist",
	MahalanobisDist: "mahalanobis.dist",
}

// String returns the report name of r.
func (r Rule) String() string {
	if s, ok := ruleNames[r]; ok {
		return s
	}

	return fmt.Sprintf("Rule(%d)", int(r))
}

// AllRules lists every rule in report order.
func AllRules() []Rule { return []Rule{MaxDist, CentroidsDist, MahalanobisDist} }

// ParseRule accepts a report name ("centroids.dist") or its short form ("centroids").
func ParseRule(s string) (Rule, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, r := range AllRules() {
		name := r.String()
		if key == name || key == strings.TrimSuffix(name, ".dist") {
			return r, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownRule, s)
}

// ridge is the relative diagonal load added to score covariance and Gram
// matrices before inversion.
const ridge = 1e-6

// Projection is new data standardized with the training statistics, ready
// to be scored at any component count.
type Projection struct {
	m *Model
	z []*matrix.Dense
	n int
}

// Prepare validates blocks against the model and standardizes them.
// Blocks must come in training order with identical feature lists.
//
// Errors: ErrBlockMismatch, ErrMissingValues.
func (m *Model) Prepare(blocks []*omics.Block) (*Projection, error) {
	if len(blocks) != len(m.Blocks) {
		return nil, fmt.Errorf("%w: %d blocks, model has %d", ErrBlockMismatch, len(blocks), len(m.Blocks))
	}
	pr := &Projection{m: m, z: make([]*matrix.Dense, len(blocks))}
	for b, blk := range blocks {
		bf := &m.Blocks[b]
		if blk == nil || !slices.Equal(blk.Features, bf.Features) {
			return nil, fmt.Errorf("%w: block %d features differ from %q", ErrBlockMismatch, b, bf.Name)
		}
		if b == 0 {
			pr.n = blk.NumSamples()
		} else if blk.NumSamples() != pr.n {
			return nil, fmt.Errorf("%w: block %q has %d samples, want %d", ErrBlockMismatch, blk.Name, blk.NumSamples(), pr.n)
		}
		if err := blk.FirstMissing(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMissingValues, err)
		}
		z, err := matrix.ApplyStandardize(blk.Data, bf.Means, bf.Sds)
		if err != nil {
			return nil, fmt.Errorf("block %q: %w", blk.Name, err)
		}
		pr.z[b] = z
	}

	return pr, nil
}

// Len returns the number of prepared samples.
func (pr *Projection) Len() int { return pr.n }

// Scores returns, per block, the n×c scores of the partial model with c components.
func (pr *Projection) Scores(c int) ([]*matrix.Dense, error) {
	if err := pr.m.checkComponents(c); err != nil {
		return nil, err
	}
	out := make([]*matrix.Dense, len(pr.z))
	for b, z := range pr.z {
		s, err := matrix.Mul(z, pr.m.Blocks[b].rotations[c-1])
		if err != nil {
			return nil, err
		}
		out[b] = s.(*matrix.Dense)
	}

	return out, nil
}

// Classify assigns every prepared sample a class with the first c components.
func (pr *Projection) Classify(c int, rule Rule) ([]string, error) {
	if err := pr.m.checkComponents(c); err != nil {
		return nil, err
	}
	joint, err := pr.m.jointScores(pr.z, c)
	if err != nil {
		return nil, err
	}
	idx, err := pr.m.classify(pr.m.trainJoint[c-1], joint, rule)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(idx))
	for i, g := range idx {
		out[i] = pr.m.Classes[g]
	}

	return out, nil
}

// Project returns per-block scores (n×C) of new samples.
func (m *Model) Project(blocks []*omics.Block) ([]*matrix.Dense, error) {
	pr, err := m.Prepare(blocks)
	if err != nil {
		return nil, err
	}

	return pr.Scores(m.Components)
}

// Predict classifies new samples with the first c components under rule.
func (m *Model) Predict(blocks []*omics.Block, c int, rule Rule) ([]string, error) {
	pr, err := m.Prepare(blocks)
	if err != nil {
		return nil, err
	}

	return pr.Classify(c, rule)
}

func (m *Model) checkComponents(c int) error {
	if c < 1 || c > m.Components {
		return fmt.Errorf("%w: %d not in 1..%d", ErrComponentRange, c, m.Components)
	}

	return nil
}

// classify returns class indices for the rows of test given training joint
// scores train. Ties keep the lower class index (lexicographic order).
func (m *Model) classify(train, test *matrix.Dense, rule Rule) ([]int, error) {
	switch rule {
	case MaxDist:
		return m.classifyMax(train, test)
	case CentroidsDist, MahalanobisDist:
		cent := m.centroids(train)
		metric := func(x, mu []float64) float64 { return floats.Distance(x, mu, 2) }
		if rule == MahalanobisDist {
			inv, err := m.pooledPrecision(train, cent)
			if err != nil {
				return nil, err
			}
			metric = func(x, mu []float64) float64 {
				d := make([]float64, len(x))
				floats.SubTo(d, x, mu)
				sd, _ := matrix.MatVec(inv, d)
				return floats.Dot(d, sd)
			}
		}
		out := make([]int, test.Rows())
		for i := range out {
			x, _ := test.Row(i)
			best, bestD := 0, math.Inf(1)
			for g, mu := range cent {
				if d := metric(x, mu); d < bestD {
					best, bestD = g, d
				}
			}
			out[i] = best
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownRule, rule)
	}
}

// centroids returns the per-class mean training score vectors.
func (m *Model) centroids(train *matrix.Dense) [][]float64 {
	d := train.Cols()
	cent := make([][]float64, len(m.Classes))
	counts := make([]float64, len(m.Classes))
	for g := range cent {
		cent[g] = make([]float64, d)
	}
	for i, g := range m.labels {
		x, _ := train.Row(i)
		floats.Add(cent[g], x)
		counts[g]++
	}
	for g := range cent {
		if counts[g] > 0 {
			floats.Scale(1/counts[g], cent[g])
		}
	}

	return cent
}

// pooledPrecision inverts the ridge-loaded pooled within-class covariance.
func (m *Model) pooledPrecision(train *matrix.Dense, cent [][]float64) (*matrix.Dense, error) {
	d, n := train.Cols(), train.Rows()
	S, err := matrix.NewDense(d, d)
	if err != nil {
		return nil, err
	}
	diff := make([]float64, d)
	for i, g := range m.labels {
		x, _ := train.Row(i)
		floats.SubTo(diff, x, cent[g])
		for a := 0; a < d; a++ {
			for b := 0; b < d; b++ {
				v, _ := S.At(a, b)
				_ = S.Set(a, b, v+diff[a]*diff[b])
			}
		}
	}
	dof := float64(n - len(m.Classes))
	if dof < 1 {
		dof = 1
	}
	scaled, err := matrix.Scale(S, 1/dof)
	if err != nil {
		return nil, err
	}

	return invertLoaded(scaled)
}

// classifyMax fits Ŷ = [1 T]·B by ridge least squares on the training joint
// scores and returns the argmax column per test row.
func (m *Model) classifyMax(train, test *matrix.Dense) ([]int, error) {
	n, G := train.Rows(), len(m.Classes)
	A, err := withIntercept(train)
	if err != nil {
		return nil, err
	}
	Y, err := matrix.NewDense(n, G)
	if err != nil {
		return nil, err
	}
	for i, g := range m.labels {
		_ = Y.Set(i, g, 1)
	}
	At, err := matrix.Transpose(A)
	if err != nil {
		return nil, err
	}
	gram, err := matrix.Mul(At, A)
	if err != nil {
		return nil, err
	}
	inv, err := invertLoaded(gram)
	if err != nil {
		return nil, err
	}
	aty, err := matrix.Mul(At, Y)
	if err != nil {
		return nil, err
	}
	B, err := matrix.Mul(inv, aty)
	if err != nil {
		return nil, err
	}
	T, err := withIntercept(test)
	if err != nil {
		return nil, err
	}
	fit, err := matrix.Mul(T, B)
	if err != nil {
		return nil, err
	}
	out := make([]int, test.Rows())
	for i := range out {
		best, bestV := 0, math.Inf(-1)
		for g := 0; g < G; g++ {
			if v, _ := fit.At(i, g); v > bestV {
				best, bestV = g, v
			}
		}
		out[i] = best
	}

	return out, nil
}

func withIntercept(x *matrix.Dense) (*matrix.Dense, error) {
	r, c := x.Shape()
	out, err := matrix.NewDense(r, c+1)
	if err != nil {
		return nil, err
	}
	x.Do(func(i, j int, v float64) bool {
		_ = out.Set(i, j+1, v)
		return true
	})
	for i := 0; i < r; i++ {
		_ = out.Set(i, 0, 1)
	}

	return out, nil
}

// invertLoaded adds ridge·(1 + mean diagonal) to the diagonal of a symmetric
// positive semi-definite matrix and inverts it.
func invertLoaded(S matrix.Matrix) (*matrix.Dense, error) {
	k := S.Rows()
	trace := 0.0
	for a := 0; a < k; a++ {
		v, _ := S.At(a, a)
		trace += v
	}
	load := ridge * (1 + trace/float64(k))
	L := S.Clone()
	for a := 0; a < k; a++ {
		v, _ := L.At(a, a)
		_ = L.Set(a, a, v+load)
	}
	inv, err := matrix.Inverse(L)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNumeric, err)
	}

	return inv, nil
}
