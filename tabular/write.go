// SPDX-License-Identifier: MIT

package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/katalvlaran/omixda/crossval"
	"github.com/katalvlaran/omixda/diablo"
	"github.com/katalvlaran/omixda/selection"
)

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func componentHeader(prefix string, c int) []string {
	out := make([]string, c)
	for h := range out {
		out[h] = fmt.Sprintf("%s%d", prefix, h+1)
	}

	return out
}

// WriteScores writes the training variates of every block in long-wide form:
// one row per (block, sample) with columns block, sample, comp1..compC.
func WriteScores(w io.Writer, m *diablo.Model) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"block", "sample"}, componentHeader("comp", m.Components)...)); err != nil {
		return err
	}
	for _, bf := range m.Blocks {
		for i, s := range m.Samples {
			rec := []string{bf.Name, s}
			for h := 0; h < m.Components; h++ {
				v, err := bf.Scores.At(i, h)
				if err != nil {
					return err
				}
				rec = append(rec, formatFloat(v))
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()

	return cw.Error()
}

// WriteReport flattens a cross-validation report: one row per
// (components, rule) with summary rates and one err_<class> column per class.
func WriteReport(w io.Writer, rep *crossval.Report) error {
	cw := csv.NewWriter(w)
	header := []string{"run_id", "components", "rule", "error_rate", "sd", "overall", "ber"}
	for _, c := range rep.Classes {
		header = append(header, "err_"+c)
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range rep.Entries {
		rec := []string{
			rep.RunID,
			strconv.Itoa(e.Components),
			e.Rule.String(),
			formatFloat(e.ErrorRate),
			formatFloat(e.SD),
			formatFloat(e.Overall),
			formatFloat(e.BER),
		}
		for _, v := range e.ClassError {
			rec = append(rec, formatFloat(v))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()

	return cw.Error()
}

// WriteFeatureTable writes one row per model feature: block, feature,
// variance rank and variance from selection (empty when ranked is nil), then
// the loading on each component.
func WriteFeatureTable(w io.Writer, m *diablo.Model, ranked [][]selection.Ranked) error {
	cw := csv.NewWriter(w)
	header := append([]string{"block", "feature", "rank", "variance"}, componentHeader("loading", m.Components)...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for b, bf := range m.Blocks {
		byName := make(map[string]selection.Ranked)
		if b < len(ranked) {
			for _, r := range ranked[b] {
				byName[r.Feature] = r
			}
		}
		cols := make([][]float64, m.Components)
		for h := range cols {
			col, err := bf.Loadings.Col(h)
			if err != nil {
				return err
			}
			cols[h] = col
		}
		for j, f := range bf.Features {
			rec := []string{bf.Name, f, "", ""}
			if r, ok := byName[f]; ok {
				rec[2], rec[3] = strconv.Itoa(r.Rank), formatFloat(r.Variance)
			}
			for _, col := range cols {
				rec = append(rec, formatFloat(col[j]))
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()

	return cw.Error()
}
