// SPDX-License-Identifier: MIT

// Package tabular reads omics blocks and label tables from delimited text and
// writes the pipeline's flat outputs (scores, performance report, selected
// feature table).
//
// All coercion happens here, once: a cell is either a number, an explicit
// missing token (stored as matrix.Missing) or an error naming the block and
// entry.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/katalvlaran/omixda/matrix"
	"github.com/katalvlaran/omixda/omics"
)

// ErrColumnNotFound reports a label column absent from the header.
var ErrColumnNotFound = errors.New("tabular: column not found")

// ReadOptions configures ReadBlock.
type ReadOptions struct {
	// Transposed reads features as rows and samples as header columns, the
	// usual layout of omics matrices.
	Transposed bool
	// MissingTokens are cells read as missing ("" always is).
	MissingTokens []string
	// Comma is the field delimiter; 0 means ','.
	Comma rune
}

// DefaultReadOptions returns sample-per-row CSV with the default NA tokens.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{MissingTokens: omics.DefaultMissingTokens}
}

func newReader(r io.Reader, comma rune) *csv.Reader {
	cr := csv.NewReader(r)
	if comma != 0 {
		cr.Comma = comma
	}
	cr.TrimLeadingSpace = true

	return cr
}

// ReadBlock parses a header row plus one row per sample (or per feature when
// Transposed). The first column holds row identifiers.
//
// Errors: *omics.EntryError wrapping omics.ErrMalformedBlock for ragged rows,
// non-numeric or infinite cells, duplicate features, or an empty table.
func ReadBlock(r io.Reader, name string, opts ReadOptions) (*omics.Block, error) {
	records, err := newReader(r, opts.Comma).ReadAll()
	if err != nil {
		return nil, &omics.EntryError{Block: name, Row: -1, Col: -1,
			Err: fmt.Errorf("%w: %v", omics.ErrMalformedBlock, err)}
	}
	if len(records) < 2 || len(records[0]) < 2 {
		return nil, &omics.EntryError{Block: name, Row: -1, Col: -1,
			Err: fmt.Errorf("%w: need a header and at least one data row and column", omics.ErrMalformedBlock)}
	}
	header, body := records[0][1:], records[1:]
	rowIDs := make([]string, len(body))
	for i, rec := range body {
		rowIDs[i] = strings.TrimSpace(rec[0])
	}
	colIDs := make([]string, len(header))
	for j, h := range header {
		colIDs[j] = strings.TrimSpace(h)
	}

	samples, features := rowIDs, colIDs
	if opts.Transposed {
		samples, features = colIDs, rowIDs
	}
	n, p := len(samples), len(features)
	data := make([]float64, n*p)
	for i, rec := range body {
		for j, cell := range rec[1:] {
			si, fj := i, j
			if opts.Transposed {
				si, fj = j, i
			}
			v, err := parseCell(cell, opts.MissingTokens)
			if err != nil {
				return nil, &omics.EntryError{Block: name, Row: si, Col: fj,
					Err: fmt.Errorf("%w: %v", omics.ErrMalformedBlock, err)}
			}
			data[si*p+fj] = v
		}
	}

	return omics.NewBlock(name, samples, features, data)
}

func parseCell(cell string, tokens []string) (float64, error) {
	s := strings.TrimSpace(cell)
	if omics.IsMissingClass(s, tokens) {
		return matrix.Missing(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not numeric", s)
	}

	return v, nil
}

// ReadLabels reads a header-led table and pairs column idCol with classCol.
// Missing classes are kept verbatim; align.Align drops them.
func ReadLabels(r io.Reader, idCol, classCol string, comma rune) (omics.LabelVector, error) {
	records, err := newReader(r, comma).ReadAll()
	if err != nil {
		return omics.LabelVector{}, fmt.Errorf("tabular: labels: %w", err)
	}
	if len(records) == 0 {
		return omics.LabelVector{}, fmt.Errorf("tabular: labels: empty table: %w", ErrColumnNotFound)
	}
	idIdx, classIdx := -1, -1
	for j, h := range records[0] {
		switch strings.TrimSpace(h) {
		case idCol:
			idIdx = j
		case classCol:
			classIdx = j
		}
	}
	if idIdx < 0 {
		return omics.LabelVector{}, fmt.Errorf("%w: %q", ErrColumnNotFound, idCol)
	}
	if classIdx < 0 {
		return omics.LabelVector{}, fmt.Errorf("%w: %q", ErrColumnNotFound, classCol)
	}
	ids := make([]string, 0, len(records)-1)
	classes := make([]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		ids = append(ids, strings.TrimSpace(rec[idIdx]))
		classes = append(classes, strings.TrimSpace(rec[classIdx]))
	}

	return omics.NewLabelVector(ids, classes)
}
