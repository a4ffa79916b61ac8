// SPDX-License-Identifier: MIT

package omics

import (
	"errors"
	"fmt"
)

// Sentinel errors. Messages carry the "omics:" prefix; match with errors.Is.
var (
	// ErrMalformedBlock reports caller input that cannot form a Block
	// (label/shape mismatch, non-numeric or infinite entries).
	ErrMalformedBlock = errors.New("omics: malformed block")

	// ErrNilBlock reports a nil *Block argument.
	ErrNilBlock = errors.New("omics: nil block")

	// ErrMisaligned reports an AlignedDataset whose blocks and labels do not
	// share one sample order.
	ErrMisaligned = errors.New("omics: dataset is not aligned")

	// ErrNoClasses reports a label vector without any usable class.
	ErrNoClasses = errors.New("omics: no classes")
)

// EntryError identifies the offending block and cell of a caller-input error.
// Row or Col is -1 when the problem concerns a whole label list.
type EntryError struct {
	Block string
	Row   int
	Col   int
	Err   error
}

// Error implements error.
func (e *EntryError) Error() string {
	return fmt.Sprintf("block %q entry (%d,%d): %v", e.Block, e.Row, e.Col, e.Err)
}

// Unwrap exposes the cause for errors.Is/As.
func (e *EntryError) Unwrap() error { return e.Err }
