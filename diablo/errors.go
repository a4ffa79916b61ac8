// SPDX-License-Identifier: MIT

package diablo

import (
	"errors"
	"fmt"
)

// Sentinel errors; wrapped with an operation tag, match with errors.Is.
var (
	// ErrSingularBlock indicates a block with no usable features.
	ErrSingularBlock = errors.New("diablo: block has zero usable features")

	// ErrMissingValues indicates missing entries in a block; impute first.
	ErrMissingValues = errors.New("diablo: block contains missing values")

	// ErrNumeric indicates a non-finite value surfaced in a fitted quantity.
	ErrNumeric = errors.New("diablo: non-finite value in model output")

	// ErrInvalidConfig indicates an inconsistent Config.
	ErrInvalidConfig = errors.New("diablo: invalid config")

	// ErrTooFewClasses indicates fewer than two distinct classes in training labels.
	ErrTooFewClasses = errors.New("diablo: at least two classes are required")

	// ErrBlockMismatch indicates new data whose blocks do not match the model.
	ErrBlockMismatch = errors.New("diablo: blocks do not match the fitted model")

	// ErrComponentRange indicates a component count outside 1..Components.
	ErrComponentRange = errors.New("diablo: component count out of range")

	// ErrUnknownRule indicates an unsupported decision rule.
	ErrUnknownRule = errors.New("diablo: unknown decision rule")
)

func diabloErrorf(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
