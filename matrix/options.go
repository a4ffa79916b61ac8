// SPDX-License-Identifier: MIT

// Package matrix: functional configuration of the numeric policy.
// This file defines:
//   - Option / Options (functional options with internal state),
//   - documented defaults (constants),
//   - WithX constructors,
//   - gatherOptions helper that resolves the effective policy.
//
// Notes:
//   - Set() always rejects ±Inf; allowMissing is a narrow exception: NaN is accepted as the explicit
//     missing-value marker of an omics block. ±Inf stays rejected.
package matrix

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultAllowMissing permits NaN as a missing-value marker.
	DefaultAllowMissing = false
)

// Option mutates internal options. Safe to apply repeatedly (idempotent).
type Option func(*Options)

// Options stores the effective configuration after applying Option setters.
// Fields are unexported; public entry points accept ...Option.
type Options struct {
	allowMissing bool // DefaultAllowMissing
}

// WithAllowMissing lets a Dense store the missing-value marker (NaN).
// Ingestion of raw omics tables uses this; every modelling kernel still
// refuses missing data with ErrMissing.
func WithAllowMissing() Option {
	return func(o *Options) { o.allowMissing = true }
}

// defaultOptions returns the documented defaults.
func defaultOptions() Options {
	return Options{
		allowMissing: DefaultAllowMissing,
	}
}

// gatherOptions applies opts over the defaults in order (last writer wins).
// Complexity: O(len(opts)).
func gatherOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
