// SPDX-License-Identifier: MIT

package omics

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultPrefixLen is the comparison-prefix length of a TCGA participant
// barcode ("TCGA-XX-XXXX").
const DefaultPrefixLen = 12

// DefaultMissingTokens are the class strings treated as "no class".
var DefaultMissingTokens = []string{"", "NA", "NaN", "null"}

// Prefix returns the comparison prefix of id: its first n bytes, or id itself
// when it is shorter or n <= 0.
func Prefix(id string, n int) string {
	if n <= 0 || len(id) <= n {
		return id
	}

	return id[:n]
}

// LabelVector maps sample identifiers to class strings, in source order.
// Source order matters: the first of several entries sharing a prefix wins.
type LabelVector struct {
	IDs     []string
	Classes []string
}

// NewLabelVector pairs ids with classes (copied).
func NewLabelVector(ids, classes []string) (LabelVector, error) {
	if len(ids) != len(classes) {
		return LabelVector{}, &EntryError{Block: "labels", Row: -1, Col: -1,
			Err: fmt.Errorf("%w: %d ids, %d classes", ErrMalformedBlock, len(ids), len(classes))}
	}

	return LabelVector{
		IDs:     append([]string(nil), ids...),
		Classes: append([]string(nil), classes...),
	}, nil
}

// Len returns the number of entries.
func (l LabelVector) Len() int { return len(l.IDs) }

// IsMissingClass reports whether class is empty (after trimming) or equal to
// one of tokens (case-insensitive).
func IsMissingClass(class string, tokens []string) bool {
	c := strings.TrimSpace(class)
	if c == "" {
		return true
	}
	for _, t := range tokens {
		if strings.EqualFold(c, t) {
			return true
		}
	}

	return false
}

// SortedClasses returns the distinct values of labels in lexicographic order.
func SortedClasses(labels []string) []string {
	set := make(map[string]struct{}, len(labels))
	for _, c := range labels {
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)

	return out
}
