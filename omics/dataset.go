// SPDX-License-Identifier: MIT

package omics

import "fmt"

// AlignedDataset holds blocks and labels sharing one ordered sample list:
// row i of every block and Labels[i] refer to Samples[i].
type AlignedDataset struct {
	Samples []string
	Blocks  []*Block
	Labels  []string
}

// Validate checks the shared-ordering invariant and that no label is empty.
func (d *AlignedDataset) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil dataset", ErrMisaligned)
	}
	n := len(d.Samples)
	if len(d.Labels) != n {
		return fmt.Errorf("%w: %d labels for %d samples", ErrMisaligned, len(d.Labels), n)
	}
	for i, c := range d.Labels {
		if c == "" {
			return fmt.Errorf("%w: sample %q has no class", ErrMisaligned, d.Samples[i])
		}
	}
	for _, b := range d.Blocks {
		if b == nil {
			return ErrNilBlock
		}
		if b.NumSamples() != n || b.Data.Rows() != n {
			return fmt.Errorf("%w: block %q has %d rows for %d samples", ErrMisaligned, b.Name, b.NumSamples(), n)
		}
		for i, s := range b.Samples {
			if s != d.Samples[i] {
				return fmt.Errorf("%w: block %q row %d is %q, want %q", ErrMisaligned, b.Name, i, s, d.Samples[i])
			}
		}
	}

	return nil
}

// NumSamples returns len(Samples).
func (d *AlignedDataset) NumSamples() int { return len(d.Samples) }

// Classes returns the distinct classes in lexicographic order.
func (d *AlignedDataset) Classes() []string { return SortedClasses(d.Labels) }

// BlockNames lists block names in dataset order.
func (d *AlignedDataset) BlockNames() []string {
	out := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		out[i] = b.Name
	}

	return out
}

// Subset returns a new dataset restricted to rows idx (in that order).
// Used to build training and held-out views of a fold.
func (d *AlignedDataset) Subset(idx []int) (*AlignedDataset, error) {
	out := &AlignedDataset{
		Samples: make([]string, len(idx)),
		Labels:  make([]string, len(idx)),
		Blocks:  make([]*Block, len(d.Blocks)),
	}
	for i, r := range idx {
		if r < 0 || r >= len(d.Samples) {
			return nil, fmt.Errorf("subset: row %d out of range [0,%d)", r, len(d.Samples))
		}
		out.Samples[i] = d.Samples[r]
		out.Labels[i] = d.Labels[r]
	}
	for k, b := range d.Blocks {
		pb, err := b.Project(idx, b.AllCols())
		if err != nil {
			return nil, err
		}
		out.Blocks[k] = pb
	}

	return out, nil
}

// WithBlocks returns a copy of d with its blocks replaced (same samples/labels).
func (d *AlignedDataset) WithBlocks(blocks []*Block) *AlignedDataset {
	return &AlignedDataset{
		Samples: append([]string(nil), d.Samples...),
		Blocks:  blocks,
		Labels:  append([]string(nil), d.Labels...),
	}
}
