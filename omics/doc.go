// SPDX-License-Identifier: MIT

// Package omics defines the domain values shared by the integration pipeline:
//
//   - Block: one modality's sample×feature matrix with explicit row labels
//     (sample identifiers) and column labels (feature identifiers).
//   - LabelVector: the sample → class table, where "" and configured NA tokens
//     mark a missing class.
//   - AlignedDataset: blocks plus labels sharing one canonical sample order.
//   - Warning: the structured record of a degraded-but-recoverable condition
//     (duplicate identifiers, small blocks, non-convergence, ...).
//
// Comparison prefixes: two sample identifiers from different sources refer to
// the same sample iff their first n bytes agree (see Prefix). This matches
// barcodes recorded at different granularity, e.g. "TCGA-A1-A0SB-01A-11R"
// and "TCGA-A1-A0SB" with n = 12.
package omics
