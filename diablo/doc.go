// SPDX-License-Identifier: MIT

// Package diablo fits a supervised multi-block sparse latent-variable model:
// per block, C sparse loading vectors whose scores are correlated across
// blocks and with a one-hot encoding of the class label.
//
// Fit, per component h = 1..C:
//
//  1. Initialise each block loading from the leading singular pair of XᵦᵀY.
//  2. Iterate Gauss–Seidel block updates
//     zⱼ = Σₖ cⱼₖ tₖ,  aⱼ = normalise(soft(Xⱼᵀzⱼ, keepⱼ)),  tⱼ = Xⱼaⱼ
//     where the design c links omics blocks with Config.Design and every block
//     with the response Y with weight 1. soft zeroes all but the keepⱼ
//     largest-magnitude entries and shrinks the survivors.
//  3. Stop when the largest loading change is below Tol or after MaxIter
//     iterations (the last iterate is kept and WarnNonConvergence recorded).
//  4. Deflate every block, Xᵦ ← Xᵦ − tᵦpᵦᵀ, and Y on the mean block score.
//
// Prediction maps new samples with the training centres and scales, projects
// through W* = W(PᵀW)⁻¹ and classifies the concatenated block scores with one
// of three Rules. Partial models use only the first c components.
//
// Determinism: no randomness; fixed loop order; ties resolve to the
// lexicographically first class.
package diablo
