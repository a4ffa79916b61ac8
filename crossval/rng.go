// SPDX-License-Identifier: MIT

// Package crossval - RNG utilities for fold assignment.
//
// Goals:
//   - Determinism: same seed ⇒ identical partitions across platforms.
//   - One independent stream per repeat, so repeats can be generated in any
//     order (or concurrently) without changing each other's partitions.
//
// Concurrency:
//   - math/rand.Rand is NOT goroutine-safe. Each repeat owns its stream.
package crossval

import "math/rand"

// defaultSeed replaces a zero seed.
const defaultSeed int64 = 1

// effectiveSeed applies the seed==0 ⇒ defaultSeed policy.
func effectiveSeed(seed int64) int64 {
	if seed == 0 {
		return defaultSeed
	}

	return seed
}

// deriveSeed mixes a parent seed and a stream identifier into a new 64-bit
// seed with the SplitMix64 finalizer.
//
// Complexity: O(1).
func deriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31

	return int64(x)
}

// repeatRNG returns the stream of repeat r under seed.
func repeatRNG(seed int64, r int) *rand.Rand {
	return rand.New(rand.NewSource(deriveSeed(effectiveSeed(seed), uint64(r))))
}

// shuffleInts performs an in-place Fisher–Yates shuffle of a using rng.
//
// Complexity: O(n) time, O(1) extra space.
func shuffleInts(a []int, rng *rand.Rand) {
	for i := len(a) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		a[i], a[j] = a[j], a[i]
	}
}
