// Package testutil provides deterministic descriptor generators for tests,
// benchmarks and synthetic descriptor logs.
//
// # Random Descriptors
//
//	rng := testutil.NewRNG(seed)
//	vecs := rng.UniformVectors(100, 10) // uniform [0, 1)
//	near := rng.Perturb(vecs[0], 0.01)  // near-duplicate of vecs[0]
//
// # Exact Search (Ground Truth)
//
//	row, dist := testutil.ExactNearest(query, vecs, distance.Euclidean)
package testutil
