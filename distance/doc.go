// Package distance provides descriptor distance calculations.
//
// Vectors are float64 to match the wire format of global descriptors, and all
// kernels are backed by gonum's floats package or vek's SIMD routines.
//
// # Supported Metrics
//
//   - MetricL2: Euclidean distance (default)
//   - MetricCosine: 1 - cosine similarity
//   - MetricManhattan: L1 distance
//
// # Usage
//
//	fn, _ := distance.Provider(distance.MetricL2)
//	d := fn(a, b)
package distance
