package testutil

import (
	"math/rand"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/anadon/cslam/distance"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Perm returns a pseudo-random permutation of [0,n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float64 in a loop).
func (r *RNG) FillUniform(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float64()
	}
}

// UniformVector generates a single random vector with values in range [0, 1).
func (r *RNG) UniformVector(dimensions int) []float64 {
	v := make([]float64, dimensions)
	r.FillUniform(v)
	return v
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num int, dimensions int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float64, num*dimensions)
	vectors := make([][]float64, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float64()
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
// Uses Gaussian distribution for uniform distribution on the sphere.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	vectors := make([][]float64, num)
	for i := range num {
		vec := make([]float64, dimensions)
		for j := range vec {
			vec[j] = r.rand.NormFloat64()
		}

		norm := floats.Norm(vec, 2)
		if norm == 0 {
			norm = 1
		}
		floats.Scale(1/norm, vec)
		vectors[i] = vec
	}

	return vectors
}

// Perturb returns a copy of v with Gaussian noise of the given standard deviation.
func (r *RNG) Perturb(v []float64, stddev float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x + r.rand.NormFloat64()*stddev
	}
	return out
}

// Complement returns 1 - v element-wise. For v in [0,1) it is a far-away vector.
func Complement(v []float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = 1 - x
	}
	return out
}

// ExactNearest returns the row of dataset closest to query and its distance.
// Ties resolve to the lowest row. It returns -1 for an empty dataset.
func ExactNearest(query []float64, dataset [][]float64, fn distance.Func) (int, float64) {
	best, bestDist := -1, 0.0
	for i, v := range dataset {
		d := fn(query, v)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
