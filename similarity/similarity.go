// Package similarity converts descriptor distances into bounded similarity scores.
//
// The model is a logistic curve centred on Loc:
//
//	score = 1 / (1 + exp((distance - Loc) / Scale))
//
// A distance equal to Loc maps to 0.5, smaller distances approach 1 and larger
// distances approach 0. Scale controls how sharply the curve falls.
package similarity

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidModel is returned when model parameters cannot produce a valid curve.
var ErrInvalidModel = errors.New("invalid similarity model")

// Default parameters used when no configuration is supplied.
const (
	DefaultLoc   = 1.0
	DefaultScale = 0.25
)

// Model is a logistic distance-to-similarity transform.
// The zero value is not usable; create models with NewModel or Default.
type Model struct {
	Loc   float64
	Scale float64
}

// NewModel returns a Model after validating its parameters.
func NewModel(loc, scale float64) (Model, error) {
	if math.IsNaN(loc) || math.IsInf(loc, 0) {
		return Model{}, fmt.Errorf("%w: loc must be finite, got %v", ErrInvalidModel, loc)
	}
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return Model{}, fmt.Errorf("%w: scale must be positive and finite, got %v", ErrInvalidModel, scale)
	}
	return Model{Loc: loc, Scale: scale}, nil
}

// Default returns the model with DefaultLoc and DefaultScale.
func Default() Model {
	return Model{Loc: DefaultLoc, Scale: DefaultScale}
}

// Similarity maps a distance to a score in [0, 1].
//
// The exponential is only ever evaluated on a non-positive argument, so it
// cannot overflow for large distances or large negative offsets.
func (m Model) Similarity(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}
	z := (distance - m.Loc) / m.Scale
	if z >= 0 {
		e := math.Exp(-z)
		return e / (1 + e)
	}
	return 1 / (1 + math.Exp(z))
}
