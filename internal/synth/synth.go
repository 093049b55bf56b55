// Package synth generates synthetic descriptor streams for replay.
//
// A stream holds Options.Local descriptors of one robot followed by
// Options.Remote descriptors for every other robot of the team. Options.Near of
// each peer's descriptors are perturbed copies of local ones, so a replay finds
// genuine loop closures among uniform noise.
package synth

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/anadon/cslam/codec"
)

// Options configures a synthetic stream.
type Options struct {
	RobotID int32   // robot whose keyframes are local
	Robots  int     // team size
	Local   int     // local descriptors
	Remote  int     // descriptors per peer
	Dim     int     // descriptor dimension
	Near    int     // planted near-duplicates per peer
	Noise   float64 // standard deviation of planted perturbations
	Seed    uint64
}

// Validate reports the first invalid option.
func (o Options) Validate() error {
	switch {
	case o.Robots < 1 || o.RobotID < 0 || int(o.RobotID) >= o.Robots:
		return fmt.Errorf("robot id must be in [0,%d)", o.Robots)
	case o.Dim < 1:
		return errors.New("dimension must be positive")
	case o.Local < 0 || o.Remote < 0 || o.Near < 0:
		return errors.New("counts must be non-negative")
	case o.Noise < 0:
		return errors.New("noise must be non-negative")
	}
	return nil
}

// Generate emits the stream described by opts, in order. The same options
// always produce the same stream. It stops at the first error from emit.
func Generate(opts Options, emit func(codec.Record) error) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	uniform := func() []float64 {
		v := make([]float64, opts.Dim)
		for i := range v {
			v[i] = rng.Float64()
		}
		return v
	}

	locals := make([][]float64, opts.Local)
	for i := range locals {
		locals[i] = uniform()
		if err := emit(codec.Record{Kind: codec.KindLocal, ImageID: int64(i), RobotID: opts.RobotID, Vector: locals[i]}); err != nil {
			return err
		}
	}

	for robot := range int32(opts.Robots) {
		if robot == opts.RobotID {
			continue
		}
		for i := range opts.Remote {
			var v []float64
			if i < opts.Near && len(locals) > 0 {
				src := locals[rng.IntN(len(locals))]
				v = make([]float64, len(src))
				for j, x := range src {
					v[j] = x + rng.NormFloat64()*opts.Noise
				}
			} else {
				v = uniform()
			}
			if err := emit(codec.Record{Kind: codec.KindRemote, ImageID: int64(i), RobotID: robot, Vector: v}); err != nil {
				return err
			}
		}
	}
	return nil
}
