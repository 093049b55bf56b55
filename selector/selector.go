// Package selector picks a robot-balanced subset of candidate edges for verification.
//
// Eligible edges are grouped by peer robot and each group is ranked by
// similarity. Groups are then visited round-robin in increasing robot id order,
// taking the next-best edge from each, so a peer with many matches cannot crowd
// out peers with few.
package selector

import (
	"cmp"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/anadon/cslam/graph"
)

// Options contains configuration options for a Selector.
type Options struct {
	// SelfRobotID is excluded as a peer.
	SelfRobotID int32

	// Threshold is the minimum similarity for an edge to be eligible.
	Threshold float64
}

// Selector ranks and samples candidate edges. It holds no mutable state.
type Selector struct {
	opts Options
}

// New creates a Selector.
func New(optFns ...func(o *Options)) *Selector {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Selector{opts: opts}
}

// robotKey maps an int32 robot id onto the bitmap's uint32 domain,
// preserving order.
func robotKey(id int32) uint32 { return uint32(id) ^ 1<<31 }

func robotFromKey(k uint32) int32 { return int32(k ^ 1<<31) }

// Considered converts a per-robot flag map into a robot set.
// Robots mapped to false are left out.
func Considered(flags map[int32]bool) *roaring.Bitmap {
	b := roaring.New()
	for id, ok := range flags {
		if ok {
			b.Add(robotKey(id))
		}
	}
	return b
}

// Select returns at most nbCandidates eligible edges, balanced across peer robots.
// A robot absent from considered is treated as not considered. The result is
// never nil.
func (s *Selector) Select(entries []graph.Entry, nbCandidates int, considered map[int32]bool) []graph.Edge {
	return s.SelectFrom(entries, nbCandidates, Considered(considered))
}

// SelectFrom is Select with a robot set precomputed by Considered.
func (s *Selector) SelectFrom(entries []graph.Entry, nbCandidates int, considered *roaring.Bitmap) []graph.Edge {
	if nbCandidates <= 0 || len(entries) == 0 || considered == nil || considered.IsEmpty() {
		return []graph.Edge{}
	}

	groups := make(map[int32][]graph.Entry)
	present := roaring.New()
	total := 0
	for _, e := range entries {
		if !s.eligible(e.Edge, considered) {
			continue
		}
		groups[e.Robot1ID] = append(groups[e.Robot1ID], e)
		present.Add(robotKey(e.Robot1ID))
		total++
	}
	if total == 0 {
		return []graph.Edge{}
	}

	// present iterates in increasing robot id order.
	ordered := make([][]graph.Entry, 0, len(groups))
	it := present.Iterator()
	for it.HasNext() {
		g := groups[robotFromKey(it.Next())]
		slices.SortFunc(g, compareEntries)
		ordered = append(ordered, g)
	}

	return roundRobin(ordered, min(nbCandidates, total))
}

func (s *Selector) eligible(e graph.Edge, considered *roaring.Bitmap) bool {
	if e.Robot1ID == s.opts.SelfRobotID {
		return false
	}
	if !considered.Contains(robotKey(e.Robot1ID)) {
		return false
	}
	return e.Similarity >= s.opts.Threshold
}

// compareEntries orders previously rejected edges last, then by similarity
// descending, then by remote image and local image ascending.
func compareEntries(a, b graph.Entry) int {
	if c := cmp.Compare(a.Rejections, b.Rejections); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Similarity, a.Similarity); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Image1ID, b.Image1ID); c != 0 {
		return c
	}
	return cmp.Compare(a.Image0ID, b.Image0ID)
}

// roundRobin takes the next-best edge from each group in turn until n edges
// are collected. Exhausted groups are dropped from the rotation.
func roundRobin(groups [][]graph.Entry, n int) []graph.Edge {
	out := make([]graph.Edge, 0, n)
	cursors := make([]int, len(groups))
	active := make([]int, len(groups))
	for i := range active {
		active[i] = i
	}

	for len(out) < n && len(active) > 0 {
		next := active[:0]
		for _, gi := range active {
			if len(out) == n {
				break
			}
			out = append(out, groups[gi][cursors[gi]].Edge)
			cursors[gi]++
			if cursors[gi] < len(groups[gi]) {
				next = append(next, gi)
			}
		}
		active = next
	}

	return out
}
