// Package graph stores candidate loop-closure edges between images of different robots.
//
// Edges are keyed by the full image pair (robot0, image0, robot1, image1). For a
// given key only the most similar edge seen so far is kept.
package graph

import (
	"fmt"
	"sync"
)

// Key identifies an edge by the image pair it connects.
type Key struct {
	Robot0ID int32
	Image0ID int64
	Robot1ID int32
	Image1ID int64
}

// String returns a string representation of the Key.
func (k Key) String() string {
	return fmt.Sprintf("(%d:%d)-(%d:%d)", k.Robot0ID, k.Image0ID, k.Robot1ID, k.Image1ID)
}

// Edge is a candidate match between an image of Robot0 and an image of Robot1.
// Robot0 is always the robot owning the local index that produced the edge.
type Edge struct {
	Robot0ID   int32   `json:"robot0_id"`
	Image0ID   int64   `json:"image0_id"`
	Robot1ID   int32   `json:"robot1_id"`
	Image1ID   int64   `json:"image1_id"`
	Similarity float64 `json:"similarity"`
}

// Key returns the canonical key of the edge.
func (e Edge) Key() Key {
	return Key{Robot0ID: e.Robot0ID, Image0ID: e.Image0ID, Robot1ID: e.Robot1ID, Image1ID: e.Image1ID}
}

// Entry is an edge together with its bookkeeping.
type Entry struct {
	Edge
	// Rejections counts how often downstream verification rejected this edge.
	Rejections int
}

// UpsertResult describes what Upsert did with an edge.
type UpsertResult int

const (
	Discarded UpsertResult = iota
	Inserted
	Replaced
)

func (r UpsertResult) String() string {
	switch r {
	case Discarded:
		return "discarded"
	case Inserted:
		return "inserted"
	case Replaced:
		return "replaced"
	default:
		return fmt.Sprintf("UpsertResult(%d)", int(r))
	}
}

// Graph is a deduplicated store of candidate edges. It is safe for concurrent use.
type Graph struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
}

// New creates an empty graph. sizeHint may be 0.
func New(sizeHint int) *Graph {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Graph{entries: make(map[Key]*Entry, sizeHint)}
}

// Upsert inserts e if its key is unknown, or replaces the stored edge when
// e.Similarity is strictly greater. Otherwise e is discarded.
func (g *Graph) Upsert(e Edge) UpsertResult {
	k := e.Key()

	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.entries[k]
	if !ok {
		g.entries[k] = &Entry{Edge: e}
		return Inserted
	}
	if e.Similarity > cur.Similarity {
		cur.Edge = e
		return Replaced
	}
	return Discarded
}

// Get returns the edge stored under k.
func (g *Graph) Get(k Key) (Edge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	cur, ok := g.entries[k]
	if !ok {
		return Edge{}, false
	}
	return cur.Edge, true
}

// Len returns the number of stored edges.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.entries)
}

// Edges returns a copy of all stored edges in unspecified order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Edge, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, e.Edge)
	}
	return out
}

// Entries returns a copy of all stored entries in unspecified order.
func (g *Graph) Entries() []Entry {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]Entry, 0, len(g.entries))
	for _, e := range g.entries {
		out = append(out, *e)
	}
	return out
}

// Reject records a failed verification of the edge under k and returns the
// new rejection count. It returns false if no such edge exists.
func (g *Graph) Reject(k Key) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cur, ok := g.entries[k]
	if !ok {
		return 0, false
	}
	cur.Rejections++
	return cur.Rejections, true
}

// Consume removes the edge under k. It returns false if no such edge exists.
func (g *Graph) Consume(k Key) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.entries[k]; !ok {
		return false
	}
	delete(g.entries, k)
	return true
}
