// Package index provides exact nearest-neighbour indexes over global descriptors.
//
// An Index is an append-only table of (image id, vector) rows. Row numbers are
// assigned monotonically in insertion order and never change. The dimension of
// an index is fixed by its first insert (or by Options.Dimension) and enforced
// on every later insert and query.
//
// A Set holds one Index per peer robot and creates them on demand.
//
// Neither type is safe for concurrent mutation. Concurrent reads are safe as
// long as no Add is in flight; the engine serialises all writers.
package index
