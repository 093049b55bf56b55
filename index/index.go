package index

import (
	"errors"
	"fmt"
	"slices"

	"github.com/anadon/cslam/distance"
)

// ErrEmptyVector is returned when a zero-length vector is inserted or queried.
var ErrEmptyVector = errors.New("vector must not be empty")

// ErrDimensionMismatch is a named error type for dimension mismatch
type ErrDimensionMismatch struct {
	Expected int // Expected dimensions
	Actual   int // Actual dimensions
}

// Error returns the error message for dimension mismatch
func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Row is a single stored descriptor.
type Row struct {
	ID      int // Row number, assigned in insertion order
	ImageID int64
	Vector  []float64
}

// Match is the result of a nearest-neighbour query.
type Match struct {
	Row      int
	ImageID  int64
	Distance float64
}

// Options contains configuration options for an index.
type Options struct {
	// Dimension fixes the vector dimensionality up front.
	// If 0, the first insert fixes it.
	Dimension int

	// Metric selects the distance function used by queries.
	Metric distance.Metric

	// Capacity pre-sizes the row storage.
	Capacity int
}

// DefaultOptions contains the default configuration options for an index.
var DefaultOptions = Options{
	Dimension: 0,
	Metric:    distance.MetricL2,
}

// Index is an append-only exact nearest-neighbour index.
type Index struct {
	dim          int
	imageIDs     []int64
	data         []float64 // row-major, len(imageIDs) * dim values
	distanceFunc distance.Func
	opts         Options
}

// New creates a new, empty index.
func New(optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension < 0 {
		return nil, fmt.Errorf("invalid dimension: %d", opts.Dimension)
	}

	fn, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	x := &Index{
		dim:          opts.Dimension,
		distanceFunc: fn,
		opts:         opts,
	}
	if opts.Capacity > 0 {
		x.imageIDs = make([]int64, 0, opts.Capacity)
		if opts.Dimension > 0 {
			x.data = make([]float64, 0, opts.Capacity*opts.Dimension)
		}
	}

	return x, nil
}

// Dimension returns the fixed dimensionality, or 0 if not yet established.
func (x *Index) Dimension() int { return x.dim }

// Len returns the number of rows.
func (x *Index) Len() int { return len(x.imageIDs) }

// Metric returns the distance metric used by queries.
func (x *Index) Metric() distance.Metric { return x.opts.Metric }

// CheckDimension reports whether a vector of length n could be inserted.
func (x *Index) CheckDimension(n int) error {
	if n == 0 {
		return ErrEmptyVector
	}
	if x.dim != 0 && n != x.dim {
		return &ErrDimensionMismatch{Expected: x.dim, Actual: n}
	}
	return nil
}

// Add appends a copy of v as a new row and returns its row number.
// On error nothing is stored.
func (x *Index) Add(imageID int64, v []float64) (int, error) {
	if err := x.CheckDimension(len(v)); err != nil {
		return -1, err
	}
	if x.dim == 0 {
		x.dim = len(v)
	}

	id := len(x.imageIDs)
	x.data = append(x.data, v...)
	x.imageIDs = append(x.imageIDs, imageID)

	return id, nil
}

// Row returns a copy of row i.
func (x *Index) Row(i int) (Row, bool) {
	if i < 0 || i >= len(x.imageIDs) {
		return Row{}, false
	}
	return Row{
		ID:      i,
		ImageID: x.imageIDs[i],
		Vector:  slices.Clone(x.vector(i)),
	}, true
}

// Last returns a copy of the most recently appended row.
func (x *Index) Last() (Row, bool) {
	return x.Row(len(x.imageIDs) - 1)
}

// Nearest returns the row closest to q. Ties go to the lowest row number.
// ok is false when the index is empty.
func (x *Index) Nearest(q []float64) (m Match, ok bool, err error) {
	if len(x.imageIDs) == 0 {
		return Match{}, false, nil
	}
	if len(q) != x.dim {
		return Match{}, false, &ErrDimensionMismatch{Expected: x.dim, Actual: len(q)}
	}

	best := Match{Row: -1}
	for i := range x.imageIDs {
		d := x.distanceFunc(q, x.vector(i))
		if best.Row < 0 || d < best.Distance {
			best = Match{Row: i, ImageID: x.imageIDs[i], Distance: d}
		}
	}

	return best, true, nil
}

// All iterates over every row in insertion order.
// The yielded vectors alias index storage and must not be modified.
func (x *Index) All() func(yield func(Row) bool) {
	return func(yield func(Row) bool) {
		for i := range x.imageIDs {
			if !yield(Row{ID: i, ImageID: x.imageIDs[i], Vector: x.vector(i)}) {
				return
			}
		}
	}
}

func (x *Index) vector(i int) []float64 {
	return x.data[i*x.dim : (i+1)*x.dim : (i+1)*x.dim]
}
