package index

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// Set holds one Index per robot, created lazily on first insertion.
type Set struct {
	optFns  []func(o *Options)
	indexes map[int32]*Index
	robots  *roaring.Bitmap // robots with at least one row, keyed by robotKey
}

// robotKey maps an int32 robot id onto the bitmap's uint32 domain,
// preserving order.
func robotKey(id int32) uint32 { return uint32(id) ^ 1<<31 }

func robotFromKey(k uint32) int32 { return int32(k ^ 1<<31) }

// NewSet creates an empty set. optFns are applied to every index it creates.
// sizeHint pre-sizes the robot map and may be 0.
func NewSet(sizeHint int, optFns ...func(o *Options)) *Set {
	if sizeHint < 0 {
		sizeHint = 0
	}
	return &Set{
		optFns:  optFns,
		indexes: make(map[int32]*Index, sizeHint),
		robots:  roaring.New(),
	}
}

// Get returns the index for robotID, if any descriptor has been stored for it.
func (s *Set) Get(robotID int32) (*Index, bool) {
	x, ok := s.indexes[robotID]
	return x, ok
}

// CheckDimension reports whether a vector of length n could be stored for robotID.
func (s *Set) CheckDimension(robotID int32, n int) error {
	if x, ok := s.indexes[robotID]; ok {
		return x.CheckDimension(n)
	}
	if n == 0 {
		return ErrEmptyVector
	}
	return nil
}

// Add routes v into the index for robotID, creating that index if needed.
// A newly created index is only registered once its first row is stored.
func (s *Set) Add(robotID int32, imageID int64, v []float64) (int, error) {
	x, ok := s.indexes[robotID]
	if !ok {
		var err error
		if x, err = New(s.optFns...); err != nil {
			return -1, err
		}
	}

	row, err := x.Add(imageID, v)
	if err != nil {
		return -1, err
	}

	if !ok {
		s.indexes[robotID] = x
		s.robots.Add(robotKey(robotID))
	}
	return row, nil
}

// Robots returns the ids of all robots with stored descriptors, ascending.
func (s *Set) Robots() []int32 {
	out := make([]int32, 0, s.robots.GetCardinality())
	it := s.robots.Iterator()
	for it.HasNext() {
		out = append(out, robotFromKey(it.Next()))
	}
	return out
}

// Len returns the number of robots with stored descriptors.
func (s *Set) Len() int { return len(s.indexes) }

// Size returns the total number of rows across all indexes.
func (s *Set) Size() int {
	n := 0
	for _, x := range s.indexes {
		n += x.Len()
	}
	return n
}

// Dimension returns the dimension shared by all non-empty indexes,
// or 0 when the set is empty. ok is false if indexes disagree.
func (s *Set) Dimension() (dim int, ok bool) {
	for _, x := range s.indexes {
		if dim == 0 {
			dim = x.Dimension()
			continue
		}
		if x.Dimension() != dim {
			return dim, false
		}
	}
	return dim, true
}
