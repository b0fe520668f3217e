package robust

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// RowBitmap marks a set of row ids, used by the distributed updater's
// SetNonDefaultPosition override to Allreduce a boolean row-bitmap with
// bitwise OR across workers. Wraps RoaringBitmap the way
// hupe1980/vecgo's metadata.LocalBitmap does.
type RowBitmap struct {
	rb *roaring.Bitmap
}

// NewRowBitmap returns an empty RowBitmap.
func NewRowBitmap() *RowBitmap {
	return &RowBitmap{rb: roaring.New()}
}

// Set marks row as non-default (took the non-default branch at some
// split during this level).
func (b *RowBitmap) Set(row int) { b.rb.Add(uint32(row)) }

// Contains reports whether row was marked.
func (b *RowBitmap) Contains(row int) bool { return b.rb.Contains(uint32(row)) }

// Or merges other into b in place (the OR-reduce step of Allreduce).
func (b *RowBitmap) Or(other *RowBitmap) { b.rb.Or(other.rb) }

// Clone returns a deep copy.
func (b *RowBitmap) Clone() *RowBitmap { return &RowBitmap{rb: b.rb.Clone()} }

// Each calls fn for every set row id, in increasing order.
func (b *RowBitmap) Each(fn func(row int)) {
	it := b.rb.Iterator()
	for it.HasNext() {
		fn(int(it.Next()))
	}
}

// Cardinality returns the number of rows set.
func (b *RowBitmap) Cardinality() uint64 { return b.rb.GetCardinality() }
