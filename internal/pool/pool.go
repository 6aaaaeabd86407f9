// Package pool provides bucketed sync.Pool instances for the scratch
// memory of a filter pass: CDEF working blocks and line snapshots (uint16)
// and compression buffers (bytes). Sizes are counted in elements.
package pool

import "sync"

// Size classes for bucketed pools.
const (
	Size256B = 256
	Size1K   = 1024
	Size4K   = 4096
	Size16K  = 16384
	Size64K  = 65536
	Size256K = 262144
	Size1M   = 1048576
)

// bucketIndex returns the pool index for a given size.
func bucketIndex(size int) int {
	switch {
	case size <= Size256B:
		return 0
	case size <= Size1K:
		return 1
	case size <= Size4K:
		return 2
	case size <= Size16K:
		return 3
	case size <= Size64K:
		return 4
	case size <= Size256K:
		return 5
	default:
		return 6
	}
}

var sizes = [7]int{Size256B, Size1K, Size4K, Size16K, Size64K, Size256K, Size1M}

// Bucketed is a set of size-classed pools of []T.
type Bucketed[T any] struct {
	pools [7]sync.Pool
}

// NewBucketed returns pools whose buckets start at the package size
// classes.
func NewBucketed[T any]() *Bucketed[T] {
	b := &Bucketed[T]{}
	for i := range b.pools {
		sz := sizes[i]
		b.pools[i].New = func() any {
			s := make([]T, sz)
			return &s
		}
	}
	return b
}

// Get returns a slice of length size with unspecified contents.
func (b *Bucketed[T]) Get(size int) []T {
	sp := b.pools[bucketIndex(size)].Get().(*[]T)
	s := *sp
	if cap(s) < size {
		s = make([]T, size)
		*sp = s
		return s
	}
	return s[:size]
}

// Put returns s to its bucket. Slices smaller than the first class are
// dropped.
func (b *Bucketed[T]) Put(s []T) {
	c := cap(s)
	if c < Size256B {
		return
	}
	s = s[:c]
	b.pools[bucketIndex(c)].Put(&s)
}

var (
	bytes   = NewBucketed[byte]()
	samples = NewBucketed[uint16]()
)

// Get returns a byte slice of length size from the pool. The caller must
// call Put when done.
func Get(size int) []byte { return bytes.Get(size) }

// Put returns a byte slice obtained from Get.
func Put(b []byte) { bytes.Put(b) }

// GetUint16 returns a uint16 slice of length n from the pool.
func GetUint16(n int) []uint16 { return samples.Get(n) }

// PutUint16 returns a slice obtained from GetUint16.
func PutUint16(s []uint16) { samples.Put(s) }
