package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketIndex(t *testing.T) {
	tests := []struct {
		size, want int
	}{
		{0, 0}, {1, 0}, {Size256B, 0},
		{Size256B + 1, 1}, {Size1K, 1},
		{Size1K + 1, 2}, {Size4K, 2},
		{Size4K + 1, 3}, {Size16K, 3},
		{Size16K + 1, 4}, {Size64K, 4},
		{Size64K + 1, 5}, {Size256K, 5},
		{Size256K + 1, 6}, {Size1M, 6}, {4 * Size1M, 6},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bucketIndex(tt.size), "size %d", tt.size)
	}
}

func TestBucketed_Get(t *testing.T) {
	b := NewBucketed[uint16]()
	for _, n := range []int{0, 1, 300, Size4K, Size1M, Size1M + 5} {
		s := b.Get(n)
		require.Len(t, s, n)
		if n <= Size1M {
			assert.GreaterOrEqual(t, cap(s), sizes[bucketIndex(n)], "n %d", n)
		}
		b.Put(s)
	}
}

// Requests below the first class get a whole first-class slice.
func TestGetUint16_WorkingBlock(t *testing.T) {
	s := GetUint16(12 * 12)
	assert.Len(t, s, 144)
	assert.Equal(t, Size256B, cap(s))
	PutUint16(s)
}

func TestPut_Reuse(t *testing.T) {
	b := NewBucketed[byte]()
	s := b.Get(Size4K)
	b.Put(s[:10])

	// sync.Pool may drop the slice, so only the length contract is
	// guaranteed; the capacity must still fit the request.
	again := b.Get(3000)
	assert.Len(t, again, 3000)
	assert.GreaterOrEqual(t, cap(again), 3000)
}

func TestPut_SmallOrNil(t *testing.T) {
	b := NewBucketed[byte]()
	b.Put(nil)
	b.Put(make([]byte, 10))
	assert.Len(t, b.Get(10), 10)
}

func TestConcurrentGetPut(t *testing.T) {
	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				for _, n := range []int{100, 2000, 40000} {
					s := GetUint16(n + g)
					for j := range s {
						s[j] = uint16(g)
					}
					PutUint16(s)

					bs := Get(n)
					bs[len(bs)-1] = byte(g)
					Put(bs)
				}
			}
		}(g)
	}
	wg.Wait()
}

func BenchmarkGetUint16(b *testing.B) {
	for i := 0; i < b.N; i++ {
		PutUint16(GetUint16(Size4K))
	}
}

func BenchmarkGetUint16Parallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			PutUint16(GetUint16(Size4K))
		}
	})
}
