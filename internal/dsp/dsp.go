// Package dsp provides the bit-exact sample kernels of the in-loop filters:
// the deblocking filters (4, 6, 8 and 14 taps), the CDEF direction search
// and block filter, and the colour conversion used by the command-line
// tools.
//
// Kernels use a full-buffer + base-offset approach: callers pass the whole
// plane (or working buffer) plus the offset of the first sample, so that
// "negative-context" access such as s[off-3*step] always resolves to a
// valid index. Kernels are generic over the sample type and take the bit
// depth explicitly; they never allocate.
package dsp

import "math/bits"

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// msb returns the index of the highest set bit of v (v > 0).
func msb(v int) int { return bits.Len(uint(v)) - 1 }

// roundShift is ROUND_POWER_OF_TWO for non-negative sums.
func roundShift(v, n int) int { return (v + (1 << (n - 1))) >> n }
