package dsp

import "github.com/deepteams/inloop/frame"

// CDEF working buffer layout. A 64x64 filter block is copied into a
// uint16 buffer with CDEFHBorder columns and CDEFVBorder rows of context
// on each side. Context that does not exist holds CDEFVeryLarge.
const (
	CDEFVeryLarge = 30000
	CDEFHBorder   = 8
	CDEFVBorder   = 2
	CDEFBlockSize = 64
	CDEFBStride   = CDEFBlockSize + 2*CDEFHBorder
	CDEFBufRows   = CDEFBlockSize + 2*CDEFVBorder
	CDEFBufSize   = CDEFBStride * CDEFBufRows
)

// Tap offsets for the eight directions, two distances each, expressed as
// (row, col) steps in the working buffer.
var cdefDirections = [8][2][2]int{
	{{-1, 1}, {-2, 2}},
	{{0, 1}, {-1, 2}},
	{{0, 1}, {0, 2}},
	{{0, 1}, {1, 2}},
	{{1, 1}, {2, 2}},
	{{1, 0}, {2, 1}},
	{{1, 0}, {2, 0}},
	{{1, 0}, {2, -1}},
}

var (
	// cdefDirOffsets holds cdefDirections flattened for CDEFBStride.
	cdefDirOffsets = func() (o [8][2]int) {
		for d := range cdefDirections {
			for k := range 2 {
				o[d][k] = cdefDirections[d][k][0]*CDEFBStride + cdefDirections[d][k][1]
			}
		}
		return o
	}()

	cdefPriTaps = [2][2]int{{4, 2}, {3, 3}}
	cdefSecTaps = [2]int{2, 1}

	cdefDivTable = [9]int{0, 840, 420, 280, 210, 168, 140, 120, 105}

	// Direction remaps for chroma planes whose horizontal and vertical
	// subsampling differ.
	cdefConv422 = [8]int{7, 0, 2, 4, 5, 6, 6, 6}
	cdefConv440 = [8]int{1, 2, 2, 2, 3, 4, 6, 0}
)

// FindDir returns the dominant direction (0..7) of the 8x8 block at
// img[off] and the energy gap to the orthogonal direction.
func FindDir(img []uint16, off, stride, coeffShift int) (dir, variance int) {
	var cost [8]int
	var partial [8][15]int
	for i := 0; i < 8; i++ {
		row := img[off+i*stride : off+i*stride+8]
		for j := 0; j < 8; j++ {
			x := int(row[j]>>coeffShift) - 128
			partial[0][i+j] += x
			partial[1][i+j/2] += x
			partial[2][i] += x
			partial[3][3+i-j/2] += x
			partial[4][7+i-j] += x
			partial[5][3-i/2+j] += x
			partial[6][j] += x
			partial[7][i/2+j] += x
		}
	}
	for i := 0; i < 8; i++ {
		cost[2] += partial[2][i] * partial[2][i]
		cost[6] += partial[6][i] * partial[6][i]
	}
	cost[2] *= cdefDivTable[8]
	cost[6] *= cdefDivTable[8]
	for i := 0; i < 7; i++ {
		cost[0] += (partial[0][i]*partial[0][i] + partial[0][14-i]*partial[0][14-i]) * cdefDivTable[i+1]
		cost[4] += (partial[4][i]*partial[4][i] + partial[4][14-i]*partial[4][14-i]) * cdefDivTable[i+1]
	}
	cost[0] += partial[0][7] * partial[0][7] * cdefDivTable[8]
	cost[4] += partial[4][7] * partial[4][7] * cdefDivTable[8]
	for i := 1; i < 8; i += 2 {
		for j := 0; j < 5; j++ {
			cost[i] += partial[i][3+j] * partial[i][3+j]
		}
		cost[i] *= cdefDivTable[8]
		for j := 0; j < 3; j++ {
			cost[i] += (partial[i][j]*partial[i][j] + partial[i][10-j]*partial[i][10-j]) * cdefDivTable[2*j+2]
		}
	}

	best := 0
	for i := 0; i < 8; i++ {
		if cost[i] > best {
			best = cost[i]
			dir = i
		}
	}
	return dir, (best - cost[(dir+4)&7]) >> 10
}

// Constrain limits the neighbour difference diff: differences beyond the
// threshold fade to zero at a rate set by damping.
func Constrain(diff, threshold, damping int) int {
	if threshold == 0 {
		return 0
	}
	shift := max(0, damping-msb(threshold))
	a := min(abs(diff), max(0, threshold-(abs(diff)>>shift)))
	if diff < 0 {
		return -a
	}
	return a
}

// AdjustStrength scales a luma primary strength by the block's
// directional variance.
func AdjustStrength(strength, variance int) int {
	if variance == 0 {
		return 0
	}
	i := 0
	if variance>>6 != 0 {
		i = min(msb(variance>>6), 12)
	}
	return (strength*(4+i) + 8) >> 4
}

// RemapChromaDir maps a luma direction onto a chroma plane subsampled by
// (subX, subY).
func RemapChromaDir(dir, subX, subY int) int {
	switch {
	case subX == subY:
		return dir
	case subX != 0:
		return cdefConv422[dir]
	default:
		return cdefConv440[dir]
	}
}

// CDEFBlock describes one block filter invocation. Strengths and damping
// are already scaled to the bit depth.
type CDEFBlock struct {
	PriStrength int
	SecStrength int
	Dir         int
	PriDamping  int
	SecDamping  int
	CoeffShift  int
	W, H        int
}

// widen extends [lo, hi] by v. The sentinel can only ever be a maximum,
// so it is skipped there.
func widen(v, lo, hi int) (int, int) {
	if v != CDEFVeryLarge && v > hi {
		hi = v
	}
	if v < lo {
		lo = v
	}
	return lo, hi
}

// FilterBlock filters the W x H block whose working-buffer origin is
// in[inOff] (stride CDEFBStride) and writes the result to dst[dstOff].
// Sentinel neighbours never move a sample and never widen its clamp range.
func FilterBlock[T frame.Sample](dst []T, dstOff, dstStride int, in []uint16, inOff int, b CDEFBlock) {
	pri := b.PriStrength
	sec := b.SecStrength
	priTaps := cdefPriTaps[(pri>>b.CoeffShift)&1]
	po := cdefDirOffsets[b.Dir]
	so1 := cdefDirOffsets[(b.Dir+2)&7]
	so2 := cdefDirOffsets[(b.Dir+6)&7]

	for i := 0; i < b.H; i++ {
		for j := 0; j < b.W; j++ {
			c := inOff + i*CDEFBStride + j
			x := int(in[c])
			sum := 0
			lo, hi := x, x
			for k := 0; k < 2; k++ {
				if pri != 0 {
					p0 := int(in[c+po[k]])
					p1 := int(in[c-po[k]])
					sum += priTaps[k] * (Constrain(p0-x, pri, b.PriDamping) + Constrain(p1-x, pri, b.PriDamping))
					lo, hi = widen(p0, lo, hi)
					lo, hi = widen(p1, lo, hi)
				}
				if sec != 0 {
					s0 := int(in[c+so1[k]])
					s1 := int(in[c-so1[k]])
					s2 := int(in[c+so2[k]])
					s3 := int(in[c-so2[k]])
					sum += cdefSecTaps[k] * (Constrain(s0-x, sec, b.SecDamping) +
						Constrain(s1-x, sec, b.SecDamping) +
						Constrain(s2-x, sec, b.SecDamping) +
						Constrain(s3-x, sec, b.SecDamping))
					lo, hi = widen(s0, lo, hi)
					lo, hi = widen(s1, lo, hi)
					lo, hi = widen(s2, lo, hi)
					lo, hi = widen(s3, lo, hi)
				}
			}
			neg := 0
			if sum < 0 {
				neg = 1
			}
			y := x + ((8 + sum - neg) >> 4)
			dst[dstOff+i*dstStride+j] = T(clamp(y, lo, hi))
		}
	}
}
