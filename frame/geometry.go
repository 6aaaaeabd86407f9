// Package frame holds the data the in-loop filters operate on: the
// reconstructed picture (one sample buffer per plane), the per-4x4 block
// metadata produced by the upstream decode stages, and the per-frame header
// parameters that select filter strengths.
//
// Everything in this package is owned by the caller. The filters mutate the
// sample buffers in place and never modify a Grid or Params.
package frame

// Mode-info (4x4) and superblock geometry.
const (
	MISize     = 4
	MISizeLog2 = 2

	SuperblockSize     = 64
	SuperblockSizeLog2 = 6
	SuperblockMI       = SuperblockSize >> MISizeLog2
	SuperblockMILog2   = SuperblockSizeLog2 - MISizeLog2

	MaxPlanes     = 3
	MaxSegments   = 8
	RefFrames     = 8
	MaxLoopFilter = 63

	// MaxDimension bounds the luma width and height accepted by NewFrame
	// and by the filter engines when sizing their synchronization state.
	MaxDimension = 1 << 16
)

// Plane indices.
const (
	PlaneY = 0
	PlaneU = 1
	PlaneV = 2
)

// Geometry describes a rectangular block size in samples.
type Geometry struct {
	W, H         int
	Log2W, Log2H int
}

func geom(log2w, log2h int) Geometry {
	return Geometry{W: 1 << log2w, H: 1 << log2h, Log2W: log2w, Log2H: log2h}
}

// TxSize is a transform size, in bitstream order.
type TxSize uint8

const (
	Tx4x4 TxSize = iota
	Tx8x8
	Tx16x16
	Tx32x32
	Tx64x64
	Tx4x8
	Tx8x4
	Tx8x16
	Tx16x8
	Tx16x32
	Tx32x16
	Tx32x64
	Tx64x32
	Tx4x16
	Tx16x4
	Tx8x32
	Tx32x8
	Tx16x64
	Tx64x16
	TxSizes
)

var txGeometry = [TxSizes]Geometry{
	Tx4x4:   geom(2, 2),
	Tx8x8:   geom(3, 3),
	Tx16x16: geom(4, 4),
	Tx32x32: geom(5, 5),
	Tx64x64: geom(6, 6),
	Tx4x8:   geom(2, 3),
	Tx8x4:   geom(3, 2),
	Tx8x16:  geom(3, 4),
	Tx16x8:  geom(4, 3),
	Tx16x32: geom(4, 5),
	Tx32x16: geom(5, 4),
	Tx32x64: geom(5, 6),
	Tx64x32: geom(6, 5),
	Tx4x16:  geom(2, 4),
	Tx16x4:  geom(4, 2),
	Tx8x32:  geom(3, 5),
	Tx32x8:  geom(5, 3),
	Tx16x64: geom(4, 6),
	Tx64x16: geom(6, 4),
}

// Geometry returns the width and height of the transform.
func (t TxSize) Geometry() Geometry {
	if t >= TxSizes {
		return txGeometry[Tx4x4]
	}
	return txGeometry[t]
}

// Valid reports whether t names a transform size.
func (t TxSize) Valid() bool { return t < TxSizes }

// BlockSize is a prediction block size, in bitstream order.
type BlockSize uint8

const (
	Block4x4 BlockSize = iota
	Block4x8
	Block8x4
	Block8x8
	Block8x16
	Block16x8
	Block16x16
	Block16x32
	Block32x16
	Block32x32
	Block32x64
	Block64x32
	Block64x64
	Block64x128
	Block128x64
	Block128x128
	Block4x16
	Block16x4
	Block8x32
	Block32x8
	Block16x64
	Block64x16
	BlockSizes
)

var blockGeometry = [BlockSizes]Geometry{
	Block4x4:     geom(2, 2),
	Block4x8:     geom(2, 3),
	Block8x4:     geom(3, 2),
	Block8x8:     geom(3, 3),
	Block8x16:    geom(3, 4),
	Block16x8:    geom(4, 3),
	Block16x16:   geom(4, 4),
	Block16x32:   geom(4, 5),
	Block32x16:   geom(5, 4),
	Block32x32:   geom(5, 5),
	Block32x64:   geom(5, 6),
	Block64x32:   geom(6, 5),
	Block64x64:   geom(6, 6),
	Block64x128:  geom(6, 7),
	Block128x64:  geom(7, 6),
	Block128x128: geom(7, 7),
	Block4x16:    geom(2, 4),
	Block16x4:    geom(4, 2),
	Block8x32:    geom(3, 5),
	Block32x8:    geom(5, 3),
	Block16x64:   geom(4, 6),
	Block64x16:   geom(6, 4),
}

// Geometry returns the luma dimensions of the block.
func (b BlockSize) Geometry() Geometry {
	if b >= BlockSizes {
		return blockGeometry[Block4x4]
	}
	return blockGeometry[b]
}

// PlaneGeometry returns the block dimensions in a plane subsampled by
// (subX, subY). Subsampled blocks never shrink below 4x4.
func (b BlockSize) PlaneGeometry(subX, subY int) Geometry {
	g := b.Geometry()
	lw := max(g.Log2W-subX, MISizeLog2)
	lh := max(g.Log2H-subY, MISizeLog2)
	return geom(lw, lh)
}

// MIs returns the block footprint in 4x4 units.
func (b BlockSize) MIs() (w, h int) {
	g := b.Geometry()
	return g.W >> MISizeLog2, g.H >> MISizeLog2
}

// PlaneTxDims returns the transform width and height used by the loop
// filter for a block in a subsampled (chroma) plane: the largest transform
// that fits the subsampled block, capped at 32.
func (b BlockSize) PlaneTxDims(subX, subY int) (w, h int) {
	g := b.PlaneGeometry(subX, subY)
	return min(g.W, 32), min(g.H, 32)
}

// AlignPowerOfTwo rounds v up to a multiple of 1<<n.
func AlignPowerOfTwo(v, n int) int {
	return (v + (1 << n) - 1) &^ ((1 << n) - 1)
}
