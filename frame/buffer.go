package frame

import (
	"errors"
	"fmt"
)

// Errors returned when constructing frames and grids.
var (
	ErrDimensions = errors.New("frame: invalid dimensions")
	ErrBitDepth   = errors.New("frame: unsupported bit depth")
)

// Sample is the storage type of one pixel component: 8-bit samples use
// uint8, 10- and 12-bit samples use uint16.
type Sample interface {
	~uint8 | ~uint16
}

// Plane is one component of a picture. Pix holds Stride*rows samples; the
// allocated area is aligned to the superblock grid so that filters may
// touch samples past the visible Width/Height without bounds trouble.
type Plane[T Sample] struct {
	Pix    []T
	Stride int
	Width  int // visible width in samples
	Height int // visible height in samples
	Rows   int // allocated rows
	SubX   int
	SubY   int
}

// Offset returns the index of sample (x, y) in Pix.
func (p *Plane[T]) Offset(x, y int) int { return y*p.Stride + x }

// At returns the sample at (x, y).
func (p *Plane[T]) At(x, y int) T { return p.Pix[y*p.Stride+x] }

// Set stores v at (x, y).
func (p *Plane[T]) Set(x, y int, v T) { p.Pix[y*p.Stride+x] = v }

// Fill sets every allocated sample of the plane to v.
func (p *Plane[T]) Fill(v T) {
	for i := range p.Pix {
		p.Pix[i] = v
	}
}

// Buffer owns the sample memory for all planes of a picture. The planes
// are carved from one backing slab.
type Buffer[T Sample] struct {
	Planes    [MaxPlanes]Plane[T]
	NumPlanes int
	slab      []T
}

func newBuffer[T Sample](width, height, numPlanes, subX, subY int) *Buffer[T] {
	aw := AlignPowerOfTwo(width, SuperblockSizeLog2)
	ah := AlignPowerOfTwo(height, SuperblockSizeLog2)

	total := aw * ah
	if numPlanes > 1 {
		total += 2 * (aw >> subX) * (ah >> subY)
	}
	b := &Buffer[T]{NumPlanes: numPlanes, slab: make([]T, total)}

	off := 0
	for i := 0; i < numPlanes; i++ {
		sx, sy := 0, 0
		if i > 0 {
			sx, sy = subX, subY
		}
		stride := aw >> sx
		rows := ah >> sy
		b.Planes[i] = Plane[T]{
			Pix:    b.slab[off : off+stride*rows : off+stride*rows],
			Stride: stride,
			Width:  (width + sx) >> sx,
			Height: (height + sy) >> sy,
			Rows:   rows,
			SubX:   sx,
			SubY:   sy,
		}
		off += stride * rows
	}
	return b
}

func (b *Buffer[T]) clone() *Buffer[T] {
	c := &Buffer[T]{NumPlanes: b.NumPlanes, slab: make([]T, len(b.slab))}
	copy(c.slab, b.slab)
	off := 0
	for i := 0; i < b.NumPlanes; i++ {
		p := b.Planes[i]
		n := len(p.Pix)
		p.Pix = c.slab[off : off+n : off+n]
		c.Planes[i] = p
		off += n
	}
	return c
}

// Frame is a reconstructed picture. Exactly one of the 8-bit or wide
// buffers is populated, selected by BitDepth at construction.
type Frame struct {
	Width     int
	Height    int
	BitDepth  int
	SubX      int
	SubY      int
	NumPlanes int

	b8  *Buffer[uint8]
	b16 *Buffer[uint16]
}

// NewFrame allocates a zeroed frame. bitDepth must be 8, 10 or 12;
// subX/subY are the chroma subsampling shifts (1,1 for 4:2:0). A
// monochrome frame carries only the luma plane.
func NewFrame(width, height, bitDepth, subX, subY int, monochrome bool) (*Frame, error) {
	if width <= 0 || height <= 0 || width > MaxDimension || height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrDimensions, width, height)
	}
	if subX < 0 || subX > 1 || subY < 0 || subY > 1 {
		return nil, fmt.Errorf("%w: subsampling %d,%d", ErrDimensions, subX, subY)
	}
	numPlanes := MaxPlanes
	if monochrome {
		numPlanes = 1
	}
	f := &Frame{
		Width:     width,
		Height:    height,
		BitDepth:  bitDepth,
		SubX:      subX,
		SubY:      subY,
		NumPlanes: numPlanes,
	}
	switch bitDepth {
	case 8:
		f.b8 = newBuffer[uint8](width, height, numPlanes, subX, subY)
	case 10, 12:
		f.b16 = newBuffer[uint16](width, height, numPlanes, subX, subY)
	default:
		return nil, fmt.Errorf("%w: %d", ErrBitDepth, bitDepth)
	}
	return f, nil
}

// HighBitDepth reports whether samples are stored as uint16.
func (f *Frame) HighBitDepth() bool { return f.b16 != nil }

// Planes8 returns the 8-bit sample buffer, or nil for wide frames.
func (f *Frame) Planes8() *Buffer[uint8] { return f.b8 }

// Planes16 returns the wide sample buffer, or nil for 8-bit frames.
func (f *Frame) Planes16() *Buffer[uint16] { return f.b16 }

// BufferOf returns the frame's buffer for sample type T, or nil when the
// frame stores the other sample width.
func BufferOf[T Sample](f *Frame) *Buffer[T] {
	var zero T
	switch any(zero).(type) {
	case uint8:
		if b, ok := any(f.b8).(*Buffer[T]); ok {
			return b
		}
	case uint16:
		if b, ok := any(f.b16).(*Buffer[T]); ok {
			return b
		}
	}
	return nil
}

// MIRows returns the frame height in 4x4 units (rounded up to 8 samples).
func (f *Frame) MIRows() int { return AlignPowerOfTwo(f.Height, 3) >> MISizeLog2 }

// MICols returns the frame width in 4x4 units (rounded up to 8 samples).
func (f *Frame) MICols() int { return AlignPowerOfTwo(f.Width, 3) >> MISizeLog2 }

// SBRows returns the number of 64x64 superblock rows.
func (f *Frame) SBRows() int {
	return AlignPowerOfTwo(f.MIRows(), SuperblockMILog2) >> SuperblockMILog2
}

// SBCols returns the number of 64x64 superblock columns.
func (f *Frame) SBCols() int {
	return AlignPowerOfTwo(f.MICols(), SuperblockMILog2) >> SuperblockMILog2
}

// Sample returns the value at (x, y) of plane as an int.
func (f *Frame) Sample(plane, x, y int) int {
	if f.b8 != nil {
		return int(f.b8.Planes[plane].At(x, y))
	}
	return int(f.b16.Planes[plane].At(x, y))
}

// SetSample stores v at (x, y) of plane, clamped to the bit depth.
func (f *Frame) SetSample(plane, x, y, v int) {
	v = max(0, min(v, (1<<f.BitDepth)-1))
	if f.b8 != nil {
		f.b8.Planes[plane].Set(x, y, uint8(v))
		return
	}
	f.b16.Planes[plane].Set(x, y, uint16(v))
}

// PlaneSize returns the visible width and height of plane.
func (f *Frame) PlaneSize(plane int) (w, h int) {
	if f.b8 != nil {
		p := &f.b8.Planes[plane]
		return p.Width, p.Height
	}
	p := &f.b16.Planes[plane]
	return p.Width, p.Height
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := *f
	if f.b8 != nil {
		c.b8 = f.b8.clone()
	}
	if f.b16 != nil {
		c.b16 = f.b16.clone()
	}
	return &c
}

// Equal reports whether both frames have the same layout and identical
// visible samples in every plane.
func (f *Frame) Equal(o *Frame) bool {
	if f.Width != o.Width || f.Height != o.Height || f.BitDepth != o.BitDepth ||
		f.SubX != o.SubX || f.SubY != o.SubY || f.NumPlanes != o.NumPlanes {
		return false
	}
	for p := 0; p < f.NumPlanes; p++ {
		w, h := f.PlaneSize(p)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if f.Sample(p, x, y) != o.Sample(p, x, y) {
					return false
				}
			}
		}
	}
	return true
}
