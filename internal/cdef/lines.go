package cdef

import (
	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/pool"
)

// Line slots per filter block row.
const (
	lineTop0 = iota
	lineTop1
	lineBottom0
	lineBottom1
	linesPerRow
)

// Lines holds, per plane, the pre-CDEF first two and last two sample rows
// of every filter block row. Neighbouring rows read their vertical context
// from here, so it must be filled before the rows it covers are written.
type Lines struct {
	stride [frame.MaxPlanes]int
	buf    [frame.MaxPlanes][]uint16
}

// NewLines allocates snapshots for the planes p reads.
func NewLines[T frame.Sample](p *Plan, b *frame.Buffer[T]) *Lines {
	l := &Lines{}
	for plane := 0; plane < p.numPlanes; plane++ {
		if !p.reads(plane) {
			continue
		}
		stride := b.Planes[plane].Stride
		l.stride[plane] = stride
		l.buf[plane] = pool.GetUint16(p.Rows * linesPerRow * stride)
	}
	return l
}

// Release hands the snapshot memory back to the pool.
func (l *Lines) Release() {
	for plane := range l.buf {
		if l.buf[plane] != nil {
			pool.PutUint16(l.buf[plane])
			l.buf[plane] = nil
		}
	}
}

func (l *Lines) line(plane, fbr, slot int) []uint16 {
	stride := l.stride[plane]
	off := (fbr*linesPerRow + slot) * stride
	return l.buf[plane][off : off+stride]
}

// reads reports whether plane is read at all: luma always, for the block
// directions, and chroma when it is filtered.
func (p *Plan) reads(plane int) bool {
	return plane == frame.PlaneY || p.active[plane]
}

// CopyLines snapshots the columns of filter block (fbr, fbc) in the
// first and last two rows of its filter block row.
func CopyLines[T frame.Sample](l *Lines, p *Plan, b *frame.Buffer[T], fbr, fbc int) {
	for plane := 0; plane < p.numPlanes; plane++ {
		if !p.reads(plane) {
			continue
		}
		pl := &b.Planes[plane]
		ssx, ssy := p.sub(plane)
		w, h := p.fbSize(plane, fbr, fbc)
		x0 := (fbc << frame.SuperblockSizeLog2) >> ssx
		y0 := (fbr << frame.SuperblockSizeLog2) >> ssy
		rows := [linesPerRow]int{y0, y0 + 1, y0 + h - 2, y0 + h - 1}
		for slot, y := range rows {
			dst := l.line(plane, fbr, slot)[x0 : x0+w]
			src := pl.Pix[y*pl.Stride+x0 : y*pl.Stride+x0+w]
			for i, v := range src {
				dst[i] = uint16(v)
			}
		}
	}
}
