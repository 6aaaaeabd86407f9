package cdef

import (
	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/dsp"
	"github.com/deepteams/inloop/internal/pool"
)

const (
	hb = dsp.CDEFHBorder
	vb = dsp.CDEFVBorder
)

// Scratch is the working memory of one worker. It is never shared.
type Scratch struct {
	in  []uint16
	col [frame.MaxPlanes][]uint16

	dirs [8][8]int
	vars [8][8]int
}

// NewScratch takes a working buffer and column buffers from the pool.
func NewScratch() *Scratch {
	s := &Scratch{in: pool.GetUint16(dsp.CDEFBufSize)}
	for plane := range s.col {
		s.col[plane] = pool.GetUint16(hb * dsp.CDEFBlockSize)
	}
	return s
}

// Release hands the buffers back to the pool.
func (s *Scratch) Release() {
	pool.PutUint16(s.in)
	s.in = nil
	for plane := range s.col {
		pool.PutUint16(s.col[plane])
		s.col[plane] = nil
	}
}

// edges marks the sides of a filter block whose context is absent.
type edges struct {
	left, top, right, bottom bool
}

// load fills the working buffer for plane of filter block (fbr, fbc):
// the block itself, then whatever context exists around it. Absent
// context holds the sentinel.
func load[T frame.Sample](s *Scratch, p *Plan, l *Lines, pl *frame.Plane[T], plane, fbr, fbc int, e edges) {
	in := s.in
	for i := range in {
		in[i] = dsp.CDEFVeryLarge
	}
	ssx, ssy := p.sub(plane)
	w, h := p.fbSize(plane, fbr, fbc)
	x0 := (fbc << frame.SuperblockSizeLog2) >> ssx
	y0 := (fbr << frame.SuperblockSizeLog2) >> ssy

	cl, cr := -hb, w+hb
	if e.left {
		cl = 0
	}
	if e.right {
		cr = w
	}

	col := s.col[plane]
	for i := 0; i < h; i++ {
		o := (vb+i)*dsp.CDEFBStride + hb
		row := pl.Pix[(y0+i)*pl.Stride+x0:]
		for j := 0; j < cr; j++ {
			in[o+j] = uint16(row[j])
		}
		if !e.left {
			copy(in[o-hb:o], col[i*hb:(i+1)*hb])
		}
	}
	if !e.top {
		for k := 0; k < vb; k++ {
			line := l.line(plane, fbr-1, lineBottom0+k)
			o := k*dsp.CDEFBStride + hb
			for j := cl; j < cr; j++ {
				in[o+j] = line[x0+j]
			}
		}
	}
	if !e.bottom {
		for k := 0; k < vb; k++ {
			line := l.line(plane, fbr+1, lineTop0+k)
			o := (vb+h+k)*dsp.CDEFBStride + hb
			for j := cl; j < cr; j++ {
				in[o+j] = line[x0+j]
			}
		}
	}
}

// saveColumns keeps the rightmost pre-CDEF columns of the filter block as
// left context for the next block in the row.
func saveColumns[T frame.Sample](s *Scratch, p *Plan, pl *frame.Plane[T], plane, fbr, fbc int) {
	ssx, ssy := p.sub(plane)
	w, h := p.fbSize(plane, fbr, fbc)
	x0 := (fbc<<frame.SuperblockSizeLog2)>>ssx + w - hb
	y0 := (fbr << frame.SuperblockSizeLog2) >> ssy
	col := s.col[plane]
	for i := 0; i < h; i++ {
		row := pl.Pix[(y0+i)*pl.Stride+x0 : (y0+i)*pl.Stride+x0+hb]
		for k, v := range row {
			col[i*hb+k] = uint16(v)
		}
	}
}
