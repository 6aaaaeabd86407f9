package lpf

import (
	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/dsp"
)

// Stats counts the work done by one pass.
type Stats struct {
	// Edges counts filtered 4-sample edge segments by length (4, 6, 8, 14).
	Edges        [4]int
	JobsEnqueued int
	JobsDequeued int
}

// Filtered returns the total number of filtered edge segments.
func (s *Stats) Filtered() int {
	return s.Edges[0] + s.Edges[1] + s.Edges[2] + s.Edges[3]
}

func (s *Stats) add(o *Stats) {
	for i := range s.Edges {
		s.Edges[i] += o.Edges[i]
	}
}

func lengthSlot(length uint8) int {
	switch length {
	case 4:
		return 0
	case 6:
		return 1
	case 8:
		return 2
	}
	return 3
}

// kernels resolves the kernel for each filter length once per pass.
type kernels[T frame.Sample] [15]dsp.LPFFunc[T]

func newKernels[T frame.Sample]() *kernels[T] {
	var k kernels[T]
	for _, n := range []int{4, 6, 8, 14} {
		k[n] = dsp.LoopFilterKernel[T](n)
	}
	return &k
}

// filterSB applies the dir edges of superblock (sbRow, sbCol) in plane.
func filterSB[T frame.Sample](p *Plan, k *kernels[T], pl *frame.Plane[T], plane, dir, sbRow, sbCol int, st *Stats) {
	eg := &p.edges[plane][dir]
	unitsX := frame.SuperblockMI >> pl.SubX
	unitsY := frame.SuperblockMI >> pl.SubY
	x0, y0 := sbCol*unitsX, sbRow*unitsY
	x1, y1 := min(x0+unitsX, eg.Cols), min(y0+unitsY, eg.Rows)

	step, along := 1, pl.Stride
	if dir == Horizontal {
		step, along = pl.Stride, 1
	}
	for uy := y0; uy < y1; uy++ {
		row := eg.Edges[uy*eg.Cols : (uy+1)*eg.Cols]
		for ux := x0; ux < x1; ux++ {
			e := row[ux]
			if e.Length == 0 {
				continue
			}
			off := (uy<<frame.MISizeLog2)*pl.Stride + ux<<frame.MISizeLog2
			k[e.Length](pl.Pix, off, step, along, p.thresh[e.Level], p.bitDepth)
			st.Edges[lengthSlot(e.Length)]++
		}
	}
}
