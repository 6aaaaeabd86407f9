package cdef

import (
	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/dsp"
	"github.com/deepteams/inloop/internal/rowsync"
)

// Stats counts the work done by one pass.
type Stats struct {
	Blocks       int // 8x8 luma blocks filtered
	Skipped      int // filter blocks left untouched
	JobsEnqueued int
	JobsDequeued int
}

func (s *Stats) add(o *Stats) {
	s.Blocks += o.Blocks
	s.Skipped += o.Skipped
}

// FilterFB filters every read plane of filter block (fbr, fbc) in place.
// The line snapshots of rows fbr-1, fbr and fbr+1 must cover columns up
// to fbc+1, and the blocks to the left in the row must have gone through
// FilterFB on the same Scratch.
func FilterFB[T frame.Sample](p *Plan, l *Lines, s *Scratch, b *frame.Buffer[T], fbr, fbc int, st *Stats) {
	fb := &p.fbs[fbr*p.Cols+fbc]
	var e edges
	e.left, e.top, e.right, e.bottom = p.tileEdges(fbr, fbc)

	if fb.skip {
		if !e.right {
			for plane := 0; plane < p.numPlanes; plane++ {
				if p.reads(plane) {
					saveColumns(s, p, &b.Planes[plane], plane, fbr, fbc)
				}
			}
		}
		st.Skipped++
		return
	}

	needDir := false
	for plane := 0; plane < p.numPlanes; plane++ {
		needDir = needDir || fb.strength[plane].pri != 0
	}

	for plane := 0; plane < p.numPlanes; plane++ {
		if !p.reads(plane) {
			continue
		}
		pl := &b.Planes[plane]
		load(s, p, l, pl, plane, fbr, fbc, e)
		if !e.right {
			saveColumns(s, p, pl, plane, fbr, fbc)
		}
		if plane == frame.PlaneY && needDir {
			for _, bp := range fb.blocks {
				by, bx := int(bp.Row), int(bp.Col)
				off := (vb+8*by)*dsp.CDEFBStride + hb + 8*bx
				s.dirs[by][bx], s.vars[by][bx] = dsp.FindDir(s.in, off, dsp.CDEFBStride, p.coeffShift)
			}
		}
		if p.active[plane] && !fb.strength[plane].zero() {
			filterBlocks(p, s, pl, plane, fbr, fbc, fb)
		}
	}
	st.Blocks += len(fb.blocks)
}

func filterBlocks[T frame.Sample](p *Plan, s *Scratch, pl *frame.Plane[T], plane, fbr, fbc int, fb *fbPlan) {
	ssx, ssy := p.sub(plane)
	bw, bh := 8>>ssx, 8>>ssy
	x0 := (fbc << frame.SuperblockSizeLog2) >> ssx
	y0 := (fbr << frame.SuperblockSizeLog2) >> ssy
	str := fb.strength[plane]

	for _, bp := range fb.blocks {
		by, bx := int(bp.Row), int(bp.Col)
		pri, dir := str.pri, 0
		if pri != 0 {
			dir = s.dirs[by][bx]
			if plane == frame.PlaneY {
				pri = dsp.AdjustStrength(pri, s.vars[by][bx])
			} else {
				dir = dsp.RemapChromaDir(dir, ssx, ssy)
			}
		}
		if pri == 0 && str.sec == 0 {
			continue
		}
		dst := (y0+by*bh)*pl.Stride + x0 + bx*bw
		src := (vb+by*bh)*dsp.CDEFBStride + hb + bx*bw
		dsp.FilterBlock(pl.Pix, dst, pl.Stride, s.in, src, dsp.CDEFBlock{
			PriStrength: pri,
			SecStrength: str.sec,
			Dir:         dir,
			PriDamping:  str.damping,
			SecDamping:  str.damping,
			CoeffShift:  p.coeffShift,
			W:           bw,
			H:           bh,
		})
	}
}

// FilterFrame runs the whole pass on the calling goroutine.
func FilterFrame[T frame.Sample](p *Plan, b *frame.Buffer[T]) Stats {
	var st Stats
	if !p.Active() {
		st.Skipped = p.Skipped()
		return st
	}
	l := NewLines(p, b)
	defer l.Release()
	for fbr := 0; fbr < p.Rows; fbr++ {
		for fbc := 0; fbc < p.Cols; fbc++ {
			CopyLines(l, p, b, fbr, fbc)
		}
	}
	s := NewScratch()
	defer s.Release()
	for fbr := 0; fbr < p.Rows; fbr++ {
		for fbc := 0; fbc < p.Cols; fbc++ {
			FilterFB(p, l, s, b, fbr, fbc, &st)
		}
	}
	return st
}

// Job phases.
const (
	phaseCopy = iota
	phaseFilter
)

// FilterFrameMT runs the pass with workers goroutines: one copy job per
// filter block row snapshots its lines, then one filter job per row
// filters it left to right. Filter block (r, c) starts once rows r-1, r
// and r+1 are snapshotted through column c+1. s must be sized for
// p.Rows x p.Cols.
func FilterFrameMT[T frame.Sample](p *Plan, b *frame.Buffer[T], s *rowsync.State, workers int) Stats {
	var st Stats
	if !p.Active() {
		st.Skipped = p.Skipped()
		return st
	}
	l := NewLines(p, b)
	defer l.Release()

	s.Reset(0, p.Rows)
	for phase := phaseCopy; phase <= phaseFilter; phase++ {
		for r := 0; r < p.Rows; r++ {
			s.Queue.Push(rowsync.Job{Row: r, Phase: phase})
		}
	}
	s.Enqueued()

	n := max(1, min(workers, s.Workers()))
	scratch := make([]*Scratch, n)
	perWorker := make([]Stats, n)
	s.Run(workers, func(w int, j rowsync.Job) {
		if j.Phase == phaseCopy {
			for c := 0; c < p.Cols; c++ {
				CopyLines(l, p, b, j.Row, c)
				s.Write(0, j.Row, c)
			}
			return
		}
		if scratch[w] == nil {
			scratch[w] = NewScratch()
		}
		for c := 0; c < p.Cols; c++ {
			need := min(c+1, p.Cols-1)
			for r := max(0, j.Row-1); r <= min(j.Row+1, p.Rows-1); r++ {
				s.Wait(0, r, need)
			}
			FilterFB(p, l, scratch[w], b, j.Row, c, &perWorker[w])
		}
	})

	for w := range scratch {
		if scratch[w] != nil {
			scratch[w].Release()
		}
		st.add(&perWorker[w])
	}
	st.JobsEnqueued, st.JobsDequeued = s.Queue.Counts()
	return st
}
