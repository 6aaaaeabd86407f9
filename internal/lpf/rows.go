package lpf

import (
	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/rowsync"
)

// FilterRows filters the plan's band on the calling goroutine. For each
// plane and superblock row, the vertical edges of a superblock are filtered
// before the horizontal edges of the superblock to its left.
func FilterRows[T frame.Sample](p *Plan, buf *frame.Buffer[T]) Stats {
	var st Stats
	if !p.Active() {
		return st
	}
	k := newKernels[T]()
	for _, plane := range p.planes {
		pl := &buf.Planes[plane]
		for r := p.StartRow; r < p.StopRow; r++ {
			for c := 0; c < p.SBCols; c++ {
				filterSB(p, k, pl, plane, Vertical, r, c, &st)
				if c > 0 {
					filterSB(p, k, pl, plane, Horizontal, r, c-1, &st)
				}
			}
			filterSB(p, k, pl, plane, Horizontal, r, p.SBCols-1, &st)
		}
	}
	return st
}

// FilterRowsMT filters the plan's band with workers goroutines. Every
// vertical job is queued before any horizontal job. A horizontal job on row
// r waits, column by column, until the vertical jobs of rows r-1 and r are
// far enough ahead. s must already be sized for the frame.
func FilterRowsMT[T frame.Sample](p *Plan, buf *frame.Buffer[T], s *rowsync.State, workers int) Stats {
	var st Stats
	if !p.Active() {
		return st
	}
	s.Reset(p.StartRow, p.StopRow)
	for dir := Vertical; dir <= Horizontal; dir++ {
		for _, plane := range p.planes {
			for r := p.StartRow; r < p.StopRow; r++ {
				s.Queue.Push(rowsync.Job{Row: r, Plane: plane, Phase: dir})
			}
		}
	}
	s.Enqueued()

	k := newKernels[T]()
	perWorker := make([]Stats, max(1, min(workers, s.Workers())))
	s.Run(workers, func(w int, j rowsync.Job) {
		pl := &buf.Planes[j.Plane]
		ws := &perWorker[w]
		for c := 0; c < p.SBCols; c++ {
			if j.Phase == Vertical {
				filterSB(p, k, pl, j.Plane, Vertical, j.Row, c, ws)
				s.Write(j.Plane, j.Row, c)
				continue
			}
			s.Read(j.Plane, j.Row, c)
			s.Read(j.Plane, j.Row+1, c)
			filterSB(p, k, pl, j.Plane, Horizontal, j.Row, c, ws)
		}
	})

	for i := range perWorker {
		st.add(&perWorker[i])
	}
	st.JobsEnqueued, st.JobsDequeued = s.Queue.Counts()
	return st
}
