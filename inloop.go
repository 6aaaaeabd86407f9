package inloop

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deepteams/inloop/frame"
	"github.com/deepteams/inloop/internal/cdef"
	"github.com/deepteams/inloop/internal/lpf"
	"github.com/deepteams/inloop/internal/rowsync"
)

// Errors returned by the filters.
var (
	ErrAllocation     = errors.New("inloop: cannot allocate filter state")
	ErrInvalidFrame   = errors.New("inloop: invalid frame")
	ErrInvalidOptions = errors.New("inloop: invalid options")
)

// Stats describes the work done by one call.
type Stats struct {
	// Workers is the largest number of goroutines a pass used.
	Workers int

	// Edges counts deblocked 4-sample edge segments by filter length
	// (4, 6, 8 and 14 taps).
	Edges [4]int

	CDEFBlocks  int // 8x8 luma blocks filtered by CDEF
	CDEFSkipped int // 64x64 filter blocks CDEF left untouched

	JobsEnqueued int
	JobsDequeued int

	// Reallocated reports that the row synchronization state had to be
	// sized again for this frame.
	Reallocated bool
}

// Deblocked returns the total number of deblocked edge segments.
func (s *Stats) Deblocked() int {
	return s.Edges[0] + s.Edges[1] + s.Edges[2] + s.Edges[3]
}

// Add accumulates o into s, as when passes run one after the other.
func (s *Stats) Add(o Stats) {
	s.Workers = max(s.Workers, o.Workers)
	for i := range s.Edges {
		s.Edges[i] += o.Edges[i]
	}
	s.CDEFBlocks += o.CDEFBlocks
	s.CDEFSkipped += o.CDEFSkipped
	s.JobsEnqueued += o.JobsEnqueued
	s.JobsDequeued += o.JobsDequeued
	s.Reallocated = s.Reallocated || o.Reallocated
}

// Filterer runs the in-loop filters on a sequence of frames. It keeps the
// row synchronization state between calls and only resizes it when the
// frame geometry or worker count grows. A Filterer is not safe for
// concurrent use.
type Filterer struct {
	opts Options
	log  logrus.FieldLogger
	sync rowsync.State
}

// New returns a Filterer. nil opts means DefaultOptions.
func New(opts *Options) (*Filterer, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if err := validateOptions(opts); err != nil {
		return nil, err
	}
	f := &Filterer{opts: *opts, log: opts.Logger}
	if f.log == nil {
		f.log = logrus.StandardLogger()
	}
	return f, nil
}

// Close releases the synchronization state. The Filterer may be used
// again afterwards.
func (f *Filterer) Close() {
	f.sync.Dealloc()
}

// Filter deblocks and then CDEF-filters fr in place with a one-shot
// Filterer.
func Filter(fr *frame.Frame, g *frame.Grid, params *frame.Params, opts *Options) (Stats, error) {
	f, err := New(opts)
	if err != nil {
		return Stats{}, err
	}
	defer f.Close()
	return f.Apply(fr, g, params)
}

// Apply runs the loop filter and then CDEF on fr in place.
func (f *Filterer) Apply(fr *frame.Frame, g *frame.Grid, params *frame.Params) (Stats, error) {
	st, err := f.LoopFilter(fr, g, params)
	if err != nil {
		return st, err
	}
	cs, err := f.CDEF(fr, g, params)
	st.Add(cs)
	return st, err
}

// LoopFilter deblocks the transform edges of fr in place: all vertical
// edges of a superblock row, then its horizontal edges.
func (f *Filterer) LoopFilter(fr *frame.Frame, g *frame.Grid, params *frame.Params) (Stats, error) {
	if err := f.checkFrame(fr, g, params); err != nil {
		return Stats{}, err
	}
	log := f.log.WithFields(logrus.Fields{
		"function": "LoopFilter",
		"width":    fr.Width,
		"height":   fr.Height,
	})

	p := lpf.FrameInit(fr, g, params, lpf.Band{
		Partial:    f.opts.PartialFrame,
		PlaneStart: f.opts.PlaneStart,
		PlaneEnd:   f.opts.planeEnd(fr),
	})
	if !p.Active() {
		log.Debug("Loop filter levels are zero for every selected plane, skipping")
		return Stats{}, nil
	}

	var st Stats
	workers, err := f.prepare(fr, p.StopRow-p.StartRow, log, &st)
	if err != nil {
		return st, err
	}
	log.WithFields(logrus.Fields{
		"planes":    p.Planes(),
		"start_row": p.StartRow,
		"stop_row":  p.StopRow,
		"workers":   workers,
	}).Debug("Starting loop filter pass")

	var ls lpf.Stats
	if fr.HighBitDepth() {
		ls = deblock(p, fr.Planes16(), &f.sync, workers)
	} else {
		ls = deblock(p, fr.Planes8(), &f.sync, workers)
	}
	st.Edges = ls.Edges
	st.JobsEnqueued, st.JobsDequeued = ls.JobsEnqueued, ls.JobsDequeued

	log.WithFields(logrus.Fields{
		"edges":    ls.Filtered(),
		"enqueued": ls.JobsEnqueued,
		"dequeued": ls.JobsDequeued,
	}).Debug("Loop filter pass finished")
	return st, nil
}

// CDEF applies the constrained directional enhancement filter to fr in
// place. It expects fr to be deblocked already.
func (f *Filterer) CDEF(fr *frame.Frame, g *frame.Grid, params *frame.Params) (Stats, error) {
	if err := f.checkFrame(fr, g, params); err != nil {
		return Stats{}, err
	}
	log := f.log.WithFields(logrus.Fields{
		"function": "CDEF",
		"width":    fr.Width,
		"height":   fr.Height,
	})

	p := cdef.NewPlan(fr, g, &params.CDEF, f.opts.PlaneStart, f.opts.planeEnd(fr))
	if !p.Active() {
		log.WithField("skipped", p.Skipped()).Debug("No filter block needs CDEF, skipping")
		return Stats{CDEFSkipped: p.Skipped()}, nil
	}

	var st Stats
	workers, err := f.prepare(fr, p.Rows, log, &st)
	if err != nil {
		return st, err
	}
	log.WithFields(logrus.Fields{
		"rows":    p.Rows,
		"cols":    p.Cols,
		"workers": workers,
	}).Debug("Starting CDEF pass")

	var cs cdef.Stats
	if fr.HighBitDepth() {
		cs = enhance(p, fr.Planes16(), &f.sync, workers)
	} else {
		cs = enhance(p, fr.Planes8(), &f.sync, workers)
	}
	st.CDEFBlocks, st.CDEFSkipped = cs.Blocks, cs.Skipped
	st.JobsEnqueued, st.JobsDequeued = cs.JobsEnqueued, cs.JobsDequeued

	log.WithFields(logrus.Fields{
		"blocks":   cs.Blocks,
		"skipped":  cs.Skipped,
		"enqueued": cs.JobsEnqueued,
		"dequeued": cs.JobsDequeued,
	}).Debug("CDEF pass finished")
	return st, nil
}

// prepare settles the worker count for a pass over rows superblock rows
// and sizes the sync state when more than one worker runs.
func (f *Filterer) prepare(fr *frame.Frame, rows int, log logrus.FieldLogger, st *Stats) (int, error) {
	workers := resolveWorkers(f.opts.Workers)
	if workers > rows {
		if f.opts.Workers > 0 {
			log.WithFields(logrus.Fields{
				"requested": f.opts.Workers,
				"rows":      rows,
			}).Warn("More workers than superblock rows, clamping")
		}
		workers = max(1, rows)
	}
	st.Workers = workers
	if workers == 1 {
		return 1, nil
	}

	realloc, err := f.sync.Ensure(fr.SBRows(), fr.SBCols(), fr.Width, workers)
	if err != nil {
		log.WithError(err).Error("Cannot allocate row synchronization state")
		return 0, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	if realloc {
		st.Reallocated = true
		log.WithFields(logrus.Fields{
			"sb_rows":    f.sync.Rows(),
			"sb_cols":    f.sync.Cols(),
			"sync_range": f.sync.Range(),
			"workers":    f.sync.Workers(),
		}).Debug("Row synchronization state reallocated")
	}
	return workers, nil
}

func deblock[T frame.Sample](p *lpf.Plan, b *frame.Buffer[T], s *rowsync.State, workers int) lpf.Stats {
	if workers == 1 {
		return lpf.FilterRows(p, b)
	}
	return lpf.FilterRowsMT(p, b, s, workers)
}

func enhance[T frame.Sample](p *cdef.Plan, b *frame.Buffer[T], s *rowsync.State, workers int) cdef.Stats {
	if workers == 1 {
		return cdef.FilterFrame(p, b)
	}
	return cdef.FilterFrameMT(p, b, s, workers)
}
