// Package rowsync coordinates superblock-row workers: a per-row column
// progress barrier, an ordered job queue drained under a single mutex, and
// a fixed-size goroutine pool.
package rowsync

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/deepteams/inloop/frame"
)

// ErrAllocation is returned when the synchronization state cannot be sized
// for the requested frame.
var ErrAllocation = errors.New("rowsync: cannot allocate sync state")

// notStarted is the progress value of a row at the start of a pass.
const notStarted = -1

// Phase is the lifecycle stage of a State within one frame pass.
type Phase int32

const (
	Unallocated Phase = iota
	Allocated
	JobsEnqueued
	Running
	Drained
)

func (p Phase) String() string {
	switch p {
	case Unallocated:
		return "unallocated"
	case Allocated:
		return "allocated"
	case JobsEnqueued:
		return "jobs-enqueued"
	case Running:
		return "running"
	case Drained:
		return "drained"
	}
	return fmt.Sprintf("Phase(%d)", int32(p))
}

// SyncRange returns how many superblock columns a row completes between
// progress signals. Wider frames signal less often.
func SyncRange(width int) int {
	switch {
	case width < 640:
		return 1
	case width <= 1280:
		return 2
	case width <= 4096:
		return 4
	default:
		return 8
	}
}

// rowState is padded to a full cache line (64 bytes) to prevent false sharing.
type rowState struct {
	cur     atomic.Int32
	waiters atomic.Int32
	mu      sync.Mutex
	cond    *sync.Cond
	_       [8]byte
}

// State is the row barrier for one frame pass: for every plane and every
// superblock row, the last column whose earlier phase has completed.
type State struct {
	rows      int
	cols      int
	syncRange int
	workers   int
	planes    [frame.MaxPlanes][]rowState
	phase     atomic.Int32
	Queue     Queue
}

// Ensure sizes s for rows x cols superblocks of a frame width samples wide
// and workers goroutines. It reallocates from scratch when s is
// unallocated, when the geometry differs, or when more workers are
// requested than s was sized for, and reports whether it did.
func (s *State) Ensure(rows, cols, width, workers int) (bool, error) {
	maxSB := frame.MaxDimension >> frame.SuperblockSizeLog2
	if rows <= 0 || cols <= 0 || rows > maxSB || cols > maxSB || workers <= 0 || width <= 0 {
		s.Dealloc()
		return false, fmt.Errorf("%w: %dx%d superblocks, %d workers", ErrAllocation, cols, rows, workers)
	}
	nsync := SyncRange(width)
	if s.Phase() != Unallocated && rows == s.rows && cols == s.cols &&
		nsync == s.syncRange && workers <= s.workers {
		return false, nil
	}
	s.Dealloc()
	for p := range s.planes {
		rs := make([]rowState, rows)
		for i := range rs {
			rs[i].cond = sync.NewCond(&rs[i].mu)
		}
		s.planes[p] = rs
	}
	s.rows, s.cols, s.syncRange, s.workers = rows, cols, nsync, workers
	s.Queue.alloc(rows * frame.MaxPlanes * 2)
	s.phase.Store(int32(Allocated))
	return true, nil
}

// Dealloc releases everything and returns s to Unallocated.
func (s *State) Dealloc() {
	for p := range s.planes {
		s.planes[p] = nil
	}
	s.rows, s.cols, s.syncRange, s.workers = 0, 0, 0, 0
	s.Queue = Queue{}
	s.phase.Store(int32(Unallocated))
}

// Rows returns the number of superblock rows s is sized for.
func (s *State) Rows() int { return s.rows }

// Cols returns the number of superblock columns s is sized for.
func (s *State) Cols() int { return s.cols }

// Range returns the signalling granularity in superblock columns.
func (s *State) Range() int { return s.syncRange }

// Workers returns the worker count s is sized for.
func (s *State) Workers() int { return s.workers }

// Phase returns the current lifecycle stage.
func (s *State) Phase() Phase { return Phase(s.phase.Load()) }

func (s *State) setPhase(p Phase) { s.phase.Store(int32(p)) }

// Reset starts a new pass. Rows in [start, stop) go back to not started;
// rows outside the band count as complete so nothing waits on them.
func (s *State) Reset(start, stop int) {
	done := int32(s.cols + s.syncRange)
	for p := range s.planes {
		for r := range s.planes[p] {
			v := done
			if r >= start && r < stop {
				v = notStarted
			}
			s.planes[p][r].cur.Store(v)
		}
	}
	s.Queue.reset()
	s.setPhase(Allocated)
}

// Progress returns the last column row has published for plane.
func (s *State) Progress(plane, row int) int {
	return int(s.planes[plane][row].cur.Load())
}

// Wait blocks until row has published progress of at least col for plane.
// Fast path uses atomic load (no lock). Slow path uses cond.Wait.
func (s *State) Wait(plane, row, col int) {
	r := &s.planes[plane][row]
	needed := int32(col)
	if r.cur.Load() >= needed {
		return
	}
	r.waiters.Add(1)
	r.mu.Lock()
	for r.cur.Load() < needed {
		r.cond.Wait()
	}
	r.mu.Unlock()
	r.waiters.Add(-1)
}

// Read blocks the worker about to process column c of row r until the row
// above is syncRange columns ahead. Only columns on a granularity boundary
// wait; the ones between are covered by the previous wait.
func (s *State) Read(plane, r, c int) {
	nsync := s.syncRange
	if r == 0 || c&(nsync-1) != 0 {
		return
	}
	s.Wait(plane, r-1, c+nsync)
}

// Write publishes that column c of row r is done. Progress is only
// published on granularity boundaries and at the last column, which
// releases every remaining waiter.
func (s *State) Write(plane, r, c int) {
	nsync := s.syncRange
	cur := c
	if c < s.cols-1 {
		if c%nsync != 0 {
			return
		}
	} else {
		cur = s.cols + nsync
	}
	row := &s.planes[plane][r]
	row.cur.Store(int32(cur))
	if row.waiters.Load() > 0 {
		row.mu.Lock()
		row.mu.Unlock()
		row.cond.Broadcast()
	}
}
