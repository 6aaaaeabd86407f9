package rowsync

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncRange(t *testing.T) {
	tests := []struct {
		width, want int
	}{
		{1, 1}, {639, 1}, {640, 2}, {1280, 2}, {1281, 4}, {4096, 4}, {4097, 8}, {8192, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SyncRange(tt.width), "width %d", tt.width)
	}
}

func TestEnsure_ReallocPolicy(t *testing.T) {
	var s State
	assert.Equal(t, Unallocated, s.Phase())

	realloc, err := s.Ensure(4, 5, 300, 2)
	require.NoError(t, err)
	assert.True(t, realloc)
	assert.Equal(t, Allocated, s.Phase())

	steps := []struct {
		name                        string
		rows, cols, width, workers int
		want                        bool
	}{
		{"same", 4, 5, 300, 2, false},
		{"fewer workers", 4, 5, 300, 1, false},
		{"more workers", 4, 5, 300, 3, true},
		{"rows change", 6, 5, 300, 3, true},
		{"cols change", 6, 9, 300, 3, true},
		{"sync range change", 6, 9, 2000, 3, true},
		{"same again", 6, 9, 2000, 3, false},
	}
	for _, st := range steps {
		got, err := s.Ensure(st.rows, st.cols, st.width, st.workers)
		require.NoError(t, err, st.name)
		assert.Equal(t, st.want, got, st.name)
		assert.Equal(t, st.rows, s.Rows(), st.name)
	}
	assert.Equal(t, 4, s.Range())
	assert.Equal(t, 3, s.Workers())
}

func TestEnsure_Errors(t *testing.T) {
	var s State
	_, err := s.Ensure(2, 2, 100, 1)
	require.NoError(t, err)

	for _, bad := range [][4]int{{0, 2, 100, 1}, {2, -1, 100, 1}, {2, 2, 100, 0}, {1 << 20, 2, 100, 1}} {
		_, err := s.Ensure(bad[0], bad[1], bad[2], bad[3])
		assert.True(t, errors.Is(err, ErrAllocation), "%v", bad)
		assert.Equal(t, Unallocated, s.Phase())
	}
}

func TestReset_Band(t *testing.T) {
	var s State
	_, err := s.Ensure(5, 3, 100, 1)
	require.NoError(t, err)
	s.Reset(1, 3)
	for r := 0; r < 5; r++ {
		want := s.Cols() + s.Range()
		if r >= 1 && r < 3 {
			want = notStarted
		}
		assert.Equal(t, want, s.Progress(0, r), "row %d", r)
	}
	// Row 1 depends on row 0, which lies outside the band: no wait.
	s.Read(0, 1, 0)
}

func TestWrite_Granularity(t *testing.T) {
	var s State
	_, err := s.Ensure(2, 10, 2000, 1) // sync range 4
	require.NoError(t, err)
	s.Reset(0, 2)

	want := []int{0, 0, 0, 0, 4, 4, 4, 4, 8, 10 + 4}
	for c := 0; c < 10; c++ {
		s.Write(1, 0, c)
		assert.Equal(t, want[c], s.Progress(1, 0), "after column %d", c)
	}
	assert.Equal(t, notStarted, s.Progress(0, 0), "planes are independent")
}

func TestQueue_Counts(t *testing.T) {
	var s State
	_, err := s.Ensure(3, 3, 100, 4)
	require.NoError(t, err)
	s.Reset(0, 3)
	for r := 0; r < 3; r++ {
		s.Queue.Push(Job{Row: r})
	}
	s.Enqueued()
	assert.Equal(t, JobsEnqueued, s.Phase())

	var seen [3]atomic.Int32
	s.Run(4, func(_ int, j Job) { seen[j.Row].Add(1) })

	for r := range seen {
		assert.Equal(t, int32(1), seen[r].Load(), "row %d", r)
	}
	enq, deq := s.Queue.Counts()
	assert.Equal(t, 3, enq)
	assert.Equal(t, enq, deq)
	assert.Equal(t, Drained, s.Phase())

	_, ok := s.Queue.Next()
	assert.False(t, ok)
}

// Two-phase wavefront: phase 1 of row r at column c must observe phase 0
// of rows r-1 and r done through column c+1.
func TestWavefront_Dependencies(t *testing.T) {
	for _, width := range []int{100, 1000, 3000, 5000} {
		for _, workers := range []int{1, 2, 3, 8} {
			const rows, cols = 7, 11
			var s State
			_, err := s.Ensure(rows, cols, width, workers)
			require.NoError(t, err)
			s.Reset(0, rows)

			var done [rows][cols]atomic.Bool
			for phase := 0; phase < 2; phase++ {
				for r := 0; r < rows; r++ {
					s.Queue.Push(Job{Row: r, Phase: phase})
				}
			}
			s.Enqueued()

			var mu sync.Mutex
			var violations []string
			s.Run(workers, func(_ int, j Job) {
				r := j.Row
				for c := 0; c < cols; c++ {
					if j.Phase == 0 {
						done[r][c].Store(true)
						s.Write(0, r, c)
						continue
					}
					s.Read(0, r, c)
					s.Read(0, r+1, c)
					need := min(c+1, cols-1)
					if (r > 0 && !done[r-1][need].Load()) || !done[r][need].Load() {
						mu.Lock()
						violations = append(violations, "dependency not met")
						mu.Unlock()
					}
				}
			})
			assert.Empty(t, violations, "width %d workers %d", width, workers)
		}
	}
}

func TestProgress_Monotonic(t *testing.T) {
	var s State
	_, err := s.Ensure(2, 64, 5000, 2)
	require.NoError(t, err)
	s.Reset(0, 2)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	var regressions atomic.Int32
	wg.Add(1)
	go func() {
		defer wg.Done()
		last := notStarted
		for {
			select {
			case <-stop:
				return
			default:
			}
			cur := s.Progress(0, 0)
			if cur < last {
				regressions.Add(1)
			}
			last = cur
		}
	}()
	for c := 0; c < 64; c++ {
		s.Write(0, 0, c)
	}
	s.Wait(0, 0, 64)
	close(stop)
	wg.Wait()
	assert.Zero(t, regressions.Load())
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "Phase(9)", Phase(9).String())
}
