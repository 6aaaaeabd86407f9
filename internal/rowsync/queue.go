package rowsync

import (
	"sync"
)

// Job is one unit of work: one superblock row of one plane in one phase
// (for the loop filter, 0 is vertical edges and 1 horizontal edges).
type Job struct {
	Row   int
	Plane int
	Phase int
}

// Queue is the ordered job list of one pass. All jobs are pushed before
// any worker starts; workers then claim them in order under one mutex.
type Queue struct {
	mu       sync.Mutex
	jobs     []Job
	dequeued int
}

func (q *Queue) alloc(capacity int) {
	q.jobs = make([]Job, 0, capacity)
	q.dequeued = 0
}

func (q *Queue) reset() {
	q.mu.Lock()
	q.jobs = q.jobs[:0]
	q.dequeued = 0
	q.mu.Unlock()
}

// Push appends j. It must not be called once workers are running.
func (q *Queue) Push(j Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, j)
	q.mu.Unlock()
}

// Next claims the next job, or reports false once every job is claimed.
func (q *Queue) Next() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.dequeued >= len(q.jobs) {
		return Job{}, false
	}
	j := q.jobs[q.dequeued]
	q.dequeued++
	return j, true
}

// Counts returns the number of jobs enqueued and dequeued so far.
func (q *Queue) Counts() (enqueued, dequeued int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs), q.dequeued
}
