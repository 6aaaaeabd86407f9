package rowsync

import "sync"

// Enqueued marks the end of job submission for the current pass.
func (s *State) Enqueued() { s.setPhase(JobsEnqueued) }

// Run drains the queue with workers goroutines, calling fn(worker, job)
// for each job. Worker 0 runs on the calling goroutine. Run returns once
// every job has been processed.
func (s *State) Run(workers int, fn func(worker int, j Job)) {
	workers = max(1, min(workers, s.workers))
	s.setPhase(Running)

	drain := func(w int) {
		for {
			j, ok := s.Queue.Next()
			if !ok {
				return
			}
			fn(w, j)
		}
	}

	var wg sync.WaitGroup
	for w := 1; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			drain(w)
		}(w)
	}
	drain(0)
	wg.Wait()
	s.setPhase(Drained)
}
