// Package pool implements a bounded pool of size jobs that runs a
// batch of per-table work concurrently: a small struct, exported
// methods, explicit synchronization, no goroutine-pool library.
package pool

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
)

// Task is one unit of table-scoped work dispatched to the pool.
type Task struct {
	Table string
	Run   func() error
}

// Pool bounds concurrent table-work to at most Jobs goroutines at once.
type Pool struct {
	Jobs int
}

// New returns a Pool bounded to jobs concurrent tasks. jobs must be positive.
func New(jobs int) *Pool {
	return &Pool{Jobs: jobs}
}

// Run dispatches tasks, never starting more than p.Jobs concurrently.
// A task failure aborts dispatch of further tasks in this batch (no new
// work is started), but every task already running is allowed to
// finish — Run waits for all of them before returning; there is no
// cancellation of siblings already in flight. Run itself is the
// barrier: it returns only once every dispatched task has finished, so
// the orchestrator expresses a restore stage barrier by simply calling
// Run once per stage, in order.
func (p *Pool) Run(tasks []Task) error {
	sem := make(chan struct{}, p.Jobs)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	var aborted atomic.Bool

	for _, task := range tasks {
		sem <- struct{}{}
		if aborted.Load() {
			<-sem
			break
		}
		wg.Add(1)
		go func(t Task) {
			defer wg.Done()
			defer func() { <-sem }()

			err := t.Run()
			if err != nil {
				log.Printf("[pool] table %s failed: %v", t.Table, err)
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("table %s: %w", t.Table, err)
				}
				mu.Unlock()
				aborted.Store(true)
				return
			}
			log.Printf("[pool] table %s finished", t.Table)
		}(task)
	}

	wg.Wait()
	return firstErr
}
