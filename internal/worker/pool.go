package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool manages workers processing independent resolution events
// concurrently. Shutdown is deliberately graceful: an in-flight run
// must be allowed to reach a terminal state, because killing a run
// mid-commit risks an unobserved ledger write.
type Pool struct {
	workers         int
	jobQueue        chan Job
	results         chan Result
	wg              sync.WaitGroup
	closeIntakeOnce sync.Once
	closeOnce       sync.Once
}

// NewPool creates a new worker pool with the specified number of workers
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	return &Pool{
		workers:  workers,
		jobQueue: make(chan Job, workers*2), // Buffered to prevent blocking
		results:  make(chan Result, workers*2),
	}
}

// Start starts the worker pool. Workers stop accepting new jobs when
// ctx is cancelled but always finish the job they hold.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

func (p *Pool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			// The job runs with its own context handling; the pool
			// never abandons it mid-execution.
			result := job.Execute(ctx)
			p.results <- result
		}
	}
}

// Submit submits a job to the pool for execution. Returns false if the
// pool is no longer accepting work.
func (p *Pool) Submit(ctx context.Context, job Job) bool {
	select {
	case <-ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// CloseIntake stops the pool from accepting new jobs. No Submit call
// may follow it.
func (p *Pool) CloseIntake() {
	p.closeIntakeOnce.Do(func() {
		close(p.jobQueue)
	})
}

// Collect waits for in-flight jobs to reach a terminal state and
// returns all results. The submitter must call CloseIntake once
// submission is finished, or Collect never returns.
func (p *Pool) Collect() []Result {
	go func() {
		p.wg.Wait()
		p.closeResults()
	}()

	var results []Result
	for result := range p.results {
		results = append(results, result)
	}

	return results
}

// Wait closes the intake and collects. Use it when all jobs were
// submitted up front; when submission overlaps collection, pair
// CloseIntake with Collect instead.
func (p *Pool) Wait() []Result {
	p.CloseIntake()
	return p.Collect()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
