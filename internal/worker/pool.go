package worker

import (
	"context"
	"sort"
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

type queued struct {
	index int
	job   Job
}

type indexed struct {
	index  int
	result Result
}

// Pool runs jobs on a fixed number of workers. Results are drained while
// jobs are still being submitted, so a batch of any size cannot stall on
// a full results channel.
type Pool struct {
	workers    int
	jobQueue   chan queued
	results    chan indexed
	collected  []indexed
	submitted  int
	wg         sync.WaitGroup
	drained    chan struct{}
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewPool creates a new worker pool bound to ctx. Cancelling ctx stops
// workers from picking up further jobs.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan queued, workers*2),
		results:    make(chan indexed, workers*2),
		drained:    make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	go p.collect()
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

func (p *Pool) collect() {
	defer close(p.drained)
	for r := range p.results {
		p.collected = append(p.collected, r)
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case q, ok := <-p.jobQueue:
			if !ok {
				return
			}
			p.results <- indexed{index: q.index, result: q.job.Execute(p.ctx)}
		}
	}
}

// Submit queues a job. It returns false if the pool was cancelled before
// the job could be queued. Submit must not be called concurrently.
func (p *Pool) Submit(job Job) bool {
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- queued{index: p.submitted, job: job}:
		p.submitted++
		return true
	}
}

// Wait waits for every queued job and returns the results in submission
// order. Jobs dropped by cancellation have no result.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.results)
	<-p.drained
	p.cancelFunc()

	sort.Slice(p.collected, func(i, j int) bool {
		return p.collected[i].index < p.collected[j].index
	})

	results := make([]Result, len(p.collected))
	for i, r := range p.collected {
		results[i] = r.result
	}
	return results
}
