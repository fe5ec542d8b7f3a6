// Package worker provides a bounded pool for fanning analysis work out
// across resources. Pools are constructed per run and injected; there
// is no shared global pool.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTaskTimeout bounds a single task's execution.
const DefaultTaskTimeout = 30 * time.Second

// Task represents a unit of work to be executed
type Task func(ctx context.Context) error

// PoolMetrics provides metrics about the pool's performance
type PoolMetrics struct {
	TotalTasks         int64
	CompletedTasks     int64
	FailedTasks        int64
	CurrentWorkers     int64
	PeakWorkers        int64
	AverageExecutionMs int64
	TotalExecutionMs   int64
}

type metrics struct {
	mu               sync.Mutex
	totalTasks       int64
	completedTasks   int64
	failedTasks      int64
	peakWorkers      int64
	totalExecutionMs int64
}

// Pool manages a fixed set of workers executing tasks concurrently.
type Pool struct {
	maxWorkers    int
	taskTimeout   time.Duration
	tasks         chan Task
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
	metrics       *metrics
	activeWorkers int64
	stopping      int32
}

// NewPool creates a pool with the given number of workers. A
// non-positive worker count gets one worker.
func NewPool(maxWorkers int) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		maxWorkers:  maxWorkers,
		taskTimeout: DefaultTaskTimeout,
		tasks:       make(chan Task, maxWorkers*2),
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &metrics{},
	}
}

// SetTaskTimeout overrides the per-task timeout. Call before Start.
func (p *Pool) SetTaskTimeout(d time.Duration) {
	if d > 0 {
		p.taskTimeout = d
	}
}

// Start launches the workers.
func (p *Pool) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop drains outstanding tasks and waits for all workers to exit.
func (p *Pool) Stop() {
	if !atomic.CompareAndSwapInt32(&p.stopping, 0, 1) {
		return
	}

	p.cancel()
	p.wg.Wait()
	close(p.tasks)
}

// Submit queues a task and reports whether it was accepted.
// Submissions after Stop are dropped.
func (p *Pool) Submit(task Task) bool {
	if atomic.LoadInt32(&p.stopping) == 1 {
		return false
	}

	select {
	case p.tasks <- task:
		return true
	case <-p.ctx.Done():
		return false
	}
}

// ExecuteTasks runs a batch of tasks through the pool and waits for
// them all to finish.
func (p *Pool) ExecuteTasks(tasks []Task) {
	var wg sync.WaitGroup
	wg.Add(len(tasks))

	p.metrics.mu.Lock()
	p.metrics.totalTasks += int64(len(tasks))
	p.metrics.mu.Unlock()

	for _, t := range tasks {
		task := t
		wrapped := func(ctx context.Context) error {
			defer wg.Done()
			return task(ctx)
		}

		// A dropped submission still has to balance the wait group.
		if !p.Submit(wrapped) {
			wg.Done()
		}
	}

	wg.Wait()
}

// GetMetrics returns a snapshot of the pool's counters.
func (p *Pool) GetMetrics() PoolMetrics {
	p.metrics.mu.Lock()
	defer p.metrics.mu.Unlock()

	completed := p.metrics.completedTasks
	if completed == 0 {
		completed = 1
	}
	return PoolMetrics{
		TotalTasks:         p.metrics.totalTasks,
		CompletedTasks:     p.metrics.completedTasks,
		FailedTasks:        p.metrics.failedTasks,
		CurrentWorkers:     atomic.LoadInt64(&p.activeWorkers),
		PeakWorkers:        p.metrics.peakWorkers,
		AverageExecutionMs: p.metrics.totalExecutionMs / completed,
		TotalExecutionMs:   p.metrics.totalExecutionMs,
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	current := atomic.AddInt64(&p.activeWorkers, 1)
	defer atomic.AddInt64(&p.activeWorkers, -1)

	p.metrics.mu.Lock()
	if current > p.metrics.peakWorkers {
		p.metrics.peakWorkers = current
	}
	p.metrics.mu.Unlock()

	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.run(p.ctx, task)

		case <-p.ctx.Done():
			// Drain tasks already queued before exiting.
			for {
				select {
				case task, ok := <-p.tasks:
					if !ok {
						return
					}
					p.run(context.Background(), task)
				default:
					return
				}
			}
		}
	}
}

func (p *Pool) run(parent context.Context, task Task) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, p.taskTimeout)
	err := task(ctx)
	cancel()

	executionMs := time.Since(start).Milliseconds()

	p.metrics.mu.Lock()
	p.metrics.totalExecutionMs += executionMs
	if err != nil {
		p.metrics.failedTasks++
	} else {
		p.metrics.completedTasks++
	}
	p.metrics.mu.Unlock()
}
