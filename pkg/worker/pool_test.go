package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecuteTasksRunsAll(t *testing.T) {
	pool := NewPool(4)
	pool.Start()
	defer pool.Stop()

	var counter int64
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			atomic.AddInt64(&counter, 1)
			return nil
		}
	}

	pool.ExecuteTasks(tasks)
	assert.Equal(t, int64(20), atomic.LoadInt64(&counter))

	m := pool.GetMetrics()
	assert.Equal(t, int64(20), m.TotalTasks)
	assert.Equal(t, int64(20), m.CompletedTasks)
	assert.Equal(t, int64(0), m.FailedTasks)
}

func TestExecuteTasksCountsFailures(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	defer pool.Stop()

	tasks := []Task{
		func(ctx context.Context) error { return nil },
		func(ctx context.Context) error { return errors.New("boom") },
		func(ctx context.Context) error { return errors.New("boom") },
	}

	pool.ExecuteTasks(tasks)

	m := pool.GetMetrics()
	assert.Equal(t, int64(1), m.CompletedTasks)
	assert.Equal(t, int64(2), m.FailedTasks)
}

func TestTaskTimeout(t *testing.T) {
	pool := NewPool(1)
	pool.SetTaskTimeout(50 * time.Millisecond)
	pool.Start()
	defer pool.Stop()

	var timedOut atomic.Bool
	pool.ExecuteTasks([]Task{
		func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				timedOut.Store(true)
				return ctx.Err()
			case <-time.After(5 * time.Second):
				return nil
			}
		},
	})

	assert.True(t, timedOut.Load(), "task context should expire")
	assert.Equal(t, int64(1), pool.GetMetrics().FailedTasks)
}

func TestStopIsIdempotent(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	pool.Stop()
	assert.NotPanics(t, pool.Stop)
}

func TestSubmitAfterStopIsDropped(t *testing.T) {
	pool := NewPool(1)
	pool.Start()
	pool.Stop()

	var ran atomic.Bool
	accepted := pool.Submit(func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	assert.False(t, accepted)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestExecuteTasksReturnsAfterStop(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	pool.Stop()

	var ran atomic.Bool
	done := make(chan struct{})
	go func() {
		pool.ExecuteTasks([]Task{
			func(ctx context.Context) error {
				ran.Store(true)
				return nil
			},
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ExecuteTasks did not return after the pool stopped")
	}
	assert.False(t, ran.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(3)
	pool.Start()
	defer pool.Stop()

	var current, peak int64
	tasks := make([]Task, 30)
	for i := range tasks {
		tasks[i] = func(ctx context.Context) error {
			n := atomic.AddInt64(&current, 1)
			for {
				p := atomic.LoadInt64(&peak)
				if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&current, -1)
			return nil
		}
	}

	pool.ExecuteTasks(tasks)
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(3))
}
