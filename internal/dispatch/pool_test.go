package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTask implements the Task interface for testing
type TestTask struct {
	id       int
	duration time.Duration
	result   chan int
}

func (t *TestTask) Execute(ctx context.Context) {
	time.Sleep(t.duration)
	t.result <- t.id
}

func TestWorkerPool(t *testing.T) {
	workers := 2
	wp := NewWorkerPool(context.Background(), workers)
	defer wp.Close()

	// Submit tasks
	numTasks := 5
	resultChan := make(chan int, numTasks)

	for i := 0; i < numTasks; i++ {
		task := &TestTask{
			id:       i,
			duration: 10 * time.Millisecond,
			result:   resultChan,
		}

		err := wp.Submit(task)
		if err != nil {
			t.Fatalf("Failed to submit task %d: %v", i, err)
		}
	}

	// Collect results
	results := make(map[int]bool)
	for i := 0; i < numTasks; i++ {
		select {
		case result := <-resultChan:
			results[result] = true
		case <-time.After(1 * time.Second):
			t.Fatal("Timeout waiting for task results")
		}
	}

	// Verify all tasks completed
	if len(results) != numTasks {
		t.Errorf("Expected %d results, got %d", numTasks, len(results))
	}

	for i := 0; i < numTasks; i++ {
		if !results[i] {
			t.Errorf("Task %d did not complete", i)
		}
	}
}

func TestWorkerPoolCloseDrainsQueue(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 1)

	const numTasks = 4
	resultChan := make(chan int, numTasks)
	for i := 0; i < numTasks; i++ {
		require.NoError(t, wp.Submit(&TestTask{id: i, duration: 5 * time.Millisecond, result: resultChan}))
	}

	require.NoError(t, wp.Close())
	assert.Len(t, resultChan, numTasks)

	// a second Close is a no-op
	require.NoError(t, wp.Close())
}

func TestWorkerPoolSubmitAfterClose(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 1)
	require.NoError(t, wp.Close())

	err := wp.Submit(&TestTask{result: make(chan int, 1)})
	assert.EqualError(t, err, "worker pool is closed")
}

func TestWorkerPoolSubmitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	wp := NewWorkerPool(ctx, 1)
	defer wp.Close()

	cancel()
	err := wp.Submit(&TestTask{result: make(chan int, 1)})
	assert.ErrorIs(t, err, context.Canceled)
}

type concurrencyTask struct {
	running *atomic.Int32
	peak    *atomic.Int32
	wg      *sync.WaitGroup
}

func (t *concurrencyTask) Execute(ctx context.Context) {
	defer t.wg.Done()
	n := t.running.Add(1)
	for {
		p := t.peak.Load()
		if n <= p || t.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	t.running.Add(-1)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	const workers = 3
	wp := NewWorkerPool(context.Background(), workers)
	assert.Equal(t, workers, wp.Workers())

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		require.NoError(t, wp.Submit(&concurrencyTask{running: &running, peak: &peak, wg: &wg}))
	}
	wg.Wait()
	require.NoError(t, wp.Close())

	assert.LessOrEqual(t, int(peak.Load()), workers)
	assert.Positive(t, int(peak.Load()))
}

func TestNewWorkerPoolMinimumOneWorker(t *testing.T) {
	wp := NewWorkerPool(context.Background(), 0)
	defer wp.Close()
	assert.Equal(t, 1, wp.Workers())
}
