package dispatch

import (
	"context"
	"fmt"
	"sync"
)

// Task represents a unit of work for the worker pool
type Task interface {
	Execute(ctx context.Context)
}

// WorkerPool manages a fixed set of worker goroutines fed from a task queue.
// Tasks already queued when Close is called still run; cancelling the
// pool context only stops new submissions.
type WorkerPool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	closed    bool
	closeMu   sync.RWMutex
}

// NewWorkerPool creates a new worker pool and starts its workers
func NewWorkerPool(ctx context.Context, workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}

	wp := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, workers*2), // Buffered queue
		ctx:       ctx,
	}

	// Start worker goroutines
	for i := 0; i < workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	return wp
}

// Workers returns the number of worker goroutines
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Submit queues a task, blocking while the queue is full. It fails once the
// pool is closed or its context is done.
func (wp *WorkerPool) Submit(task Task) error {
	wp.closeMu.RLock()
	defer wp.closeMu.RUnlock()

	if wp.closed {
		return fmt.Errorf("worker pool is closed")
	}
	if err := wp.ctx.Err(); err != nil {
		return err
	}

	select {
	case wp.taskQueue <- task:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// worker is the main worker goroutine
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		task.Execute(wp.ctx)
	}
}

// Close stops accepting tasks and waits for queued ones to finish
func (wp *WorkerPool) Close() error {
	wp.closeMu.Lock()
	defer wp.closeMu.Unlock()

	if wp.closed {
		return nil
	}

	wp.closed = true
	close(wp.taskQueue)
	wp.wg.Wait()

	return nil
}
