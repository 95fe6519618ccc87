package http

import (
	"log/slog"
	"sync"
)

// Job is one unit of work executed by the pool.
type Job func()

// WorkerPool runs jobs on a fixed number of goroutines fed from a shared queue.
type WorkerPool struct {
	queue     *Queue[Job]
	wg        sync.WaitGroup
	size      int
	logger    *slog.Logger
	closeOnce sync.Once
}

func NewWorkerPool(size int, logger *slog.Logger) (*WorkerPool, error) {
	if size < 1 {
		return nil, ErrInvalidPoolSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	wp := &WorkerPool{
		queue:  NewQueue[Job](),
		size:   size,
		logger: logger,
	}

	wp.wg.Add(size)
	for id := range size {
		go wp.work(id)
	}

	return wp, nil
}

func (wp *WorkerPool) work(id int) {
	defer wp.wg.Done()

	for {
		job, ok := wp.queue.Dequeue()
		if !ok {
			wp.logger.Debug("worker shutting down", "worker", id)
			return
		}

		wp.logger.Debug("worker got a job", "worker", id)
		job()
	}
}

// Execute queues job. Jobs start in the order they were queued.
func (wp *WorkerPool) Execute(job Job) error {
	return wp.queue.Enqueue(job)
}

func (wp *WorkerPool) Size() int {
	return wp.size
}

// Close stops accepting jobs, lets the workers finish everything already
// queued and waits for them to exit. It is safe to call more than once.
func (wp *WorkerPool) Close() {
	wp.closeOnce.Do(wp.queue.Close)
	wp.wg.Wait()
}

// Queue is an unbounded FIFO whose Dequeue blocks until an item is
// available or the queue is closed.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	closed bool
}

func NewQueue[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *Queue[T]) Enqueue(val T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrPoolClosed
	}

	q.items = append(q.items, val)
	q.cond.Signal()
	return nil
}

// Dequeue returns false once the queue is closed and empty.
func (q *Queue[T]) Dequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	val := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return val, true
}

func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.cond.Broadcast()
}
