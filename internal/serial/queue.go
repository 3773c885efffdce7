// Package serial provides an unbounded FIFO of tasks consumed by exactly one
// goroutine. Tasks pushed from any goroutine run one at a time, in push order,
// on that consumer. pantry uses one queue for store writes and one as the
// delivery context for feed subscribers.
package serial

import (
	"context"
	"log/slog"
	"sync"
)

// Queue runs pushed tasks sequentially on its own goroutine.
type Queue struct {
	name   string
	logger *slog.Logger

	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffered, size 1; coalesces wakeups

	done chan struct{}
}

// New creates a queue and starts its consumer goroutine. The name appears in
// log records. A nil logger means slog.Default().
func New(name string, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		name:   name,
		logger: logger,
		tasks:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Push appends task to the queue. It never blocks.
// Returns false if the queue is closed; the task is then dropped.
func (q *Queue) Push(task func()) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.tasks = append(q.tasks, task)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// Barrier blocks until every task pushed before the call has run, or ctx is
// done. On a closed queue it waits for the consumer to finish draining.
func (q *Queue) Barrier(ctx context.Context) error {
	reached := make(chan struct{})
	if !q.Push(func() { close(reached) }) {
		select {
		case <-q.done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close stops intake, lets queued tasks run, and waits for the consumer to
// exit. Idempotent. Must not be called from inside a task.
func (q *Queue) Close() {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.signal)
	}
	q.mu.Unlock()
	<-q.done
}

// Done is closed once the consumer has exited.
func (q *Queue) Done() <-chan struct{} {
	return q.done
}

// run is the consumer loop.
func (q *Queue) run() {
	defer close(q.done)
	for {
		task, ok := q.next()
		if ok {
			q.exec(task)
			continue
		}
		if _, open := <-q.signal; !open {
			// Closed: drain anything pushed before Close.
			for {
				task, ok := q.next()
				if !ok {
					return
				}
				q.exec(task)
			}
		}
	}
}

func (q *Queue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	if len(q.tasks) == 1 {
		q.tasks = q.tasks[:0]
	} else {
		q.tasks = q.tasks[1:]
	}
	return task, true
}

// exec runs one task, logging and absorbing a panic so one bad task does not
// stop the queue.
func (q *Queue) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("task panicked", "queue", q.name, "panic", r)
		}
	}()
	task()
}
