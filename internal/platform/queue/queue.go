// Package queue runs third-party API work one task at a time.
//
// A Queue owns a single lazily started worker. The worker pops tasks in FIFO
// order, runs each to completion, then sleeps for the configured delay before
// taking the next one. When nothing is left it exits; the next Enqueue starts
// it again. Task errors and panics are logged and never stop the queue.
package queue

import (
	"context"
	"errors"
	"fmt"
	"storefront-distance-service/internal/platform/obs"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is the pause after every task.
const DefaultDelay = time.Second

// ErrClosed is returned by Enqueue after Close, and delivered to tasks dropped by Close.
var ErrClosed = errors.New("queue: closed")

// Task is one unit of serialized work.
type Task func(ctx context.Context) error

type State int

const (
	Idle State = iota
	Draining
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Draining:
		return "draining"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type item struct {
	ctx  context.Context
	task Task
	done chan error
}

type Queue struct {
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	pending []item
	state   State
	closed  bool
	idle    chan struct{} // closed while the queue is Idle
	stop    chan struct{} // closed by Close
}

func New(delay time.Duration, logger *zap.Logger) *Queue {
	if delay < 0 {
		delay = 0
	}
	idle := make(chan struct{})
	close(idle)

	return &Queue{
		delay:  delay,
		logger: obs.OrNop(logger),
		state:  Idle,
		idle:   idle,
		stop:   make(chan struct{}),
	}
}

// Enqueue appends task and starts the worker if it is idle.
// The returned channel receives the task's result exactly once and is then closed.
// If ctx is done before the task's turn, the task is skipped and receives ctx.Err().
func (q *Queue) Enqueue(ctx context.Context, task Task) (<-chan error, error) {
	if task == nil {
		return nil, errors.New("queue: nil task")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	done := make(chan error, 1)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, ErrClosed
	}

	q.pending = append(q.pending, item{ctx: ctx, task: task, done: done})

	if q.state == Idle {
		q.state = Draining
		q.idle = make(chan struct{})
		go q.drain()
	}

	return done, nil
}

// Len reports the number of tasks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *Queue) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Wait blocks until the queue is empty and its worker has exited.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close rejects further work, drops pending tasks with ErrClosed and
// interrupts the delay of a running worker. A task already running is not interrupted.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	dropped := q.pending
	q.pending = nil
	close(q.stop)
	q.mu.Unlock()

	for _, it := range dropped {
		it.done <- ErrClosed
		close(it.done)
	}
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 || q.closed {
			q.state = Idle
			close(q.idle)
			q.mu.Unlock()
			return
		}
		it := q.pending[0]
		q.pending[0] = item{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if err := it.ctx.Err(); err != nil {
			q.logger.Debug("queue: pruned cancelled task", zap.Error(err))
			it.done <- err
			close(it.done)
			continue
		}

		err := q.run(it)
		if err != nil {
			q.logger.Warn("queue: task failed",
				zap.String("req_id", obs.RequestID(it.ctx)),
				zap.Error(err),
			)
		}
		it.done <- err
		close(it.done)

		q.sleep()
	}
}

func (q *Queue) run(it item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("queue: task panicked: %v", r)
		}
	}()
	return it.task(it.ctx)
}

func (q *Queue) sleep() {
	if q.delay == 0 {
		return
	}

	timer := time.NewTimer(q.delay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-q.stop:
	}
}
