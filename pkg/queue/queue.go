// Package queue provides a bounded-concurrency FIFO admission queue.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pario-ai/scoregate/pkg/models"
)

var (
	// ErrClosed is returned by Submit after Close has been called.
	ErrClosed = errors.New("queue closed")
	// ErrPanic wraps a recovered handler panic.
	ErrPanic = errors.New("handler panic")
)

const (
	DefaultMaxConcurrent = 3
	DefaultDispatchDelay = 100 * time.Millisecond
)

// Handler executes a dispatched job.
type Handler func(ctx context.Context, job *Job) (models.ScoreResult, error)

// Option configures a Queue.
type Option func(*Queue)

// WithMaxConcurrent sets the in-flight limit. Values below 1 are ignored.
func WithMaxConcurrent(n int) Option {
	return func(q *Queue) {
		if n >= 1 {
			q.maxConcurrent = n
		}
	}
}

// WithDispatchDelay sets the pause between a completion and the next
// scheduling pass. Zero schedules immediately.
func WithDispatchDelay(d time.Duration) Option {
	return func(q *Queue) {
		if d >= 0 {
			q.delay = d
		}
	}
}

// WithOnDispatch registers a hook called as each job is dequeued, in
// dispatch order. It runs under the queue lock and must not call back
// into the Queue.
func WithOnDispatch(fn func(*Job)) Option {
	return func(q *Queue) { q.onDispatch = fn }
}

// Queue admits jobs in FIFO order and runs at most maxConcurrent at a time.
type Queue struct {
	handler       Handler
	maxConcurrent int
	delay         time.Duration
	onDispatch    func(*Job)

	mu       sync.Mutex
	pending  []*Job
	inFlight int
	closed   bool
	wg       sync.WaitGroup

	dispatched int64
	completed  int64
	failed     int64
}

// New creates a Queue that runs jobs with h.
func New(h Handler, opts ...Option) *Queue {
	q := &Queue{
		handler:       h,
		maxConcurrent: DefaultMaxConcurrent,
		delay:         DefaultDispatchDelay,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Submit admits a job and triggers scheduling.
func (q *Queue) Submit(candidate, requirement string) (*Job, error) {
	j := newJob(candidate, requirement)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrClosed
	}
	q.pending = append(q.pending, j)
	q.wg.Add(1)
	q.mu.Unlock()

	q.schedule()
	return j, nil
}

// schedule dispatches head jobs while there is spare capacity.
func (q *Queue) schedule() {
	q.mu.Lock()
	var batch []*Job
	for q.inFlight < q.maxConcurrent && len(q.pending) > 0 {
		j := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.inFlight++
		q.dispatched++
		if q.onDispatch != nil {
			q.onDispatch(j)
		}
		batch = append(batch, j)
	}
	q.mu.Unlock()

	for _, j := range batch {
		go q.run(j)
	}
}

func (q *Queue) run(j *Job) {
	r, err := q.invoke(j)
	j.resolve(r, err)

	q.mu.Lock()
	q.inFlight--
	if err != nil {
		q.failed++
	} else {
		q.completed++
	}
	q.mu.Unlock()
	q.wg.Done()

	if q.delay > 0 {
		time.AfterFunc(q.delay, q.schedule)
	} else {
		q.schedule()
	}
}

func (q *Queue) invoke(j *Job) (r models.ScoreResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logrus.WithFields(logrus.Fields{
				"job_id": j.ID,
				"panic":  rec,
			}).Error("[QUEUE] Handler panicked")
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	return q.handler(context.Background(), j)
}

// Close stops admission and waits until every admitted job has resolved
// or ctx ends.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain queue: %w", ctx.Err())
	}
}

// Depth returns the number of admitted jobs not yet dispatched.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Stats returns a snapshot of queue state.
func (q *Queue) Stats() models.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return models.QueueStats{
		Depth:         len(q.pending),
		InFlight:      q.inFlight,
		MaxConcurrent: q.maxConcurrent,
		Dispatched:    q.dispatched,
		Completed:     q.completed,
		Failed:        q.failed,
	}
}
