package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pario-ai/scoregate/pkg/models"
)

// Job is one admitted scoring request. Its outcome is set exactly once.
type Job struct {
	ID          string
	Candidate   string
	Requirement string
	CreatedAt   time.Time

	once   sync.Once
	done   chan struct{}
	result models.ScoreResult
	err    error
}

func newJob(candidate, requirement string) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Candidate:   candidate,
		Requirement: requirement,
		CreatedAt:   time.Now(),
		done:        make(chan struct{}),
	}
}

// resolve reports whether this call set the outcome.
func (j *Job) resolve(r models.ScoreResult, err error) bool {
	set := false
	j.once.Do(func() {
		j.result, j.err = r, err
		close(j.done)
		set = true
	})
	return set
}

// Done is closed once the job has an outcome.
func (j *Job) Done() <-chan struct{} { return j.done }

// Wait blocks until the job resolves or ctx ends. Cancelling ctx only stops
// the wait; the job still runs to completion.
func (j *Job) Wait(ctx context.Context) (models.ScoreResult, error) {
	select {
	case <-j.done:
		return j.result, j.err
	case <-ctx.Done():
		return models.ScoreResult{}, ctx.Err()
	}
}
