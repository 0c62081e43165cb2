// Package scheduler runs a Task once, after a delay, unless the Job is canceled first.
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Schedule runs the task once waitTime has passed. The task is not run if ctx is canceled, or the Job is canceled, before then.
func Schedule(ctx context.Context, task Task, waitTime time.Duration) *Job {
	ctx2, cancel := context.WithCancel(ctx)
	j := &Job{
		task:   task,
		state:  stateScheduled,
		due:    time.Now().Add(waitTime),
		cancel: cancel,
	}
	go j.run(ctx2, waitTime)

	return j
}

type Task interface {
	Run(ctx context.Context) error
}

// RunFunc adapts a function to a Task.
type RunFunc func(ctx context.Context) error

func (f RunFunc) Run(ctx context.Context) error {
	return f(ctx)
}

type Job struct {
	task   Task
	state  state
	due    time.Time
	cancel context.CancelFunc
	err    error
	lock   sync.RWMutex
}

func (j *Job) run(ctx context.Context, waitTime time.Duration) {
	timer := time.NewTimer(waitTime)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		j.setState(stateCanceled, ErrCanceled)
	case <-timer.C:
		s := stateCompleted
		err := j.task.Run(ctx)
		if err != nil {
			s = stateFailed
			err = &errFailed{err: err}
		}
		j.setState(s, err)
	}
}

// Cancel cancels the job. Cancel has no effect if the job has already run.
func (j *Job) Cancel() {
	j.cancel()
	j.lock.Lock()
	defer j.lock.Unlock()
	if !j.state.done() {
		j.state = stateCanceled
		j.err = ErrCanceled
	}
}

// Due returns the time at which the job is scheduled to run.
func (j *Job) Due() time.Time {
	return j.due
}

// Result returns whether the job has completed and, if so, any error. A canceled job returns ErrCanceled.
// A failed job returns an error that matches ErrFailed and wraps the task's error.
func (j *Job) Result() (completed bool, err error) {
	var result state
	result, err = j.getState()
	if completed = result.done(); completed {
		j.cancel()
	}
	return
}

func (j *Job) setState(state state, err error) {
	j.lock.Lock()
	defer j.lock.Unlock()
	if j.state == stateCanceled {
		return
	}
	j.state = state
	j.err = err
}

func (j *Job) getState() (state state, err error) {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return j.state, j.err
}

type state int

const (
	stateScheduled state = iota
	stateCanceled
	stateCompleted
	stateFailed
)

func (s state) done() bool {
	return s == stateCompleted || s == stateFailed || s == stateCanceled
}
