package scheduler

import (
	"errors"
)

var (
	// ErrCanceled is the result of a Job that was canceled before it ran.
	ErrCanceled = errors.New("job canceled")
	// ErrFailed matches the result of a Job whose task returned an error.
	ErrFailed = &errFailed{}
)

// errFailed wraps the error returned by a job's task.
type errFailed struct {
	err error
}

func (e *errFailed) Error() string {
	if e.err == nil {
		return "job failed"
	}
	return "job failed: " + e.err.Error()
}

func (e *errFailed) Is(target error) bool {
	return target == ErrFailed
}

func (e *errFailed) Unwrap() error {
	return e.err
}
