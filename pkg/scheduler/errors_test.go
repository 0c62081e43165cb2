package scheduler

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrFailed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "task error", err: &errFailed{err: errors.New("no such device")}, want: "job failed: no such device"},
		{name: "no task error", err: &errFailed{}, want: "job failed"},
		{name: "wrapped", err: fmt.Errorf("wake-up: %w", &errFailed{err: errors.New("timeout")}), want: "wake-up: job failed: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, tt.err, ErrFailed)
			assert.NotErrorIs(t, tt.err, ErrCanceled)
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrFailed_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("wake-up: %w", &errFailed{err: cause})
	assert.ErrorIs(t, err, cause)

	var failed *errFailed
	assert.ErrorAs(t, err, &failed)
	assert.Equal(t, cause, failed.Unwrap())
}
