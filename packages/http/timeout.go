package http

import (
	"context"
	"time"
)

type outcome[T any] struct {
	value T
	err   error
}

// withDeadline runs op and waits for it for at most timeout. When the
// deadline passes first, op keeps running in the background and whatever it
// eventually returns is dropped. Ending ctx abandons op the same way.
func withDeadline[T any](ctx context.Context, op func() (T, error), timeout time.Duration) (T, error) {
	done := make(chan outcome[T], 1)
	go func() {
		v, err := op()
		done <- outcome[T]{value: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case o := <-done:
		return o.value, o.err
	case <-timer.C:
		return zero, &TimeoutError{Timeout: timeout}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
