package http

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDeadline_ReturnsResult(t *testing.T) {
	v, err := withDeadline(context.Background(), func() (int, error) {
		return 42, nil
	}, time.Second)

	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestWithDeadline_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := withDeadline(context.Background(), func() (int, error) {
		return 0, boom
	}, time.Second)

	assert.ErrorIs(t, err, boom)
}

func TestWithDeadline_AbandonsSlowWork(t *testing.T) {
	finished := make(chan struct{})
	start := time.Now()

	_, err := withDeadline(context.Background(), func() (string, error) {
		defer close(finished)
		time.Sleep(200 * time.Millisecond)
		return "late", nil
	}, 20*time.Millisecond)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, "request timed out after 20ms", err.Error())
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	// The work is not cancelled; it runs to completion in the background.
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("abandoned work never finished")
	}
}

func TestWithDeadline_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := withDeadline(ctx, func() (int, error) {
		time.Sleep(100 * time.Millisecond)
		return 1, nil
	}, time.Second)

	assert.ErrorIs(t, err, context.Canceled)
}
