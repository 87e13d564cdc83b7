package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New(context.Background(), "not a cron", time.UTC, func(context.Context) error { return nil })
	assert.Error(t, err)

	// Five-field specs are rejected: seconds are required.
	_, err = New(context.Background(), "30 16 * * 1-5", time.UTC, func(context.Context) error { return nil })
	assert.Error(t, err)
}

func TestRunNow(t *testing.T) {
	var calls atomic.Int32
	s, err := New(context.Background(), "0 30 16 * * 1-5", time.UTC, func(context.Context) error {
		calls.Add(1)
		return errors.New("provider down")
	})
	require.NoError(t, err)

	s.RunNow()
	s.RunNow()
	assert.Equal(t, int32(2), calls.Load(), "job errors are logged, not fatal")
}

func TestRunNow_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	s, err := New(ctx, "@daily", nil, func(context.Context) error {
		calls.Add(1)
		return nil
	})
	require.NoError(t, err)

	s.RunNow()
	assert.Zero(t, calls.Load())
}

func TestStartStop_Fires(t *testing.T) {
	fired := make(chan struct{}, 1)
	s, err := New(context.Background(), "@every 1s", time.UTC, func(context.Context) error {
		select {
		case fired <- struct{}{}:
		default:
		}
		return nil
	})
	require.NoError(t, err)

	s.Start()
	assert.False(t, s.Next().IsZero())

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatalf("job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}

func TestLoadLocation(t *testing.T) {
	loc, err := LoadLocation("")
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	loc, err = LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	_, offset := time.Date(2024, 9, 3, 12, 0, 0, 0, loc).Zone()
	assert.Equal(t, 5*3600+30*60, offset)

	_, err = LoadLocation("Mars/Olympus_Mons")
	assert.Error(t, err)
}
