package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunExecutesJob(t *testing.T) {
	s := New(zap.NewNop())

	var calls atomic.Int32
	s.Register(Job{
		Name: "touch",
		Fn: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	require.NoError(t, s.Run(context.Background(), "touch"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestRunPropagatesJobError(t *testing.T) {
	s := New(zap.NewNop())

	wantErr := errors.New("upload failed")
	s.Register(Job{
		Name: "broken",
		Fn:   func(ctx context.Context) error { return wantErr },
	})

	err := s.Run(context.Background(), "broken")
	assert.ErrorIs(t, err, wantErr)
}

func TestRunUnknownJob(t *testing.T) {
	s := New(zap.NewNop())

	err := s.Run(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStartRunsOnInterval(t *testing.T) {
	s := New(zap.NewNop())

	done := make(chan struct{})
	var once atomic.Bool
	s.Register(Job{
		Name:     "tick",
		Interval: 10 * time.Millisecond,
		Fn: func(ctx context.Context) error {
			if once.CompareAndSwap(false, true) {
				close(done)
			}
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestStartSkipsManualJobs(t *testing.T) {
	s := New(zap.NewNop())

	var calls atomic.Int32
	s.Register(Job{
		Name: "manual",
		Fn: func(ctx context.Context) error {
			calls.Add(1)
			return nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestOverlappingRunsSkipped(t *testing.T) {
	s := New(zap.NewNop())

	release := make(chan struct{})
	var calls atomic.Int32
	s.Register(Job{
		Name: "slow",
		Fn: func(ctx context.Context) error {
			calls.Add(1)
			<-release
			return nil
		},
	})

	go s.Run(context.Background(), "slow")

	// wait for the first run to be in flight
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, s.Run(context.Background(), "slow"))
	assert.Equal(t, int32(1), calls.Load())

	close(release)
}
