// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffeo/go-modelserve/jobs"
	"github.com/diffeo/go-modelserve/serving"
)

func newTracker(maxAsync int) (*jobs.Tracker, *clock.Mock, *test.Hook) {
	clk := clock.NewMock()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	tracker := jobs.New(jobs.Config{
		Clock:    clk,
		Logger:   logger,
		MaxAsync: maxAsync,
	})
	return tracker, clk, hook
}

// gate is a job body that runs until released or cancelled.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gate) Run(ctx context.Context, progress func(serving.Payload)) (serving.Payload, error) {
	close(g.started)
	progress(serving.Payload{"iteration": 1})
	select {
	case <-g.release:
		return serving.Payload{"accuracy": 0.9}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

// waitFinished polls until the job for service is no longer running.
func waitFinished(t *testing.T, tracker *jobs.Tracker, service string) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		info := tracker.Status(serving.JobQuery{Service: service})
		if info != nil && info.State.Finished() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("job for %v did not finish", service)
}

func TestBlockingJobCompletes(t *testing.T) {
	tracker, clk, _ := newTracker(0)
	clk.Add(time.Hour)
	start := clk.Now()

	done := 0
	info, err := tracker.Start(context.Background(), jobs.Spec{
		Service: "mnist",
		Mode:    serving.Blocking,
		Run: func(ctx context.Context, progress func(serving.Payload)) (serving.Payload, error) {
			clk.Add(time.Minute)
			return serving.Payload{"accuracy": 0.9}, nil
		},
		Done: func() { done++ },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, done)
	assert.Equal(t, 1, info.ID)
	assert.Equal(t, serving.JobCompleted, info.State)
	assert.Equal(t, serving.Blocking, info.Mode)
	assert.Equal(t, start, info.StartedAt)
	assert.Equal(t, start.Add(time.Minute), info.FinishedAt)
	assert.Equal(t, serving.Payload{"accuracy": 0.9}, info.Result)

	status := tracker.Status(serving.JobQuery{Service: "mnist"})
	assert.Equal(t, info, status)
}

func TestBlockingJobFails(t *testing.T) {
	tracker, _, hook := newTracker(0)
	info, err := tracker.Start(context.Background(), jobs.Spec{
		Service: "mnist",
		Mode:    serving.Blocking,
		Run: func(ctx context.Context, progress func(serving.Payload)) (serving.Payload, error) {
			return nil, errors.New("diverged")
		},
	})
	assert.EqualError(t, err, "diverged")
	if assert.NotNil(t, info) {
		assert.Equal(t, serving.JobFailed, info.State)
		assert.Equal(t, "diverged", info.Error)
	}
	if assert.NotNil(t, hook.LastEntry()) {
		assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	}
}

func TestAsyncJobLifecycle(t *testing.T) {
	tracker, _, _ := newTracker(0)
	g := newGate()

	info, err := tracker.Start(context.Background(), jobs.Spec{
		Service: "mnist",
		Mode:    serving.Async,
		Run:     g.Run,
	})
	require.NoError(t, err)
	assert.Equal(t, serving.JobRunning, info.State)
	waitFor(t, g.started)

	status := tracker.Status(serving.JobQuery{Service: "mnist", Job: info.ID})
	if assert.NotNil(t, status) {
		assert.Equal(t, serving.JobRunning, status.State)
		assert.Equal(t, serving.Payload{"iteration": 1}, status.Progress)
	}
	assert.Nil(t, tracker.Status(serving.JobQuery{Service: "mnist", Job: info.ID + 1}))
	assert.Nil(t, tracker.Status(serving.JobQuery{Service: "other"}))

	// A second job on the same service conflicts
	refused := false
	_, err = tracker.Start(context.Background(), jobs.Spec{
		Service: "mnist",
		Mode:    serving.Async,
		Run:     newGate().Run,
		Done:    func() { refused = true },
	})
	assert.Equal(t, serving.ErrJobRunning{Service: "mnist", Job: info.ID}, err)
	assert.True(t, refused)

	// ...but a different service is fine
	other := newGate()
	_, err = tracker.Start(context.Background(), jobs.Spec{
		Service: "cifar",
		Mode:    serving.Async,
		Run:     other.Run,
	})
	require.NoError(t, err)
	waitFor(t, other.started)
	close(other.release)

	counts := tracker.Counts()
	assert.Equal(t, 2, counts[serving.JobRunning]+counts[serving.JobCompleted])

	close(g.release)
	waitFinished(t, tracker, "mnist")

	status = tracker.Status(serving.JobQuery{Service: "mnist"})
	if assert.NotNil(t, status) {
		assert.Equal(t, serving.JobCompleted, status.State)
		assert.Equal(t, serving.Payload{"accuracy": 0.9}, status.Result)
	}

	// Now a new job can start
	_, err = tracker.Start(context.Background(), jobs.Spec{
		Service: "mnist",
		Mode:    serving.Blocking,
		Run: func(ctx context.Context, progress func(serving.Payload)) (serving.Payload, error) {
			return nil, nil
		},
	})
	assert.NoError(t, err)
}

func TestCancelRunningJob(t *testing.T) {
	tracker, _, _ := newTracker(0)
	g := newGate()
	released := make(chan struct{})

	info, err := tracker.Start(context.Background(), jobs.Spec{
		Service: "mnist",
		Mode:    serving.Async,
		Run:     g.Run,
		Done:    func() { close(released) },
	})
	require.NoError(t, err)
	waitFor(t, g.started)

	final, err := tracker.Cancel(context.Background(), serving.JobQuery{Service: "mnist"})
	require.NoError(t, err)
	if assert.NotNil(t, final) {
		assert.Equal(t, info.ID, final.ID)
		assert.Equal(t, serving.JobCancelled, final.State)
	}
	waitFor(t, released)

	// The job is forgotten
	assert.Nil(t, tracker.Status(serving.JobQuery{Service: "mnist"}))
	final, err = tracker.Cancel(context.Background(), serving.JobQuery{Service: "mnist"})
	assert.NoError(t, err)
	assert.Nil(t, final)
}

func TestCancelFinishedJob(t *testing.T) {
	tracker, _, _ := newTracker(0)
	_, err := tracker.Start(context.Background(), jobs.Spec{
		Service: "mnist",
		Mode:    serving.Blocking,
		Run: func(ctx context.Context, progress func(serving.Payload)) (serving.Payload, error) {
			return serving.Payload{}, nil
		},
	})
	require.NoError(t, err)

	// Wrong job id does nothing
	final, err := tracker.Cancel(context.Background(), serving.JobQuery{Service: "mnist", Job: 99})
	assert.NoError(t, err)
	assert.Nil(t, final)
	assert.NotNil(t, tracker.Status(serving.JobQuery{Service: "mnist"}))

	final, err = tracker.Cancel(context.Background(), serving.JobQuery{Service: "mnist", Job: 1})
	assert.NoError(t, err)
	if assert.NotNil(t, final) {
		assert.Equal(t, serving.JobCompleted, final.State)
	}
	assert.Nil(t, tracker.Status(serving.JobQuery{Service: "mnist"}))
}

func TestParentCancelCancelsJob(t *testing.T) {
	tracker, _, _ := newTracker(0)
	ctx, cancel := context.WithCancel(context.Background())
	g := newGate()
	_, err := tracker.Start(ctx, jobs.Spec{
		Service: "mnist",
		Mode:    serving.Async,
		Run:     g.Run,
	})
	require.NoError(t, err)
	waitFor(t, g.started)

	cancel()
	tracker.Close()
	status := tracker.Status(serving.JobQuery{Service: "mnist"})
	if assert.NotNil(t, status) {
		assert.Equal(t, serving.JobCancelled, status.State)
	}
	assert.Equal(t, 1, tracker.Counts()[serving.JobCancelled])

	tracker.Forget("mnist")
	assert.Nil(t, tracker.Status(serving.JobQuery{Service: "mnist"}))
}

func TestMaxAsync(t *testing.T) {
	tracker, _, _ := newTracker(1)
	first := newGate()
	second := newGate()

	_, err := tracker.Start(context.Background(), jobs.Spec{
		Service: "a",
		Mode:    serving.Async,
		Run:     first.Run,
	})
	require.NoError(t, err)
	waitFor(t, first.started)

	_, err = tracker.Start(context.Background(), jobs.Spec{
		Service: "b",
		Mode:    serving.Async,
		Run:     second.Run,
	})
	require.NoError(t, err)

	// The second job is Running but waiting for a slot
	select {
	case <-second.started:
		t.Fatal("second job started while first was running")
	case <-time.After(10 * time.Millisecond):
	}
	assert.Equal(t, 2, tracker.Counts()[serving.JobRunning])

	close(first.release)
	waitFor(t, second.started)
	close(second.release)
	tracker.Close()
}

func TestCancelQueuedJob(t *testing.T) {
	tracker, _, _ := newTracker(1)
	first := newGate()
	_, err := tracker.Start(context.Background(), jobs.Spec{
		Service: "a",
		Mode:    serving.Async,
		Run:     first.Run,
	})
	require.NoError(t, err)
	waitFor(t, first.started)

	_, err = tracker.Start(context.Background(), jobs.Spec{
		Service: "b",
		Mode:    serving.Async,
		Run:     newGate().Run,
	})
	require.NoError(t, err)

	final, err := tracker.Cancel(context.Background(), serving.JobQuery{Service: "b"})
	require.NoError(t, err)
	if assert.NotNil(t, final) {
		assert.Equal(t, serving.JobCancelled, final.State)
	}

	close(first.release)
	tracker.Close()
}

func TestChains(t *testing.T) {
	tracker, _, _ := newTracker(0)
	run1, end1 := tracker.BeginChain("detect")
	run2, end2 := tracker.BeginChain("detect")
	assert.NotEqual(t, run1, run2)
	assert.Equal(t, map[string]int{"detect": 2}, tracker.Chains())
	end1()
	assert.Equal(t, map[string]int{"detect": 1}, tracker.Chains())
	end2()
	assert.Empty(t, tracker.Chains())
}
