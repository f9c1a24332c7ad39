package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubWorker struct {
	*BaseWorker
	runCount int32
	runFunc  func(ctx context.Context) error
}

func newStubWorker(name string, interval time.Duration, enabled bool) *stubWorker {
	return &stubWorker{
		BaseWorker: NewBaseWorker(name, interval, enabled),
		runFunc:    func(ctx context.Context) error { return nil },
	}
}

func (w *stubWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&w.runCount, 1)
	if w.runFunc != nil {
		return w.runFunc(ctx)
	}
	return nil
}

func (w *stubWorker) runs() int {
	return int(atomic.LoadInt32(&w.runCount))
}

func TestScheduler_StartStop(t *testing.T) {
	scheduler := NewScheduler()

	worker := newStubWorker("batch", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	require.NoError(t, scheduler.Start(context.Background()))
	assert.True(t, scheduler.IsRunning())

	time.Sleep(250 * time.Millisecond)

	require.NoError(t, scheduler.Stop())
	assert.False(t, scheduler.IsRunning())

	// Immediate run on start plus at least one tick
	assert.GreaterOrEqual(t, worker.runs(), 2)
}

func TestScheduler_DisabledWorkerNeverRuns(t *testing.T) {
	scheduler := NewScheduler()

	enabled := newStubWorker("enabled", 100*time.Millisecond, true)
	disabled := newStubWorker("disabled", 100*time.Millisecond, false)

	scheduler.RegisterWorker(enabled)
	scheduler.RegisterWorker(disabled)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(250 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	assert.Greater(t, enabled.runs(), 0)
	assert.Equal(t, 0, disabled.runs())
}

func TestScheduler_SurvivesWorkerError(t *testing.T) {
	scheduler := NewScheduler()

	failing := newStubWorker("failing", 50*time.Millisecond, true)
	failing.runFunc = func(ctx context.Context) error {
		return assert.AnError
	}
	scheduler.RegisterWorker(failing)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	// Errors are logged, not fatal: the worker keeps its schedule
	assert.GreaterOrEqual(t, failing.runs(), 2)
}

func TestScheduler_ContextCancellation(t *testing.T) {
	scheduler := NewScheduler()

	worker := newStubWorker("batch", 100*time.Millisecond, true)
	scheduler.RegisterWorker(worker)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scheduler.Start(ctx))

	cancel()
	time.Sleep(200 * time.Millisecond)

	// Stop still works after context cancellation
	require.NoError(t, scheduler.Stop())
}

func TestScheduler_CannotStartTwice(t *testing.T) {
	scheduler := NewScheduler()
	scheduler.RegisterWorker(newStubWorker("batch", 100*time.Millisecond, true))

	ctx := context.Background()
	require.NoError(t, scheduler.Start(ctx))
	assert.Error(t, scheduler.Start(ctx))

	scheduler.Stop()
}

func TestScheduler_RecordsWorkerHealth(t *testing.T) {
	scheduler := NewScheduler()

	failing := newStubWorker("failing", time.Hour, true)
	failing.runFunc = func(ctx context.Context) error {
		return assert.AnError
	}
	healthy := newStubWorker("healthy", time.Hour, true)

	scheduler.RegisterWorker(failing)
	scheduler.RegisterWorker(healthy)

	require.NoError(t, scheduler.Start(context.Background()))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, scheduler.Stop())

	fh := failing.Health()
	assert.Equal(t, int64(1), fh.RunCount)
	assert.Equal(t, int64(1), fh.ErrorCount)
	assert.Equal(t, assert.AnError, fh.LastError)

	hh := healthy.Health()
	assert.Equal(t, int64(1), hh.RunCount)
	assert.Equal(t, int64(0), hh.ErrorCount)
	assert.NoError(t, hh.LastError)
}

func TestScheduler_GetWorkers(t *testing.T) {
	scheduler := NewScheduler()

	scheduler.RegisterWorker(newStubWorker("first", 100*time.Millisecond, true))
	scheduler.RegisterWorker(newStubWorker("second", 200*time.Millisecond, false))

	workers := scheduler.GetWorkers()
	require.Len(t, workers, 2)
	assert.Equal(t, "first", workers[0].Name())
	assert.Equal(t, "second", workers[1].Name())
}
