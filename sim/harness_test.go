package sim

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeycumines/go-flightkernel/kernel"
)

func TestHarnessDrivesClockAndTasks(t *testing.T) {
	k, err := kernel.New(kernel.WithTickFrequency(1_000_000))
	require.NoError(t, err)

	h := NewHarness(k, nil)
	h.TickInterval = time.Millisecond

	var cm7Runs, cm4Runs atomic.Int32
	h.AddTask(kernel.Core7, func(ctx context.Context, k *kernel.Kernel) error {
		if _, err := k.Now(); err != nil {
			return err
		}
		cm7Runs.Add(1)
		return nil
	})
	h.AddTask(kernel.Core4, func(ctx context.Context, k *kernel.Kernel) error {
		if _, err := k.Now(); err != nil {
			return err
		}
		cm4Runs.Add(1)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()

	require.Eventually(t, func() bool {
		return cm7Runs.Load() == 1 && cm4Runs.Load() == 1
	}, time.Second, time.Millisecond)

	// let a handful of ticks land before asserting the clock advanced
	require.Eventually(t, func() bool {
		now, err := k.Now()
		return err == nil && now > 0
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, err == nil || err == context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("harness did not stop after context cancellation")
	}
}

func TestHarnessRateLimitsRepeatedWarnings(t *testing.T) {
	k, err := kernel.New()
	require.NoError(t, err)
	h := NewHarness(k, nil)

	for i := 0; i < 10; i++ {
		h.warnf("CM7", "retry-storm", "bounded wait timed out", nil)
	}

	var delivered int
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		_ = longpollDrain(ctx, h.monitor, &delivered)
	}()
	<-monitorDone

	assert.Equal(t, 1, delivered, "catrate should have let only the first warning through within the window")
}

// longpollDrain is a small test helper that runs the monitor and counts
// delivered events by wrapping its logger rather than reimplementing
// longpoll's batching loop.
func longpollDrain(ctx context.Context, m *Monitor, count *int) error {
	countingLogger := loggerFunc(func(entry LogEntry) {
		*count++
	})
	m.logger = countingLogger
	return m.Run(ctx)
}

type loggerFunc func(entry LogEntry)

func (f loggerFunc) Log(entry LogEntry)    { f(entry) }
func (loggerFunc) IsEnabled(LogLevel) bool { return true }

// TestHarnessCoordinatedShutdown drives scenario S6 through the full
// harness: a CM7 task runs kernel.Shutdown (which never returns), and the
// kernel's own peer-wake loop must run CM4's exit handler in response.
func TestHarnessCoordinatedShutdown(t *testing.T) {
	var cm7Exit, cm4Exit, mcuExit atomic.Int32
	k, err := kernel.New(
		kernel.WithExitHandler(kernel.Core7, func() { cm7Exit.Add(1) }),
		kernel.WithExitHandler(kernel.Core4, func() { cm4Exit.Add(1) }),
		kernel.WithMCUExitHandler(func() { mcuExit.Add(1) }),
	)
	require.NoError(t, err)

	h := NewHarness(k, nil)
	h.AddTask(kernel.Core7, func(ctx context.Context, k *kernel.Kernel) error {
		return k.Shutdown(ctx) // never returns on success; goroutine parks
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = h.Run(ctx) }()

	require.Eventually(t, func() bool {
		return cm7Exit.Load() == 1 && cm4Exit.Load() == 1 && mcuExit.Load() == 1
	}, time.Second, time.Millisecond)
}
