package sim

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-flightkernel/kernel"
)

// Task is a unit of application work the harness runs bound to a specific
// [kernel.Core], the Go analogue of one of the firmware's scheduled
// application threads. ctx carries the bound core (retrievable with
// [kernel.GetCore]) for the lifetime of the call; Task should return when
// ctx is done.
type Task func(ctx context.Context, k *kernel.Kernel) error

// Harness is the collaborator layer around a [kernel.Kernel]: it supplies
// the tick source, runs application [Task]s bound to each core, and routes
// diagnostics through a [Logger] (batched via [Monitor]) with repeated
// warnings throttled by a [catrate.Limiter], so a misbehaving core spinning
// on a timeout doesn't flood the log.
//
// Harness itself contributes no coordination logic — every invariant in
// this module lives in kernel. It exists only to drive the kernel the way
// a real two-core application would: a tick ISR, per-core tasks, and a
// telemetry sink.
type Harness struct {
	Kernel *kernel.Kernel

	// TickInterval is the wall-clock period between calls to Kernel.Tick.
	// Defaults to time.Millisecond if zero.
	TickInterval time.Duration

	monitor   *Monitor
	warnLimit *catrate.Limiter
	cm7Tasks  []Task
	cm4Tasks  []Task
}

// NewHarness wraps k with a collaborator layer logging through logger
// (nil selects [NewNoOpLogger]) and throttling repeated warnings to at most
// one per category per second, per [catrate.Limiter]'s sliding-window
// semantics.
func NewHarness(k *kernel.Kernel, logger Logger) *Harness {
	return &Harness{
		Kernel:       k,
		TickInterval: time.Millisecond,
		monitor:      NewMonitor(logger, 256, nil),
		warnLimit:    catrate.NewLimiter(map[time.Duration]int{time.Second: 1}),
	}
}

// AddTask registers fn to run bound to core once [Harness.Run] starts.
// Must be called before Run.
func (h *Harness) AddTask(core kernel.Core, fn Task) {
	switch core {
	case kernel.Core7:
		h.cm7Tasks = append(h.cm7Tasks, fn)
	default:
		h.cm4Tasks = append(h.cm4Tasks, fn)
	}
}

// warnf emits a rate-limited warning event through the monitor: repeated
// identical-category warnings within the same second are suppressed, the
// way a real telemetry pipeline avoids a spinning retry loop drowning out
// everything else it logs.
func (h *Harness) warnf(core string, category, message string, err error) {
	if _, ok := h.warnLimit.Allow(category); !ok {
		return
	}
	h.monitor.Emit(Event{Level: LevelWarn, Category: category, Core: core, Message: message, Err: err})
}

// Run launches the kernel's background goroutines, the tick source, the
// telemetry monitor, and every registered [Task], supervising all of them
// with an [errgroup.Group] — grounded on the same "one goroutine per
// concern, first error cancels the rest" shape the teacher's eventloop
// package uses for its own internal worker supervision, here expressed with
// the ecosystem's own errgroup instead of a hand-rolled sync.WaitGroup.
//
// Run blocks until ctx is done or any supervised goroutine returns a
// non-nil error, then returns that error (nil, on ordinary cancellation).
func (h *Harness) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		h.Kernel.Run(gctx)
		return nil
	})

	g.Go(func() error {
		return h.monitor.Run(gctx)
	})

	g.Go(func() error {
		return h.runTick(gctx)
	})

	g.Go(func() error {
		return h.runTasks(gctx, kernel.Core7, h.cm7Tasks)
	})
	g.Go(func() error {
		return h.runTasks(gctx, kernel.Core4, h.cm4Tasks)
	})

	return g.Wait()
}

// runTick is the tick-interrupt source: it calls Kernel.Tick at
// h.TickInterval until ctx is done.
func (h *Harness) runTick(ctx context.Context) error {
	interval := h.TickInterval
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			h.Kernel.Tick()
		}
	}
}

// runTasks binds ctx to core and runs each task concurrently, each on its
// own goroutine, every one of them carrying the same Core identity.
func (h *Harness) runTasks(ctx context.Context, core kernel.Core, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ctx = kernel.WithCore(ctx, core)
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := task(gctx, h.Kernel); err != nil {
				h.warnf(core.String(), "task", "task returned an error", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
