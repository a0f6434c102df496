// Package sim is the collaborator layer around [github.com/joeycumines/go-flightkernel/kernel]:
// it supplies everything the bare coordination core deliberately leaves out
// — a tick source, two goroutines playing the CM7 and CM4 application
// tasks, structured logging, rate-limited warning telemetry, and a batched
// event monitor — the way the firmware's own scheduler, logging backend,
// and application tasks would, without any of that living inside the
// primitives themselves.
//
// [Harness] is the entry point: construct a [kernel.Kernel] with
// [github.com/joeycumines/go-flightkernel/kernel.New], wrap it with
// [NewHarness], and call [Harness.Run]. Run launches the kernel's own
// background goroutines (via [kernel.Kernel.Run]), a configurable tick
// goroutine, and any task functions registered with [Harness.AddTask],
// supervising all of them with an [golang.org/x/sync/errgroup.Group] so
// that a panic-free early exit from any one of them (e.g. a task returning
// an error) tears down the rest via context cancellation.
package sim
