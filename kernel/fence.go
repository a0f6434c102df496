package kernel

import "runtime"

// This file is the platform facade the Design Notes call for: it abstracts
// the inline-assembly fences and wait instructions the original firmware
// issues directly (isb/dsb/wfi/wfe/sev) behind named functions, so the rest
// of the package never spells out an architecture. In this simulation there
// is no real memory-ordering fence to issue (sync/atomic already gives us
// the ordering guarantees we need) and no real core to wake with an event
// signal, so each function reduces to its nearest cooperative-scheduling
// equivalent. They exist as named seams, not as no-ops to be optimized away:
// a future bare-metal backend implements exactly these five functions.

// isb simulates an instruction synchronization barrier. A no-op on this
// backend; present so call sites read the way the firmware's do.
func isb() {}

// dsb simulates a data synchronization barrier. A no-op on this backend,
// since every shared word this package touches is already a sync/atomic
// value with sequential-consistency semantics.
func dsb() {}

// wfi simulates "wait for interrupt" by yielding the processor once; it does
// not park the calling goroutine. Used only by Kernel.SysSleep.
func wfi() {
	runtime.Gosched()
}

// wfe simulates "wait for event": spin-yield once, used by the bounded
// polling loops in the exclusive-section and shutdown protocols so they
// cooperate with the Go scheduler instead of burning a core.
func wfe() {
	runtime.Gosched()
}

// sev simulates the cross-core "send event" signal that wakes the peer
// core's ack-daemon/shutdown-wait goroutine. wake is a buffered
// (capacity >= 1) channel owned by the peer; a non-blocking send models the
// hardware event latch, which coalesces repeated signals the same way.
func sev(wake chan<- struct{}) {
	select {
	case wake <- struct{}{}:
	default:
	}
}
