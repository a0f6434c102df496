package kernel

import (
	"errors"
	"sync/atomic"
)

var errNotInCritical = errors.New("exit called with depth already zero")

// CriticalSection is a per-core, reentrant interrupt mask (spec §4.2). Each
// [Kernel] holds one instance per [Core]; state is mutated only by code
// running on the owning core, so no cross-core atomicity is required — the
// fields are atomic purely so that another goroutine acting for the same
// core can observe depth without a mutex.
type CriticalSection struct {
	depth  atomic.Int32
	masked atomic.Bool
}

// Enter increments the depth counter. On the 0→1 transition it raises the
// simulated interrupt mask. Always succeeds, per spec §4.2.
func (cs *CriticalSection) Enter() {
	if cs.depth.Add(1) == 1 {
		cs.masked.Store(true)
	}
}

// Exit decrements the depth counter, lowering the mask on the 1→0
// transition. Returns [ErrInvalidState] without mutating anything if depth
// is already zero.
func (cs *CriticalSection) Exit() error {
	for {
		cur := cs.depth.Load()
		if cur == 0 {
			return wrapError(CodeInvalidState, "exit critical section", errNotInCritical)
		}
		next := cur - 1
		if !cs.depth.CompareAndSwap(cur, next) {
			continue
		}
		if next == 0 {
			cs.masked.Store(false)
		}
		return nil
	}
}

// IsCritical reports whether the owning core currently holds the critical
// section (depth > 0).
func (cs *CriticalSection) IsCritical() bool {
	return cs.depth.Load() > 0
}

// IsMasked reports whether the simulated interrupt mask is currently
// raised. It is observable state only: nothing in this module consults it,
// and the ack daemon services wakes regardless of the mask.
func (cs *CriticalSection) IsMasked() bool {
	return cs.masked.Load()
}

// reset forcibly zeroes the depth counter and lowers the mask, for fault
// recovery paths only (spec §4.2's _reset_critical).
func (cs *CriticalSection) reset() {
	cs.depth.Store(0)
	cs.masked.Store(false)
}
