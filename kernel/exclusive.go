package kernel

import (
	"errors"
	"sync/atomic"
	"time"
)

var (
	errNotHolder   = errors.New("calling core does not hold the exclusive section")
	errLostPeerAck = errors.New("peer core's acknowledgment flag was not set")
)

// ExclusiveSection is the cross-core mutual-exclusion primitive (spec
// §4.3), the hardest part of the coordination core. Exactly one of the two
// cores may hold it at a time; acquisition is reentrant per holder.
//
// Unlike [CriticalSection], every field here is mutated from both cores via
// atomic operations, and the entry/exit protocols below are what make that
// safe without a hardware mutex: the acknowledgment handshake is what
// guarantees one core cannot race past the other while they both believe
// they might hold the section.
type ExclusiveSection struct {
	lockTag atomic.Int32 // 0 = free, Core7 or Core4 = held
	exDepth atomic.Int32
	ack     [2]atomic.Bool // indexed by Core.index()

	clock               *Clock
	critical            *[2]CriticalSection
	timeout, ackTimeout time.Duration
	wake                [2]chan struct{} // sev() targets, one per core
}

func newExclusiveSection(clock *Clock, critical *[2]CriticalSection, timeout, ackTimeout time.Duration) *ExclusiveSection {
	return &ExclusiveSection{
		clock:      clock,
		critical:   critical,
		timeout:    timeout,
		ackTimeout: ackTimeout,
		wake:       [2]chan struct{}{make(chan struct{}, 1), make(chan struct{}, 1)},
	}
}

// nowOrInternal adapts a Clock.Now failure to CodeInternal, per spec §4.3
// ("INTERNAL if the clock read failed").
func (x *ExclusiveSection) nowOrInternal() (int64, error) {
	now, err := x.clock.Now()
	if err != nil {
		return 0, wrapError(CodeInternal, "exclusive section: read time", err)
	}
	return now, nil
}

// Enter acquires the exclusive section for core, blocking (spinning,
// cooperatively) until acquired or a configured timeout elapses. See spec
// §4.3's entry protocol for the step numbering referenced in comments
// below.
func (x *ExclusiveSection) Enter(core Core) error {
	local := &x.critical[core.index()]

	// Step 1: enter local critical section — interrupts must be masked
	// before touching lockTag, else an ISR on this core could re-enter the
	// protocol and self-deadlock against its own spin loop.
	local.Enter()

	// Step 2: reentrant acquisition.
	if x.lockTag.Load() == int32(core) {
		x.exDepth.Add(1)
		local.Exit() //nolint:errcheck // depth just incremented above, cannot be zero
		return nil
	}

	// Step 3: spin on CAS until acquired or timed out.
	start, err := x.nowOrInternal()
	if err != nil {
		local.Exit() //nolint:errcheck
		return err
	}
	for !x.lockTag.CompareAndSwap(0, int32(core)) {
		if Core(x.lockTag.Load()) == core.other() {
			x.ack[core.index()].Store(true)
		}
		now, err := x.nowOrInternal()
		if err != nil {
			local.Exit() //nolint:errcheck
			return err
		}
		if now-start > x.timeout.Microseconds() {
			local.Exit() //nolint:errcheck
			return wrapError(CodeTimeout, "enter exclusive section", nil)
		}
		wfe()
	}

	// Step 4: won the CAS.
	x.ack[core.index()].Store(false)
	x.exDepth.Store(1)
	sev(x.wake[core.other().index()])

	// Step 5: wait for the peer's ack before proceeding.
	ackStart, err := x.nowOrInternal()
	if err != nil {
		x.rollback(core)
		local.Exit() //nolint:errcheck
		return err
	}
	for !x.ack[core.other().index()].Load() {
		now, err := x.nowOrInternal()
		if err != nil {
			x.rollback(core)
			local.Exit() //nolint:errcheck
			return err
		}
		if now-ackStart > x.ackTimeout.Microseconds() {
			x.rollback(core)
			local.Exit() //nolint:errcheck
			return wrapError(CodeTimeout, "enter exclusive section: awaiting peer ack", nil)
		}
		wfe()
	}

	// Step 6: exit local critical section; this core now holds the lock.
	return local.Exit()
}

// rollback undoes a partially-completed acquisition: decrement exDepth and,
// if that reaches zero, release the lock. Used by Enter's ack-timeout path.
func (x *ExclusiveSection) rollback(core Core) {
	if x.exDepth.Add(-1) == 0 {
		x.lockTag.Store(0)
	}
}

// Exit releases one level of reentrancy, releasing the lock entirely on the
// outermost exit. See spec §4.3's exit protocol.
func (x *ExclusiveSection) Exit(core Core) error {
	local := &x.critical[core.index()]
	local.Enter()

	if Core(x.lockTag.Load()) != core {
		local.Exit() //nolint:errcheck
		return wrapError(CodeInvalidState, "exit exclusive section", errNotHolder)
	}

	if !x.ack[core.other().index()].Load() {
		local.Exit() //nolint:errcheck
		return wrapError(CodeTimeout, "exit exclusive section: peer ack lost", errLostPeerAck)
	}

	if x.exDepth.Add(-1) == 0 {
		x.lockTag.Store(0)
		sev(x.wake[core.other().index()])
	}

	return local.Exit()
}

// IsExclusive reports whether core currently holds the exclusive section.
func (x *ExclusiveSection) IsExclusive(core Core) bool {
	return Core(x.lockTag.Load()) == core
}

// reset clears exDepth and releases the lock if core owned it (spec §4.3's
// _reset_exclusive, a fault-recovery hook).
func (x *ExclusiveSection) reset(core Core) {
	if Core(x.lockTag.Load()) == core {
		x.lockTag.Store(0)
		x.exDepth.Store(0)
	}
}

// ackDaemon is the acknowledgment handler described in spec §4.3: it runs
// continuously on core, waking whenever sev() is signaled for it, and while
// the peer holds the lock it repeatedly asserts this core's ack flag within
// a bounded window, checking the clock every iteration — exactly as
// documented, including the §9 caveat that the clock must remain readable
// even while both cores are inside their own critical sections (true here,
// since Clock.update never consults CriticalSection at all).
//
// It stops when ctx-equivalent shutdown is signaled via done.
func (x *ExclusiveSection) ackDaemon(core Core, done <-chan struct{}) {
	idx := core.index()
	for {
		select {
		case <-done:
			return
		case <-x.wake[idx]:
		}

		windowStart, err := x.clock.Now()
		if err != nil {
			continue
		}
		for Core(x.lockTag.Load()) == core.other() {
			x.ack[idx].Store(true)
			now, err := x.clock.Now()
			if err != nil {
				break
			}
			if now-windowStart > x.ackTimeout.Microseconds() {
				break
			}
			wfe()
		}
		x.ack[idx].Store(false)
	}
}
