package kernel

import (
	"sync/atomic"
)

// Shutdown implements the two-core rendezvous from spec §4.4: whichever
// core calls Kernel.Shutdown first, both flags end up set, and each core
// runs its own exit-handler table exactly once before parking forever. The
// "exactly once" guarantee comes from flags being set via
// atomic.Bool.CompareAndSwap in begin: only the caller that wins the
// false→true transition proceeds to run that core's exit handlers.
type Shutdown struct {
	flags [2]atomic.Bool

	wake [2]chan struct{} // sev() targets for the peer-wake rendezvous
	done chan struct{}    // allocated by newShutdown; nothing closes or reads it
}

func newShutdown() *Shutdown {
	return &Shutdown{
		wake: [2]chan struct{}{make(chan struct{}, 1), make(chan struct{}, 1)},
		done: make(chan struct{}),
	}
}

// begin sets core's shutdown flag and wakes the peer, returning whether
// this call was the one to transition the flag from unset to set (false if
// the flag was already set, meaning shutdown is already under way for this
// core — the caller should not re-run its exit handlers).
func (s *Shutdown) begin(core Core) bool {
	if !s.flags[core.index()].CompareAndSwap(false, true) {
		return false
	}
	sev(s.wake[core.other().index()])
	return true
}

// awaitPeer spins until the peer core's shutdown flag is observed set.
func (s *Shutdown) awaitPeer(core Core) {
	for !s.flags[core.other().index()].Load() {
		wfe()
	}
}

// peerWakeLoop is the peer-core wake ISR from spec §4.4: it observes the
// initiating core's shutdown flag and, on the transition, sets this core's
// own flag and invokes runExit for this core. Run once per core for the
// lifetime of the Kernel; it is what closes the rendezvous for whichever
// core did not call Shutdown first.
func (s *Shutdown) peerWakeLoop(core Core, done <-chan struct{}, runExit func()) {
	for {
		select {
		case <-done:
			return
		case <-s.wake[core.index()]:
		}
		if s.begin(core) {
			runExit()
		}
	}
}
