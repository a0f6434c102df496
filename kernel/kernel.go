package kernel

import (
	"context"
)

// Kernel aggregates the four coordination subsystems (spec §2) behind one
// process-wide value: a [Clock], one [CriticalSection] per [Core], one
// [ExclusiveSection], and one [Shutdown] coordinator. Construct with [New];
// start the background goroutines (ack daemons, peer-wake loops) with
// [Kernel.Run].
type Kernel struct {
	clock     *Clock
	critical  [2]CriticalSection
	exclusive *ExclusiveSection
	shutdown  *Shutdown
	cfg       *config
}

// New constructs a Kernel from the given options, applying the documented
// defaults for any knob not explicitly set.
func New(opts ...Option) (*Kernel, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		clock:    newClock(cfg.tickFreqHz, cfg.timeLockAttempts),
		shutdown: newShutdown(),
		cfg:      cfg,
	}
	k.exclusive = newExclusiveSection(k.clock, &k.critical, cfg.exclusiveSectionTimeout, cfg.exclusiveSectionAckTimeout)
	return k, nil
}

// Run starts the Kernel's background goroutines — the acknowledgment
// handlers for both cores and the peer shutdown-wake loops — and blocks
// until ctx is done. It freezes the exit-handler tables on entry, since
// registration (via [WithExitHandler]/[WithMCUExitHandler]) is only valid
// before the firmware image, so to speak, is linked.
//
// Run is meant to be launched once by the collaborator layer (see the sim
// package) that also launches the two goroutines playing CM7 and CM4 and
// the goroutine playing the tick source.
func (k *Kernel) Run(ctx context.Context) {
	k.cfg.exitHandlers[0].freeze()
	k.cfg.exitHandlers[1].freeze()
	k.cfg.mcuExit.freeze()

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(done)
	}()

	go k.exclusive.ackDaemon(Core7, done)
	go k.exclusive.ackDaemon(Core4, done)
	go k.shutdown.peerWakeLoop(Core7, done, func() { k.runExit(Core7) })
	go k.shutdown.peerWakeLoop(Core4, done, func() { k.runExit(Core4) })

	<-ctx.Done()
}

// Tick advances the monotonic clock by one tick increment. It must be
// invoked only by whichever goroutine the embedding harness designates as
// the tick interrupt source, at (approximately) the configured tick
// frequency; it is intentionally not routed through [CriticalSection] at
// all, matching the tick handler's hardware exemption from interrupt
// masking.
func (k *Kernel) Tick() {
	k.clock.update()
}

// Now returns the current monotonic microsecond clock value. See [Clock.Now].
func (k *Kernel) Now() (int64, error) {
	return k.clock.Now()
}

// Sleep blocks for at least durationUs of monotonic time. See [Clock.Sleep].
func (k *Kernel) Sleep(durationUs int64) error {
	return k.clock.Sleep(durationUs)
}

// SleepUntil blocks until the clock reaches or passes targetUs. See
// [Clock.SleepUntil].
func (k *Kernel) SleepUntil(targetUs int64) error {
	return k.clock.SleepUntil(targetUs)
}

// EnterCritical increments the calling core's critical-section depth. The
// core is read from ctx (see [WithCore]); [ErrInvalidState] is returned if
// ctx carries no core.
func (k *Kernel) EnterCritical(ctx context.Context) error {
	core, err := GetCore(ctx)
	if err != nil {
		return err
	}
	k.critical[core.index()].Enter()
	return nil
}

// ExitCritical decrements the calling core's critical-section depth. See
// [CriticalSection.Exit].
func (k *Kernel) ExitCritical(ctx context.Context) error {
	core, err := GetCore(ctx)
	if err != nil {
		return err
	}
	return k.critical[core.index()].Exit()
}

// IsCritical reports whether the calling core currently holds its critical
// section.
func (k *Kernel) IsCritical(ctx context.Context) (bool, error) {
	core, err := GetCore(ctx)
	if err != nil {
		return false, err
	}
	return k.critical[core.index()].IsCritical(), nil
}

// ResetCritical forcibly clears the calling core's critical-section state.
// Intended only for fault-recovery paths (spec §4.2's _reset_critical).
func (k *Kernel) ResetCritical(ctx context.Context) error {
	core, err := GetCore(ctx)
	if err != nil {
		return err
	}
	k.critical[core.index()].reset()
	return nil
}

// EnterExclusive acquires the cross-core exclusive section for the calling
// core. See [ExclusiveSection.Enter].
func (k *Kernel) EnterExclusive(ctx context.Context) error {
	core, err := GetCore(ctx)
	if err != nil {
		return err
	}
	return k.exclusive.Enter(core)
}

// ExitExclusive releases one level of the calling core's exclusive-section
// reentrancy. See [ExclusiveSection.Exit].
func (k *Kernel) ExitExclusive(ctx context.Context) error {
	core, err := GetCore(ctx)
	if err != nil {
		return err
	}
	return k.exclusive.Exit(core)
}

// IsExclusive reports whether the calling core currently holds the
// exclusive section.
func (k *Kernel) IsExclusive(ctx context.Context) (bool, error) {
	core, err := GetCore(ctx)
	if err != nil {
		return false, err
	}
	return k.exclusive.IsExclusive(core), nil
}

// ResetExclusive forcibly releases the exclusive section if the calling
// core owns it, and clears its reentrancy depth. Intended only for
// fault-recovery paths (spec §4.3's _reset_exclusive).
func (k *Kernel) ResetExclusive(ctx context.Context) error {
	core, err := GetCore(ctx)
	if err != nil {
		return err
	}
	k.exclusive.reset(core)
	return nil
}

// runExit runs the calling core's exit-handler table, and (Core7 only) the
// shared mcu_exit table afterward, per spec §4.4 step 5.
func (k *Kernel) runExit(core Core) {
	k.cfg.exitHandlers[core.index()].runAll()
	if core == Core7 {
		k.cfg.mcuExit.runAll()
	}
}

// Shutdown runs the coordinated shutdown protocol from spec §4.4: it sets
// the calling core's shutdown flag, wakes the peer, spins until the peer's
// flag is also set, runs this core's exit handlers (and, on Core7, the
// shared mcu_exit table), then parks forever — the Go analogue of setting
// SLEEPDEEP and looping on WFE. Shutdown does not return.
func (k *Kernel) Shutdown(ctx context.Context) error {
	core, err := GetCore(ctx)
	if err != nil {
		return err
	}
	first := k.shutdown.begin(core)
	k.shutdown.awaitPeer(core)
	if first {
		k.runExit(core)
	}
	k.parkForever()
	return nil
}

// parkForever blocks the calling goroutine permanently, modeling the
// terminal "set SLEEPDEEP, fence, loop on WFE forever" sequence.
func (k *Kernel) parkForever() {
	dsb()
	isb()
	select {}
}

// Restart is the single-core-visible alternative to Shutdown: it does not
// coordinate with the peer core at all, modeling a write to the
// architectural reset-request register followed by spinning on WFE until
// reset latches. Restart does not return.
func (k *Kernel) Restart(ctx context.Context) error {
	if _, err := GetCore(ctx); err != nil {
		return err
	}
	dsb()
	for {
		wfe()
	}
}

// SysSleep issues a WFI, but only if the calling core is not currently
// inside a critical section — sleeping with interrupts masked would defeat
// the wake, per spec §4.4.
func (k *Kernel) SysSleep(ctx context.Context) error {
	core, err := GetCore(ctx)
	if err != nil {
		return err
	}
	if k.critical[core.index()].IsCritical() {
		return nil
	}
	wfi()
	return nil
}
