package kernel

import "time"

// config holds the compile-time constants §6 of the specification defines,
// plus the exit-handler tables built at construction time in place of the
// linker-provided arrays (see Design Notes resolution in SPEC_FULL.md §9.5).
type config struct {
	tickFreqHz                 int64
	timeLockAttempts           int
	exclusiveSectionTimeout    time.Duration
	exclusiveSectionAckTimeout time.Duration
	exitHandlers               [2]*ExitHandlers
	mcuExit                    *ExitHandlers
}

// Option configures a [Kernel] constructed via [New], following the same
// functional-options shape as the teacher's LoopOption.
type Option interface {
	apply(*config) error
}

type optionFunc func(*config) error

func (f optionFunc) apply(c *config) error { return f(c) }

// WithTickFrequency sets KERNEL_TICK_FREQ (Hz), the rate at which the tick
// source is expected to call the clock's internal update routine. Defaults
// to 1000 Hz (1ms tick) if unset.
func WithTickFrequency(hz int64) Option {
	return optionFunc(func(c *config) error {
		if hz <= 0 {
			return wrapError(CodeInvalidArg, "tick frequency", errMustBePositive)
		}
		c.tickFreqHz = hz
		return nil
	})
}

// WithTimeLockAttempts sets TIME_LOCK_ATTEMPTS, the bound on seqlock read
// retries before Clock.Now reports a timeout. Defaults to 8 if unset.
func WithTimeLockAttempts(n int) Option {
	return optionFunc(func(c *config) error {
		if n <= 0 {
			return wrapError(CodeInvalidArg, "time lock attempts", errMustBePositive)
		}
		c.timeLockAttempts = n
		return nil
	})
}

// WithExclusiveSectionTimeout sets EXCLUSIVE_SECTION_TIMEOUT, the bound on
// acquiring the cross-core exclusive section. Defaults to 50ms if unset.
func WithExclusiveSectionTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d <= 0 {
			return wrapError(CodeInvalidArg, "exclusive section timeout", errMustBePositive)
		}
		c.exclusiveSectionTimeout = d
		return nil
	})
}

// WithExclusiveSectionAckTimeout sets EXCLUSIVE_SECTION_ACK_TIMEOUT, the
// bound on waiting for the peer core's acknowledgment once the lock is
// acquired. Defaults to 10ms if unset.
func WithExclusiveSectionAckTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) error {
		if d <= 0 {
			return wrapError(CodeInvalidArg, "exclusive section ack timeout", errMustBePositive)
		}
		c.exclusiveSectionAckTimeout = d
		return nil
	})
}

// WithExitHandler registers fn at the end of core's exit-handler table, the
// Go-native replacement for the link-provided kernel_cm7_exit[]/
// kernel_cm4_exit[] arrays: handlers accumulate in registration order and
// run front-to-back during Kernel.Shutdown.
func WithExitHandler(core Core, fn func()) Option {
	return optionFunc(func(c *config) error {
		if fn == nil {
			return wrapError(CodeInvalidArg, "exit handler", errNilHandler)
		}
		c.exitHandlers[core.index()].register(fn)
		return nil
	})
}

// WithMCUExitHandler registers fn at the end of the shared mcu_exit[] table,
// run only on the Core7 shutdown path, after Core7's own exit table.
func WithMCUExitHandler(fn func()) Option {
	return optionFunc(func(c *config) error {
		if fn == nil {
			return wrapError(CodeInvalidArg, "mcu exit handler", errNilHandler)
		}
		c.mcuExit.register(fn)
		return nil
	})
}

// resolveConfig applies opts over the documented defaults.
func resolveConfig(opts []Option) (*config, error) {
	c := &config{
		tickFreqHz:                 1000,
		timeLockAttempts:           8,
		exclusiveSectionTimeout:    50 * time.Millisecond,
		exclusiveSectionAckTimeout: 10 * time.Millisecond,
		exitHandlers:               [2]*ExitHandlers{{}, {}},
		mcuExit:                    &ExitHandlers{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.apply(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}
