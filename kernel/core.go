package kernel

import (
	"context"
	"errors"
)

// errNoCoreBound is the cause wrapped into ErrInvalidState when a context
// carries no Core value.
var errNoCoreBound = errors.New("context carries no bound core")

// Core identifies one of the two hardware CPUs. The representation
// (+1 / -1) deliberately matches the tag encoding stored in
// [ExclusiveSection]'s lock word, since the original firmware uses the same
// signed word for both the core identity and the lock owner tag.
type Core int32

const (
	// Core7 is the Cortex-M7 core. It is the only core that runs the shared
	// mcuExit table during shutdown.
	Core7 Core = 1
	// Core4 is the Cortex-M4 core.
	Core4 Core = -1
)

// String returns a human-readable name for the core.
func (c Core) String() string {
	switch c {
	case Core7:
		return "CM7"
	case Core4:
		return "CM4"
	default:
		return "unknown-core"
	}
}

// index returns 0 for Core7 and 1 for Core4, for use indexing per-core
// arrays ([2]T, where T is whatever is being tracked per core).
func (c Core) index() int {
	if c == Core7 {
		return 0
	}
	return 1
}

// other returns the peer of c. Panics if c is not a valid Core, since that
// is always a programmer error in this package (never a runtime condition
// reachable via the public API).
func (c Core) other() Core {
	switch c {
	case Core7:
		return Core4
	case Core4:
		return Core7
	default:
		panic("kernel: invalid core value")
	}
}

// contextKey is an unexported type to avoid collisions with context keys
// from other packages, per the standard context.Context pattern.
type contextKey int

const (
	coreContextKey contextKey = iota
	interruptContextKey
)

// WithCore returns a copy of ctx carrying core as the identity of "the
// calling core" for every kernel operation invoked with the resulting
// context. This stands in for the CPU-ID register read ([GetCore]) the
// original firmware performs in hardware: in this port, core identity is
// explicit, threaded the way [context.Context] threads any other
// request-scoped value.
func WithCore(ctx context.Context, core Core) context.Context {
	return context.WithValue(ctx, coreContextKey, core)
}

// GetCore returns the core bound to ctx by [WithCore]. err is
// [ErrInvalidState] if ctx carries no core, which indicates a goroutine
// called a kernel operation without first establishing which core it is
// playing.
func GetCore(ctx context.Context) (Core, error) {
	core, ok := ctx.Value(coreContextKey).(Core)
	if !ok {
		return 0, wrapError(CodeInvalidState, "get core", errNoCoreBound)
	}
	return core, nil
}

// WithInterrupt returns a copy of ctx marked as executing within a
// simulated interrupt handler, the Go-native analogue of reading the
// interrupt active-status register.
func WithInterrupt(ctx context.Context) context.Context {
	return context.WithValue(ctx, interruptContextKey, true)
}

// IsInterrupt reports whether ctx was derived from [WithInterrupt],
// i.e. whether the calling code is playing the role of an interrupt
// handler rather than application-level (thread) code.
func IsInterrupt(ctx context.Context) bool {
	v, _ := ctx.Value(interruptContextKey).(bool)
	return v
}
