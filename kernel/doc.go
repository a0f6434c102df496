// Package kernel implements the coordination core of a dual-core embedded
// flight-computer runtime: a monotonic microsecond clock, per-core critical
// sections, a cross-core exclusive section with an anti-deadlock
// acknowledgment handshake, and a two-core shutdown rendezvous.
//
// # Cores
//
// The original firmware runs on two physical CPUs, CM7 and CM4, each with
// its own interrupt controller and stack. This port has no hardware cores to
// schedule onto, so a "core" is whichever goroutine currently carries a
// [Core] value in its [context.Context] (see [WithCore], [GetCore]).
// The [sim] package supplies the goroutines that play CM7 and CM4.
//
// # Architecture
//
// [Kernel] aggregates one [Clock], two [CriticalSection] values (one per
// core), one [ExclusiveSection], and one [Shutdown] coordinator. It is
// constructed once via [New] and is safe for concurrent use from any
// context, including the goroutine that plays the tick interrupt.
//
// # Error Types
//
// All fallible operations return a Go error wrapping a [Code] from the
// enumeration in §6/§7 of the coordination-core specification:
// [CodeInvalidArg], [CodeInvalidState], [CodeTimeout], [CodeOverflow],
// [CodeInternal], [CodeBusy]. Use [errors.Is] against the matching sentinel
// ([ErrInvalidArg], [ErrInvalidState], [ErrTimeout], [ErrOverflow],
// [ErrInternal], [ErrBusy]) or [AsError] to recover the [Code].
//
// # Non-goals
//
// Thread scheduling policy, memory allocation, peripheral drivers, and
// interrupt-controller bit layout are out of scope; the package never logs —
// that is left to collaborator layers such as [sim].
package kernel
