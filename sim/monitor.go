package sim

import (
	"context"
	"errors"
	"io"

	"github.com/joeycumines/go-longpoll"
)

// Event is one telemetry record produced by the harness's core goroutines
// and the kernel's own background daemons, queued for batched delivery to a
// [Logger] by [Monitor].
type Event struct {
	Level    LogLevel
	Category string
	Core     string
	Message  string
	Err      error
}

// Monitor batches [Event] values arriving on a channel and flushes them to a
// [Logger] a handful at a time, rather than incurring a log write per event.
// It is grounded on [github.com/joeycumines/go-longpoll.Channel]'s batching
// receive loop (see longpoll/channel.go and its ExampleChannel), the same
// way the teacher package's I/O-polling layer coalesces repeated readiness
// notifications.
type Monitor struct {
	events chan Event
	logger Logger
	cfg    *longpoll.ChannelConfig
}

// NewMonitor creates a Monitor that buffers up to bufSize pending events and
// flushes batches to logger according to cfg (nil selects longpoll's
// documented defaults: up to 16 events per flush, waiting for at least 4
// or a 50ms partial timeout).
func NewMonitor(logger Logger, bufSize int, cfg *longpoll.ChannelConfig) *Monitor {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	if bufSize <= 0 {
		bufSize = 64
	}
	return &Monitor{
		events: make(chan Event, bufSize),
		logger: logger,
		cfg:    cfg,
	}
}

// Emit enqueues an event for batched delivery. Non-blocking: if the buffer
// is full, the event is dropped and a synchronous warning is logged instead,
// since telemetry must never be allowed to backpressure the kernel's own
// goroutines.
func (m *Monitor) Emit(ev Event) {
	select {
	case m.events <- ev:
	default:
		m.logger.Log(LogEntry{
			Level:    LevelWarn,
			Category: "monitor",
			Message:  "telemetry buffer full, dropped event from " + ev.Category,
		})
	}
}

// Run drains the event channel in batches until ctx is canceled. It returns
// nil on context cancellation (the expected shutdown path), or an error from
// the underlying [longpoll.Channel] call for anything else.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		err := longpoll.Channel(ctx, m.cfg, m.events, func(ev Event) error {
			m.logger.Log(LogEntry{
				Level:    ev.Level,
				Category: ev.Category,
				Core:     ev.Core,
				Message:  ev.Message,
				Err:      ev.Err,
			})
			return nil
		})
		switch {
		case err == nil:
			continue
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case errors.Is(err, io.EOF):
			return nil
		default:
			return err
		}
	}
}
