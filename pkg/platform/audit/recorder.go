package audit

import (
	"context"

	"serenyx/pkg/requestcontext"
)

// Recorder accepts events from request handlers and hands them to the worker
// through a bounded channel. Record never blocks: when the buffer is full the
// event is dropped and the drop callback invoked, so audit latency or failure
// can never sit on the response path.
type Recorder struct {
	inbox   chan Event
	onDrop  func()
	parseUA func(string) string
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithDropCallback is invoked once per dropped event (metrics hook).
func WithDropCallback(fn func()) RecorderOption {
	return func(r *Recorder) { r.onDrop = fn }
}

// WithUserAgentParser sets the function that turns a raw User-Agent header
// into a display name for the Device field.
func WithUserAgentParser(fn func(string) string) RecorderOption {
	return func(r *Recorder) { r.parseUA = fn }
}

// NewRecorder builds a Recorder with the given buffer capacity.
func NewRecorder(capacity int, opts ...RecorderOption) *Recorder {
	if capacity <= 0 {
		capacity = 256
	}
	r := &Recorder{inbox: make(chan Event, capacity)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Inbox exposes the read side of the buffer for the worker.
func (r *Recorder) Inbox() <-chan Event { return r.inbox }

// Record enriches the event from request context and enqueues it.
// Fire-and-forget: no error is ever returned to the caller.
func (r *Recorder) Record(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" && r.parseUA != nil {
		if ua := requestcontext.UserAgent(ctx); ua != "" {
			event.Device = r.parseUA(ua)
		}
	}

	select {
	case r.inbox <- event:
	default:
		if r.onDrop != nil {
			r.onDrop()
		}
	}
}
