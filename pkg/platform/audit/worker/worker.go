// Package worker drains the audit recorder's buffer into a store on a
// background goroutine, keeping persistence off the request path.
package worker

import (
	"context"
	"log/slog"

	audit "serenyx/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Store
// failures are logged and swallowed; the trail is best-effort and a failing
// sink must never stop the drain loop.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func New(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run drains the inbox until ctx is cancelled. Remaining buffered events are
// flushed before returning so a graceful shutdown does not discard them.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return ctx.Err()
		case event := <-w.inbox:
			w.append(event)
		}
	}
}

func (w *Worker) flush() {
	for {
		select {
		case event := <-w.inbox:
			w.append(event)
		default:
			return
		}
	}
}

func (w *Worker) append(event audit.Event) {
	// Detached context: the request that produced the event may be gone.
	if err := w.store.Append(context.Background(), event); err != nil {
		w.logger.Warn("audit append failed",
			"action", event.Action,
			"error", err,
		)
	}
}
