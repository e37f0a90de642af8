package audit_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "serenyx/pkg/platform/audit"
	auditmemory "serenyx/pkg/platform/audit/store/memory"
	auditworker "serenyx/pkg/platform/audit/worker"
	"serenyx/pkg/requestcontext"
)

func TestRecorderEnrichesFromContext(t *testing.T) {
	rec := audit.NewRecorder(8, audit.WithUserAgentParser(func(string) string {
		return "Chrome on Mac"
	}))

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientIP(ctx, "10.0.0.9")
	ctx = requestcontext.WithUserAgent(ctx, "Mozilla/5.0")

	rec.Record(ctx, audit.Event{
		ActorID:  "u1",
		Action:   audit.ActionVoteCast,
		Resource: "voting",
		Outcome:  audit.OutcomeSuccess,
	})

	event := <-rec.Inbox()
	assert.Equal(t, now, event.Timestamp)
	assert.Equal(t, "req-42", event.RequestID)
	assert.Equal(t, "10.0.0.9", event.ClientIP)
	assert.Equal(t, "Chrome on Mac", event.Device)
	assert.Equal(t, audit.CategoryOperations, event.Category)
}

func TestRecorderDropsWhenBufferFull(t *testing.T) {
	dropped := 0
	rec := audit.NewRecorder(1, audit.WithDropCallback(func() { dropped++ }))

	ctx := context.Background()
	rec.Record(ctx, audit.Event{Action: audit.ActionPetCreated})
	rec.Record(ctx, audit.Event{Action: audit.ActionPetCreated})
	rec.Record(ctx, audit.Event{Action: audit.ActionPetCreated})

	// Record never blocked; overflow was counted, not delivered.
	assert.Equal(t, 2, dropped)
	assert.Len(t, rec.Inbox(), 1)
}

func TestWorkerDrainsIntoStore(t *testing.T) {
	rec := audit.NewRecorder(16)
	store := auditmemory.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	w := auditworker.New(store, rec.Inbox(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = w.Run(ctx)
		close(done)
	}()

	for range 3 {
		rec.Record(context.Background(), audit.Event{
			ActorID: "u1",
			Action:  audit.ActionEntrySubmitted,
			Outcome: audit.OutcomeSuccess,
		})
	}

	require.Eventually(t, func() bool {
		events, err := store.ListByActor(context.Background(), "u1")
		return err == nil && len(events) == 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestWorkerFlushesOnShutdown(t *testing.T) {
	rec := audit.NewRecorder(16)
	store := auditmemory.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	w := auditworker.New(store, rec.Inbox(), logger)

	rec.Record(context.Background(), audit.Event{ActorID: "u2", Action: audit.ActionPetDeleted})
	rec.Record(context.Background(), audit.Event{ActorID: "u2", Action: audit.ActionPetDeleted})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, w.Run(ctx), context.Canceled)

	events, err := store.ListByActor(context.Background(), "u2")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestActionCategories(t *testing.T) {
	assert.Equal(t, audit.CategorySecurity, audit.ActionAuthFailed.Category())
	assert.Equal(t, audit.CategoryCompliance, audit.ActionPetDeleted.Category())
	assert.Equal(t, audit.CategoryOperations, audit.ActionVoteCast.Category())
}
