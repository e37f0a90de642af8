package voting

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"serenyx/internal/guard"
	"serenyx/internal/identity"
	"serenyx/internal/platform/metrics"
	"serenyx/internal/store"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/audit"
	"serenyx/pkg/platform/sentinel"
	"serenyx/pkg/requestcontext"
)

var tracer trace.Tracer = otel.Tracer("serenyx/internal/voting")

// ledgerNamespace seeds deterministic document ids. Stable forever: changing
// it would re-open every uniqueness key.
var ledgerNamespace = uuid.MustParse("7f1a6a68-9c1e-4f6b-8c8a-2d5e1b3a9d42")

// EntryID derives the deterministic id enforcing at most one entry per
// (petId, category).
func EntryID(petID, category string) string {
	return uuid.NewSHA1(ledgerNamespace, []byte("entry|"+petID+"|"+category)).String()
}

// VoteID derives the deterministic id enforcing at most one vote per
// (voterId, entryId, UTC day).
func VoteID(voterID, entryID string, day time.Time) string {
	bucket := day.UTC().Format("2006-01-02")
	return uuid.NewSHA1(ledgerNamespace, []byte("vote|"+voterID+"|"+entryID+"|"+bucket)).String()
}

// Service is the contest ledger. All cross-request coordination goes through
// the store's insert-if-absent and atomic-increment primitives; the service
// itself holds no mutable state.
type Service struct {
	store    store.Store
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(st store.Store, recorder *audit.Recorder, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: st, recorder: recorder, metrics: m, logger: logger}
}

// Submit enters a pet into a contest category. The subject must own the pet;
// a foreign pet is a Forbidden, not a NotFound, because the submitter already
// proved the pet exists by naming it.
func (s *Service) Submit(ctx context.Context, sub identity.Subject, req SubmitRequest) (Entry, error) {
	ctx, span := tracer.Start(ctx, "voting.Submit")
	defer span.End()
	span.SetAttributes(
		attribute.String("voting.pet_id", req.PetID),
		attribute.String("voting.category", req.Category),
	)

	petDoc, err := s.store.Get(ctx, store.CollectionPets, req.PetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Entry{}, dErrors.Wrap(err, dErrors.CodeNotFound, "pet not found")
		}
		return Entry{}, storeError(err, "load pet")
	}
	ownerID, _ := petDoc["ownerId"].(string)
	if err := guard.Authorize(sub, ownedID(ownerID)); err != nil {
		s.recorder.Record(ctx, audit.Event{
			ActorID:  sub.ID,
			Action:   audit.ActionAccessDenied,
			Resource: "pets/" + req.PetID,
			Outcome:  audit.OutcomeDenied,
		})
		return Entry{}, dErrors.Wrap(err, dErrors.CodeForbidden, "you can only submit your own pets")
	}

	now := requestcontext.Now(ctx).UTC()
	entry := Entry{
		ID:           EntryID(req.PetID, req.Category),
		PetID:        req.PetID,
		OwnerID:      sub.ID,
		Category:     req.Category,
		Description:  req.Description,
		Achievements: req.Achievements,
		Tags:         req.Tags,
		Votes:        0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	doc, err := store.Marshal(entry)
	if err != nil {
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode entry document")
	}

	// The deterministic id makes the uniqueness check and the write a single
	// atomic operation; two concurrent submissions cannot both pass.
	if err := s.store.InsertIfAbsent(ctx, store.CollectionEntries, entry.ID, doc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.recorder.Record(ctx, audit.Event{
				ActorID:  sub.ID,
				Action:   audit.ActionEntrySubmitted,
				Resource: "entries/" + entry.ID,
				Outcome:  audit.OutcomeConflict,
			})
			return Entry{}, dErrors.Wrap(err, dErrors.CodeConflict, "pet already submitted in this category")
		}
		return Entry{}, storeError(err, "insert entry")
	}

	s.metrics.EntriesSubmitted.Inc()
	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionEntrySubmitted,
		Resource: "entries/" + entry.ID,
		Outcome:  audit.OutcomeSuccess,
		Details:  map[string]any{"petId": req.PetID, "category": req.Category},
	})
	return entry, nil
}

// Vote records one vote for the entry identified by (petId, category); a
// voter gets one vote per entry per UTC day. Order is fixed: resolve entry,
// insert-if-absent the vote, then atomically increment the counter. The
// mutations run on a detached context so a dropped connection cannot leave a
// vote inserted without its increment.
func (s *Service) Vote(ctx context.Context, sub identity.Subject, req VoteRequest) (VoteResult, error) {
	ctx, span := tracer.Start(ctx, "voting.Vote")
	defer span.End()
	span.SetAttributes(
		attribute.String("voting.pet_id", req.PetID),
		attribute.String("voting.category", req.Category),
	)

	entryID := EntryID(req.PetID, req.Category)
	if _, err := s.store.Get(ctx, store.CollectionEntries, entryID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return VoteResult{}, dErrors.Wrap(err, dErrors.CodeNotFound, "pet entry not found in this category")
		}
		return VoteResult{}, storeError(err, "load entry")
	}

	now := requestcontext.Now(ctx).UTC()
	vote := Vote{
		ID:        VoteID(sub.ID, entryID, now),
		VoterID:   sub.ID,
		EntryID:   entryID,
		PetID:     req.PetID,
		Category:  req.Category,
		Reason:    req.Reason,
		CreatedAt: now,
	}
	doc, err := store.Marshal(vote)
	if err != nil {
		return VoteResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode vote document")
	}

	// Detached so client disconnects cannot split the insert from the
	// increment mid-sequence.
	writeCtx := context.WithoutCancel(ctx)

	if err := s.store.InsertIfAbsent(writeCtx, store.CollectionVotes, vote.ID, doc); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.recorder.Record(ctx, audit.Event{
				ActorID:  sub.ID,
				Action:   audit.ActionVoteCast,
				Resource: "entries/" + entryID,
				Outcome:  audit.OutcomeConflict,
			})
			return VoteResult{}, dErrors.Wrap(err, dErrors.CodeConflict, "you have already voted for this pet today")
		}
		return VoteResult{}, storeError(err, "insert vote")
	}

	count, err := s.store.Increment(writeCtx, store.CollectionEntries, entryID, "votes", 1)
	if err != nil {
		// The vote record is durable; the authoritative counter will not
		// match it. Loud log, error to caller.
		s.logger.ErrorContext(ctx, "vote counter increment failed after insert",
			"entry_id", entryID,
			"vote_id", vote.ID,
			"error", err,
		)
		span.RecordError(err)
		return VoteResult{}, storeError(err, "increment vote counter")
	}

	s.metrics.VotesCast.Inc()
	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionVoteCast,
		Resource: "entries/" + entryID,
		Outcome:  audit.OutcomeSuccess,
		Details:  map[string]any{"petId": req.PetID, "category": req.Category},
	})
	return VoteResult{EntryID: entryID, NewVoteCount: count}, nil
}

// ListEntries returns contest entries ordered by votes, optionally narrowed
// to one category and a trailing time window ("weekly", "monthly", "all").
func (s *Service) ListEntries(ctx context.Context, category, timeFrame string) ([]Entry, error) {
	q := store.Query{OrderBy: "votes", Desc: true, Limit: 50}
	if category != "" && category != "all" {
		q.Filters = append(q.Filters, store.Eq("category", category))
	}
	// Timestamps are stored as RFC 3339 strings, so range filters compare
	// lexicographically.
	now := requestcontext.Now(ctx).UTC()
	switch timeFrame {
	case "weekly":
		q.Filters = append(q.Filters, store.Gte("createdAt", now.AddDate(0, 0, -7).Format(time.RFC3339)))
	case "monthly":
		q.Filters = append(q.Filters, store.Gte("createdAt", now.AddDate(0, -1, 0).Format(time.RFC3339)))
	}

	records, err := s.store.Query(ctx, store.CollectionEntries, q)
	if err != nil {
		return nil, storeError(err, "list entries")
	}
	return decodeEntries(records)
}

// History returns the subject's most recent votes.
func (s *Service) History(ctx context.Context, sub identity.Subject) ([]Vote, error) {
	records, err := s.store.Query(ctx, store.CollectionVotes, store.Query{
		Filters: []store.Filter{store.Eq("voterId", sub.ID)},
		OrderBy: "createdAt",
		Desc:    true,
		Limit:   20,
	})
	if err != nil {
		return nil, storeError(err, "list votes")
	}

	votes := make([]Vote, 0, len(records))
	for _, rec := range records {
		var vote Vote
		if err := store.Unmarshal(rec.Doc, &vote); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode vote document")
		}
		vote.ID = rec.ID
		votes = append(votes, vote)
	}
	return votes, nil
}

// Stats summarizes entry and vote totals with a per-category breakdown.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	entries, err := s.store.Query(ctx, store.CollectionEntries, store.Query{})
	if err != nil {
		return Stats{}, storeError(err, "count entries")
	}
	votes, err := s.store.Query(ctx, store.CollectionVotes, store.Query{})
	if err != nil {
		return Stats{}, storeError(err, "count votes")
	}

	byCategory := make(map[string]int)
	for _, rec := range entries {
		if category, ok := rec.Doc["category"].(string); ok {
			byCategory[category]++
		}
	}
	return Stats{
		TotalEntries:  len(entries),
		TotalVotes:    len(votes),
		CategoryStats: byCategory,
		Timestamp:     requestcontext.Now(ctx).UTC(),
	}, nil
}

func decodeEntries(records []store.Record) ([]Entry, error) {
	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		var entry Entry
		if err := store.Unmarshal(rec.Doc, &entry); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode entry document")
		}
		entry.ID = rec.ID
		entries = append(entries, entry)
	}
	return entries, nil
}

// ownedID adapts a bare owner id to guard.Owned.
type ownedID string

func (o ownedID) Owner() string { return string(o) }

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
