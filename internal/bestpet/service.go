// Package bestpet implements the simpler best-pet leaderboard: one vote per
// subject per pet per UTC day, tallied per pet. The daily uniqueness key is
// insert-if-absent; the tally mutation runs inside a store transaction that
// re-reads before writing.
package bestpet

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"serenyx/internal/identity"
	"serenyx/internal/platform/metrics"
	"serenyx/internal/store"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/audit"
	"serenyx/pkg/platform/sentinel"
	"serenyx/pkg/requestcontext"
)

// Tally is one pet's leaderboard row.
type Tally struct {
	PetID     string    `json:"petId"`
	Votes     int64     `json:"votes"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// VoteRequest is the POST /api/bestpet/vote payload.
type VoteRequest struct {
	PetID string `json:"petId"`
}

func (r VoteRequest) Validate() error {
	if r.PetID == "" {
		return dErrors.New(dErrors.CodeValidation, "invalid vote payload").
			Add("petId", "petId is required")
	}
	return nil
}

// DayKey is the daily uniqueness key for one (subject, pet) pair.
func DayKey(voterID, petID string, day time.Time) string {
	return voterID + "_" + petID + "_" + day.UTC().Format("2006-01-02")
}

type Service struct {
	store    store.Store
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(st store.Store, recorder *audit.Recorder, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: st, recorder: recorder, metrics: m, logger: logger}
}

// Vote records one leaderboard vote. Duplicate same-day votes conflict; the
// tally increment happens inside a transaction so concurrent voters cannot
// lose updates.
func (s *Service) Vote(ctx context.Context, sub identity.Subject, req VoteRequest) (Tally, error) {
	now := requestcontext.Now(ctx).UTC()
	writeCtx := context.WithoutCancel(ctx)

	key := DayKey(sub.ID, req.PetID, now)
	mark := store.Document{
		"voterId": sub.ID,
		"petId":   req.PetID,
		"date":    now.Format(time.RFC3339),
	}
	if err := s.store.InsertIfAbsent(writeCtx, store.CollectionBestPetDayVotes, key, mark); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			s.recorder.Record(ctx, audit.Event{
				ActorID:  sub.ID,
				Action:   audit.ActionBestPetVoteCast,
				Resource: "bestpet/" + req.PetID,
				Outcome:  audit.OutcomeConflict,
			})
			return Tally{}, dErrors.Wrap(err, dErrors.CodeConflict, "you have already voted for this pet today")
		}
		return Tally{}, storeError(err, "record daily vote")
	}

	var tally Tally
	err := s.store.Transact(writeCtx, func(ctx context.Context, tx store.Tx) error {
		doc, err := tx.Get(ctx, store.CollectionBestPetTallies, req.PetID)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			doc = store.Document{"petId": req.PetID, "votes": int64(0)}
		case err != nil:
			return err
		}

		votes, _ := doc["votes"].(int64)
		if f, ok := doc["votes"].(float64); ok {
			votes = int64(f)
		}
		tally = Tally{PetID: req.PetID, Votes: votes + 1, UpdatedAt: now}

		return tx.Put(ctx, store.CollectionBestPetTallies, req.PetID, store.Document{
			"petId":     req.PetID,
			"votes":     tally.Votes,
			"updatedAt": now.Format(time.RFC3339),
		})
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "tally update failed after daily vote insert",
			"pet_id", req.PetID,
			"voter_id", sub.ID,
			"error", err,
		)
		// Release the daily key so the voter can retry; leaving it would
		// consume the vote without ever reaching the tally.
		if delErr := s.store.Delete(writeCtx, store.CollectionBestPetDayVotes, key); delErr != nil {
			s.logger.ErrorContext(ctx, "daily vote rollback failed",
				"pet_id", req.PetID,
				"voter_id", sub.ID,
				"error", delErr,
			)
		}
		return Tally{}, storeError(err, "update tally")
	}

	s.metrics.BestPetVotesCast.Inc()
	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionBestPetVoteCast,
		Resource: "bestpet/" + req.PetID,
		Outcome:  audit.OutcomeSuccess,
	})
	return tally, nil
}

// Leaderboard returns the top tallies by votes.
func (s *Service) Leaderboard(ctx context.Context) ([]Tally, error) {
	records, err := s.store.Query(ctx, store.CollectionBestPetTallies, store.Query{
		OrderBy: "votes",
		Desc:    true,
		Limit:   100,
	})
	if err != nil {
		return nil, storeError(err, "load leaderboard")
	}

	tallies := make([]Tally, 0, len(records))
	for _, rec := range records {
		var tally Tally
		if err := store.Unmarshal(rec.Doc, &tally); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode tally document")
		}
		tallies = append(tallies, tally)
	}
	return tallies, nil
}

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
