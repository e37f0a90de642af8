// Package users implements profile documents keyed by subject id. Profiles
// are created lazily on first read; the insert-if-absent primitive makes
// concurrent first reads converge on one document.
package users

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"serenyx/internal/identity"
	"serenyx/internal/store"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/audit"
	"serenyx/pkg/platform/sentinel"
	"serenyx/pkg/requestcontext"
)

// Profile is one user document, keyed by the subject id.
type Profile struct {
	ID            string         `json:"id"`
	Email         string         `json:"email"`
	EmailVerified bool           `json:"emailVerified"`
	FirstName     string         `json:"firstName,omitempty"`
	LastName      string         `json:"lastName,omitempty"`
	Bio           string         `json:"bio,omitempty"`
	Interests     []string       `json:"interests,omitempty"`
	Preferences   map[string]any `json:"preferences,omitempty"`
	IsDeleted     bool           `json:"isDeleted,omitempty"`
	DeletedAt     string         `json:"deletedAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// UpdateProfileRequest is the PUT /api/users/profile payload.
type UpdateProfileRequest struct {
	FirstName   *string        `json:"firstName,omitempty"`
	LastName    *string        `json:"lastName,omitempty"`
	Bio         *string        `json:"bio,omitempty"`
	Interests   []string       `json:"interests,omitempty"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

func (r UpdateProfileRequest) Validate() error {
	verr := dErrors.New(dErrors.CodeValidation, "invalid profile payload")

	if r.FirstName != nil {
		if l := len(*r.FirstName); l < 1 || l > 50 {
			verr.Add("firstName", "firstName must be between 1 and 50 characters")
		}
	}
	if r.LastName != nil {
		if l := len(*r.LastName); l < 1 || l > 50 {
			verr.Add("lastName", "lastName must be between 1 and 50 characters")
		}
	}
	if r.Bio != nil && len(*r.Bio) > 500 {
		verr.Add("bio", "bio must be at most 500 characters")
	}

	if len(dErrors.Load(verr)) == 0 {
		return nil
	}
	return verr
}

// Stats counts a subject's resources.
type Stats struct {
	Pets        int       `json:"pets"`
	Soundscapes int       `json:"soundscapes"`
	VotesCast   int       `json:"votesCast"`
	Timestamp   time.Time `json:"timestamp"`
}

type Service struct {
	store    store.Store
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(st store.Store, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{store: st, recorder: recorder, logger: logger}
}

// Profile returns the subject's profile, creating it on first access. Two
// concurrent first reads race on insert-if-absent; the loser re-reads the
// winner's document.
func (s *Service) Profile(ctx context.Context, sub identity.Subject) (Profile, error) {
	profile, err := s.load(ctx, sub.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return Profile{}, storeError(err, "load profile")
	}

	now := requestcontext.Now(ctx).UTC()
	fresh := Profile{
		ID:            sub.ID,
		Email:         sub.Email,
		EmailVerified: sub.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	doc, err := store.Marshal(fresh)
	if err != nil {
		return Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode profile document")
	}

	err = s.store.InsertIfAbsent(ctx, store.CollectionUsers, sub.ID, doc)
	switch {
	case err == nil:
		s.recorder.Record(ctx, audit.Event{
			ActorID:  sub.ID,
			Action:   audit.ActionProfileCreated,
			Resource: "users/" + sub.ID,
			Outcome:  audit.OutcomeSuccess,
		})
		return fresh, nil
	case errors.Is(err, sentinel.ErrConflict):
		// Lost the creation race; the other request's document wins.
		profile, err := s.load(ctx, sub.ID)
		if err != nil {
			return Profile{}, storeError(err, "load profile")
		}
		return profile, nil
	default:
		return Profile{}, storeError(err, "create profile")
	}
}

// Update merges the supplied fields into the subject's profile, creating it
// first if this subject has never been seen.
func (s *Service) Update(ctx context.Context, sub identity.Subject, req UpdateProfileRequest) (Profile, error) {
	if _, err := s.Profile(ctx, sub); err != nil {
		return Profile{}, err
	}

	fields := store.Document{"updatedAt": requestcontext.Now(ctx).UTC()}
	if req.FirstName != nil {
		fields["firstName"] = *req.FirstName
	}
	if req.LastName != nil {
		fields["lastName"] = *req.LastName
	}
	if req.Bio != nil {
		fields["bio"] = *req.Bio
	}
	if req.Interests != nil {
		fields["interests"] = req.Interests
	}
	if req.Preferences != nil {
		fields["preferences"] = req.Preferences
	}

	if err := s.store.Update(ctx, store.CollectionUsers, sub.ID, fields); err != nil {
		return Profile{}, storeError(err, "update profile")
	}

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionProfileUpdated,
		Resource: "users/" + sub.ID,
		Outcome:  audit.OutcomeSuccess,
	})
	return s.load(ctx, sub.ID)
}

// Stats counts the subject's pets, soundscapes and cast votes.
func (s *Service) Stats(ctx context.Context, sub identity.Subject) (Stats, error) {
	pets, err := s.store.Query(ctx, store.CollectionPets, store.Query{
		Filters: []store.Filter{store.Eq("ownerId", sub.ID)},
	})
	if err != nil {
		return Stats{}, storeError(err, "count pets")
	}
	soundscapes, err := s.store.Query(ctx, store.CollectionSoundscapes, store.Query{
		Filters: []store.Filter{store.Eq("ownerId", sub.ID)},
	})
	if err != nil {
		return Stats{}, storeError(err, "count soundscapes")
	}
	votes, err := s.store.Query(ctx, store.CollectionVotes, store.Query{
		Filters: []store.Filter{store.Eq("voterId", sub.ID)},
	})
	if err != nil {
		return Stats{}, storeError(err, "count votes")
	}

	return Stats{
		Pets:        len(pets),
		Soundscapes: len(soundscapes),
		VotesCast:   len(votes),
		Timestamp:   requestcontext.Now(ctx).UTC(),
	}, nil
}

// Delete soft-deletes the account: the profile stays for audit continuity
// but reads as deleted.
func (s *Service) Delete(ctx context.Context, sub identity.Subject) error {
	if _, err := s.Profile(ctx, sub); err != nil {
		return err
	}

	now := requestcontext.Now(ctx).UTC()
	err := s.store.Update(ctx, store.CollectionUsers, sub.ID, store.Document{
		"isDeleted": true,
		"deletedAt": now.Format(time.RFC3339),
		"updatedAt": now,
	})
	if err != nil {
		return storeError(err, "delete profile")
	}

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionProfileUpdated,
		Resource: "users/" + sub.ID,
		Outcome:  audit.OutcomeSuccess,
		Details:  map[string]any{"softDeleted": true},
	})
	return nil
}

func (s *Service) load(ctx context.Context, id string) (Profile, error) {
	doc, err := s.store.Get(ctx, store.CollectionUsers, id)
	if err != nil {
		return Profile{}, err
	}
	var profile Profile
	if err := store.Unmarshal(doc, &profile); err != nil {
		return Profile{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode profile document")
	}
	profile.ID = id
	return profile, nil
}

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
