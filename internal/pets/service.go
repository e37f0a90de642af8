package pets

import (
	"context"
	"errors"
	"log/slog"

	"serenyx/internal/guard"
	"serenyx/internal/identity"
	"serenyx/internal/store"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/audit"
	"serenyx/pkg/platform/sentinel"
	"serenyx/pkg/requestcontext"
)

// Service orchestrates pet CRUD: ownership checks, persistence and audit.
type Service struct {
	store    store.Store
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewService(st store.Store, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{store: st, recorder: recorder, logger: logger}
}

// List returns every pet owned by the subject.
func (s *Service) List(ctx context.Context, sub identity.Subject) ([]Pet, error) {
	records, err := s.store.Query(ctx, store.CollectionPets, store.Query{
		Filters: []store.Filter{store.Eq("ownerId", sub.ID)},
		OrderBy: "createdAt",
		Desc:    true,
	})
	if err != nil {
		return nil, storeError(err, "list pets")
	}

	pets := make([]Pet, 0, len(records))
	for _, rec := range records {
		var pet Pet
		if err := store.Unmarshal(rec.Doc, &pet); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode pet document")
		}
		pet.ID = rec.ID
		pets = append(pets, pet)
	}
	return pets, nil
}

// Get returns one pet. A pet owned by someone else reads as NotFound so
// existence never leaks across accounts.
func (s *Service) Get(ctx context.Context, sub identity.Subject, petID string) (Pet, error) {
	return s.fetchOwned(ctx, sub, petID)
}

// Create persists a new pet owned by the subject.
func (s *Service) Create(ctx context.Context, sub identity.Subject, req CreatePetRequest) (Pet, error) {
	now := requestcontext.Now(ctx).UTC()
	pet := Pet{
		OwnerID:     sub.ID,
		Name:        req.Name,
		Type:        req.Type,
		Breed:       req.Breed,
		Age:         req.Age,
		Weight:      req.Weight,
		BirthDate:   req.BirthDate,
		Photos:      req.Photos,
		Preferences: req.Preferences,
		HealthNotes: req.HealthNotes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	doc, err := store.Marshal(pet)
	if err != nil {
		return Pet{}, dErrors.Wrap(err, dErrors.CodeInternal, "encode pet document")
	}
	delete(doc, "id")

	id, err := s.store.Insert(ctx, store.CollectionPets, doc)
	if err != nil {
		return Pet{}, storeError(err, "create pet")
	}
	pet.ID = id

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionPetCreated,
		Resource: "pets/" + id,
		Outcome:  audit.OutcomeSuccess,
	})
	return pet, nil
}

// Update merges the supplied fields into an owned pet.
func (s *Service) Update(ctx context.Context, sub identity.Subject, petID string, req UpdatePetRequest) (Pet, error) {
	if _, err := s.fetchOwned(ctx, sub, petID); err != nil {
		return Pet{}, err
	}

	fields := req.fields()
	fields["updatedAt"] = requestcontext.Now(ctx).UTC()
	if err := s.store.Update(ctx, store.CollectionPets, petID, fields); err != nil {
		return Pet{}, storeError(err, "update pet")
	}

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionPetUpdated,
		Resource: "pets/" + petID,
		Outcome:  audit.OutcomeSuccess,
	})
	return s.fetchOwned(ctx, sub, petID)
}

// Delete removes an owned pet.
func (s *Service) Delete(ctx context.Context, sub identity.Subject, petID string) error {
	if _, err := s.fetchOwned(ctx, sub, petID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionPets, petID); err != nil {
		return storeError(err, "delete pet")
	}

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionPetDeleted,
		Resource: "pets/" + petID,
		Outcome:  audit.OutcomeSuccess,
	})
	return nil
}

// fetchOwned loads a pet and applies the masked ownership check.
func (s *Service) fetchOwned(ctx context.Context, sub identity.Subject, petID string) (Pet, error) {
	doc, err := s.store.Get(ctx, store.CollectionPets, petID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Pet{}, dErrors.Wrap(err, dErrors.CodeNotFound, "pet not found")
		}
		return Pet{}, storeError(err, "load pet")
	}

	var pet Pet
	if err := store.Unmarshal(doc, &pet); err != nil {
		return Pet{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode pet document")
	}
	pet.ID = petID

	if err := guard.AuthorizeMasked(sub, pet); err != nil {
		return Pet{}, err
	}
	return pet, nil
}

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
