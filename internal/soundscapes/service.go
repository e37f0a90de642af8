package soundscapes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"serenyx/internal/guard"
	"serenyx/internal/identity"
	"serenyx/internal/platform/metrics"
	"serenyx/internal/soundscapes/tts"
	"serenyx/internal/store"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/audit"
	"serenyx/pkg/platform/sentinel"
	"serenyx/pkg/requestcontext"
)

// Synthesizer is the text-to-speech boundary the generate flow depends on.
type Synthesizer interface {
	Configured() bool
	Synthesize(ctx context.Context, text, voiceID, modelID string) ([]byte, error)
	Voices(ctx context.Context) ([]tts.Voice, error)
}

// Service orchestrates soundscape CRUD, the public listing, and generation.
type Service struct {
	store    store.Store
	blobs    BlobStore
	tts      Synthesizer
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

func NewService(st store.Store, blobs BlobStore, synth Synthesizer, recorder *audit.Recorder, m *metrics.Metrics, logger *slog.Logger) *Service {
	return &Service{store: st, blobs: blobs, tts: synth, recorder: recorder, metrics: m, logger: logger}
}

// List returns every soundscape owned by the subject.
func (s *Service) List(ctx context.Context, sub identity.Subject) ([]Soundscape, error) {
	records, err := s.store.Query(ctx, store.CollectionSoundscapes, store.Query{
		Filters: []store.Filter{store.Eq("ownerId", sub.ID)},
		OrderBy: "createdAt",
		Desc:    true,
	})
	if err != nil {
		return nil, storeError(err, "list soundscapes")
	}
	return decode(records)
}

// Public lists public soundscapes; no subject required. This is the explicit
// alternate path that bypasses the ownership guard via the isPublic flag.
func (s *Service) Public(ctx context.Context, category string, limit int) ([]Soundscape, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := store.Query{
		Filters: []store.Filter{store.Eq("isPublic", true)},
		OrderBy: "createdAt",
		Desc:    true,
		Limit:   limit,
	}
	if category != "" && category != "all" {
		q.Filters = append(q.Filters, store.Eq("category", category))
	}

	records, err := s.store.Query(ctx, store.CollectionSoundscapes, q)
	if err != nil {
		return nil, storeError(err, "list public soundscapes")
	}
	return decode(records)
}

// Get returns one owned soundscape; foreign ones read as NotFound.
func (s *Service) Get(ctx context.Context, sub identity.Subject, id string) (Soundscape, error) {
	return s.fetchOwned(ctx, sub, id)
}

// Create persists a new soundscape owned by the subject.
func (s *Service) Create(ctx context.Context, sub identity.Subject, req CreateSoundscapeRequest) (Soundscape, error) {
	now := requestcontext.Now(ctx).UTC()
	sc := Soundscape{
		OwnerID:     sub.ID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Duration:    req.Duration,
		Tags:        req.Tags,
		IsPublic:    req.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.insert(ctx, sc)
	if err != nil {
		return Soundscape{}, err
	}
	sc.ID = id

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionSoundscapeCreated,
		Resource: "soundscapes/" + id,
		Outcome:  audit.OutcomeSuccess,
	})
	return sc, nil
}

// Generate synthesizes audio from text, stores it, and persists a custom
// soundscape referencing the stored file. No document is written when the
// synthesis or the blob write fails.
func (s *Service) Generate(ctx context.Context, sub identity.Subject, req GenerateRequest) (Soundscape, error) {
	audio, err := s.tts.Synthesize(ctx, req.Text, req.VoiceID, req.ModelID)
	if err != nil {
		s.metrics.TTSRequests.WithLabelValues("error").Inc()
		return Soundscape{}, err
	}
	s.metrics.TTSRequests.WithLabelValues("success").Inc()

	now := requestcontext.Now(ctx).UTC()
	audioName := fmt.Sprintf("%s/%d.mp3", sub.ID, now.UnixNano())
	audioURL, err := s.blobs.Save(ctx, audioName, audio)
	if err != nil {
		return Soundscape{}, dErrors.Wrap(err, dErrors.CodeInternal, "store generated audio")
	}

	preview := req.Text
	// Truncate on a rune boundary; byte slicing could split a UTF-8 sequence.
	if runes := []rune(preview); len(runes) > 100 {
		preview = string(runes[:100])
	}
	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = tts.DefaultVoiceID
	}
	modelID := req.ModelID
	if modelID == "" {
		modelID = tts.DefaultModelID
	}

	sc := Soundscape{
		OwnerID:     sub.ID,
		Name:        "Generated Soundscape - " + now.Format(time.RFC1123),
		Description: fmt.Sprintf("AI-generated soundscape from text: %q", preview),
		Category:    CategoryCustom,
		Duration:    0,
		IsPublic:    false,
		AudioURL:    audioURL,
		AudioName:   audioName,
		Text:        req.Text,
		VoiceID:     voiceID,
		ModelID:     modelID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.insert(ctx, sc)
	if err != nil {
		return Soundscape{}, err
	}
	sc.ID = id

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionSoundscapeGenerated,
		Resource: "soundscapes/" + id,
		Outcome:  audit.OutcomeSuccess,
		Details:  map[string]any{"voiceId": voiceID, "textLength": len(req.Text)},
	})
	return sc, nil
}

// Voices proxies the available synthesis voices.
func (s *Service) Voices(ctx context.Context) ([]tts.Voice, error) {
	voices, err := s.tts.Voices(ctx)
	if err != nil {
		s.metrics.TTSRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.TTSRequests.WithLabelValues("success").Inc()
	return voices, nil
}

// Update merges supplied fields into an owned soundscape.
func (s *Service) Update(ctx context.Context, sub identity.Subject, id string, req UpdateSoundscapeRequest) (Soundscape, error) {
	if _, err := s.fetchOwned(ctx, sub, id); err != nil {
		return Soundscape{}, err
	}

	fields := req.fields()
	fields["updatedAt"] = requestcontext.Now(ctx).UTC()
	if err := s.store.Update(ctx, store.CollectionSoundscapes, id, fields); err != nil {
		return Soundscape{}, storeError(err, "update soundscape")
	}

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionSoundscapeUpdated,
		Resource: "soundscapes/" + id,
		Outcome:  audit.OutcomeSuccess,
	})
	return s.fetchOwned(ctx, sub, id)
}

// Delete removes an owned soundscape and, best effort, its stored audio.
func (s *Service) Delete(ctx context.Context, sub identity.Subject, id string) error {
	sc, err := s.fetchOwned(ctx, sub, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, store.CollectionSoundscapes, id); err != nil {
		return storeError(err, "delete soundscape")
	}

	if sc.AudioName != "" {
		if err := s.blobs.Delete(ctx, sc.AudioName); err != nil {
			s.logger.WarnContext(ctx, "audio blob cleanup failed",
				"soundscape_id", id,
				"audio_name", sc.AudioName,
				"error", err,
			)
		}
	}

	s.recorder.Record(ctx, audit.Event{
		ActorID:  sub.ID,
		Action:   audit.ActionSoundscapeDeleted,
		Resource: "soundscapes/" + id,
		Outcome:  audit.OutcomeSuccess,
	})
	return nil
}

func (s *Service) insert(ctx context.Context, sc Soundscape) (string, error) {
	doc, err := store.Marshal(sc)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "encode soundscape document")
	}
	delete(doc, "id")

	id, err := s.store.Insert(ctx, store.CollectionSoundscapes, doc)
	if err != nil {
		return "", storeError(err, "insert soundscape")
	}
	return id, nil
}

func (s *Service) fetchOwned(ctx context.Context, sub identity.Subject, id string) (Soundscape, error) {
	doc, err := s.store.Get(ctx, store.CollectionSoundscapes, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return Soundscape{}, dErrors.Wrap(err, dErrors.CodeNotFound, "soundscape not found")
		}
		return Soundscape{}, storeError(err, "load soundscape")
	}

	var sc Soundscape
	if err := store.Unmarshal(doc, &sc); err != nil {
		return Soundscape{}, dErrors.Wrap(err, dErrors.CodeInternal, "decode soundscape document")
	}
	sc.ID = id

	if err := guard.AuthorizeMasked(sub, sc); err != nil {
		return Soundscape{}, err
	}
	return sc, nil
}

func decode(records []store.Record) ([]Soundscape, error) {
	out := make([]Soundscape, 0, len(records))
	for _, rec := range records {
		var sc Soundscape
		if err := store.Unmarshal(rec.Doc, &sc); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decode soundscape document")
		}
		sc.ID = rec.ID
		out = append(out, sc)
	}
	return out, nil
}

func storeError(err error, msg string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
