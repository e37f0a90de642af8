package users

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"serenyx/internal/identity"
	"serenyx/internal/pets"
	"serenyx/internal/soundscapes"
	"serenyx/internal/voting"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/httputil"
	"serenyx/pkg/requestcontext"
)

// The lister interfaces narrow the sibling services to the single call each
// convenience endpoint makes, keeping this package off their full surface.
type PetLister interface {
	List(ctx context.Context, sub identity.Subject) ([]pets.Pet, error)
}

type SoundscapeLister interface {
	List(ctx context.Context, sub identity.Subject) ([]soundscapes.Soundscape, error)
}

type VoteLister interface {
	History(ctx context.Context, sub identity.Subject) ([]voting.Vote, error)
}

type Handler struct {
	service     *Service
	pets        PetLister
	soundscapes SoundscapeLister
	votes       VoteLister
	logger      *slog.Logger
}

func NewHandler(service *Service, petLister PetLister, soundscapeLister SoundscapeLister, voteLister VoteLister, logger *slog.Logger) *Handler {
	return &Handler{
		service:     service,
		pets:        petLister,
		soundscapes: soundscapeLister,
		votes:       voteLister,
		logger:      logger,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/profile", h.handleProfile)
		r.Put("/profile", h.handleUpdateProfile)
		r.Get("/stats", h.handleStats)
		r.Get("/pets", h.handlePets)
		r.Get("/soundscapes", h.handleSoundscapes)
		r.Get("/votes", h.handleVotes)
		r.Delete("/account", h.handleDeleteAccount)
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	profile, err := h.service.Profile(ctx, sub)
	if err != nil {
		h.logger.ErrorContext(ctx, "profile load failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", sub.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateProfileRequest](w, r)
	if !ok {
		return
	}

	profile, err := h.service.Update(ctx, sub, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	stats, err := h.service.Stats(ctx, sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handlePets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	owned, err := h.pets.List(ctx, sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"pets":  owned,
		"count": len(owned),
	})
}

func (h *Handler) handleSoundscapes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	owned, err := h.soundscapes.List(ctx, sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"soundscapes": owned,
		"count":       len(owned),
	})
}

func (h *Handler) handleVotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	votes, err := h.votes.History(ctx, sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"votes": votes,
		"count": len(votes),
	})
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.service.Delete(ctx, sub); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":   "Account marked for deletion",
		"timestamp": requestcontext.Now(ctx).UTC(),
	})
}
