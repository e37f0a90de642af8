package voting

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"serenyx/internal/identity"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/httputil"
	"serenyx/pkg/requestcontext"
)

// Handler wires contest endpoints to the ledger service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/voting", func(r chi.Router) {
		r.Get("/", h.handleListEntries)
		r.Post("/submit", h.handleSubmit)
		r.Post("/vote", h.handleVote)
		r.Get("/history", h.handleHistory)
		r.Get("/stats", h.handleStats)
	})
}

func (h *Handler) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListEntries(r.Context(), r.URL.Query().Get("category"), r.URL.Query().Get("timeFrame"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r)
	if !ok {
		return
	}

	entry, err := h.service.Submit(ctx, sub, req)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeConflict) {
			h.logger.WarnContext(ctx, "submission rejected",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", sub.ID,
				"pet_id", req.PetID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[VoteRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Vote(ctx, sub, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "Vote recorded successfully",
		"entryId":      result.EntryID,
		"newVoteCount": result.NewVoteCount,
	})
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	votes, err := h.service.History(ctx, sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"votes": votes,
		"count": len(votes),
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
