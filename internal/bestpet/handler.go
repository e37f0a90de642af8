package bestpet

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"serenyx/internal/identity"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/httputil"
	"serenyx/pkg/requestcontext"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/bestpet", func(r chi.Router) {
		r.Get("/leaderboard", h.handleLeaderboard)
		r.Post("/vote", h.handleVote)
	})
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	tallies, err := h.service.Leaderboard(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "leaderboard load failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": tallies})
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

	tally, err := h.service.Vote(ctx, sub, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, tally)
}
