package gamification

import (
	"log/slog"
	"net/http"
	"strconv"

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
	r.Route("/gamification", func(r chi.Router) {
		r.Get("/achievements", h.handleListAchievements)
		r.Get("/achievements/me", h.handleUserAchievements)
		r.Post("/achievements/unlock", h.handleUnlock)
		r.Get("/rewards", h.handleListRewards)
		r.Get("/rewards/me", h.handleUserRewards)
		r.Post("/rewards/purchase", h.handlePurchase)
		r.Get("/challenges", h.handleListChallenges)
		r.Post("/challenges/complete", h.handleComplete)
		r.Get("/leaderboard", h.handleLeaderboard)
		r.Get("/progress", h.handleProgress)
		r.Post("/experience", h.handleAddExperience)
	})
}

func (h *Handler) handleListAchievements(w http.ResponseWriter, r *http.Request) {
	achievements, err := h.service.ListAchievements(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"achievements": achievements,
		"count":        len(achievements),
	})
}

func (h *Handler) handleUserAchievements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	achievements, err := h.service.UserAchievements(ctx, sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"achievements": achievements,
		"count":        len(achievements),
	})
}

func (h *Handler) handleUnlock(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UnlockRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Unlock(ctx, sub, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "achievement unlock failed",
			"request_id", requestcontext.RequestID(ctx),
			"achievement_id", req.AchievementID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListRewards(w http.ResponseWriter, r *http.Request) {
	rewards, err := h.service.ListRewards(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"rewards": rewards,
		"count":   len(rewards),
	})
}

func (h *Handler) handleUserRewards(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	rewards, err := h.service.UserRewards(ctx, sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"rewards": rewards,
		"count":   len(rewards),
	})
}

func (h *Handler) handlePurchase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[PurchaseRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Purchase(ctx, sub, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.service.ListChallenges(r.Context(),
		r.URL.Query().Get("type"),
		r.URL.Query().Get("category"),
	)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"challenges": challenges,
		"count":      len(challenges),
	})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Complete(ctx, sub, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	category := r.URL.Query().Get("category")

	rows, err := h.service.Leaderboard(r.Context(), category, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if category == "" {
		category = "overall"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"leaderboard": rows,
		"count":       len(rows),
		"category":    category,
	})
}

func (h *Handler) handleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	progress, err := h.service.Progress(ctx, sub)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"progress": progress})
}

func (h *Handler) handleAddExperience(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[AddExperienceRequest](w, r)
	if !ok {
		return
	}

	grant, err := h.service.AddExperience(ctx, sub, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, grant)
}
