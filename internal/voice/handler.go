package voice

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"serenyx/pkg/platform/httputil"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/voice", func(r chi.Router) {
		r.Post("/command", h.handleCommand)
		r.Post("/feedback", h.handleFeedback)
		r.Post("/onboarding", h.handleOnboarding)
		r.Post("/achievement", h.handleAchievement)
		r.Post("/health-reminder", h.handleHealthReminder)
	})
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[CommandRequest](w, r)
	if !ok {
		return
	}

	response := h.service.Command(r.Context(), req)
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"command":  req.Command,
		"response": response,
		"context":  req.Context,
	})
}

func (h *Handler) handleFeedback(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[FeedbackRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Feedback(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[OnboardingRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Onboarding(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"step":    req.Step,
		"message": result.Message,
		"audio":   result.Audio,
		"format":  result.Format,
	})
}

func (h *Handler) handleAchievement(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[AchievementRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.Achievement(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"achievementTitle": req.AchievementTitle,
		"rarity":           req.Rarity,
		"message":          result.Message,
		"audio":            result.Audio,
		"format":           result.Format,
	})
}

func (h *Handler) handleHealthReminder(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.DecodeAndPrepare[HealthReminderRequest](w, r)
	if !ok {
		return
	}

	result, err := h.service.HealthReminder(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"task":    req.Task,
		"time":    req.Time,
		"message": result.Message,
		"audio":   result.Audio,
		"format":  result.Format,
	})
}
