package pets

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"serenyx/internal/identity"
	dErrors "serenyx/pkg/domain-errors"
	"serenyx/pkg/platform/httputil"
	"serenyx/pkg/requestcontext"
)

// Handler wires pet endpoints to the pet service.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts pet endpoints on the router. The auth middleware runs
// before these, so a missing subject is an internal wiring error.
func (h *Handler) Register(r chi.Router) {
	r.Route("/pets", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{petID}", h.handleGet)
		r.Put("/{petID}", h.handleUpdate)
		r.Delete("/{petID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	pets, err := h.service.List(ctx, sub)
	if err != nil {
		h.logger.ErrorContext(ctx, "list pets failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", sub.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"pets":  pets,
		"count": len(pets),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	pet, err := h.service.Get(ctx, sub, chi.URLParam(r, "petID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreatePetRequest](w, r)
	if !ok {
		return
	}

	pet, err := h.service.Create(ctx, sub, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "create pet failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", sub.ID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, pet)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdatePetRequest](w, r)
	if !ok {
		return
	}

	pet, err := h.service.Update(ctx, sub, chi.URLParam(r, "petID"), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pet)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sub, ok := identity.FromContext(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	if err := h.service.Delete(ctx, sub, chi.URLParam(r, "petID")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
