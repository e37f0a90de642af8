// Package health exposes the liveness endpoint. Each registered dependency
// is pinged with a short deadline; one failing dependency degrades the
// response to 503 without hiding the others.
package health

import (
	"context"
	"net/http"
	"time"

	"serenyx/pkg/platform/httputil"
	"serenyx/pkg/requestcontext"
)

const checkTimeout = 2 * time.Second

// Check pings one dependency.
type Check func(ctx context.Context) error

// Handler aggregates dependency checks into one endpoint.
type Handler struct {
	checks map[string]Check
}

func NewHandler() *Handler {
	return &Handler{checks: make(map[string]Check)}
}

// Register adds a named dependency check. Not safe to call once the handler
// is serving.
func (h *Handler) Register(name string, check Check) {
	h.checks[name] = check
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			deps[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[name] = "ok"
	}

	body := map[string]any{
		"status":    "ok",
		"timestamp": requestcontext.Now(r.Context()).UTC().Format(time.RFC3339),
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(deps) > 0 {
		body["dependencies"] = deps
	}
	httputil.WriteJSON(w, status, body)
}
