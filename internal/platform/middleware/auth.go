package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"serenyx/internal/identity"
	"serenyx/internal/platform/metrics"
	"serenyx/pkg/platform/audit"
	"serenyx/pkg/requestcontext"
)

// RequireAuth verifies the bearer credential on every request and stores the
// resolved subject in the context. Failures are counted, audited as security
// events and answered with a uniform 401 body.
func RequireAuth(verifier identity.Verifier, logger *slog.Logger, m *metrics.Metrics, recorder *audit.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			credential, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || credential == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				reject(w, r, m, recorder, "missing credential")
				return
			}

			subject, err := verifier.Verify(ctx, credential)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				reject(w, r, m, recorder, "invalid credential")
				return
			}

			next.ServeHTTP(w, r.WithContext(identity.WithSubject(ctx, subject)))
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, m *metrics.Metrics, recorder *audit.Recorder, reason string) {
	m.AuthFailures.Inc()
	recorder.Record(r.Context(), audit.Event{
		Action:   audit.ActionAuthFailed,
		Resource: r.URL.Path,
		Outcome:  audit.OutcomeDenied,
		Details:  map[string]any{"reason": reason},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"Invalid or expired credential"}`))
}
