package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	RequestDuration    *prometheus.HistogramVec
	EntriesSubmitted   prometheus.Counter
	VotesCast          prometheus.Counter
	BestPetVotesCast   prometheus.Counter
	AuditEventsDropped prometheus.Counter
	AuthFailures       prometheus.Counter
	RateLimitRejected  prometheus.Counter
	TTSRequests        *prometheus.CounterVec
	GamificationEvents *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "serenyx_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
		EntriesSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "serenyx_contest_entries_submitted_total",
			Help: "Total number of contest entries successfully submitted",
		}),
		VotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "serenyx_contest_votes_cast_total",
			Help: "Total number of contest votes successfully recorded",
		}),
		BestPetVotesCast: promauto.NewCounter(prometheus.CounterOpts{
			Name: "serenyx_best_pet_votes_cast_total",
			Help: "Total number of best-pet leaderboard votes recorded",
		}),
		AuditEventsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "serenyx_audit_events_dropped_total",
			Help: "Audit events dropped because the recorder buffer was full",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "serenyx_auth_failures_total",
			Help: "Requests rejected with an invalid or missing credential",
		}),
		RateLimitRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "serenyx_rate_limit_rejected_total",
			Help: "Requests rejected by the per-IP rate limiter",
		}),
		TTSRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "serenyx_tts_requests_total",
			Help: "Outbound text-to-speech API calls by outcome",
		}, []string{"outcome"}),
		GamificationEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "serenyx_gamification_events_total",
			Help: "Achievement unlocks, challenge completions and reward purchases",
		}, []string{"event"}),
	}
}
