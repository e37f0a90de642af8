// Command server wires the Serenyx backend-for-frontend: JSONB document
// store, Redis rate limiting, the audit pipeline, the ElevenLabs proxy, and
// the chi route tree. Business logic lives in the internal feature packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"serenyx/internal/bestpet"
	"serenyx/internal/gamification"
	"serenyx/internal/health"
	"serenyx/internal/identity"
	"serenyx/internal/pets"
	"serenyx/internal/platform/config"
	"serenyx/internal/platform/device"
	"serenyx/internal/platform/httpserver"
	"serenyx/internal/platform/logger"
	"serenyx/internal/platform/metrics"
	"serenyx/internal/platform/middleware"
	"serenyx/internal/platform/redis"
	"serenyx/internal/soundscapes"
	"serenyx/internal/soundscapes/tts"
	"serenyx/internal/store"
	"serenyx/internal/users"
	"serenyx/internal/voice"
	"serenyx/internal/voting"
	"serenyx/pkg/platform/audit"
	"serenyx/pkg/platform/audit/publisher"
	auditmemory "serenyx/pkg/platform/audit/store/memory"
	auditpostgres "serenyx/pkg/platform/audit/store/postgres"
	"serenyx/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(context.Background(), cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checks := health.NewHandler()

	var st store.Store
	if cfg.Postgres.URL != "" {
		pg, err := store.NewPostgres(ctx, cfg.Postgres.URL, cfg.Postgres.StoreTimeout)
		if err != nil {
			return err
		}
		defer pg.Close()
		checks.Register("store", pg.Health)
		st = pg
		log.Info("document store ready", "backend", "postgres")
	} else {
		st = store.NewInMemory()
		log.Warn("DATABASE_URL not set, documents are in-memory and volatile")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		checks.Register("redis", redisClient.Health)
	}

	auditSink, closeSink, err := buildAuditSink(ctx, cfg.Audit, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer closeSink()

	recorder := audit.NewRecorder(cfg.Audit.BufferSize,
		audit.WithDropCallback(m.AuditEventsDropped.Inc),
		audit.WithUserAgentParser(device.ParseUserAgent),
	)

	blobs, err := soundscapes.NewDiskBlobStore(cfg.TTS.AudioDir)
	if err != nil {
		return err
	}
	ttsClient := tts.NewClient(cfg.TTS)
	if !ttsClient.Configured() {
		log.Warn("ELEVENLABS_API_KEY not set, soundscape generation is disabled")
	}

	verifier := identity.NewJWTVerifier(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	limiter := middleware.NewRateLimiter(redisClient, cfg.RateLimit, log, m, recorder)

	petsService := pets.NewService(st, recorder, log)
	votingService := voting.NewService(st, recorder, m, log)
	bestpetService := bestpet.NewService(st, recorder, m, log)
	usersService := users.NewService(st, recorder, log)
	soundscapesService := soundscapes.NewService(st, blobs, ttsClient, recorder, m, log)
	voiceService := voice.NewService(ttsClient, log)

	gamificationService := gamification.NewService(st, recorder, m, log)
	if err := gamificationService.SeedDefaults(ctx); err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Use(
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.ClientMetadata,
		middleware.Logger(log),
		middleware.Latency(m),
	)

	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	router.Handle("/audio/*", http.StripPrefix("/audio/",
		http.FileServer(http.Dir(blobs.Dir()))))

	router.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", checks)

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Timeout(cfg.Server.RequestTimeout),
				middleware.ContentTypeJSON,
				limiter.Limit,
				middleware.RequireAuth(verifier, log, m, recorder),
			)
			pets.NewHandler(petsService, log).Register(r)
			soundscapes.NewHandler(soundscapesService, log).Register(r)
			voting.NewHandler(votingService, log).Register(r)
			bestpet.NewHandler(bestpetService, log).Register(r)
			users.NewHandler(usersService, petsService, soundscapesService, votingService, log).Register(r)
			gamification.NewHandler(gamificationService, log).Register(r)
			voice.NewHandler(voiceService, log).Register(r)
		})
	})

	srv := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.New(auditSink, recorder.Inbox(), log).Run(ctx)
	})

	g.Go(func() error {
		log.Info("serenyx listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// buildAuditSink picks where the audit trail lands: Postgres when a database
// is configured, otherwise process memory, with optional Kafka fan-out.
func buildAuditSink(ctx context.Context, cfg config.Audit, postgresURL string) (audit.Store, func(), error) {
	closers := []func(){}
	closeAll := func() {
		for _, fn := range closers {
			fn()
		}
	}

	var sink audit.Store
	if postgresURL != "" {
		db, err := sql.Open("postgres", postgresURL)
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, func() { _ = db.Close() })

		pgStore := auditpostgres.New(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sink = pgStore
	} else {
		sink = auditmemory.NewInMemoryStore()
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := publisher.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, kafka.Close)
		sink = audit.Multi(sink, kafka)
	}

	return sink, closeAll, nil
}
