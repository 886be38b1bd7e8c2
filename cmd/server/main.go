package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	applicationhandler "ipregistry/internal/application/handler"
	applicationmetrics "ipregistry/internal/application/metrics"
	"ipregistry/internal/application/service"
	"ipregistry/internal/application/store/record"
	"ipregistry/internal/application/store/trail"
	"ipregistry/internal/blob"
	blobhandler "ipregistry/internal/blob/handler"
	"ipregistry/internal/draft"
	drafthandler "ipregistry/internal/draft/handler"
	"ipregistry/internal/identity"
	"ipregistry/internal/notifier"
	notifierhandler "ipregistry/internal/notifier/handler"
	"ipregistry/internal/platform/config"
	"ipregistry/internal/platform/httpserver"
	"ipregistry/internal/platform/logger"
	"ipregistry/internal/platform/metrics"
	"ipregistry/internal/platform/middleware"
	"ipregistry/internal/platform/postgres"
	"ipregistry/internal/platform/redis"
)

const (
	jwtIssuer       = "ipregistry"
	shutdownTimeout = 10 * time.Second
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSigningKey == "" {
		log.Warn("JWT_SIGNING_KEY not set; using the well-known development key, tokens are forgeable")
		cfg.JWTSigningKey = config.DevSigningKey
	}

	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		if err := postgres.Migrate(context.Background(), db); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	} else {
		log.Warn("POSTGRES_URL not set; using in-memory stores")
	}

	rdb, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Warn("REDIS_URL not set; drafts held in process memory")
	}

	// Lifecycle engine over record + audit stores, with the in-process
	// broker feeding live subscribers and an optional Kafka mirror.
	var (
		records service.RecordStore
		entries service.TrailStore
		storeTx service.StoreTx
	)
	if db != nil {
		records = record.NewPostgres(db)
		entries = trail.NewPostgres(db)
		storeTx = newApplicationPostgresTx(db)
	} else {
		records = record.NewMemory()
		entries = trail.NewMemory()
		storeTx = service.NewMemoryTx()
	}

	broker := notifier.NewMemoryBroker(log)
	defer broker.Close()

	sinks := []notifier.Publisher{broker}
	mirror, err := notifier.NewKafkaMirror(cfg.KafkaBrokers, cfg.KafkaTopic, log)
	if err != nil {
		log.Error("kafka mirror init failed", "error", err)
		os.Exit(1)
	}
	if mirror != nil {
		defer mirror.Close()
		sinks = append(sinks, mirror)
	}

	engine := service.New(
		records,
		entries,
		storeTx,
		notifier.MultiPublisher(sinks...),
		log,
		applicationmetrics.New(),
		cfg.TransitionRetries,
	)

	var draftStore draft.Store
	if rdb != nil {
		draftStore = draft.NewRedisStore(rdb.Client, cfg.DraftTTL)
	} else {
		draftStore = draft.NewMemoryStore()
	}
	drafts := draft.NewService(draftStore, log, cfg.DraftDebounce)

	documents := blob.NewMemoryStore()
	resolver := identity.NewJWTResolver(cfg.JWTSigningKey, jwtIssuer)

	httpMetrics := metrics.New()
	router := chi.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(log))
	router.Use(middleware.Latency(httpMetrics))

	applicationhandler.New(engine, resolver, log).Register(router)
	notifierhandler.New(broker, resolver, log).Register(router)
	drafthandler.New(drafts, resolver, log).Register(router)
	blobhandler.New(documents, resolver, log).Register(router)

	router.Get("/healthz", healthHandler(db, rdb))
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting ipregistry", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}

		// Debounced autosaves still in flight get one last write.
		drafts.Flush(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// healthHandler reports liveness plus the state of optional backing stores.
func healthHandler(db *sql.DB, rdb *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		checks := map[string]string{"server": "ok"}

		if db != nil {
			checks["postgres"] = "ok"
			if err := db.PingContext(ctx); err != nil {
				checks["postgres"] = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Health(ctx); err != nil {
				checks["redis"] = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(checks)
	}
}
