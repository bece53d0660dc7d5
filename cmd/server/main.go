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

	"caretrail/internal/gateway"
	"caretrail/internal/integrity"
	jwttoken "caretrail/internal/jwt_token"
	"caretrail/internal/platform/config"
	"caretrail/internal/platform/httpserver"
	"caretrail/internal/platform/kafka"
	"caretrail/internal/platform/logger"
	"caretrail/internal/platform/metrics"
	platformredis "caretrail/internal/platform/redis"
	"caretrail/internal/verification/geofence"
	"caretrail/internal/verification/timing"
	"caretrail/internal/visit/engine"
	"caretrail/internal/visit/handler"
	"caretrail/internal/visit/store"
	"caretrail/pkg/platform/audit"
	auditmem "caretrail/pkg/platform/audit/store/memory"
	auditpg "caretrail/pkg/platform/audit/store/postgres"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	// Persistence. Without DATABASE_URL everything runs in memory, which is
	// enough for local development but loses state on restart.
	var (
		db         *sql.DB
		visitStore store.Store
		auditStore audit.Store
	)
	if cfg.DatabaseURL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		pgStore := store.NewPostgresStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			return err
		}
		visitStore = pgStore
		auditStore = auditpg.New(db)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory stores")
		visitStore = store.NewInMemoryStore()
		auditStore = auditmem.NewInMemoryStore()
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Upstream gateways are optional: without them check-in only works for
	// visits that already exist in the store.
	var scheduling gateway.Scheduling
	if cfg.Gateways.SchedulingURL != "" {
		scheduling = gateway.NewSchedulingHTTP(
			cfg.Gateways.SchedulingURL, cfg.Gateways.SchedulingAPIKey, cfg.Gateways.Timeout)
	}
	var caregivers gateway.CaregiverRegistry
	if cfg.Gateways.CaregiverURL != "" {
		registry := gateway.NewCaregiverHTTP(
			cfg.Gateways.CaregiverURL, cfg.Gateways.CaregiverAPIKey, cfg.Gateways.Timeout)
		if redisClient != nil {
			caregivers = gateway.NewCachedCaregiverRegistry(
				registry, redisClient.Client, config.CaregiverCacheTTL, log)
		} else {
			caregivers = registry
		}
	}

	reconciler, err := timing.NewReconciler(
		cfg.Verification.Timezone,
		cfg.Verification.VarianceMinutes,
		cfg.Verification.VariancePercent,
	)
	if err != nil {
		return err
	}

	eng := engine.New(
		visitStore,
		geofence.NewValidator(cfg.Verification.DefaultGeofenceRadiusMeters),
		reconciler,
		integrity.NewHasher(cfg.Verification.IntegritySecret),
		scheduling,
		caregivers,
		audit.NewPublisher(auditStore),
		log,
		m,
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "caretrail", "caretrail-evv")

	router := chi.NewRouter()
	handler.New(eng, log, m, jwtService).Register(router)
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting caretrail", "addr", cfg.Addr)
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

	// The sweep advances checked-in visits whose scheduled window has opened
	// and settles anything still sitting in CHECKED_OUT.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				report, err := eng.Sweep(ctx, now)
				if err != nil {
					log.WarnContext(ctx, "sweep failed", "error", err)
					continue
				}
				if report.Advanced+report.Verified+report.Flagged+report.Errors > 0 {
					log.InfoContext(ctx, "sweep completed",
						"advanced", report.Advanced,
						"verified", report.Verified,
						"flagged", report.Flagged,
						"errors", report.Errors,
					)
				}
			}
		}
	})

	// The outbox relay needs both the database (outbox table) and a broker.
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
	if err != nil {
		return err
	}
	if producer != nil && db != nil {
		defer producer.Close()
		if err := producer.EnsureTopic(ctx, 3, 1); err != nil {
			return err
		}
		relay := kafka.NewRelay(db, producer, log)
		g.Go(func() error {
			if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	} else if producer != nil {
		log.Warn("kafka configured without a database, audit outbox relay disabled")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("caretrail stopped")
	return nil
}
