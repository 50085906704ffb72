package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/rentwise/rentd/internal/adapter/email"
	rwnats "github.com/rentwise/rentd/internal/adapter/nats"
	"github.com/rentwise/rentd/internal/adapter/postgres"
	"github.com/rentwise/rentd/internal/adapter/ristretto"
	"github.com/rentwise/rentd/internal/clock"
	"github.com/rentwise/rentd/internal/config"
	"github.com/rentwise/rentd/internal/dispatch"
	"github.com/rentwise/rentd/internal/domain/event"
	"github.com/rentwise/rentd/internal/logger"
	"github.com/rentwise/rentd/internal/port/notifier"
	"github.com/rentwise/rentd/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
		"nats_enabled", cfg.NATS.Enabled,
		"sweep_enabled", cfg.Sweep.Enabled,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	cache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	var relay *rwnats.Relay
	if cfg.NATS.Enabled {
		relay, err = rwnats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = relay.Close() }()
		log.Info("nats relay connected", "url", cfg.NATS.URL)
	}

	// --- Services ---

	contracts := postgres.NewContractStore(pool)
	dues := postgres.NewDueStore(pool)
	audits := postgres.NewAuditStore(pool)
	tx := postgres.NewTransactor(pool)

	bus := dispatch.New(log, cfg.Dispatch.QueueSize, cfg.Dispatch.Workers)
	defer bus.Close()

	svc := service.NewContractService(
		contracts, dues, audits, tx, bus,
		cache, cfg.Cache.TTL, clock.System{}, log)

	notify := service.NewNotificationService(
		[]notifier.Notifier{email.New(cfg.SMTP)}, log)

	duegen := service.NewDueGenerator(dues, log)

	service.Listeners{
		Dues:         service.NewDueListener(contracts, duegen, tx, bus, clock.System{}, log),
		Audit:        service.NewAuditListener(audits, log),
		Notification: service.NewNotificationListener(contracts, notify, log),
		Cache:        service.NewCacheListener(cache, log),
	}.Register(bus)

	if relay != nil {
		bus.Subscribe("nats", func(ctx context.Context, ev event.Event) {
			if err := relay.Publish(ctx, ev); err != nil {
				log.Warn("nats relay publish failed", "event_id", ev.ID, "error", err)
			}
		})
	}

	sweeper := service.NewSweeper(svc, dues, notify, cfg.Sweep, cfg.SMTP.From, clock.System{}, log)
	if cfg.Sweep.Enabled {
		sweeper.Start(ctx)
		defer sweeper.Stop()
	}

	// --- HTTP (operational endpoints only) ---

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(10 * time.Second))
	r.Use(requestIDContext)
	r.Get("/healthz", healthHandler())
	r.Get("/readyz", readyHandler(pool, log))

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error {
		log.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// requestIDContext copies chi's request ID into the logger context so
// handlers can annotate their log lines with it.
func requestIDContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.WithRequestID(r.Context(), chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, "ok")
	}
}

// readyHandler reports readiness by pinging the database.
func readyHandler(pool *pgxpool.Pool, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			logger.FromContext(ctx, log).Warn("readiness check failed", "error", err)
			writeStatus(w, http.StatusServiceUnavailable, "postgres unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ok")
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": status})
}
