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

	"attest/internal/certification/handler"
	"attest/internal/certification/locks"
	"attest/internal/certification/metrics"
	"attest/internal/certification/service"
	certstore "attest/internal/certification/store"
	"attest/internal/governance"
	"attest/internal/platform/config"
	"attest/internal/platform/httpserver"
	"attest/internal/platform/kafka"
	"attest/internal/platform/logger"
	platformredis "attest/internal/platform/redis"
	"attest/internal/platform/token"
	"attest/pkg/platform/audit/forwarder"
	"attest/pkg/platform/audit/publisher"
	auditmemory "attest/pkg/platform/audit/store/memory"
)

// main wires the dependency graph and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	appLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	store, closeStore, err := buildStore(config.PostgresFromEnv())
	if err != nil {
		log.Fatalf("certification store: %v", err)
	}
	defer closeStore()

	locker, closeLocker, err := buildLocker(config.RedisFromEnv())
	if err != nil {
		log.Fatalf("lock service: %v", err)
	}
	defer closeLocker()

	auditPublisher, closeAudit, err := buildAuditPublisher(config.KafkaFromEnv(), appLogger)
	if err != nil {
		log.Fatalf("audit publisher: %v", err)
	}
	defer closeAudit()

	svc := service.New(store, locker, governance.NewStaticProvider(governance.FromEnv()),
		service.WithLogger(appLogger),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(metrics.New()),
	)
	tokens := token.NewJWTService(cfg.JWTSigningKey, "attest", "attest-api")

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.New(svc, appLogger, tokens).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("starting attest on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// buildStore selects postgres when a DSN is configured, in-memory otherwise.
func buildStore(cfg config.PostgresConfig) (certstore.Store, func(), error) {
	if cfg.DSN == "" {
		return certstore.NewInMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, nil, err
	}
	if _, err := db.Exec(certstore.Schema); err != nil {
		db.Close()
		return nil, nil, err
	}
	return certstore.NewPostgres(db), func() { db.Close() }, nil
}

// buildLocker uses redis when configured so locks hold across instances,
// falling back to process-local locks for single-node deployments.
func buildLocker(cfg config.RedisConfig) (locks.Locker, func(), error) {
	client, err := platformredis.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return locks.NewInMemoryLocker(), func() {}, nil
	}
	return locks.NewRedisLocker(client.Client), func() { client.Close() }, nil
}

// buildAuditPublisher keeps the durable trail local and, when kafka is
// configured, ships a copy of every event to the audit topic.
func buildAuditPublisher(cfg config.KafkaConfig, log *slog.Logger) (*publisher.Publisher, func(), error) {
	opts := []publisher.Option{
		publisher.WithAsyncBuffer(256),
		publisher.WithLogger(log),
	}

	producer, err := kafka.NewProducer(cfg)
	if err != nil {
		return nil, nil, err
	}
	if producer != nil {
		opts = append(opts, publisher.WithForwarder(forwarder.NewKafka(producer)))
	}

	pub := publisher.NewPublisher(auditmemory.NewInMemoryStore(), opts...)
	closer := func() {
		pub.Close()
		if producer != nil {
			producer.Close()
		}
	}
	return pub, closer, nil
}
