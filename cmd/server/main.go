package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dojotrack/internal/identity"
	jwttoken "dojotrack/internal/jwt_token"
	"dojotrack/internal/linking"
	linkinghandler "dojotrack/internal/linking/handler"
	"dojotrack/internal/linking/providers"
	"dojotrack/internal/merge"
	"dojotrack/internal/pendinglink"
	"dojotrack/internal/platform/config"
	"dojotrack/internal/platform/database"
	"dojotrack/internal/platform/httpserver"
	"dojotrack/internal/platform/logger"
	"dojotrack/internal/platform/metrics"
	redisclient "dojotrack/internal/platform/redis"
	"dojotrack/internal/ratelimit"
	httptransport "dojotrack/internal/transport/http"
	"dojotrack/internal/user"
	"dojotrack/pkg/platform/audit"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx := context.Background()

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Ping(ctx, db); err != nil {
		return err
	}
	if err := database.RunMigrations(db); err != nil {
		return err
	}

	redisClient, err := redisclient.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	// Pending links prefer Redis for its native TTL; the SQL store is the
	// fallback for deployments without Redis.
	var pendingStore pendinglink.Store
	if redisClient != nil {
		pendingStore = pendinglink.NewRedisStore(redisClient.Client)
	} else {
		pendingStore = pendinglink.NewPostgresStore(db)
	}
	pending := pendinglink.NewRegistry(pendingStore, cfg.PendingLinkTTL)

	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := audit.NewKafkaSink(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		sink = audit.NewSlogSink(log)
	}
	auditor := audit.NewPublisher(sink, log)
	defer auditor.Close()

	identities := identity.NewPostgresStore(db)
	users := user.NewPostgresStore(db)
	credentials := providers.NewPostgresCredentialStore(db)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, "dojotrack")

	merger := merge.NewEngine(merge.NewPostgresTx(db), identities, users, cfg.AdminEmail, log, m)

	emailVerifier := providers.NewEmailVerifier(credentials)
	verifiers := linking.NewVerifierMux()
	verifiers.Register(identity.ProviderGoogle, providers.NewGoogleVerifier(nil, ""))
	verifiers.Register(identity.ProviderFacebook, providers.NewFacebookVerifier(nil, ""))
	verifiers.Register(identity.ProviderEmail, emailVerifier)

	service := linking.NewService(linking.Config{
		Verifier:   verifiers,
		Identities: identities,
		Users:      users,
		Pending:    pending,
		Merger:     merger,
		Tokens:     jwtService,
		AdminEmail: cfg.AdminEmail,
		Auditor:    auditor,
		Logger:     log,
		Metrics:    m,
	})

	var limiter ratelimit.Store
	if redisClient != nil {
		limiter = ratelimit.NewRedisStore(redisClient.Client)
	} else {
		limiter = ratelimit.NewInMemoryStore()
	}

	authHandler := linkinghandler.New(service, emailVerifier, log, m, jwttoken.NewJWTServiceAdapter(jwtService), limiter)

	checks := map[string]httptransport.HealthChecker{
		"postgres": httptransport.HealthFunc(func(ctx context.Context) error {
			return database.Ping(ctx, db)
		}),
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}

	router := httptransport.NewRouter([]httptransport.RouteRegistrar{authHandler}, checks)
	srv := httpserver.New(cfg.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", slog.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
