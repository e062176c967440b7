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

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"ans/internal/escrow"
	"ans/internal/platform/config"
	"ans/internal/platform/httpserver"
	"ans/internal/platform/logger"
	platformredis "ans/internal/platform/redis"
	"ans/internal/ratelimit"
	"ans/internal/registry"
	"ans/internal/signature/replay"
	httpapi "ans/internal/transport/http"
	"ans/pkg/domain"
	"ans/pkg/platform/audit"
	kafkasink "ans/pkg/platform/audit/publishers/kafka"
	auditmemory "ans/pkg/platform/audit/store/memory"

	authzmetrics "ans/internal/authz/metrics"
	registrymetrics "ans/internal/registry/metrics"
)

const (
	auditInboxSize = 256
	expirySweep    = time.Minute
	expiryBatch    = 100
	shutdownGrace  = 10 * time.Second
)

func main() {
	log := logger.New()
	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		registryStore registry.Store
		escrowStore   escrow.Store
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		regStore := registry.NewPostgresStore(pool)
		if err := regStore.Migrate(ctx); err != nil {
			return err
		}
		escStore := escrow.NewPostgresStore(pool)
		if err := escStore.Migrate(ctx); err != nil {
			return err
		}
		registryStore = regStore
		escrowStore = escStore
		log.Info("using postgres stores")
	} else {
		registryStore = registry.NewMemoryStore(registry.NewMemoryLedger())
		escrowStore = escrow.NewMemoryStore()
		log.Info("using in-memory stores")
	}

	// Replay guard and rate limit counters: shared via Redis when
	// configured, per-process otherwise.
	var guard replay.Guard = replay.NewMemoryGuard()
	var limitStore ratelimit.Store = ratelimit.NewMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		guard = replay.NewRedisGuard(redisClient.Client)
		limitStore = ratelimit.NewRedisStore(redisClient.Client)
		log.Info("using redis replay guard")
	}
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Limit > 0 {
		limiter = ratelimit.New(limitStore, cfg.RateLimit.Limit, cfg.RateLimit.Window)
	}

	// Audit pipeline: kafka sink when brokers are configured.
	var auditStore audit.Store = auditmemory.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		sink, err := kafkasink.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return err
		}
		defer sink.Close()
		auditStore = sink
		log.Info("using kafka audit sink", "topic", cfg.Kafka.Topic)
	}
	inbox := make(chan audit.Event, auditInboxSize)
	auditor := audit.NewPublisher(inbox, log)
	auditWorker := audit.NewWorker(auditStore, inbox, log)

	policy, err := registryPolicy(cfg.Protocol)
	if err != nil {
		return err
	}
	registrySvc := registry.NewService(registryStore, policy, log, registrymetrics.New(), auditor)
	escrowSvc := escrow.NewService(
		escrowStore,
		registrySvc,
		guard,
		cfg.Protocol.MaxSignatureAge,
		cfg.Protocol.EscrowTTL,
		log,
		authzmetrics.New(),
		auditor,
	)

	router := httpapi.NewRouter(registrySvc, escrowSvc, limiter, log)
	server := httpserver.New(cfg.Server.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditWorker.Run(ctx)
	})
	g.Go(func() error {
		ticker := time.NewTicker(expirySweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if _, err := escrowSvc.ExpireOverdue(ctx, expiryBatch); err != nil {
					log.ErrorContext(ctx, "expiry sweep failed", "error", err)
				}
			}
		}
	})
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// registryPolicy translates protocol config into the registry's policy
// switches, validating the fee and treasury values up front.
func registryPolicy(cfg config.ProtocolConfig) (registry.Policy, error) {
	policy := registry.Policy{EnforceExpiryOnBuy: cfg.EnforceExpiryOnBuy}
	if cfg.RenewalFee == "" {
		return policy, nil
	}
	fee, err := domain.ParseAmount(cfg.RenewalFee)
	if err != nil {
		return registry.Policy{}, err
	}
	treasury, err := domain.ParseWalletAddress(cfg.Treasury)
	if err != nil {
		return registry.Policy{}, err
	}
	policy.RenewalFee = fee
	policy.Treasury = treasury
	return policy, nil
}
