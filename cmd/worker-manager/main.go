// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	awsclients "clinic-inventory-workers/internal/common/aws"
	"clinic-inventory-workers/internal/common/camunda"
	"clinic-inventory-workers/internal/common/config"
	"clinic-inventory-workers/internal/common/database"
	"clinic-inventory-workers/internal/common/logger"
	"clinic-inventory-workers/internal/common/observability"
	"clinic-inventory-workers/internal/common/validation"
	"clinic-inventory-workers/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "console").Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting worker manager",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Zeebe ---
	zeebe, err := camunda.NewClientWithConfig(ctx, camunda.ConfigFrom(cfg.Camunda))
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected", zap.String("gateway", cfg.Camunda.BrokerAddress))

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected")

	// --- Elasticsearch ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected")

	// --- Redis ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	zapLog.Info("Redis connected")

	// --- Activity registry & input validation ---
	reg, err := registry.LoadRegistry(cfg.RegistryPath)
	if err != nil {
		zapLog.Fatal("registry load failed", zap.String("path", cfg.RegistryPath), zap.Error(err))
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("registry is invalid", zap.Error(err))
	}
	validator, err := validation.NewValidator(reg)
	if err != nil {
		zapLog.Fatal("input schemas failed to compile", zap.Error(err))
	}
	zapLog.Info("activity registry loaded",
		zap.Int("activities", len(reg.Activities)),
		zap.Strings("validatedTaskTypes", validator.TaskTypes()),
	)

	// --- AWS (expiry alerts) ---
	var ses awsclients.SESAPI
	var sns awsclients.SNSAPI
	notify := cfg.Notifications
	if config.IsWorkerEnabled(cfg, alertTaskType) && (notify.Email.Enabled || notify.SMS.Enabled) {
		clients, err := awsclients.NewClients(ctx, notify.AWS.Region)
		if err != nil {
			// Alerts still run and report DISABLED.
			zapLog.Error("AWS clients unavailable, alerts will not be delivered", zap.Error(err))
		} else {
			ses, sns = clients.SES, clients.SNS
			zapLog.Info("AWS clients initialized", zap.String("region", notify.AWS.Region))
		}
	}

	// --- RxNorm fan-out pool ---
	pool, err := ants.NewPool(cfg.APIs.RxNorm.PoolSize)
	if err != nil {
		zapLog.Fatal("rxnorm pool init failed", zap.Error(err))
	}

	deps := &workerDeps{
		cfg:       cfg,
		log:       log,
		validator: validator,
		db:        pg.DB,
		es:        esClient.Client,
		rdb:       rdb.Client,
		ses:       ses,
		sns:       sns,
		pool:      pool,
	}

	workers := registerWorkers(zeebe.GetClient(), deps, obs, zapLog)
	for _, w := range workers {
		w.Start()
	}
	zapLog.Info("workers registered", zap.Int("count", len(workers)))

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.App.HTTPPort),
		Handler: newOpsRouter(cfg.App, []readinessCheck{
			{name: "zeebe", check: zeebe.HealthCheck},
			{name: "postgres", check: pg.Ping},
			{name: "elasticsearch", check: esClient.Ping},
			{name: "redis", check: rdb.Ping},
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("health/metrics server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("health/metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	zapLog.Info("shutdown signal received, stopping workers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("error stopping health server", zap.Error(err))
	}
	for _, w := range workers {
		w.Stop()
	}
	pool.Release()

	if err := zeebe.Close(); err != nil {
		zapLog.Error("error closing Zeebe client", zap.Error(err))
	}
	if err := rdb.Close(); err != nil {
		zapLog.Error("error closing Redis", zap.Error(err))
	}
	if err := pg.Close(); err != nil {
		zapLog.Error("error closing PostgreSQL", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("worker manager stopped gracefully")
}
