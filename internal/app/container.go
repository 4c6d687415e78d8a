package app

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"gateway/internal/config"
	"gateway/internal/domain"
	"gateway/internal/handler"
	"gateway/internal/logger"
	"gateway/internal/metrics"
	"gateway/internal/middleware"
	redisstore "gateway/internal/redis"
	"gateway/internal/repository/postgres"
	"gateway/internal/service"
	"gateway/internal/worker"
)

// Ensure the Redis idempotency backend satisfies the store contract.
var _ service.IdempotencyStore = (*redisstore.IdempotencyStore)(nil)

// Infrastructure holds the process-wide connections.
type Infrastructure struct {
	DB          *sql.DB
	Redis       *redis.Client
	NewRelicApp *newrelic.Application
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
}

// NewInfrastructure connects to New Relic, PostgreSQL and Redis.
// New Relic comes first so the database and Redis clients are instrumented.
func NewInfrastructure(ctx context.Context, cfg *config.Config) (*Infrastructure, error) {
	nrApp, err := NewNewRelic(cfg.NewRelic)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("failed to initialize New Relic, continuing without APM")
		nrApp = nil
	} else if nrApp != nil {
		logger.Info(ctx).Str("app", cfg.NewRelic.AppName).Msg("New Relic enabled")
	}

	db, err := NewDatabase(ctx, cfg.Database, cfg.Worker, nrApp)
	if err != nil {
		return nil, err
	}

	redisClient, err := NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Infrastructure{
		DB:          db,
		Redis:       redisClient,
		NewRelicApp: nrApp,
		Registry:    reg,
		Metrics:     metrics.New(reg),
	}, nil
}

// MetricsHandler serves the infrastructure's Prometheus registry.
func (i *Infrastructure) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(i.Registry, promhttp.HandlerOpts{Registry: i.Registry})
}

// Close releases all connections and flushes New Relic.
func (i *Infrastructure) Close() {
	if err := i.Redis.Close(); err != nil {
		logger.Warn(context.Background()).Err(err).Msg("close redis")
	}
	if err := i.DB.Close(); err != nil {
		logger.Warn(context.Background()).Err(err).Msg("close database")
	}
	i.NewRelicApp.Shutdown(5 * time.Second)
}

// Components wires repositories, stores and services over an Infrastructure.
type Components struct {
	cfg   *config.Config
	infra *Infrastructure

	Merchants   *postgres.MerchantRepository
	Payments    *postgres.PaymentRepository
	Refunds     *postgres.RefundRepository
	WebhookLogs *postgres.WebhookLogRepository

	Queue         *redisstore.JobQueue
	Locks         *redisstore.LockStore
	MerchantCache *redisstore.MerchantCache
	Idempotency   service.IdempotencyStore

	PaymentService *service.PaymentService
	RefundService  *service.RefundService
	WebhookService *service.WebhookService
}

// NewComponents wires the gateway over infra.
func NewComponents(cfg *config.Config, infra *Infrastructure) *Components {
	c := &Components{
		cfg:   cfg,
		infra: infra,

		Merchants:   postgres.NewMerchantRepository(infra.DB),
		Payments:    postgres.NewPaymentRepository(infra.DB),
		Refunds:     postgres.NewRefundRepository(infra.DB),
		WebhookLogs: postgres.NewWebhookLogRepository(infra.DB),

		Queue:         redisstore.NewJobQueue(infra.Redis),
		Locks:         redisstore.NewLockStore(infra.Redis),
		MerchantCache: redisstore.NewMerchantCache(infra.Redis),
	}

	switch cfg.Idempotency.Backend {
	case config.IdempotencyBackendRedis:
		c.Idempotency = redisstore.NewIdempotencyStore(infra.Redis)
	default:
		c.Idempotency = service.NewIdempotencyService(postgres.NewIdempotencyKeyRepository(infra.DB))
	}

	c.PaymentService = service.NewPaymentService(c.Payments, c.Queue)
	c.RefundService = service.NewRefundService(c.Payments, c.Refunds, c.Queue)
	c.WebhookService = service.NewWebhookService(c.WebhookLogs, c.Queue)

	metrics.RegisterQueueDepth(infra.Registry, c.Queue)

	return c
}

// Router builds the HTTP API.
func (c *Components) Router() *gin.Engine {
	return NewRouter(RouterDeps{
		PaymentHandler: handler.NewPaymentHandler(c.PaymentService),
		RefundHandler:  handler.NewRefundHandler(c.RefundService),
		WebhookHandler: handler.NewWebhookHandler(c.WebhookService),
		JobsHandler:    handler.NewJobsHandler(c.PaymentService),
		HealthHandler: handler.NewHealthHandler(map[string]handler.HealthCheck{
			"postgres": c.infra.DB.PingContext,
			"redis": func(ctx context.Context) error {
				return c.infra.Redis.Ping(ctx).Err()
			},
		}),
		Auth:           middleware.Auth(c.Merchants, c.MerchantCache),
		Idempotency:    middleware.Idempotency(c.Idempotency, c.Locks, c.cfg.Idempotency.TTL),
		MetricsHandler: c.infra.MetricsHandler(),
		NewRelicApp:    c.infra.NewRelicApp,
	})
}

// Runner builds the worker pool: the configured number of consumers per
// queue plus the retry sweeper.
func (c *Components) Runner() *worker.Runner {
	sim := c.cfg.Simulation

	psp := service.NewSimulatedPSP(nil)
	paymentDelay := worker.UniformDelay(sim.PaymentDelayMin, sim.PaymentDelayMax)
	if sim.TestMode {
		psp = service.NewSimulatedPSP(service.FixedDraw(sim.TestPaymentSuccess))
		paymentDelay = worker.FixedDelay(sim.TestProcessingDelay)
	}

	m := c.infra.Metrics

	paymentProcessor := worker.NewPaymentProcessor(c.Payments, psp, c.WebhookService, paymentDelay, m)
	refundProcessor := worker.NewRefundProcessor(c.Refunds, c.WebhookService, worker.FixedDelay(sim.RefundDelay))
	dispatcher := worker.NewWebhookDispatcher(
		c.WebhookLogs,
		c.Merchants,
		worker.NewHTTPSender(c.cfg.Webhook.Timeout),
		service.NewRetryPolicy(c.cfg.Webhook.TestRetryIntervals),
		m,
	)

	pools := []struct {
		queue     domain.QueueName
		count     int
		processor worker.Processor
	}{
		{domain.QueuePayments, c.cfg.Worker.PaymentWorkers, paymentProcessor},
		{domain.QueueRefunds, c.cfg.Worker.RefundWorkers, refundProcessor},
		{domain.QueueWebhooks, c.cfg.Worker.WebhookWorkers, dispatcher},
	}

	var consumers []*worker.Consumer
	for _, pool := range pools {
		for range max(pool.count, 1) {
			consumers = append(consumers, worker.NewConsumer(worker.ConsumerConfig{
				Queue:       pool.queue,
				PollTimeout: c.cfg.Worker.PollTimeout,
				NewRelicApp: c.infra.NewRelicApp,
				Metrics:     m,
			}, c.Queue, pool.processor))
		}
	}

	sweeper := worker.NewRetrySweeper(c.WebhookLogs, c.Queue, c.cfg.Worker.SweepInterval, m)

	return worker.NewRunner(sweeper, consumers...)
}
