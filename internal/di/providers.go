package di

import (
	"context"
	"fmt"
	"time"

	"Draks/internal/batch"
	"Draks/internal/domain/models"
	"Draks/internal/handler/api"
	"Draks/internal/ohlcv"
	"Draks/internal/progress"
	"Draks/internal/repository"
	"Draks/internal/service/feature"
	"Draks/internal/service/ratelimit"
	"Draks/internal/usecase"
	pkgcache "Draks/pkg/cache"
	pkgch "Draks/pkg/clickhouse"
	"Draks/pkg/config"
	xhttp "Draks/pkg/http"
	pkgkafka "Draks/pkg/kafka"
	applogger "Draks/pkg/logger"
	"Draks/pkg/metrics"
	"Draks/pkg/queue"
	"Draks/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideRedisStore creates the Redis-backed KV store.
func ProvideRedisStore(cfg *config.Config) (*pkgcache.RedisStore, error) {
	store, err := pkgcache.NewRedisStore(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis store: %w", err)
	}
	return store, nil
}

// ProvideCacheService exposes the Redis store through the KV contract.
func ProvideCacheService(store *pkgcache.RedisStore) pkgcache.Service {
	return store
}

// ProvideMetrics creates the Prometheus recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideHTTPClient creates the shared outbound HTTP client.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(cfg.Fetch.Timeout))
}

// ProvideFetchRouter builds the per-asset market data fetchers.
func ProvideFetchRouter(cfg *config.Config, client *xhttp.Client) *ohlcv.Router {
	return ohlcv.NewRouter(
		ohlcv.NewCryptoFetcher(client, cfg.Fetch.CryptoBaseURL),
		ohlcv.NewEquityFetcher(client, cfg.Fetch.EquityBaseURL, cfg.Fetch.EquityAPIKey),
	)
}

// ProvideOHLCVCache creates the read-through candle cache.
func ProvideOHLCVCache(
	kv pkgcache.Service,
	router *ohlcv.Router,
	rec *metrics.Recorder,
	log *applogger.Logger,
	cfg *config.Config,
) *ohlcv.Cache {
	return ohlcv.NewCache(kv, router, rec, log, cfg.OHLCV.CacheTTL, cfg.OHLCV.MaxCandles)
}

// ProvideOrchestratorConfig merges configured weights over the stock
// defaults.
func ProvideOrchestratorConfig(cfg *config.Config) models.OrchestratorConfig {
	oc := models.DefaultOrchestratorConfig()
	if cfg.Orchestrator.VolTargetAnnual > 0 {
		oc.VolTargetAnnual = cfg.Orchestrator.VolTargetAnnual
	}
	if cfg.Orchestrator.MaxPositionFraction > 0 {
		oc.MaxPositionFraction = cfg.Orchestrator.MaxPositionFraction
	}
	for regime, weights := range cfg.Orchestrator.Weights {
		oc.Weights[models.RegimeLabel(regime)] = weights
	}
	return oc
}

// ProvideDecisionUseCase creates the synchronous decision pipeline.
func ProvideDecisionUseCase(
	candles *ohlcv.Cache,
	kv pkgcache.Service,
	log *applogger.Logger,
	orchCfg models.OrchestratorConfig,
	cfg *config.Config,
) *usecase.DecisionUseCase {
	return usecase.NewDecisionUseCase(candles, kv, log, orchCfg, cfg.Decision.CacheTTL)
}

// ProvideKafkaProducer creates the Kafka producer, or nil when Kafka is
// disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideHub creates the websocket progress hub.
func ProvideHub(log *applogger.Logger) *progress.Hub {
	return progress.NewHub(log)
}

// ProvideProgressSink fans progress out to websockets, the log, and
// Kafka when configured.
func ProvideProgressSink(
	hub *progress.Hub,
	producer *pkgkafka.Producer,
	cfg *config.Config,
	log *applogger.Logger,
) progress.Sink {
	sinks := []progress.Sink{hub, progress.NewLogSink(log)}
	if producer != nil {
		sinks = append(sinks, progress.NewKafkaSink(producer, cfg.Kafka.ProgressTopic, log))
	}
	return progress.NewMultiSink(sinks...)
}

// ProvideClickHouseClient creates the ClickHouse pool, or nil when the
// archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideArchiver creates the decision archive, or nil without
// ClickHouse.
func ProvideArchiver(chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) (batch.Archiver, error) {
	if chClient == nil {
		return nil, nil
	}
	archive := repository.NewDecisionArchive(chClient.DB(), cfg.ClickHouse.Database+".decisions", log)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stmts := append([]string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
	}, archive.Schema()...)
	if err := chClient.InitSchema(ctx, stmts); err != nil {
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	return archive, nil
}

// ProvideJobStore creates the batch job store.
func ProvideJobStore(kv pkgcache.Service, cfg *config.Config) *batch.Store {
	return batch.NewStore(kv, cfg.JobRetention())
}

// ProvideQueue creates the Redis work queue running both producer and
// consumer sides.
func ProvideQueue(log *applogger.Logger, store *pkgcache.RedisStore, cfg *config.Config) *queue.RedisQueue {
	// RetryLimit 0: the worker classifies failures into per-symbol error
	// records itself, so failed deliveries go straight to the dead letter
	// queue instead of being replayed.
	return queue.NewRedisQueue(log, &queue.Config{
		Workers:    cfg.Batch.Workers,
		RetryLimit: 0,
		RetryDelay: 5 * time.Second,
	}, store.Client(), queue.ModeProducerConsumer)
}

// ProvideWorker creates the batch decision worker and registers it on
// the queue.
func ProvideWorker(
	store *batch.Store,
	candles *ohlcv.Cache,
	sink progress.Sink,
	archiver batch.Archiver,
	rec *metrics.Recorder,
	log *applogger.Logger,
	orchCfg models.OrchestratorConfig,
	cfg *config.Config,
	q *queue.RedisQueue,
) *batch.Worker {
	w := batch.NewWorker(store, candles, sink, archiver, rec, log, orchCfg, cfg.Batch.JobTimeout)
	q.RegisterJob(w)
	return w
}

// ProvideManager creates the batch manager.
func ProvideManager(
	store *batch.Store,
	q *queue.RedisQueue,
	rec *metrics.Recorder,
	log *applogger.Logger,
	cfg *config.Config,
) *batch.Manager {
	return batch.NewManager(store, q, rec, log, cfg.Batch.MaxSymbols)
}

// ProvideLimiter creates the per-IP rate limiter.
func ProvideLimiter() *ratelimit.Limiter {
	return ratelimit.New()
}

// ProvideFlags creates the feature flag service.
func ProvideFlags(kv pkgcache.Service) *feature.Flags {
	return feature.New(kv, map[string]bool{feature.FlagBatch: true})
}

// ProvideRouter composes the HTTP handlers.
func ProvideRouter(
	log *applogger.Logger,
	uc *usecase.DecisionUseCase,
	limiter *ratelimit.Limiter,
	manager *batch.Manager,
	hub *progress.Hub,
	flags *feature.Flags,
	store *pkgcache.RedisStore,
	chClient *pkgch.Client,
) xhttp.Handler {
	checks := map[string]api.HealthChecker{"redis": store}
	if chClient != nil {
		checks["clickhouse"] = chClient
	}
	return api.NewRouter(
		api.NewDecisionHandler(log, uc, limiter),
		api.NewBatchHandler(log, manager),
		api.NewWSHandler(log, hub, manager),
		api.NewHealthHandler(log, checks),
		flags,
	)
}

// ProvideApp assembles the application. The worker parameter pins the
// batch worker into the graph so its queue registration happens before
// the app starts.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	q *queue.RedisQueue,
	store *pkgcache.RedisStore,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	_ *batch.Worker,
) *server.App {
	return server.New(cfg, log, handler, q, store, producer, chClient)
}
