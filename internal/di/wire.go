//go:build wireinject
// +build wireinject

package di

import (
	"Draks/pkg/config"
	"Draks/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Backing stores and clients
		ProvideRedisStore,
		ProvideCacheService,
		ProvideHTTPClient,
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideQueue,

		// Market data
		ProvideFetchRouter,
		ProvideOHLCVCache,

		// Decision pipeline
		ProvideOrchestratorConfig,
		ProvideDecisionUseCase,

		// Batch processing
		ProvideJobStore,
		ProvideHub,
		ProvideProgressSink,
		ProvideArchiver,
		ProvideWorker,
		ProvideManager,

		// HTTP surface
		ProvideLimiter,
		ProvideFlags,
		ProvideRouter,

		ProvideApp,
	)
	return &server.App{}, nil
}
