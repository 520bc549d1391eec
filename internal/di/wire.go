//go:build wireinject
// +build wireinject

package di

import (
	"RegimeScan/pkg/config"
	"RegimeScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,

		// Metrics
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,

		// Result sinks
		ProvideResultStore,
		ProvideResultPublisher,
		ProvideResultCache,

		// Analysis pipeline
		ProvideDiagnoser,
		ProvideAnalysisRunner,

		// Application
		ProvideApp,
	)
	return &server.App{}, nil
}
