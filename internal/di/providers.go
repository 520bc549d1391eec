package di

import (
	"context"
	"fmt"
	"time"

	"RegimeScan/internal/domain/repository"
	dsvc "RegimeScan/internal/domain/service"
	internalrepo "RegimeScan/internal/repository"
	"RegimeScan/internal/service/changepoint"
	"RegimeScan/internal/usecase"
	pkgcache "RegimeScan/pkg/cache"
	pkgch "RegimeScan/pkg/clickhouse"
	"RegimeScan/pkg/config"
	pkgkafka "RegimeScan/pkg/kafka"
	applogger "RegimeScan/pkg/logger"
	"RegimeScan/pkg/metrics"
	"RegimeScan/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// ClickHouse sink is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the Kafka
// sink is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithTimeouts(cfg.Kafka.WriteTimeout, cfg.Kafka.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideResultStore wraps the ClickHouse client as a result store and
// ensures the output schema exists.
func ProvideResultStore(chClient *pkgch.Client, l *applogger.Logger) (repository.ResultStore, error) {
	if chClient == nil {
		return nil, nil
	}
	store := internalrepo.NewCHResultStore(chClient, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideResultPublisher wraps the Kafka producer as a result publisher.
func ProvideResultPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ResultPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.Topic)
}

// ProvideResultCache builds the latest-result cache: Redis-backed two
// level when Redis is configured, in-process otherwise, nil when the
// cache is disabled entirely.
func ProvideResultCache(cfg *config.Config) (repository.ResultCache, error) {
	if !cfg.Cache.Enabled {
		return nil, nil
	}

	memory := pkgcache.NewMemoryCache()
	var svc pkgcache.Service = memory

	if cfg.Cache.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rc, err := pkgcache.NewRedisCache(ctx,
			pkgcache.WithRedisAddr(cfg.Cache.Redis.Addr),
			pkgcache.WithRedisPassword(cfg.Cache.Redis.Password),
			pkgcache.WithRedisDB(cfg.Cache.Redis.DB),
			pkgcache.WithRedisPrefix("regimescan"),
		)
		if err != nil {
			return nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = pkgcache.NewLayeredCache(memory, rc)
	}

	return internalrepo.NewCachedResultStore(svc, cfg.Cache.TTL), nil
}

// ProvideDiagnoser creates the convergence diagnoser.
func ProvideDiagnoser() dsvc.ConvergenceDiagnoser {
	return changepoint.NewDiagnoser()
}

// ProvideAnalysisRunner creates the analysis use case.
func ProvideAnalysisRunner(
	diagnoser dsvc.ConvergenceDiagnoser,
	store repository.ResultStore,
	publisher repository.ResultPublisher,
	cache repository.ResultCache,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.AnalysisRunner {
	return usecase.NewAnalysisRunner(diagnoser, store, publisher, cache, m, l)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	runner *usecase.AnalysisRunner,
	chClient *pkgch.Client,
	publisher repository.ResultPublisher,
) *server.App {
	app := server.New(cfg, l, runner, chClient)
	if publisher != nil {
		app.AddCloser(publisher.Close)
	}
	return app
}
