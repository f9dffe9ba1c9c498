package main

import (
	"time"

	"github.com/couchcryptid/shelter-data-etl/internal/adapter/animalapi"
	"github.com/couchcryptid/shelter-data-etl/internal/adapter/geocache"
	kafkaadapter "github.com/couchcryptid/shelter-data-etl/internal/adapter/kafka"
	"github.com/couchcryptid/shelter-data-etl/internal/adapter/kakao"
	"github.com/couchcryptid/shelter-data-etl/internal/adapter/localfile"
	"github.com/couchcryptid/shelter-data-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/shelter-data-etl/internal/config"
	"github.com/couchcryptid/shelter-data-etl/internal/domain"
	"github.com/couchcryptid/shelter-data-etl/internal/observability"
	"github.com/couchcryptid/shelter-data-etl/internal/pipeline"
)

// runnerEnv holds the runner and the resources it owns.
type runnerEnv struct {
	Runner    *pipeline.Runner
	publisher *kafkaadapter.Publisher
}

// Close releases resources held by the runner environment.
func (e *runnerEnv) Close() {
	if e.publisher != nil {
		if err := e.publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
}

// initGeocoder builds the configured geocoder behind an LRU cache. It
// returns nil when geocoding is disabled.
func initGeocoder(metrics *observability.Metrics) (domain.Geocoder, error) {
	var inner domain.Geocoder
	switch cfg.GeocodeProvider {
	case config.ProviderKakao:
		inner = kakao.NewClient(cfg.KakaoAPIKey, cfg.GeocodeTimeout, cfg.GeocodeRateLimit, metrics, logger)
	case config.ProviderMapbox:
		inner = mapbox.NewClient(cfg.MapboxToken, cfg.GeocodeTimeout, cfg.GeocodeRateLimit, metrics, logger)
	default:
		metrics.GeocodeEnabled.Set(0)
		logger.Info("geocoding disabled")
		return nil, nil
	}

	cached, err := geocache.New(inner, cfg.GeocodeCacheSize, metrics)
	if err != nil {
		return nil, err
	}
	metrics.GeocodeEnabled.Set(1)
	logger.Info("geocoding enabled",
		"provider", cfg.GeocodeProvider,
		"cache_size", cfg.GeocodeCacheSize,
		"timeout", cfg.GeocodeTimeout,
	)
	return cached, nil
}

// initSources returns the animal sources and the shelter registry. The API
// source and registry need ANIMAL_API_SERVICE_KEY; local exports are always read.
func initSources() ([]pipeline.AnimalSource, pipeline.RegistrySource) {
	sources := []pipeline.AnimalSource{localfile.NewSource(cfg.DataDir, nil, logger)}
	if cfg.AnimalAPIKey == "" {
		logger.Warn("ANIMAL_API_SERVICE_KEY not set, using local exports only", "data_dir", cfg.DataDir)
		return sources, nil
	}

	client := animalapi.NewClient(cfg.AnimalAPIKey, cfg.AnimalAPIBaseURL, cfg.AnimalAPITimeout,
		cfg.AnimalAPIRateLimit, cfg.AnimalAPIPageSize, logger)
	return append(sources, client), client
}

// initRunner wires sources, merger, store, and optional publisher into a Runner.
// Callers should defer env.Close().
func initRunner(loader pipeline.Loader, metrics *observability.Metrics) (*runnerEnv, error) {
	geocoder, err := initGeocoder(metrics)
	if err != nil {
		return nil, err
	}
	merger := domain.NewMerger(geocoder, logger, domain.MergeOptions{
		DefaultUnresolvedToOrigin: cfg.GeocodeDefaultOrigin,
	})
	sources, registry := initSources()

	env := &runnerEnv{}
	opts := []pipeline.Option{
		pipeline.WithWindow(time.Duration(cfg.FetchWindowDays) * 24 * time.Hour),
	}
	if len(cfg.KafkaBrokers) > 0 {
		env.publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		opts = append(opts, pipeline.WithPublisher(env.publisher))
		logger.Info("snapshot publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	env.Runner = pipeline.New(sources, registry, merger, loader, logger, metrics, opts...)
	return env, nil
}
