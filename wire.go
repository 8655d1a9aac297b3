package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/metalyz/backend/analyzer"
	"github.com/metalyz/backend/cache"
	"github.com/metalyz/backend/config"
	"github.com/metalyz/backend/history"
	"github.com/metalyz/backend/metrics"
	"github.com/metalyz/backend/stats"
)

// statsRetainMonths is how many past months of cache statistics are kept.
const statsRetainMonths = 12

// services are the long-lived components shared by every command.
type services struct {
	Analyzer *analyzer.Analyzer
	Storage  *stats.Storage
	Requests *stats.Requests
	History  *history.DB // nil when disabled
	Registry *prometheus.Registry

	closers []func() error
}

// Close releases everything buildServices opened, last opened first.
func (s *services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildServices(ctx context.Context, cfg *config.Config, logger *log.Logger) (_ *services, err error) {
	svc := &services{Registry: prometheus.NewRegistry()}
	defer func() {
		if err != nil {
			_ = svc.Close()
		}
	}()

	svc.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(svc.Registry)

	store, err := buildStore(ctx, cfg, svc)
	if err != nil {
		return nil, err
	}
	c := cache.New[analyzer.Analysis](store,
		cache.WithExpiry(cfg.CacheExpiry()),
		cache.WithMaxEntries(cfg.CacheMaxEntries),
		cache.WithLogger(logger),
	)

	svc.Storage, err = stats.NewStorage(cfg.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize statistics: %w", err)
	}
	svc.closers = append(svc.closers, svc.Storage.Shutdown)
	svc.Storage.Cleanup(statsRetainMonths)

	svc.Requests, err = stats.NewRequests(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize request statistics: %w", err)
	}
	svc.closers = append(svc.closers, svc.Requests.Save)

	opts := []analyzer.Option{
		analyzer.WithStats(svc.Storage),
		analyzer.WithMetrics(m),
		analyzer.WithLogger(logger),
	}
	if cfg.Extractor == "dom" {
		opts = append(opts, analyzer.WithExtractor(analyzer.DOMExtractor{}))
	}

	if cfg.HistoryDriver != "" {
		svc.History, err = history.Open(cfg.HistoryDriver, cfg.HistoryDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		svc.closers = append(svc.closers, svc.History.Close)
		opts = append(opts, analyzer.WithRecorder(svc.History))
	}

	fetchOpts := []analyzer.FetcherOption{analyzer.WithTimeout(cfg.FetchTimeout)}
	if cfg.UserAgent != "" {
		fetchOpts = append(fetchOpts, analyzer.WithUserAgent(cfg.UserAgent))
	}

	svc.Analyzer = analyzer.New(analyzer.NewHTTPFetcher(fetchOpts...), c, opts...)

	logger.Debug("services ready",
		"cache", cfg.CacheBackend,
		"extractor", cfg.Extractor,
		"history", cfg.HistoryDriver != "",
	)
	return svc, nil
}

func buildStore(ctx context.Context, cfg *config.Config, svc *services) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		return cache.NewMemoryStore(), nil

	case config.CacheFile:
		store, err := cache.NewFileStore(cfg.DataDir, cfg.CacheKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file cache: %w", err)
		}
		return store, nil

	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		svc.closers = append(svc.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return cache.NewRedisStore(client, cfg.CacheKey), nil

	case config.CacheS3:
		store, err := cache.NewS3Store(ctx, cache.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			Bucket:          cfg.S3Bucket,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			UsePathStyle:    cfg.S3PathStyle,
		}, cfg.CacheKey)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize s3 cache: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
}
