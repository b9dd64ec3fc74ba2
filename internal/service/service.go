package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AliTahir-101/weather-api/internal/cache"
	"github.com/AliTahir-101/weather-api/internal/client"
	"github.com/AliTahir-101/weather-api/internal/models"
	"github.com/AliTahir-101/weather-api/internal/observability"
)

// WeatherService orchestrates weather resolution: normalized cache lookup,
// coalesced upstream fetch on miss, cache population on success. It owns no
// long-lived state beyond the in-flight registry inside the coalescer.
type WeatherService struct {
	client          client.WeatherClient
	cache           cache.Cache
	ttl             time.Duration
	stampedeTracker *stampedeTracker
	coalescer       *requestCoalescer
}

// NewWeatherService creates a WeatherService. ttl is the cache expiration for
// fetched records; coalesceTimeout bounds how long a waiter blocks on a
// shared in-flight fetch.
func NewWeatherService(client client.WeatherClient, cache cache.Cache, ttl time.Duration, coalesceTimeout time.Duration) *WeatherService {
	return &WeatherService{
		client:          client,
		cache:           cache,
		ttl:             ttl,
		stampedeTracker: newStampedeTracker(),
		coalescer:       newRequestCoalescer(coalesceTimeout),
	}
}

// loggerFromContext extracts a zap.Logger from request context if present.
// Returns nil if logger is not found or context is invalid.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// Resolve returns the weather record for the city, serving from cache inside
// the TTL and otherwise fetching upstream. Concurrent misses for the same
// normalized city share a single upstream call; each caller receives the same
// record or the same classified error. Failed fetches are never cached.
func (s *WeatherService) Resolve(ctx context.Context, city string) (models.WeatherRecord, error) {
	key := normalizeCity(city)
	start := time.Now()
	logger := loggerFromContext(ctx)

	getStart := time.Now()
	cached, ok, err := s.cache.Get(ctx, key)
	getDuration := time.Since(getStart).Seconds()
	if err != nil {
		// A broken cache degrades to a miss; we refetch rather than fail.
		observability.CacheErrorsTotal.WithLabelValues("get", string(client.CategorizeError(err))).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
		if logger != nil {
			logger.Warn("cache get failed", zap.String("city", key), zap.Error(err))
		}
	} else if ok {
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheHitsTotal.WithLabelValues("weather").Inc()
		if logger != nil {
			logger.Debug("weather served", zap.String("city", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		}
		return cached, nil
	}

	concurrentMisses := s.stampedeTracker.RecordMiss(key)
	defer s.stampedeTracker.RecordHit(key)
	cityLabel := observability.MetricCityLabel(key)
	if concurrentMisses > 1 {
		observability.CacheStampedeDetectedTotal.WithLabelValues(cityLabel).Inc()
		observability.CacheStampedeConcurrency.WithLabelValues(cityLabel).Observe(float64(concurrentMisses))
	}

	if logger != nil {
		logger.Debug("cache miss, fetching upstream", zap.String("city", key))
	}

	coalesceStart := time.Now()
	rec, err := s.coalescer.GetOrDo(ctx, key, func() (models.WeatherRecord, error) {
		return s.fetchAndCache(key, logger)
	})
	coalesceWait := time.Since(coalesceStart)
	if err != nil {
		return models.WeatherRecord{}, fmt.Errorf("resolve weather for %s: %w", key, err)
	}
	if coalesceWait > 10*time.Millisecond {
		observability.RequestCoalescingHitsTotal.WithLabelValues(cityLabel).Inc()
	}
	observability.RequestCoalescingWaitSeconds.Observe(coalesceWait.Seconds())

	if logger != nil {
		logger.Debug("weather served", zap.String("city", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	}
	return rec, nil
}

// fetchAndCache is the single flight executed per in-flight city: one
// upstream call, then one cache write on success. It deliberately runs on a
// background context so an abandoned originating request cannot cancel the
// fetch out from under other waiters; the client enforces its own timeout.
func (s *WeatherService) fetchAndCache(key string, logger *zap.Logger) (models.WeatherRecord, error) {
	ctx := context.Background()
	rec, err := s.client.CurrentWeather(ctx, key)
	if err != nil {
		return models.WeatherRecord{}, err
	}

	setStart := time.Now()
	if setErr := s.cache.Set(ctx, key, rec, s.ttl); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", string(client.CategorizeError(setErr))).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		if logger != nil {
			logger.Warn("cache set failed", zap.String("city", key), zap.Error(setErr))
		}
	} else {
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
	}
	return rec, nil
}

// normalizeCity trims whitespace and lowercases the city name. The result is
// the cache key, the coalescing key and the upstream query, so every layer
// sees the same canonical form.
func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
