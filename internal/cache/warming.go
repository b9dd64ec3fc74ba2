package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/AliTahir-101/weather-api/internal/models"
	"github.com/AliTahir-101/weather-api/internal/observability"
)

// WeatherResolver is implemented by the service layer to resolve weather for
// a city. Used by CacheWarmer to avoid a circular dependency on the service
// package; going through the resolver means warm misses coalesce with any
// concurrent user request for the same city.
type WeatherResolver interface {
	Resolve(ctx context.Context, city string) (models.WeatherRecord, error)
}

// CacheWarmer warms the cache by prefetching weather for a list of cities.
type CacheWarmer struct {
	resolver WeatherResolver
	logger   *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given resolver and logger.
func NewCacheWarmer(resolver WeatherResolver, logger *zap.Logger) *CacheWarmer {
	return &CacheWarmer{resolver: resolver, logger: logger}
}

// Warm resolves weather for each city concurrently, populating the cache as a
// side effect. Returns an error if any city failed (aggregated).
func (w *CacheWarmer) Warm(ctx context.Context, cities []string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("cities", len(cities)))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(cities))
	for _, city := range cities {
		city := city
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.resolver.Resolve(ctx, city)
			if err != nil {
				errCh <- fmt.Errorf("warm %s: %w", city, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("cache warming complete", zap.Int("cities", len(cities)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *CacheWarmer) WarmPeriodic(ctx context.Context, cities []string, interval time.Duration) error {
	if err := w.Warm(ctx, cities); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, cities); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
