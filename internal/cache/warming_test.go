package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/AliTahir-101/weather-api/internal/models"
)

// mockResolver records which cities were resolved and can fail selected ones.
type mockResolver struct {
	mu       sync.Mutex
	resolved []string
	failFor  map[string]error
}

func (m *mockResolver) Resolve(ctx context.Context, city string) (models.WeatherRecord, error) {
	m.mu.Lock()
	m.resolved = append(m.resolved, city)
	m.mu.Unlock()
	if err, ok := m.failFor[city]; ok {
		return models.WeatherRecord{}, err
	}
	return models.WeatherRecord{CityName: city}, nil
}

func (m *mockResolver) resolvedCities() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int)
	for _, city := range m.resolved {
		out[city]++
	}
	return out
}

// TestCacheWarmer_Warm verifies every configured city is resolved once.
func TestCacheWarmer_Warm(t *testing.T) {
	resolver := &mockResolver{}
	warmer := NewCacheWarmer(resolver, zap.NewNop())

	cities := []string{"helsinki", "karachi", "dubai"}
	if err := warmer.Warm(context.Background(), cities); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}

	got := resolver.resolvedCities()
	for _, city := range cities {
		if got[city] != 1 {
			t.Errorf("city %q resolved %d times, want 1", city, got[city])
		}
	}
}

// TestCacheWarmer_Warm_PartialFailure verifies one failing city does not stop
// the others and the error is surfaced.
func TestCacheWarmer_Warm_PartialFailure(t *testing.T) {
	resolver := &mockResolver{
		failFor: map[string]error{"atlantis": errors.New("city not found")},
	}
	warmer := NewCacheWarmer(resolver, zap.NewNop())

	err := warmer.Warm(context.Background(), []string{"helsinki", "atlantis", "dubai"})
	if err == nil {
		t.Fatal("Warm() error = nil, want aggregated failure")
	}

	got := resolver.resolvedCities()
	if got["helsinki"] != 1 || got["dubai"] != 1 {
		t.Errorf("healthy cities resolved = %v, want both once", got)
	}
}

// TestCacheWarmer_WarmPeriodic verifies the warmer refreshes on the interval
// and stops when the context is cancelled.
func TestCacheWarmer_WarmPeriodic(t *testing.T) {
	resolver := &mockResolver{}
	warmer := NewCacheWarmer(resolver, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := warmer.WarmPeriodic(ctx, []string{"helsinki"}, 40*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WarmPeriodic() error = %v, want context.DeadlineExceeded", err)
	}

	got := resolver.resolvedCities()
	// One initial warm plus at least one tick.
	if got["helsinki"] < 2 {
		t.Errorf("helsinki resolved %d times, want >= 2", got["helsinki"])
	}
}

// TestCacheWarmer_WarmPeriodic_InitialWarmOnce verifies WarmPeriodic warms
// exactly once before the first tick, so callers must not run their own
// initial Warm alongside it.
func TestCacheWarmer_WarmPeriodic_InitialWarmOnce(t *testing.T) {
	resolver := &mockResolver{}
	warmer := NewCacheWarmer(resolver, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := warmer.WarmPeriodic(ctx, []string{"helsinki", "karachi"}, time.Hour)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("WarmPeriodic() error = %v, want context.DeadlineExceeded", err)
	}

	got := resolver.resolvedCities()
	for _, city := range []string{"helsinki", "karachi"} {
		if got[city] != 1 {
			t.Errorf("city %q resolved %d times before first tick, want exactly 1", city, got[city])
		}
	}
}
