package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/AliTahir-101/weather-api/internal/cache"
	"github.com/AliTahir-101/weather-api/internal/client"
	"github.com/AliTahir-101/weather-api/internal/localization"
	"github.com/AliTahir-101/weather-api/internal/service"
)

// upstreamStub simulates the provider and counts how often it is hit.
type upstreamStub struct {
	calls int64
	delay time.Duration
}

func (u *upstreamStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&u.calls, 1)
		if u.delay > 0 {
			time.Sleep(u.delay)
		}
		city := r.URL.Query().Get("q")
		if city == "atlantis" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"name": city,
			"main": map[string]interface{}{
				"temp":     -0.39,
				"temp_min": -1.67,
				"temp_max": 0.98,
				"humidity": 85,
				"pressure": 998,
			},
			"weather": []map[string]interface{}{{"description": "clear sky"}},
			"wind":    map[string]interface{}{"speed": 12.07, "deg": 225.0},
		})
	}
}

func (u *upstreamStub) callCount() int64 {
	return atomic.LoadInt64(&u.calls)
}

// newIntegrationRouter wires the real client, cache, and service behind the
// HTTP handler against a stub provider.
func newIntegrationRouter(t *testing.T, upstream *upstreamStub, ttl time.Duration) *mux.Router {
	t.Helper()
	provider := httptest.NewServer(upstream.handler())
	t.Cleanup(provider.Close)

	wc, err := client.NewOpenWeatherClient("integration-test-key", provider.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenWeatherClient() error = %v", err)
	}
	svc := service.NewWeatherService(wc, cache.NewInMemoryCache(), ttl, 5*time.Second)
	h := NewHandler(svc, wc, &HealthConfig{StartTime: time.Now()}, zap.NewNop(), nil, localization.English, 1, 100)
	return newTestRouter(h)
}

// TestIntegration_FetchCacheLocalize walks the full pipeline: first request
// hits upstream, second is served from cache, and the Urdu variant reuses the
// same cached record.
func TestIntegration_FetchCacheLocalize(t *testing.T) {
	upstream := &upstreamStub{}
	router := newIntegrationRouter(t, upstream, 5*time.Minute)

	get := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := get("/api/v1/weather/current/Helsinki")
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	want := `{"city_name":"helsinki","temperature":-0.39,"min_temperature":-1.67,"max_temperature":0.98,"humidity":85,"pressure":998,"wind_speed":12.07,"wind_direction":"Southwest","description":"clear sky"}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Errorf("first body =\n%s\nwant\n%s", got, want)
	}
	if upstream.callCount() != 1 {
		t.Fatalf("upstream calls after first request = %d, want 1", upstream.callCount())
	}

	rec = get("/api/v1/weather/current/helsinki")
	if rec.Code != http.StatusOK {
		t.Fatalf("second request status = %d", rec.Code)
	}
	if upstream.callCount() != 1 {
		t.Errorf("upstream calls after cached request = %d, want still 1", upstream.callCount())
	}

	// Different language, same record: localization must not refetch.
	rec = get("/api/v1/weather/current/HELSINKI/ur")
	if rec.Code != http.StatusOK {
		t.Fatalf("urdu request status = %d", rec.Code)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("urdu body is not valid JSON: %v", err)
	}
	if decoded["ہوا کا رخ"] != "جنوب مغرب" {
		t.Errorf("urdu wind direction = %v, want جنوب مغرب", decoded["ہوا کا رخ"])
	}
	if upstream.callCount() != 1 {
		t.Errorf("upstream calls after urdu request = %d, want still 1", upstream.callCount())
	}
}

// TestIntegration_TTLExpiry verifies an expired cache entry triggers exactly
// one refetch.
func TestIntegration_TTLExpiry(t *testing.T) {
	upstream := &upstreamStub{}
	router := newIntegrationRouter(t, upstream, 50*time.Millisecond)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current/helsinki", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	if upstream.callCount() != 1 {
		t.Fatalf("upstream calls inside TTL = %d, want 1", upstream.callCount())
	}

	time.Sleep(60 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current/helsinki", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("post-expiry status = %d", rec.Code)
	}
	if upstream.callCount() != 2 {
		t.Errorf("upstream calls after expiry = %d, want 2", upstream.callCount())
	}
}

// TestIntegration_ConcurrentRequestsCoalesced verifies concurrent requests
// for the same cold city share one upstream fetch end to end.
func TestIntegration_ConcurrentRequestsCoalesced(t *testing.T) {
	upstream := &upstreamStub{delay: 50 * time.Millisecond}
	router := newIntegrationRouter(t, upstream, 5*time.Minute)

	const n = 10
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current/helsinki", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			codes[idx] = rec.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d status = %d, want 200", i, code)
		}
	}
	if upstream.callCount() != 1 {
		t.Errorf("upstream calls = %d, want 1 coalesced fetch", upstream.callCount())
	}
}

// TestIntegration_CityNotFound verifies an upstream 404 surfaces as a 404
// and is not cached, so a later request asks upstream again.
func TestIntegration_CityNotFound(t *testing.T) {
	upstream := &upstreamStub{}
	router := newIntegrationRouter(t, upstream, 5*time.Minute)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/weather/current/atlantis", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("request %d status = %d, want 404", i, rec.Code)
		}
		if code := decodeErrorCode(t, rec.Body.Bytes()); code != "CITY_NOT_FOUND" {
			t.Errorf("error code = %q, want CITY_NOT_FOUND", code)
		}
		// Let the failed flight clear its coalescing entry before retrying.
		time.Sleep(10 * time.Millisecond)
	}
	if upstream.callCount() != 2 {
		t.Errorf("upstream calls = %d, want 2 (failures never cached)", upstream.callCount())
	}
}
