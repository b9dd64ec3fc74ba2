package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/AliTahir-101/weather-api/internal/client"
	"github.com/AliTahir-101/weather-api/internal/lifecycle"
	"github.com/AliTahir-101/weather-api/internal/localization"
	"github.com/AliTahir-101/weather-api/internal/models"
	"github.com/AliTahir-101/weather-api/internal/observability"
	"github.com/AliTahir-101/weather-api/internal/validation"
)

// WeatherResolver is the service-layer dependency of the weather handler.
type WeatherResolver interface {
	Resolve(ctx context.Context, city string) (models.WeatherRecord, error)
}

// HealthConfig holds dependencies for the health handler.
type HealthConfig struct {
	StartTime time.Time
	// CachePing, when set, is called to check cache reachability. Used when
	// the backend is memcached.
	CachePing func() error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	resolver         WeatherResolver
	client           client.WeatherClient
	healthConfig     *HealthConfig
	logger           *zap.Logger
	rateLimiter      *rate.Limiter
	defaultLang      localization.Language
	cityMinLength    int
	cityMaxLength    int
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. defaultLang is used when the request path
// carries no language segment.
func NewHandler(
	resolver WeatherResolver,
	client client.WeatherClient,
	healthConfig *HealthConfig,
	logger *zap.Logger,
	rateLimiter *rate.Limiter,
	defaultLang localization.Language,
	cityMinLength, cityMaxLength int,
) *Handler {
	return &Handler{
		resolver:      resolver,
		client:        client,
		healthConfig:  healthConfig,
		logger:        logger,
		rateLimiter:   rateLimiter,
		defaultLang:   defaultLang,
		cityMinLength: cityMinLength,
		cityMaxLength: cityMaxLength,
	}
}

// GetCurrentWeather handles GET /api/v1/weather/current/{city} and
// GET /api/v1/weather/current/{city}/{lang}.
func (h *Handler) GetCurrentWeather(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	city, err := validation.ValidateCity(vars["city"], h.cityMinLength, h.cityMaxLength)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
		return
	}

	lang := h.defaultLang
	if raw, ok := vars["lang"]; ok && raw != "" {
		lang = localization.Language(strings.ToLower(strings.TrimSpace(raw)))
	}
	// Reject an unknown language before touching cache or upstream;
	// localization failure is independent of fetch success.
	if !localization.Supported(lang) {
		observability.LocalizedRendersTotal.WithLabelValues(string(lang), "unsupported").Inc()
		writeError(w, r, http.StatusBadRequest, "UNSUPPORTED_LANGUAGE", "language not supported: "+string(lang))
		return
	}

	observability.RecordWeatherQuery(city)
	record, err := h.resolver.Resolve(r.Context(), city)
	if err != nil {
		writeResolveError(w, r, err)
		return
	}

	payload, err := localization.Render(record, lang)
	if err != nil {
		observability.LocalizedRendersTotal.WithLabelValues(string(lang), "error").Inc()
		if errors.Is(err, localization.ErrUnsupportedLanguage) {
			writeError(w, r, http.StatusBadRequest, "UNSUPPORTED_LANGUAGE", "language not supported: "+string(lang))
			return
		}
		writeError(w, r, http.StatusInternalServerError, "RENDER_FAILED", "unable to render weather data")
		return
	}
	observability.LocalizedRendersTotal.WithLabelValues(string(lang), "success").Inc()
	writeJSON(w, http.StatusOK, payload)
}

// writeResolveError maps classified fetch errors to HTTP statuses. Every
// failure surfaces typed; nothing degrades to a silent default value.
func writeResolveError(w http.ResponseWriter, r *http.Request, err error) {
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("resolve failed", zap.Error(err), zap.String("category", string(client.CategorizeError(err))))
	}
	switch {
	case errors.Is(err, client.ErrCityNotFound):
		writeError(w, r, http.StatusNotFound, "CITY_NOT_FOUND", "city not found")
	case errors.Is(err, client.ErrRateLimited):
		writeError(w, r, http.StatusTooManyRequests, "PROVIDER_RATE_LIMITED", "weather provider rate limit exceeded, try again later")
	case errors.Is(err, client.ErrInvalidResponse):
		writeError(w, r, http.StatusBadGateway, "INVALID_PROVIDER_RESPONSE", "weather provider returned an unusable response")
	default:
		// ErrProviderUnavailable, timeouts, coalesce wait expiry, cache
		// backend trouble: the provider could not be reached in time.
		writeError(w, r, http.StatusServiceUnavailable, "PROVIDER_UNAVAILABLE", "unable to fetch weather data, try again later")
	}
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := make(map[string]string)
	if result.reason == "api_key_invalid" {
		checks["weatherApi"] = "unhealthy"
	} else {
		checks["weatherApi"] = "healthy"
	}
	if h.healthConfig != nil && h.healthConfig.CachePing != nil {
		if h.healthConfig.CachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
		}
	}
	resp := map[string]interface{}{
		"status":    result.status,
		"service":   "weather-api",
		"version":   "dev",
		"languages": localization.Languages(),
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(result.statusCode)
	_ = json.NewEncoder(w).Encode(resp)
}

// computeHealthStatus determines the current health status. Decision order:
// shutting-down > API key invalid > healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if err := h.client.ValidateAPIKey(ctx); err != nil {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_invalid"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Responses carry an explicit UTF-8 charset since Urdu and Arabic payloads
// are non-Latin.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code,
// message, and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
