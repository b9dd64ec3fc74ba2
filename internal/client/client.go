package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/AliTahir-101/weather-api/internal/models"
	"github.com/AliTahir-101/weather-api/internal/observability"
)

// WeatherClient fetches current weather for a city from the upstream provider
// and returns it as a normalized record.
type WeatherClient interface {
	CurrentWeather(ctx context.Context, city string) (models.WeatherRecord, error)
	ValidateAPIKey(ctx context.Context) error
}

// Classified upstream failures. No other component needs provider-specific
// knowledge; everything downstream matches on these sentinels.
var (
	ErrInvalidAPIKey       = errors.New("invalid API key")
	ErrCityNotFound        = errors.New("city not found")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrInvalidResponse     = errors.New("invalid provider response")
	ErrRateLimited         = errors.New("rate limited")
)

// OpenWeatherClient implements WeatherClient against the OpenWeatherMap
// current weather endpoint. Requests carry a hard timeout; the client never
// retries on its own (retry policy belongs to callers).
type OpenWeatherClient struct {
	apiKey  string
	apiURL  string
	timeout time.Duration
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewOpenWeatherClient creates a client for the given endpoint and key.
func NewOpenWeatherClient(apiKey, apiURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}

	return &OpenWeatherClient{
		apiKey:  apiKey,
		apiURL:  apiURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// SetCircuitBreaker installs an optional circuit breaker around upstream
// calls. An open circuit is reported as ErrProviderUnavailable. Wire
// BreakerSuccessful into the breaker's Settings so only genuine outages
// count against it.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *gobreaker.CircuitBreaker) {
	c.breaker = cb
}

// BreakerSuccessful reports whether err counts as a success for circuit
// breaker accounting. Only ErrProviderUnavailable (5xx, timeouts, network
// failures) signals an outage; an unknown city, a rate-limit response or a
// malformed payload says nothing about the provider being reachable and
// must not open the circuit for everyone else.
func BreakerSuccessful(err error) bool {
	return err == nil || !errors.Is(err, ErrProviderUnavailable)
}

// openWeatherResponse mirrors the subset of the provider payload we consume.
// temp_min and temp_max are pointers so an absent field can be told apart
// from a literal zero.
type openWeatherResponse struct {
	Main struct {
		Temp     float64  `json:"temp"`
		TempMin  *float64 `json:"temp_min"`
		TempMax  *float64 `json:"temp_max"`
		Humidity int      `json:"humidity"`
		Pressure int      `json:"pressure"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64  `json:"speed"`
		Deg   *float64 `json:"deg"`
	} `json:"wind"`
	Name string `json:"name"`
}

// CurrentWeather fetches and normalizes current weather for the city.
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, city string) (models.WeatherRecord, error) {
	if c.breaker == nil {
		return c.callAPI(ctx, city)
	}
	result, err := c.breaker.Execute(func() (interface{}, error) {
		rec, err := c.callAPI(ctx, city)
		if err != nil {
			return models.WeatherRecord{}, err
		}
		return rec, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return models.WeatherRecord{}, fmt.Errorf("%w: circuit open", ErrProviderUnavailable)
		}
		return models.WeatherRecord{}, err
	}
	return result.(models.WeatherRecord), nil
}

func (c *OpenWeatherClient) callAPI(ctx context.Context, city string) (models.WeatherRecord, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, city)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherRecord{}, fmt.Errorf("build request: %w", err)
	}

	corrID := extractCorrelationID(ctx)
	if corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.WeatherRecord{}, fmt.Errorf("%w: request timeout: %v", ErrProviderUnavailable, err)
		}
		return models.WeatherRecord{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(duration)

	if err := c.handleErrorResponse(resp); err != nil {
		return models.WeatherRecord{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.WeatherRecord{}, fmt.Errorf("%w: read body: %v", ErrProviderUnavailable, err)
	}

	var apiResp openWeatherResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.WeatherRecord{}, fmt.Errorf("%w: parse: %v", ErrInvalidResponse, err)
	}

	return c.mapResponse(apiResp, city)
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, city string) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *OpenWeatherClient) handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: rejected by provider", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrCityNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrProviderUnavailable, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrProviderUnavailable, resp.StatusCode)
	}

	return nil
}

// mapResponse normalizes the provider payload into a WeatherRecord. Field
// validation happens here so nothing downstream ever sees raw degrees or an
// out-of-range humidity.
func (c *OpenWeatherClient) mapResponse(apiResp openWeatherResponse, city string) (models.WeatherRecord, error) {
	if apiResp.Main.Humidity < 0 || apiResp.Main.Humidity > 100 {
		return models.WeatherRecord{}, fmt.Errorf("%w: humidity %d out of range", ErrInvalidResponse, apiResp.Main.Humidity)
	}
	if len(apiResp.Weather) == 0 {
		return models.WeatherRecord{}, fmt.Errorf("%w: missing weather block", ErrInvalidResponse)
	}
	if apiResp.Wind.Deg == nil {
		return models.WeatherRecord{}, fmt.Errorf("%w: missing wind degrees", ErrInvalidResponse)
	}

	direction, err := models.DirectionFromDegrees(*apiResp.Wind.Deg)
	if err != nil {
		return models.WeatherRecord{}, fmt.Errorf("%w: wind degrees %.1f: %v", ErrInvalidResponse, *apiResp.Wind.Deg, err)
	}

	temp := apiResp.Main.Temp
	minTemp, maxTemp := temp, temp
	if apiResp.Main.TempMin != nil {
		minTemp = *apiResp.Main.TempMin
	}
	if apiResp.Main.TempMax != nil {
		maxTemp = *apiResp.Main.TempMax
	}
	if minTemp > temp || temp > maxTemp {
		return models.WeatherRecord{}, fmt.Errorf("%w: temperature %.2f outside min/max [%.2f, %.2f]", ErrInvalidResponse, temp, minTemp, maxTemp)
	}

	displayName := apiResp.Name
	if displayName == "" {
		displayName = city
	}

	return models.WeatherRecord{
		CityName:        strings.ToLower(strings.TrimSpace(displayName)),
		Temperature:     temp,
		MinTemperature:  minTemp,
		MaxTemperature:  maxTemp,
		Humidity:        apiResp.Main.Humidity,
		Pressure:        apiResp.Main.Pressure,
		WindSpeed:       apiResp.Wind.Speed,
		WindDirection:   direction,
		DescriptionCode: descriptionCode(apiResp.Weather[0].Description),
		FetchedAt:       time.Now(),
	}, nil
}

// descriptionCode turns the provider's free-text description into the
// language-neutral key used by the localization table ("clear sky" ->
// "clear_sky").
func descriptionCode(description string) string {
	code := strings.ToLower(strings.TrimSpace(description))
	return strings.ReplaceAll(code, " ", "_")
}

func extractCorrelationID(ctx context.Context) string {
	if corrIDVal := ctx.Value("correlation_id"); corrIDVal != nil {
		if corrID, ok := corrIDVal.(string); ok {
			return corrID
		}
	}
	return ""
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

// ValidateAPIKey performs a lightweight upstream probe to confirm the API key
// is accepted. Used by the health endpoint.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := c.buildRequest(ctx, "London")
	if err != nil {
		return fmt.Errorf("build validation request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: API key is invalid or not activated", ErrInvalidAPIKey)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("validation failed: HTTP %d", resp.StatusCode)
	}

	return nil
}
