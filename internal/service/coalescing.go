package service

import (
	"context"
	"sync"
	"time"

	"github.com/AliTahir-101/weather-api/internal/models"
)

// inFlightRequest tracks a single upstream fetch that multiple callers may
// wait for.
type inFlightRequest struct {
	mu      sync.Mutex
	result  models.WeatherRecord
	err     error
	done    bool
	waiters []chan struct{} // closed to notify waiters when result is ready
}

// requestCoalescer guarantees at most one in-flight upstream fetch per city
// key. Concurrent callers for the same key share the winner's result; callers
// for different keys proceed independently. The registry entry is removed the
// instant a fetch completes, so a later request always re-checks the cache.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightRequest
	timeout  time.Duration
}

// newRequestCoalescer creates a requestCoalescer with the specified wait
// timeout.
func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*inFlightRequest),
		timeout:  timeout,
	}
}

// GetOrDo checks if a fetch for key is already in flight. If yes, waits for
// its outcome. If no, starts fn on its own goroutine and registers the
// flight. The flight always runs to completion even if every waiter gives up;
// waiters respect ctx and the coalesce timeout.
func (rc *requestCoalescer) GetOrDo(ctx context.Context, key string, fn func() (models.WeatherRecord, error)) (models.WeatherRecord, error) {
	rc.mu.Lock()
	req, exists := rc.inFlight[key]
	if exists {
		notify := make(chan struct{})
		req.mu.Lock()
		if req.done {
			result := req.result
			err := req.err
			req.mu.Unlock()
			rc.mu.Unlock()
			if err != nil {
				return models.WeatherRecord{}, err
			}
			return result, nil
		}
		req.waiters = append(req.waiters, notify)
		req.mu.Unlock()
		rc.mu.Unlock()

		return rc.await(ctx, req, notify)
	}

	req = &inFlightRequest{
		waiters: make([]chan struct{}, 0),
	}
	rc.inFlight[key] = req
	rc.mu.Unlock()

	go func() {
		result, err := fn()

		req.mu.Lock()
		req.result = result
		req.err = err
		req.done = true
		waiters := req.waiters
		req.waiters = nil
		req.mu.Unlock()

		for _, notify := range waiters {
			close(notify)
		}

		rc.cleanup(key)
	}()

	notify := make(chan struct{})
	req.mu.Lock()
	if req.done {
		result := req.result
		err := req.err
		req.mu.Unlock()
		if err != nil {
			return models.WeatherRecord{}, err
		}
		return result, nil
	}
	req.waiters = append(req.waiters, notify)
	req.mu.Unlock()

	return rc.await(ctx, req, notify)
}

// await blocks until the flight's notify channel closes or the wait deadline
// passes.
func (rc *requestCoalescer) await(ctx context.Context, req *inFlightRequest, notify chan struct{}) (models.WeatherRecord, error) {
	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-notify:
		req.mu.Lock()
		result := req.result
		err := req.err
		req.mu.Unlock()
		if err != nil {
			return models.WeatherRecord{}, err
		}
		return result, nil
	case <-waitCtx.Done():
		return models.WeatherRecord{}, waitCtx.Err()
	}
}

// cleanup removes the in-flight entry for key. Must be called after the
// flight completes.
func (rc *requestCoalescer) cleanup(key string) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	delete(rc.inFlight, key)
}
