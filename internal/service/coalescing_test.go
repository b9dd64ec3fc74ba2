package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AliTahir-101/weather-api/internal/models"
)

// TestRequestCoalescer_SingleFlight verifies that concurrent GetOrDo calls
// for the same key execute fn exactly once and all receive its result.
func TestRequestCoalescer_SingleFlight(t *testing.T) {
	rc := newRequestCoalescer(5 * time.Second)

	var calls int32
	fn := func() (models.WeatherRecord, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return models.WeatherRecord{CityName: "helsinki", Temperature: -0.39}, nil
	}

	const n = 20
	var wg sync.WaitGroup
	results := make([]models.WeatherRecord, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx], errs[idx] = rc.GetOrDo(context.Background(), "helsinki", fn)
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("fn executed %d times, want 1", got)
	}
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d error = %v, want nil", i, errs[i])
		}
		if results[i].Temperature != -0.39 {
			t.Errorf("caller %d Temperature = %v, want -0.39", i, results[i].Temperature)
		}
	}
}

// TestRequestCoalescer_ErrorSharedByWaiters verifies that a failed flight
// delivers the same error to every waiter.
func TestRequestCoalescer_ErrorSharedByWaiters(t *testing.T) {
	rc := newRequestCoalescer(5 * time.Second)

	flightErr := errors.New("upstream exploded")
	var calls int32
	fn := func() (models.WeatherRecord, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return models.WeatherRecord{}, flightErr
	}

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, errs[idx] = rc.GetOrDo(context.Background(), "helsinki", fn)
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("fn executed %d times, want 1", got)
	}
	for i := 0; i < n; i++ {
		if !errors.Is(errs[i], flightErr) {
			t.Errorf("caller %d error = %v, want shared flight error", i, errs[i])
		}
	}
}

// TestRequestCoalescer_DistinctKeysIndependent verifies that flights for
// different keys run concurrently with one execution each.
func TestRequestCoalescer_DistinctKeysIndependent(t *testing.T) {
	rc := newRequestCoalescer(5 * time.Second)

	var calls int32
	fnFor := func(city string) func() (models.WeatherRecord, error) {
		return func() (models.WeatherRecord, error) {
			atomic.AddInt32(&calls, 1)
			time.Sleep(50 * time.Millisecond)
			return models.WeatherRecord{CityName: city}, nil
		}
	}

	keys := []string{"helsinki", "karachi", "dubai"}
	start := time.Now()
	var wg sync.WaitGroup
	for _, key := range keys {
		key := key
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := rc.GetOrDo(context.Background(), key, fnFor(key))
			if err != nil {
				t.Errorf("GetOrDo(%q) error = %v", key, err)
				return
			}
			if got.CityName != key {
				t.Errorf("GetOrDo(%q).CityName = %q", key, got.CityName)
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != int32(len(keys)) {
		t.Errorf("fn executed %d times, want %d", got, len(keys))
	}
	if elapsed := time.Since(start); elapsed > 120*time.Millisecond {
		t.Errorf("distinct keys took %v, should run in parallel", elapsed)
	}
}

// TestRequestCoalescer_EntryClearedAfterCompletion verifies that the next
// GetOrDo after a flight completes starts a fresh execution.
func TestRequestCoalescer_EntryClearedAfterCompletion(t *testing.T) {
	rc := newRequestCoalescer(5 * time.Second)

	var calls int32
	fn := func() (models.WeatherRecord, error) {
		atomic.AddInt32(&calls, 1)
		return models.WeatherRecord{CityName: "helsinki"}, nil
	}

	if _, err := rc.GetOrDo(context.Background(), "helsinki", fn); err != nil {
		t.Fatalf("first GetOrDo() error = %v", err)
	}

	// The winning goroutine deletes the registry entry after notifying
	// waiters; give it a moment.
	deadline := time.Now().Add(time.Second)
	for {
		rc.mu.Lock()
		_, exists := rc.inFlight["helsinki"]
		rc.mu.Unlock()
		if !exists {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("in-flight entry not cleared after completion")
		}
		time.Sleep(time.Millisecond)
	}

	if _, err := rc.GetOrDo(context.Background(), "helsinki", fn); err != nil {
		t.Fatalf("second GetOrDo() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("fn executed %d times, want 2 after entry cleanup", got)
	}
}

// TestRequestCoalescer_WaiterTimeout verifies that a waiter gives up after
// the coalesce timeout while the flight itself keeps running.
func TestRequestCoalescer_WaiterTimeout(t *testing.T) {
	rc := newRequestCoalescer(20 * time.Millisecond)

	release := make(chan struct{})
	var calls int32
	fn := func() (models.WeatherRecord, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return models.WeatherRecord{CityName: "helsinki"}, nil
	}

	_, err := rc.GetOrDo(context.Background(), "helsinki", fn)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("GetOrDo() error = %v, want context.DeadlineExceeded", err)
	}

	close(release)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("fn executed %d times, want 1", got)
	}
}

// TestRequestCoalescer_WaiterContextCancelled verifies that cancelling a
// waiter's context unblocks it without aborting the shared flight.
func TestRequestCoalescer_WaiterContextCancelled(t *testing.T) {
	rc := newRequestCoalescer(5 * time.Second)

	release := make(chan struct{})
	fn := func() (models.WeatherRecord, error) {
		<-release
		return models.WeatherRecord{CityName: "helsinki", Temperature: 7}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := rc.GetOrDo(ctx, "helsinki", fn)
		errCh <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("GetOrDo() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled waiter did not unblock")
	}

	// The flight still completes and serves a late joiner before cleanup.
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	got, err := rc.GetOrDo(context.Background(), "helsinki", fn)
	if err != nil {
		t.Fatalf("late GetOrDo() error = %v", err)
	}
	if got.Temperature != 7 {
		t.Errorf("late GetOrDo().Temperature = %v, want 7", got.Temperature)
	}
}
