package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"subwatch/internal/core"
)

func TestCoordinatorSharesInFlightComputation(t *testing.T) {
	coordinator := NewDetectionCoordinator(0)

	var calls atomic.Int32
	release := make(chan struct{})
	fn := func(ctx context.Context) ([]core.DetectedSubscription, error) {
		calls.Add(1)
		<-release
		return []core.DetectedSubscription{{MerchantName: "Spotify"}}, nil
	}

	var wg sync.WaitGroup
	results := make([][]core.DetectedSubscription, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := coordinator.Detect(context.Background(), "owner-1", fn)
			if err != nil {
				t.Errorf("detect: %v", err)
				return
			}
			results[i] = r
		}(i)
	}

	// Give the goroutines time to pile onto the same key before releasing.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 computation, got %d", got)
	}
	for i, r := range results {
		if len(r) != 1 || r[0].MerchantName != "Spotify" {
			t.Fatalf("caller %d got unexpected result %+v", i, r)
		}
	}
}

func TestCoordinatorGracePeriodReuse(t *testing.T) {
	coordinator := NewDetectionCoordinator(time.Minute)

	var calls atomic.Int32
	fn := func(ctx context.Context) ([]core.DetectedSubscription, error) {
		calls.Add(1)
		return nil, nil
	}

	for i := 0; i < 3; i++ {
		if _, err := coordinator.Detect(context.Background(), "owner-1", fn); err != nil {
			t.Fatalf("detect: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("held result must be reused inside the grace period, got %d calls", got)
	}
}

func TestCoordinatorForget(t *testing.T) {
	coordinator := NewDetectionCoordinator(time.Minute)

	var calls atomic.Int32
	fn := func(ctx context.Context) ([]core.DetectedSubscription, error) {
		calls.Add(1)
		return nil, nil
	}

	if _, err := coordinator.Detect(context.Background(), "owner-1", fn); err != nil {
		t.Fatalf("detect: %v", err)
	}
	coordinator.Forget("owner-1")
	if _, err := coordinator.Detect(context.Background(), "owner-1", fn); err != nil {
		t.Fatalf("detect: %v", err)
	}

	if got := calls.Load(); got != 2 {
		t.Fatalf("Forget must force recomputation, got %d calls", got)
	}
}

func TestCoordinatorErrorNotHeld(t *testing.T) {
	coordinator := NewDetectionCoordinator(time.Minute)

	var calls atomic.Int32
	fn := func(ctx context.Context) ([]core.DetectedSubscription, error) {
		calls.Add(1)
		return nil, context.DeadlineExceeded
	}

	for i := 0; i < 2; i++ {
		if _, err := coordinator.Detect(context.Background(), "owner-1", fn); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("errors must not be held, got %d calls", got)
	}
}
