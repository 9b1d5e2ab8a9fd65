package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"subwatch/internal/core"
)

type heldResult struct {
	value     []core.DetectedSubscription
	expiresAt time.Time
}

// DetectionCoordinator deduplicates concurrent detection runs per owner:
// callers asking for the same owner share one in-flight computation, and the
// finished result is held for a short grace period so a burst of requests
// right after completion still reuses it.
type DetectionCoordinator struct {
	group       singleflight.Group
	gracePeriod time.Duration

	mu   sync.Mutex
	held map[string]heldResult
}

func NewDetectionCoordinator(gracePeriod time.Duration) *DetectionCoordinator {
	return &DetectionCoordinator{
		gracePeriod: gracePeriod,
		held:        make(map[string]heldResult),
	}
}

// Detect returns the held result for key when still inside the grace period,
// otherwise runs fn once for all concurrent callers of the same key.
func (c *DetectionCoordinator) Detect(ctx context.Context, key string, fn func(context.Context) ([]core.DetectedSubscription, error)) ([]core.DetectedSubscription, error) {
	c.mu.Lock()
	if r, ok := c.held[key]; ok {
		if time.Now().Before(r.expiresAt) {
			c.mu.Unlock()
			return r.value, nil
		}
		delete(c.held, key)
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		result, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if c.gracePeriod > 0 {
			c.mu.Lock()
			c.held[key] = heldResult{value: result, expiresAt: time.Now().Add(c.gracePeriod)}
			c.mu.Unlock()
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.DetectedSubscription), nil
}

// Forget drops any held result for key so the next caller recomputes.
func (c *DetectionCoordinator) Forget(key string) {
	c.mu.Lock()
	delete(c.held, key)
	c.mu.Unlock()
	c.group.Forget(key)
}
