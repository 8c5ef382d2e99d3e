// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle enforces a minimum interval between requests to one source. The
// first request passes immediately; each following request waits until the
// interval since the previous one has elapsed.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle returns a throttle for the given interval. A non-positive
// interval disables throttling.
func NewThrottle(interval time.Duration) *Throttle {
	if interval <= 0 {
		return &Throttle{}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request may be sent or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil || t.limiter == nil {
		return ctx.Err()
	}
	return t.limiter.Wait(ctx)
}
