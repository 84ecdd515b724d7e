// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

const (
	DefaultMaxRetries  = 10
	DefaultParallelism = 4

	backoffStep = 60 * time.Second
)

// BackoffFunc returns the delay before retry number attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// NewBackoff returns uniform(0, 60s) + attempt*60s. r makes the jitter
// reproducible; nil uses the global source.
func NewBackoff(r *rand.Rand) BackoffFunc {
	var mu sync.Mutex
	jitter := func() time.Duration {
		if r == nil {
			return rand.N(backoffStep)
		}
		mu.Lock()
		defer mu.Unlock()
		return time.Duration(r.Int64N(int64(backoffStep)))
	}
	return func(attempt int) time.Duration {
		return jitter() + time.Duration(max(attempt, 0))*backoffStep
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
