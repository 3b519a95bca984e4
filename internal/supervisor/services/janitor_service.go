// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package services

import (
	"context"
	"time"

	"github.com/tomtom215/locus/internal/logging"
)

// Sweeper removes expired entries and reports how many were removed.
// Satisfied by *cache.TieredStore.
type Sweeper interface {
	CleanupExpired() int
}

// JanitorService periodically sweeps expired cache entries. Entries also
// expire lazily on read, so the sweep only bounds memory held by keys that
// are never looked up again.
type JanitorService struct {
	sweeper  Sweeper
	interval time.Duration
	name     string
}

// NewJanitorService creates the cache janitor.
func NewJanitorService(sweeper Sweeper, interval time.Duration) *JanitorService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &JanitorService{
		sweeper:  sweeper,
		interval: interval,
		name:     "cache-janitor",
	}
}

// Serve implements suture.Service. Sweeps on every tick until the context
// is canceled.
func (j *JanitorService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := j.sweeper.CleanupExpired(); removed > 0 {
				logging.Debug().
					Int("removed", removed).
					Msg("Cache janitor sweep completed")
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// String implements fmt.Stringer so suture log messages name the service.
func (j *JanitorService) String() string {
	return j.name
}
