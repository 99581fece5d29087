package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/galleryscreen/mosaic/assets"
	"github.com/galleryscreen/mosaic/display"
)

const (
	prefetchTickInterval = 2 * time.Second
	cacheSweepInterval   = 10 * time.Minute
	cacheMaxEntryAge     = time.Hour
)

func SetupInBackground(ctx context.Context, prefetcher *display.Prefetcher, cache *assets.Cache, poller *display.Poller) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	// The poller owns its own cadence (it scales with pool size) so it
	// runs as a plain goroutine rather than a fixed-interval job.
	go poller.Run(ctx)

	s.NewJob(
		gocron.DurationJob(prefetchTickInterval),
		gocron.NewTask(func() {
			if prefetcher.QueueLen() < prefetcher.TargetDepth() {
				prefetcher.EnsureAhead(ctx, prefetcher.TargetDepth())
			}
		}),
	)

	s.NewJob(
		gocron.DurationJob(cacheSweepInterval),
		gocron.NewTask(func() {
			if evicted := cache.EvictOlderThan(cacheMaxEntryAge); evicted > 0 {
				slog.Debug("Evicted stale cache entries", slog.Int("evicted", evicted))
			}
		}),
	)

	slog.Info("Jobs scheduled. Scheduler not running yet.")

	return s, nil
}
