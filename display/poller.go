package display

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/galleryscreen/mosaic/assets"
	"github.com/galleryscreen/mosaic/db"
	"github.com/galleryscreen/mosaic/gallery"
	"github.com/galleryscreen/mosaic/models"
)

// emptyPoolAlertAfter is how long the pool may stay empty after priming
// before the operator gets a nudge.
const emptyPoolAlertAfter = 5 * time.Minute

type PoolEvent struct {
	Type     string   `json:"type"`
	PoolSize int      `json:"pool_size"`
	AddedIDs []string `json:"added_ids,omitempty"`
}

// Poller keeps the pool in sync with the remote gallery while uploads
// are still arriving. The first successful fetch replaces and shuffles
// the pool; every later poll only appends unseen photos so rotation
// order and the cursor are never disturbed.
type Poller struct {
	session   *Session
	gallery   *gallery.Client
	cache     *assets.Cache
	store     db.Store
	shareCode string
	publish   func([]byte)
	notify    func(title, message string)

	kick     chan struct{}
	primedAt time.Time
	alerted  bool
}

func NewPoller(session *Session, client *gallery.Client, cache *assets.Cache, store db.Store, shareCode string, publish func([]byte), notify func(title, message string)) *Poller {
	return &Poller{
		session:   session,
		gallery:   client,
		cache:     cache,
		store:     store,
		shareCode: shareCode,
		publish:   publish,
		notify:    notify,
		kick:      make(chan struct{}, 1),
	}
}

// PollInterval picks the polling cadence for the current pool size.
// Young galleries are polled aggressively so the screen fills up fast;
// established ones back off to spare the gallery service.
func PollInterval(poolSize int) time.Duration {
	switch {
	case poolSize < 10:
		return 10 * time.Second
	case poolSize < 20:
		return 15 * time.Second
	case poolSize < 30:
		return 20 * time.Second
	case poolSize <= 50:
		return 30 * time.Second
	default:
		return 45 * time.Second
	}
}

// Prime performs the initial blocking gallery fetch. Unlike steady-state
// polls, a failure here is surfaced to the caller: the display does not
// start without a first answer from the gallery service.
func (p *Poller) Prime(ctx context.Context) error {
	if err := p.Poll(ctx); err != nil {
		return err
	}
	p.primedAt = time.Now()
	return nil
}

// Poll fetches the gallery's current photo list and merges it into the
// pool. Steady-state callers absorb the returned error; polling failures
// keep the previous pool and the next attempt stays on schedule.
func (p *Poller) Poll(ctx context.Context) error {
	response, err := p.gallery.FetchGallery(ctx, p.shareCode)
	if err != nil {
		return err
	}

	var added []models.Photo
	if !p.session.Primed() {
		preset := gallery.DefaultPreset()
		if response.Preset != nil && len(response.Preset.Slots) > 0 {
			preset = *response.Preset
		}
		p.session.SetPreset(preset)
		p.session.ReplaceAll(response.Photos)
		added = response.Photos
	} else {
		added = p.session.Append(response.Photos)
	}

	if len(added) > 0 {
		slog.Info("Merged new photos into pool",
			slog.Int("added", len(added)),
			slog.Int("pool_size", p.session.PoolSize()),
		)
		p.persist(added)
		go p.warm(ctx, added)
		p.announce(added)
	}

	p.checkEmptyPool()

	return nil
}

// Run polls forever, re-deriving the interval from the pool size after
// every pass. A kick from the gallery webhook short-circuits the wait.
func (p *Poller) Run(ctx context.Context) {
	for {
		timer := time.NewTimer(PollInterval(p.session.PoolSize()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-p.kick:
			timer.Stop()
		case <-timer.C:
		}

		if err := p.Poll(ctx); err != nil {
			slog.Error("Failed to poll gallery", slog.String("stack", err.Error()))
		}
	}
}

// PollNow asks the run loop to poll at the next opportunity. Used by the
// upload webhook so fresh photos appear without waiting out the interval.
func (p *Poller) PollNow() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// warm pushes newly discovered photos through the asset cache at low
// width so they are ready by the time the cursor reaches them. This is
// deliberately independent of the prefetch queue.
func (p *Poller) warm(ctx context.Context, photos []models.Photo) {
	urls := make([]string, 0, len(photos))
	for _, photo := range photos {
		urls = append(urls, p.gallery.ResolvePhotoURL(photo))
	}
	p.cache.PreloadAll(ctx, urls, 2, false)

	// Fold what the cache learned back into the photo records.
	for _, photo := range photos {
		entry, ok := p.cache.Snapshot(p.gallery.ResolvePhotoURL(photo))
		if !ok || entry.State != assets.StateLoaded {
			continue
		}
		err := p.store.UpsertPhoto(models.DBPhoto{
			ID:              photo.ID,
			PrimaryURL:      photo.PrimaryURL,
			ThumbnailURL:    photo.ThumbnailURL,
			SourceKind:      photo.SourceKind,
			FirstSeenAt:     time.Now().Unix(),
			Image:           entry.Location,
			DominantColours: entry.DominantColours,
		})
		if err != nil {
			slog.Error("Failed to update photo record",
				slog.String("stack", err.Error()),
				slog.String("photo_id", photo.ID),
			)
		}
	}
}

func (p *Poller) persist(photos []models.Photo) {
	now := time.Now().Unix()
	for _, photo := range photos {
		err := p.store.UpsertPhoto(models.DBPhoto{
			ID:           photo.ID,
			PrimaryURL:   photo.PrimaryURL,
			ThumbnailURL: photo.ThumbnailURL,
			SourceKind:   photo.SourceKind,
			FirstSeenAt:  now,
		})
		if err != nil {
			slog.Error("Failed to persist photo",
				slog.String("stack", err.Error()),
				slog.String("photo_id", photo.ID),
			)
		}
	}
}

func (p *Poller) announce(added []models.Photo) {
	if p.publish == nil {
		return
	}
	ids := make([]string, 0, len(added))
	for _, photo := range added {
		ids = append(ids, photo.ID)
	}
	payload, err := json.Marshal(PoolEvent{
		Type:     "pool",
		PoolSize: p.session.PoolSize(),
		AddedIDs: ids,
	})
	if err != nil {
		return
	}
	p.publish(payload)
}

func (p *Poller) checkEmptyPool() {
	if p.session.PoolSize() > 0 {
		p.alerted = false
		return
	}
	if p.notify == nil || p.alerted || p.primedAt.IsZero() {
		return
	}
	if time.Since(p.primedAt) < emptyPoolAlertAfter {
		return
	}
	p.alerted = true
	p.notify("Mosaic is waiting on photos", "The gallery has been empty since the display started. Check that uploads are reaching it.")
}
