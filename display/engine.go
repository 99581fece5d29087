package display

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/galleryscreen/mosaic/assets"
	"github.com/galleryscreen/mosaic/db"
	"github.com/galleryscreen/mosaic/models"
)

type State string

const (
	StateIdle          State = "idle"
	StateTransitioning State = "transitioning"
)

const (
	MinUpdateInterval     = 3 * time.Second
	MaxUpdateInterval     = 15 * time.Second
	DefaultUpdateInterval = 7 * time.Second
	DefaultFadeDuration   = 1200 * time.Millisecond
)

// ErrNotReady means the pool has no photos yet. It is a waiting state,
// not a failure; the poller keeps looking for the first upload.
var ErrNotReady = errors.New("display: no photos available yet")

// TileView is one slot's worth of render state pushed to frontends. A
// tile whose asset never loaded carries placeholder colours instead of
// an image path so the layout never shows a hole.
type TileView struct {
	Photo              models.Photo            `json:"photo"`
	Slot               models.LayoutSlot       `json:"slot"`
	Image              string                  `json:"image,omitempty"`
	Loaded             bool                    `json:"loaded"`
	PlaceholderColours models.SerializedColors `json:"placeholder_colours,omitempty"`
}

type TransitionEvent struct {
	Type        string     `json:"type"`
	ActiveIndex int        `json:"active_index"`
	Cursor      int        `json:"cursor"`
	FadeMs      int        `json:"fade_ms"`
	Tiles       []TileView `json:"tiles"`
}

type Snapshot struct {
	SessionID   string              `json:"session_id"`
	State       State               `json:"state"`
	Waiting     bool                `json:"waiting"`
	Paused      bool                `json:"paused"`
	IntervalMs  int                 `json:"interval_ms"`
	FadeMs      int                 `json:"fade_ms"`
	ActiveIndex int                 `json:"active_index"`
	ActiveTiles []TileView          `json:"active_tiles"`
	QueueDepth  int                 `json:"queue_depth"`
	PoolSize    int                 `json:"pool_size"`
	Preset      models.LayoutPreset `json:"preset"`
}

// Engine drives the visible rotation. Two layers alternate: on each tick
// the next ready tile set lands on the inactive layer, the active index
// flips and frontends crossfade between them over a fixed duration. A
// transition only ever starts from a queue-admitted set, so an unloaded
// image is never revealed.
type Engine struct {
	session    *Session
	prefetcher *Prefetcher
	cache      *assets.Cache
	resolve    func(models.Photo) string
	store      db.Store
	publish    func([]byte)

	mu          sync.Mutex
	layers      [2]TileSet
	activeIndex int
	state       State
	paused      bool
	interval    time.Duration
	fade        time.Duration
}

func NewEngine(session *Session, prefetcher *Prefetcher, cache *assets.Cache, resolve func(models.Photo) string, store db.Store, publish func([]byte)) *Engine {
	return &Engine{
		session:    session,
		prefetcher: prefetcher,
		cache:      cache,
		resolve:    resolve,
		store:      store,
		publish:    publish,
		state:      StateIdle,
		interval:   DefaultUpdateInterval,
		fade:       DefaultFadeDuration,
	}
}

func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}

// SetInterval overrides the update interval, clamped to the configured
// bounds. Takes effect from the next tick.
func (e *Engine) SetInterval(d time.Duration) time.Duration {
	if d < MinUpdateInterval {
		d = MinUpdateInterval
	}
	if d > MaxUpdateInterval {
		d = MaxUpdateInterval
	}
	e.mu.Lock()
	e.interval = d
	e.mu.Unlock()
	return d
}

func (e *Engine) SetFadeDuration(d time.Duration) {
	if d <= 0 {
		return
	}
	e.mu.Lock()
	e.fade = d
	e.mu.Unlock()
}

// Pause freezes the update timer. The prefetcher keeps filling in the
// background so Resume is instantaneous.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
}

func (e *Engine) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
}

func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Engine) CurrentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Run ticks the engine until ctx is cancelled. The first tick fires
// immediately so a primed session shows photos straight away.
func (e *Engine) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := e.Tick(ctx); err != nil {
			slog.Debug("Display not ready to rotate", slog.String("stack", err.Error()))
		}
		timer.Reset(e.Interval())
	}
}

// Tick attempts one rotation. If the queue has drained it forces a
// single emergency prefetch cycle rather than skipping, so the display
// only ever stalls when the pool itself is empty.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	if e.paused || e.state != StateIdle {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	set, ok := e.prefetcher.Pop()
	if !ok {
		e.prefetcher.EnsureAhead(ctx, 1)
		if set, ok = e.prefetcher.Pop(); !ok {
			return ErrNotReady
		}
	}

	e.mu.Lock()
	inactive := 1 - e.activeIndex
	e.layers[inactive] = set
	e.activeIndex = inactive
	e.state = StateTransitioning
	fade := e.fade
	active := e.activeIndex
	e.mu.Unlock()

	e.announce(set, active, fade)
	e.record(set)

	time.AfterFunc(fade, func() {
		e.finishTransition(ctx)
	})
	return nil
}

func (e *Engine) finishTransition(ctx context.Context) {
	e.mu.Lock()
	e.state = StateIdle
	e.mu.Unlock()
	go e.prefetcher.EnsureAhead(ctx, e.prefetcher.TargetDepth())
}

func (e *Engine) announce(set TileSet, activeIndex int, fade time.Duration) {
	if e.publish == nil {
		return
	}
	event := TransitionEvent{
		Type:        "transition",
		ActiveIndex: activeIndex,
		Cursor:      set.Cursor,
		FadeMs:      int(fade.Milliseconds()),
		Tiles:       e.tileViews(set),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to encode transition event", slog.String("stack", err.Error()))
		return
	}
	e.publish(payload)
}

func (e *Engine) record(set TileSet) {
	if e.store == nil {
		return
	}
	ids := make([]string, 0, len(set.Photos))
	for _, photo := range set.Photos {
		ids = append(ids, photo.ID)
	}
	err := e.store.RecordTransition(models.DBTransition{
		OccurredAt: time.Now().Unix(),
		Cursor:     set.Cursor,
		PhotoIDs:   strings.Join(ids, ","),
	})
	if err != nil {
		slog.Error("Failed to record transition", slog.String("stack", err.Error()))
	}
}

func (e *Engine) tileViews(set TileSet) []TileView {
	preset := e.session.Preset()
	views := make([]TileView, 0, len(set.Photos))
	for i, photo := range set.Photos {
		view := TileView{Photo: photo}
		if i < len(preset.Slots) {
			view.Slot = preset.Slots[i]
		}
		if entry, ok := e.cache.Snapshot(e.resolve(photo)); ok {
			if entry.State == assets.StateLoaded {
				view.Loaded = true
				view.Image = entry.Location
			} else {
				view.PlaceholderColours = entry.DominantColours
			}
		}
		views = append(views, view)
	}
	return views
}

// Waiting reports whether the session is still in its "no photos yet"
// state.
func (e *Engine) Waiting() bool {
	return e.session.PoolSize() == 0
}

func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	state := e.state
	paused := e.paused
	interval := e.interval
	fade := e.fade
	active := e.activeIndex
	activeSet := e.layers[active]
	e.mu.Unlock()

	return Snapshot{
		SessionID:   e.session.ID.String(),
		State:       state,
		Waiting:     e.session.PoolSize() == 0,
		Paused:      paused,
		IntervalMs:  int(interval.Milliseconds()),
		FadeMs:      int(fade.Milliseconds()),
		ActiveIndex: active,
		ActiveTiles: e.tileViews(activeSet),
		QueueDepth:  e.prefetcher.QueueLen(),
		PoolSize:    e.session.PoolSize(),
		Preset:      e.session.Preset(),
	}
}
