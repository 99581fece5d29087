package assets

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/galleryscreen/mosaic/models"
	"github.com/galleryscreen/mosaic/utils"
)

type State string

const (
	StatePending State = "pending"
	StateLoaded  State = "loaded"
	StateFailed  State = "failed"
)

const DefaultBatchWidth = 4

// Entry is the cache's record of one asset URL. The cache is an index of
// load outcomes, not the source of truth for content: tile sets hold
// photos, and the bytes themselves live in the storage dir.
type Entry struct {
	URL             string                  `json:"url"`
	State           State                   `json:"state"`
	Timestamp       time.Time               `json:"timestamp"`
	Location        string                  `json:"location,omitempty"`
	Width           int                     `json:"width,omitempty"`
	Height          int                     `json:"height,omitempty"`
	DominantColours models.SerializedColors `json:"dominant_colours,omitempty"`

	done chan struct{}
}

// Cache is a process-lifetime registry of asset load outcomes keyed by
// URL. It guarantees at most one in-flight load per URL regardless of how
// many callers ask for it concurrently.
type Cache struct {
	mu         sync.Mutex
	entries    map[string]*Entry
	loader     *Loader
	storageDir string
}

func NewCache(loader *Loader, storageDir string) *Cache {
	return &Cache{
		entries:    map[string]*Entry{},
		loader:     loader,
		storageDir: storageDir,
	}
}

// IsLoaded reports whether url has a terminal successful entry. It never
// triggers a load.
func (c *Cache) IsLoaded(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	return ok && entry.State == StateLoaded
}

// IsFailed reports whether url exhausted its retry budget. It never
// triggers a load.
func (c *Cache) IsFailed(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	return ok && entry.State == StateFailed
}

// Snapshot returns a copy of the entry for url, if one exists. Used by
// the display surface to pull placeholder colours for failed tiles.
func (c *Cache) Snapshot(url string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	if !ok {
		return Entry{}, false
	}
	snapshot := *entry
	snapshot.done = nil
	return snapshot, true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Preload ensures url has a terminal entry, delegating to the loader at
// most once no matter how many callers arrive while a load is in flight.
// A previously failed URL stays failed; it is not retried here.
func (c *Cache) Preload(ctx context.Context, url string) error {
	c.mu.Lock()
	if entry, ok := c.entries[url]; ok {
		done := entry.done
		c.mu.Unlock()
		if done != nil {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return c.terminalOutcome(url)
	}

	entry := &Entry{
		URL:       url,
		State:     StatePending,
		Timestamp: time.Now(),
		done:      make(chan struct{}),
	}
	c.entries[url] = entry
	c.mu.Unlock()

	result, err := c.loader.Load(ctx, url)

	c.mu.Lock()
	if err != nil {
		entry.State = StateFailed
		entry.Timestamp = time.Now()
	} else {
		key := utils.TileKey(url)
		if saveErr := utils.SaveTile(c.storageDir, key, result.Extension, result.Bytes); saveErr != nil {
			slog.Error("Failed to save tile to storage",
				slog.String("stack", saveErr.Error()),
				slog.String("url", url),
			)
		} else {
			entry.Location = utils.TileLocation(key, result.Extension)
		}
		entry.State = StateLoaded
		entry.Timestamp = time.Now()
		entry.Width = result.Width
		entry.Height = result.Height
		entry.DominantColours = result.DominantColours
	}
	close(entry.done)
	entry.done = nil
	c.mu.Unlock()

	return err
}

func (c *Cache) terminalOutcome(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[url]
	if !ok {
		return fmt.Errorf("no cache entry for %s", url)
	}
	if entry.State == StateFailed {
		return fmt.Errorf("asset %s previously failed to load", url)
	}
	return nil
}

// PreloadAll loads a batch of URLs with bounded parallelism and reports
// whether every one of them ended up Loaded. With failFast set, no new
// loads are issued once any failure is seen; in-flight ones finish.
func (c *Cache) PreloadAll(ctx context.Context, urls []string, concurrency int, failFast bool) bool {
	if concurrency <= 0 {
		concurrency = DefaultBatchWidth
	}

	g := new(errgroup.Group)
	g.SetLimit(concurrency)

	var failed atomic.Bool
	for _, url := range urls {
		if failFast && failed.Load() {
			break
		}
		g.Go(func() error {
			if err := c.Preload(ctx, url); err != nil {
				failed.Store(true)
				slog.Debug("Asset did not load",
					slog.String("stack", err.Error()),
					slog.String("url", url),
				)
			}
			return nil
		})
	}
	g.Wait()

	return !failed.Load()
}

// EvictOlderThan drops Loaded entries older than maxAge to bound memory
// over a long-lived session. Pending entries are never touched and a
// Loaded entry is never downgraded in place, only forgotten. Returns the
// number of evicted entries.
func (c *Cache) EvictOlderThan(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	evicted := 0
	cutoff := time.Now().Add(-maxAge)
	for url, entry := range c.entries {
		if entry.State != StateLoaded {
			continue
		}
		if entry.Timestamp.Before(cutoff) {
			delete(c.entries, url)
			evicted++
		}
	}
	return evicted
}
