package display

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/galleryscreen/mosaic/assets"
	"github.com/galleryscreen/mosaic/models"
)

// Prefetcher keeps a FIFO queue of tile sets whose assets have already
// been pushed through the cache, so a transition never waits on the
// network. Sets are admitted even when some assets exhausted their retry
// budget; a placeholder tile beats a stalled rotation on an unattended
// screen.
type Prefetcher struct {
	session     *Session
	gen         *Generator
	cache       *assets.Cache
	resolve     func(models.Photo) string
	depth       int
	concurrency int

	mu       sync.Mutex
	queue    []TileSet
	inFlight atomic.Bool
}

func NewPrefetcher(session *Session, gen *Generator, cache *assets.Cache, resolve func(models.Photo) string, depth int) *Prefetcher {
	if depth <= 0 {
		depth = 3
	}
	return &Prefetcher{
		session:     session,
		gen:         gen,
		cache:       cache,
		resolve:     resolve,
		depth:       depth,
		concurrency: assets.DefaultBatchWidth,
	}
}

func (p *Prefetcher) TargetDepth() int {
	return p.depth
}

func (p *Prefetcher) QueueLen() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Pop removes and returns the oldest ready tile set, advancing the
// shared cursor to record that its slots have been consumed. Sets leave
// the queue strictly in the order they were admitted.
func (p *Prefetcher) Pop() (TileSet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return TileSet{}, false
	}
	set := p.queue[0]
	p.queue = p.queue[1:]
	p.gen.Consume()
	return set, true
}

// EnsureAhead tops the queue up to depth ready sets. Re-entrant calls
// while one invocation is running are no-ops, which keeps a slow batch
// from turning into a duplicate network storm. Passing depth <= 0 uses
// the configured target depth.
//
// Candidate k is generated at cursor + k*slotCount. The arithmetic is
// pop-invariant: a Pop during a fill moves the cursor and shrinks the
// queue by the same amount, so later candidates still land on the right
// base.
func (p *Prefetcher) EnsureAhead(ctx context.Context, depth int) {
	if depth <= 0 || depth > p.depth {
		depth = p.depth
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer p.inFlight.Store(false)

	for {
		if ctx.Err() != nil {
			return
		}

		p.mu.Lock()
		queued := len(p.queue)
		base := p.session.Cursor() + queued*p.session.SlotCount()
		p.mu.Unlock()

		if queued >= depth {
			return
		}

		set := p.gen.GenerateAt(base)
		if len(set.Photos) == 0 {
			// Pool not populated yet; the poller will get there.
			return
		}

		if ok := p.cache.PreloadAll(ctx, p.assetURLs(set), p.concurrency, false); !ok {
			slog.Warn("Admitting tile set with unloaded assets",
				slog.Int("cursor", set.Cursor),
			)
		}
		if ctx.Err() != nil {
			return
		}

		p.mu.Lock()
		p.queue = append(p.queue, set)
		p.mu.Unlock()
	}
}

// Prime synchronously readies the first tile set so the display has
// something to show before the first timer tick.
func (p *Prefetcher) Prime(ctx context.Context) {
	p.EnsureAhead(ctx, 1)
}

func (p *Prefetcher) assetURLs(set TileSet) []string {
	urls := make([]string, 0, len(set.Photos))
	seen := map[string]struct{}{}
	for _, photo := range set.Photos {
		url := p.resolve(photo)
		if _, ok := seen[url]; ok {
			continue
		}
		seen[url] = struct{}{}
		urls = append(urls, url)
	}
	return urls
}
