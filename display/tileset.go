package display

import (
	"github.com/galleryscreen/mosaic/models"
)

// TileSet is one complete assignment of photos to layout slots. It is
// produced on demand, consumed by a layer once and then discarded. The
// set holds photo values, not cache entries, so cache eviction can never
// corrupt a queued set.
type TileSet struct {
	Cursor int            `json:"cursor"`
	Photos []models.Photo `json:"photos"`
}

// Generator deterministically fills layout slots from the pool for a
// given cursor position, wrapping around forever. It is the only
// component that moves the session cursor.
type Generator struct {
	session *Session
}

func NewGenerator(session *Session) *Generator {
	return &Generator{session: session}
}

// Generate produces the tile set at the shared cursor and advances the
// cursor by the slot count. An empty pool yields an empty set, which
// callers treat as "not ready" rather than an error.
func (g *Generator) Generate() TileSet {
	s := g.session
	s.mu.Lock()
	defer s.mu.Unlock()

	set := g.buildLocked(s.cursor)
	if len(set.Photos) > 0 {
		s.advanceCursorLocked(len(s.preset.Slots))
	}
	return set
}

// GenerateAt produces the tile set for an explicit base index without
// touching the cursor. The prefetcher uses it to look ahead of the
// current position.
func (g *Generator) GenerateAt(base int) TileSet {
	s := g.session
	s.mu.RLock()
	defer s.mu.RUnlock()
	return g.buildLocked(base)
}

// Consume marks one tile set's worth of slots as displayed, advancing
// the shared cursor. Called when a prefetched set leaves the queue.
func (g *Generator) Consume() {
	s := g.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.photos) == 0 {
		return
	}
	s.advanceCursorLocked(len(s.preset.Slots))
}

// buildLocked assumes at least a read lock on the session. When the pool
// is smaller than the slot count the same photo repeats across slots,
// which is correct and expected.
func (g *Generator) buildLocked(base int) TileSet {
	s := g.session
	set := TileSet{Cursor: base}
	if len(s.photos) == 0 {
		return set
	}

	slotCount := len(s.preset.Slots)
	set.Photos = make([]models.Photo, 0, slotCount)
	for i := 0; i < slotCount; i++ {
		set.Photos = append(set.Photos, s.photos[(base+i)%len(s.photos)])
	}
	return set
}
