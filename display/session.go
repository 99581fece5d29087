package display

import (
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"

	"github.com/galleryscreen/mosaic/models"
)

// cursorResetThreshold is the point at which the cursor is folded back by
// modulo. Nowhere near overflow, it just keeps the number readable in
// logs and API payloads over a months-long session.
const cursorResetThreshold = 1 << 40

// Session owns the mutable state of one display: the photo pool, the
// rotation cursor and the layout preset. It is handed to each component
// by reference so multiple independent sessions can coexist and tests
// stay deterministic. All access goes through the lock; real goroutines
// replace the event-loop ordering the display frontend gets for free.
type Session struct {
	ID uuid.UUID

	mu     sync.RWMutex
	photos []models.Photo
	seen   map[string]struct{}
	cursor int
	preset models.LayoutPreset
	primed bool
}

func NewSession(preset models.LayoutPreset) *Session {
	return &Session{
		ID:     uuid.New(),
		seen:   map[string]struct{}{},
		preset: preset,
	}
}

func (s *Session) Preset() models.LayoutPreset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.preset
}

func (s *Session) SlotCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.preset.Slots)
}

func (s *Session) PoolSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.photos)
}

func (s *Session) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// Primed reports whether the first successful gallery fetch has happened.
func (s *Session) Primed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.primed
}

func (s *Session) PhotoIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.photos))
	for _, photo := range s.photos {
		ids = append(ids, photo.ID)
	}
	return ids
}

// ReplaceAll installs the full photo list from the first successful
// gallery fetch and shuffles it so every display session rotates in its
// own order. Later polls must use Append instead.
func (s *Session) ReplaceAll(photos []models.Photo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.photos = make([]models.Photo, len(photos))
	copy(s.photos, photos)
	rand.Shuffle(len(s.photos), func(i, j int) {
		s.photos[i], s.photos[j] = s.photos[j], s.photos[i]
	})

	s.seen = make(map[string]struct{}, len(s.photos))
	for _, photo := range s.photos {
		s.seen[photo.ID] = struct{}{}
	}
	s.cursor = 0
	s.primed = true
}

// Append adds photos whose IDs have not been seen before to the end of
// the pool. Existing order and the cursor are untouched so in-progress
// rotation is never disturbed. Returns the photos that were new.
func (s *Session) Append(photos []models.Photo) []models.Photo {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added []models.Photo
	for _, photo := range photos {
		if _, ok := s.seen[photo.ID]; ok {
			continue
		}
		s.seen[photo.ID] = struct{}{}
		s.photos = append(s.photos, photo)
		added = append(added, photo)
	}
	return added
}

// SetPreset replaces the layout. Only meaningful before the first tile
// set is generated; the preset is consumed once at session start.
func (s *Session) SetPreset(preset models.LayoutPreset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preset = preset
}

// advanceCursorLocked moves the cursor forward by n consumed slots,
// folding it back by modulo once it passes the reset threshold. The fold
// never changes cursor mod pool length, so the apparent photo sequence
// is unaffected. Callers must hold the write lock.
func (s *Session) advanceCursorLocked(n int) {
	s.cursor += n
	if s.cursor > cursorResetThreshold && len(s.photos) > 0 {
		s.cursor = s.cursor % len(s.photos)
	}
}
