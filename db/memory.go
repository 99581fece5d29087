package db

import (
	"embed"
	"sort"
	"sync"

	"github.com/galleryscreen/mosaic/models"
)

// MemoryStore keeps everything in process memory. Used by tests and as a
// fallback when no DB path is configured.
type MemoryStore struct {
	m           sync.Mutex
	photos      map[string]models.DBPhoto
	transitions []models.DBTransition
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		photos: map[string]models.DBPhoto{},
	}
}

func (ms *MemoryStore) ApplyMigrations(migrations embed.FS) error {
	return nil
}

func (ms *MemoryStore) UpsertPhoto(photo models.DBPhoto) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	ms.photos[photo.ID] = photo
	return nil
}

func (ms *MemoryStore) GetPhotos() ([]models.DBPhoto, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	photos := make([]models.DBPhoto, 0, len(ms.photos))
	for _, photo := range ms.photos {
		photos = append(photos, photo)
	}
	sort.Slice(photos, func(i, j int) bool {
		return photos[i].FirstSeenAt < photos[j].FirstSeenAt
	})
	return photos, nil
}

func (ms *MemoryStore) RecordTransition(transition models.DBTransition) error {
	ms.m.Lock()
	defer ms.m.Unlock()
	transition.ID = uint(len(ms.transitions) + 1)
	ms.transitions = append(ms.transitions, transition)
	return nil
}

func (ms *MemoryStore) GetRecentTransitions(limit int) ([]models.DBTransition, error) {
	ms.m.Lock()
	defer ms.m.Unlock()
	transitions := []models.DBTransition{}
	for i := len(ms.transitions) - 1; i >= 0 && len(transitions) < limit; i-- {
		transitions = append(transitions, ms.transitions[i])
	}
	return transitions, nil
}
