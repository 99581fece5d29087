package display

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/galleryscreen/mosaic/models"
)

func TestReplaceAll_ShufflesAndSeeds(t *testing.T) {
	t.Parallel()
	session := NewSession(testPreset(4))
	session.ReplaceAll(testPhotos(30))

	assert.Equal(t, 30, session.PoolSize())
	assert.True(t, session.Primed())
	assert.Equal(t, 0, session.Cursor())

	// Every photo survives the shuffle exactly once.
	seen := map[string]int{}
	for _, id := range session.PhotoIDs() {
		seen[id]++
	}
	assert.Len(t, seen, 30)
	for id, count := range seen {
		assert.Equal(t, 1, count, "photo %s duplicated by shuffle", id)
	}
}

func TestAppend_OnlyAddsUnseenPhotos(t *testing.T) {
	t.Parallel()
	session := NewSession(testPreset(4))
	initial := testPhotos(8)
	session.ReplaceAll(initial)

	orderBefore := session.PhotoIDs()

	// Re-poll result: the same 8 photos plus 2 new uploads.
	repoll := append(testPhotos(8), models.Photo{ID: "photo-8"}, models.Photo{ID: "photo-9"})
	added := session.Append(repoll)

	assert.Len(t, added, 2)
	assert.Equal(t, 10, session.PoolSize())
	assert.Equal(t, 0, session.Cursor())

	orderAfter := session.PhotoIDs()
	assert.Equal(t, orderBefore, orderAfter[:8], "existing rotation order must be untouched")
	assert.ElementsMatch(t, []string{"photo-8", "photo-9"}, orderAfter[8:])

	// A third poll with nothing new is a no-op.
	assert.Empty(t, session.Append(repoll))
	assert.Equal(t, 10, session.PoolSize())
}

func TestAppend_DoesNotDisturbCursor(t *testing.T) {
	t.Parallel()
	session := NewSession(testPreset(4))
	session.ReplaceAll(testPhotos(8))
	gen := NewGenerator(session)

	gen.Generate()
	gen.Generate()
	assert.Equal(t, 8, session.Cursor())

	session.Append([]models.Photo{{ID: "photo-late"}})
	assert.Equal(t, 8, session.Cursor())
}
