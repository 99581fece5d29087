package gallery

import (
	"context"
	"net/http"
	"testing"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryscreen/mosaic/config"
	"github.com/galleryscreen/mosaic/models"
)

func testClient() *Client {
	return NewClient(config.GalleryConfig{
		Origin:        "http://gallery.test",
		BackendOrigin: "http://backend.test",
	}, &http.Client{})
}

func TestFetchGallery(t *testing.T) {
	defer gock.Off()

	gock.New("http://gallery.test").
		Get("/api/galleries/abc123/display").
		Reply(200).
		JSON(models.GalleryResponse{
			ShareCode: "abc123",
			Photos: []models.Photo{
				{ID: "p1", PrimaryURL: "/photos/p1.jpg"},
				{ID: "p2", PrimaryURL: "https://cdn.test/p2.jpg", SourceKind: "external"},
			},
			Preset: &models.LayoutPreset{
				Name:  "two-up",
				Slots: []models.LayoutSlot{{Width: 50, Height: 100}, {X: 50, Width: 50, Height: 100}},
			},
		})

	gallery, err := testClient().FetchGallery(context.Background(), "abc123")
	require.NoError(t, err)

	assert.Equal(t, "abc123", gallery.ShareCode)
	require.Len(t, gallery.Photos, 2)
	assert.Equal(t, "p1", gallery.Photos[0].ID)
	require.NotNil(t, gallery.Preset)
	assert.Equal(t, "two-up", gallery.Preset.Name)
	assert.Len(t, gallery.Preset.Slots, 2)
}

func TestFetchGallery_MissingShareCode(t *testing.T) {
	_, err := testClient().FetchGallery(context.Background(), "")
	assert.Error(t, err)
}

func TestFetchGallery_ServerError(t *testing.T) {
	defer gock.Off()

	gock.New("http://gallery.test").
		Get("/api/galleries/abc123/display").
		Reply(503)

	_, err := testClient().FetchGallery(context.Background(), "abc123")
	assert.Error(t, err)
}

func TestFetchGallery_MalformedBody(t *testing.T) {
	defer gock.Off()

	gock.New("http://gallery.test").
		Get("/api/galleries/abc123/display").
		Reply(200).
		BodyString("<html>not json</html>")

	_, err := testClient().FetchGallery(context.Background(), "abc123")
	assert.Error(t, err)
}

func TestResolvePhotoURL(t *testing.T) {
	t.Parallel()
	client := testClient()

	// Externally hosted photos are fetched as-is.
	assert.Equal(t, "https://cdn.test/p.jpg", client.ResolvePhotoURL(models.Photo{
		PrimaryURL: "https://cdn.test/p.jpg",
		SourceKind: "external",
	}))

	// Default-kind relative paths resolve against the backend origin.
	assert.Equal(t, "http://backend.test/photos/p.jpg", client.ResolvePhotoURL(models.Photo{
		PrimaryURL: "/photos/p.jpg",
		SourceKind: "default",
	}))

	// An absolute URL is left alone even for default-kind photos.
	assert.Equal(t, "http://backend.test/photos/p.jpg", client.ResolvePhotoURL(models.Photo{
		PrimaryURL: "http://backend.test/photos/p.jpg",
	}))
}

func TestDefaultPreset(t *testing.T) {
	t.Parallel()
	preset := DefaultPreset()
	assert.Len(t, preset.Slots, 6)

	// The grid tiles the full frame.
	var area float64
	for _, slot := range preset.Slots {
		area += slot.Width * slot.Height
	}
	assert.InDelta(t, 10000, area, 1)
}
