package gallery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/galleryscreen/mosaic/config"
	"github.com/galleryscreen/mosaic/models"
	"github.com/galleryscreen/mosaic/shared"
)

const galleryEndpoint = "%s/api/galleries/%s/display"

// Client talks to the remote gallery service for a single share code.
type Client struct {
	cfg    config.GalleryConfig
	client *http.Client
}

func NewClient(cfg config.GalleryConfig, client *http.Client) *Client {
	return &Client{
		cfg:    cfg,
		client: client,
	}
}

// FetchGallery retrieves the gallery's current photo list and, if the
// organiser configured one, its layout preset.
func (c *Client) FetchGallery(ctx context.Context, shareCode string) (models.GalleryResponse, error) {
	var gallery models.GalleryResponse
	if shareCode == "" {
		return gallery, fmt.Errorf("a share code must be provided")
	}
	url := fmt.Sprintf(galleryEndpoint, strings.TrimSuffix(c.cfg.Origin, "/"), shareCode)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return gallery, err
	}
	req.Header = http.Header{
		"Accept":     []string{"application/json"},
		"User-Agent": []string{shared.USER_AGENT},
	}
	res, err := c.client.Do(req)
	if err != nil {
		return gallery, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return gallery, fmt.Errorf("gallery service returned %s", res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return gallery, err
	}

	if err = json.Unmarshal(body, &gallery); err != nil {
		return gallery, fmt.Errorf("failed to parse gallery response: %w", err)
	}

	return gallery, nil
}

// ResolvePhotoURL maps a photo to its fetchable asset URL. Externally
// hosted photos carry absolute URLs; everything else resolves against
// the configured backend origin.
func (c *Client) ResolvePhotoURL(p models.Photo) string {
	if p.SourceKind != "" && p.SourceKind != shared.SOURCE_KIND_DEFAULT {
		return p.PrimaryURL
	}
	if strings.HasPrefix(p.PrimaryURL, "http://") || strings.HasPrefix(p.PrimaryURL, "https://") {
		return p.PrimaryURL
	}
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(c.cfg.BackendOrigin, "/"), strings.TrimPrefix(p.PrimaryURL, "/"))
}

// DefaultPreset is the built-in 3x2 grid used when a gallery has no
// layout preset attached.
func DefaultPreset() models.LayoutPreset {
	return models.LayoutPreset{
		Name: "default-grid",
		Slots: []models.LayoutSlot{
			{X: 0, Y: 0, Width: 33.34, Height: 50},
			{X: 33.34, Y: 0, Width: 33.33, Height: 50},
			{X: 66.67, Y: 0, Width: 33.33, Height: 50},
			{X: 0, Y: 50, Width: 33.34, Height: 50},
			{X: 33.34, Y: 50, Width: 33.33, Height: 50},
			{X: 66.67, Y: 50, Width: 33.33, Height: 50},
		},
		GapPx:           8,
		BackgroundColor: "#101010",
	}
}
