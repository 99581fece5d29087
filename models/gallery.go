package models

// Photo is one entry in a gallery's photo pool. Identity is ID; the pool
// never contains two photos with the same ID. Immutable once fetched.
type Photo struct {
	ID           string `json:"id"`
	PrimaryURL   string `json:"primary_url"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	SourceKind   string `json:"source_kind"`
}

// LayoutSlot is one fixed-position rectangle in the display layout,
// expressed in percentage units of a 16:9 canvas.
type LayoutSlot struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// LayoutPreset is consumed once at session start and fixed thereafter.
type LayoutPreset struct {
	Name              string       `json:"name,omitempty"`
	Slots             []LayoutSlot `json:"slots"`
	GapPx             int          `json:"gap_px"`
	BorderThicknessPx int          `json:"border_thickness_px"`
	BorderColor       string       `json:"border_color"`
	BackgroundColor   string       `json:"background_color"`
}

type GalleryResponse struct {
	ShareCode string        `json:"share_code"`
	Photos    []Photo       `json:"photos"`
	Preset    *LayoutPreset `json:"preset,omitempty"`
}
