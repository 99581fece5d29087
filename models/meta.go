package models

import (
	"database/sql/driver"
	"errors"
	"strings"
)

// SerializedColors is a custom DB extension type that stores
// a string slice as a comma separate value in the database
// Example input: []string{"#020304", "#6581be"}
// Example DB value: #020304,#6581be
type SerializedColors []string

func (s SerializedColors) Value() (driver.Value, error) {
	return strings.Join(s, ","), nil
}

func (s *SerializedColors) Scan(src interface{}) error {
	var source []string
	switch src.(type) {
	case string:
		source = strings.Split(src.(string), ",")
	default:
		return errors.New("incompatible type for SerializedColors")
	}
	*s = SerializedColors(source)
	return nil
}

// DBPhoto mirrors a gallery photo plus whatever the asset cache has
// learned about it, so a restarted session can warm-start.
type DBPhoto struct {
	ID              string           `json:"id" db:"id"`
	PrimaryURL      string           `json:"primary_url" db:"primary_url"`
	ThumbnailURL    string           `json:"thumbnail_url" db:"thumbnail_url"`
	SourceKind      string           `json:"source_kind" db:"source_kind"`
	FirstSeenAt     int64            `json:"first_seen_at" db:"first_seen_at"`
	Image           string           `json:"image" db:"image"`
	DominantColours SerializedColors `json:"dominant_colours" db:"dominant_colours"`
}

// DBTransition records one completed rotation of the display.
type DBTransition struct {
	ID         uint   `json:"id" db:"id"`
	OccurredAt int64  `json:"occurred_at" db:"occurred_at"`
	Cursor     int    `json:"cursor" db:"cursor"`
	PhotoIDs   string `json:"photo_ids" db:"photo_ids"`
}

type ResponseTransition struct {
	OccurredAt string   `json:"occurred_at"`
	Cursor     int      `json:"cursor"`
	PhotoIDs   []string `json:"photo_ids"`
}
