package shared

const (
	SOURCE_KIND_DEFAULT  = "default"
	SOURCE_KIND_EXTERNAL = "external"

	EVENT_STREAM_DISPLAY = "display"

	USER_AGENT = "Mosaic/1.0 <github.com/galleryscreen/mosaic>"
)
