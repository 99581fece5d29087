package utils

import (
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	color_extractor "github.com/marekm4/color-extractor"
)

// TileKey derives a stable filesystem-safe key for an asset URL. Retried
// fetches use cache-busted URL variants so the key is always computed from
// the original URL, never the fetched one.
func TileKey(url string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(url))
}

func TileLocation(key, extension string) string {
	return fmt.Sprintf("/static/tile.%s.%s", key, extension)
}

func DetectExtension(body []byte) (string, error) {
	mimeType := http.DetectContentType(body)
	switch mimeType {
	case "image/jpeg":
		return "jpeg", nil
	case "image/png":
		return "png", nil
	case "image/gif":
		return "gif", nil
	case "image/webp":
		return "webp", nil
	}
	return "", fmt.Errorf("unsupported image type %s", mimeType)
}

func ExtractColours(img image.Image) []string {
	var domColours []string
	colours := color_extractor.ExtractColors(img)
	for _, c := range colours {
		domColours = append(domColours, colorToHexString(c))
	}
	return domColours
}

func SaveTile(storageDir, key, extension string, data []byte) error {
	return os.WriteFile(filepath.Join(storageDir, fmt.Sprintf("tile.%s.%s", key, extension)), data, 0644)
}

func LoadTile(storageDir, key, extension string) ([]byte, error) {
	return os.ReadFile(filepath.Join(storageDir, fmt.Sprintf("tile.%s.%s", key, extension)))
}

func colorToHexString(c color.Color) string {
	r, g, b, a := c.RGBA()
	rgba := color.RGBA{uint8(r), uint8(g), uint8(b), uint8(a)}
	return fmt.Sprintf("#%.2x%.2x%.2x", rgba.R, rgba.G, rgba.B)
}
