package assets

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/galleryscreen/mosaic/models"
	"github.com/galleryscreen/mosaic/shared"
	"github.com/galleryscreen/mosaic/utils"
)

const (
	// An image taller or wider than this is assumed to be a decoder bug
	// rather than a real photo.
	maxSaneDimension = 16384

	defaultAttemptTimeout = 12 * time.Second
	defaultRetryBudget    = 2 // additional attempts after the first
	defaultBackoffBase    = 500 * time.Millisecond
)

// LoadResult is the terminal outcome of a successful asset fetch.
type LoadResult struct {
	Bytes           []byte
	Extension       string
	Width           int
	Height          int
	DominantColours models.SerializedColors
}

// Loader fetches a single image URL with a per-attempt timeout, a fixed
// retry budget and success verification. Deduplication of concurrent
// requests for the same URL is the cache's job, not the loader's.
type Loader struct {
	client         *http.Client
	attemptTimeout time.Duration
	retryBudget    uint64
	backoffBase    time.Duration
}

func NewLoader(client *http.Client) *Loader {
	return &Loader{
		client:         client,
		attemptTimeout: defaultAttemptTimeout,
		retryBudget:    defaultRetryBudget,
		backoffBase:    defaultBackoffBase,
	}
}

// Load fetches url, retrying transient failures until the budget is
// exhausted. Retried attempts fetch a cache-busted variant of the URL but
// callers should key any bookkeeping on the original URL.
func (l *Loader) Load(ctx context.Context, rawURL string) (*LoadResult, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("a non-empty url must be provided")
	}

	var result *LoadResult
	attempt := 0

	backoff := retry.WithMaxRetries(l.retryBudget, retry.NewFibonacci(l.backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := l.fetchOnce(ctx, rawURL, attempt)
		attempt++
		if err != nil {
			return retry.RetryableError(err)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s after %d attempts: %w", rawURL, attempt, err)
	}
	return result, nil
}

func (l *Loader) fetchOnce(ctx context.Context, rawURL string, attempt int) (*LoadResult, error) {
	ctx, cancel := context.WithTimeout(ctx, l.attemptTimeout)
	defer cancel()

	fetchURL := rawURL
	if attempt > 0 {
		fetchURL = withRetryParam(rawURL, attempt)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fetchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header = http.Header{
		"Accept":     []string{"image/*"},
		"User-Agent": []string{shared.USER_AGENT},
	}

	res, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("asset fetch returned %s", res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	extension, err := utils.DetectExtension(body)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	// A zero-dimension "success" is a failure in disguise and goes back
	// around the retry loop like any other.
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 || width > maxSaneDimension || height > maxSaneDimension {
		return nil, fmt.Errorf("decoded image has unusable dimensions %dx%d", width, height)
	}

	return &LoadResult{
		Bytes:           body,
		Extension:       extension,
		Width:           width,
		Height:          height,
		DominantColours: utils.ExtractColours(img),
	}, nil
}

// withRetryParam appends an explicit attempt marker so intermediaries
// don't serve us the same broken response twice.
func withRetryParam(rawURL string, attempt int) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := parsed.Query()
	q.Set("mosaic_retry", strconv.Itoa(attempt))
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
