package display

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galleryscreen/mosaic/assets"
	"github.com/galleryscreen/mosaic/models"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	return buf.Bytes()
}

// assetServer serves a valid PNG for every path except those under /bad/.
func assetServer(t *testing.T) *httptest.Server {
	t.Helper()
	body := pngBytes(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if bytes.HasPrefix([]byte(r.URL.Path), []byte("/bad/")) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(body)
	}))
	t.Cleanup(server.Close)
	return server
}

func hostedPhotos(serverURL string, n int) []models.Photo {
	photos := make([]models.Photo, 0, n)
	for i := 0; i < n; i++ {
		photos = append(photos, models.Photo{
			ID:         fmt.Sprintf("photo-%d", i),
			PrimaryURL: fmt.Sprintf("%s/photo-%d.png", serverURL, i),
			SourceKind: "external",
		})
	}
	return photos
}

func resolvePrimary(p models.Photo) string {
	return p.PrimaryURL
}

// freshClient avoids http.DefaultTransport so tests that talk to a real
// httptest server can run alongside gock-based ones.
func freshClient() *http.Client {
	return &http.Client{Transport: &http.Transport{}}
}

func testPrefetcher(t *testing.T, poolSize, slotCount, depth int) (*Prefetcher, *Session, *assets.Cache) {
	t.Helper()
	server := assetServer(t)
	session := NewSession(testPreset(slotCount))
	session.ReplaceAll(hostedPhotos(server.URL, poolSize))
	cache := assets.NewCache(assets.NewLoader(freshClient()), t.TempDir())
	gen := NewGenerator(session)
	return NewPrefetcher(session, gen, cache, resolvePrimary, depth), session, cache
}

func TestEnsureAhead_ConvergesToTargetDepth(t *testing.T) {
	t.Parallel()
	prefetcher, _, _ := testPrefetcher(t, 10, 3, 3)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		prefetcher.EnsureAhead(ctx, 3)
		assert.Equal(t, 3, prefetcher.QueueLen(), "queue should hold exactly the target depth")
	}

	_, ok := prefetcher.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, prefetcher.QueueLen())

	prefetcher.EnsureAhead(ctx, 3)
	assert.Equal(t, 3, prefetcher.QueueLen())
}

func TestEnsureAhead_SetsLeaveInFIFOOrder(t *testing.T) {
	t.Parallel()
	prefetcher, session, _ := testPrefetcher(t, 10, 3, 3)
	ctx := context.Background()

	prefetcher.EnsureAhead(ctx, 3)

	first, ok := prefetcher.Pop()
	require.True(t, ok)
	assert.Equal(t, 0, first.Cursor)
	assert.Equal(t, 3, session.Cursor(), "popping must consume the set's slots")

	second, ok := prefetcher.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, second.Cursor)

	third, ok := prefetcher.Pop()
	require.True(t, ok)
	assert.Equal(t, 6, third.Cursor)
}

func TestEnsureAhead_EmptyPoolAdmitsNothing(t *testing.T) {
	t.Parallel()
	session := NewSession(testPreset(3))
	cache := assets.NewCache(assets.NewLoader(freshClient()), t.TempDir())
	prefetcher := NewPrefetcher(session, NewGenerator(session), cache, resolvePrimary, 3)

	prefetcher.EnsureAhead(context.Background(), 3)
	assert.Equal(t, 0, prefetcher.QueueLen())
}

func TestEnsureAhead_AdmitsSetWithFailedAssets(t *testing.T) {
	t.Parallel()
	server := assetServer(t)
	session := NewSession(testPreset(2))
	session.ReplaceAll([]models.Photo{
		{ID: "good", PrimaryURL: server.URL + "/good.png", SourceKind: "external"},
		{ID: "broken", PrimaryURL: server.URL + "/bad/broken.png", SourceKind: "external"},
	})
	cache := assets.NewCache(assets.NewLoader(freshClient()), t.TempDir())
	prefetcher := NewPrefetcher(session, NewGenerator(session), cache, resolvePrimary, 1)

	prefetcher.EnsureAhead(context.Background(), 1)

	// Rotation is never blocked on a single bad photo; the set goes in
	// and the broken tile renders as a placeholder.
	assert.Equal(t, 1, prefetcher.QueueLen())
	assert.True(t, cache.IsLoaded(server.URL+"/good.png"))
	assert.True(t, cache.IsFailed(server.URL+"/bad/broken.png"))
}

func TestEnsureAhead_ConcurrentCallsDoNotOverfill(t *testing.T) {
	t.Parallel()
	prefetcher, _, _ := testPrefetcher(t, 10, 3, 3)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			prefetcher.EnsureAhead(ctx, 3)
		}()
	}
	wg.Wait()

	// Re-entrant calls are no-ops, so concurrent invocations can leave
	// the queue short but never past the target.
	assert.LessOrEqual(t, prefetcher.QueueLen(), 3)

	prefetcher.EnsureAhead(ctx, 3)
	assert.Equal(t, 3, prefetcher.QueueLen())
}
