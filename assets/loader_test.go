package assets

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoader(client *http.Client) *Loader {
	loader := NewLoader(client)
	loader.backoffBase = time.Millisecond
	return loader
}

func testClient() *http.Client {
	return &http.Client{Transport: &http.Transport{}}
}

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

func TestLoad_Success(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(encodePNG(t, 3, 2))
	}))
	defer server.Close()

	loader := testLoader(testClient())
	result, err := loader.Load(context.Background(), server.URL+"/photo.png")
	require.NoError(t, err)

	assert.Equal(t, "png", result.Extension)
	assert.Equal(t, 3, result.Width)
	assert.Equal(t, 2, result.Height)
	assert.NotEmpty(t, result.DominantColours)
	assert.Equal(t, int64(1), calls.Load(), "a clean fetch should not retry")
}

func TestLoad_ExhaustsRetryBudgetExactlyOnce(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	loader := testLoader(testClient())
	_, err := loader.Load(context.Background(), server.URL+"/photo.png")
	require.Error(t, err)

	// 1 initial attempt + 2 retries, never a 4th.
	assert.Equal(t, int64(3), calls.Load())
}

func TestLoad_UndecodableBodyRetries(t *testing.T) {
	t.Parallel()
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "image/png")
		// A PNG signature with garbage after it decodes to nothing usable.
		w.Write(append([]byte("\x89PNG\r\n\x1a\n"), []byte("not really an image")...))
	}))
	defer server.Close()

	loader := testLoader(testClient())
	_, err := loader.Load(context.Background(), server.URL+"/photo.png")
	require.Error(t, err)
	assert.Equal(t, int64(3), calls.Load())
}

func TestLoad_RetriesCarryCacheBustParam(t *testing.T) {
	t.Parallel()
	var params []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params = append(params, r.URL.Query().Get("mosaic_retry"))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	loader := testLoader(testClient())
	_, err := loader.Load(context.Background(), server.URL+"/photo.png?width=800")
	require.Error(t, err)

	require.Len(t, params, 3)
	assert.Equal(t, "", params[0], "the first attempt uses the URL untouched")
	assert.Equal(t, "1", params[1])
	assert.Equal(t, "2", params[2])
}

func TestLoad_EmptyURL(t *testing.T) {
	t.Parallel()
	loader := testLoader(testClient())
	_, err := loader.Load(context.Background(), "")
	assert.Error(t, err)
}

func TestLoad_RespectsContextCancellation(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	loader := NewLoader(testClient())
	loader.backoffBase = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(ctx, server.URL+"/photo.png")
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled load never returned")
	}
}
