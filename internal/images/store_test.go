package images

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"antigravity2api-go/internal/translator"
)

// 1x1 transparent PNG.
var pngPixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func testImage() translator.InlineImage {
	return translator.InlineImage{
		MimeType: "image/png",
		Data:     base64.StdEncoding.EncodeToString(pngPixel),
	}
}

func newTestStore(t *testing.T, baseURL string) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), baseURL)
	require.NoError(t, err)
	return store
}

func TestSaveIsContentAddressed(t *testing.T) {
	store := newTestStore(t, "http://gw.example")

	url1, err := store.Save(testImage())
	require.NoError(t, err)
	url2, err := store.Save(testImage())
	require.NoError(t, err)

	require.Equal(t, url1, url2)
	require.True(t, strings.HasPrefix(url1, "http://gw.example/images/"))
	require.True(t, strings.HasSuffix(url1, ".png"))

	entries, err := os.ReadDir(filepath.Join(store.dir))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestSaveWithoutBaseURLIsRelative(t *testing.T) {
	store := newTestStore(t, "")

	url, err := store.Save(testImage())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "/images/"))
}

func TestSaveRejectsBadBase64(t *testing.T) {
	store := newTestStore(t, "")

	_, err := store.Save(translator.InlineImage{MimeType: "image/png", Data: "not base64!!!"})
	require.Error(t, err)
}

func TestSinkFallsBackOnError(t *testing.T) {
	store := newTestStore(t, "")
	sink := store.Sink()

	url, ok := sink(testImage())
	require.True(t, ok)
	require.NotEmpty(t, url)

	_, ok = sink(translator.InlineImage{MimeType: "image/png", Data: "@@@"})
	require.False(t, ok)
}

func TestServe(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := newTestStore(t, "")

	url, err := store.Save(testImage())
	require.NoError(t, err)
	name := strings.TrimPrefix(url, "/images/")

	router := gin.New()
	router.GET("/images/:name", store.Serve)

	t.Run("stored image", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/images/"+name, nil))
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, pngPixel, w.Body.Bytes())
	})

	t.Run("unknown name", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/images/"+strings.Repeat("0", 32)+".png", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("traversal shape rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/images/..%2Faccounts.json", nil))
		require.Equal(t, http.StatusNotFound, w.Code)
	})
}
