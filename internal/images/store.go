// Package images persists inline media from upstream responses and serves
// it back over HTTP. Files are content-addressed, so repeated generations of
// the same image deduplicate naturally and names are safe to expose.
package images

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"antigravity2api-go/internal/translator"
)

// 文件名是内容哈希加扩展名，其他任何形式一律 404。
var namePattern = regexp.MustCompile(`^[a-f0-9]{32}\.[a-z0-9]{2,5}$`)

// Store owns the on-disk image directory under the data dir.
type Store struct {
	dir     string
	baseURL string
}

// NewStore creates <dataDir>/images. baseURL is the public prefix links are
// built with; empty means relative links.
func NewStore(dataDir, baseURL string) (*Store, error) {
	if dataDir == "" {
		dataDir = "./data"
	}
	dir := filepath.Join(dataDir, "images")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("images: create dir: %w", err)
	}
	return &Store{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save decodes and writes one inline image, returning its public URL. An
// already-present file is reused without rewriting.
func (s *Store) Save(img translator.InlineImage) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		return "", fmt.Errorf("images: decode payload: %w", err)
	}
	sum := sha256.Sum256(raw)
	name := hex.EncodeToString(sum[:16]) + extensionFor(img.MimeType)
	path := filepath.Join(s.dir, name)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, raw, 0644); err != nil {
			return "", fmt.Errorf("images: write %s: %w", tmp, err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return "", fmt.Errorf("images: rename %s: %w", tmp, err)
		}
	}
	return s.baseURL + "/images/" + name, nil
}

// Sink adapts the store to the renderer callback. On save failure the
// renderer falls back to embedding the raw base64.
func (s *Store) Sink() translator.ImageSink {
	return func(img translator.InlineImage) (string, bool) {
		url, err := s.Save(img)
		if err != nil {
			log.WithError(err).Warn("image save failed, embedding inline")
			return "", false
		}
		return url, true
	}
}

// Serve handles GET /images/:name.
func (s *Store) Serve(c *gin.Context) {
	name := c.Param("name")
	if !namePattern.MatchString(name) {
		c.Status(http.StatusNotFound)
		return
	}
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400, immutable")
	c.File(path)
}

func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	default:
		return ".bin"
	}
}
