package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/ntnkb/ntnkb/internal/apperrors"
	"github.com/ntnkb/ntnkb/internal/notion"
)

const (
	// imageKeyPrefix namespaces archived images inside the bucket.
	imageKeyPrefix = "images/"

	// maxImageBytes caps downloads; source URLs are untrusted input.
	maxImageBytes = 20 << 20

	archiveHTTPTimeout = 60 * time.Second
)

// Archiver copies remote images into the bucket so entries keep working
// after the source's signed URLs expire.
type Archiver struct {
	bucket     *Bucket
	httpClient *http.Client
	logger     *slog.Logger
}

// ArchiverOption configures the archiver.
type ArchiverOption func(*Archiver)

// WithArchiverHTTPClient sets a custom HTTP client for downloads.
func WithArchiverHTTPClient(c *http.Client) ArchiverOption {
	return func(a *Archiver) {
		a.httpClient = c
	}
}

// WithArchiverLogger sets a custom logger.
func WithArchiverLogger(l *slog.Logger) ArchiverOption {
	return func(a *Archiver) {
		a.logger = l
	}
}

// NewArchiver creates an archiver writing into the given bucket.
func NewArchiver(bucket *Bucket, opts ...ArchiverOption) *Archiver {
	archiver := &Archiver{
		bucket:     bucket,
		httpClient: &http.Client{Timeout: archiveHTTPTimeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(archiver)
	}

	return archiver
}

// ArchiveImage downloads the image at sourceURL and stores it under a key
// derived from the page ID, returning the stable public URL. A key that is
// already stored is not re-downloaded; the existing URL is returned.
func (a *Archiver) ArchiveImage(ctx context.Context, pageID, sourceURL string) (string, error) {
	if sourceURL == "" {
		return "", apperrors.ErrEmptyInput
	}

	key := imageKey(pageID, sourceURL)

	exists, err := a.bucket.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if exists {
		a.logger.DebugContext(ctx, "image already archived", "page_id", pageID, "key", key)
		return a.bucket.PublicURL(key), nil
	}

	data, contentType, err := a.download(ctx, sourceURL)
	if err != nil {
		return "", fmt.Errorf("download image for page %s: %w", pageID, err)
	}

	publicURL, err := a.bucket.Upload(ctx, key, contentType, bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	a.logger.InfoContext(ctx, "archived image", "page_id", pageID, "key", key, "bytes", len(data))
	return publicURL, nil
}

// download fetches the image and returns its bytes and content type.
func (a *Archiver) download(ctx context.Context, sourceURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			a.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, "", apperrors.NewHTTPError(resp.StatusCode, "image download failed")
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return data, contentType, nil
}

// imageKey derives a stable bucket key from the page ID, keeping the source
// file extension when one is recognizable.
func imageKey(pageID, sourceURL string) string {
	ext := ".png"

	if parsed, err := url.Parse(sourceURL); err == nil {
		if candidate := strings.ToLower(path.Ext(parsed.Path)); isImageExt(candidate) {
			ext = candidate
		}
	}

	return imageKeyPrefix + notion.NormalizeID(pageID) + ext
}

func isImageExt(ext string) bool {
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
		return true
	}
	return false
}
