package storage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ntnkb/ntnkb/internal/apperrors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeObjectStore is a minimal S3-compatible endpoint: HEAD answers from the
// stored set, PUT records the object.
type fakeObjectStore struct {
	stored map[string][]byte
	puts   []string
}

func (f *fakeObjectStore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/test-bucket/")

		switch r.Method {
		case http.MethodHead:
			if _, ok := f.stored[key]; !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", "4")
			w.WriteHeader(http.StatusOK)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			if f.stored == nil {
				f.stored = make(map[string][]byte)
			}
			f.stored[key] = body
			f.puts = append(f.puts, key)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func newTestBucket(t *testing.T, store *fakeObjectStore) *Bucket {
	t.Helper()

	server := httptest.NewServer(store.handler())
	t.Cleanup(server.Close)

	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(server.URL),
		Region:       r2Region,
		Credentials:  credentials.NewStaticCredentialsProvider("test", "test", ""),
		UsePathStyle: true,
	})

	bucket, err := NewBucket(context.Background(), server.URL, "test", "test",
		"test-bucket", "https://cdn.example.com/",
		WithS3Client(client),
		WithBucketLogger(quietLogger()))
	if err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}
	return bucket
}

func TestImageKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		pageID    string
		sourceURL string
		want      string
	}{
		{
			name:      "png extension kept",
			pageID:    "abc123",
			sourceURL: "https://files.notion.so/cover.png",
			want:      "images/abc123.png",
		},
		{
			name:      "jpeg extension kept",
			pageID:    "abc123",
			sourceURL: "https://files.notion.so/photo.jpeg?X-Amz-Expires=3600",
			want:      "images/abc123.jpeg",
		},
		{
			name:      "uppercase extension lowered",
			pageID:    "abc123",
			sourceURL: "https://example.com/IMAGE.PNG",
			want:      "images/abc123.png",
		},
		{
			name:      "unrecognized extension defaults to png",
			pageID:    "abc123",
			sourceURL: "https://example.com/file.bin",
			want:      "images/abc123.png",
		},
		{
			name:      "no extension defaults to png",
			pageID:    "abc123",
			sourceURL: "https://example.com/render",
			want:      "images/abc123.png",
		},
		{
			name:      "dashed page ID normalized",
			pageID:    "12345678-9012-3456-7890-123456789012",
			sourceURL: "https://example.com/a.webp",
			want:      "images/12345678901234567890123456789012.webp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := imageKey(tt.pageID, tt.sourceURL); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPublicURL_TrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	bucket := newTestBucket(t, &fakeObjectStore{})
	if got := bucket.PublicURL("images/a.png"); got != "https://cdn.example.com/images/a.png" {
		t.Errorf("unexpected public URL %q", got)
	}
}

func TestArchiveImage_DownloadsAndUploads(t *testing.T) {
	t.Parallel()

	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer imageServer.Close()

	store := &fakeObjectStore{}
	archiver := NewArchiver(newTestBucket(t, store), WithArchiverLogger(quietLogger()))

	url, err := archiver.ArchiveImage(context.Background(), "page1", imageServer.URL+"/cover.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if url != "https://cdn.example.com/images/page1.png" {
		t.Errorf("unexpected public URL %q", url)
	}
	if len(store.puts) != 1 || store.puts[0] != "images/page1.png" {
		t.Errorf("expected one upload of images/page1.png, got %v", store.puts)
	}
	// The SDK may wrap the payload in aws-chunked framing, so check
	// containment rather than exact bytes.
	if !strings.Contains(string(store.stored["images/page1.png"]), "png-bytes") {
		t.Error("expected downloaded bytes stored")
	}
}

func TestArchiveImage_SkipsExistingKey(t *testing.T) {
	t.Parallel()

	downloads := 0
	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		downloads++
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer imageServer.Close()

	store := &fakeObjectStore{
		stored: map[string][]byte{"images/page1.png": []byte("old")},
	}
	archiver := NewArchiver(newTestBucket(t, store), WithArchiverLogger(quietLogger()))

	url, err := archiver.ArchiveImage(context.Background(), "page1", imageServer.URL+"/cover.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if url != "https://cdn.example.com/images/page1.png" {
		t.Errorf("unexpected public URL %q", url)
	}
	if downloads != 0 {
		t.Errorf("expected no download for existing key, got %d", downloads)
	}
	if len(store.puts) != 0 {
		t.Errorf("expected no upload for existing key, got %v", store.puts)
	}
}

func TestArchiveImage_EmptySourceURL(t *testing.T) {
	t.Parallel()

	archiver := NewArchiver(newTestBucket(t, &fakeObjectStore{}), WithArchiverLogger(quietLogger()))

	if _, err := archiver.ArchiveImage(context.Background(), "page1", ""); !errors.Is(err, apperrors.ErrEmptyInput) {
		t.Errorf("expected ErrEmptyInput, got %v", err)
	}
}

func TestArchiveImage_DownloadFailure(t *testing.T) {
	t.Parallel()

	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer imageServer.Close()

	store := &fakeObjectStore{}
	archiver := NewArchiver(newTestBucket(t, store), WithArchiverLogger(quietLogger()))

	_, err := archiver.ArchiveImage(context.Background(), "page1", imageServer.URL+"/expired.png")
	if err == nil {
		t.Fatal("expected error for failed download")
	}

	var httpErr *apperrors.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", httpErr.StatusCode)
	}
	if len(store.puts) != 0 {
		t.Errorf("expected no upload on download failure, got %v", store.puts)
	}
}

func TestIsImageExt(t *testing.T) {
	t.Parallel()

	for _, ext := range []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"} {
		if !isImageExt(ext) {
			t.Errorf("expected %s recognized", ext)
		}
	}
	for _, ext := range []string{".bin", ".pdf", "", "png"} {
		if isImageExt(ext) {
			t.Errorf("expected %s rejected", ext)
		}
	}
}
