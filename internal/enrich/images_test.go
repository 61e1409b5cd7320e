package enrich

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ntnkb/ntnkb/internal/apperrors"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPollingClient(serverURL string) *ImageClient {
	return NewImageClient(serverURL, "test-key",
		WithPollInterval(time.Millisecond),
		WithImageLogger(quietLogger()))
}

func TestGenerate_SynchronousResult(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/images" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}

		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "a cover image" {
			t.Errorf("unexpected prompt %v", body["prompt"])
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "job-1",
			"status": "succeeded",
			"url":    "https://img.example.com/out.png",
		})
	}))
	defer server.Close()

	client := newPollingClient(server.URL)
	url, err := client.Generate(t.Context(), "a cover image", ImageOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://img.example.com/out.png" {
		t.Errorf("expected image URL, got %q", url)
	}
}

func TestGenerate_PollsUntilSucceeded(t *testing.T) {
	t.Parallel()

	polls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "job-2", "status": "pending"})
			return
		}

		if !strings.HasSuffix(r.URL.Path, "/job-2") {
			t.Errorf("unexpected poll path %s", r.URL.Path)
		}
		polls++
		if polls < 3 {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "job-2", "status": "pending"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "job-2",
			"status": "succeeded",
			"url":    "https://img.example.com/done.png",
		})
	}))
	defer server.Close()

	client := newPollingClient(server.URL)
	url, err := client.Generate(t.Context(), "prompt", ImageOptions{Size: "1024x1024"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://img.example.com/done.png" {
		t.Errorf("expected final URL, got %q", url)
	}
	if polls != 3 {
		t.Errorf("expected 3 polls, got %d", polls)
	}
}

func TestGenerate_FailedJob(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodPost {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "job-3", "status": "pending"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "job-3",
			"status": "failed",
			"error":  "content policy violation",
		})
	}))
	defer server.Close()

	client := newPollingClient(server.URL)
	_, err := client.Generate(t.Context(), "prompt", ImageOptions{})
	if !errors.Is(err, apperrors.ErrImageJobFailed) {
		t.Errorf("expected ErrImageJobFailed, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), "content policy violation") {
		t.Errorf("expected provider reason in error, got %v", err)
	}
}

func TestGenerate_PollExhaustion(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "job-4", "status": "pending"})
	}))
	defer server.Close()

	client := newPollingClient(server.URL)
	client.pollAttempts = 3

	_, err := client.Generate(t.Context(), "prompt", ImageOptions{})
	if !errors.Is(err, apperrors.ErrImageJobTimeout) {
		t.Errorf("expected ErrImageJobTimeout, got %v", err)
	}
}

func TestGenerate_HTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer server.Close()

	client := newPollingClient(server.URL)
	_, err := client.Generate(t.Context(), "prompt", ImageOptions{})
	if err == nil {
		t.Fatal("expected error for HTTP 401")
	}

	var httpErr *apperrors.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", httpErr.StatusCode)
	}
}
