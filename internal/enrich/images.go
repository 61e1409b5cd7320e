package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ntnkb/ntnkb/internal/apperrors"
)

const (
	// Image job polling configuration.
	defaultPollInterval = 2 * time.Second
	defaultPollAttempts = 30

	imageHTTPTimeout = 30 * time.Second
)

// ImageClient talks to an asynchronous image generation API: submit a
// prompt, receive a job ID, poll until the job resolves to an image URL.
type ImageClient struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	pollAttempts int
	logger       *slog.Logger
}

// ImageClientOption configures the image client.
type ImageClientOption func(*ImageClient)

// WithImageHTTPClient sets a custom HTTP client.
func WithImageHTTPClient(c *http.Client) ImageClientOption {
	return func(ic *ImageClient) {
		ic.httpClient = c
	}
}

// WithPollInterval sets the delay between job polls.
func WithPollInterval(interval time.Duration) ImageClientOption {
	return func(ic *ImageClient) {
		ic.pollInterval = interval
	}
}

// WithImageLogger sets a custom logger.
func WithImageLogger(l *slog.Logger) ImageClientOption {
	return func(ic *ImageClient) {
		ic.logger = l
	}
}

// NewImageClient creates an image generation client.
func NewImageClient(baseURL, apiKey string, opts ...ImageClientOption) *ImageClient {
	client := &ImageClient{
		httpClient:   &http.Client{Timeout: imageHTTPTimeout},
		baseURL:      baseURL,
		apiKey:       apiKey,
		pollInterval: defaultPollInterval,
		pollAttempts: defaultPollAttempts,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// imageJob is the API's job representation.
type imageJob struct {
	ID     string `json:"id"`
	Status string `json:"status"` // "pending", "succeeded", "failed"
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Generate submits a generation job and polls until it yields an image URL.
func (ic *ImageClient) Generate(ctx context.Context, prompt string, opts ImageOptions) (string, error) {
	body := map[string]any{"prompt": prompt}
	if opts.Size != "" {
		body["size"] = opts.Size
	}
	if opts.Style != "" {
		body["style"] = opts.Style
	}

	var job imageJob
	if err := ic.do(ctx, http.MethodPost, "/v1/images", body, &job); err != nil {
		return "", fmt.Errorf("submit image job: %w", err)
	}

	// Some providers resolve synchronously.
	if job.Status == "succeeded" && job.URL != "" {
		return job.URL, nil
	}

	for attempt := 0; attempt < ic.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(ic.pollInterval):
		}

		if err := ic.do(ctx, http.MethodGet, "/v1/images/"+job.ID, nil, &job); err != nil {
			return "", fmt.Errorf("poll image job %s: %w", job.ID, err)
		}

		switch job.Status {
		case "succeeded":
			ic.logger.DebugContext(ctx, "image job succeeded", "job_id", job.ID, "attempts", attempt+1)
			return job.URL, nil
		case "failed":
			return "", fmt.Errorf("%w: %s", apperrors.ErrImageJobFailed, job.Error)
		}
	}

	return "", fmt.Errorf("%w: job %s", apperrors.ErrImageJobTimeout, job.ID)
}

// do performs one HTTP request against the image API.
func (ic *ImageClient) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, ic.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+ic.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ic.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			ic.logger.Warn("failed to close response body", "error", closeErr)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return apperrors.NewHTTPError(resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
