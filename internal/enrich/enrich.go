// Package enrich provides the AI enrichment adapter: summaries, titles,
// keywords, validation and image generation for content pages.
//
// Every operation degrades to a defined fallback on failure instead of
// returning an error; callers never need to guard enrichment calls.
package enrich

import "context"

// SummarizeOptions tunes summary generation.
type SummarizeOptions struct {
	// MaxLength caps the summary length in characters (0 = provider default).
	MaxLength int
	// Style is an optional style hint, e.g. "concise".
	Style string
}

// ImageOptions tunes image generation.
type ImageOptions struct {
	// Size is the requested image size, e.g. "1024x1024".
	Size string
	// Style is an optional style hint.
	Style string
}

// ImageResult is the structured outcome of an image generation call.
type ImageResult struct {
	URL       string
	LocalPath string
	Success   bool
	Error     string
}

// Service is the enrichment capability set the sync pipeline depends on.
//
// Fallback contract per call:
//   - Summarize: naive truncation of the input text
//   - Title: the current title, or "Untitled" when none
//   - Keywords: simple heuristic word extraction
//   - GenerateImage: ImageResult{Success: false} with the error message
//   - Validate: false
type Service interface {
	Summarize(ctx context.Context, text string, opts SummarizeOptions) string
	Title(ctx context.Context, text, current string, maxLen int) string
	Keywords(ctx context.Context, text string, max int) []string
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) ImageResult
	Validate(ctx context.Context, text string, rules []string) bool
}
