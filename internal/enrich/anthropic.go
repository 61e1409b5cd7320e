package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ntnkb/ntnkb/internal/reader"
)

const (
	// defaultMaxTokens bounds model responses; enrichment outputs are short.
	defaultMaxTokens = 1024

	// defaultSummaryLength is the summary cap when the caller sets none.
	defaultSummaryLength = 300

	// defaultKeywordMax is the keyword count when the caller sets none.
	defaultKeywordMax = 10

	// maxPromptChars truncates oversized page content before prompting.
	maxPromptChars = 12000
)

// Client implements Service against the Anthropic Messages API.
type Client struct {
	llm    anthropic.Client
	model  anthropic.Model
	logger *slog.Logger
	images *ImageClient
}

// AnthropicOption configures the client.
type AnthropicOption func(*Client)

// WithModel overrides the default model.
func WithModel(model anthropic.Model) AnthropicOption {
	return func(c *Client) {
		c.model = model
	}
}

// WithEnrichLogger sets a custom logger.
func WithEnrichLogger(l *slog.Logger) AnthropicOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithImageClient attaches an image generation backend. Without one,
// GenerateImage always returns its fallback.
func WithImageClient(images *ImageClient) AnthropicOption {
	return func(c *Client) {
		c.images = images
	}
}

// NewClient creates an enrichment client backed by the Anthropic API.
func NewClient(apiKey string, opts ...AnthropicOption) *Client {
	client := &Client{
		llm:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.ModelClaude3_5HaikuLatest,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// complete sends a single-turn prompt and returns the text response.
func (c *Client) complete(ctx context.Context, system, prompt string) (string, error) {
	message, err := c.llm.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: defaultMaxTokens,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic message: %w", err)
	}

	var builder strings.Builder
	for _, block := range message.Content {
		builder.WriteString(block.Text)
	}

	return strings.TrimSpace(builder.String()), nil
}

// Summarize returns a short summary of the text. On failure it falls back
// to naive truncation.
func (c *Client) Summarize(ctx context.Context, text string, opts SummarizeOptions) string {
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = defaultSummaryLength
	}

	system := "You summarize study notes. Reply with the summary only, no preamble."
	if opts.Style != "" {
		system += " Style: " + opts.Style + "."
	}
	prompt := fmt.Sprintf("Summarize the following in at most %d characters:\n\n%s",
		maxLength, clip(text, maxPromptChars))

	summary, err := c.complete(ctx, system, prompt)
	if err != nil || summary == "" {
		c.logger.WarnContext(ctx, "summary generation failed, falling back to truncation", "error", err)
		return reader.GenerateExcerpt(text, maxLength)
	}

	return summary
}

// Title returns an improved title for the text. On failure it falls back to
// the current title, or "Untitled" when none exists.
func (c *Client) Title(ctx context.Context, text, current string, maxLen int) string {
	fallback := current
	if fallback == "" {
		fallback = "Untitled"
	}

	prompt := fmt.Sprintf("Current title: %q\n\nContent:\n%s", current, clip(text, maxPromptChars))
	if maxLen > 0 {
		prompt = fmt.Sprintf("Suggest a title of at most %d characters.\n%s", maxLen, prompt)
	}

	title, err := c.complete(ctx, "You write one concise page title. Reply with the title only.", prompt)
	if err != nil || title == "" {
		c.logger.WarnContext(ctx, "title generation failed, keeping current title", "error", err)
		return fallback
	}

	title = strings.Trim(title, `"`)
	if maxLen > 0 && len(title) > maxLen {
		return fallback
	}
	return title
}

// Keywords returns up to max keywords for the text. On failure it falls
// back to heuristic word extraction.
func (c *Client) Keywords(ctx context.Context, text string, max int) []string {
	if max <= 0 {
		max = defaultKeywordMax
	}

	prompt := fmt.Sprintf("Extract at most %d keywords from the following text. "+
		"Reply with a single comma-separated line, no numbering:\n\n%s",
		max, clip(text, maxPromptChars))

	reply, err := c.complete(ctx, "You extract topical keywords.", prompt)
	if err != nil || reply == "" {
		c.logger.WarnContext(ctx, "keyword generation failed, falling back to word extraction", "error", err)
		return fallbackKeywords(text, max)
	}

	var keywords []string
	for _, part := range strings.Split(reply, ",") {
		keyword := strings.TrimSpace(part)
		if keyword == "" {
			continue
		}
		keywords = append(keywords, keyword)
		if len(keywords) == max {
			break
		}
	}

	if len(keywords) == 0 {
		return fallbackKeywords(text, max)
	}
	return keywords
}

// fallbackKeywords mines keywords heuristically from the text itself.
func fallbackKeywords(text string, max int) []string {
	keywords := reader.ExtractTags(text, "", "")
	if len(keywords) > max {
		keywords = keywords[:max]
	}
	return keywords
}

// GenerateImage submits a prompt to the image backend and polls for the
// result. With no backend configured, or on any failure, the fallback is a
// structured non-success result.
func (c *Client) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) ImageResult {
	if c.images == nil {
		return ImageResult{Error: "no image backend configured"}
	}

	url, err := c.images.Generate(ctx, prompt, opts)
	if err != nil {
		c.logger.WarnContext(ctx, "image generation failed", "error", err)
		return ImageResult{Error: err.Error()}
	}

	return ImageResult{URL: url, Success: true}
}

// Validate checks the text against a set of rules, answering yes/no. Any
// failure degrades to false.
func (c *Client) Validate(ctx context.Context, text string, rules []string) bool {
	prompt := fmt.Sprintf("Rules:\n- %s\n\nDoes the following text satisfy every rule? Reply YES or NO.\n\n%s",
		strings.Join(rules, "\n- "), clip(text, maxPromptChars))

	reply, err := c.complete(ctx, "You are a strict content validator.", prompt)
	if err != nil {
		c.logger.WarnContext(ctx, "validation failed, treating as invalid", "error", err)
		return false
	}

	return strings.HasPrefix(strings.ToUpper(reply), "YES")
}

// clip truncates text to at most n characters for prompt construction.
func clip(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
