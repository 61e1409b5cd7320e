package notion

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/ntnkb/ntnkb/internal/apperrors"
)

const (
	// API pagination settings.
	defaultPageSize = 100 // Default number of results per page

	// Notion ID format constants.
	notionIDLength         = 32 // Length of a Notion ID without dashes
	notionIDWithDashLength = 36 // Length of a Notion ID with dashes (UUID format: 8-4-4-4-12)
	uuidSegmentCount       = 5  // Number of segments in a UUID
)

// GetPage retrieves a page by ID.
func (c *Client) GetPage(ctx context.Context, pageID string) (*Page, error) {
	c.logger.DebugContext(ctx, "Fetching page", slog.String("pageId", pageID))

	before := time.Now()

	var page Page
	path := "/pages/" + pageID
	if err := c.do(ctx, "GET", path, nil, &page); err != nil {
		return nil, fmt.Errorf("get page %s: %w", pageID, err)
	}
	c.logger.DebugContext(ctx, "Page fetched", "time_spent_ms", time.Since(before).Milliseconds())
	return &page, nil
}

// CreatePage creates a page (row) inside a database and returns it.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties map[string]any) (*DatabasePage, error) {
	body := map[string]any{
		"parent":     map[string]any{"type": "database_id", "database_id": databaseID},
		"properties": properties,
	}

	var page DatabasePage
	if err := c.do(ctx, "POST", "/pages", body, &page); err != nil {
		return nil, fmt.Errorf("create page in database %s: %w", databaseID, err)
	}
	return &page, nil
}

// UpdatePageProperties patches the properties of an existing page.
func (c *Client) UpdatePageProperties(ctx context.Context, pageID string, properties map[string]any) error {
	body := map[string]any{"properties": properties}
	if err := c.do(ctx, "PATCH", "/pages/"+pageID, body, nil); err != nil {
		return fmt.Errorf("update page %s: %w", pageID, err)
	}
	return nil
}

// SearchFilter configures the search query.
type SearchFilter struct {
	Query       string
	FilterType  string // "page" or "database"
	StartCursor string
	PageSize    int
}

// Search searches for pages and databases shared with the integration.
func (c *Client) Search(ctx context.Context, filter SearchFilter) (*SearchResponse, error) {
	body := map[string]any{}

	if filter.Query != "" {
		body["query"] = filter.Query
	}

	if filter.FilterType != "" {
		body["filter"] = map[string]string{
			"value":    filter.FilterType,
			"property": "object",
		}
	}

	if filter.StartCursor != "" {
		body["start_cursor"] = filter.StartCursor
	}

	if filter.PageSize > 0 {
		body["page_size"] = filter.PageSize
	} else {
		body["page_size"] = defaultPageSize
	}

	var result SearchResponse
	if err := c.do(ctx, "POST", "/search", body, &result); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	return &result, nil
}

// NormalizeID removes dashes from a Notion ID.
func NormalizeID(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

// PageURL returns the canonical notion.so URL for a page ID.
// The ID's internal separators are stripped so the same page always
// derives the same URL regardless of the ID format it arrived in.
func PageURL(pageID string) string {
	return "https://www.notion.so/" + NormalizeID(pageID)
}

// ParsePageIDOrURL extracts a Notion page ID from a URL or returns the ID if already bare.
// Handles various formats:
// - https://www.notion.so/Page-Title-abc123def456
// - https://notion.so/workspace/Page-abc123def456
// - abc123def456 (raw ID without dashes)
// - abc123-def4-5678-90ab-cdef12345678 (raw ID with dashes).
func ParsePageIDOrURL(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", apperrors.ErrEmptyInput
	}

	// Check if it's a URL
	if strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://") {
		return extractPageIDFromURL(input)
	}

	// Not a URL - treat as raw ID
	// Remove dashes and validate
	cleanID := strings.ReplaceAll(input, "-", "")

	// Notion IDs are 32 hex characters
	if len(cleanID) != notionIDLength {
		return "", fmt.Errorf("%w (expected 32 chars, got %d): %s", apperrors.ErrInvalidPageIDFormat, len(cleanID), cleanID)
	}

	if !isHexString(cleanID) {
		return "", fmt.Errorf("%w (not hexadecimal): %s", apperrors.ErrInvalidPageIDFormat, cleanID)
	}

	return cleanID, nil
}

// extractPageIDFromURL extracts a Notion page ID from a URL.
func extractPageIDFromURL(input string) (string, error) {
	parsedURL, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	// Notion URLs have the page ID at the end of the path
	// Format: /workspace/Page-Title-{pageID} or /{pageID}
	path := strings.Trim(parsedURL.Path, "/")

	parts := strings.Split(path, "/")
	lastPart := parts[len(parts)-1]

	// Look for the ID in the last part (after last hyphen, at least 32 chars)
	if len(lastPart) >= notionIDLength {
		idStart := len(lastPart) - notionIDLength
		possibleID := lastPart[idStart:]

		if isHexString(possibleID) {
			return strings.ReplaceAll(possibleID, "-", ""), nil
		}
	}

	// Try to find ID with dashes (36 chars: 8-4-4-4-12)
	if strings.Contains(lastPart, "-") {
		segments := strings.Split(lastPart, "-")
		if len(segments) >= uuidSegmentCount {
			uuidParts := segments[len(segments)-uuidSegmentCount:]
			possibleUUID := strings.Join(uuidParts, "-")
			if len(possibleUUID) == notionIDWithDashLength {
				return strings.ReplaceAll(possibleUUID, "-", ""), nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", apperrors.ErrInvalidPageIDFormat, input)
}

// isHexString checks if a string contains only hexadecimal characters.
func isHexString(str string) bool {
	for _, c := range str {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return len(str) > 0
}
