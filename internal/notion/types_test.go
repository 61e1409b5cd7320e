package notion

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestPageTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		page *Page
		want string
	}{
		{
			name: "title property",
			page: &Page{
				Properties: Properties{
					"title": Property{Type: "title", Title: []RichText{{PlainText: "My Page"}}},
				},
			},
			want: "My Page",
		},
		{
			name: "Name property",
			page: &Page{
				Properties: Properties{
					"Name": Property{Type: "title", Title: []RichText{{PlainText: "Named Page"}}},
				},
			},
			want: "Named Page",
		},
		{
			name: "any title-typed property",
			page: &Page{
				Properties: Properties{
					"Heading": Property{Type: "title", Title: []RichText{{PlainText: "Found It"}}},
				},
			},
			want: "Found It",
		},
		{
			name: "no title property",
			page: &Page{Properties: Properties{}},
			want: "Untitled",
		},
		{
			name: "multi-segment rich text",
			page: &Page{
				Properties: Properties{
					"title": Property{Type: "title", Title: []RichText{
						{PlainText: "Part one"},
						{PlainText: " and two"},
					}},
				},
			},
			want: "Part one and two",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.page.Title(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDatabasePageTitle(t *testing.T) {
	t.Parallel()

	titleJSON, _ := json.Marshal(map[string]any{
		"type":  "title",
		"title": []map[string]any{{"plain_text": "Row Title"}},
	})
	otherJSON, _ := json.Marshal(map[string]any{
		"type": "rich_text",
	})

	page := &DatabasePage{
		Properties: map[string]json.RawMessage{
			"Summary": otherJSON,
			"Title":   titleJSON,
		},
	}
	if got := page.Title(); got != "Row Title" {
		t.Errorf("expected %q, got %q", "Row Title", got)
	}

	empty := &DatabasePage{Properties: map[string]json.RawMessage{}}
	if got := empty.Title(); got != "Untitled" {
		t.Errorf("expected Untitled for empty properties, got %q", got)
	}
}

func TestDatabasePageURLProperty(t *testing.T) {
	t.Parallel()

	urlJSON, _ := json.Marshal(map[string]any{"type": "url", "url": "https://www.notion.so/abc"})
	nullJSON, _ := json.Marshal(map[string]any{"type": "url", "url": nil})
	textJSON, _ := json.Marshal(map[string]any{"type": "rich_text"})

	page := &DatabasePage{
		Properties: map[string]json.RawMessage{
			"Original Page": urlJSON,
			"Empty URL":     nullJSON,
			"Summary":       textJSON,
		},
	}

	if got := page.URLProperty("Original Page"); got != "https://www.notion.so/abc" {
		t.Errorf("expected URL value, got %q", got)
	}
	if got := page.URLProperty("Empty URL"); got != "" {
		t.Errorf("expected empty for null url, got %q", got)
	}
	if got := page.URLProperty("Summary"); got != "" {
		t.Errorf("expected empty for non-url property, got %q", got)
	}
	if got := page.URLProperty("Missing"); got != "" {
		t.Errorf("expected empty for absent property, got %q", got)
	}
}

func TestFileBlockURL(t *testing.T) {
	t.Parallel()

	external := &FileBlock{External: &ExternalFile{URL: "https://example.com/ext.png"}}
	if got := external.URL(); got != "https://example.com/ext.png" {
		t.Errorf("expected external URL, got %q", got)
	}

	hosted := &FileBlock{File: &File{URL: "https://files.notion.so/a.png"}}
	if got := hosted.URL(); got != "https://files.notion.so/a.png" {
		t.Errorf("expected hosted URL, got %q", got)
	}

	empty := &FileBlock{}
	if got := empty.URL(); got != "" {
		t.Errorf("expected empty URL, got %q", got)
	}
}

func TestAPIErrorIsPermanent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *APIError
		want bool
	}{
		{name: "unauthorized", err: &APIError{Status: http.StatusUnauthorized}, want: true},
		{name: "forbidden", err: &APIError{Status: http.StatusForbidden}, want: true},
		{name: "not found", err: &APIError{Status: http.StatusNotFound}, want: true},
		{name: "validation error", err: &APIError{Status: http.StatusBadRequest, Code: "validation_error"}, want: true},
		{name: "other bad request", err: &APIError{Status: http.StatusBadRequest, Code: "invalid_json"}, want: false},
		{name: "rate limited", err: &APIError{Status: http.StatusTooManyRequests}, want: false},
		{name: "server error", err: &APIError{Status: http.StatusInternalServerError}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.IsPermanent(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
