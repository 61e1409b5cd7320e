// Package notion provides a client for the Notion API.
package notion

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

// Page represents a Notion page.
type Page struct {
	Object         string     `json:"object"`
	ID             string     `json:"id"`
	CreatedTime    time.Time  `json:"created_time"`
	LastEditedTime time.Time  `json:"last_edited_time"`
	Parent         Parent     `json:"parent"`
	Archived       bool       `json:"archived"`
	InTrash        bool       `json:"in_trash"`
	Properties     Properties `json:"properties"`
	URL            string     `json:"url"`
}

// Title extracts the title from page properties.
func (p *Page) Title() string {
	if title, ok := p.Properties["title"]; ok {
		return ParseRichText(title.Title)
	}
	if title, ok := p.Properties["Name"]; ok {
		return ParseRichText(title.Title)
	}
	// Try to find any title property
	for key := range p.Properties {
		prop := p.Properties[key]
		if prop.Type == "title" && len(prop.Title) > 0 {
			return ParseRichText(prop.Title)
		}
	}
	return "Untitled"
}

// Database represents a Notion database.
type Database struct {
	Object         string         `json:"object"`
	ID             string         `json:"id"`
	CreatedTime    time.Time      `json:"created_time"`
	LastEditedTime time.Time      `json:"last_edited_time"`
	Title          []RichText     `json:"title"`
	Properties     map[string]any `json:"properties"`
	Parent         Parent         `json:"parent"`
	URL            string         `json:"url"`
	Archived       bool           `json:"archived"`
	InTrash        bool           `json:"in_trash"`
}

// GetTitle returns the database title as a string.
func (d *Database) GetTitle() string {
	return ParseRichText(d.Title)
}

// DatabasePage represents a page (row) returned from a database query.
// Properties are kept raw because their shape depends on the database schema.
type DatabasePage struct {
	Object         string                     `json:"object"`
	ID             string                     `json:"id"`
	CreatedTime    time.Time                  `json:"created_time"`
	LastEditedTime time.Time                  `json:"last_edited_time"`
	Parent         Parent                     `json:"parent"`
	Archived       bool                       `json:"archived"`
	Properties     map[string]json.RawMessage `json:"properties"`
	URL            string                     `json:"url"`
}

// Title extracts the title from database page properties.
func (p *DatabasePage) Title() string {
	for _, propData := range p.Properties {
		var prop struct {
			Type  string     `json:"type"`
			Title []RichText `json:"title,omitempty"`
		}
		if err := json.Unmarshal(propData, &prop); err != nil {
			continue
		}
		if prop.Type == "title" && len(prop.Title) > 0 {
			return ParseRichText(prop.Title)
		}
	}
	return "Untitled"
}

// URLProperty extracts a url-type property by name, returning "" if absent.
func (p *DatabasePage) URLProperty(name string) string {
	propData, ok := p.Properties[name]
	if !ok {
		return ""
	}
	var prop struct {
		Type string  `json:"type"`
		URL  *string `json:"url"`
	}
	if err := json.Unmarshal(propData, &prop); err != nil {
		return ""
	}
	if prop.Type != "url" || prop.URL == nil {
		return ""
	}
	return *prop.URL
}

// QueryDatabaseResponse represents the response from querying a database.
type QueryDatabaseResponse struct {
	Object     string         `json:"object"`
	Results    []DatabasePage `json:"results"`
	NextCursor *string        `json:"next_cursor"`
	HasMore    bool           `json:"has_more"`
	Type       string         `json:"type"`
}

// Parent represents the parent of a page, database or block.
type Parent struct {
	Type       string `json:"type"`
	PageID     string `json:"page_id,omitempty"`
	DatabaseID string `json:"database_id,omitempty"`
	BlockID    string `json:"block_id,omitempty"`
	Workspace  bool   `json:"workspace,omitempty"`
}

// ID returns the parent ID regardless of type.
func (p *Parent) ID() string {
	if p.PageID != "" {
		return p.PageID
	}
	if p.DatabaseID != "" {
		return p.DatabaseID
	}
	return p.BlockID
}

// Properties is a map of property name to property value.
type Properties map[string]Property

// Property represents a page property.
type Property struct {
	ID   string `json:"id"`
	Type string `json:"type"`

	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Number      *float64       `json:"number,omitempty"`
	Select      *SelectOption  `json:"select,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Date        *DateProperty  `json:"date,omitempty"`
	Checkbox    bool           `json:"checkbox,omitempty"`
	URL         *string        `json:"url,omitempty"`
}

// SelectOption represents a select/multi-select option.
type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// DateProperty represents a date property value.
type DateProperty struct {
	Start string  `json:"start"`
	End   *string `json:"end,omitempty"`
}

// Block represents a Notion block.
type Block struct {
	Object         string    `json:"object"`
	ID             string    `json:"id"`
	Parent         Parent    `json:"parent"`
	Type           string    `json:"type"`
	CreatedTime    time.Time `json:"created_time"`
	LastEditedTime time.Time `json:"last_edited_time"`
	HasChildren    bool      `json:"has_children"`
	Archived       bool      `json:"archived"`

	// Block type specific content
	Paragraph        *ParagraphBlock `json:"paragraph,omitempty"`
	Heading1         *HeadingBlock   `json:"heading_1,omitempty"`
	Heading2         *HeadingBlock   `json:"heading_2,omitempty"`
	Heading3         *HeadingBlock   `json:"heading_3,omitempty"`
	BulletedListItem *ListItemBlock  `json:"bulleted_list_item,omitempty"`
	NumberedListItem *ListItemBlock  `json:"numbered_list_item,omitempty"`
	ToDo             *ToDoBlock      `json:"to_do,omitempty"`
	Code             *CodeBlock      `json:"code,omitempty"`
	Image            *FileBlock      `json:"image,omitempty"`
	ChildPage        *ChildPageBlock `json:"child_page,omitempty"`
}

// ParagraphBlock contains paragraph content.
type ParagraphBlock struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color"`
}

// HeadingBlock contains heading content.
type HeadingBlock struct {
	RichText     []RichText `json:"rich_text"`
	Color        string     `json:"color"`
	IsToggleable bool       `json:"is_toggleable"`
}

// ListItemBlock contains list item content.
type ListItemBlock struct {
	RichText []RichText `json:"rich_text"`
	Color    string     `json:"color"`
}

// ToDoBlock contains to-do content.
type ToDoBlock struct {
	RichText []RichText `json:"rich_text"`
	Checked  bool       `json:"checked"`
	Color    string     `json:"color"`
}

// CodeBlock contains code content.
type CodeBlock struct {
	RichText []RichText `json:"rich_text"`
	Caption  []RichText `json:"caption"`
	Language string     `json:"language"`
}

// FileBlock contains file/image content.
type FileBlock struct {
	Type     string        `json:"type"`
	Caption  []RichText    `json:"caption"`
	External *ExternalFile `json:"external,omitempty"`
	File     *File         `json:"file,omitempty"`
}

// URL returns the file URL for either hosting type.
func (f *FileBlock) URL() string {
	if f.External != nil {
		return f.External.URL
	}
	if f.File != nil {
		return f.File.URL
	}
	return ""
}

// ExternalFile represents an externally hosted file URL.
type ExternalFile struct {
	URL string `json:"url"`
}

// File represents a Notion-hosted file.
type File struct {
	URL        string    `json:"url"`
	ExpiryTime time.Time `json:"expiry_time"`
}

// ChildPageBlock references a child page.
type ChildPageBlock struct {
	Title string `json:"title"`
}

// RichText represents formatted text.
type RichText struct {
	Type      string       `json:"type"`
	PlainText string       `json:"plain_text"`
	Href      *string      `json:"href"`
	Text      *TextContent `json:"text,omitempty"`
}

// TextContent contains text content.
type TextContent struct {
	Content string `json:"content"`
	Link    *Link  `json:"link"`
}

// Link represents a URL link.
type Link struct {
	URL string `json:"url"`
}

// ParseRichText converts a rich text array to a plain string.
func ParseRichText(richText []RichText) string {
	var builder strings.Builder
	for i := range richText {
		builder.WriteString(richText[i].PlainText)
	}
	return builder.String()
}

// NewRichText builds a single-element rich text array from plain text,
// for use in write payloads.
func NewRichText(content string) []map[string]any {
	return []map[string]any{
		{"text": map[string]any{"content": content}},
	}
}

// API response types

// SearchResponse represents the response from the search endpoint.
// Results are kept raw because search can return both pages and databases.
type SearchResponse struct {
	Object     string            `json:"object"`
	Results    []json.RawMessage `json:"results"`
	NextCursor *string           `json:"next_cursor"`
	HasMore    bool              `json:"has_more"`
	Type       string            `json:"type"`
}

// BlockChildrenResponse represents the response from the block children endpoint.
type BlockChildrenResponse struct {
	Object     string  `json:"object"`
	Results    []Block `json:"results"`
	NextCursor *string `json:"next_cursor"`
	HasMore    bool    `json:"has_more"`
	Type       string  `json:"type"`
}

// APIError represents a Notion API error.
type APIError struct {
	Object  string `json:"object"`
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return e.Message
}

// IsPermanent returns true if this error will never resolve by retrying.
// These are errors where the resource doesn't exist, isn't shared with the
// integration, or is the wrong type.
func (e *APIError) IsPermanent() bool {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	case http.StatusBadRequest:
		return e.Code == "validation_error"
	}
	return false
}
