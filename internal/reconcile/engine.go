// Package reconcile maintains the destination database: it indexes
// existing rows and decides, per content page, whether to create a new row
// or update the matched one.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ntnkb/ntnkb/internal/notion"
	"github.com/ntnkb/ntnkb/internal/reader"
	"github.com/ntnkb/ntnkb/internal/schema"
)

// Destination is the database capability set the engine depends on.
type Destination interface {
	QueryRows(ctx context.Context, filter map[string]any) ([]notion.DatabasePage, error)
	CreateRow(ctx context.Context, properties map[string]any) (*notion.DatabasePage, error)
	UpdateRow(ctx context.Context, rowID string, properties map[string]any) error
}

// Result reports the outcome of reconciling one content page. Failures are
// structured results, not errors, so batch processing continues past them.
type Result struct {
	PageID  string
	Title   string
	Created bool
	Success bool
	Error   string
}

// Engine reconciles content pages against the destination database.
//
// The index is dual-keyed: each known row is reachable by its own row ID
// and by its derived source URL, both pointing at the same row value. The
// engine is scoped to one sync run; construct a fresh one per run rather
// than sharing across runs.
type Engine struct {
	dest   Destination
	logger *slog.Logger

	existing map[string]*notion.DatabasePage
}

// Option configures the engine.
type Option func(*Engine)

// WithEngineLogger sets a custom logger.
func WithEngineLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// NewEngine creates a reconciliation engine.
func NewEngine(dest Destination, opts ...Option) *Engine {
	engine := &Engine{
		dest:     dest,
		logger:   slog.Default(),
		existing: make(map[string]*notion.DatabasePage),
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

// Initialize loads the baseline index of existing rows. A query failure is
// fatal and propagates: without the baseline the engine cannot safely
// decide create-vs-update.
func (e *Engine) Initialize(ctx context.Context) error {
	rows, err := e.dest.QueryRows(ctx, nil)
	if err != nil {
		return fmt.Errorf("query existing rows: %w", err)
	}

	for i := range rows {
		row := &rows[i]
		e.existing[row.ID] = row
		if url := row.URLProperty(schema.PropOriginalPage); url != "" {
			e.existing[url] = row
		}
	}

	e.logger.InfoContext(ctx, "indexed existing entries",
		"rows", len(rows),
		"keys", len(e.existing))

	return nil
}

// UpdateEntry reconciles a single content page: an existing row matched by
// the page's derived source URL is updated, otherwise a new row is created
// and indexed so later calls in the same run see it.
//
// Status and Published are owned by manual curation: they are set only on
// create (Draft / false) and never included in update payloads.
func (e *Engine) UpdateEntry(ctx context.Context, page *reader.ContentPage) Result {
	url := notion.PageURL(page.ID)
	properties := buildProperties(page, url)

	if row, ok := e.existing[url]; ok {
		if err := e.dest.UpdateRow(ctx, row.ID, properties); err != nil {
			e.logger.ErrorContext(ctx, "failed to update entry",
				"page_id", page.ID,
				"row_id", row.ID,
				"error", err)
			return Result{PageID: page.ID, Title: page.Title, Error: err.Error()}
		}

		e.logger.InfoContext(ctx, "updated entry",
			"page_id", page.ID,
			"row_id", row.ID,
			"title", page.Title)
		return Result{PageID: page.ID, Title: page.Title, Success: true}
	}

	properties[schema.PropStatus] = map[string]any{
		"select": map[string]any{"name": string(reader.StatusDraft)},
	}
	properties[schema.PropPublished] = map[string]any{"checkbox": false}

	row, err := e.dest.CreateRow(ctx, properties)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to create entry",
			"page_id", page.ID,
			"error", err)
		return Result{PageID: page.ID, Title: page.Title, Error: err.Error()}
	}

	// Index the new row under both aliases so reprocessing the same page
	// within this run updates instead of duplicating.
	e.existing[url] = row
	e.existing[row.ID] = row

	e.logger.InfoContext(ctx, "created entry",
		"page_id", page.ID,
		"row_id", row.ID,
		"title", page.Title)
	return Result{PageID: page.ID, Title: page.Title, Created: true, Success: true}
}

// UpdateEntries reconciles pages sequentially in input order, one result
// per input. A failed page never blocks the ones after it.
func (e *Engine) UpdateEntries(ctx context.Context, pages []reader.ContentPage) []Result {
	results := make([]Result, 0, len(pages))
	for i := range pages {
		results = append(results, e.UpdateEntry(ctx, &pages[i]))
	}
	return results
}

// GetExistingEntry looks up a row by either alias (row ID or source URL).
func (e *Engine) GetExistingEntry(idOrURL string) (*notion.DatabasePage, bool) {
	row, ok := e.existing[idOrURL]
	return row, ok
}

// GetAllExistingEntries returns the distinct indexed rows. Rows are
// double-indexed, so the result deduplicates by row identity, not key
// count.
func (e *Engine) GetAllExistingEntries() []*notion.DatabasePage {
	seen := make(map[*notion.DatabasePage]bool)
	var rows []*notion.DatabasePage
	for _, row := range e.existing {
		if seen[row] {
			continue
		}
		seen[row] = true
		rows = append(rows, row)
	}
	return rows
}

// buildProperties builds the write payload for a content page. Status and
// Published are deliberately absent; UpdateEntry adds them on create only.
func buildProperties(page *reader.ContentPage, url string) map[string]any {
	properties := map[string]any{
		schema.PropTitle: map[string]any{
			"title": notion.NewRichText(page.Title),
		},
		schema.PropCategory: map[string]any{
			"select": map[string]any{"name": page.Category},
		},
		schema.PropSummary: map[string]any{
			"rich_text": notion.NewRichText(page.Summary),
		},
		schema.PropExcerpt: map[string]any{
			"rich_text": notion.NewRichText(page.Excerpt),
		},
		schema.PropMinsRead: map[string]any{
			"number": page.MinsRead,
		},
		schema.PropOriginalPage: map[string]any{
			"url": url,
		},
		schema.PropDateCreated: map[string]any{
			"date": map[string]any{"start": page.CreatedTime.Format(time.RFC3339)},
		},
	}

	if page.ImageURL != "" {
		properties[schema.PropImage] = map[string]any{"url": page.ImageURL}
	}
	if page.R2ImageURL != "" {
		properties[schema.PropR2ImageURL] = map[string]any{"url": page.R2ImageURL}
	}
	if len(page.Tags) > 0 {
		options := make([]map[string]any, 0, len(page.Tags))
		for _, tag := range page.Tags {
			options = append(options, map[string]any{"name": tag})
		}
		properties[schema.PropTags] = map[string]any{"multi_select": options}
	}

	return properties
}
