// Package sync orchestrates the pipeline: read content pages from the
// source workspace, enrich them, archive their images, and reconcile them
// into the destination database.
package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/ntnkb/ntnkb/internal/enrich"
	"github.com/ntnkb/ntnkb/internal/reader"
	"github.com/ntnkb/ntnkb/internal/reconcile"
)

// ContentReader is the source traversal capability set the syncer uses.
type ContentReader interface {
	ExtractValidContent(ctx context.Context, rootPageID string) ([]reader.ContentPage, error)
	FetchPageContent(ctx context.Context, pageID string) (*reader.PageContent, error)
}

// Reconciler is the destination reconciliation capability set.
type Reconciler interface {
	Initialize(ctx context.Context) error
	UpdateEntries(ctx context.Context, pages []reader.ContentPage) []reconcile.Result
}

// ImageArchiver copies a remote image into durable storage and returns its
// stable public URL.
type ImageArchiver interface {
	ArchiveImage(ctx context.Context, pageID, sourceURL string) (string, error)
}

// Report summarizes one sync run.
type Report struct {
	Total   int
	Created int
	Updated int
	Failed  int
	Results []reconcile.Result
}

// Syncer runs the end-to-end pipeline. The enricher and archiver are
// optional; without them the local heuristics stand in for summaries and
// the archival step is skipped.
type Syncer struct {
	reader   ContentReader
	engine   Reconciler
	enricher enrich.Service
	archiver ImageArchiver
	config   *Config
	logger   *slog.Logger
}

// SyncerOption configures the syncer.
type SyncerOption func(*Syncer)

// WithEnricher attaches the AI enrichment service.
func WithEnricher(service enrich.Service) SyncerOption {
	return func(s *Syncer) {
		s.enricher = service
	}
}

// WithArchiver attaches the image archival backend.
func WithArchiver(archiver ImageArchiver) SyncerOption {
	return func(s *Syncer) {
		s.archiver = archiver
	}
}

// WithSyncLogger sets a custom logger.
func WithSyncLogger(l *slog.Logger) SyncerOption {
	return func(s *Syncer) {
		s.logger = l
	}
}

// WithConfig overrides the environment-derived configuration.
func WithConfig(config *Config) SyncerOption {
	return func(s *Syncer) {
		s.config = config
	}
}

// NewSyncer creates a syncer over a content reader and a reconciler.
func NewSyncer(contentReader ContentReader, engine Reconciler, opts ...SyncerOption) *Syncer {
	syncer := &Syncer{
		reader: contentReader,
		engine: engine,
		config: GetConfig(),
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(syncer)
	}

	return syncer
}

// Run executes one full sync of the workspace under rootPageID. Per-page
// failures are carried in the report; only source traversal and baseline
// indexing failures abort the run.
func (s *Syncer) Run(ctx context.Context, rootPageID string) (*Report, error) {
	started := time.Now()

	if err := s.engine.Initialize(ctx); err != nil {
		return nil, err
	}

	pages, err := s.reader.ExtractValidContent(ctx, rootPageID)
	if err != nil {
		return nil, err
	}

	for i := range pages {
		s.enrichPage(ctx, &pages[i])
	}

	results := s.engine.UpdateEntries(ctx, pages)

	report := &Report{Total: len(results), Results: results}
	for _, result := range results {
		switch {
		case !result.Success:
			report.Failed++
		case result.Created:
			report.Created++
		default:
			report.Updated++
		}
	}

	s.logger.InfoContext(ctx, "sync run finished",
		"total", report.Total,
		"created", report.Created,
		"updated", report.Updated,
		"failed", report.Failed,
		"duration", time.Since(started))

	return report, nil
}

// enrichPage fills the derived fields of a content page in place. Every
// step degrades to a local fallback; enrichment never fails a page.
func (s *Syncer) enrichPage(ctx context.Context, page *reader.ContentPage) {
	if s.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.PageTimeout)
		defer cancel()
	}

	page.Excerpt = reader.GenerateExcerpt(page.Content, s.config.ExcerptLength)
	page.Tags = reader.ExtractTags(page.Content, page.Title, page.Category)
	page.MinsRead = reader.EstimateReadingTime(page.Content)

	if s.enricher != nil {
		page.Summary = s.enricher.Summarize(ctx, page.Content, enrich.SummarizeOptions{
			MaxLength: s.config.SummaryLength,
		})
	} else {
		page.Summary = reader.GenerateExcerpt(page.Content, s.config.SummaryLength)
	}

	page.ImageURL = s.resolveImage(ctx, page)

	if s.archiver != nil && page.ImageURL != "" {
		archived, err := s.archiver.ArchiveImage(ctx, page.ID, page.ImageURL)
		if err != nil {
			s.logger.WarnContext(ctx, "image archival failed, keeping source URL",
				"page_id", page.ID,
				"error", err)
		} else {
			page.R2ImageURL = archived
		}
	}
}

// resolveImage returns the page's image URL: the first image block when one
// exists, otherwise an AI-generated cover when generation is enabled.
func (s *Syncer) resolveImage(ctx context.Context, page *reader.ContentPage) string {
	content, err := s.reader.FetchPageContent(ctx, page.ID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch page blocks for image lookup",
			"page_id", page.ID,
			"error", err)
		content = nil
	}

	if content != nil {
		if url := reader.FirstImageURL(content.Blocks); url != "" {
			return url
		}
	}

	if !s.config.GenerateImages || s.enricher == nil {
		return ""
	}

	result := s.enricher.GenerateImage(ctx, coverPrompt(page), enrich.ImageOptions{})
	if !result.Success {
		s.logger.WarnContext(ctx, "cover generation failed",
			"page_id", page.ID,
			"error", result.Error)
		return ""
	}
	return result.URL
}

// coverPrompt builds the generation prompt for a page without an image.
func coverPrompt(page *reader.ContentPage) string {
	return "A clean, minimal cover illustration for study notes titled \"" +
		page.Title + "\" in the category " + page.Category + "."
}
