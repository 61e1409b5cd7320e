package reader

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/ntnkb/ntnkb/internal/notion"
)

const (
	// maxBlockDepth bounds recursive block expansion. The source tree is
	// assumed finite and acyclic; the guard keeps a malformed cyclic
	// response from hanging the run (children beyond the limit are left
	// unexpanded).
	maxBlockDepth = 64

	// defaultCategoryPrefix is prepended to course-code category names to
	// form the destination category label, e.g. "3701" -> "CITS3701".
	defaultCategoryPrefix = "CITS"
)

// CategoryType classifies a category by naming convention.
type CategoryType string

// Category types.
const (
	// CategoryRegular uses the category name verbatim as the label.
	CategoryRegular CategoryType = "regular"
	// CategoryMIT marks course-code style names that get the unit prefix.
	CategoryMIT CategoryType = "mit"
)

// courseCodePattern matches course-code style category names, either all
// digits ("3701") or uppercase letters followed by digits ("ENG1012").
// Case-sensitive on purpose.
var courseCodePattern = regexp.MustCompile(`^\d{3,5}$|^[A-Z]{1,4}\d{3,5}$`)

// Category is a first-level grouping under the source root page.
type Category struct {
	ID   string
	Name string
	Type CategoryType
}

// Label returns the destination category label, applying the prefix rule
// for course-code categories.
func (c *Category) Label(prefix string) string {
	if c.Type == CategoryMIT {
		return prefix + c.Name
	}
	return c.Name
}

// Status is the curation state of a destination entry.
type Status string

// Entry statuses.
const (
	StatusDraft     Status = "Draft"
	StatusReady     Status = "Ready"
	StatusReview    Status = "Review"
	StatusPublished Status = "Published"
)

// ContentPage is the canonical unit synced into the destination database.
// Enrichment fields (Summary, Excerpt, Tags, MinsRead, ImageURL,
// R2ImageURL) start empty and are filled before reconciliation; a
// ContentPage is never mutated after it reaches the reconciliation engine.
type ContentPage struct {
	ID              string
	Title           string
	ParentID        string
	Category        string
	Content         string
	Summary         string
	Excerpt         string
	Tags            []string
	MinsRead        int
	Status          Status
	Published       bool
	OriginalPageURL string
	ImageURL        string
	R2ImageURL      string
	CreatedTime     time.Time
	LastEditedTime  time.Time
}

// PageContent is the fetched metadata and fully expanded block tree of one
// source page.
type PageContent struct {
	ID             string
	Title          string
	CreatedTime    time.Time
	LastEditedTime time.Time
	Blocks         []Block
}

// Source is the document API capability set the reader depends on.
type Source interface {
	GetPage(ctx context.Context, pageID string) (*notion.Page, error)
	GetBlockChildren(ctx context.Context, blockID, cursor string) (*notion.BlockChildrenResponse, error)
}

// Reader traverses the source workspace and produces Category and
// ContentPage sequences. Page content and category listings are cached per
// ID for the lifetime of the reader instance; a run observes a static
// source snapshot, so the caches are never invalidated mid-run.
type Reader struct {
	source         Source
	logger         *slog.Logger
	categoryPrefix string

	pageCache     map[string]*PageContent
	categoryCache map[string][]Category
}

// Option configures the reader.
type Option func(*Reader)

// WithReaderLogger sets a custom logger.
func WithReaderLogger(l *slog.Logger) Option {
	return func(r *Reader) {
		r.logger = l
	}
}

// WithCategoryPrefix overrides the course-code category label prefix.
func WithCategoryPrefix(prefix string) Option {
	return func(r *Reader) {
		r.categoryPrefix = prefix
	}
}

// New creates a reader on top of a document source.
func New(source Source, opts ...Option) *Reader {
	r := &Reader{
		source:         source,
		logger:         slog.Default(),
		categoryPrefix: defaultCategoryPrefix,
		pageCache:      make(map[string]*PageContent),
		categoryCache:  make(map[string][]Category),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// FetchBlocks retrieves all children of a node, following the pagination
// cursor until the source reports no further pages, and normalizes each
// raw block. The underlying client enforces the inter-request delay.
func (r *Reader) FetchBlocks(ctx context.Context, pageID string) ([]Block, error) {
	var blocks []Block
	var cursor string

	for {
		result, err := r.source.GetBlockChildren(ctx, pageID, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch blocks %s: %w", pageID, err)
		}

		for i := range result.Results {
			blocks = append(blocks, normalizeBlock(&result.Results[i]))
		}

		if !result.HasMore || result.NextCursor == nil {
			break
		}
		cursor = *result.NextCursor
	}

	return blocks, nil
}

// FetchNestedBlocks recursively resolves children for every block flagged
// HasChildren, materializing the full subtree. Blocks without children pass
// through unchanged.
func (r *Reader) FetchNestedBlocks(ctx context.Context, blocks []Block) ([]Block, error) {
	return r.fetchNested(ctx, blocks, 0)
}

func (r *Reader) fetchNested(ctx context.Context, blocks []Block, depth int) ([]Block, error) {
	if depth >= maxBlockDepth {
		r.logger.WarnContext(ctx, "max block depth reached, leaving children unexpanded",
			"depth", depth)
		return blocks, nil
	}

	for i := range blocks {
		block := &blocks[i]
		if !block.HasChildren {
			continue
		}

		children, err := r.FetchBlocks(ctx, block.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch nested blocks %s: %w", block.ID, err)
		}

		children, err = r.fetchNested(ctx, children, depth+1)
		if err != nil {
			return nil, err
		}
		block.Children = children
	}

	return blocks, nil
}

// FetchPageContent retrieves page metadata plus its fully nested block
// tree. Results are cached per page ID; repeat calls return the cached
// value without re-hitting the source.
func (r *Reader) FetchPageContent(ctx context.Context, pageID string) (*PageContent, error) {
	if cached, ok := r.pageCache[pageID]; ok {
		r.logger.DebugContext(ctx, "page content cache hit", "page_id", pageID)
		return cached, nil
	}

	page, err := r.source.GetPage(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", pageID, err)
	}

	blocks, err := r.FetchBlocks(ctx, pageID)
	if err != nil {
		return nil, err
	}

	blocks, err = r.FetchNestedBlocks(ctx, blocks)
	if err != nil {
		return nil, err
	}

	content := &PageContent{
		ID:             pageID,
		Title:          page.Title(),
		CreatedTime:    page.CreatedTime,
		LastEditedTime: page.LastEditedTime,
		Blocks:         blocks,
	}

	r.pageCache[pageID] = content
	return content, nil
}

// ExtractCategories fetches the root page's children, keeps the child-page
// blocks and classifies each by name. Results are cached per root ID for
// the lifetime of the reader.
func (r *Reader) ExtractCategories(ctx context.Context, rootPageID string) ([]Category, error) {
	if cached, ok := r.categoryCache[rootPageID]; ok {
		return cached, nil
	}

	blocks, err := r.FetchBlocks(ctx, rootPageID)
	if err != nil {
		return nil, fmt.Errorf("extract categories %s: %w", rootPageID, err)
	}

	var categories []Category
	for i := range blocks {
		block := &blocks[i]
		if block.Type != BlockChildPage || block.ChildPage == nil {
			continue
		}
		categories = append(categories, Category{
			ID:   block.ID,
			Name: block.ChildPage.Title,
			Type: categoryTypeFor(block.ChildPage.Title),
		})
	}

	r.logger.InfoContext(ctx, "extracted categories",
		"root_page_id", rootPageID,
		"count", len(categories))

	r.categoryCache[rootPageID] = categories
	return categories, nil
}

// categoryTypeFor classifies a category name by naming convention.
func categoryTypeFor(name string) CategoryType {
	if courseCodePattern.MatchString(name) {
		return CategoryMIT
	}
	return CategoryRegular
}

// ExtractValidContent walks every category's children, keeps the leaf
// content pages and builds a ContentPage for each. Categories and leaf
// pages are processed strictly in source listing order.
func (r *Reader) ExtractValidContent(ctx context.Context, rootPageID string) ([]ContentPage, error) {
	categories, err := r.ExtractCategories(ctx, rootPageID)
	if err != nil {
		return nil, err
	}

	var pages []ContentPage
	for i := range categories {
		category := &categories[i]

		blocks, err := r.FetchBlocks(ctx, category.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch category %s: %w", category.ID, err)
		}

		for j := range blocks {
			block := &blocks[j]
			if block.Type != BlockChildPage {
				continue
			}

			content, err := r.FetchPageContent(ctx, block.ID)
			if err != nil {
				return nil, fmt.Errorf("fetch content page %s: %w", block.ID, err)
			}

			pages = append(pages, ContentPage{
				ID:              content.ID,
				Title:           content.Title,
				ParentID:        category.ID,
				Category:        category.Label(r.categoryPrefix),
				Content:         ConvertBlocksToText(content.Blocks),
				Status:          StatusDraft,
				OriginalPageURL: notion.PageURL(content.ID),
				CreatedTime:     content.CreatedTime,
				LastEditedTime:  content.LastEditedTime,
			})
		}
	}

	r.logger.InfoContext(ctx, "extracted content pages",
		"root_page_id", rootPageID,
		"count", len(pages))

	return pages, nil
}
