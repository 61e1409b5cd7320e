package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ntnkb/ntnkb/internal/apperrors"
)

// DatabaseClient wraps a Client with the identity of one destination
// database. It is the write side of the sync: row queries, row
// creation/updates and database provisioning all go through it.
type DatabaseClient struct {
	client       *Client
	databaseID   string
	databaseName string
	logger       *slog.Logger
}

// DatabaseClientOption configures the database client.
type DatabaseClientOption func(*DatabaseClient)

// WithDatabaseLogger sets a custom logger.
func WithDatabaseLogger(l *slog.Logger) DatabaseClientOption {
	return func(dc *DatabaseClient) {
		dc.logger = l
	}
}

// NewDatabaseClient creates a database client. databaseID may be empty when
// the database is to be discovered by name or provisioned later.
func NewDatabaseClient(client *Client, databaseID, databaseName string, opts ...DatabaseClientOption) *DatabaseClient {
	dc := &DatabaseClient{
		client:       client,
		databaseID:   databaseID,
		databaseName: databaseName,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(dc)
	}

	return dc
}

// GetDatabaseID returns the currently configured database ID.
func (dc *DatabaseClient) GetDatabaseID() string {
	return dc.databaseID
}

// SetDatabaseID points the client at a different database.
func (dc *DatabaseClient) SetDatabaseID(id string) {
	dc.databaseID = id
}

// GetDatabase retrieves the database metadata by ID.
func (dc *DatabaseClient) GetDatabase(ctx context.Context) (*Database, error) {
	if dc.databaseID == "" {
		return nil, apperrors.ErrNoDatabaseID
	}

	var db Database
	if err := dc.client.do(ctx, "GET", "/databases/"+dc.databaseID, nil, &db); err != nil {
		return nil, fmt.Errorf("get database %s: %w", dc.databaseID, err)
	}
	return &db, nil
}

// DatabaseExists reports whether the configured database is accessible.
func (dc *DatabaseClient) DatabaseExists(ctx context.Context) bool {
	if dc.databaseID == "" {
		return false
	}
	if _, err := dc.GetDatabase(ctx); err != nil {
		dc.logger.DebugContext(ctx, "database not accessible",
			"database_id", dc.databaseID,
			"error", err)
		return false
	}
	return true
}

// FindByName searches for a database whose title matches the configured
// name and returns its ID. Returns ErrDatabaseNotFound when nothing matches.
func (dc *DatabaseClient) FindByName(ctx context.Context) (string, error) {
	var cursor string

	for {
		result, err := dc.client.Search(ctx, SearchFilter{
			Query:       dc.databaseName,
			FilterType:  "database",
			StartCursor: cursor,
		})
		if err != nil {
			return "", fmt.Errorf("search databases: %w", err)
		}

		for _, raw := range result.Results {
			var db Database
			if err := json.Unmarshal(raw, &db); err != nil {
				continue
			}
			if db.Object == "database" && db.GetTitle() == dc.databaseName {
				return db.ID, nil
			}
		}

		if !result.HasMore || result.NextCursor == nil {
			break
		}
		cursor = *result.NextCursor
	}

	return "", fmt.Errorf("%w: %s", apperrors.ErrDatabaseNotFound, dc.databaseName)
}

// CreateDatabase creates a new database with the given property schema under
// a parent page and returns the new database ID.
func (dc *DatabaseClient) CreateDatabase(ctx context.Context, parentPageID string, properties map[string]any) (string, error) {
	if parentPageID == "" {
		return "", apperrors.ErrParentPageRequired
	}

	body := map[string]any{
		"parent":     map[string]any{"type": "page_id", "page_id": parentPageID},
		"title":      NewRichText(dc.databaseName),
		"properties": properties,
	}

	var db Database
	if err := dc.client.do(ctx, "POST", "/databases", body, &db); err != nil {
		return "", fmt.Errorf("create database %q: %w", dc.databaseName, err)
	}

	dc.logger.InfoContext(ctx, "created database",
		"database_id", db.ID,
		"name", dc.databaseName,
		"parent_page_id", parentPageID)

	return db.ID, nil
}

// InitializeDatabase finds an existing database by name or creates one under
// the given parent page. The resolved ID becomes the configured database ID.
func (dc *DatabaseClient) InitializeDatabase(ctx context.Context, parentPageID string, properties map[string]any) (string, error) {
	if id, err := dc.FindByName(ctx); err == nil {
		dc.logger.InfoContext(ctx, "found existing database",
			"database_id", id,
			"name", dc.databaseName)
		dc.databaseID = id
		return id, nil
	}

	id, err := dc.CreateDatabase(ctx, parentPageID, properties)
	if err != nil {
		return "", err
	}
	dc.databaseID = id
	return id, nil
}

// QueryRows queries all rows of the configured database, following
// pagination until exhausted. filter may be nil.
func (dc *DatabaseClient) QueryRows(ctx context.Context, filter map[string]any) ([]DatabasePage, error) {
	if dc.databaseID == "" {
		return nil, apperrors.ErrNoDatabaseID
	}

	var allRows []DatabasePage
	var cursor string

	for {
		body := map[string]any{
			"page_size": defaultPageSize,
		}
		if filter != nil {
			body["filter"] = filter
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		var result QueryDatabaseResponse
		path := fmt.Sprintf("/databases/%s/query", dc.databaseID)
		if err := dc.client.do(ctx, "POST", path, body, &result); err != nil {
			return nil, fmt.Errorf("query database %s: %w", dc.databaseID, err)
		}

		allRows = append(allRows, result.Results...)

		if !result.HasMore || result.NextCursor == nil {
			break
		}
		cursor = *result.NextCursor
	}

	dc.logger.DebugContext(ctx, "database query complete",
		"database_id", dc.databaseID,
		"rows_found", len(allRows))
	return allRows, nil
}

// CreateRow creates a new row with the given properties and returns it.
func (dc *DatabaseClient) CreateRow(ctx context.Context, properties map[string]any) (*DatabasePage, error) {
	if dc.databaseID == "" {
		return nil, apperrors.ErrNoDatabaseID
	}
	return dc.client.CreatePage(ctx, dc.databaseID, properties)
}

// UpdateRow patches the properties of an existing row.
func (dc *DatabaseClient) UpdateRow(ctx context.Context, rowID string, properties map[string]any) error {
	return dc.client.UpdatePageProperties(ctx, rowID, properties)
}

// RowUpdate pairs a row ID with the properties to apply to it.
type RowUpdate struct {
	ID         string
	Properties map[string]any
}

// BatchUpdateRows applies updates sequentially, stopping at the first error.
// Sequential on purpose: the API is rate limited and ordered diagnostics
// matter more than throughput here.
func (dc *DatabaseClient) BatchUpdateRows(ctx context.Context, updates []RowUpdate) error {
	for i := range updates {
		if err := dc.UpdateRow(ctx, updates[i].ID, updates[i].Properties); err != nil {
			return fmt.Errorf("batch update row %s: %w", updates[i].ID, err)
		}
	}
	return nil
}
