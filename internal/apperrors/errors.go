// Package apperrors provides common static errors used throughout the application.
package apperrors

import (
	"errors"
	"fmt"
)

// HTTPError represents an HTTP error with a status code.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NewHTTPError creates a new HTTPError.
func NewHTTPError(statusCode int, body string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Body: body}
}

// Common static errors used throughout the application.
var (
	// ErrNotionTokenRequired is returned when a Notion token is required but not provided.
	ErrNotionTokenRequired = errors.New("notion token required (--token or NOTION_TOKEN env var)")

	// ErrRootPageRequired is returned when a root page ID is required but not provided.
	ErrRootPageRequired = errors.New("root page ID required (--root-page or NKB_ROOT_PAGE_ID env var)")

	// ErrDatabaseIDRequired is returned when a database ID is required but not provided.
	ErrDatabaseIDRequired = errors.New("database ID required (--database or NKB_DATABASE_ID env var)")

	// ErrParentPageRequired is returned when a parent page ID is required to provision a database.
	ErrParentPageRequired = errors.New("parent page ID required to create the database")

	// ErrMaxRetriesExceeded is returned when the maximum number of retries is exceeded.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrEmptyInput is returned when an empty input is provided.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidPageIDFormat is returned when a page ID has an invalid format.
	ErrInvalidPageIDFormat = errors.New("invalid page ID format")

	// ErrMaxDepthExceeded is returned when the maximum nesting depth is exceeded
	// while expanding a block tree.
	ErrMaxDepthExceeded = errors.New("max depth exceeded while expanding block tree")

	// ErrDatabaseNotFound is returned when no database with the expected name is accessible.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrNoDatabaseID is returned when a database operation is attempted without an ID set.
	ErrNoDatabaseID = errors.New("no database ID configured")

	// ErrImageJobFailed is returned when an asynchronous image generation job reports failure.
	ErrImageJobFailed = errors.New("image generation job failed")

	// ErrImageJobTimeout is returned when polling an image generation job exceeds the attempt budget.
	ErrImageJobTimeout = errors.New("image generation job timed out")
)
