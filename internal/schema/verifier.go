package schema

import (
	"context"
	"log/slog"
)

// DatabaseController is the destination-client capability set the verifier
// depends on. The controller owns the active database ID; resolving an ID
// here makes it visible to every later component sharing the controller.
type DatabaseController interface {
	GetDatabaseID() string
	SetDatabaseID(id string)
	DatabaseExists(ctx context.Context) bool
	InitializeDatabase(ctx context.Context, parentPageID string, properties map[string]any) (string, error)
}

// VerifyResult is the structured outcome of verification or provisioning.
// Failures are reported here, never thrown past this boundary.
type VerifyResult struct {
	Success    bool
	DatabaseID string
	Error      string
}

// Verifier checks and provisions the destination database.
type Verifier struct {
	controller DatabaseController
	schema     *Schema
	logger     *slog.Logger
}

// VerifierOption configures the verifier.
type VerifierOption func(*Verifier)

// WithVerifierLogger sets a custom logger.
func WithVerifierLogger(l *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = l
	}
}

// WithSchema overrides the built-in required schema (e.g. from a schema
// file). The override replaces the schema wholesale; it is not merged or
// validated.
func WithSchema(s *Schema) VerifierOption {
	return func(v *Verifier) {
		v.schema = s
	}
}

// NewVerifier creates a verifier bound to a database controller.
func NewVerifier(controller DatabaseController, opts ...VerifierOption) *Verifier {
	verifier := &Verifier{
		controller: controller,
		schema:     Required(),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(verifier)
	}

	return verifier
}

// VerifyDatabase checks that the destination database exists and is
// accessible. When databaseID is non-empty the controller is pointed at it
// first; otherwise whatever ID the controller currently holds is checked.
//
// Verification is existence-only: the property shape is not validated
// against the required schema. That is a known limitation of the original
// behavior, preserved intentionally and surfaced as a warning.
func (v *Verifier) VerifyDatabase(ctx context.Context, databaseID string) VerifyResult {
	if databaseID != "" {
		v.controller.SetDatabaseID(databaseID)
	}

	if !v.controller.DatabaseExists(ctx) {
		return VerifyResult{Error: "Database does not exist or is not accessible"}
	}

	resolved := v.controller.GetDatabaseID()
	if resolved == "" {
		return VerifyResult{Error: "Database ID could not be resolved"}
	}

	v.logger.WarnContext(ctx, "database verified by existence only, schema shape not validated",
		"database_id", resolved)

	return VerifyResult{Success: true, DatabaseID: resolved}
}

// CreateDatabaseIfNeeded finds the destination database by name or creates
// it under the given parent page with the required schema, then re-verifies
// the resolved ID. The resolved ID is left on the controller so later
// components use the confirmed database.
func (v *Verifier) CreateDatabaseIfNeeded(ctx context.Context, parentPageID string) VerifyResult {
	id, err := v.controller.InitializeDatabase(ctx, parentPageID, v.schema.APIProperties())
	if err != nil {
		return VerifyResult{Error: err.Error()}
	}

	result := v.VerifyDatabase(ctx, id)
	if !result.Success {
		return result
	}

	v.logger.InfoContext(ctx, "destination database ready", "database_id", result.DatabaseID)
	return result
}
