package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ntnkb/ntnkb/internal/version"
)

// Maximum allowed timestamp age for webhook events (5 minutes).
const maxTimestampAge = 5 * time.Minute

// Event represents a source workspace webhook event payload.
type Event struct {
	ID                string    `json:"id"`                           // Event ID
	Type              string    `json:"type"`                         // Event type (e.g., "page.content_updated")
	Timestamp         string    `json:"timestamp,omitempty"`          // ISO 8601 timestamp
	WorkspaceID       string    `json:"workspace_id,omitempty"`       // Workspace ID
	WorkspaceName     string    `json:"workspace_name,omitempty"`     // Workspace name
	SubscriptionID    string    `json:"subscription_id,omitempty"`    // Webhook subscription ID
	IntegrationID     string    `json:"integration_id,omitempty"`     // Integration ID
	AttemptNumber     int       `json:"attempt_number,omitempty"`     // Delivery attempt number
	APIVersion        string    `json:"api_version,omitempty"`        // Source API version
	Authors           []Author  `json:"authors,omitempty"`            // Users who triggered the event
	Entity            *Entity   `json:"entity,omitempty"`             // The affected entity (page, database, etc.)
	Data              EventData `json:"data"`                         // Event-specific data
	VerificationToken string    `json:"verification_token,omitempty"` // For URL verification requests
}

// Author represents a user who triggered the event.
type Author struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "person" or "bot"
}

// Entity represents the affected object (page, database, etc.).
type Entity struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "page", "database", etc.
}

// EventData contains event-specific details.
type EventData struct {
	Parent        *Parent        `json:"parent,omitempty"`
	UpdatedBlocks []UpdatedBlock `json:"updated_blocks,omitempty"` // For content_updated events
}

// Parent contains parent information.
type Parent struct {
	ID   string `json:"id"`
	Type string `json:"type"` // "workspace", "page", "database", "team", etc.
}

// UpdatedBlock represents a block that was updated.
type UpdatedBlock struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// GetEntityID returns the entity ID from the event.
func (e *Event) GetEntityID() string {
	if e.Entity != nil {
		return e.Entity.ID
	}
	return ""
}

// GetEntityType returns the entity type from the event.
func (e *Event) GetEntityType() string {
	if e.Entity != nil {
		return e.Entity.Type
	}
	return ""
}

// Handler handles incoming webhook requests.
type Handler struct {
	logger     *slog.Logger
	secret     string
	syncWorker *SyncWorker
}

// NewHandler creates a new webhook handler.
// If syncWorker is nil, events are acknowledged but never trigger a sync.
func NewHandler(secret string, logger *slog.Logger, syncWorker *SyncWorker) *Handler {
	return &Handler{
		logger:     logger,
		secret:     secret,
		syncWorker: syncWorker,
	}
}

// HandleWebhook handles incoming webhook requests.
func (h *Handler) HandleWebhook(writer http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if req.Method != http.MethodPost {
		h.logger.WarnContext(ctx, "invalid method", "method", req.Method)
		http.Error(writer, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Verify webhook signature
	if !h.verifySignature(req) {
		h.logger.WarnContext(ctx, "invalid webhook signature")
		http.Error(writer, "Invalid signature", http.StatusUnauthorized)
		return
	}

	// Parse webhook payload
	var event Event
	rawJSON, err := io.ReadAll(req.Body)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to read webhook payload", "error", err)
		http.Error(writer, "Invalid payload", http.StatusBadRequest)
		return
	}

	h.logger.DebugContext(ctx, "received webhook", "rawJson", string(rawJSON))

	if err := json.Unmarshal(rawJSON, &event); err != nil {
		h.logger.ErrorContext(ctx, "failed to decode webhook", "error", err)
		http.Error(writer, "Invalid payload", http.StatusBadRequest)
		return
	}

	h.logger.InfoContext(ctx, "received webhook event",
		"event_type", event.Type,
		"entity_id", event.GetEntityID(),
		"entity_type", event.GetEntityType())

	h.processEvent(ctx, &event)

	// Acknowledge receipt immediately
	writer.WriteHeader(http.StatusOK)
}

// handleURLVerification handles the webhook URL verification request.
func (h *Handler) handleURLVerification(ctx context.Context, event *Event) {
	h.logger.InfoContext(ctx, "received URL verification request",
		"verification_token", event.VerificationToken)

	if event.VerificationToken == "" {
		h.logger.WarnContext(ctx, "URL verification request missing verification_token")
		return
	}
	h.logger.InfoContext(ctx, "URL verification successful")
}

// HandleVersion handles the /api/version endpoint.
func (h *Handler) HandleVersion(writer http.ResponseWriter, req *http.Request) {
	response := map[string]string{
		"version":    version.Version,
		"commit":     version.Commit,
		"build_time": version.GitTime,
	}

	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(response); err != nil {
		h.logger.ErrorContext(req.Context(), "failed to encode version response", "error", err)
	}
}

// HandleHealth handles the /health endpoint for health checks.
func (h *Handler) HandleHealth(writer http.ResponseWriter, req *http.Request) {
	response := map[string]string{
		"status": "ok",
	}

	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(response); err != nil {
		h.logger.ErrorContext(req.Context(), "failed to encode health response", "error", err)
	}
}

// verifySignature verifies the webhook signature using HMAC-SHA256.
// If no secret is configured, signature verification is skipped.
func (h *Handler) verifySignature(req *http.Request) bool {
	// Skip verification if no secret is configured
	if h.secret == "" {
		return true
	}

	signature := req.Header.Get("Notion-Webhook-Signature")
	timestamp := req.Header.Get("Notion-Webhook-Timestamp")

	if signature == "" || timestamp == "" {
		h.logger.Debug("missing signature or timestamp headers")
		return false
	}

	// Validate timestamp
	if !h.validateTimestamp(timestamp) {
		h.logger.Debug("timestamp validation failed", "timestamp", timestamp)
		return false
	}

	// Read body
	body, err := io.ReadAll(req.Body)
	if err != nil {
		h.logger.Debug("failed to read body", "error", err)
		return false
	}
	req.Body = io.NopCloser(bytes.NewBuffer(body))

	// Reconstruct signed content: timestamp + body
	signedContent := timestamp + string(body)

	// Compute HMAC-SHA256
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write([]byte(signedContent))
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

// validateTimestamp checks if the timestamp is within the allowed window.
func (h *Handler) validateTimestamp(timestamp string) bool {
	timestampValue, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}

	// Reject events older than maxTimestampAge
	age := time.Since(time.Unix(timestampValue, 0))
	return age < maxTimestampAge && age > -maxTimestampAge
}

// processEvent routes the event. Content-affecting events notify the sync
// worker; the worker debounces bursts into a single run.
func (h *Handler) processEvent(ctx context.Context, event *Event) {
	switch event.Type {
	case "page.created", "page.updated", "page.content_updated", "page.properties_updated",
		"page.deleted", "page.undeleted",
		"database.created", "database.updated", "database.content_updated", "database.properties_updated":
		h.notifySync(ctx, event)
	case "":
		if event.VerificationToken != "" {
			h.handleURLVerification(ctx, event)
		}
	default:
		h.logger.WarnContext(ctx, "unhandled event type", "type", event.Type)
	}
}

// notifySync requests a background sync for a content-affecting event.
func (h *Handler) notifySync(ctx context.Context, event *Event) {
	if h.syncWorker == nil {
		h.logger.DebugContext(ctx, "no sync worker configured, event dropped",
			"event_type", event.Type,
			"entity_id", event.GetEntityID())
		return
	}

	h.logger.InfoContext(ctx, "sync requested by webhook event",
		"event_type", event.Type,
		"entity_id", event.GetEntityID(),
		"workspace", event.WorkspaceName)

	h.syncWorker.Notify()
}
