package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

const testSecret = "test-webhook-secret" //nolint:gosec // test constant

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func computeSignature(timestamp string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + string(body)))
	return hex.EncodeToString(mac.Sum(nil))
}

// TestVerifySignature_Valid verifies that valid signatures pass verification.
func TestVerifySignature_Valid(t *testing.T) {
	t.Parallel()

	handler := NewHandler(testSecret, testLogger(), nil)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	body := []byte(`{"type":"page.updated"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/notion", bytes.NewReader(body))
	req.Header.Set("Notion-Webhook-Signature", computeSignature(timestamp, body, testSecret))
	req.Header.Set("Notion-Webhook-Timestamp", timestamp)

	if !handler.verifySignature(req) {
		t.Error("expected valid signature to pass verification")
	}
}

// TestVerifySignature_Invalid verifies that invalid signatures fail verification.
func TestVerifySignature_Invalid(t *testing.T) {
	t.Parallel()

	handler := NewHandler(testSecret, testLogger(), nil)
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	body := []byte(`{"type":"page.updated"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/notion", bytes.NewReader(body))
	req.Header.Set("Notion-Webhook-Signature", "invalid-signature")
	req.Header.Set("Notion-Webhook-Timestamp", timestamp)

	if handler.verifySignature(req) {
		t.Error("expected invalid signature to fail verification")
	}
}

// TestVerifySignature_NoSecret verifies that verification is skipped when no secret is configured.
func TestVerifySignature_NoSecret(t *testing.T) {
	t.Parallel()

	handler := NewHandler("", testLogger(), nil)
	body := []byte(`{"type":"page.updated"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/notion", bytes.NewReader(body))

	if !handler.verifySignature(req) {
		t.Error("expected verification to pass when no secret is configured")
	}
}

// TestVerifySignature_MissingHeaders verifies that missing headers fail verification.
func TestVerifySignature_MissingHeaders(t *testing.T) {
	t.Parallel()

	handler := NewHandler(testSecret, testLogger(), nil)
	body := []byte(`{"type":"page.updated"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/notion", bytes.NewReader(body))
	req.Header.Set("Notion-Webhook-Timestamp", strconv.FormatInt(time.Now().Unix(), 10))

	if handler.verifySignature(req) {
		t.Error("expected missing signature header to fail verification")
	}
}

// TestVerifySignature_StaleTimestamp verifies that old timestamps fail verification.
func TestVerifySignature_StaleTimestamp(t *testing.T) {
	t.Parallel()

	handler := NewHandler(testSecret, testLogger(), nil)
	timestamp := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)
	body := []byte(`{"type":"page.updated"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/notion", bytes.NewReader(body))
	req.Header.Set("Notion-Webhook-Signature", computeSignature(timestamp, body, testSecret))
	req.Header.Set("Notion-Webhook-Timestamp", timestamp)

	if handler.verifySignature(req) {
		t.Error("expected stale timestamp to fail verification")
	}
}

func TestHandleWebhook_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	handler := NewHandler("", testLogger(), nil)
	req := httptest.NewRequest(http.MethodGet, "/webhooks/notion", nil)
	recorder := httptest.NewRecorder()

	handler.HandleWebhook(recorder, req)

	if recorder.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", recorder.Code)
	}
}

func TestHandleWebhook_InvalidPayload(t *testing.T) {
	t.Parallel()

	handler := NewHandler("", testLogger(), nil)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/notion", bytes.NewReader([]byte("not json")))
	recorder := httptest.NewRecorder()

	handler.HandleWebhook(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", recorder.Code)
	}
}

func TestHandleWebhook_ContentEventNotifiesWorker(t *testing.T) {
	t.Parallel()

	worker := NewSyncWorker(nil, "root", testLogger())
	handler := NewHandler("", testLogger(), worker)

	body := []byte(`{"type":"page.content_updated","entity":{"id":"p1","type":"page"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/notion", bytes.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.HandleWebhook(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	select {
	case <-worker.notify:
		// notified
	default:
		t.Error("expected a pending worker notification")
	}
}

func TestHandleWebhook_URLVerificationAcknowledged(t *testing.T) {
	t.Parallel()

	worker := NewSyncWorker(nil, "root", testLogger())
	handler := NewHandler("", testLogger(), worker)

	body := []byte(`{"verification_token":"tok-123"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/notion", bytes.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.HandleWebhook(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}

	select {
	case <-worker.notify:
		t.Error("verification request must not trigger a sync")
	default:
	}
}

func TestHandleWebhook_UnknownEventIsAcknowledged(t *testing.T) {
	t.Parallel()

	worker := NewSyncWorker(nil, "root", testLogger())
	handler := NewHandler("", testLogger(), worker)

	body := []byte(`{"type":"comment.created"}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/notion", bytes.NewReader(body))
	recorder := httptest.NewRecorder()

	handler.HandleWebhook(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", recorder.Code)
	}

	select {
	case <-worker.notify:
		t.Error("unknown event must not trigger a sync")
	default:
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	handler := NewHandler("", testLogger(), nil)
	recorder := httptest.NewRecorder()

	handler.HandleHealth(recorder, httptest.NewRequest(http.MethodGet, "/health", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var response map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("expected ok status, got %q", response["status"])
	}
}

func TestHandleVersion(t *testing.T) {
	t.Parallel()

	handler := NewHandler("", testLogger(), nil)
	recorder := httptest.NewRecorder()

	handler.HandleVersion(recorder, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", recorder.Code)
	}

	var response map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if _, ok := response["version"]; !ok {
		t.Error("expected version field in response")
	}
}

func TestEventEntityAccessors(t *testing.T) {
	t.Parallel()

	withEntity := &Event{Entity: &Entity{ID: "e1", Type: "page"}}
	if withEntity.GetEntityID() != "e1" || withEntity.GetEntityType() != "page" {
		t.Error("expected entity fields returned")
	}

	without := &Event{}
	if without.GetEntityID() != "" || without.GetEntityType() != "" {
		t.Error("expected empty values for missing entity")
	}
}
