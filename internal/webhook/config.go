// Package webhook provides HTTP webhook handling for source workspace
// events, triggering debounced background syncs.
package webhook

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// defaultWebhookPort is the default HTTP port for the webhook server.
	defaultWebhookPort = 8080

	// defaultSyncDelay debounces bursts of events into one sync run.
	defaultSyncDelay = 30 * time.Second
)

// ServerConfig holds configuration for the webhook server.
type ServerConfig struct {
	Port      int           // HTTP port to listen on (NKB_WEBHOOK_PORT, default 8080)
	Path      string        // Webhook endpoint path (NKB_WEBHOOK_PATH, default /webhooks/notion)
	Secret    string        // Webhook secret for signature verification (NKB_WEBHOOK_SECRET, optional)
	SyncDelay time.Duration // Debounce delay before a sync run (NKB_WEBHOOK_SYNC_DELAY, default 30s)
}

// LoadConfigFromEnv loads webhook configuration from environment variables.
func LoadConfigFromEnv() *ServerConfig {
	cfg := &ServerConfig{
		Port:      defaultWebhookPort,
		Path:      "/webhooks/notion",
		Secret:    os.Getenv("NKB_WEBHOOK_SECRET"),
		SyncDelay: defaultSyncDelay,
	}

	if portStr := os.Getenv("NKB_WEBHOOK_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 {
			cfg.Port = port
		}
	}

	if path := os.Getenv("NKB_WEBHOOK_PATH"); path != "" {
		cfg.Path = path
	}

	if syncDelayStr := os.Getenv("NKB_WEBHOOK_SYNC_DELAY"); syncDelayStr != "" {
		if d, err := time.ParseDuration(syncDelayStr); err == nil && d >= 0 {
			cfg.SyncDelay = d
		}
	}

	return cfg
}

// IsValid returns true if the configuration is valid.
// Secret is optional (signature verification is skipped if not set).
func (c *ServerConfig) IsValid() bool {
	return c.Port > 0 && c.Path != "" && strings.HasPrefix(c.Path, "/")
}
