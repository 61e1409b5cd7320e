package sync

import (
	"os"
	"strconv"
	"time"
)

const (
	// defaultSummaryLength caps AI summaries in characters.
	defaultSummaryLength = 300

	// defaultExcerptLength caps generated excerpts in characters.
	defaultExcerptLength = 200
)

// Config holds sync-related configuration loaded from environment variables.
type Config struct {
	// SummaryLength is the summary character cap.
	SummaryLength int
	// ExcerptLength is the excerpt character cap.
	ExcerptLength int
	// GenerateImages enables AI image generation for pages without one.
	GenerateImages bool
	// PageTimeout bounds the processing of a single page (0 = no bound).
	PageTimeout time.Duration
}

// globalConfig is the singleton config instance.
var globalConfig *Config

// LoadConfig loads configuration from environment variables.
// It should be called once at application startup.
func LoadConfig() error {
	globalConfig = &Config{
		SummaryLength:  parseIntEnv(os.Getenv("NKB_SUMMARY_LENGTH"), defaultSummaryLength),
		ExcerptLength:  parseIntEnv(os.Getenv("NKB_EXCERPT_LENGTH"), defaultExcerptLength),
		GenerateImages: parseBoolEnv(os.Getenv("NKB_GENERATE_IMAGES"), false),
		PageTimeout:    parseDurationEnv(os.Getenv("NKB_PAGE_TIMEOUT"), 0),
	}

	return nil
}

// GetConfig returns the global configuration.
// If not loaded, it loads with defaults.
func GetConfig() *Config {
	if globalConfig == nil {
		// Load config if not already loaded (lazy initialization)
		_ = LoadConfig()
	}
	return globalConfig
}

// ResetConfig resets the global configuration, forcing a reload on next access.
// This is primarily used for testing.
func ResetConfig() {
	globalConfig = nil
}

// parseIntEnv parses an integer from a string, returning defaultVal on error.
func parseIntEnv(val string, defaultVal int) int {
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseBoolEnv parses a boolean from a string, returning defaultVal on error.
func parseBoolEnv(val string, defaultVal bool) bool {
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

// parseDurationEnv parses a duration from a string, returning defaultVal on error.
func parseDurationEnv(val string, defaultVal time.Duration) time.Duration {
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
