package sync

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	t.Cleanup(ResetConfig)

	cfg := GetConfig()

	if cfg.SummaryLength != defaultSummaryLength {
		t.Errorf("expected default summary length, got %d", cfg.SummaryLength)
	}
	if cfg.ExcerptLength != defaultExcerptLength {
		t.Errorf("expected default excerpt length, got %d", cfg.ExcerptLength)
	}
	if cfg.GenerateImages {
		t.Error("expected image generation disabled by default")
	}
	if cfg.PageTimeout != 0 {
		t.Errorf("expected no page timeout by default, got %v", cfg.PageTimeout)
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("NKB_SUMMARY_LENGTH", "150")
	t.Setenv("NKB_EXCERPT_LENGTH", "80")
	t.Setenv("NKB_GENERATE_IMAGES", "true")
	t.Setenv("NKB_PAGE_TIMEOUT", "45s")

	ResetConfig()
	t.Cleanup(ResetConfig)

	cfg := GetConfig()

	if cfg.SummaryLength != 150 {
		t.Errorf("expected 150, got %d", cfg.SummaryLength)
	}
	if cfg.ExcerptLength != 80 {
		t.Errorf("expected 80, got %d", cfg.ExcerptLength)
	}
	if !cfg.GenerateImages {
		t.Error("expected image generation enabled")
	}
	if cfg.PageTimeout != 45*time.Second {
		t.Errorf("expected 45s, got %v", cfg.PageTimeout)
	}
}

func TestLoadConfig_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("NKB_SUMMARY_LENGTH", "not-a-number")
	t.Setenv("NKB_EXCERPT_LENGTH", "-5")
	t.Setenv("NKB_GENERATE_IMAGES", "maybe")
	t.Setenv("NKB_PAGE_TIMEOUT", "soon")

	ResetConfig()
	t.Cleanup(ResetConfig)

	cfg := GetConfig()

	if cfg.SummaryLength != defaultSummaryLength {
		t.Errorf("expected default on invalid value, got %d", cfg.SummaryLength)
	}
	if cfg.ExcerptLength != defaultExcerptLength {
		t.Errorf("expected default on negative value, got %d", cfg.ExcerptLength)
	}
	if cfg.GenerateImages {
		t.Error("expected default on invalid boolean")
	}
	if cfg.PageTimeout != 0 {
		t.Errorf("expected default on invalid duration, got %v", cfg.PageTimeout)
	}
}
