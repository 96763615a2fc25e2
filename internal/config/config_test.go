package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
	if cfg.AccessTokenTTL != 8*time.Hour {
		t.Fatalf("expected default TTL 8h, got %s", cfg.AccessTokenTTL)
	}

	ratio, err := cfg.PointsPerEuroRatio()
	if err != nil {
		t.Fatalf("default ratio failed: %v", err)
	}
	if ratio.String() != "1" {
		t.Fatalf("expected ratio 1, got %s", ratio)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("POINTS_PER_EURO", "2.5")
	t.Setenv("SUMMARY_CACHE_TTL", "45s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.SummaryCacheTTL != 45*time.Second {
		t.Fatalf("expected TTL 45s, got %s", cfg.SummaryCacheTTL)
	}
	ratio, err := cfg.PointsPerEuroRatio()
	if err != nil {
		t.Fatalf("ratio failed: %v", err)
	}
	if ratio.String() != "2.5" {
		t.Fatalf("expected ratio 2.5, got %s", ratio)
	}
}

func TestPointsPerEuroRatioRejectsNonPositive(t *testing.T) {
	for _, raw := range []string{"0", "-1", "abc"} {
		cfg := &Config{PointsPerEuro: raw}
		if _, err := cfg.PointsPerEuroRatio(); err == nil {
			t.Fatalf("expected error for ratio %q", raw)
		}
	}
}
