package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ALLOWED_ORIGIN", "SQLITE_PATH", "REDIS_ADDR",
		"LIVE_CACHE_TTL_SECONDS", "DAY_CLOSE_TOKEN_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.LiveCacheTTLSeconds != 30 {
		t.Fatalf("expected default cache ttl 30, got %d", cfg.LiveCacheTTLSeconds)
	}
	if cfg.DayCloseTokenSeconds != 120 {
		t.Fatalf("expected default token ttl 120, got %d", cfg.DayCloseTokenSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %q", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LIVE_CACHE_TTL_SECONDS", "5")
	t.Setenv("DAY_CLOSE_TOKEN_SECONDS", "not-a-number")

	cfg := Load()
	if cfg.Port != "9000" {
		t.Fatalf("expected port 9000, got %q", cfg.Port)
	}
	if cfg.LiveCacheTTLSeconds != 5 {
		t.Fatalf("expected cache ttl 5, got %d", cfg.LiveCacheTTLSeconds)
	}
	// Unparseable values fall back rather than failing startup.
	if cfg.DayCloseTokenSeconds != 120 {
		t.Fatalf("expected fallback token ttl 120, got %d", cfg.DayCloseTokenSeconds)
	}
}
