package config

import "testing"

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "PROVIDER_BASE_URL", "ROUND_SECONDS", "DIFF_THRESHOLD", "ASSETS_DIR"} {
		t.Setenv(k, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	c, err := FromEnv()
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	if c.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", c.Port)
	}
	if c.ProviderBaseURL != "https://image.pollinations.ai" {
		t.Fatalf("unexpected provider URL %s", c.ProviderBaseURL)
	}
	if c.RoundSeconds != 60 {
		t.Fatalf("expected 60-second rounds, got %d", c.RoundSeconds)
	}
	if c.DiffThreshold != 0.15 {
		t.Fatalf("expected threshold 0.15, got %v", c.DiffThreshold)
	}
	if c.AssetsDir != "./assets/references" {
		t.Fatalf("unexpected assets dir %s", c.AssetsDir)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("PROVIDER_BASE_URL", "http://localhost:9999")
	t.Setenv("ROUND_SECONDS", "90")
	t.Setenv("DIFF_THRESHOLD", "0.25")
	t.Setenv("ASSETS_DIR", "/tmp/refs")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("loading overrides: %v", err)
	}
	if c.Port != "3000" || c.ProviderBaseURL != "http://localhost:9999" {
		t.Fatalf("overrides not applied: %+v", c)
	}
	if c.RoundSeconds != 90 || c.DiffThreshold != 0.25 || c.AssetsDir != "/tmp/refs" {
		t.Fatalf("overrides not applied: %+v", c)
	}
}

func TestFromEnvRejectsMalformedValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("ROUND_SECONDS", "not-a-number")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected an error for a malformed ROUND_SECONDS")
	}
}
