package server

import "testing"

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":3000" {
		t.Fatalf("addr %q, want :3000", cfg.Addr)
	}
	if cfg.LogFile != "forest.log" || cfg.LogLevel != "info" {
		t.Fatalf("log config %q/%q, want forest.log/info", cfg.LogFile, cfg.LogLevel)
	}
	if len(cfg.AllowedOrigins) != 0 || cfg.JWTSecret != "" {
		t.Fatalf("origins %v secret %q, want empty", cfg.AllowedOrigins, cfg.JWTSecret)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("FOREST_ADDR", ":9999")
	t.Setenv("FOREST_ALLOWED_ORIGINS", "https://forest.example, https://staging.example")
	t.Setenv("FOREST_JWT_SECRET", "s3cret")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("addr %q, want :9999", cfg.Addr)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://staging.example" {
		t.Fatalf("origins %v, want two trimmed entries", cfg.AllowedOrigins)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Fatalf("secret %q", cfg.JWTSecret)
	}
}

func TestOriginAllowed(t *testing.T) {
	open := Config{}
	if !open.originAllowed("https://anywhere.example") {
		t.Fatal("empty allow-list should admit everything")
	}

	cfg := Config{AllowedOrigins: []string{"https://forest.example"}}
	if !cfg.originAllowed("https://forest.example") {
		t.Fatal("listed origin refused")
	}
	if !cfg.originAllowed("HTTPS://FOREST.EXAMPLE") {
		t.Fatal("origin comparison should be case-insensitive")
	}
	if cfg.originAllowed("https://evil.example") {
		t.Fatal("unlisted origin admitted")
	}

	wild := Config{AllowedOrigins: []string{"*"}}
	if !wild.originAllowed("https://anywhere.example") {
		t.Fatal("wildcard should admit everything")
	}
}
