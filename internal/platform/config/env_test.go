package config

import (
	"strings"
	"testing"
	"time"
)

type envTestConfig struct {
	Port    int           `env:"FOLIO_TEST_PORT" envDefault:"123"`
	Grace   time.Duration `env:"FOLIO_TEST_GRACE" envDefault:"24h"`
	BaseURL string        `env:"FOLIO_TEST_BASE_URL"`
}

func TestParseEnvDefaults(t *testing.T) {
	var cfg envTestConfig

	if err := ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 123 {
		t.Fatalf("expected default port 123, got %d", cfg.Port)
	}
	if cfg.Grace != 24*time.Hour {
		t.Fatalf("expected default grace 24h, got %s", cfg.Grace)
	}
}

func TestParseEnvError(t *testing.T) {
	var cfg envTestConfig
	t.Setenv("FOLIO_TEST_PORT", "not-an-int")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestParseEnvWithLookupTrimsValues(t *testing.T) {
	var cfg envTestConfig

	err := ParseEnvWithLookup(&cfg, map[string]string{
		"FOLIO_TEST_PORT":     " 9000 ",
		"FOLIO_TEST_BASE_URL": "  https://example.com ",
	})
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("port = %d, want 9000", cfg.Port)
	}
	if cfg.BaseURL != "https://example.com" {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
}
