package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{
	"APP_ENV", "LISTEN_ADDR", "LOG_LEVEL",
	"RESOLVER_USER_AGENT", "RESOLVER_BOOTSTRAP_URL", "RESOLVER_POLICY_FILE",
	"RESOLVER_REQUEST_TIMEOUT", "RESOLVER_STAGGER", "RESOLVER_MAX_CANDIDATES",
	"WHODAT_URL", "WHODAT_API_KEY",
	"WHOCX_RAW_URL", "WHOCX_EXTRACT_URL", "WHOCX_API_KEY",
	"RESOLVER_FALLBACK_RPS", "RESOLVER_FALLBACK_BURST",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if !errors.Is(err, ErrNoFallback) {
		t.Fatalf("want ErrNoFallback, got %v", err)
	}
	if cfg.Env != "development" || cfg.ListenAddr != ":8080" || cfg.LogLevel != "info" {
		t.Fatalf("basic defaults: %+v", cfg)
	}
	if cfg.RequestTimeout != 45*time.Second || cfg.Stagger != 200*time.Millisecond || cfg.MaxCandidates != 5 {
		t.Fatalf("resolver defaults: %+v", cfg)
	}
	if cfg.FallbackRPS != 5 || cfg.FallbackBurst != 10 {
		t.Fatalf("rate defaults: %+v", cfg)
	}
	if cfg.BootstrapURL != "https://data.iana.org/rdap/dns.json" {
		t.Fatalf("bootstrap url: %q", cfg.BootstrapURL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WHODAT_URL", "https://whodat.example/api")
	t.Setenv("WHODAT_API_KEY", "secret")
	t.Setenv("RESOLVER_STAGGER", "50ms")
	t.Setenv("RESOLVER_MAX_CANDIDATES", "3")
	t.Setenv("RESOLVER_FALLBACK_RPS", "0.5")
	t.Setenv("RESOLVER_REQUEST_TIMEOUT", "not-a-duration")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GatewayURL != "https://whodat.example/api" || cfg.GatewayKey != "secret" {
		t.Fatalf("gateway: %+v", cfg)
	}
	if cfg.Stagger != 50*time.Millisecond || cfg.MaxCandidates != 3 || cfg.FallbackRPS != 0.5 {
		t.Fatalf("overrides: %+v", cfg)
	}
	if cfg.RequestTimeout != 45*time.Second {
		t.Fatalf("bad duration should keep the default, got %v", cfg.RequestTimeout)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	for _, k := range []string{"WHOCX_RAW_URL", "WHOCX_EXTRACT_URL"} {
		if _, set := os.LookupEnv(k); set {
			t.Skipf("%s already set in the environment", k)
		}
	}
	t.Cleanup(func() {
		os.Unsetenv("WHOCX_RAW_URL")
		os.Unsetenv("WHOCX_EXTRACT_URL")
	})
	path := filepath.Join(t.TempDir(), "resolver.env")
	content := "WHOCX_RAW_URL=https://whocx.example/raw\nWHOCX_EXTRACT_URL=https://whocx.example/extract\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RawWhoisURL != "https://whocx.example/raw" || cfg.ExtractURL != "https://whocx.example/extract" {
		t.Fatalf("env file not applied: %+v", cfg)
	}
}
