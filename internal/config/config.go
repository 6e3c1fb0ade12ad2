package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	ListenAddr string
	LogLevel   string

	UserAgent      string
	BootstrapURL   string
	PolicyFile     string
	RequestTimeout time.Duration
	Stagger        time.Duration
	MaxCandidates  int

	GatewayURL string
	GatewayKey string

	RawWhoisURL string
	ExtractURL  string
	ExtractKey  string

	FallbackRPS   float64
	FallbackBurst int
}

// ErrNoFallback is returned alongside a usable Config when neither WHOIS
// fallback tier is configured.
var ErrNoFallback = errors.New("WHODAT_URL and WHOCX_RAW_URL not set: resolving with RDAP only")

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load reads configuration from the environment, after loading .env if present.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg := Config{
		Env:        getenv("APP_ENV", "development"),
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		LogLevel:   getenv("LOG_LEVEL", "info"),

		UserAgent:      getenv("RESOLVER_USER_AGENT", "rdap-resolver/0.1"),
		BootstrapURL:   getenv("RESOLVER_BOOTSTRAP_URL", "https://data.iana.org/rdap/dns.json"),
		PolicyFile:     os.Getenv("RESOLVER_POLICY_FILE"),
		RequestTimeout: getenvDuration("RESOLVER_REQUEST_TIMEOUT", 45*time.Second),
		Stagger:        getenvDuration("RESOLVER_STAGGER", 200*time.Millisecond),
		MaxCandidates:  getenvInt("RESOLVER_MAX_CANDIDATES", 5),

		GatewayURL: os.Getenv("WHODAT_URL"),
		GatewayKey: os.Getenv("WHODAT_API_KEY"),

		RawWhoisURL: os.Getenv("WHOCX_RAW_URL"),
		ExtractURL:  os.Getenv("WHOCX_EXTRACT_URL"),
		ExtractKey:  os.Getenv("WHOCX_API_KEY"),

		FallbackRPS:   getenvFloat("RESOLVER_FALLBACK_RPS", 5),
		FallbackBurst: getenvInt("RESOLVER_FALLBACK_BURST", 10),
	}
	if cfg.GatewayURL == "" && cfg.RawWhoisURL == "" {
		// Not fatal: the RDAP tier still works.
		return cfg, ErrNoFallback
	}
	return cfg, nil
}
