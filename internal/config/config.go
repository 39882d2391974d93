// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	Token       string
	Home        string
	CachePath   string
	DBPath      string
	DownloadDir string
	SecretKey   []byte // 32 bytes when set; nil disables the credential store.

	BaseURL   string
	Timeout   time.Duration
	RateLimit float64

	ListenAddr      string
	RefreshInterval time.Duration
	LogLevel        slog.Level

	S3 S3Config
}

// S3Config configures the object storage export sink.
type S3Config struct {
	Enabled   bool
	Region    string
	Endpoint  string
	PathStyle bool
}

// HasToken reports whether a token was supplied through the environment.
func (c *Config) HasToken() bool {
	return c.Token != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// The token (STADATAX_TOKEN) is optional; without it the statistics layer reports
// CredentialMissing until one is stored. Paths default to files under STADATAX_HOME
// (~/.stadata-x). Optional variables with defaults: STADATAX_TIMEOUT (30s),
// STADATAX_RATE_LIMIT (0, off), STADATAX_LISTEN_ADDR (127.0.0.1:8080),
// STADATAX_CACHE_REFRESH_INTERVAL (6h), STADATAX_LOG_LEVEL (info).
func Load() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Token:           strings.TrimSpace(os.Getenv("STADATAX_TOKEN")),
		Home:            home,
		CachePath:       envOr("STADATAX_CACHE_PATH", filepath.Join(home, "domain_cache.json")),
		DBPath:          envOr("STADATAX_DB_PATH", filepath.Join(home, "stadatax.db")),
		DownloadDir:     os.Getenv("STADATAX_DOWNLOAD_DIR"),
		BaseURL:         os.Getenv("STADATAX_BASE_URL"),
		Timeout:         30 * time.Second,
		ListenAddr:      envOr("STADATAX_LISTEN_ADDR", "127.0.0.1:8080"),
		RefreshInterval: 6 * time.Hour,
		LogLevel:        slog.LevelInfo,
		S3: S3Config{
			Region:   os.Getenv("STADATAX_S3_REGION"),
			Endpoint: os.Getenv("STADATAX_S3_ENDPOINT"),
		},
	}

	// Every malformed variable is reported, not only the first.
	var errs *multierror.Error
	collect := func(err error) {
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	cfg.Timeout, err = durationEnv("STADATAX_TIMEOUT", cfg.Timeout)
	collect(err)
	cfg.RefreshInterval, err = durationEnv("STADATAX_CACHE_REFRESH_INTERVAL", cfg.RefreshInterval)
	collect(err)

	if v, ok := os.LookupEnv("STADATAX_RATE_LIMIT"); ok && v != "" {
		rl, perr := strconv.ParseFloat(v, 64)
		if perr != nil || rl < 0 {
			collect(fmt.Errorf("STADATAX_RATE_LIMIT must be a non-negative number, got %q", v))
		}
		cfg.RateLimit = rl
	}

	if v, ok := os.LookupEnv("STADATAX_LOG_LEVEL"); ok && v != "" {
		if lerr := cfg.LogLevel.UnmarshalText([]byte(v)); lerr != nil {
			collect(fmt.Errorf("STADATAX_LOG_LEVEL has invalid level %q: %w", v, lerr))
		}
	}

	cfg.S3.Enabled, err = boolEnv("STADATAX_S3_ENABLED")
	collect(err)
	cfg.S3.PathStyle, err = boolEnv("STADATAX_S3_PATH_STYLE")
	collect(err)

	cfg.SecretKey, err = secretKey(os.Getenv("STADATAX_SECRET_KEY"))
	collect(err)

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// secretKey decodes the credential sealing key. An empty value disables the
// credential store.
func secretKey(v string) ([]byte, error) {
	if v == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("STADATAX_SECRET_KEY must be hex-encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("STADATAX_SECRET_KEY must be 64 hex characters (32 bytes), got %d bytes", len(key))
	}
	return key, nil
}

func homeDir() (string, error) {
	if v := os.Getenv("STADATAX_HOME"); v != "" {
		return v, nil
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory (set STADATAX_HOME): %w", err)
	}
	return filepath.Join(userHome, ".stadata-x"), nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func boolEnv(key string) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}
