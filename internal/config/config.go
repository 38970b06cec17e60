// Package config loads process configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultToolTimeout      = 60 * time.Second
	DefaultBatchItemTimeout = 30 * time.Second
	DefaultBatchToolTimeout = 10 * time.Minute
	DefaultTokenExpirySkew  = 60 * time.Second
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
)

// Service names accepted by RefreshToken and Validate.
const (
	ServiceGmail    = "gmail"
	ServiceCalendar = "calendar"
)

// Config holds the application configuration.
type Config struct {
	ClientID     string
	ClientSecret string

	GmailRefreshToken    string
	CalendarRefreshToken string

	LogLevel  string
	LogFormat string

	// ToolTimeout bounds a single tool call. Zero disables the bound.
	ToolTimeout time.Duration
	// BatchItemTimeout bounds each item of a batch tool. Zero disables the bound.
	BatchItemTimeout time.Duration
	// BatchToolTimeout replaces ToolTimeout for the batch tools. Zero disables
	// the bound.
	BatchToolTimeout time.Duration
	// BatchRateLimit is the number of batch items started per second.
	// Zero means unlimited.
	BatchRateLimit float64
	BatchRateBurst int

	TokenExpirySkew time.Duration

	// AttachmentDir is where download_attachment saves files when no
	// savePath is given. Empty means the working directory.
	AttachmentDir string
}

// Load reads configuration from environment variables. The file named by
// ENV_PATH is loaded first when set; otherwise .env is loaded if present.
// Variables already set in the environment win over file values.
func Load() (*Config, error) {
	if path := os.Getenv("ENV_PATH"); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		ClientID:             firstEnv("GOOGLE_CLIENT_ID", "CLIENT_ID"),
		ClientSecret:         firstEnv("GOOGLE_CLIENT_SECRET", "CLIENT_SECRET"),
		GmailRefreshToken:    firstEnv("TEST_GMAIL_REFRESH_TOKEN", "GMAIL_REFRESH_TOKEN", "REFRESH_TOKEN"),
		CalendarRefreshToken: firstEnv("TEST_GOOGLE_CALENDAR_REFRESH_TOKEN", "GOOGLE_CALENDAR_REFRESH_TOKEN", "REFRESH_TOKEN"),
		LogLevel:             envOrDefault("LOG_LEVEL", DefaultLogLevel),
		LogFormat:            envOrDefault("LOG_FORMAT", DefaultLogFormat),
		AttachmentDir:        os.Getenv("ATTACHMENT_DIR"),
	}

	var err error
	if cfg.ToolTimeout, err = durationEnv("TOOL_TIMEOUT", DefaultToolTimeout); err != nil {
		return nil, err
	}
	if cfg.BatchItemTimeout, err = durationEnv("BATCH_ITEM_TIMEOUT", DefaultBatchItemTimeout); err != nil {
		return nil, err
	}
	if cfg.BatchToolTimeout, err = durationEnv("BATCH_TOOL_TIMEOUT", DefaultBatchToolTimeout); err != nil {
		return nil, err
	}
	if cfg.TokenExpirySkew, err = durationEnv("TOKEN_EXPIRY_SKEW", DefaultTokenExpirySkew); err != nil {
		return nil, err
	}
	if cfg.BatchRateLimit, err = floatEnv("BATCH_RATE_LIMIT", 0); err != nil {
		return nil, err
	}
	if cfg.BatchRateBurst, err = intEnv("BATCH_RATE_BURST", 1); err != nil {
		return nil, err
	}

	if cfg.BatchRateLimit < 0 {
		return nil, fmt.Errorf("BATCH_RATE_LIMIT must not be negative, got %v", cfg.BatchRateLimit)
	}
	if cfg.BatchRateBurst < 1 {
		return nil, fmt.Errorf("BATCH_RATE_BURST must be at least 1, got %d", cfg.BatchRateBurst)
	}

	return cfg, nil
}

// RefreshToken returns the refresh token configured for service.
func (c *Config) RefreshToken(service string) string {
	switch service {
	case ServiceGmail:
		return c.GmailRefreshToken
	case ServiceCalendar:
		return c.CalendarRefreshToken
	default:
		return ""
	}
}

// Validate reports the first credential missing for service.
func (c *Config) Validate(service string) error {
	if service != ServiceGmail && service != ServiceCalendar {
		return fmt.Errorf("unknown service %q, must be one of: gmail, calendar", service)
	}
	if c.ClientID == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID environment variable is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET environment variable is required")
	}
	if c.RefreshToken(service) == "" {
		if service == ServiceGmail {
			return fmt.Errorf("GMAIL_REFRESH_TOKEN environment variable is required")
		}
		return fmt.Errorf("GOOGLE_CALENDAR_REFRESH_TOKEN environment variable is required")
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// durationEnv accepts Go duration strings ("90s") or plain seconds ("90").
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("%s must not be negative, got %q", key, v)
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %q", key, v)
	}
	return d, nil
}

func floatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return f, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
