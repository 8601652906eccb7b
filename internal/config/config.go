package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"

	"github.com/glabrego/itmonitor-cli/internal/itmonitor"
)

const (
	defaultAPIBaseURL = "http://localhost:5000"
	maxFetchLimit     = itmonitor.MaxLatestLimit
)

// Config holds runtime settings for the CLI app.
type Config struct {
	APIBaseURL      string
	DBPath          string
	LogPath         string
	LogLevel        string
	FetchLimit      int
	RefreshInterval time.Duration
	HTTPTimeout     time.Duration
	HTTPRetries     int
	DefaultTypes    []string
}

// fileConfig mirrors the optional TOML file. Durations are strings ("5m").
type fileConfig struct {
	APIBaseURL      string   `toml:"api_base_url"`
	DBPath          string   `toml:"db_path"`
	LogPath         string   `toml:"log_path"`
	LogLevel        string   `toml:"log_level"`
	FetchLimit      int      `toml:"fetch_limit"`
	RefreshInterval string   `toml:"refresh_interval"`
	HTTPTimeout     string   `toml:"http_timeout"`
	HTTPRetries     *int     `toml:"http_retries"`
	DefaultTypes    []string `toml:"default_types"`
}

func Default() Config {
	return Config{
		APIBaseURL:      defaultAPIBaseURL,
		DBPath:          "itmonitor.db",
		LogPath:         "itmonitor.log",
		LogLevel:        "info",
		FetchLimit:      500,
		RefreshInterval: 5 * time.Minute,
		HTTPTimeout:     10 * time.Second,
		DefaultTypes:    []string{itmonitor.FeedTypeAnnouncements, itmonitor.FeedTypeReleases},
	}
}

// Load layers defaults, the TOML file at path (or ITMON_CONFIG when path is
// empty) and ITMON_* environment variables, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("ITMON_CONFIG")
	}
	if path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var fc fileConfig
	meta, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		log.WithField("keys", undecoded).Warn("unknown keys in config file")
	}

	if fc.APIBaseURL != "" {
		c.APIBaseURL = fc.APIBaseURL
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if fc.LogPath != "" {
		c.LogPath = fc.LogPath
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.FetchLimit != 0 {
		c.FetchLimit = fc.FetchLimit
	}
	if fc.RefreshInterval != "" {
		d, err := time.ParseDuration(fc.RefreshInterval)
		if err != nil {
			return fmt.Errorf("refresh_interval: %w", err)
		}
		c.RefreshInterval = d
	}
	if fc.HTTPTimeout != "" {
		d, err := time.ParseDuration(fc.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("http_timeout: %w", err)
		}
		c.HTTPTimeout = d
	}
	if fc.HTTPRetries != nil {
		c.HTTPRetries = *fc.HTTPRetries
	}
	if fc.DefaultTypes != nil {
		c.DefaultTypes = normalizeTypes(fc.DefaultTypes)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ITMON_API_BASE_URL"); v != "" {
		c.APIBaseURL = v
	}
	if v := os.Getenv("ITMON_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("ITMON_LOG_PATH"); v != "" {
		c.LogPath = v
	}
	if v := os.Getenv("ITMON_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("ITMON_FETCH_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ITMON_FETCH_LIMIT must be an integer: %s", v)
		}
		c.FetchLimit = n
	}
	if v := os.Getenv("ITMON_REFRESH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ITMON_REFRESH_INTERVAL: %w", err)
		}
		c.RefreshInterval = d
	}
	if v := os.Getenv("ITMON_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("ITMON_HTTP_TIMEOUT: %w", err)
		}
		c.HTTPTimeout = d
	}
	if v := os.Getenv("ITMON_HTTP_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ITMON_HTTP_RETRIES must be an integer: %s", v)
		}
		c.HTTPRetries = n
	}
	if v, ok := os.LookupEnv("ITMON_DEFAULT_TYPES"); ok {
		c.DefaultTypes = normalizeTypes(strings.Split(v, ","))
	}
	return nil
}

func normalizeTypes(types []string) []string {
	trimmed := lo.Map(types, func(t string, _ int) string { return strings.ToLower(strings.TrimSpace(t)) })
	return lo.Uniq(lo.Compact(trimmed))
}

func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("APIBaseURL is required")
	}
	if strings.HasSuffix(c.APIBaseURL, "/") {
		return fmt.Errorf("APIBaseURL must not end with '/': %s", c.APIBaseURL)
	}
	if c.DBPath == "" {
		return errors.New("DBPath is required")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LogLevel: %w", err)
	}
	if c.FetchLimit < 1 || c.FetchLimit > maxFetchLimit {
		return fmt.Errorf("FetchLimit must be between 1 and %d: %d", maxFetchLimit, c.FetchLimit)
	}
	if c.RefreshInterval < time.Second {
		return fmt.Errorf("RefreshInterval must be at least 1s: %s", c.RefreshInterval)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTPTimeout must be positive: %s", c.HTTPTimeout)
	}
	if c.HTTPRetries < 0 {
		return fmt.Errorf("HTTPRetries must not be negative: %d", c.HTTPRetries)
	}
	for _, t := range c.DefaultTypes {
		if !lo.Contains(itmonitor.FeedTypes, t) {
			return fmt.Errorf("DefaultTypes: unknown feed type %q", t)
		}
	}
	return nil
}
