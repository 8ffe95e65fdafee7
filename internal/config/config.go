// Package config loads the scraper's TOML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full application configuration. Zero values are filled
// with defaults by Load.
type Config struct {
	Site    SiteConfig    `toml:"site"`
	Fetch   FetchConfig   `toml:"fetch"`
	Storage StorageConfig `toml:"storage"`
}

// SiteConfig holds the tournament site endpoints.
type SiteConfig struct {
	BaseURL     string   `toml:"base_url"`
	RecapBase   string   `toml:"recap_base"`
	RenderHosts []string `toml:"render_hosts"`
}

// FetchConfig holds network and rendering tolerances.
type FetchConfig struct {
	HTTPTimeoutSeconds  int `toml:"http_timeout_seconds"`
	SettleDelaySeconds  int `toml:"settle_delay_seconds"`
	SelectorWaitSeconds int `toml:"selector_wait_seconds"`
}

// StorageConfig holds file locations for durable state.
type StorageConfig struct {
	StorePath  string `toml:"store_path"`
	ArchiveDir string `toml:"archive_dir"`
}

// Defaults returns the configuration used when no file overrides it.
func Defaults() Config {
	return Config{
		Site: SiteConfig{
			BaseURL:   "https://tv.dartconnect.com",
			RecapBase: "https://recap.dartconnect.com",
		},
		Fetch: FetchConfig{
			HTTPTimeoutSeconds:  30,
			SettleDelaySeconds:  5,
			SelectorWaitSeconds: 10,
		},
		Storage: StorageConfig{
			StorePath:  "data/dart_stats.json",
			ArchiveDir: "event_data",
		},
	}
}

// Load reads a TOML config from path and fills unset fields with
// defaults. A missing file is not an error; the defaults apply.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to stat config: %w", err)
	}

	var file Config
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}
	merge(&cfg, file)
	return cfg, nil
}

func merge(cfg *Config, file Config) {
	if file.Site.BaseURL != "" {
		cfg.Site.BaseURL = file.Site.BaseURL
	}
	if file.Site.RecapBase != "" {
		cfg.Site.RecapBase = file.Site.RecapBase
	}
	if len(file.Site.RenderHosts) > 0 {
		cfg.Site.RenderHosts = file.Site.RenderHosts
	}
	if file.Fetch.HTTPTimeoutSeconds > 0 {
		cfg.Fetch.HTTPTimeoutSeconds = file.Fetch.HTTPTimeoutSeconds
	}
	if file.Fetch.SettleDelaySeconds > 0 {
		cfg.Fetch.SettleDelaySeconds = file.Fetch.SettleDelaySeconds
	}
	if file.Fetch.SelectorWaitSeconds > 0 {
		cfg.Fetch.SelectorWaitSeconds = file.Fetch.SelectorWaitSeconds
	}
	if file.Storage.StorePath != "" {
		cfg.Storage.StorePath = file.Storage.StorePath
	}
	if file.Storage.ArchiveDir != "" {
		cfg.Storage.ArchiveDir = file.Storage.ArchiveDir
	}
}

// HTTPTimeout returns the HTTP timeout as a duration.
func (c FetchConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

// SettleDelay returns the render settle delay as a duration.
func (c FetchConfig) SettleDelay() time.Duration {
	return time.Duration(c.SettleDelaySeconds) * time.Second
}

// SelectorWait returns the selector wait bound as a duration.
func (c FetchConfig) SelectorWait() time.Duration {
	return time.Duration(c.SelectorWaitSeconds) * time.Second
}
