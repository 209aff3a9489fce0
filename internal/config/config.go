// Package config loads the daemon's YAML configuration, creating a default
// file on first run and applying TAQWIM_* environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ICSFeed is one subscribed ICS calendar feed.
type ICSFeed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// GoogleConfig holds the OAuth client used to refresh Google access tokens.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	// Passphrase encrypts the refresh token at rest. Required before a
	// Google account can be connected.
	Passphrase string `yaml:"passphrase"`
}

// LogConfig controls the slog output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Config is the top-level daemon configuration.
type Config struct {
	// Listen is the HTTP listen address for the REST API and websocket.
	Listen string `yaml:"listen"`

	// DBPath is the sqlite database file.
	DBPath string `yaml:"db_path"`

	// Timezone is the IANA zone events and prayer clocks are presented in.
	Timezone string `yaml:"timezone"`

	// RefreshCron schedules the periodic calendar refresh.
	RefreshCron string `yaml:"refresh"`

	// PrewarmCron schedules the nightly prayer-time prefetch for the week
	// ahead.
	PrewarmCron string `yaml:"prewarm"`

	// PrayerMethod is the default calculation method name.
	PrayerMethod string `yaml:"prayer_method"`

	// GrantLocalCalendar authorizes the local calendar source at startup.
	// When false the source stays in its undetermined state until access is
	// requested through the API.
	GrantLocalCalendar bool `yaml:"grant_local_calendar"`

	ICS    []ICSFeed    `yaml:"ics"`
	Google GoogleConfig `yaml:"google"`
	Log    LogConfig    `yaml:"log"`
}

func Default() *Config {
	return &Config{
		Listen:             "127.0.0.1:8090",
		DBPath:             "taqwim.db",
		Timezone:           "UTC",
		RefreshCron:        "*/15 * * * *",
		PrewarmCron:        "5 0 * * *",
		PrayerMethod:       "karachi",
		GrantLocalCalendar: true,
		ICS:                []ICSFeed{},
		Log:                LogConfig{Level: "info", Format: "text"},
	}
}

// Normalize fills zero values so partially written configs still behave.
func (c *Config) Normalize() {
	def := Default()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.PrewarmCron == "" {
		c.PrewarmCron = def.PrewarmCron
	}
	if c.PrayerMethod == "" {
		c.PrayerMethod = def.PrayerMethod
	}
	if c.ICS == nil {
		c.ICS = []ICSFeed{}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		c.Log.Format = "text"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Location returns the configured timezone as a *time.Location.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load reads the YAML config at path. A missing file is first-run: the
// default config is written there with 0600 permissions and returned.
// Environment overrides are applied after the file is read.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv overlays TAQWIM_* environment variables, which win over the file.
// Secrets in particular are expected to arrive this way in containerized
// deployments.
func (c *Config) applyEnv() {
	set := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set("TAQWIM_LISTEN", &c.Listen)
	set("TAQWIM_DB_PATH", &c.DBPath)
	set("TAQWIM_TIMEZONE", &c.Timezone)
	set("TAQWIM_GOOGLE_CLIENT_ID", &c.Google.ClientID)
	set("TAQWIM_GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	set("TAQWIM_GOOGLE_PASSPHRASE", &c.Google.Passphrase)
	set("TAQWIM_LOG_LEVEL", &c.Log.Level)
	set("TAQWIM_LOG_FORMAT", &c.Log.Format)
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions. The config can hold OAuth secrets, hence the tight mode.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".taqwim-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
