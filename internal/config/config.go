// Package config loads the YAML configuration file and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"studyplan/internal/layout"
	"studyplan/internal/models"
)

const (
	defaultAPIBaseURL   = "http://localhost:8000"
	defaultRefreshCron  = "*/15 * * * *"
	defaultCacheTTL     = time.Minute
	defaultRefetchDelay = time.Second
)

// CalDAVConfig locates the CalDAV calendar the schedule is published to.
type CalDAVConfig struct {
	Endpoint string `yaml:"endpoint"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Calendar string `yaml:"calendar"`
}

// GoogleConfig holds the OAuth client and target of Google Calendar publishing.
type GoogleConfig struct {
	ClientID        string `yaml:"client_id"`
	ClientSecret    string `yaml:"client_secret"`
	CredentialsFile string `yaml:"credentials_file"`
	Account         string `yaml:"account"`
	CalendarID      string `yaml:"calendar_id"`
}

// GenerationConfig holds the initial values of the generation dialog.
type GenerationConfig struct {
	ShortBreakMinutes     int `yaml:"short_break_minutes"`
	MediumBreakMinutes    int `yaml:"medium_break_minutes"`
	LongBreakMinutes      int `yaml:"long_break_minutes"`
	LongBreakAfterMinutes int `yaml:"long_break_after_minutes"`
}

// Config is the top-level application configuration.
type Config struct {
	// APIBaseURL is the root of the study planner REST API.
	APIBaseURL string `yaml:"api_base_url"`

	// Timezone is the IANA zone the calendar is laid out in. Empty means the system zone.
	Timezone string `yaml:"timezone"`

	// HourHeight is the pixel height of one hour row.
	HourHeight float64 `yaml:"hour_height"`

	// CacheTTL is how long fetched data is served without asking the server again.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// RefetchDelay is the pause between a successful generation and the schedule refetch.
	RefetchDelay time.Duration `yaml:"refetch_delay"`

	// DataDir holds the session token, preferences and offline database.
	// Defaults to the directory of the config file.
	DataDir string `yaml:"data_dir,omitempty"`

	// RefreshCron is the cron schedule of `publish --watch`.
	RefreshCron string `yaml:"refresh"`

	// PublishTarget selects where `publish` writes: "caldav" or "google".
	PublishTarget string `yaml:"publish_target"`

	CalDAV     CalDAVConfig     `yaml:"caldav"`
	Google     GoogleConfig     `yaml:"google"`
	Generation GenerationConfig `yaml:"generation"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:    defaultAPIBaseURL,
		HourHeight:    layout.DefaultHourHeight,
		CacheTTL:      defaultCacheTTL,
		RefetchDelay:  defaultRefetchDelay,
		RefreshCron:   defaultRefreshCron,
		PublishTarget: "caldav",
		Google: GoogleConfig{
			CredentialsFile: "credentials.json",
			Account:         "default",
			CalendarID:      "primary",
		},
		Generation: GenerationConfig{
			ShortBreakMinutes:     models.DefaultShortBreakMinutes,
			MediumBreakMinutes:    models.DefaultMediumBreakMinutes,
			LongBreakMinutes:      models.DefaultLongBreakMinutes,
			LongBreakAfterMinutes: models.DefaultLongBreakAfterMinutes,
		},
	}
}

// Normalize fills in missing or zero values with defaults so that partially
// filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()
	c.APIBaseURL = strings.TrimSuffix(c.APIBaseURL, "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = d.APIBaseURL
	}
	if c.HourHeight <= 0 {
		c.HourHeight = d.HourHeight
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.RefetchDelay <= 0 {
		c.RefetchDelay = d.RefetchDelay
	}
	if c.RefreshCron == "" {
		c.RefreshCron = d.RefreshCron
	}
	switch c.PublishTarget {
	case "caldav", "google":
	default:
		c.PublishTarget = d.PublishTarget
	}
	if c.Google.CredentialsFile == "" {
		c.Google.CredentialsFile = d.Google.CredentialsFile
	}
	if c.Google.Account == "" {
		c.Google.Account = d.Google.Account
	}
	if c.Google.CalendarID == "" {
		c.Google.CalendarID = d.Google.CalendarID
	}
	g := &c.Generation
	if g.ShortBreakMinutes == 0 {
		g.ShortBreakMinutes = d.Generation.ShortBreakMinutes
	}
	if g.MediumBreakMinutes == 0 {
		g.MediumBreakMinutes = d.Generation.MediumBreakMinutes
	}
	if g.LongBreakMinutes == 0 {
		g.LongBreakMinutes = d.Generation.LongBreakMinutes
	}
	if g.LongBreakAfterMinutes == 0 {
		g.LongBreakAfterMinutes = d.Generation.LongBreakAfterMinutes
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// GenerateParams returns the configured generation defaults, open-ended.
func (c *Config) GenerateParams() models.GenerateScheduleParams {
	return models.GenerateScheduleParams{
		ShortBreakMinutes:     c.Generation.ShortBreakMinutes,
		MediumBreakMinutes:    c.Generation.MediumBreakMinutes,
		LongBreakMinutes:      c.Generation.LongBreakMinutes,
		LongBreakAfterMinutes: c.Generation.LongBreakAfterMinutes,
	}
}

func (c *Config) SessionPath() string     { return filepath.Join(c.DataDir, "session.json") }
func (c *Config) PreferencesPath() string { return filepath.Join(c.DataDir, "preferences.json") }
func (c *Config) DatabasePath() string    { return filepath.Join(c.DataDir, "studyplan.db") }

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.APIBaseURL, "STUDYPLAN_API_URL")
	set(&c.Timezone, "STUDYPLAN_TIMEZONE")
	set(&c.DataDir, "STUDYPLAN_DATA_DIR")
	set(&c.CalDAV.Endpoint, "CALDAV_ENDPOINT")
	set(&c.CalDAV.Username, "CALDAV_USERNAME")
	set(&c.CalDAV.Password, "CALDAV_PASSWORD")
	set(&c.CalDAV.Calendar, "CALDAV_CALENDAR")
	set(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	set(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	set(&c.Google.CredentialsFile, "GOOGLE_CREDENTIALS_FILE")
	set(&c.Google.Account, "GOOGLE_ACCOUNT")
	set(&c.Google.CalendarID, "GOOGLE_CALENDAR_ID")
	c.Normalize()
}

// DefaultPath returns $XDG_CONFIG_HOME/studyplan/config.yaml or its platform equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "studyplan", "config.yaml")
}

// Load loads configuration from the given YAML path. On first run a default
// config is written to path and returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, fmt.Errorf("failed to write default config: %w", err)
			}
			cfg.DataDir = filepath.Dir(path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	if cfg.DataDir == "" {
		cfg.DataDir = filepath.Dir(path)
	}
	return &cfg, nil
}

// Save writes cfg to path atomically with 0600 permissions.
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

	tmp, err := os.CreateTemp(dir, ".studyplan-config-*.tmp")
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
