package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	appLog "nannypay/internal/log"
	"nannypay/internal/payroll"
)

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "Europe/Paris"
	defaultLogLevel       = "info"
	defaultCacheDir       = "./var/ics-cache"
	defaultExportDir      = "./var/exports"
	defaultExportSchedule = "0 6 1 * *"
)

// ICSConfig describes a calendar feed holding the worked shifts.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for logging.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label.
	Name string `yaml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// EmployeeConfig names the parties printed on the payslip.
type EmployeeConfig struct {
	Name     string `yaml:"name" json:"name"`
	Employer string `yaml:"employer" json:"employer"`
}

// ExportConfig drives the scheduled monthly timesheet export.
type ExportConfig struct {
	// Dir receives the CSV files.
	Dir string `yaml:"dir" json:"dir"`
	// Schedule is a 5-field cron spec evaluated in Timezone.
	Schedule string `yaml:"schedule" json:"schedule"`
	// Name filters events by summary.
	Name string `yaml:"name" json:"name"`
	// Forfait is the monthly contracted-hour cap, if any.
	Forfait *float64 `yaml:"forfait,omitempty" json:"forfait,omitempty"`
	// OvertimePaid pays hours above the forfait as complementary hours.
	OvertimePaid bool `yaml:"overtime_paid" json:"overtime_paid"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone in which days and shift windows are evaluated.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir stores ICS bodies and their HTTP cache metadata.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// ICS is the list of calendar feeds.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	Employee   EmployeeConfig     `yaml:"employee" json:"employee"`
	Rates      payroll.Rates      `yaml:"rates" json:"rates"`
	Allowances payroll.Allowances `yaml:"allowances" json:"allowances"`
	Export     ExportConfig       `yaml:"export" json:"export"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:     defaultListen,
		Timezone:   defaultTimezone,
		LogLevel:   defaultLogLevel,
		CacheDir:   defaultCacheDir,
		ICS:        []ICSConfig{},
		Rates:      payroll.DefaultRates(),
		Allowances: payroll.DefaultAllowances(),
		Export: ExportConfig{
			Dir:      defaultExportDir,
			Schedule: defaultExportSchedule,
		},
	}
}

// Normalize fills in missing values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir
	}
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
	for i := range c.ICS {
		if c.ICS[i].ID == "" {
			if c.ICS[i].Name != "" {
				c.ICS[i].ID = c.ICS[i].Name
			} else {
				c.ICS[i].ID = c.ICS[i].URL
			}
		}
	}
	if c.Export.Dir == "" {
		c.Export.Dir = defaultExportDir
	}
	if c.Export.Schedule == "" {
		c.Export.Schedule = defaultExportSchedule
	}
}

// Location resolves Timezone, falling back to the local zone when it is
// unknown.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", c.Timezone)
		return time.Local
	}
	return loc
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshaled over the defaults, so keys left
//     out keep their reference values (rates, allowances), then normalized.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600 perms,
// creating the parent directory (0700) if needed.
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

	tmp, err := os.CreateTemp(dir, ".nannypay-config-*.tmp")
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

// Save is a convenience method delegating to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
