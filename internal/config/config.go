// Package config loads the application configuration from environment
// variables (prefix FUND) layered over an optional YAML file, with
// defaults suitable for anonymous OpenFIGI use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	HMRC    HMRCConfig    `yaml:"hmrc" envconfig:"HMRC"`
	FIGI    FIGIConfig    `yaml:"figi" envconfig:"FIGI"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format   string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// PathsConfig names the data files the generator reads and writes.
// Relative paths are resolved against DataDir.
type PathsConfig struct {
	DataDir      string `yaml:"data_dir" envconfig:"DATA_DIR"`
	SheetFile    string `yaml:"sheet_file" envconfig:"SHEET_FILE"`
	ErrataFile   string `yaml:"errata_file" envconfig:"ERRATA_FILE"`
	FamilyFile   string `yaml:"family_file" envconfig:"FAMILY_FILE"`
	CategoryFile string `yaml:"category_file" envconfig:"CATEGORY_FILE"`
	CacheFile    string `yaml:"cache_file" envconfig:"CACHE_FILE"`
}

// HMRCConfig configures the sheet fetcher.
type HMRCConfig struct {
	PageURL string        `yaml:"page_url" envconfig:"PAGE_URL" validate:"url"`
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT"`
}

// FIGIConfig tunes the OpenFIGI resolver. Zero values for the batching
// and pacing fields mean "pick the documented limit for the key mode".
type FIGIConfig struct {
	Endpoint       string        `yaml:"endpoint" envconfig:"ENDPOINT" validate:"url"`
	APIKey         string        `yaml:"api_key" envconfig:"API_KEY"`
	JobsPerCall    int           `yaml:"jobs_per_call" envconfig:"JOBS_PER_CALL" validate:"min=0,max=100"`
	CallsPerMinute int           `yaml:"calls_per_minute" envconfig:"CALLS_PER_MINUTE" validate:"min=0"`
	MaxAttempts    int           `yaml:"max_attempts" envconfig:"MAX_ATTEMPTS" validate:"min=1"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay" envconfig:"RETRY_BASE_DELAY"`
}

// Published OpenFIGI limits for the two key modes.
const (
	jobsPerCallWithoutKey    = 10
	jobsPerCallWithKey       = 100
	callsPerMinuteWithoutKey = 25
	callsPerMinuteWithKey    = 250
)

// Load reads configuration from the YAML file at configPath (when it
// exists; blank skips the file), then lets FUND_* environment variables
// override it, then fills anything still unset with defaults.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
			}
		}
	}

	// Only explicitly-set FUND_* variables touch the struct; defaults are
	// applied afterwards so they never clobber file values.
	if err := envconfig.Process("FUND", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	cfg.applyDefaults()

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// applyDefaults fills every field still at its zero value.
func (c *Config) applyDefaults() {
	def := func(s *string, v string) {
		if *s == "" {
			*s = v
		}
	}
	def(&c.Logging.Level, "info")
	def(&c.Logging.Format, "json")

	def(&c.Paths.DataDir, ".")
	def(&c.Paths.SheetFile, "reporting-funds.xlsx")
	def(&c.Paths.ErrataFile, "fund-errata.csv")
	def(&c.Paths.FamilyFile, "fund-families.txt")
	def(&c.Paths.CategoryFile, "fund-categories.csv")
	def(&c.Paths.CacheFile, "openfigi-cache.json")

	def(&c.HMRC.PageURL, "https://www.gov.uk/government/publications/offshore-funds-list-of-reporting-funds")
	if c.HMRC.Timeout == 0 {
		c.HMRC.Timeout = 2 * time.Minute
	}

	def(&c.FIGI.Endpoint, "https://api.openfigi.com/v3/mapping")
	if c.FIGI.MaxAttempts == 0 {
		c.FIGI.MaxAttempts = 4
	}
	if c.FIGI.RetryBaseDelay == 0 {
		c.FIGI.RetryBaseDelay = 2 * time.Second
	}
	if c.FIGI.JobsPerCall == 0 {
		if c.FIGI.APIKey != "" {
			c.FIGI.JobsPerCall = jobsPerCallWithKey
		} else {
			c.FIGI.JobsPerCall = jobsPerCallWithoutKey
		}
	}
	if c.FIGI.CallsPerMinute == 0 {
		if c.FIGI.APIKey != "" {
			c.FIGI.CallsPerMinute = callsPerMinuteWithKey
		} else {
			c.FIGI.CallsPerMinute = callsPerMinuteWithoutKey
		}
	}
}

// Resolve returns name resolved against the data directory. Absolute
// names and blank names pass through unchanged.
func (p *PathsConfig) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

// SheetPath returns the resolved workbook path.
func (p *PathsConfig) SheetPath() string { return p.Resolve(p.SheetFile) }

// ErrataPath returns the resolved errata file path.
func (p *PathsConfig) ErrataPath() string { return p.Resolve(p.ErrataFile) }

// FamilyPath returns the resolved family alias file path.
func (p *PathsConfig) FamilyPath() string { return p.Resolve(p.FamilyFile) }

// CategoryPath returns the resolved category file path.
func (p *PathsConfig) CategoryPath() string { return p.Resolve(p.CategoryFile) }

// CachePath returns the resolved resolver cache path.
func (p *PathsConfig) CachePath() string { return p.Resolve(p.CacheFile) }
