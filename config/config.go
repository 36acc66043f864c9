// Package config loads the tracker settings from an optional YAML file,
// then applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

type Config struct {
	DataDir    string        `yaml:"data_dir"`
	Store      string        `yaml:"store"`
	StateFile  string        `yaml:"state_file"`
	ReportFile string        `yaml:"report_file"`
	Lending    LendingConfig `yaml:"lending"`
	Log        LogConfig     `yaml:"log"`
}

type LendingConfig struct {
	// DailyFineRate is kept as text so "2.50" survives without float rounding.
	DailyFineRate string `yaml:"daily_fine_rate"`
	GraceDays     int    `yaml:"grace_days"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Default mirrors the layout the tracker has always used: everything under data/.
func Default() Config {
	return Config{
		DataDir:    "data",
		Store:      StoreFile,
		StateFile:  "library.json",
		ReportFile: "report.txt",
		Lending: LendingConfig{
			DailyFineRate: "2.00",
			GraceDays:     7,
		},
		Log: LogConfig{
			Level:      "info",
			File:       "debug.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 30,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error; an empty
// path skips the file entirely.
func Load(path string) (Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return c, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &c); err != nil {
				return c, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	envOverride(&c.DataDir, "LUDOTECA_DATA_DIR")
	envOverride(&c.Store, "LUDOTECA_STORE")
	envOverride(&c.Lending.DailyFineRate, "LUDOTECA_FINE_RATE")
	envOverrideInt(&c.Lending.GraceDays, "LUDOTECA_GRACE_DAYS")
	envOverride(&c.Log.Level, "LUDOTECA_LOG_LEVEL")

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c Config) Validate() error {
	if _, err := c.FineRate(); err != nil {
		return err
	}
	if c.Lending.GraceDays < 0 {
		return fmt.Errorf("lending.grace_days must not be negative (got %d)", c.Lending.GraceDays)
	}
	switch strings.ToLower(c.Store) {
	case StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("unsupported store %q (want %s or %s)", c.Store, StoreFile, StoreSQLite)
	}
	if strings.TrimSpace(c.StateFile) == "" {
		return fmt.Errorf("state_file is required")
	}
	return nil
}

// FineRate parses the configured daily fine.
func (c Config) FineRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.Lending.DailyFineRate))
	if err != nil {
		return decimal.Zero, fmt.Errorf("lending.daily_fine_rate %q: %w", c.Lending.DailyFineRate, err)
	}
	if rate.IsNegative() {
		return decimal.Zero, fmt.Errorf("lending.daily_fine_rate must not be negative (got %s)", rate)
	}
	return rate, nil
}

// LogPath resolves the log file relative to the data dir unless it is absolute.
func (c Config) LogPath() string {
	if c.Log.File == "" || filepath.IsAbs(c.Log.File) {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, c.Log.File)
}

// SQLitePath is where the sqlite store keeps its database.
func (c Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "library.db")
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
