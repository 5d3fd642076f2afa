// Package config loads tradebook settings from YAML or JSON files, .env
// files and TRADEBOOK_* environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the complete tradebook configuration.
type Config struct {
	Ledger  LedgerConfig  `json:"ledger" yaml:"ledger"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Extract ExtractConfig `json:"extract" yaml:"extract"`
	OCR     OCRConfig     `json:"ocr" yaml:"ocr"`
	Pending PendingConfig `json:"pending" yaml:"pending"`
	Server  ServerConfig  `json:"server" yaml:"server"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// LedgerConfig holds the economic constants and the zone wall-clock
// timestamps are read in.
type LedgerConfig struct {
	FeeRate            float64 `json:"fee_rate" yaml:"fee_rate"`
	RebateRate         float64 `json:"rebate_rate" yaml:"rebate_rate"`
	DuplicateTolerance float64 `json:"duplicate_tolerance" yaml:"duplicate_tolerance"`
	Location           string  `json:"location" yaml:"location"` // IANA name or "Local"
}

// LoadLocation resolves Location.
func (l LedgerConfig) LoadLocation() (*time.Location, error) {
	if l.Location == "" || strings.EqualFold(l.Location, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(l.Location)
}

type JournalConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// ExtractConfig tunes the layout pass.
type ExtractConfig struct {
	MaxLabelDistance float64 `json:"max_label_distance" yaml:"max_label_distance"`
	ColumnMargin     float64 `json:"column_margin" yaml:"column_margin"`
}

type OCRConfig struct {
	Languages         []string `json:"languages" yaml:"languages"`
	FallbackLanguages []string `json:"fallback_languages,omitempty" yaml:"fallback_languages,omitempty"`
	TessdataPrefix    string   `json:"tessdata_prefix,omitempty" yaml:"tessdata_prefix,omitempty"`
	Scale             float64  `json:"scale" yaml:"scale"`
	Contrast          float64  `json:"contrast" yaml:"contrast"` // percent, -100..100
}

// PendingConfig selects where duplicate confirmations wait.
type PendingConfig struct {
	Backend   string `json:"backend" yaml:"backend"` // "memory" or "redis"
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisDB   int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	TTL       string `json:"ttl,omitempty" yaml:"ttl,omitempty"` // e.g. "10m"; empty never expires
}

// ParseTTL converts TTL to a duration.
func (p PendingConfig) ParseTTL() (time.Duration, error) {
	if p.TTL == "" {
		return 0, nil
	}
	return time.ParseDuration(p.TTL)
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level   string `json:"level" yaml:"level"`
	Format  string `json:"format" yaml:"format"`
	Tracing bool   `json:"tracing" yaml:"tracing"`
}

// LoadFromFile loads configuration from a file (YAML or JSON). Missing
// keys keep their defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Ledger.FeeRate < 0 || c.Ledger.FeeRate >= 1 {
		return fmt.Errorf("ledger.fee_rate must be in [0, 1)")
	}
	if c.Ledger.RebateRate < 0 || c.Ledger.RebateRate > 1 {
		return fmt.Errorf("ledger.rebate_rate must be between 0 and 1")
	}
	if c.Ledger.DuplicateTolerance <= 0 {
		return fmt.Errorf("ledger.duplicate_tolerance must be positive")
	}
	if _, err := c.Ledger.LoadLocation(); err != nil {
		return fmt.Errorf("ledger.location: %w", err)
	}
	if c.Journal.DBPath == "" {
		return fmt.Errorf("journal.db_path is required")
	}
	if c.Extract.MaxLabelDistance <= 0 {
		return fmt.Errorf("extract.max_label_distance must be positive")
	}
	if c.Extract.ColumnMargin <= 0 {
		return fmt.Errorf("extract.column_margin must be positive")
	}
	if len(c.OCR.Languages) == 0 {
		return fmt.Errorf("ocr.languages is required")
	}
	if c.OCR.Scale < 1 {
		return fmt.Errorf("ocr.scale must be at least 1")
	}
	if c.OCR.Contrast < -100 || c.OCR.Contrast > 100 {
		return fmt.Errorf("ocr.contrast must be between -100 and 100")
	}
	switch c.Pending.Backend {
	case "memory":
	case "redis":
		if c.Pending.RedisAddr == "" {
			return fmt.Errorf("pending.redis_addr required for redis backend")
		}
	default:
		return fmt.Errorf("pending.backend must be 'memory' or 'redis'")
	}
	if _, err := c.Pending.ParseTTL(); err != nil {
		return fmt.Errorf("pending.ttl: %w", err)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Ledger: LedgerConfig{
			FeeRate:            0.0005,
			RebateRate:         0.8,
			DuplicateTolerance: 0.0001,
			Location:           "Local",
		},
		Journal: JournalConfig{
			DBPath: "./trades.db",
		},
		Extract: ExtractConfig{
			MaxLabelDistance: 200,
			ColumnMargin:     0.8,
		},
		OCR: OCRConfig{
			Languages:         []string{"chi_sim", "eng"},
			FallbackLanguages: []string{"eng"},
			Scale:             2,
			Contrast:          50,
		},
		Pending: PendingConfig{
			Backend: "memory",
			TTL:     "30m",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// LoadDotEnv loads .env files into the process environment without
// overriding variables already set. With no arguments it reads ./.env
// and a missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TRADEBOOK_"

// ApplyEnv overrides fields from TRADEBOOK_* variables found by lookup,
// usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	list := func(name string, dst *[]string) {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' })
		}
	}
	var errs []error
	float := func(name string, dst *float64) {
		if v, ok := lookup(EnvPrefix + name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = f
		}
	}
	integer := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	float("FEE_RATE", &c.Ledger.FeeRate)
	float("REBATE_RATE", &c.Ledger.RebateRate)
	float("DUPLICATE_TOLERANCE", &c.Ledger.DuplicateTolerance)
	str("LOCATION", &c.Ledger.Location)
	str("DB_PATH", &c.Journal.DBPath)
	list("OCR_LANGUAGES", &c.OCR.Languages)
	str("TESSDATA_PREFIX", &c.OCR.TessdataPrefix)
	str("PENDING_BACKEND", &c.Pending.Backend)
	str("REDIS_ADDR", &c.Pending.RedisAddr)
	integer("REDIS_DB", &c.Pending.RedisDB)
	str("PENDING_TTL", &c.Pending.TTL)
	str("SERVER_ADDR", &c.Server.Addr)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	boolean("TRACING", &c.Log.Tracing)

	return errors.Join(errs...)
}
