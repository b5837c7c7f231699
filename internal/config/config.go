// Package config holds every path, endpoint and output target of a run.
// Values are layered: built-in defaults, then an optional YAML file, then a
// .env file, then MARKETNAV_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"marketnav/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. MARKETNAV_STORE_HOST.
const EnvPrefix = "MARKETNAV"

// Config is the complete pipeline configuration.
type Config struct {
	Inputs     Inputs           `yaml:"inputs" envconfig:"INPUTS"`
	FDI        FDIConfig        `yaml:"fdi" envconfig:"FDI"`
	Indicators IndicatorColumns `yaml:"indicator_columns" envconfig:"INDICATOR_COLUMNS"`
	Store      StoreConfig      `yaml:"store" envconfig:"STORE"`
	Mirror     MirrorConfig     `yaml:"mirror" envconfig:"MIRROR"`
	Output     OutputConfig     `yaml:"output" envconfig:"OUTPUT"`
	FillPolicy string           `yaml:"fill_policy" split_words:"true" validate:"oneof=uniform semantic"`
	Logging    LoggingConfig    `yaml:"logging" envconfig:"LOGGING"`
}

// Inputs lists the five local files read on every run.
type Inputs struct {
	Indicators FileInput  `yaml:"indicators" envconfig:"INDICATORS"`
	LPI        SheetInput `yaml:"lpi" envconfig:"LPI"`
	Goods      FileInput  `yaml:"goods_trade" envconfig:"GOODS"`
	Services   FileInput  `yaml:"services_trade" envconfig:"SERVICES"`
	NTM        FileInput  `yaml:"ntm" envconfig:"NTM"`
}

// FileInput configures a delimited input file.
type FileInput struct {
	Path        string `yaml:"path" split_words:"true" validate:"required"`
	Delimiter   string `yaml:"delimiter" split_words:"true"`
	Encoding    string `yaml:"encoding" split_words:"true"`
	SkipBadRows bool   `yaml:"skip_bad_rows" split_words:"true"`
}

// SheetInput configures a spreadsheet input.
type SheetInput struct {
	Path      string `yaml:"path" split_words:"true" validate:"required"`
	Sheet     string `yaml:"sheet" split_words:"true"`
	HeaderRow int    `yaml:"header_row" split_words:"true" validate:"gte=1"`
}

// FDIConfig configures the indicator API call. When SnapshotPath is set the
// payload is read from that file instead of the network.
type FDIConfig struct {
	URL          string        `yaml:"url" split_words:"true" validate:"omitempty,url"`
	SnapshotPath string        `yaml:"snapshot_path" split_words:"true"`
	Timeout      time.Duration `yaml:"timeout" split_words:"true" validate:"gte=0"`
	Optional     bool          `yaml:"optional" split_words:"true"`
}

// IndicatorColumns names the source columns renamed to country_code and year.
type IndicatorColumns struct {
	Country string `yaml:"country" split_words:"true" validate:"required"`
	Year    string `yaml:"year" split_words:"true" validate:"required"`
}

// StoreConfig is the relational store receiving the integrated table.
type StoreConfig struct {
	Driver   string `yaml:"driver" split_words:"true" validate:"oneof=sqlite postgres mysql"`
	Host     string `yaml:"host" split_words:"true" validate:"required"` // file path for sqlite
	Port     int    `yaml:"port" split_words:"true"`
	Database string `yaml:"database" split_words:"true"`
	Username string `yaml:"username" split_words:"true"`
	Password string `yaml:"password" split_words:"true"`
	SSLMode  string `yaml:"ssl_mode" split_words:"true"`
	Table    string `yaml:"table" split_words:"true" validate:"required"`
}

// MirrorConfig enables an optional MongoDB copy of the integrated table.
type MirrorConfig struct {
	URI        string `yaml:"uri" split_words:"true"`
	Password   string `yaml:"password" split_words:"true"`
	Database   string `yaml:"database" split_words:"true"`
	Collection string `yaml:"collection" split_words:"true"`
}

// OutputConfig holds the flat-file backup and run bookkeeping paths.
type OutputConfig struct {
	CSVPath     string `yaml:"csv_path" split_words:"true" validate:"required"`
	RunLogPath  string `yaml:"run_log_path" split_words:"true"`
	MetricsFile string `yaml:"metrics_file" split_words:"true"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level" split_words:"true" validate:"oneof=debug info warn error"`
}

// Connection returns the store as a dbclient connection description.
func (s StoreConfig) Connection() domain.DatabaseConnection {
	return domain.DatabaseConnection{
		Name:     "store",
		Driver:   domain.DatabaseDriver(s.Driver),
		Host:     s.Host,
		Port:     s.Port,
		Database: s.Database,
		Username: s.Username,
		SSLMode:  s.SSLMode,
	}
}

// Enabled reports whether a mirror is configured.
func (m MirrorConfig) Enabled() bool { return m.URI != "" }

// Connection returns the mirror as a dbclient connection description.
func (m MirrorConfig) Connection() domain.DatabaseConnection {
	return domain.DatabaseConnection{
		Name:     "mirror",
		Driver:   domain.DatabaseDriverMongoDB,
		Host:     m.URI,
		Database: m.Database,
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment apply. A missing .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if cfg.Mirror.Enabled() && cfg.Mirror.Collection == "" {
		cfg.Mirror.Collection = cfg.Store.Table
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks the configuration for completeness.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.FDI.URL == "" && c.FDI.SnapshotPath == "" {
		return fmt.Errorf("invalid config: fdi needs a url or a snapshot_path")
	}
	return nil
}
