package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/dshills/sqlbatch/internal/errors"
	"github.com/dshills/sqlbatch/internal/log"
)

// Dispatch strategies.
const (
	StrategyPool  = "pool"
	StrategyGroup = "group"
)

// Client flavors.
const (
	FlavorSQLPlus = "sqlplus"
	FlavorPsql    = "psql"
	FlavorCustom  = "custom"
)

// Config represents the complete batch run configuration. It is built once
// at startup and never mutated afterwards.
type Config struct {
	// Logging configuration
	Log log.Config `json:"log" yaml:"log"`

	// Dispatch configuration
	MaxWorkers  int    `json:"max_workers" yaml:"max_workers"` // 0 means one per CPU
	Strategy    string `json:"strategy" yaml:"strategy"`       // "pool", "group"
	SkipEmpty   bool   `json:"skip_empty" yaml:"skip_empty"`
	FailOnError bool   `json:"fail_on_error" yaml:"fail_on_error"`

	// Client configuration
	Client ClientConfig `json:"client" yaml:"client"`

	// Report configuration
	Report ReportConfig `json:"report" yaml:"report"`
}

// ClientConfig describes how the external database client is invoked.
// Empty Command, Args, Preamble, Terminator and Postamble fall back to the
// flavor defaults.
type ClientConfig struct {
	Flavor  string   `json:"flavor" yaml:"flavor"` // "sqlplus", "psql", "custom"
	Command string   `json:"command" yaml:"command"`
	Args    []string `json:"args" yaml:"args"`

	// Connection settings, substituted into Args placeholders
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	DSN      string `json:"dsn" yaml:"dsn"`

	// Text written to stdin around each statement
	Preamble   string `json:"preamble" yaml:"preamble"`
	Terminator string `json:"terminator" yaml:"terminator"`
	Postamble  string `json:"postamble" yaml:"postamble"`

	Timeout        string `json:"timeout" yaml:"timeout"` // duration string, "0" disables
	MaxOutputBytes int    `json:"max_output_bytes" yaml:"max_output_bytes"`
}

// ReportConfig selects the machine-readable run reports to write.
type ReportConfig struct {
	JSONPath   string `json:"json_path" yaml:"json_path"`
	SQLitePath string `json:"sqlite_path" yaml:"sqlite_path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Log:         log.DefaultConfig(),
		MaxWorkers:  10,
		Strategy:    StrategyPool,
		SkipEmpty:   true,
		FailOnError: true,
		Client: ClientConfig{
			Flavor:         FlavorSQLPlus,
			Timeout:        "10m",
			MaxOutputBytes: 4096,
		},
	}
}

// LoadFromFile loads configuration from a JSON or YAML file. The format is
// picked from the extension; anything other than .yaml/.yml is JSON.
func LoadFromFile(path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads the given .env files (".env" when none are named) and
// applies SQLBATCH_* variables on top of c. Variables already present in
// the process environment win over .env entries. A missing default .env is
// not an error; a missing named file is.
func (c *Config) LoadFromEnv(files ...string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	}

	setString(&c.Client.User, "SQLBATCH_USER")
	setString(&c.Client.Password, "SQLBATCH_PASSWORD")
	setString(&c.Client.Database, "SQLBATCH_DATABASE")
	setString(&c.Client.DSN, "SQLBATCH_DSN")
	setString(&c.Client.Flavor, "SQLBATCH_CLIENT")
	setString(&c.Client.Command, "SQLBATCH_CLIENT_COMMAND")
	setString(&c.Client.Timeout, "SQLBATCH_TIMEOUT")
	setString(&c.Log.File, "SQLBATCH_LOG_FILE")
	setString(&c.Log.Level, "SQLBATCH_LOG_LEVEL")
	setString(&c.Strategy, "SQLBATCH_STRATEGY")

	if val, ok := os.LookupEnv("SQLBATCH_MAX_WORKERS"); ok {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("failed to read SQLBATCH_MAX_WORKERS: %w", err)
		}
		c.MaxWorkers = n
	}
	if val, ok := os.LookupEnv("SQLBATCH_SKIP_EMPTY"); ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("failed to read SQLBATCH_SKIP_EMPTY: %w", err)
		}
		c.SkipEmpty = b
	}

	return nil
}

func setString(dst *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		*dst = val
	}
}

// LoadFromFlags merges command-line flags into the configuration. Zero
// values leave the current setting untouched.
func (c *Config) LoadFromFlags(logFile, logLevel string, maxWorkers int, timeout, strategy string) {
	if logFile != "" {
		c.Log.File = logFile
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if maxWorkers > 0 {
		c.MaxWorkers = maxWorkers
	}
	if timeout != "" {
		c.Client.Timeout = timeout
	}
	if strategy != "" {
		c.Strategy = strategy
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	// Validate log settings
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
		// Valid
	default:
		return errors.InvalidConfigf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.File == "" {
		return errors.InvalidConfigf("log file is required")
	}

	// Validate dispatch settings
	if c.MaxWorkers < 0 {
		return errors.InvalidConfigf("max workers cannot be negative")
	}
	switch c.Strategy {
	case StrategyPool, StrategyGroup:
		// Valid
	default:
		return errors.InvalidConfigf("invalid strategy: %s", c.Strategy).
			WithDetailf("expected %q or %q", StrategyPool, StrategyGroup)
	}

	if err := c.validateClient(); err != nil {
		return fmt.Errorf("invalid client configuration: %w", err)
	}

	return nil
}

// validateClient validates client-specific configuration
func (c *Config) validateClient() error {
	switch c.Client.Flavor {
	case FlavorSQLPlus:
		// Valid
	case FlavorPsql:
		if c.Client.DSN == "" {
			return errors.InvalidConfigf("dsn is required for the psql flavor").
				WithHint("Set client.dsn or SQLBATCH_DSN to a postgres:// URL or libpq conninfo.")
		}
	case FlavorCustom:
		if c.Client.Command == "" {
			return errors.InvalidConfigf("command is required for the custom flavor")
		}
	default:
		return errors.InvalidConfigf("invalid client flavor: %s", c.Client.Flavor).
			WithDetailf("expected %q, %q or %q", FlavorSQLPlus, FlavorPsql, FlavorCustom)
	}

	timeout, err := c.Client.TimeoutDuration()
	if err != nil {
		return errors.InvalidConfigf("invalid timeout %q", c.Client.Timeout).WithDetail(err.Error())
	}
	if timeout < 0 {
		return errors.InvalidConfigf("timeout cannot be negative")
	}
	if c.Client.MaxOutputBytes < 0 {
		return errors.InvalidConfigf("max output bytes cannot be negative")
	}

	return nil
}

// TimeoutDuration parses Timeout. An empty or "0" value means no limit.
func (cc ClientConfig) TimeoutDuration() (time.Duration, error) {
	if cc.Timeout == "" || cc.Timeout == "0" {
		return 0, nil
	}
	return time.ParseDuration(cc.Timeout)
}

// HasReports returns true if at least one report writer is configured
func (c *Config) HasReports() bool {
	return c.Report.JSONPath != "" || c.Report.SQLitePath != ""
}
