package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration: where the data lives, how it is served and the engine tunables
type Config struct {
	Data    DataConfig    `yaml:"data"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Engine  podds.Config  `yaml:"engine"`
}

// DataConfig describes the historical match source
type DataConfig struct {
	Source    string        `yaml:"source"`     // "csv" or "sqlite" (default: csv)
	Dir       string        `yaml:"dir"`        // directory of football-data.co.uk CSV files (default: ./data)
	DBPath    string        `yaml:"db_path"`    // sqlite match store (default: ./data/podds.db)
	BaseURL   string        `yaml:"base_url"`   // download base (default: https://www.football-data.co.uk/mmz4281)
	Seasons   []string      `yaml:"seasons"`    // seasons to fetch, e.g. "2425"
	Divisions []string      `yaml:"divisions"`  // divisions to fetch, e.g. "E0"
	Timeout   time.Duration `yaml:"timeout"`    // download timeout (default: 30s)
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	HTTPAddr       string        `yaml:"http_addr"`       // listen address (default: :8080)
	ReadTimeout    time.Duration `yaml:"read_timeout"`    // default: 15s
	WriteTimeout   time.Duration `yaml:"write_timeout"`   // default: 15s
	IdleTimeout    time.Duration `yaml:"idle_timeout"`    // default: 60s
	AllowedOrigins []string      `yaml:"allowed_origins"` // CORS origins (default: *)
}

// LoggingConfig configures internal/logger
type LoggingConfig struct {
	Level        string `yaml:"level"`          // debug, info, warn, error (default: info)
	Output       string `yaml:"output"`         // console, file or both (default: console)
	File         string `yaml:"file"`           // log file when output is file or both (default: /tmp/podds.log)
	ShowDateTime bool   `yaml:"show_date_time"` // prefix lines with date and time
}

const (
	SourceCSV    = "csv"
	SourceSQLite = "sqlite"
)

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Source:  SourceCSV,
			Dir:     "data",
			DBPath:  filepath.Join("data", "podds.db"),
			BaseURL: "https://www.football-data.co.uk/mmz4281",
			Timeout: 30 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:       ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "console",
			File:   filepath.Join(os.TempDir(), "podds.log"),
		},
		Engine: *podds.DefaultConfig(),
	}
}

// Load reads a YAML file over the defaults, expands ${VAR} references and applies
// the PODDS_* environment overrides. An empty path uses the defaults alone
func Load(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logger.Debug("Loaded configuration from", configPath)
	}

	config.applyEnv()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.Data.Dir = getEnv("PODDS_DATA_DIR", c.Data.Dir)
	c.Data.DBPath = getEnv("PODDS_DB_PATH", c.Data.DBPath)
	c.Data.Source = getEnv("PODDS_DATA_SOURCE", c.Data.Source)
	c.Server.HTTPAddr = getEnv("PODDS_HTTP_ADDR", c.Server.HTTPAddr)
	c.Logging.Level = getEnv("PODDS_LOG_LEVEL", c.Logging.Level)
}

// Validate checks the configuration is usable
func (c *Config) Validate() error {
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.Dir == "" {
			return fmt.Errorf("data.dir is required for the csv source")
		}
	case SourceSQLite:
		if c.Data.DBPath == "" {
			return fmt.Errorf("data.db_path is required for the sqlite source")
		}
	default:
		return fmt.Errorf("data.source must be %q or %q, got: %q", SourceCSV, SourceSQLite, c.Data.Source)
	}
	if c.Data.Timeout <= 0 {
		return fmt.Errorf("data.timeout must be positive, got: %s", c.Data.Timeout)
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("logging.output must be console, file or both, got: %q", c.Logging.Output)
	}
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// ApplyLogging configures the default logger. forceFile sends output to the log file only,
// which the MCP server needs because stdout carries the protocol
func (c *Config) ApplyLogging(forceFile bool) error {
	level, err := logger.ParseLevel(c.Logging.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetShowDateTime(c.Logging.ShowDateTime)

	output := c.Logging.Output
	if forceFile {
		output = "file"
	}
	switch output {
	case "file":
		return logger.SetLogOutput('f', c.Logging.File)
	case "both":
		return logger.SetLogOutput('b', c.Logging.File)
	default:
		return logger.SetLogOutput('c', "")
	}
}

func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}
