// Package config loads histories settings from defaults, an optional YAML
// file, HISTORIES_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. HISTORIES_MONGO_URI.
const EnvPrefix = "HISTORIES"

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// DefaultDataFile is the SQLite file used when db is unset, relative to the
// XDG data directory.
const DefaultDataFile = "histories/histories.db"

// Config is the resolved configuration.
type Config struct {
	Backend string      `mapstructure:"backend"`
	DB      string      `mapstructure:"db"`
	Mongo   MongoConfig `mapstructure:"mongo"`
	HTTP    HTTPConfig  `mapstructure:"http"`
	Log     LogConfig   `mapstructure:"log"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// MongoConfig selects the MongoDB deployment and collection.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// HTTPConfig controls the HTTP server.
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	BodyLimit       int64         `mapstructure:"body_limit"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// flagKeys maps flag names to config keys. Flags missing from a command's
// flag set are skipped.
var flagKeys = map[string]string{
	"backend":          "backend",
	"db":               "db",
	"mongo-uri":        "mongo.uri",
	"mongo-database":   "mongo.database",
	"mongo-collection": "mongo.collection",
	"addr":             "http.addr",
	"log-level":        "log.level",
	"log-format":       "log.format",
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("db", "")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "histories")
	v.SetDefault("mongo.collection", "histories")
	v.SetDefault("http.addr", ":3000")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("http.body_limit", int64(1<<20))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// BindFlags binds the known flags present in fs.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads configFile, or histories/config.yaml from the XDG config
// directories when configFile is empty and such a file exists, and returns
// the validated configuration.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	if configFile == "" {
		if found, err := xdg.SearchConfigFile("histories/config.yaml"); err == nil {
			configFile = found
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = configFile

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that viper cannot type-check.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend {
	case BackendSQLite:
	case BackendMongo:
		if c.Mongo.URI == "" {
			errs = append(errs, errors.New("mongo.uri is required for the mongo backend"))
		}
		if c.Mongo.Database == "" {
			errs = append(errs, errors.New("mongo.database is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend must be %q or %q, got %q", BackendSQLite, BackendMongo, c.Backend))
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	if c.HTTP.ShutdownTimeout < 0 {
		errs = append(errs, errors.New("http.shutdown_timeout must not be negative"))
	}
	if c.HTTP.BodyLimit < 0 {
		errs = append(errs, errors.New("http.body_limit must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// SQLitePath returns the configured database file, defaulting to
// DefaultDataFile under the XDG data directory. The default's parent
// directories are created.
func (c *Config) SQLitePath() (string, error) {
	if c.DB != "" {
		return c.DB, nil
	}
	path, err := xdg.DataFile(DefaultDataFile)
	if err != nil {
		return "", fmt.Errorf("resolve data file: %w", err)
	}
	return path, nil
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
