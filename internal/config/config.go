package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/archive"
	"github.com/richard-senior/matchpredict/pkg/footballdata"
	"github.com/richard-senior/matchpredict/pkg/predictor"
)

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Config represents the application configuration.
type Config struct {
	Data    DataConfig    `toml:"data"`
	Cache   CacheConfig   `toml:"cache"`
	Archive ArchiveConfig `toml:"archive"`
	Model   ModelConfig   `toml:"model"`
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
}

// DataConfig says where the match results come from.
type DataConfig struct {
	Source            string  `toml:"source"`              // URL, file path or archive:// ref; empty means league + season
	League            string  `toml:"league"`              // Division code or friendly name (e.g. "E0", "laliga")
	Season            string  `toml:"season"`              // Season (e.g. "2025/2026")
	Timeout           string  `toml:"timeout"`             // Download timeout (e.g. "30s")
	UserAgent         string  `toml:"user_agent"`          // Empty uses a browser-like default
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 disables throttling
	CABundle          string  `toml:"ca_bundle"`           // Extra PEM roots
}

// CacheConfig contains download caching settings.
type CacheConfig struct {
	Backend     string `toml:"backend"`      // none, file or redis
	Dir         string `toml:"dir"`          // Directory of the file cache
	RedisAddr   string `toml:"redis_addr"`   // host:port of the redis cache
	RedisPrefix string `toml:"redis_prefix"` // Key prefix in redis
	TTL         string `toml:"ttl"`          // Cache TTL (e.g. "12h")
}

// ArchiveConfig contains the match archive connection.
type ArchiveConfig struct {
	Driver string `toml:"driver"` // sqlite or postgres
	DSN    string `toml:"dsn"`    // File path for sqlite, connection string for postgres
}

// ModelConfig contains training settings.
type ModelConfig struct {
	Trees        int     `toml:"trees"`
	Seed         int64   `toml:"seed"`
	Evaluation   string  `toml:"evaluation"`    // holdout or resubstitution
	TestFraction float64 `toml:"test_fraction"` // Share of rows held out
	Workers      int     `toml:"workers"`       // 0 means one per CPU
}

// ServerConfig contains web form settings.
type ServerConfig struct {
	Addr         string `toml:"addr"`
	ReadTimeout  string `toml:"read_timeout"`
	WriteTimeout string `toml:"write_timeout"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level    string `toml:"level"`    // debug, info, warn, error
	Output   string `toml:"output"`   // console, file or both
	DateTime bool   `toml:"datetime"` // Prefix lines with date and time
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	base := filepath.Join(os.TempDir(), "matchpredict")
	return &Config{
		Data: DataConfig{
			League:            footballdata.DefaultLeague,
			Season:            footballdata.DefaultSeason,
			Timeout:           "30s",
			RequestsPerSecond: 1,
		},
		Cache: CacheConfig{
			Backend:     CacheFile,
			Dir:         filepath.Join(base, "cache"),
			RedisAddr:   "localhost:6379",
			RedisPrefix: "matchpredict:csv:",
			TTL:         "12h",
		},
		Archive: ArchiveConfig{
			Driver: archive.DriverSQLite,
			DSN:    filepath.Join(base, "archive.db"),
		},
		Model: ModelConfig{
			Trees:        predictor.DefaultTrees,
			Seed:         predictor.DefaultSeed,
			Evaluation:   string(predictor.Holdout),
			TestFraction: predictor.DefaultTestFraction,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "10s",
			WriteTimeout: "30s",
		},
		Log: LogConfig{
			Level:  "info",
			Output: "console",
		},
	}
}

// DefaultPath returns ~/.matchpredict/config.toml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".matchpredict", "config.toml"), nil
}

// Load reads the configuration at path over the defaults.
// A missing file is not an error: the defaults are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debug("No config file, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// BindFlags registers command line overrides for the most used settings.
// The current values become the flag defaults, so Parse only changes what was given.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Data.Source, "source", c.Data.Source, "CSV URL, file path or archive://<league>/<season>")
	fs.StringVar(&c.Data.League, "league", c.Data.League, "league code or name, e.g. E0 or laliga")
	fs.StringVar(&c.Data.Season, "season", c.Data.Season, "season, e.g. 2025/2026")
	fs.StringVar(&c.Cache.Backend, "cache", c.Cache.Backend, "download cache: none, file or redis")
	fs.StringVar(&c.Archive.Driver, "archive-driver", c.Archive.Driver, "archive database: sqlite or postgres")
	fs.StringVar(&c.Archive.DSN, "archive-dsn", c.Archive.DSN, "archive database file or connection string")
	fs.IntVar(&c.Model.Trees, "trees", c.Model.Trees, "number of trees in the forest")
	fs.Int64Var(&c.Model.Seed, "seed", c.Model.Seed, "random seed")
	fs.StringVar(&c.Model.Evaluation, "eval", c.Model.Evaluation, "accuracy evaluation: holdout or resubstitution")
	fs.StringVar(&c.Server.Addr, "addr", c.Server.Addr, "web form listen address")
	fs.StringVar(&c.Log.Level, "log-level", c.Log.Level, "debug, info, warn or error")
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	if _, err := c.GetFetchTimeout(); err != nil {
		return fmt.Errorf("invalid data timeout %q: %w", c.Data.Timeout, err)
	}
	if c.Data.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative: %v", c.Data.RequestsPerSecond)
	}
	if _, err := c.ResolvedSource(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case CacheNone, CacheFile, CacheRedis:
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	if _, err := c.GetCacheTTL(); err != nil {
		return fmt.Errorf("invalid cache TTL %q: %w", c.Cache.TTL, err)
	}

	switch c.Archive.Driver {
	case archive.DriverSQLite, archive.DriverPostgres:
	default:
		return fmt.Errorf("unknown archive driver %q", c.Archive.Driver)
	}

	if c.Model.Trees < 1 {
		return fmt.Errorf("trees must be at least 1: %d", c.Model.Trees)
	}
	if c.Model.TestFraction <= 0 || c.Model.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be between 0 and 1 exclusive: %v", c.Model.TestFraction)
	}
	if _, err := predictor.ParseEvaluationMode(c.Model.Evaluation); err != nil {
		return err
	}

	if _, err := time.ParseDuration(c.Server.ReadTimeout); err != nil {
		return fmt.Errorf("invalid read timeout %q: %w", c.Server.ReadTimeout, err)
	}
	if _, err := time.ParseDuration(c.Server.WriteTimeout); err != nil {
		return fmt.Errorf("invalid write timeout %q: %w", c.Server.WriteTimeout, err)
	}

	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := c.LogOutput(); err != nil {
		return err
	}
	return nil
}

// ResolvedSource returns the configured source, or the football-data.co.uk URL of the
// configured league and season when no source is set.
func (c *Config) ResolvedSource() (string, error) {
	if c.Data.Source != "" {
		return c.Data.Source, nil
	}
	return footballdata.SourceURL(c.Data.League, c.Data.Season)
}

// ArchiveKey returns the league and season a downloaded source is archived under.
// An explicit source must be a football-data.co.uk season URL so its key can be read from it.
func (c *Config) ArchiveKey() (league, season string, err error) {
	if c.Data.Source == "" {
		return c.Data.League, c.Data.Season, nil
	}
	if c.UsesArchive() {
		return "", "", fmt.Errorf("the source is already the archive")
	}
	league, season, ok := footballdata.SeasonOfURL(c.Data.Source)
	if !ok {
		return "", "", fmt.Errorf("cannot tell which league season %s holds; use -league and -season instead of -source", c.Data.Source)
	}
	return league, season, nil
}

// UsesArchive reports whether data is read from the match archive.
func (c *Config) UsesArchive() bool {
	return strings.HasPrefix(c.Data.Source, footballdata.ArchiveScheme)
}

// GetFetchTimeout returns the download timeout as a duration.
func (c *Config) GetFetchTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Data.Timeout)
}

// GetCacheTTL returns the cache TTL as a duration.
func (c *Config) GetCacheTTL() (time.Duration, error) {
	return time.ParseDuration(c.Cache.TTL)
}

// GetReadTimeout returns the server read timeout, falling back to 10s if unparsable.
func (c *Config) GetReadTimeout() time.Duration {
	return durationOr(c.Server.ReadTimeout, 10*time.Second)
}

// GetWriteTimeout returns the server write timeout, falling back to 30s if unparsable.
func (c *Config) GetWriteTimeout() time.Duration {
	return durationOr(c.Server.WriteTimeout, 30*time.Second)
}

// LogOutput maps the output setting onto the logger's output codes.
func (c *Config) LogOutput() (rune, error) {
	switch strings.ToLower(c.Log.Output) {
	case "", "console":
		return 'c', nil
	case "file":
		return 'f', nil
	case "both":
		return 'b', nil
	}
	return 0, fmt.Errorf("unknown log output %q (want console, file or both)", c.Log.Output)
}

// PredictorOptions converts the model section into training options.
func (c *Config) PredictorOptions() (predictor.Options, error) {
	mode, err := predictor.ParseEvaluationMode(c.Model.Evaluation)
	if err != nil {
		return predictor.Options{}, err
	}
	opts := predictor.DefaultOptions()
	opts.Forest.Trees = c.Model.Trees
	opts.Forest.Seed = c.Model.Seed
	opts.Forest.Workers = c.Model.Workers
	opts.Evaluation = mode
	opts.TestFraction = c.Model.TestFraction
	return opts, nil
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// PathFromArgs finds a -config value in command line arguments before they are parsed,
// so the file can be loaded and then overridden by the remaining flags.
func PathFromArgs(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}
