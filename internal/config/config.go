package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type DocsConfig struct {
	// BaseURL serves the rustdoc JSON archives, PageURL the rendered pages
	// that item URLs point at. Both are docs.rs unless mirrored.
	BaseURL           string        `mapstructure:"base_url"`
	PageURL           string        `mapstructure:"page_url"`
	CratesIOURL       string        `mapstructure:"crates_io_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	UserAgent         string        `mapstructure:"user_agent"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

type CacheConfig struct {
	LatestTTL time.Duration `mapstructure:"latest_ttl"`
}

type SearchConfig struct {
	Limit int `mapstructure:"limit"`
}

type DaemonConfig struct {
	IdleTimeout time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level slog.Level `mapstructure:"level"`
}

type Config struct {
	Docs   DocsConfig   `mapstructure:"docs"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Search SearchConfig `mapstructure:"search"`
	Daemon DaemonConfig `mapstructure:"daemon"`
	Log    LogConfig    `mapstructure:"log"`
}

// cacheBase returns the base cache directory for rsfind.
// Checks XDG_CACHE_HOME, then ~/.cache, then /tmp/rsfind as fallback.
func cacheBase() string {
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, "rsfind")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".cache", "rsfind")
	}
	return filepath.Join(os.TempDir(), "rsfind")
}

// DBPath returns the path to the DuckDB ledger of fetched crates.
func DBPath() string {
	return filepath.Join(cacheBase(), "ledger.duckdb")
}

// CASDir returns the path to the archive store.
func CASDir() string {
	return filepath.Join(cacheBase(), "cas")
}

// LogPath returns the path to the daemon's log file.
func LogPath() string {
	return filepath.Join(cacheBase(), "daemon.log")
}

// LockPath returns the lock file that serializes daemon spawns.
func LockPath() string {
	return filepath.Join(cacheBase(), "daemon.lock")
}

// SocketPath returns the path to the daemon's unix socket.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "rsfind", "daemon.sock")
	}
	return filepath.Join(fmt.Sprintf("/run/user/%d", os.Getuid()), "rsfind", "daemon.sock")
}

func InitializeViper() error {
	return initialize(viper.GetViper())
}

func initialize(v *viper.Viper) error {
	v.SetConfigName("config")
	v.SetConfigType("toml")

	v.AddConfigPath(".")
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		v.AddConfigPath(filepath.Join(xdg, "rsfind"))
	} else if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "rsfind"))
	}

	v.SetDefault("docs.base_url", "https://docs.rs")
	v.SetDefault("docs.page_url", "https://docs.rs")
	v.SetDefault("docs.crates_io_url", "https://crates.io")
	v.SetDefault("docs.timeout", "60s")
	v.SetDefault("docs.user_agent", "rsfind/0.1.0 (https://github.com/jcdickinson/rsfind)")
	v.SetDefault("docs.requests_per_second", 2)
	v.SetDefault("cache.latest_ttl", "10m")
	v.SetDefault("search.limit", 10)
	v.SetDefault("daemon.idle_timeout", "10m")
	v.SetDefault("log.level", "info")

	v.SetEnvPrefix("RSFIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

func stringToLevelHookFunc() mapstructure.DecodeHookFunc {
	return func(f, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(slog.Level(0)) || f.Kind() != reflect.String {
			return data, nil
		}
		var level slog.Level
		if err := level.UnmarshalText([]byte(data.(string))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", data, err)
		}
		return level, nil
	}
}

func Load() (*Config, error) {
	if err := InitializeViper(); err != nil {
		return nil, err
	}
	return decode(viper.GetViper())
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			stringToLevelHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &config,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	// AllSettings only reports env vars for keys viper already knows about,
	// which the defaults above guarantee.
	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Search.Limit < 0 {
		return nil, fmt.Errorf("search.limit must not be negative, got %d", config.Search.Limit)
	}
	if config.Docs.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("docs.requests_per_second must be positive, got %v", config.Docs.RequestsPerSecond)
	}
	return &config, nil
}
