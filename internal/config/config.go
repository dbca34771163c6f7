// Package config loads the small set of knobs mcpfinder needs: where the
// store lives, how stale it may get before a sync is forced, and how
// verbosely to log. Values come from built-in defaults, an optional YAML
// file, and MCPFINDER_*-prefixed environment variables, in that order.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Duration wraps time.Duration so it marshals to/from JSON/YAML as a
// human string ("15m") instead of a raw int64 of nanoseconds.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// stringToConfigDurationHookFunc lets viper's mapstructure decoding turn a
// "15m"-style string (from env or YAML) into a Duration field.
func stringToConfigDurationHookFunc() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(Duration(0)) {
			return data, nil
		}
		if from.Kind() != reflect.String {
			return data, nil
		}
		parsed, err := time.ParseDuration(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q: %w", data, err)
		}
		return Duration(parsed), nil
	}
}

// Config is MCPfinder's complete runtime configuration.
type Config struct {
	// DataDir is where data.db and ftindex.bleve live. Defaults to
	// $MCPFINDER_DATA_DIR or ~/.mcpfinder.
	DataDir string `mapstructure:"data-dir"`

	// MaxStoreAge is how old the store may get before a query forces a
	// sync.
	MaxStoreAge Duration `mapstructure:"max-store-age"`

	// LogDir holds mcpfinder.log; empty disables file logging.
	LogDir string `mapstructure:"log-dir"`
	// LogLevel is one of debug|info|warn|error.
	LogLevel string `mapstructure:"log-level"`
	// LogConsole additionally logs human-readable lines to stderr.
	LogConsole bool `mapstructure:"log-console"`

	// DefaultSearchLimit is Core.SearchServers's limit when the caller
	// passes 0. MaxSearchLimit is loaded but not consulted: the accepted
	// search limit is always 1..50 (search.MaxLimit).
	DefaultSearchLimit int `mapstructure:"default-search-limit"`
	MaxSearchLimit     int `mapstructure:"max-search-limit"`

	// DefaultBrowseLimit bounds Core.BrowseCategory's default limit.
	DefaultBrowseLimit int `mapstructure:"default-browse-limit"`
}

const envPrefix = "MCPFINDER"

// Default returns the configuration used when no file and no env
// overrides are present.
func Default() Config {
	dataDir := os.Getenv("MCPFINDER_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			dataDir = filepath.Join(home, ".mcpfinder")
		} else {
			dataDir = ".mcpfinder"
		}
	}
	return Config{
		DataDir:            dataDir,
		MaxStoreAge:        Duration(15 * time.Minute),
		LogDir:             filepath.Join(dataDir, "logs"),
		LogLevel:           "info",
		LogConsole:         true,
		DefaultSearchLimit: 10,
		MaxSearchLimit:     50,
		DefaultBrowseLimit: 20,
	}
}

// Load reads configuration from (in increasing priority order) built-in
// defaults, an optional YAML file at configPath (skipped if empty or
// missing), and MCPFINDER_*-prefixed environment variables.
func Load(configPath string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data-dir", def.DataDir)
	v.SetDefault("max-store-age", def.MaxStoreAge.Duration().String())
	v.SetDefault("log-dir", def.LogDir)
	v.SetDefault("log-level", def.LogLevel)
	v.SetDefault("log-console", def.LogConsole)
	v.SetDefault("default-search-limit", def.DefaultSearchLimit)
	v.SetDefault("max-search-limit", def.MaxSearchLimit)
	v.SetDefault("default-browse-limit", def.DefaultBrowseLimit)

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			v.SetConfigFile(configPath)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		stringToConfigDurationHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.MaxSearchLimit <= 0 {
		cfg.MaxSearchLimit = def.MaxSearchLimit
	}
	if cfg.DefaultSearchLimit <= 0 {
		cfg.DefaultSearchLimit = def.DefaultSearchLimit
	}
	if cfg.DefaultBrowseLimit <= 0 {
		cfg.DefaultBrowseLimit = def.DefaultBrowseLimit
	}

	return cfg, nil
}
