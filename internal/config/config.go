// Package config loads the TimeForged configuration.
//
// Settings come from, in increasing precedence: built-in defaults, the TOML
// file (default ~/.config/timeforged/config.toml) and TF_-prefixed
// environment variables. Nested keys map to environment variables with
// underscores, e.g. watcher.debounce_secs is TF_WATCHER_DEBOUNCE_SECS.
//
//	host = "127.0.0.1"
//	port = 6175
//	idle_timeout = 300
//
//	[watcher]
//	debounce_secs = 30
//	enable_window_tracker = true
//	ignore_patterns = ["*.tmp", "generated"]
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	appName = "timeforged"

	// FileName is the config file name inside the config directory.
	FileName = "config.toml"

	// DefaultPort is the daemon's HTTP port.
	DefaultPort = 6175
)

// Config is the complete daemon and CLI configuration.
type Config struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	DatabasePath string        `mapstructure:"database_path"`
	IdleTimeout  int           `mapstructure:"idle_timeout"`
	LogFile      string        `mapstructure:"log_file"`
	Username     string        `mapstructure:"username"`
	Watcher      WatcherConfig `mapstructure:"watcher"`
}

// WatcherConfig holds the file watcher settings.
type WatcherConfig struct {
	DebounceSecs        int      `mapstructure:"debounce_secs"`
	WindowPollSecs      int      `mapstructure:"window_poll_secs"`
	EnableWindowTracker bool     `mapstructure:"enable_window_tracker"`
	IgnorePatterns      []string `mapstructure:"ignore_patterns"`
}

// ConfigDir returns $XDG_CONFIG_HOME/timeforged, or ~/.config/timeforged.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", appName)
}

// DataDir returns $XDG_DATA_HOME/timeforged, or ~/.local/share/timeforged.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", appName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(ConfigDir(), FileName)
}

// Default returns the built-in configuration.
func Default() *Config {
	username := os.Getenv("USER")
	if username == "" {
		username = "default"
	}
	return &Config{
		Host:         "127.0.0.1",
		Port:         DefaultPort,
		DatabasePath: filepath.Join(DataDir(), appName+".db"),
		IdleTimeout:  300,
		LogFile:      filepath.Join(DataDir(), "timeforged.log"),
		Username:     username,
		Watcher: WatcherConfig{
			DebounceSecs:        30,
			WindowPollSecs:      15,
			EnableWindowTracker: false,
			IgnorePatterns:      []string{},
		},
	}
}

// Load reads the config file at path (DefaultPath when empty) and applies
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("TF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// TF_DATABASE_URL is accepted for compatibility with older setups.
	if err := v.BindEnv("database_path", "TF_DATABASE_PATH", "TF_DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.DatabasePath = trimDatabaseURL(cfg.DatabasePath)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("database_path", d.DatabasePath)
	v.SetDefault("idle_timeout", d.IdleTimeout)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("username", d.Username)
	v.SetDefault("watcher.debounce_secs", d.Watcher.DebounceSecs)
	v.SetDefault("watcher.window_poll_secs", d.Watcher.WindowPollSecs)
	v.SetDefault("watcher.enable_window_tracker", d.Watcher.EnableWindowTracker)
	v.SetDefault("watcher.ignore_patterns", d.Watcher.IgnorePatterns)
}

// trimDatabaseURL turns "sqlite://path" or "sqlite:path" into a file path.
func trimDatabaseURL(s string) string {
	for _, prefix := range []string{"sqlite://", "sqlite:"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	return s
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path cannot be empty")
	}
	if c.IdleTimeout <= 0 {
		return fmt.Errorf("idle_timeout must be positive, got %d", c.IdleTimeout)
	}
	if c.Username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if c.Watcher.DebounceSecs <= 0 {
		return fmt.Errorf("watcher.debounce_secs must be positive, got %d", c.Watcher.DebounceSecs)
	}
	if c.Watcher.WindowPollSecs <= 0 {
		return fmt.Errorf("watcher.window_poll_secs must be positive, got %d", c.Watcher.WindowPollSecs)
	}
	return nil
}

// Addr returns the host:port the daemon listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// BaseURL returns the daemon's HTTP base URL.
func (c *Config) BaseURL() string {
	return "http://" + c.Addr()
}

// IdleTimeoutDuration returns IdleTimeout as a duration.
func (c *Config) IdleTimeoutDuration() time.Duration {
	return time.Duration(c.IdleTimeout) * time.Second
}

// DebounceWindow returns the watcher debounce window.
func (c *WatcherConfig) DebounceWindow() time.Duration {
	return time.Duration(c.DebounceSecs) * time.Second
}

// WindowPollInterval returns the window poller interval.
func (c *WatcherConfig) WindowPollInterval() time.Duration {
	return time.Duration(c.WindowPollSecs) * time.Second
}
