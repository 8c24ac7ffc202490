package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/mywallpaper/desktop/internal/logging"
)

var log = logging.L("config")

const (
	appDir     = "MyWallpaper"
	configName = "desktop"
	envPrefix  = "MYWALLPAPER"
)

type Config struct {
	HideDesktopIcons    bool          `mapstructure:"hide_desktop_icons" yaml:"hide_desktop_icons"`
	ConsumeDesktopInput bool          `mapstructure:"consume_desktop_input" yaml:"consume_desktop_input"`
	WatchdogInterval    time.Duration `mapstructure:"watchdog_interval" yaml:"watchdog_interval"`
	SupervisorInterval  time.Duration `mapstructure:"supervisor_interval" yaml:"supervisor_interval"`
	ResolveAttempts     int           `mapstructure:"resolve_attempts" yaml:"resolve_attempts"`
	ResolveInitialDelay time.Duration `mapstructure:"resolve_initial_delay" yaml:"resolve_initial_delay"`
	ResolveMaxDelay     time.Duration `mapstructure:"resolve_max_delay" yaml:"resolve_max_delay"`
	ForwardQueueSize    int           `mapstructure:"forward_queue_size" yaml:"forward_queue_size"`
	SurfaceTitle        string        `mapstructure:"surface_title" yaml:"surface_title"`
	SurfaceClass        string        `mapstructure:"surface_class" yaml:"surface_class"`
	LogLevel            string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat           string        `mapstructure:"log_format" yaml:"log_format"`
	LogFile             string        `mapstructure:"log_file" yaml:"log_file"`
	LogMaxSizeMB        int           `mapstructure:"log_max_size_mb" yaml:"log_max_size_mb"`
	LogMaxBackups       int           `mapstructure:"log_max_backups" yaml:"log_max_backups"`
}

func Default() *Config {
	return &Config{
		HideDesktopIcons:    false,
		ConsumeDesktopInput: true,
		WatchdogInterval:    2 * time.Second,
		SupervisorInterval:  5 * time.Second,
		ResolveAttempts:     5,
		ResolveInitialDelay: 200 * time.Millisecond,
		ResolveMaxDelay:     5 * time.Second,
		ForwardQueueSize:    256,
		SurfaceTitle:        "MyWallpaper",
		LogLevel:            "info",
		LogFormat:           "text",
		LogMaxSizeMB:        10,
		LogMaxBackups:       3,
	}
}

// defaults registers every key with viper so environment overrides work for
// keys that are absent from the file.
func defaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("hide_desktop_icons", d.HideDesktopIcons)
	v.SetDefault("consume_desktop_input", d.ConsumeDesktopInput)
	v.SetDefault("watchdog_interval", d.WatchdogInterval)
	v.SetDefault("supervisor_interval", d.SupervisorInterval)
	v.SetDefault("resolve_attempts", d.ResolveAttempts)
	v.SetDefault("resolve_initial_delay", d.ResolveInitialDelay)
	v.SetDefault("resolve_max_delay", d.ResolveMaxDelay)
	v.SetDefault("forward_queue_size", d.ForwardQueueSize)
	v.SetDefault("surface_title", d.SurfaceTitle)
	v.SetDefault("surface_class", d.SurfaceClass)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("log_file", d.LogFile)
	v.SetDefault("log_max_size_mb", d.LogMaxSizeMB)
	v.SetDefault("log_max_backups", d.LogMaxBackups)
}

// Store holds the loaded configuration and reloads it when the file changes.
type Store struct {
	v *viper.Viper

	mu  sync.RWMutex
	cur *Config
}

// Load reads cfgFile, or desktop.yaml from the config directory and the
// working directory when cfgFile is empty. A missing file is not an error.
func Load(cfgFile string) (*Store, error) {
	v := viper.New()
	defaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	return &Store{v: v, cur: cfg}, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Config returns a copy of the current configuration.
func (s *Store) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cur
}

// File returns the path of the config file in use, or "".
func (s *Store) File() string {
	return s.v.ConfigFileUsed()
}

// Watch reloads the file on change and calls fn with the previous and the
// new, validated configuration. Reloads that fail to parse or validate are
// logged and ignored.
func (s *Store) Watch(fn func(prev, next Config)) {
	if s.v.ConfigFileUsed() == "" {
		log.Debug("no config file, live reload disabled")
		return
	}
	s.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(s.v)
		if err != nil {
			log.Warn("config reload failed", "file", e.Name, "error", err)
			return
		}
		if res := next.ValidateTiered(); res.HasFatals() {
			log.Warn("config reload rejected", "file", e.Name, "errors", len(res.Fatals))
			return
		}

		s.mu.Lock()
		prev := *s.cur
		s.cur = next
		s.mu.Unlock()

		log.Info("config reloaded", "file", e.Name)
		fn(prev, *next)
	})
	s.v.WatchConfig()
}

// ConfigDir is where desktop.yaml lives: %APPDATA%\MyWallpaper on Windows.
func ConfigDir() string {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("APPDATA"); dir != "" {
			return filepath.Join(dir, appDir)
		}
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "mywallpaper")
	}
	return "."
}

// DataDir holds runtime state such as the icon recovery file:
// %LOCALAPPDATA%\MyWallpaper on Windows.
func DataDir() string {
	if runtime.GOOS == "windows" {
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appDir)
		}
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "mywallpaper")
	}
	return "."
}
