package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"

	EnvPrefix   = "PROXYCTL_"
	EnvHome     = EnvPrefix + "HOME"
	EnvListen   = EnvPrefix + "LISTEN"
	EnvLogLevel = EnvPrefix + "LOG_LEVEL"

	// ConfigPathPlaceholder is replaced by the selected profile path in engine args.
	ConfigPathPlaceholder = "{config}"

	defaultListen          = "127.0.0.1:55555"
	defaultSubsDir         = ".config/tomoon/subs"
	defaultSettingsFile    = ".config/tomoon/tomoon.yaml"
	defaultFetchTimeout    = 10 * time.Second
	defaultUpdateWorkers   = 16
	defaultPersistInterval = 5 * time.Second
	defaultEngineBinary    = "clash"
	defaultStopTimeout     = 5 * time.Second
)

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type UpdateConfig struct {
	Workers int `yaml:"workers"`
}

type PersistConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type EngineConfig struct {
	Binary      string        `yaml:"binary"`
	Args        []string      `yaml:"args"`
	ProcessName string        `yaml:"process_name"`
	WorkDir     string        `yaml:"work_dir"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
}

type NetworkConfig struct {
	ResetCommands [][]string `yaml:"reset_commands"`
}

type Config struct {
	HomeDir      string        `yaml:"home_dir"`
	SubsDir      string        `yaml:"subs_dir"`
	SettingsFile string        `yaml:"settings_file"`
	Listen       string        `yaml:"listen"`
	LogLevel     string        `yaml:"log_level"`
	Log          LogConfig     `yaml:"log"`
	Fetch        FetchConfig   `yaml:"fetch"`
	Update       UpdateConfig  `yaml:"update"`
	Persist      PersistConfig `yaml:"persist"`
	Engine       EngineConfig  `yaml:"engine"`
	Network      NetworkConfig `yaml:"network"`
}

func (c *Config) SetDefaults() {
	if c.HomeDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.HomeDir = home
		}
	}
	if c.SubsDir == "" {
		c.SubsDir = defaultSubsDir
	}
	if c.SettingsFile == "" {
		c.SettingsFile = defaultSettingsFile
	}
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.LogLevel == "" {
		c.LogLevel = LogLevelInfo
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = defaultFetchTimeout
	}
	if c.Update.Workers <= 0 {
		c.Update.Workers = defaultUpdateWorkers
	}
	if c.Persist.Interval <= 0 {
		c.Persist.Interval = defaultPersistInterval
	}
	if c.Engine.Binary == "" {
		c.Engine.Binary = defaultEngineBinary
	}
	if len(c.Engine.Args) == 0 {
		c.Engine.Args = []string{"-f", ConfigPathPlaceholder}
	}
	if c.Engine.ProcessName == "" {
		c.Engine.ProcessName = filepath.Base(c.Engine.Binary)
	}
	if c.Engine.StopTimeout <= 0 {
		c.Engine.StopTimeout = defaultStopTimeout
	}
}

// SettingsPath returns the settings file location. Relative paths are resolved against HomeDir.
func (c *Config) SettingsPath() string {
	return c.resolve(c.SettingsFile)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(c.HomeDir, p)
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
	default:
		return fmt.Errorf("unknown log level: %s", c.LogLevel)
	}

	if c.HomeDir == "" {
		return fmt.Errorf("home_dir is not set and cannot be detected")
	}

	if filepath.IsAbs(c.SubsDir) {
		return fmt.Errorf("subs_dir must be relative to home_dir: %s", c.SubsDir)
	}

	return nil
}

func Load(path string) (*Config, error) {
	cfg := &Config{}

	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	}

	// .env is optional, but a present one must parse
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("cannot load .env: %w", err)
	}
	applyEnv(cfg)

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.HomeDir = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}
