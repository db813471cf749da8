package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/JaneliaSciComp/aitch/internal/cmn/fileutil"
)

// DefaultLockRetryInterval is used when no interval is configured.
const DefaultLockRetryInterval = 50 * time.Millisecond

// ConfigLoader reads and merges configuration from various sources.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	warnings   []string
}

// ConfigLoaderOption defines a functional option for configuring a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile returns a ConfigLoaderOption that sets the configuration file path.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// NewConfigLoader creates a ConfigLoader with the given viper instance and options.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	loader := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(loader)
	}
	return loader
}

// Load reads the configuration with the global viper instance, which also
// carries the bound command line flags.
func Load(options ...ConfigLoaderOption) (*Config, error) {
	return NewConfigLoader(viper.GetViper(), options...).Load()
}

// Load reads configuration files, applies defaults and environment overrides,
// and returns a validated Config instance.
func (l *ConfigLoader) Load() (*Config, error) {
	l.configureViper(DefaultConfigDir(), l.configFile)
	l.bindEnvironmentVariables()
	l.setViperDefaultValues()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// an explicitly named file must exist
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	if err := l.v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	if used := l.v.ConfigFileUsed(); used != "" && fileutil.IsFile(used) {
		cfg.ConfigFileUsed = used
	}
	cfg.Warnings = l.warnings
	return cfg, nil
}

func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	root, err := fileutil.ResolvePath(def.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root path %q: %w", def.Root, err)
	}

	cfg := &Config{
		Root:              root,
		Debug:             def.Debug,
		Quiet:             def.Quiet,
		LogFormat:         strings.ToLower(def.LogFormat),
		LockRetryInterval: l.parseDuration("lockRetryInterval", def.LockRetryInterval),
	}
	if cfg.LockRetryInterval <= 0 {
		cfg.LockRetryInterval = DefaultLockRetryInterval
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string, returning zero and adding a warning if invalid.
func (l *ConfigLoader) parseDuration(fieldName, value string) time.Duration {
	if value == "" {
		return 0
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid %s value: %s", fieldName, value))
		return 0
	}
	return duration
}

// DefaultConfigDir is where config.yaml is looked up when no file is named.
func DefaultConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppSlug)
}

// DefaultRoot is the instance root used when none is configured.
func DefaultRoot() string {
	return filepath.Join(os.TempDir(), AppSlug)
}

func (l *ConfigLoader) setViperDefaultValues() {
	l.v.SetDefault("root", DefaultRoot())
	l.v.SetDefault("debug", false)
	l.v.SetDefault("quiet", false)
	l.v.SetDefault("logFormat", "text")
	l.v.SetDefault("lockRetryInterval", DefaultLockRetryInterval.String())
}

var envBindings = []struct {
	key    string
	env    string
	isPath bool
}{
	{key: "root", env: "ROOT", isPath: true},
	{key: "debug", env: "DEBUG"},
	{key: "quiet", env: "QUIET"},
	{key: "logFormat", env: "LOG_FORMAT"},
	{key: "lockRetryInterval", env: "LOCK_RETRY_INTERVAL"},
}

func (l *ConfigLoader) bindEnvironmentVariables() {
	prefix := strings.ToUpper(AppSlug) + "_"

	for _, b := range envBindings {
		fullEnv := prefix + b.env

		if b.isPath {
			if val := os.Getenv(fullEnv); val != "" {
				if abs, err := filepath.Abs(val); err == nil && abs != val {
					_ = os.Setenv(fullEnv, abs)
				}
			}
		}

		_ = l.v.BindEnv(b.key, fullEnv)
	}
}

func (l *ConfigLoader) configureViper(configDir, configFile string) {
	if configFile == "" {
		l.v.AddConfigPath(configDir)
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(strings.ToUpper(AppSlug))
	l.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	l.v.AutomaticEnv()
}
