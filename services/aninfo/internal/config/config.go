// Package config loads the aninfo client configuration from
// $XDG_CONFIG_HOME/aninfo/config.yaml, the working directory and ANINFO_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/example/aninfo/internal/appstate"
	"github.com/example/aninfo/internal/fetch"
	"github.com/example/aninfo/internal/jikan"
)

const AppName = "aninfo"

type Config struct {
	JikanURL   string        `mapstructure:"jikan_url"`
	BackendURL string        `mapstructure:"backend_url"`
	JikanRPS   float64       `mapstructure:"jikan_rps"`
	Theme      string        `mapstructure:"theme"`
	Language   string        `mapstructure:"language"`
	NSFW       bool          `mapstructure:"nsfw"`
	Retry      RetryConfig   `mapstructure:"retry"`
	Logging    LoggingConfig `mapstructure:"logging"`
	Session    SessionConfig `mapstructure:"session"`
}

type RetryConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Spacing  time.Duration `mapstructure:"spacing"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type SessionConfig struct {
	// Path of the bbolt file holding the login cookie and state snapshot.
	Path string `mapstructure:"path"`
}

// Dir is the default configuration directory.
func Dir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DataDir is the default directory for persisted session data.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

func DefaultConfig() *Config {
	return &Config{
		JikanURL:   jikan.DefaultBaseURL,
		BackendURL: "http://localhost:8080",
		JikanRPS:   1,
		Theme:      appstate.Dark.String(),
		Language:   appstate.EN.String(),
		Retry: RetryConfig{
			Attempts: fetch.DefaultPolicy.Attempts,
			Spacing:  fetch.DefaultPolicy.Spacing,
		},
		Logging: LoggingConfig{Level: "warn"},
		Session: SessionConfig{Path: filepath.Join(DataDir(), "session.db")},
	}
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"jikan_url",
		"backend_url",
		"jikan_rps",
		"theme",
		"language",
		"nsfw",
		"retry.attempts",
		"retry.spacing",
		"logging.level",
		"session.path",
	}
}

func newViper(dir string) *viper.Viper {
	def := DefaultConfig()
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("ANINFO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("jikan_url", def.JikanURL)
	v.SetDefault("backend_url", def.BackendURL)
	v.SetDefault("jikan_rps", def.JikanRPS)
	v.SetDefault("theme", def.Theme)
	v.SetDefault("language", def.Language)
	v.SetDefault("nsfw", def.NSFW)
	v.SetDefault("retry.attempts", def.Retry.Attempts)
	v.SetDefault("retry.spacing", def.Retry.Spacing)
	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("session.path", def.Session.Path)
	return v
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// Load reads configuration from dir (empty means Dir()), then the working
// directory, then the environment.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = Dir()
	}
	v := newViper(dir)
	if err := readConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if _, err := appstate.ParseTheme(c.Theme); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := appstate.ParseLanguage(c.Language); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if strings.TrimSpace(c.JikanURL) == "" {
		return errors.New("config: jikan_url is required")
	}
	if strings.TrimSpace(c.BackendURL) == "" {
		return errors.New("config: backend_url is required")
	}
	if c.Retry.Attempts < 1 {
		return errors.New("config: retry.attempts must be at least 1")
	}
	if c.Retry.Spacing < 0 {
		return errors.New("config: retry.spacing must not be negative")
	}
	return nil
}

// Prefs converts the stored preferences for the application state.
func (c *Config) Prefs() appstate.Preferences {
	t, err := appstate.ParseTheme(c.Theme)
	if err != nil {
		t = appstate.Dark
	}
	l, err := appstate.ParseLanguage(c.Language)
	if err != nil {
		l = appstate.EN
	}
	return appstate.Preferences{Theme: t, Language: l, NSFW: c.NSFW}
}

func (c *Config) Policy() fetch.Policy {
	return fetch.Policy{Attempts: c.Retry.Attempts, Spacing: c.Retry.Spacing}
}

// Values returns every key with its effective value, for display.
func Values(dir string) (map[string]any, error) {
	if dir == "" {
		dir = Dir()
	}
	v := newViper(dir)
	if err := readConfig(v); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(Keys()))
	for _, k := range Keys() {
		out[k] = v.Get(k)
	}
	return out, nil
}

// Set validates value for key and writes it to dir/config.yaml.
func Set(dir, key, value string) error {
	if dir == "" {
		dir = Dir()
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if !slices.Contains(Keys(), key) {
		return fmt.Errorf("config: unknown key %q", key)
	}
	typed, err := parseValue(key, value)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	v := newViper(dir)
	if err := readConfig(v); err != nil {
		return err
	}
	v.Set(key, typed)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	return v.WriteConfigAs(filepath.Join(dir, "config.yaml"))
}

func parseValue(key, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch key {
	case "nsfw":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %s must be true or false", key)
		}
		return b, nil
	case "jikan_rps":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("config: %s must be a non-negative number", key)
		}
		return f, nil
	case "retry.attempts":
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %s must be an integer", key)
		}
		return n, nil
	case "retry.spacing":
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %s must be a duration such as 100ms", key)
		}
		return d.String(), nil
	case "theme":
		t, err := appstate.ParseTheme(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return t.String(), nil
	case "language":
		l, err := appstate.ParseLanguage(raw)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		return l.String(), nil
	default:
		return raw, nil
	}
}
