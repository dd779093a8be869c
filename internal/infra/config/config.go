// Package config provides configuration loading from YAML files.
package config

import (
	"net/url"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Engine   EngineConfig            `yaml:"engine"`
	Queue    QueueConfig             `yaml:"queue"`
	Playback PlaybackConfig          `yaml:"playback"`
	Filters  map[string]FilterConfig `yaml:"filters"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr      string      `yaml:"addr" default:":8080"`
	AuthToken string      `yaml:"auth_token"`
	Hooks     HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// EngineConfig represents VOICEVOX engine configuration.
type EngineConfig struct {
	URL               string  `yaml:"url" default:"http://localhost:50021"`
	DefaultSpeaker    int     `yaml:"default_speaker" default:"1" validate:"gte=0"`
	DefaultSpeedScale float64 `yaml:"default_speed_scale" default:"1.0" validate:"gt=0"`
	TimeoutSec        int     `yaml:"timeout_sec" default:"30" validate:"gt=0"`
}

// QueueConfig represents speech queue configuration.
type QueueConfig struct {
	PrefetchSize int    `yaml:"prefetch_size" default:"2" validate:"gte=1,lte=16"`
	TempDir      string `yaml:"temp_dir"`
}

// PlaybackConfig represents playback strategy configuration.
type PlaybackConfig struct {
	Mode     string         `yaml:"mode" default:"auto" validate:"oneof=auto command stream"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// FilterConfig represents a text filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return finalize(&cfg)
}

// Default returns the built-in configuration. The server runs without a
// config file when launched as a stdio MCP process, so everything must
// work from defaults plus environment variables.
func Default() (*Config, error) {
	return finalize(&Config{})
}

// finalize fills defaults, applies environment overrides and validates.
func finalize(cfg *Config) (*Config, error) {
	// Set defaults using creasty/defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("VOICEVOX_URL"); v != "" {
		c.Engine.URL = v
	}
	if v := os.Getenv("VOICEVOX_DEFAULT_SPEAKER"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Engine.DefaultSpeaker = n
		}
	}
	if v := os.Getenv("VOICEVOX_DEFAULT_SPEED_SCALE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Engine.DefaultSpeedScale = f
		}
	}
	if v := os.Getenv("AUTH_TOKEN"); v != "" {
		c.Server.AuthToken = v
	}
}

// IsFilterEnabled checks if a text filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// GetFilterSettings returns the settings for a text filter.
func (c *Config) GetFilterSettings(filterName string) map[string]any {
	if f, ok := c.Filters[filterName]; ok {
		return f.Settings
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	// Validate engine URL shape
	if err := c.validateEngineURL(); err != nil {
		return err
	}

	return nil
}

// validateEngineURL checks that the engine URL is a usable HTTP endpoint.
func (c *Config) validateEngineURL() error {
	u, err := url.Parse(c.Engine.URL)
	if err != nil {
		return errors.Wrap(err, "failed to parse engine url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.Newf("engine url must use http or https: %s", c.Engine.URL)
	}
	if u.Host == "" {
		return errors.Newf("engine url has no host: %s", c.Engine.URL)
	}
	return nil
}
