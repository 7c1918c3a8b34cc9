package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/zoobzio/simforge"
)

// Config holds CLI configuration.
type Config struct {
	API    APIConfig `mapstructure:"api"`
	Log    LogConfig `mapstructure:"log"`
	Output string    `mapstructure:"output"`
}

// APIConfig holds backend connection settings.
type APIConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Output formats.
const (
	outputText = "text"
	outputYAML = "yaml"
	outputJSON = "json"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.url", simforge.DefaultBaseURL)
	v.SetDefault("api.timeout", 2*time.Minute)
	v.SetDefault("api.retries", 0)
	v.SetDefault("api.retry_delay", 500*time.Millisecond)
	v.SetDefault("log.level", "warn")
	v.SetDefault("output", outputText)
}

// loadConfig reads configuration from file and env. Env var overrides use
// prefix SIMFORGE_. An explicit cfgFile must exist; the default location is
// optional.
func loadConfig(v *viper.Viper, cfgFile string) (Config, error) {
	setDefaults(v)

	v.SetConfigType("yaml")
	if cfgFile == "" {
		cfgFile = os.Getenv("SIMFORGE_CONFIG")
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "simforge"))
		}
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SIMFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	switch c.Output {
	case outputText, outputYAML, outputJSON:
	default:
		return fmt.Errorf("invalid output format %q: want %s, %s or %s", c.Output, outputText, outputYAML, outputJSON)
	}
	if c.API.Retries < 0 {
		return errors.New("api.retries must be at least 0")
	}
	return nil
}
