package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/michaelbrown/plotbox/internal/policy"
)

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type StorageConfig struct {
	DBPath  string `mapstructure:"db_path"`
	History bool   `mapstructure:"history"`
}

type ExecConfig struct {
	Timeout   string `mapstructure:"timeout"`
	MaxOutput int    `mapstructure:"max_output"`
	Profile   string `mapstructure:"profile"`
}

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Exec    ExecConfig    `mapstructure:"exec"`
}

// Load reads plotbox.yaml from the working directory or ~/.plotbox,
// falling back to defaults when no config file exists.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("plotbox")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.plotbox")

	v.SetDefault("server.port", 8080)
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".plotbox", "plotbox.db"))
	v.SetDefault("storage.history", true)
	v.SetDefault("exec.timeout", "30s")
	v.SetDefault("exec.max_output", 64*1024)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return &cfg, nil
}

// Policy builds the execution policy from this config: the capability
// profile (if any) overlaid with the exec timeout and output cap.
func (c *Config) Policy() (policy.Policy, error) {
	pol := policy.Default()

	if c.Exec.Profile != "" {
		var err error
		pol, err = policy.LoadProfile(c.Exec.Profile)
		if err != nil {
			return policy.Policy{}, fmt.Errorf("loading profile: %w", err)
		}
	}

	if c.Exec.Timeout != "" {
		d, err := time.ParseDuration(c.Exec.Timeout)
		if err != nil {
			return policy.Policy{}, fmt.Errorf("parsing exec.timeout: %w", err)
		}
		pol.MaxTimeout = d
	}
	if c.Exec.MaxOutput > 0 {
		pol.MaxOutput = c.Exec.MaxOutput
	}

	return pol, nil
}
