/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/tschaefer/pfqlang/internal/loader"
	"github.com/tschaefer/pfqlang/internal/registry"
	"github.com/tschaefer/pfqlang/internal/sink"
	"github.com/tschaefer/pfqlang/internal/wire"
)

type Config struct {
	Log       Log           `mapstructure:"log"`
	Compiler  Compiler      `mapstructure:"compiler"`
	Registry  Registry      `mapstructure:"registry"`
	Loader    loader.Config `mapstructure:"loader"`
	Pipelines []Pipeline    `mapstructure:"pipelines"`
	Sink      sink.Config   `mapstructure:"sink"`
	Profiler  Profiler      `mapstructure:"profiler"`
	Metrics   Metrics       `mapstructure:"metrics"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Compiler struct {
	MaxDescriptors int `mapstructure:"max_descriptors"`
	Workers        int `mapstructure:"workers"`
	CacheSize      int `mapstructure:"cache_size"`
}

// Registry lists primitives known to the executor beyond the builtin table.
type Registry struct {
	Symbols []registry.Entry `mapstructure:"symbols"`
}

// Pipeline is an expression to be installed on a capture group.
type Pipeline struct {
	Name       string `mapstructure:"name"`
	Group      int    `mapstructure:"group"`
	Expression string `mapstructure:"expression"`
}

type Profiler struct {
	Address string `mapstructure:"address"`
}

type Metrics struct {
	Address string `mapstructure:"address"`
}

// InitConfig initializes the configuration using Viper.
// It reads from the specified config file or defaults to
// /etc/pfqlang/pfqlang.{yaml,json,toml}.
// Environment variables with the prefix PFQLANG_ can override config values.
func InitConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pfqlang")
		viper.AddConfigPath("/etc/pfqlang/")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PFQLANG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if cfgFile != "" {
				return fmt.Errorf("config file not found: %w", err)
			}
		} else {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("compiler.max_descriptors", wire.DefaultMaxDescriptors)
	viper.SetDefault("compiler.workers", 4)
	viper.SetDefault("compiler.cache_size", 128)
	viper.SetDefault("sink.level", "info")
	viper.SetDefault("sink.stream.writer", "stdout")
	viper.SetDefault("sink.stream.format", "json")
	viper.SetDefault("sink.syslog.address", "udp://localhost:514")
	viper.SetDefault("sink.syslog.timeout", sink.DefaultSyslogTimeout)
	viper.SetDefault("sink.loki.address", "http://localhost:3100")
}

// Load decodes the current configuration and validates the pipelines.
func Load() (*Config, error) {
	var c Config
	if err := viper.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Pipelines))

	for i, p := range c.Pipelines {
		if err := loader.ValidateName(p.Name); err != nil {
			errs = append(errs, fmt.Errorf("pipeline %d: %w", i, err))
			continue
		}
		if seen[p.Name] {
			errs = append(errs, fmt.Errorf("pipeline %q: defined more than once", p.Name))
		}
		seen[p.Name] = true

		if strings.TrimSpace(p.Expression) == "" {
			errs = append(errs, fmt.Errorf("pipeline %q: empty expression", p.Name))
		}
		if p.Group < 0 {
			errs = append(errs, fmt.Errorf("pipeline %q: negative group %d", p.Name, p.Group))
		}
	}

	if c.Compiler.MaxDescriptors < 0 {
		errs = append(errs, errors.New("compiler.max_descriptors must not be negative"))
	}

	return errors.Join(errs...)
}

// WatchConfig calls fn with the reloaded configuration whenever the config
// file changes. Invalid revisions are logged and skipped.
func WatchConfig(fn func(*Config)) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		slog.Info("Configuration changed.", "file", e.Name, "op", e.Op.String())

		c, err := Load()
		if err != nil {
			slog.Error("Ignoring invalid configuration.", "file", e.Name, "error", err)
			return
		}
		fn(c)
	})
	viper.WatchConfig()
}
