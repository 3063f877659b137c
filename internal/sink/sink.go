/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package sink

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

const (
	ExitOnWarningEnv string = "PFQLANG_SINK_EXIT_ON_WARNING"
)

// Sink receives one audit record per installed, rejected or removed
// pipeline.
type Sink struct {
	Logger  *slog.Logger
	Targets []string
}

type Config struct {
	// Level is the minimum record level; "warn" keeps rejections only.
	Level   string  `mapstructure:"level"`
	Journal Journal `mapstructure:"journal"`
	Syslog  Syslog  `mapstructure:"syslog"`
	Loki    Loki    `mapstructure:"loki"`
	Stream  Stream  `mapstructure:"stream"`
}

type SinkTarget func(*slog.HandlerOptions) (slog.Handler, error)

func NewSink(config *Config) (*Sink, error) {
	level := slog.LevelInfo
	if config.Level != "" {
		if err := level.UnmarshalText([]byte(config.Level)); err != nil {
			return nil, fmt.Errorf("unknown sink level: %q", config.Level)
		}
	}
	options := &slog.HandlerOptions{
		Level: level,
	}

	env := os.Getenv(ExitOnWarningEnv)
	exitOnWarning := env == "1" || env == "true"

	var (
		handlers []slog.Handler
		names    []string
	)

	targets := []struct {
		name    string
		enabled bool
		init    SinkTarget
	}{
		{"journal", config.Journal.Enable, config.Journal.TargetJournal},
		{"syslog", config.Syslog.Enable, config.Syslog.TargetSyslog},
		{"loki", config.Loki.Enable, config.Loki.TargetLoki},
		{"stream", config.Stream.Enable, config.Stream.TargetStream},
	}

	for _, t := range targets {
		if !t.enabled {
			continue
		}
		handler, err := t.init(options)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: Failed to initialize sink %q: %v\n", t.name, err)
			if exitOnWarning {
				os.Exit(1)
			}
			continue
		}
		handlers = append(handlers, handler)
		names = append(names, t.name)
	}

	if len(handlers) == 0 {
		return nil, errors.New("no target sink available")
	}

	slog.Debug("Initialized sinks.", "targets", names, "level", level.String())

	return &Sink{
		Logger:  slog.New(slogmulti.Fanout(handlers...)),
		Targets: names,
	}, nil
}
