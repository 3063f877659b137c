/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
)

type Logger struct {
	Logger *slog.Logger
	Level  slog.Level
	Format string
}

var (
	Levels  = []string{"debug", "info", "warn", "error"}
	Formats = []string{"json", "text"}
	level   slog.Level
)

// NewLogger creates the process logger writing to stderr. Format is json or
// text; empty means json.
func NewLogger(levelStr, format string) (*Logger, error) {
	return newLogger(os.Stderr, levelStr, format)
}

func newLogger(w io.Writer, levelStr, format string) (*Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(levelStr)); err != nil {
		return nil, fmt.Errorf("unknown log level: %q", levelStr)
	}

	o := &slog.HandlerOptions{Level: l}
	if l == slog.LevelDebug {
		o.AddSource = true
	}

	var handler slog.Handler
	switch format {
	case "", "json":
		format = "json"
		handler = slog.NewJSONHandler(w, o)
	case "text":
		handler = slog.NewTextHandler(w, o)
	default:
		return nil, fmt.Errorf("unknown log format: %q", format)
	}

	level = l
	return &Logger{
		Logger: slog.New(handler),
		Level:  l,
		Format: format,
	}, nil
}

// Level returns the level of the most recently created logger.
func Level() slog.Level {
	return level
}
