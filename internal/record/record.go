/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package record

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Status string

const (
	StatusLoaded   Status = "LOADED"
	StatusRejected Status = "REJECTED"
	StatusUnloaded Status = "UNLOADED"
)

// Entry is the audit record of one pipeline installation attempt.
type Entry struct {
	Pipeline    string
	Group       int
	Status      Status
	Loader      string
	Expression  string
	Descriptors int
	ImageSize   int
	Symbols     []string
	Cached      bool
	Duration    time.Duration
	Err         error
}

func Record(entry Entry, logger *slog.Logger) {
	slog.Debug("Pipeline Entry", "data", entry)

	attrs := []any{
		slog.String("status", string(entry.Status)),
		slog.String("pipeline", entry.Pipeline),
		slog.Int("group", entry.Group),
	}
	if entry.Loader != "" {
		attrs = append(attrs, slog.String("loader", entry.Loader))
	}

	switch entry.Status {
	case StatusUnloaded:
	case StatusRejected:
		attrs = append(attrs, slog.String("expression", entry.Expression))
	default:
		attrs = append(attrs,
			slog.String("expression", entry.Expression),
			slog.Int("descriptors", entry.Descriptors),
			slog.Int("image_size", entry.ImageSize),
			slog.String("symbols", strings.Join(entry.Symbols, ",")),
			slog.Bool("cached", entry.Cached),
			slog.Duration("duration", entry.Duration),
		)
	}

	if entry.Err != nil {
		attrs = append(attrs, slog.String("error", entry.Err.Error()))
		logger.Warn(message(entry), attrs...)
		return
	}

	logger.Info(message(entry), attrs...)
}

func message(entry Entry) string {
	switch entry.Status {
	case StatusLoaded:
		return fmt.Sprintf("%s pipeline %s on group %d with %d descriptors",
			entry.Status, entry.Pipeline, entry.Group, entry.Descriptors)
	default:
		return fmt.Sprintf("%s pipeline %s on group %d",
			entry.Status, entry.Pipeline, entry.Group)
	}
}
