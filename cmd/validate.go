/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package cmd

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"

	"github.com/tschaefer/pfqlang/internal/config"
	"github.com/tschaefer/pfqlang/internal/logger"
	"github.com/tschaefer/pfqlang/internal/sink"
)

var (
	validLogLevels     = logger.Levels
	validLogFormats    = logger.Formats
	validStreamWriters = sink.StreamWriters
	validStreamFormats = sink.StreamFormats
)

// validateStringFlag checks value against the allowed values, or against the
// address syntax of flags naming an endpoint.
func validateStringFlag(name, value string, valid []string) error {
	switch name {
	case "sink.syslog.address":
		return validateSyslogAddress(value)
	case "sink.loki.address":
		return validateLokiAddress(value)
	case "loader.redis.address", "metrics.address":
		if _, _, err := net.SplitHostPort(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		return nil
	}

	if len(valid) > 0 && !slices.Contains(valid, value) {
		return fmt.Errorf("invalid %s %q, valid values are %s", name, value, strings.Join(valid, ", "))
	}
	return nil
}

func validateSyslogAddress(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid syslog address %q: %w", value, err)
	}

	switch u.Scheme {
	case "udp", "tcp":
		if u.Hostname() == "" || u.Port() == "" {
			return fmt.Errorf("invalid syslog address %q: host and port required", value)
		}
	case "unix", "unixgram", "unixpacket":
		if u.Path == "" {
			return fmt.Errorf("invalid syslog address %q: socket path required", value)
		}
	default:
		return fmt.Errorf("invalid syslog address %q: unsupported scheme %q", value, u.Scheme)
	}
	return nil
}

func validateLokiAddress(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid loki address %q: %w", value, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid loki address %q: unsupported scheme %q", value, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid loki address %q: host required", value)
	}
	return nil
}

// validateConfig checks the settings run relies on before anything starts.
func validateConfig(cfg *config.Config) error {
	checks := []struct {
		name    string
		value   string
		valid   []string
		enabled bool
	}{
		{"log.level", cfg.Log.Level, validLogLevels, true},
		{"log.format", cfg.Log.Format, validLogFormats, true},
		{"sink.level", cfg.Sink.Level, validLogLevels, cfg.Sink.Level != ""},
		{"sink.syslog.address", cfg.Sink.Syslog.Address, nil, cfg.Sink.Syslog.Enable},
		{"sink.loki.address", cfg.Sink.Loki.Address, nil, cfg.Sink.Loki.Enable},
		{"sink.stream.writer", cfg.Sink.Stream.Writer, validStreamWriters, cfg.Sink.Stream.Enable},
		{"sink.stream.format", cfg.Sink.Stream.Format, validStreamFormats, cfg.Sink.Stream.Enable},
		{"loader.redis.address", cfg.Loader.Redis.Address, nil, cfg.Loader.Redis.Address != ""},
		{"metrics.address", cfg.Metrics.Address, nil, cfg.Metrics.Address != ""},
	}

	for _, c := range checks {
		if !c.enabled {
			continue
		}
		if err := validateStringFlag(c.name, c.value, c.valid); err != nil {
			return err
		}
	}
	return nil
}
