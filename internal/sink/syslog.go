/*
Copyright (c) 2025 Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package sink

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	slogsyslog "github.com/samber/slog-syslog/v2"
)

const DefaultSyslogTimeout = 5 * time.Second

// Syslog writes records to a syslog daemon addressed as
// <network>://<host:port> or unix://<path>.
type Syslog struct {
	Enable  bool          `mapstructure:"enable"`
	Address string        `mapstructure:"address"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func (s *Syslog) TargetSyslog(options *slog.HandlerOptions) (slog.Handler, error) {
	slog.Debug("Initializing syslog sink.", "address", s.Address)

	uri, err := url.Parse(s.Address)
	if err != nil {
		return nil, err
	}

	network := uri.Scheme
	address := uri.Host
	if strings.HasPrefix(network, "unix") {
		address = uri.Path
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSyslogTimeout
	}

	writer, err := net.DialTimeout(network, address, timeout)
	if err != nil {
		return nil, err
	}

	slogsyslog.ContextKey = "pipeline"
	o := &slogsyslog.Option{
		Writer: writer,
		Level:  options.Level,
	}
	return o.NewSyslogHandler(), nil
}
