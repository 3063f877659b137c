/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package profiler

import (
	"log/slog"
	"maps"
	"runtime"

	"github.com/grafana/pyroscope-go"
	"github.com/tschaefer/pfqlang/internal/logger"
	"github.com/tschaefer/pfqlang/internal/version"
)

// ApplicationName is the name profiles are pushed under. Pyroscope accepts
// letters, digits, '.', '_' and '-' only.
const ApplicationName = "pfqlang"

// Profiler is a wrapper around the pyroscope profiler.
type Profiler struct {
	Instance *pyroscope.Profiler
	Config   pyroscope.Config
}

// NewProfiler creates a new Profiler pushing to the pyroscope server at
// address. The release is always tagged; tags adds to it.
func NewProfiler(address string, tags map[string]string) *Profiler {
	var pylogger pyroscope.Logger
	if logger.Level() == slog.LevelDebug {
		pylogger = pyroscope.StandardLogger
	}

	profileTags := map[string]string{"release": version.Release()}
	maps.Copy(profileTags, tags)

	cfg := pyroscope.Config{
		ApplicationName: ApplicationName,
		ServerAddress:   address,
		Logger:          pylogger,
		Tags:            profileTags,
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
			pyroscope.ProfileMutexCount,
			pyroscope.ProfileMutexDuration,
		},
	}
	return &Profiler{
		Config: cfg,
	}
}

// Start starts the profiler.
func (p *Profiler) Start() error {
	runtime.SetMutexProfileFraction(5)

	profiler, err := pyroscope.Start(p.Config)
	if err != nil {
		p.Instance = nil
		return err
	}
	p.Instance = profiler

	slog.Info("Started profiler.", "address", p.Config.ServerAddress)

	return nil
}

// Stop stops the profiler.
func (p *Profiler) Stop() error {
	if p.Instance == nil {
		return nil
	}

	return p.Instance.Stop()
}
