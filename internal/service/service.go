/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tschaefer/pfqlang/internal/compiler"
	"github.com/tschaefer/pfqlang/internal/config"
	"github.com/tschaefer/pfqlang/internal/loader"
	"github.com/tschaefer/pfqlang/internal/logger"
	"github.com/tschaefer/pfqlang/internal/metrics"
	"github.com/tschaefer/pfqlang/internal/record"
	"github.com/tschaefer/pfqlang/internal/sink"
	"github.com/tschaefer/pfqlang/internal/version"
	"golang.org/x/sync/errgroup"
)

const DefaultWorkers = 4

type Options struct {
	Workers int
	Metrics *metrics.Metrics
}

type Service struct {
	Compiler *compiler.Compiler
	Loader   loader.Loader
	Sink     *sink.Sink
	Logger   *slog.Logger
	Metrics  *metrics.Metrics

	workers int

	mu        sync.Mutex
	installed map[string]installed
}

type installed struct {
	group int
	image []byte
}

func NewService(logger *logger.Logger, compiler *compiler.Compiler, loader loader.Loader, sink *sink.Sink, options Options) (*Service, error) {
	if compiler == nil {
		return nil, errors.New("no compiler")
	}
	if loader == nil {
		return nil, errors.New("no loader")
	}
	if sink == nil {
		return nil, errors.New("no sink")
	}

	slog.SetDefault(logger.Logger)

	workers := options.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &Service{
		Compiler:  compiler,
		Loader:    loader,
		Sink:      sink,
		Logger:    logger.Logger,
		Metrics:   options.Metrics,
		workers:   workers,
		installed: make(map[string]installed),
	}, nil
}

// Run installs pipelines and then re-syncs on every update until ctx is done
// or updates is closed. It returns false if not a single pipeline could be
// installed on startup.
func (s *Service) Run(ctx context.Context, pipelines []config.Pipeline, updates <-chan []config.Pipeline) bool {
	slog.Info("Starting pipeline service.",
		"release", version.Release(), "commit", version.Commit(),
		"loader", loader.Name(s.Loader), "workers", s.workers,
	)

	if err := s.Sync(ctx, pipelines); err != nil {
		slog.Error("Failed to install pipelines.", "error", err)
		if len(pipelines) > 0 && s.Installed() == 0 {
			return false
		}
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Shutting down pipeline service.")
			return true
		case next, ok := <-updates:
			if !ok {
				slog.Info("Configuration updates closed, shutting down pipeline service.")
				return true
			}
			slog.Info("Syncing pipelines.", "count", len(next))
			if err := s.Sync(ctx, next); err != nil {
				slog.Error("Failed to install pipelines.", "error", err)
			}
		}
	}
}

// Sync compiles and loads pipelines concurrently and unloads previously
// installed pipelines that are no longer listed. Every pipeline is attempted;
// the returned error joins the individual failures.
func (s *Service) Sync(ctx context.Context, pipelines []config.Pipeline) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(s.workers)

	wanted := make(map[string]bool, len(pipelines))
	for _, p := range pipelines {
		wanted[p.Name] = true
		g.Go(func() error {
			if err := s.install(ctx, p); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("pipeline %q: %w", p.Name, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, name := range s.stale(wanted) {
		if err := s.uninstall(ctx, name); err != nil {
			errs = append(errs, fmt.Errorf("pipeline %q: %w", name, err))
		}
	}

	return errors.Join(errs...)
}

// Installed returns the number of pipelines currently loaded.
func (s *Service) Installed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.installed)
}

func (s *Service) install(ctx context.Context, p config.Pipeline) error {
	entry := record.Entry{
		Pipeline:   p.Name,
		Group:      p.Group,
		Loader:     loader.Name(s.Loader),
		Expression: p.Expression,
	}

	result, err := s.Compiler.Compile(p.Expression)
	if err != nil {
		entry.Status = record.StatusRejected
		entry.Err = err
		record.Record(entry, s.Sink.Logger)
		return err
	}

	if s.unchanged(p, result.Image) {
		slog.Debug("Pipeline unchanged.", "pipeline", p.Name, "group", p.Group)
		return nil
	}

	err = s.Loader.Load(ctx, p.Name, p.Group, result.Image)
	s.Metrics.ObserveLoad(p.Name, result.Program.Len(), err)
	if err != nil {
		entry.Status = record.StatusRejected
		entry.Err = err
		record.Record(entry, s.Sink.Logger)
		return err
	}

	s.mu.Lock()
	s.installed[p.Name] = installed{group: p.Group, image: result.Image}
	s.mu.Unlock()

	entry.Status = record.StatusLoaded
	entry.Descriptors = result.Program.Len()
	entry.ImageSize = len(result.Image)
	entry.Symbols = result.Program.Symbols()
	entry.Cached = result.Cached
	entry.Duration = result.Duration
	record.Record(entry, s.Sink.Logger)

	return nil
}

func (s *Service) unchanged(p config.Pipeline, image []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.installed[p.Name]
	return ok && prev.group == p.Group && bytes.Equal(prev.image, image)
}

func (s *Service) stale(wanted map[string]bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name := range s.installed {
		if !wanted[name] {
			names = append(names, name)
		}
	}
	return names
}

func (s *Service) uninstall(ctx context.Context, name string) error {
	s.mu.Lock()
	prev := s.installed[name]
	s.mu.Unlock()

	entry := record.Entry{
		Pipeline: name,
		Group:    prev.group,
		Loader:   loader.Name(s.Loader),
		Status:   record.StatusUnloaded,
	}

	if u, ok := s.Loader.(loader.Unloader); ok {
		err := u.Unload(ctx, name)
		s.Metrics.ObserveUnload(name, err)
		if err != nil {
			return err
		}
	} else {
		s.Metrics.Forget(name)
	}

	s.mu.Lock()
	delete(s.installed, name)
	s.mu.Unlock()

	record.Record(entry, s.Sink.Logger)
	return nil
}
