/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/tschaefer/pfqlang/internal/compiler"
	"github.com/tschaefer/pfqlang/internal/config"
	"github.com/tschaefer/pfqlang/internal/loader"
	"github.com/tschaefer/pfqlang/internal/logger"
	"github.com/tschaefer/pfqlang/internal/metrics"
	"github.com/tschaefer/pfqlang/internal/profiler"
	"github.com/tschaefer/pfqlang/internal/registry"
	"github.com/tschaefer/pfqlang/internal/service"
	"github.com/tschaefer/pfqlang/internal/sink"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compile the configured pipelines and keep them loaded",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		cobra.CheckErr(err)
		cobra.CheckErr(validateConfig(cfg))

		l, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			cobra.CheckErr(fmt.Sprintf("Failed to create logger: %v", err))
		}

		reg, err := registry.New(cfg.Registry.Symbols...)
		if err != nil {
			cobra.CheckErr(fmt.Sprintf("Failed to build symbol registry: %v", err))
		}

		promRegistry := prometheus.NewRegistry()
		promRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m := metrics.New(promRegistry)

		c, err := compiler.New(reg, compiler.Options{
			MaxDescriptors: cfg.Compiler.MaxDescriptors,
			CacheSize:      cfg.Compiler.CacheSize,
			Metrics:        m,
		})
		cobra.CheckErr(err)

		ld, err := loader.New(&cfg.Loader)
		if err != nil {
			cobra.CheckErr(fmt.Sprintf("Failed to initialize loader: %v", err))
		}
		if closer, ok := ld.(io.Closer); ok {
			defer func() {
				_ = closer.Close()
			}()
		}

		s, err := sink.NewSink(&cfg.Sink)
		if err != nil {
			cobra.CheckErr(fmt.Sprintf("Failed to initialize sink: %v", err))
		}

		svc, err := service.NewService(l, c, ld, s, service.Options{
			Workers: cfg.Compiler.Workers,
			Metrics: m,
		})
		cobra.CheckErr(err)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Profiler.Address != "" {
			p := profiler.NewProfiler(cfg.Profiler.Address, map[string]string{"loader": loader.Name(ld)})
			if err := p.Start(); err != nil {
				slog.Warn("Failed to start profiler.", "error", err)
			} else {
				defer func() {
					_ = p.Stop()
				}()
			}
		}

		if cfg.Metrics.Address != "" {
			go func() {
				if err := metrics.Serve(ctx, cfg.Metrics.Address, metrics.Handler(promRegistry, promRegistry)); err != nil {
					slog.Error("Metrics endpoint failed.", "error", err)
				}
			}()
		}

		updates := make(chan []config.Pipeline, 1)
		config.WatchConfig(func(next *config.Config) {
			select {
			case <-updates:
			default:
			}
			updates <- next.Pipelines
		})

		if tranquil := svc.Run(ctx, cfg.Pipelines, updates); !tranquil {
			os.Exit(1)
		}
	},
}

// bindFlags makes every flag an override of the config key of the same name.
func bindFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		cobra.CheckErr(viper.BindPFlag(f.Name, f))
	})
}

func init() {
	runCmd.CompletionOptions.SetDefaultShellCompDirective(cobra.ShellCompDirectiveNoFileComp)

	flags := runCmd.Flags()

	flags.String("log.level", "info", fmt.Sprintf("Log level (%s)", strings.Join(logger.Levels, ", ")))
	_ = runCmd.RegisterFlagCompletionFunc("log.level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return logger.Levels, cobra.ShellCompDirectiveNoFileComp
	})
	flags.String("log.format", "json", fmt.Sprintf("Log format (%s)", strings.Join(logger.Formats, ", ")))
	_ = runCmd.RegisterFlagCompletionFunc("log.format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return logger.Formats, cobra.ShellCompDirectiveNoFileComp
	})

	flags.Int("compiler.workers", service.DefaultWorkers, "Number of pipelines compiled concurrently")
	flags.Int("compiler.cache_size", 128, "Number of compiled expressions kept, 0 disables the cache")

	flags.String("loader.directory", "", "Directory to write pipeline images to")
	_ = runCmd.RegisterFlagCompletionFunc("loader.directory", cobra.FixedCompletions(nil, cobra.ShellCompDirectiveFilterDirs))
	flags.String("loader.redis.address", "", "Redis address to publish pipeline images to")

	flags.String("metrics.address", "", "Address to expose Prometheus metrics on")
	flags.String("profiler.address", "", "Pyroscope server address")

	flags.String("sink.level", "info", "Minimum level of audit records, warn records rejections only")
	_ = runCmd.RegisterFlagCompletionFunc("sink.level", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return logger.Levels, cobra.ShellCompDirectiveNoFileComp
	})
	flags.Bool("sink.journal.enable", false, "Enable journald sink")
	flags.Bool("sink.syslog.enable", false, "Enable syslog sink")
	flags.String("sink.syslog.address", "udp://localhost:514", "Syslog address")

	flags.Bool("sink.loki.enable", false, "Enable Loki sink")
	flags.String("sink.loki.address", "http://localhost:3100", "Loki address")
	flags.StringSlice("sink.loki.labels", nil, "Additional labels for Loki sink in key=value format")
	flags.String("sink.loki.tenant_id", "", "Loki tenant for multi-tenant setups")

	flags.Bool("sink.stream.enable", false, "Enable stream sink")
	flags.String("sink.stream.writer", "stdout", fmt.Sprintf("Stream writer (%s)", strings.Join(sink.StreamWriters, ", ")))
	_ = runCmd.RegisterFlagCompletionFunc("sink.stream.writer", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return sink.StreamWriters, cobra.ShellCompDirectiveNoFileComp
	})
	flags.String("sink.stream.format", "json", fmt.Sprintf("Stream format (%s)", strings.Join(sink.StreamFormats, ", ")))
	_ = runCmd.RegisterFlagCompletionFunc("sink.stream.format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return sink.StreamFormats, cobra.ShellCompDirectiveNoFileComp
	})

	bindFlags(flags)
}
