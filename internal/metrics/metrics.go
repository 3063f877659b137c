/*
Copyright (c) Tobias Schäfer. All rights reserved.
Licensed under the MIT License, see LICENSE file in the project root for details.
*/

// Package metrics exports compiler and loader counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOk  = "ok"
	ResultErr = "error"

	handlerTimeout = 10 * time.Second
)

type Metrics struct {
	Compilations    *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CompileDuration prometheus.Histogram
	Loads           *prometheus.CounterVec
	Unloads         *prometheus.CounterVec
	Descriptors     *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Compilations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pfqlang_compilations_total",
			Help: "Total number of pipeline compilations.",
		}, []string{"result"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "pfqlang_compile_cache_hits_total",
			Help: "Total number of compilations served from the cache.",
		}),
		CompileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pfqlang_compile_duration_seconds",
			Help:    "Time spent parsing, lowering, checking and encoding a pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		Loads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pfqlang_loads_total",
			Help: "Total number of pipeline images handed to the loader.",
		}, []string{"result"}),
		Unloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pfqlang_unloads_total",
			Help: "Total number of pipelines removed from the loader.",
		}, []string{"result"}),
		Descriptors: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pfqlang_pipeline_descriptors",
			Help: "Number of descriptors of each installed pipeline.",
		}, []string{"pipeline"}),
	}
}

func result(err error) string {
	if err != nil {
		return ResultErr
	}
	return ResultOk
}

// ObserveCompile is safe to call on a nil receiver.
func (m *Metrics) ObserveCompile(d time.Duration, cached bool, err error) {
	if m == nil {
		return
	}
	m.Compilations.WithLabelValues(result(err)).Inc()
	if cached {
		m.CacheHits.Inc()
		return
	}
	m.CompileDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveLoad(pipeline string, descriptors int, err error) {
	if m == nil {
		return
	}
	m.Loads.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.Descriptors.WithLabelValues(pipeline).Set(float64(descriptors))
	}
}

func (m *Metrics) ObserveUnload(pipeline string, err error) {
	if m == nil {
		return
	}
	m.Unloads.WithLabelValues(result(err)).Inc()
	if err == nil {
		m.Descriptors.DeleteLabelValues(pipeline)
	}
}

// Forget drops the descriptor gauge of a pipeline removed without an unload.
func (m *Metrics) Forget(pipeline string) {
	if m == nil {
		return
	}
	m.Descriptors.DeleteLabelValues(pipeline)
}

// Handler serves the metrics gathered by g on /metrics.
func Handler(reg prometheus.Registerer, g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.InstrumentMetricHandler(
		reg,
		promhttp.HandlerFor(g, promhttp.HandlerOpts{Timeout: handlerTimeout}),
	))
	return mux
}

// Serve exposes handler on address until ctx is done.
func Serve(ctx context.Context, address string, handler http.Handler) error {
	if address == "" {
		return nil
	}

	server := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: handlerTimeout,
	}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()

	slog.Info("Exporting prometheus metrics.", "address", address)

	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving prometheus metrics: %w", err)
	}
	return nil
}
