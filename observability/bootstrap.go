// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TraceExporterKind selects where spans are sent.
type TraceExporterKind string

const (
	TraceExporterNone   TraceExporterKind = "none"
	TraceExporterStdout TraceExporterKind = "stdout"
	TraceExporterOTLP   TraceExporterKind = "otlp"
)

// Config controls Bootstrap's wiring.
type Config struct {
	// EnableMetrics: when true, a Prometheus exporter is registered as the
	// metrics reader and returned in Bootstrap.PrometheusHandler. The
	// exporter is not itself an http.Handler; it feeds the default
	// Prometheus registry, which promhttp.Handler serves.
	EnableMetrics bool

	TraceExporter TraceExporterKind
	OTLPEndpoint  string // host:port, only used when TraceExporter == otlp
}

// Bootstrap builds a Manager plus the underlying SDK providers/exporter
// needed to wire metrics into the admin HTTP server and to guarantee
// Shutdown flushes trace exports on exit.
type Bootstrap struct {
	Manager           *Manager
	PrometheusHandler *prometheus.Exporter
	shutdownFns       []func(context.Context) error
}

// NewBootstrap builds observability according to cfg. Passing a zero
// Config yields a fully no-op Manager with nothing to shut down.
func NewBootstrap(ctx context.Context, cfg Config) (*Bootstrap, error) {
	b := &Bootstrap{}

	var meterProvider *sdkmetric.MeterProvider
	if cfg.EnableMetrics {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("observability: prometheus exporter: %w", err)
		}
		b.PrometheusHandler = exporter
		meterProvider = sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
		b.shutdownFns = append(b.shutdownFns, meterProvider.Shutdown)
	}

	var tracerProvider *sdktrace.TracerProvider
	switch cfg.TraceExporter {
	case TraceExporterStdout:
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("observability: stdout trace exporter: %w", err)
		}
		tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		b.shutdownFns = append(b.shutdownFns, tracerProvider.Shutdown)

	case TraceExporterOTLP:
		client := otlptracegrpc.NewClient(otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
		exp, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("observability: otlp trace exporter: %w", err)
		}
		tracerProvider = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		b.shutdownFns = append(b.shutdownFns, tracerProvider.Shutdown)

	case TraceExporterNone, "":
		// no tracing configured
	}

	var manager *Manager
	var err error
	switch {
	case meterProvider != nil && tracerProvider != nil:
		manager, err = NewManager(meterProvider, tracerProvider)
	case meterProvider != nil:
		manager, err = NewManager(meterProvider, nil)
	case tracerProvider != nil:
		manager, err = NewManager(nil, tracerProvider)
	default:
		manager = NoopManager()
	}
	if err != nil {
		return nil, err
	}
	b.Manager = manager

	return b, nil
}

// Shutdown flushes and closes every exporter Bootstrap created.
func (b *Bootstrap) Shutdown(ctx context.Context) error {
	var firstErr error
	for _, fn := range b.shutdownFns {
		if err := fn(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
