// Package providers contains the framework's own service providers. The
// application registers them before any module so user providers can
// depend on the configuration, logger, metrics registry and tracer.
package providers

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/km-arc/go-dispatch/framework/config"
	"github.com/km-arc/go-dispatch/framework/container"
	"github.com/km-arc/go-dispatch/framework/interceptors"
)

// Container aliases for the framework services.
const (
	ConfigToken   = "config"
	LoggerToken   = "logger"
	RegistryToken = "metrics.registry"
	TracerToken   = "tracer"
)

// ── ConfigProvider ───────────────────────────────────────────────────────────

// ConfigProvider binds the loaded configuration.
//
// Bound tokens:
//   - *config.Config (alias "config")
type ConfigProvider struct {
	container.BaseProvider
	Config *config.Config
}

func (p *ConfigProvider) Register(c *container.Container) error {
	t := reflect.TypeFor[*config.Config]()
	if err := c.Instance(t, p.Config); err != nil {
		return err
	}
	return c.Alias(t, ConfigToken)
}

// ── LoggerProvider ───────────────────────────────────────────────────────────

// LoggerProvider binds the application logger.
//
// Bound tokens:
//   - zerolog.Logger (alias "logger")
type LoggerProvider struct {
	container.BaseProvider
	Logger zerolog.Logger
}

func (p *LoggerProvider) Register(c *container.Container) error {
	t := reflect.TypeFor[zerolog.Logger]()
	if err := c.Instance(t, p.Logger); err != nil {
		return err
	}
	return c.Alias(t, LoggerToken)
}

// ── MetricsProvider ──────────────────────────────────────────────────────────

// MetricsProvider binds a prometheus registry with the Go and process
// collectors, and the handler metrics interceptor registered against it.
//
// Bound tokens:
//   - *prometheus.Registry (alias "metrics.registry")
//   - *interceptors.Metrics
type MetricsProvider struct {
	container.BaseProvider
	Config config.MetricsConfig
}

func (p *MetricsProvider) Register(c *container.Container) error {
	t := reflect.TypeFor[*prometheus.Registry]()
	err := c.Factory(t, func(container.Resolver) (any, error) {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		return reg, nil
	})
	if err != nil {
		return err
	}
	if err := c.Alias(t, RegistryToken); err != nil {
		return err
	}

	namespace := p.Config.Namespace
	return c.Factory(reflect.TypeFor[*interceptors.Metrics](), func(r container.Resolver) (any, error) {
		reg, err := r.Resolve(t)
		if err != nil {
			return nil, err
		}
		return interceptors.NewMetrics(reg.(*prometheus.Registry), namespace)
	})
}

// ── TracerProvider ───────────────────────────────────────────────────────────

// TracerProvider binds the OpenTelemetry tracer provider. When tracing is
// disabled a no-op provider is bound. Span processors (exporters) are
// supplied by the application.
//
// Bound tokens:
//   - trace.TracerProvider (alias "tracer")
type TracerProvider struct {
	container.BaseProvider
	Config  config.TracingConfig
	Options []sdktrace.TracerProviderOption

	sdk *sdktrace.TracerProvider
}

func (p *TracerProvider) Register(c *container.Container) error {
	t := reflect.TypeFor[trace.TracerProvider]()
	err := c.Factory(t, func(container.Resolver) (any, error) {
		if !p.Config.Enabled {
			return noop.NewTracerProvider(), nil
		}
		res := resource.NewSchemaless(attribute.String("service.name", p.Config.ServiceName))
		p.sdk = sdktrace.NewTracerProvider(append([]sdktrace.TracerProviderOption{sdktrace.WithResource(res)}, p.Options...)...)
		return p.sdk, nil
	})
	if err != nil {
		return err
	}
	return c.Alias(t, TracerToken)
}

// Boot installs the provider as the global tracer provider.
func (p *TracerProvider) Boot(_ context.Context, c *container.Container) error {
	tp, err := container.Resolve[trace.TracerProvider](c)
	if err != nil {
		return err
	}
	otel.SetTracerProvider(tp)
	return nil
}

// OnApplicationShutdown flushes and stops the SDK provider.
func (p *TracerProvider) OnApplicationShutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return errors.Wrap(p.sdk.Shutdown(ctx), "shutting down tracer provider")
}
