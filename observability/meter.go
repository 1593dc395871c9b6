package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/traverse/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs a global meter provider exporting over OTLP HTTP.
// The returned provider must be shut down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	logger.WithComponent("observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the engine's metric instruments.
type Metrics struct {
	finalizeTotal    metric.Int64Counter
	finalizeDuration metric.Float64Histogram
	strategyDuration metric.Float64Histogram
	emittedTotal     metric.Int64Counter
	remoteTotal      metric.Int64Counter
	remoteDuration   metric.Float64Histogram
	shardMerges      metric.Int64Counter
	errorTotal       metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	finalizeTotal, err := meter.Int64Counter("traversal.finalize.total",
		metric.WithDescription("Traversals finalized"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating traversal.finalize.total counter: %w", err)
	}

	finalizeDuration, err := meter.Float64Histogram("traversal.finalize.duration",
		metric.WithDescription("Time spent applying strategies and locking"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating traversal.finalize.duration histogram: %w", err)
	}

	strategyDuration, err := meter.Float64Histogram("strategy.apply.duration",
		metric.WithDescription("Time spent in a single strategy application"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating strategy.apply.duration histogram: %w", err)
	}

	emittedTotal, err := meter.Int64Counter("traversal.emitted.total",
		metric.WithDescription("Values emitted by traversals after bulk unrolling"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating traversal.emitted.total counter: %w", err)
	}

	remoteTotal, err := meter.Int64Counter("remote.submit.total",
		metric.WithDescription("Remote submissions by channel and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating remote.submit.total counter: %w", err)
	}

	remoteDuration, err := meter.Float64Histogram("remote.submit.duration",
		metric.WithDescription("Remote submission latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating remote.submit.duration histogram: %w", err)
	}

	shardMerges, err := meter.Int64Counter("shard.merge.total",
		metric.WithDescription("Barrier snapshot merges by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating shard.merge.total counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		finalizeTotal:    finalizeTotal,
		finalizeDuration: finalizeDuration,
		strategyDuration: strategyDuration,
		emittedTotal:     emittedTotal,
		remoteTotal:      remoteTotal,
		remoteDuration:   remoteDuration,
		shardMerges:      shardMerges,
		errorTotal:       errorTotal,
	}, nil
}

// RecordFinalize records a finalize pass over a traversal of steps steps.
func (m *Metrics) RecordFinalize(ctx context.Context, steps int, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.finalizeTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	m.finalizeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.Int("steps", steps),
	))
}

// RecordStrategy records one strategy application.
func (m *Metrics) RecordStrategy(ctx context.Context, name, category string, duration time.Duration) {
	if m == nil {
		return
	}
	m.strategyDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("strategy", name),
		attribute.String("category", category),
	))
}

// RecordEmitted counts values handed to the consumer.
func (m *Metrics) RecordEmitted(ctx context.Context, n int64) {
	if m == nil || n == 0 {
		return
	}
	m.emittedTotal.Add(ctx, n)
}

// RecordRemoteSubmit records a remote submission.
func (m *Metrics) RecordRemoteSubmit(ctx context.Context, channel, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.remoteTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", channel),
		attribute.String("status", status),
	))
	m.remoteDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("channel", channel),
	))
}

// RecordShardMerge records a snapshot merge across shards.
func (m *Metrics) RecordShardMerge(ctx context.Context, shards int, status string) {
	if m == nil {
		return
	}
	m.shardMerges.Add(ctx, 1, metric.WithAttributes(
		attribute.Int("shards", shards),
		attribute.String("status", status),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	if m == nil {
		return
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}

// Status maps an error to a metric status label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
