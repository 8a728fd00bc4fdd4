package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
	Resource         []attribute.KeyValue
}

// Metrics exposes application-level instruments.
type Metrics struct {
	collections      metric.Int64Counter
	collectionErrors metric.Int64Counter
	refreshes        metric.Int64Counter
	refreshDuration  metric.Float64Histogram
	entityMutations  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(resource.NewSchemaless(cfg.Resource...)),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "shopbooks"
	}
	meter := provider.Meter(name)

	collections, err := meter.Int64Counter("shopbooks_collections_total")
	if err != nil {
		return nil, err
	}
	collectionErrors, err := meter.Int64Counter("shopbooks_collections_rejected_total")
	if err != nil {
		return nil, err
	}
	refreshes, err := meter.Int64Counter("shopbooks_refresh_total")
	if err != nil {
		return nil, err
	}
	refreshDuration, err := meter.Float64Histogram("shopbooks_refresh_duration_seconds")
	if err != nil {
		return nil, err
	}
	entityMutations, err := meter.Int64Counter("shopbooks_entity_mutations_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		collections:      collections,
		collectionErrors: collectionErrors,
		refreshes:        refreshes,
		refreshDuration:  refreshDuration,
		entityMutations:  entityMutations,
	}, nil
}

// RecordCollection increments ledger entries created per kind.
func (m *Metrics) RecordCollection(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("kind", strings.TrimSpace(kind)))
	m.collections.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCollectionRejected increments rejected collections by reason.
func (m *Metrics) RecordCollectionRejected(ctx context.Context, kind, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("kind", strings.TrimSpace(kind)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.collectionErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordRefresh counts a recompute-and-publish cycle.
func (m *Metrics) RecordRefresh(ctx context.Context, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.refreshes.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.refreshDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordEntityMutation counts feature-module writes per collection.
func (m *Metrics) RecordEntityMutation(ctx context.Context, collection, operation string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("collection", strings.TrimSpace(collection)),
		attribute.String("operation", strings.TrimSpace(operation)),
	)
	m.entityMutations.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"endpoint":    {},
	"status_code": {},
	"kind":        {},
	"reason":      {},
	"collection":  {},
	"operation":   {},
	"target":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
