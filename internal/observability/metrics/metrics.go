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
}

// Metrics exposes domain instruments exported over OTLP.
type Metrics struct {
	transactions        metric.Int64Counter
	sharesCreated       metric.Int64Counter
	attributionWarnings metric.Int64Counter
	payoutOutcomes      metric.Int64Counter
	payoutTransitions   metric.Int64Counter
	providerShareAmount metric.Int64Counter
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
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				log.Info("shutting down meter provider")
				return provider.Shutdown(ctx)
			},
		})
	}

	log.Info("metrics initialized",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "revenueshare"
	}
	meter := provider.Meter(name)

	transactions, err := meter.Int64Counter("revenueshare_transactions_processed_total")
	if err != nil {
		return nil, err
	}
	sharesCreated, err := meter.Int64Counter("revenueshare_shares_created_total")
	if err != nil {
		return nil, err
	}
	attributionWarnings, err := meter.Int64Counter("revenueshare_attribution_warnings_total")
	if err != nil {
		return nil, err
	}
	payoutOutcomes, err := meter.Int64Counter("revenueshare_payout_generation_outcomes_total")
	if err != nil {
		return nil, err
	}
	payoutTransitions, err := meter.Int64Counter("revenueshare_payout_transitions_total")
	if err != nil {
		return nil, err
	}
	providerShareAmount, err := meter.Int64Counter("revenueshare_provider_share_minor_units_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		transactions:        transactions,
		sharesCreated:       sharesCreated,
		attributionWarnings: attributionWarnings,
		payoutOutcomes:      payoutOutcomes,
		payoutTransitions:   payoutTransitions,
		providerShareAmount: providerShareAmount,
	}, nil
}

// RecordTransaction counts a processed completion event. replayed is true when
// the transaction had already been stored.
func (m *Metrics) RecordTransaction(ctx context.Context, packageType string, replayed bool) {
	if m == nil {
		return
	}
	status := "processed"
	if replayed {
		status = "replayed"
	}
	attrs := FilterAttributes(
		attribute.String("package_type", strings.TrimSpace(packageType)),
		attribute.String("status", status),
	)
	m.transactions.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordShares counts persisted revenue shares and their provider amount.
func (m *Metrics) RecordShares(ctx context.Context, packageType string, count int, providerAmount int64) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("package_type", strings.TrimSpace(packageType)))
	m.sharesCreated.Add(ctx, int64(count), metric.WithAttributes(attrs...))
	if providerAmount > 0 {
		m.providerShareAmount.Add(ctx, providerAmount, metric.WithAttributes(attrs...))
	}
}

func (m *Metrics) RecordAttributionWarning(ctx context.Context, packageType, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("package_type", strings.TrimSpace(packageType)),
		attribute.String("reason", strings.TrimSpace(reason)),
	)
	m.attributionWarnings.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPayoutOutcome(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.payoutOutcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordPayoutTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("from", strings.TrimSpace(from)),
		attribute.String("to", strings.TrimSpace(to)),
	)
	m.payoutTransitions.Add(ctx, 1, metric.WithAttributes(attrs...))
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
	"package_type": {},
	"status":       {},
	"reason":       {},
	"outcome":      {},
	"from":         {},
	"to":           {},
	"endpoint":     {},
	"status_code":  {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
// Provider and transaction identifiers never become labels.
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
