// Package telemetry configures the OpenTelemetry meter provider.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

const exportInterval = 15 * time.Second

// Metrics owns the process meter provider.
type Metrics struct {
	Provider *sdkmetric.MeterProvider
	Shutdown func(context.Context) error
}

// NewMetrics builds a meter provider exporting over OTLP/gRPC to endpoint.
// An empty endpoint yields a provider that records but never exports.
// Plain http endpoints, or insecure set, disable TLS.
func NewMetrics(ctx context.Context, endpoint, serviceName string, insecure bool) (*Metrics, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		mp := sdkmetric.NewMeterProvider()
		return &Metrics{Provider: mp, Shutdown: mp.Shutdown}, nil
	}

	target, tlsOff, err := grpcTarget(endpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(target)}
	if insecure || tlsOff {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("otlp metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(exportInterval))),
	)
	return &Metrics{Provider: mp, Shutdown: mp.Shutdown}, nil
}

// SetGlobal installs the provider as the global meter provider.
func (m *Metrics) SetGlobal() {
	otel.SetMeterProvider(m.Provider)
}

// grpcTarget reduces endpoint to host:port. The second result reports
// whether the scheme asks for plaintext.
func grpcTarget(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme != "https", nil
}
