package rtrace

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var meter = otel.Meter("brinfo.rtrace")

var (
	condTotal        metric.Int64Counter
	assertionTotal   metric.Int64Counter
	invocationActive metric.Int64UpDownCounter
	testsTotal       metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initProvider registers a Prometheus-backed MeterProvider as the global
// provider, so meter's counters are collected into the default Prometheus
// registry that internal/debugserver's /metrics route already serves via
// promhttp.Handler().
func initProvider() error {
	exporter, err := promexporter.New()
	if err != nil {
		return fmt.Errorf("rtrace: create prometheus exporter: %w", err)
	}
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter)))
	return nil
}

func initMetrics() error {
	metricsOnce.Do(func() {
		if metricsErr = initProvider(); metricsErr != nil {
			return
		}
		var err error
		if condTotal, err = meter.Int64Counter("brinfo_cond_total",
			metric.WithDescription("Total condition probes logged")); err != nil {
			metricsErr = err
			return
		}
		if assertionTotal, err = meter.Int64Counter("brinfo_assertion_total",
			metric.WithDescription("Total assertions logged")); err != nil {
			metricsErr = err
			return
		}
		if invocationActive, err = meter.Int64UpDownCounter("brinfo_invocation_active",
			metric.WithDescription("Currently open invocation frames")); err != nil {
			metricsErr = err
			return
		}
		if testsTotal, err = meter.Int64Counter("brinfo_tests_total",
			metric.WithDescription("Total tests started")); err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordCond(ctx context.Context, value bool) {
	if initMetrics() != nil {
		return
	}
	condTotal.Add(ctx, 1, metric.WithAttributes(attribute.Bool("value", value)))
}

func recordAssertion(ctx context.Context, macro string) {
	if initMetrics() != nil {
		return
	}
	assertionTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("macro", macro)))
}

func recordInvocationOpen(ctx context.Context) {
	if initMetrics() != nil {
		return
	}
	invocationActive.Add(ctx, 1)
}

func recordInvocationClose(ctx context.Context, status string) {
	if initMetrics() != nil {
		return
	}
	invocationActive.Add(ctx, -1, metric.WithAttributes(attribute.String("status", status)))
}

func recordTestStart(ctx context.Context, suite string) {
	if initMetrics() != nil {
		return
	}
	testsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("suite", suite)))
}
