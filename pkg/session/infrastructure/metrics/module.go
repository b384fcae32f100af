package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"

	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	metrics "github.com/hjyangBig2/lighter/pkg/session/core/metrics"
	"github.com/hjyangBig2/lighter/pkg/session/support/util/logger"
)

// RecorderParams are the inputs of NewMetricRecorder.
type RecorderParams struct {
	fx.In
	Cfg           *config.Config
	Prometheus    *PrometheusRecorder
	MeterProvider metric.MeterProvider
}

// NewMetricRecorder selects the recorder named by lighter.telemetry.metrics_exporter.
func NewMetricRecorder(p RecorderParams) (metrics.MetricRecorder, error) {
	switch exporter := p.Cfg.Lighter.Telemetry.MetricsExporter; exporter {
	case "prometheus":
		return p.Prometheus, nil
	case "otlpgrpc", "otlphttp":
		return NewOTelRecorder(p.MeterProvider)
	case "none", "":
		logger.Infof("Metrics are disabled.")
		return metrics.NewNoOpMetricRecorder(), nil
	default:
		return nil, fmt.Errorf("unknown metrics exporter: %q", exporter)
	}
}

// NewPrometheusGatherer exposes the recorder's registry to the /metrics endpoint.
func NewPrometheusGatherer(r *PrometheusRecorder) prometheus.Gatherer {
	return r.GetRegistry()
}

// Module is an Fx module that provides the MetricRecorder and the OpenTelemetryTracer.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(NewPrometheusGatherer),
	fx.Provide(NewMetricRecorder),
	// Provide OpenTelemetryTracer as a core.Tracer interface.
	fx.Provide(NewOpenTelemetryTracer),
)
