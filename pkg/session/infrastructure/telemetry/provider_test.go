package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx/fxtest"

	"github.com/hjyangBig2/lighter/pkg/session/core/config"
	"github.com/hjyangBig2/lighter/pkg/session/infrastructure/telemetry"
)

func TestNewTracerProvider(t *testing.T) {
	cfg := config.NewConfig()
	tp, err := telemetry.NewTracerProvider(fxtest.NewLifecycle(t), cfg)
	require.NoError(t, err)
	assert.IsType(t, tracenoop.TracerProvider{}, tp)

	cfg.Lighter.Telemetry.TracesExporter = "otlphttp"
	cfg.Lighter.Telemetry.Endpoint = "localhost:4318"
	cfg.Lighter.Telemetry.Insecure = true
	lc := fxtest.NewLifecycle(t)
	tp, err = telemetry.NewTracerProvider(lc, cfg)
	require.NoError(t, err)
	assert.IsType(t, &sdktrace.TracerProvider{}, tp)
	lc.RequireStart().RequireStop()

	cfg.Lighter.Telemetry.TracesExporter = "zipkin"
	_, err = telemetry.NewTracerProvider(fxtest.NewLifecycle(t), cfg)
	assert.Error(t, err)
}

func TestNewMeterProvider(t *testing.T) {
	cfg := config.NewConfig()
	mp, err := telemetry.NewMeterProvider(fxtest.NewLifecycle(t), cfg)
	require.NoError(t, err)
	assert.IsType(t, metricnoop.MeterProvider{}, mp)

	cfg.Lighter.Telemetry.MetricsExporter = "otlpgrpc"
	cfg.Lighter.Telemetry.Endpoint = "localhost:4317"
	cfg.Lighter.Telemetry.Insecure = true
	mp, err = telemetry.NewMeterProvider(fxtest.NewLifecycle(t), cfg)
	require.NoError(t, err)
	assert.IsType(t, &sdkmetric.MeterProvider{}, mp)
}
