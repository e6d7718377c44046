package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
	"github.com/omeyang/xasync/pkg/config/xconf"
	"github.com/omeyang/xasync/pkg/context/xctx"
	"github.com/omeyang/xasync/pkg/observability/xlog"
)

// telemetry 进程内的 trace/metric 管道，演示结束后汇总输出。
type telemetry struct {
	spans  *tracetest.SpanRecorder
	tp     *sdktrace.TracerProvider
	reader *sdkmetric.ManualReader
	mp     *sdkmetric.MeterProvider
}

func newTelemetry() *telemetry {
	spans := tracetest.NewSpanRecorder()
	reader := sdkmetric.NewManualReader()
	return &telemetry{
		spans:  spans,
		tp:     sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)),
		reader: reader,
		mp:     sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
}

func (t *telemetry) shutdown(ctx context.Context) error {
	return errors.Join(t.tp.Shutdown(ctx), t.mp.Shutdown(ctx))
}

// wrapCounts 读取 delimit 钩子的包装计数，按 outcome 分组。
func (t *telemetry) wrapCounts(ctx context.Context) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	counts := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != xdelimit.MetricWrapTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				counts[v.AsString()] += dp.Value
			}
		}
	}
	return counts, nil
}

// seedContext 解析 W3C traceparent，返回携带远端父 span 的上下文。
func seedContext(ctx context.Context, traceparent string) (context.Context, error) {
	if traceparent == "" {
		return ctx, nil
	}
	carrier := propagation.MapCarrier{"traceparent": traceparent}
	ctx = propagation.TraceContext{}.Extract(ctx, carrier)
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return nil, usagef("invalid --traceparent %q", traceparent)
	}
	return xctx.SyncFromSpan(ctx), nil
}

// newLogger 按配置构建日志，未配置轮转文件时写到 stderr。
func newLogger(cfg xconf.LogConfig, stderr io.Writer) (xlog.LoggerWithLevel, func() error, error) {
	b := xlog.New().
		SetLevelString(cfg.Level).
		SetFormat(cfg.Format).
		SetAddSource(cfg.AddSource)
	if cfg.Rotation.Filename != "" {
		b = b.SetRotation(cfg.Rotation)
	} else {
		if stderr == nil {
			stderr = os.Stderr
		}
		b = b.SetOutput(stderr)
	}
	return b.Build()
}

func loadConfig(path string) (xconf.Config, xconf.AppConfig, error) {
	if path == "" {
		app, err := xconf.LoadApp(nil)
		return nil, app, err
	}
	cfg, err := xconf.New(path)
	if err != nil {
		return nil, xconf.AppConfig{}, err
	}
	app, err := xconf.LoadApp(cfg)
	if err != nil {
		return nil, xconf.AppConfig{}, err
	}
	return cfg, app, nil
}
