package xctx

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/trace"
)

// SpanContext 返回 ctx 中生效的 otel SpanContext。
//
// 优先使用 ctx 中的 otel span；没有有效 span 时，从 xctx 字段构造一个
// Remote SpanContext（trace_flags 缺失时视为未采样）。字段格式非法时返回零值。
func SpanContext(ctx context.Context) trace.SpanContext {
	if ctx == nil {
		return trace.SpanContext{}
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		return sc
	}

	tid, err := trace.TraceIDFromHex(TraceID(ctx))
	if err != nil {
		return trace.SpanContext{}
	}
	sid, err := trace.SpanIDFromHex(SpanID(ctx))
	if err != nil {
		return trace.SpanContext{}
	}
	var flags trace.TraceFlags
	if s := TraceFlags(ctx); s != "" {
		if v, err := strconv.ParseUint(s, 16, 8); err == nil {
			flags = trace.TraceFlags(v)
		}
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: flags,
		Remote:     true,
	})
}

// EnsureSpanContext 确保 ctx 携带 otel SpanContext。
//
// 已有有效 span 时原样返回；否则尝试从 xctx 字段构造 Remote 父级。
// 用于在 otel tracer.Start 前接续 xctx 传播的链路。
func EnsureSpanContext(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if trace.SpanContextFromContext(ctx).IsValid() {
		return ctx
	}
	sc := SpanContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

// SyncFromSpan 将 ctx 中有效的 otel SpanContext 同步到 xctx 字段。
//
// 无有效 span 时原样返回。RequestID 不在 otel 模型中，保持不变。
func SyncFromSpan(ctx context.Context) context.Context {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ctx
	}
	ctx = context.WithValue(ctx, keyTraceID, sc.TraceID().String())
	ctx = context.WithValue(ctx, keySpanID, sc.SpanID().String())
	return context.WithValue(ctx, keyTraceFlags, sc.TraceFlags().String())
}
