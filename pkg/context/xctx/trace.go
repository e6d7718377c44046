package xctx

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

// Trace Key 常量，遵循 OpenTelemetry 语义约定（下划线分隔）
const (
	KeyTraceID    = "trace_id"
	KeySpanID     = "span_id"
	KeyRequestID  = "request_id"
	KeyTraceFlags = "trace_flags"

	traceFieldCount = 4
)

const (
	// TraceIDSize W3C 规范: 128-bit (16 bytes) -> 32 hex chars
	TraceIDSize = 16

	// SpanIDSize W3C 规范: 64-bit (8 bytes) -> 16 hex chars
	SpanIDSize = 8
)

const (
	keyTraceID    = contextKey("xctx:trace_id")
	keySpanID     = contextKey("xctx:span_id")
	keyRequestID  = contextKey("xctx:request_id")
	keyTraceFlags = contextKey("xctx:trace_flags")
)

func withString(ctx context.Context, key contextKey, v string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	return context.WithValue(ctx, key, v), nil
}

func getString(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func requireString(ctx context.Context, key contextKey, missing error) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	v := getString(ctx, key)
	if v == "" {
		return "", missing
	}
	return v, nil
}

func ensureString(ctx context.Context, key contextKey, gen func() string) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if getString(ctx, key) != "" {
		return ctx, nil
	}
	return context.WithValue(ctx, key, gen()), nil
}

// WithTraceID 将 trace ID 注入 context。ctx 为 nil 时返回 ErrNilContext。
func WithTraceID(ctx context.Context, traceID string) (context.Context, error) {
	return withString(ctx, keyTraceID, traceID)
}

// TraceID 从 context 提取 trace ID，不存在返回空字符串
func TraceID(ctx context.Context) string { return getString(ctx, keyTraceID) }

// RequireTraceID 从 context 获取 trace ID，缺失时返回 ErrMissingTraceID。
func RequireTraceID(ctx context.Context) (string, error) {
	return requireString(ctx, keyTraceID, ErrMissingTraceID)
}

// EnsureTraceID 确保 context 中存在 TraceID，已存在时原样返回（不校验）。
func EnsureTraceID(ctx context.Context) (context.Context, error) {
	return ensureString(ctx, keyTraceID, GenerateTraceID)
}

// WithSpanID 将 span ID 注入 context。
func WithSpanID(ctx context.Context, spanID string) (context.Context, error) {
	return withString(ctx, keySpanID, spanID)
}

// SpanID 从 context 提取 span ID，不存在返回空字符串
func SpanID(ctx context.Context) string { return getString(ctx, keySpanID) }

// RequireSpanID 从 context 获取 span ID，缺失时返回 ErrMissingSpanID。
func RequireSpanID(ctx context.Context) (string, error) {
	return requireString(ctx, keySpanID, ErrMissingSpanID)
}

// EnsureSpanID 确保 context 中存在 SpanID。
func EnsureSpanID(ctx context.Context) (context.Context, error) {
	return ensureString(ctx, keySpanID, GenerateSpanID)
}

// WithRequestID 将 request ID 注入 context。
func WithRequestID(ctx context.Context, requestID string) (context.Context, error) {
	return withString(ctx, keyRequestID, requestID)
}

// RequestID 从 context 提取 request ID，不存在返回空字符串
func RequestID(ctx context.Context) string { return getString(ctx, keyRequestID) }

// RequireRequestID 从 context 获取 request ID，缺失时返回 ErrMissingRequestID。
func RequireRequestID(ctx context.Context) (string, error) {
	return requireString(ctx, keyRequestID, ErrMissingRequestID)
}

// EnsureRequestID 确保 context 中存在 RequestID。
func EnsureRequestID(ctx context.Context) (context.Context, error) {
	return ensureString(ctx, keyRequestID, GenerateTraceID)
}

// WithTraceFlags 将 W3C trace-flags 注入 context（2 位十六进制，如 "01"）。
func WithTraceFlags(ctx context.Context, flags string) (context.Context, error) {
	return withString(ctx, keyTraceFlags, flags)
}

// TraceFlags 从 context 提取 trace flags，不存在返回空字符串
func TraceFlags(ctx context.Context) string { return getString(ctx, keyTraceFlags) }

// =============================================================================
// ID 生成（W3C Trace Context）
// =============================================================================

// generateHex 生成 n 字节的非全零随机数并编码为小写十六进制。
//
// crypto/rand 失败意味着系统无法提供安全随机数，此时 panic，
// 与 OpenTelemetry SDK 的策略一致。
func generateHex(n int) string {
	buf := make([]byte, n)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic("xctx: crypto/rand.Read failed: " + err.Error())
		}
		for _, b := range buf {
			if b != 0 {
				return hex.EncodeToString(buf)
			}
		}
	}
}

// GenerateTraceID 生成 32 位小写十六进制 TraceID（非全零）。
func GenerateTraceID() string { return generateHex(TraceIDSize) }

// GenerateSpanID 生成 16 位小写十六进制 SpanID（非全零）。
func GenerateSpanID() string { return generateHex(SpanIDSize) }

// =============================================================================
// Trace 结构体（批量模式）
// =============================================================================

// Trace 追踪信息结构体
type Trace struct {
	TraceID    string
	SpanID     string
	RequestID  string
	TraceFlags string
}

// GetTrace 从 context 批量获取所有追踪信息，字段可能为空。
func GetTrace(ctx context.Context) Trace {
	return Trace{
		TraceID:    TraceID(ctx),
		SpanID:     SpanID(ctx),
		RequestID:  RequestID(ctx),
		TraceFlags: TraceFlags(ctx),
	}
}

// IsEmpty 所有字段均为空时返回 true
func (t Trace) IsEmpty() bool {
	return t == Trace{}
}

// Validate 按 TraceID → SpanID → RequestID 顺序返回第一个缺失字段的错误。
// TraceFlags 是可选字段，不参与校验。
func (t Trace) Validate() error {
	switch {
	case t.TraceID == "":
		return ErrMissingTraceID
	case t.SpanID == "":
		return ErrMissingSpanID
	case t.RequestID == "":
		return ErrMissingRequestID
	}
	return nil
}

// WithTrace 将 tr 中的非空字段批量注入 context，空字段跳过（不覆盖已有值）。
func WithTrace(ctx context.Context, tr Trace) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	for _, f := range [...]struct {
		key contextKey
		v   string
	}{
		{keyTraceID, tr.TraceID},
		{keySpanID, tr.SpanID},
		{keyRequestID, tr.RequestID},
		{keyTraceFlags, tr.TraceFlags},
	} {
		if f.v != "" {
			ctx = context.WithValue(ctx, f.key, f.v)
		}
	}
	return ctx, nil
}

// EnsureTrace 补全缺失的 TraceID、SpanID、RequestID。
//
// TraceFlags 不自动生成：采样决策应从上游传播。
func EnsureTrace(ctx context.Context) (context.Context, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	cur := GetTrace(ctx)
	var missing Trace
	if cur.TraceID == "" {
		missing.TraceID = GenerateTraceID()
	}
	if cur.SpanID == "" {
		missing.SpanID = GenerateSpanID()
	}
	if cur.RequestID == "" {
		missing.RequestID = GenerateTraceID()
	}
	return WithTrace(ctx, missing)
}
