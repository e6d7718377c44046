package xlog

import (
	"context"
	"errors"
	"log/slog"

	"github.com/omeyang/xasync/pkg/context/xctx"

	"go.opentelemetry.io/otel/trace"
)

// ErrNilHandler 当 NewEnrichHandler 的 base handler 为 nil 时返回
var ErrNilHandler = errors.New("xlog: base handler is nil")

// EnrichHandler 从 context 提取追踪字段并注入日志
//
// 优先使用 xctx 字段；ctx 中只有 otel span 而没有 xctx 字段时，
// 从 span context 补出 trace_id / span_id / trace_flags。
type EnrichHandler struct {
	base slog.Handler
}

// NewEnrichHandler 创建 EnrichHandler
func NewEnrichHandler(base slog.Handler) (*EnrichHandler, error) {
	if base == nil {
		return nil, ErrNilHandler
	}
	return &EnrichHandler{base: base}, nil
}

// Enabled 委托给底层 handler
func (h *EnrichHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

// Handle 注入追踪字段后交给底层 handler。按 slog 契约，修改前先 Clone record。
func (h *EnrichHandler) Handle(ctx context.Context, r slog.Record) error {
	var buf [4]slog.Attr
	attrs := xctx.AppendTraceAttrs(buf[:0], ctx)
	if len(attrs) == 0 && ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			attrs = append(attrs,
				slog.String(xctx.KeyTraceID, sc.TraceID().String()),
				slog.String(xctx.KeySpanID, sc.SpanID().String()),
				slog.String(xctx.KeyTraceFlags, sc.TraceFlags().String()))
		}
	}
	if len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return h.base.Handle(ctx, r)
}

// WithAttrs 返回带额外属性的新 handler
func (h *EnrichHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EnrichHandler{base: h.base.WithAttrs(attrs)}
}

// WithGroup 返回带分组的新 handler
//
// 分组后 enrich 字段同样落在分组内，这是 slog handler 架构的固有限制。
func (h *EnrichHandler) WithGroup(name string) slog.Handler {
	return &EnrichHandler{base: h.base.WithGroup(name)}
}
