// Package xctx 在 context.Context 中存取链路追踪字段。
//
// xasync 的环境上下文（见 xambient）就是一个 context.Context，
// 追踪信息以两种形式随之传播：
//   - xctx 字段：trace_id / span_id / request_id / trace_flags（字符串）
//   - OpenTelemetry SpanContext（trace.SpanContextFromContext）
//
// 两者通过 SyncFromSpan 与 SpanContext 互相桥接，日志层只需读取 xctx 字段。
//
// # 命名约定
//
//	WithXxx(ctx, value)  - 注入
//	Xxx(ctx)             - 读取，缺失时返回零值
//	RequireXxx(ctx)      - 强制读取，缺失时返回哨兵错误
//	EnsureXxx(ctx)       - 有则沿用，无则生成
//	GetTrace(ctx)        - 批量读取
//
// # 校验策略
//
// xctx 是纯存取层，不校验字段格式（如 trace_id 长度）。
// 格式校验由 SpanContext 在转换为 otel 类型时完成，非法值会被忽略。
package xctx
