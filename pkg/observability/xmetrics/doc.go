// Package xmetrics 提供统一的观测接口（metrics + tracing）。
//
// 业务代码只依赖 Observer/Span/Attr 接口，默认实现基于 OpenTelemetry。
// xexec 用它为每个执行单元（segment）开启跨度：跨度的父级取自单元运行时的
// 环境上下文，因此能直接反映追踪上下文是否跨挂起点传播成功。
//
// # 使用示例
//
//	obs, _ := xmetrics.NewOTelObserver()
//	ctx, span := xmetrics.Start(ctx, obs, xmetrics.SpanOptions{
//		Component: "xexec",
//		Operation: "segment",
//	})
//	defer span.End(xmetrics.Result{Err: err})
//
// # 指标命名
//
//   - xasync.operation.total      （counter，属性 component / operation / status）
//   - xasync.operation.duration   （histogram，单位秒）
package xmetrics
