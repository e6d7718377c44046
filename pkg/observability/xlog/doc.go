// Package xlog 提供基于 log/slog 的结构化日志。
//
// # 设计理念
//
//   - 强制 context 传递：所有方法第一个参数是 ctx，追踪字段随之进入日志
//   - Handler 装饰链：EnrichHandler 自动注入 trace_id / span_id / request_id / trace_flags
//   - 动态级别：Build() 返回 LoggerWithLevel，运行时可 SetLevel
//   - 生命周期：Build() 返回 cleanup，关闭文件轮转器
//
// 在 xasync 中，ctx 通常就是环境上下文（xambient.Carrier.Current()）。
// 日志中 trace_id 是否与挂起前一致，是判断上下文传播是否生效的最直接证据。
//
// # 使用示例
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("debug").
//		SetFormat("json").
//		SetRotation(xlog.Rotation{Filename: "/var/log/app.log"}).
//		Build()
//	if err != nil {
//		return err
//	}
//	defer cleanup()
//	logger.Info(ctx, "segment resumed", slog.String("execution", id))
//
// # 全局 Logger
//
// Default/SetDefault 与包级 Debug/Info/Warn/Error 适用于库内部与小工具，
// 服务端推荐显式持有 Logger。
package xlog
