// Package xpool 提供通用的泛型 worker pool。
//
// 特性：
//   - 可配置 worker 数量（[1, 65536]）与队列大小（[1, 16777216]）
//   - Submit 非阻塞，队列满返回 ErrQueueFull
//   - SubmitWait 阻塞直到入队、ctx 结束或 pool 关闭
//   - 优雅关闭：Close/Shutdown 处理完队列中的剩余任务
//   - panic 恢复：单个任务失败不影响 pool，日志含堆栈
//   - 可注入 *slog.Logger（WithLogger）与名称（WithName）
//
// # 注意事项
//
//   - New 创建后自动启动 worker
//   - Close/Shutdown 不可在 handler 内调用，否则会死锁
//   - panic 的任务不重试；日志默认只记录 task 类型，WithLogTaskValue 可启用完整值
//
// xexec 以本包作为执行引擎的共享 worker：每个执行（execution）的单元
// 通过 SubmitWait 投递，保证不会因队列满而丢失续延。
package xpool
