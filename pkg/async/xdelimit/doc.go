// Package xdelimit 为延续式调度器的分段回调保持环境追踪上下文。
//
// 调度器把一个逻辑任务切成若干段，后续段可能在任意 worker、任意时刻执行，
// 此时 worker 上的环境上下文已不是任务开始时的那一个。本包在分段边界
// （delimit 调用）处对回调做包装：
//
//   - 包装时（Wrap）从 Carrier 读取当前环境上下文作为快照
//   - 调用时（Wrapped.Call）先保存槽位旧值，安装快照，执行原回调，最后恢复旧值
//
// 包装是幂等的：对已包装回调再次包装返回同一实例，快照保持首次包装时的值。
// 回调的错误原样返回，panic 在恢复槽位后继续向上传播。
//
// # 接入方式
//
// 调用方能控制 delimit 调用点时，直接组合：
//
//	xdelimit.Capture(exec.Carrier(), &onError, &segment)
//	exec.Delimit(onError, segment)
//
// 不能控制调用点时，注册拦截钩子，由调度器在方法入口自动改写参数：
//
//	hook, _ := xdelimit.NewHook(nil)
//	host.Register(hook)
//
// 钩子按"全限定类型名 + 方法名前缀 + 前两个参数为回调形状"匹配，
// 同前缀的新入口（如 DelimitStream）无需改动即可覆盖。
//
// # 并发约束
//
// 包装器不加锁。正确性依赖宿主保证同一槽位同一时刻只有一个活动任务，
// xexec 通过串行执行同一 Execution 的各段来满足这一点。
package xdelimit
