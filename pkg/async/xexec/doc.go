// Package xexec 是一个延续式执行引擎，作为 delimit 拦截的宿主调度器。
//
// 一次 Execution 由若干段（unit）组成，各段在共享 worker 池上执行，
// 但同一 Execution 的段严格串行，因此其环境上下文槽位同一时刻只有一个活动任务。
//
// 每段开始时槽位被重置为引擎基础上下文（默认 Background），模拟延续在
// 新 worker 上恢复时环境追踪上下文丢失；只有首段（Start 的 block）使用调用方
// 传入的上下文。delimit 回调如需保持发起时的上下文，依赖 xdelimit 包装。
//
// # 段与延续
//
//	exec, _ := engine.Start(ctx, func(x *xexec.Execution) error {
//		return x.Delimit(onError, xdelimit.Func[*xexec.Continuation](func(c *xexec.Continuation) error {
//			go func() {
//				result := fetch()
//				_ = c.Resume(func(x *xexec.Execution) error { return use(result) })
//			}()
//			return nil
//		}))
//	})
//	err := exec.Wait(ctx)
//
// 段或恢复块失败（返回错误或 panic）时调度 onError；onError 缺失或自身失败时
// Execution 以该错误结束。没有待执行段且没有未结束的延续时 Execution 完成。
// 延续既不 Resume 也不 Complete 时 Execution 不会完成，Wait 只能依靠 ctx 返回。
package xexec
