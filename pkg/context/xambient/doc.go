// Package xambient 提供"环境上下文"（Ambient Context）槽位。
//
// 环境上下文是当前生效的追踪上下文，代码无需通过参数显式传递即可读取。
// 在基于续延（continuation）的异步执行模型中，挂起点之后的代码可能在
// 另一个 worker 上恢复执行，此时之前建立的环境上下文会丢失。
// xasync 通过在挂起前快照、恢复时重新安装来弥补这一点，本包提供被安装的槽位。
//
// # 核心类型
//
//	Carrier  - 槽位接口：Current 读取，Swap 安装并返回旧值
//	Slot     - 基于 atomic.Pointer 的单一逻辑槽位实现，零值可用
//
// # 作用域修改
//
// 所有修改都是"保存-安装-恢复"三段式：
//
//	prev := c.Swap(ctx)
//	defer c.Swap(prev)
//
// Run 封装了这一模式，并保证 fn 返回错误或 panic 时同样恢复。
//
// # 并发约定
//
// Slot 的读写是原子的，但作用域修改的正确性依赖宿主调度器的约定：
// 同一时刻一个槽位上至多只有一个逻辑任务处于活动状态。
// 本包不加锁，也不强制该约定。
//
// # 全局槽位
//
// Default 返回进程级槽位，仅用于无法注入 Carrier 的场景。
// 服务端推荐显式持有 Carrier（依赖注入），便于测试替换。
package xambient
