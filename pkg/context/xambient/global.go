package xambient

import "sync/atomic"

// =============================================================================
// 全局槽位
//
// 定位：无法注入 Carrier 的简单场景。
// 服务端推荐依赖注入（显式持有 Carrier）。
// =============================================================================

var defaultSlot atomic.Pointer[Slot]

func init() {
	defaultSlot.Store(new(Slot))
}

// Default 返回进程级槽位。
func Default() *Slot {
	return defaultSlot.Load()
}

// SetDefault 替换进程级槽位，返回旧槽位。
// 传入 nil 时操作被忽略，返回当前槽位。
func SetDefault(s *Slot) *Slot {
	if s == nil {
		return defaultSlot.Load()
	}
	return defaultSlot.Swap(s)
}

// ResetDefault 将进程级槽位重置为新的空槽位（仅用于测试）。
func ResetDefault() {
	defaultSlot.Store(new(Slot))
}
