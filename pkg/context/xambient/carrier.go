package xambient

import (
	"context"
	"sync/atomic"
)

// Carrier 环境上下文槽位。
//
// 实现必须满足：
//   - Current 永不返回 nil，未设置时返回 context.Background()
//   - Swap(nil) 等价于 Swap(context.Background())
//   - Swap 是纯赋值操作，不会失败
type Carrier interface {
	// Current 返回当前生效的环境上下文
	Current() context.Context

	// Swap 安装 ctx 并返回之前的值，用于作用域恢复
	Swap(ctx context.Context) (prev context.Context)
}

// box 包装 context.Context，使其可以存入 atomic.Pointer。
type box struct {
	ctx context.Context
}

// Slot 单一逻辑槽位。零值可用，初始值为 context.Background()。
type Slot struct {
	v atomic.Pointer[box]
}

// NewSlot 创建以 initial 为初始值的槽位。initial 为 nil 时使用 Background。
func NewSlot(initial context.Context) *Slot {
	s := &Slot{}
	s.v.Store(&box{ctx: orBackground(initial)})
	return s
}

// Current 返回槽位当前值。
func (s *Slot) Current() context.Context {
	if b := s.v.Load(); b != nil {
		return b.ctx
	}
	return context.Background()
}

// Swap 安装 ctx 并返回旧值。
func (s *Slot) Swap(ctx context.Context) context.Context {
	old := s.v.Swap(&box{ctx: orBackground(ctx)})
	if old == nil {
		return context.Background()
	}
	return old.ctx
}

// Set 直接覆盖槽位值，不返回旧值。
// 仅用于初始化场景（如执行开始时写入根上下文）。
func (s *Slot) Set(ctx context.Context) {
	s.v.Store(&box{ctx: orBackground(ctx)})
}

// Run 在 ctx 作为环境上下文的作用域内执行 fn。
//
// fn 返回后（包括返回错误或 panic）槽位恢复为调用前的值。
// fn 的错误原样返回。c 为 nil 时使用 Default()。
func Run(c Carrier, ctx context.Context, fn func() error) error {
	if c == nil {
		c = Default()
	}
	prev := c.Swap(ctx)
	defer c.Swap(prev)
	return fn()
}

// Current 读取 c 的当前值。c 为 nil 时读取 Default()。
func Current(c Carrier) context.Context {
	if c == nil {
		c = Default()
	}
	return c.Current()
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

var _ Carrier = (*Slot)(nil)

// Provider 持有自身 Carrier 的对象（如一次执行），
// 拦截逻辑据此找到应当捕获与恢复的槽位。
type Provider interface {
	Carrier() Carrier
}

