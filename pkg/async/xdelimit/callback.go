package xdelimit

import (
	"context"
	"errors"

	"github.com/omeyang/xasync/pkg/context/xambient"
)

// ErrNilCallback 调用了 nil 的原始回调。
var ErrNilCallback = errors.New("xdelimit: nil callback")

// Callback 调度器回调的标记联合：原始回调 Func[T] 或已包装回调 *Wrapped[T]。
//
// 设计决策: 接口包含未导出方法，包外无法实现，
// 幂等判断只需一次类型断言，不依赖反射标记。
type Callback[T any] interface {
	// Call 以 arg 调用回调
	Call(arg T) error

	wrappable
}

// wrappable 与类型参数无关的包装入口，供按形状匹配的钩子使用。
type wrappable interface {
	wrapWith(c xambient.Carrier, snapshot context.Context) any
	wrapped() bool
	// isNil 覆盖 nil Func 与 nil *Wrapped 这类非 nil 接口值
	isNil() bool
}

// Func 原始回调。
type Func[T any] func(arg T) error

// Call 调用 f。f 为 nil 时返回 ErrNilCallback。
func (f Func[T]) Call(arg T) error {
	if f == nil {
		return ErrNilCallback
	}
	return f(arg)
}

func (f Func[T]) wrapped() bool { return false }

func (f Func[T]) isNil() bool { return f == nil }

func (f Func[T]) wrapWith(c xambient.Carrier, snapshot context.Context) any {
	if f == nil {
		return f
	}
	return &Wrapped[T]{fn: f, snapshot: snapshot, carrier: c}
}

// Wrapped 携带快照的回调。只能通过 Wrap 或 Capture 创建。
type Wrapped[T any] struct {
	fn       Func[T]
	snapshot context.Context
	carrier  xambient.Carrier
}

// Call 在快照作用域内调用原回调。
//
// 保存槽位旧值并安装快照，原回调返回、返回错误或 panic 后都会恢复旧值。
// 原回调的错误原样返回。w 为 nil 时返回 ErrNilCallback。
func (w *Wrapped[T]) Call(arg T) error {
	if w == nil {
		return ErrNilCallback
	}
	prev := w.carrier.Swap(w.snapshot)
	defer w.carrier.Swap(prev)
	return w.fn.Call(arg)
}

// Snapshot 返回包装时捕获的环境上下文。
func (w *Wrapped[T]) Snapshot() context.Context {
	return w.snapshot
}

// Carrier 返回包装时使用的槽位。
func (w *Wrapped[T]) Carrier() xambient.Carrier {
	return w.carrier
}

// Unwrap 返回原始回调。
func (w *Wrapped[T]) Unwrap() Func[T] {
	return w.fn
}

func (w *Wrapped[T]) wrapped() bool { return true }

func (w *Wrapped[T]) isNil() bool { return w == nil }

// 已包装回调不再包装，保持首次快照。
func (w *Wrapped[T]) wrapWith(xambient.Carrier, context.Context) any {
	return w
}

// Wrap 以 c 的当前值为快照包装 cb。
//
// cb 已是 *Wrapped[T] 时原样返回；cb 为 nil（含 nil Func 与 nil *Wrapped）时返回 nil。
// c 为 nil 时使用 xambient.Default()。不会失败。
func Wrap[T any](c xambient.Carrier, cb Callback[T]) Callback[T] {
	if cb == nil || cb.isNil() {
		return nil
	}
	c = carrierOr(c)
	return wrap(c, c.Current(), cb)
}

// WrapFunc 是 Wrap(c, Func[T](fn)) 的简写。
func WrapFunc[T any](c xambient.Carrier, fn func(T) error) Callback[T] {
	if fn == nil {
		return nil
	}
	return Wrap[T](c, Func[T](fn))
}

// IsWrapped 报告 v 是否为已包装回调。
func IsWrapped(v any) bool {
	w, ok := v.(wrappable)
	return ok && !w.isNil() && w.wrapped()
}

// Capture 原地包装一次 delimit 调用的两个回调参数。
//
// 两个参数共享同一次读取的快照。nil 指针或 nil 回调（含 nil Func 与 nil *Wrapped）保持不变。
func Capture[E, S any](c xambient.Carrier, onError *Callback[E], segment *Callback[S]) {
	c = carrierOr(c)
	snapshot := c.Current()
	if onError != nil && *onError != nil && !(*onError).isNil() {
		*onError = wrap(c, snapshot, *onError)
	}
	if segment != nil && *segment != nil && !(*segment).isNil() {
		*segment = wrap(c, snapshot, *segment)
	}
}

func wrap[T any](c xambient.Carrier, snapshot context.Context, cb Callback[T]) Callback[T] {
	out, ok := cb.wrapWith(c, snapshot).(Callback[T])
	if !ok {
		return cb
	}
	return out
}

func carrierOr(c xambient.Carrier) xambient.Carrier {
	if c == nil {
		return xambient.Default()
	}
	return c
}
