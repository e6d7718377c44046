package xexec

import (
	"context"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
	"github.com/omeyang/xasync/pkg/async/xinstrument"
	"github.com/omeyang/xasync/pkg/context/xambient"
	"github.com/omeyang/xasync/pkg/observability/xlog"
	"github.com/omeyang/xasync/pkg/observability/xmetrics"
)

// 包级初始化时解析，方法缺失属于编程错误。
var (
	executionType       = reflect.TypeFor[*Execution]()
	delimitMethod       = xinstrument.MustMethodOf(executionType, "Delimit")
	delimitStreamMethod = xinstrument.MustMethodOf(executionType, "DelimitStream")
)

// unit 一段待执行逻辑。
type unit struct {
	name string
	// entry 段开始时的环境上下文，nil 表示引擎基础上下文
	entry  context.Context
	run    func() error
	onFail func(err error)
}

// Execution 一次逻辑任务，由串行执行的若干段组成。
type Execution struct {
	id     string
	engine *Engine
	slot   *xambient.Slot

	mu       sync.Mutex
	queue    []unit
	running  bool
	pending  int
	finished bool
	err      error
	done     chan struct{}
}

func newExecution(e *Engine) *Execution {
	return &Execution{
		id:     uuid.NewString(),
		engine: e,
		slot:   xambient.NewSlot(e.base),
		done:   make(chan struct{}),
	}
}

// ID 返回 Execution 的唯一标识。
func (x *Execution) ID() string {
	return x.id
}

// Carrier 返回本 Execution 的环境上下文槽位。实现 xambient.Provider。
func (x *Execution) Carrier() xambient.Carrier {
	return x.slot
}

// Context 返回当前环境上下文。
func (x *Execution) Context() context.Context {
	return x.slot.Current()
}

// SetContext 替换当前段剩余部分的环境上下文。
func (x *Execution) SetContext(ctx context.Context) {
	x.slot.Swap(ctx)
}

// Done 返回 Execution 结束时关闭的 channel。
func (x *Execution) Done() <-chan struct{} {
	return x.done
}

// Err 返回 Execution 的结束错误。未结束或成功结束时返回 nil。
func (x *Execution) Err() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if !x.finished {
		return nil
	}
	return x.err
}

// Wait 等待 Execution 结束，返回第一个未被处理的错误。
func (x *Execution) Wait(ctx context.Context) error {
	select {
	case <-x.done:
		return x.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delimit 划定一个可恢复段。
//
// 方法入口先交给拦截宿主，宿主上的钩子可以原地替换两个回调。
// segment 随后作为新段执行并获得 Continuation；segment 或恢复块的首次失败调度 onError，
// 同一 delimit 下的后续失败直接记为 Execution 错误。
// onError 可以为 nil，此时失败直接结束 Execution。
func (x *Execution) Delimit(onError xdelimit.Callback[error], segment xdelimit.Callback[*Continuation]) error {
	if segment == nil {
		return ErrNilSegment
	}
	onError, segment = intercept(x, delimitMethod, onError, segment)

	failures := newFailureRoute(x, onError)
	cont := &Continuation{x: x, failures: failures}
	if err := x.hold(); err != nil {
		return err
	}
	err := x.enqueue(unit{
		name: "delimit.segment",
		run:  func() error { return segment.Call(cont) },
		onFail: func(err error) {
			failures.handle(err)
			cont.abandon()
		},
	})
	if err != nil {
		cont.abandon()
	}
	return err
}

// DelimitStream 划定一个流式段，segment 获得可多次 Emit 的 Stream。
func (x *Execution) DelimitStream(onError xdelimit.Callback[error], segment xdelimit.Callback[*Stream]) error {
	if segment == nil {
		return ErrNilSegment
	}
	onError, segment = intercept(x, delimitStreamMethod, onError, segment)

	failures := newFailureRoute(x, onError)
	stream := &Stream{x: x, failures: failures}
	if err := x.hold(); err != nil {
		return err
	}
	err := x.enqueue(unit{
		name: "delimit.stream",
		run:  func() error { return segment.Call(stream) },
		onFail: func(err error) {
			failures.handle(err)
			stream.abandon()
		},
	})
	if err != nil {
		stream.abandon()
	}
	return err
}

// intercept 以 []any 形式把两个回调交给拦截宿主，取回（可能被替换的）回调。
func intercept[S any](x *Execution, m xinstrument.Method, onError xdelimit.Callback[error], segment xdelimit.Callback[S]) (xdelimit.Callback[error], xdelimit.Callback[S]) {
	call := &xinstrument.Call{Method: m, Receiver: x, Args: []any{onError, segment}}
	x.engine.host.Enter(call)
	if cb, ok := call.Args[0].(xdelimit.Callback[error]); ok {
		onError = cb
	}
	if cb, ok := call.Args[1].(xdelimit.Callback[S]); ok {
		segment = cb
	}
	return onError, segment
}

// handle 把失败交给 onError；onError 缺失或无法调度时直接记为 Execution 错误。
func (x *Execution) handle(onError xdelimit.Callback[error], err error) {
	if onError == nil {
		x.fail(err)
		return
	}
	if e := x.enqueue(unit{
		name:   "delimit.on_error",
		run:    func() error { return onError.Call(err) },
		onFail: x.fail,
	}); e != nil {
		x.fail(err)
	}
}

// hold 为未结束的延续或流占用一个计数。
func (x *Execution) hold() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.finished {
		return ErrExecutionDone
	}
	x.pending++
	return nil
}

func (x *Execution) enqueue(u unit) error {
	x.mu.Lock()
	if x.finished {
		x.mu.Unlock()
		return ErrExecutionDone
	}
	x.pending++
	x.queue = append(x.queue, u)
	schedule := !x.running
	x.running = true
	x.mu.Unlock()

	if schedule {
		x.engine.dispatch(x)
	}
	return nil
}

// release 归还一个计数，归零时结束 Execution。
func (x *Execution) release() {
	x.mu.Lock()
	x.pending--
	if x.pending > 0 || x.finished {
		x.mu.Unlock()
		return
	}
	x.finished = true
	err := x.err
	x.mu.Unlock()
	x.finish(err)
}

// fail 记录第一个未处理错误，Execution 继续运行直到计数归零。
func (x *Execution) fail(err error) {
	x.mu.Lock()
	if x.err == nil {
		x.err = err
	}
	x.mu.Unlock()
}

// abort 调度失败时立即结束 Execution，丢弃剩余段。
func (x *Execution) abort(err error) {
	x.mu.Lock()
	if x.err == nil {
		x.err = err
	}
	x.queue = nil
	x.running = false
	if x.finished {
		x.mu.Unlock()
		return
	}
	x.finished = true
	err = x.err
	x.mu.Unlock()
	x.finish(err)
}

func (x *Execution) finish(err error) {
	close(x.done)
	x.engine.finished(x, err)
}

// drain 在 worker 上串行执行排队的段，最多 drainBudget 个后让出 worker。
func (x *Execution) drain() {
	for i := 0; ; i++ {
		x.mu.Lock()
		if len(x.queue) == 0 {
			x.running = false
			x.mu.Unlock()
			return
		}
		if i == drainBudget {
			x.mu.Unlock()
			x.engine.dispatch(x)
			return
		}
		u := x.queue[0]
		x.queue[0] = unit{}
		x.queue = x.queue[1:]
		x.mu.Unlock()

		x.runUnit(u)
	}
}

// runUnit 以 u.entry（缺省为引擎基础上下文）作为环境上下文执行一段，
// 结束后槽位回到基础上下文。
func (x *Execution) runUnit(u unit) {
	e := x.engine
	entry := u.entry
	if entry == nil {
		entry = e.base
	}
	x.slot.Set(entry)

	_, span := xmetrics.Start(entry, e.observer, xmetrics.SpanOptions{
		Component: "xexec",
		Operation: u.name,
		Kind:      xmetrics.KindInternal,
		Attrs:     []xmetrics.Attr{xmetrics.String("xexec.execution_id", x.id)},
	})
	err := safeCall(u.run)
	span.End(xmetrics.Result{Err: err})

	if err != nil {
		e.logger.Debug(x.slot.Current(), "xexec: unit failed",
			slog.String("execution_id", x.id),
			slog.String("unit", u.name),
			xlog.Err(err))
	}
	x.slot.Set(e.base)

	if err != nil && u.onFail != nil {
		u.onFail(err)
	}
	x.release()
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}

var _ xambient.Provider = (*Execution)(nil)
