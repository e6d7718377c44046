package xexec

import (
	"sync"
	"sync/atomic"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
)

const (
	stateOpen int32 = iota
	stateResumed
	stateAbandoned
)

// failureRoute 一次 delimit 的失败出口。onError 至多调度一次，
// 之后同一 delimit 下的失败直接记为 Execution 错误。
type failureRoute struct {
	x       *Execution
	onError xdelimit.Callback[error]
	fired   atomic.Bool
}

func newFailureRoute(x *Execution, onError xdelimit.Callback[error]) *failureRoute {
	return &failureRoute{x: x, onError: onError}
}

func (r *failureRoute) handle(err error) {
	if !r.fired.CompareAndSwap(false, true) {
		r.x.fail(err)
		return
	}
	r.x.handle(r.onError, err)
}

// Continuation 一个可恢复段的剩余部分。只能 Resume 或 Complete 一次。
//
// 可以在任意 goroutine 上调用，恢复块总是回到所属 Execution 的串行队列执行。
type Continuation struct {
	x        *Execution
	failures *failureRoute
	state    atomic.Int32
}

// Resume 调度 block 作为 Execution 的下一段。block 为 nil 时等价于 Complete。
// 重复调用返回 ErrAlreadyResumed。
func (c *Continuation) Resume(block Block) error {
	if !c.state.CompareAndSwap(stateOpen, stateResumed) {
		return ErrAlreadyResumed
	}
	defer c.x.release()
	if block == nil {
		return nil
	}
	return c.x.enqueue(unit{
		name:   "continuation.resume",
		run:    func() error { return block(c.x) },
		onFail: c.failures.handle,
	})
}

// Complete 结束延续，不再执行后续逻辑。
func (c *Continuation) Complete() error {
	return c.Resume(nil)
}

// Execution 返回所属 Execution。
func (c *Continuation) Execution() *Execution {
	return c.x
}

// abandon 段失败时释放未恢复的延续。
func (c *Continuation) abandon() {
	if c.state.CompareAndSwap(stateOpen, stateAbandoned) {
		c.x.release()
	}
}

// Stream 流式段的发射端。Emit 任意次后必须 Close。
type Stream struct {
	x        *Execution
	failures *failureRoute

	mu     sync.Mutex
	closed bool
}

// Emit 调度 block 作为 Execution 的下一段，按调用顺序执行。
func (s *Stream) Emit(block Block) error {
	if block == nil {
		return ErrNilBlock
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	return s.x.enqueue(unit{
		name:   "stream.emit",
		run:    func() error { return block(s.x) },
		onFail: s.failures.handle,
	})
}

// Close 结束流。重复调用返回 ErrStreamClosed。
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	s.closed = true
	s.x.release()
	return nil
}

// Execution 返回所属 Execution。
func (s *Stream) Execution() *Execution {
	return s.x
}

func (s *Stream) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.x.release()
	}
}
