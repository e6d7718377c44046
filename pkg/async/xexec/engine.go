package xexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
	"github.com/omeyang/xasync/pkg/async/xinstrument"
	"github.com/omeyang/xasync/pkg/observability/xlog"
	"github.com/omeyang/xasync/pkg/observability/xmetrics"
	"github.com/omeyang/xasync/pkg/util/xpool"
)

// Block 在 Execution 上运行的一段逻辑。
type Block func(x *Execution) error

// Engine 延续式执行引擎。创建即启动，Close 后不再接受新 Execution。
type Engine struct {
	pool     *xpool.Pool[*Execution]
	host     *xinstrument.Host
	logger   xlog.Logger
	observer xmetrics.Observer
	base     context.Context

	mu     sync.Mutex
	closed bool
	live   sync.WaitGroup
}

// New 创建并启动引擎。
func New(opts ...Option) (*Engine, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = xlog.Default()
	}
	if o.host == nil {
		o.host = xinstrument.NewHost(xinstrument.WithLogger(o.logger))
	}
	if o.propagate {
		hook, err := xdelimit.NewHook(nil, o.hookOptions...)
		if err != nil {
			return nil, fmt.Errorf("xexec: %w", err)
		}
		if err := o.host.Register(hook); err != nil {
			return nil, fmt.Errorf("xexec: register delimit hook: %w", err)
		}
	}

	e := &Engine{
		host:     o.host,
		logger:   o.logger,
		observer: o.observer,
		base:     o.base,
	}
	pool, err := xpool.New(o.workers, o.queueSize, (*Execution).drain, xpool.WithName("xexec"))
	if err != nil {
		return nil, fmt.Errorf("xexec: %w", err)
	}
	e.pool = pool
	return e, nil
}

// Host 返回引擎的拦截宿主。
func (e *Engine) Host() *xinstrument.Host {
	return e.host
}

// Workers 返回 worker 数量。
func (e *Engine) Workers() int {
	return e.pool.Workers()
}

// Start 启动一次 Execution。首段 block 以 ctx 作为环境上下文运行。
func (e *Engine) Start(ctx context.Context, block Block) (*Execution, error) {
	if block == nil {
		return nil, ErrNilBlock
	}
	if ctx == nil {
		ctx = e.base
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	e.live.Add(1)
	e.mu.Unlock()

	x := newExecution(e)
	e.logger.Debug(ctx, "xexec: execution started", slog.String("execution_id", x.id))
	if err := x.enqueue(unit{
		name:   "execution.start",
		entry:  ctx,
		run:    func() error { return block(x) },
		onFail: x.fail,
	}); err != nil {
		return nil, err
	}
	return x, nil
}

// Close 拒绝新 Execution，等待存量 Execution 完成后停止 worker。
//
// ctx 到期时返回 ctx 错误，仍在运行的 Execution 继续在后台完成。
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		e.live.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		return fmt.Errorf("xexec: waiting executions: %w", ctx.Err())
	}
	return e.pool.Shutdown(ctx)
}

// dispatch 把 x 放入 worker 调度队列。
//
// 队列满时由独立 goroutine 阻塞提交，避免 worker 在排空时自我阻塞。
func (e *Engine) dispatch(x *Execution) {
	err := e.pool.Submit(x)
	switch {
	case err == nil:
	case errors.Is(err, xpool.ErrQueueFull):
		go func() {
			if err := e.pool.SubmitWait(context.Background(), x); err != nil {
				x.abort(err)
			}
		}()
	default:
		x.abort(err)
	}
}

func (e *Engine) finished(x *Execution, err error) {
	if err != nil {
		e.logger.Warn(e.base, "xexec: execution failed",
			slog.String("execution_id", x.id), xlog.Err(err))
	} else {
		e.logger.Debug(e.base, "xexec: execution completed", slog.String("execution_id", x.id))
	}
	e.live.Done()
}
