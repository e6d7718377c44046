package xpool

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
)

const (
	maxWorkers   = 1 << 16
	maxQueueSize = 1 << 24
)

// Pool 泛型 worker pool。
type Pool[T any] struct {
	handler func(T)
	queue   chan T
	opts    options
	workers int

	mu       sync.RWMutex // 保护 closed 与 queue 的发送/关闭
	closed   bool
	stopOnce sync.Once
	stopped  chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

var _ io.Closer = (*Pool[int])(nil)

// New 创建并启动 worker pool。
func New[T any](workers, queueSize int, handler func(T), opts ...Option) (*Pool[T], error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	if workers < 1 || workers > maxWorkers {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWorkers, workers)
	}
	if queueSize < 1 || queueSize > maxQueueSize {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, queueSize)
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	p := &Pool[T]{
		handler: handler,
		queue:   make(chan T, queueSize),
		opts:    o,
		workers: workers,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
	p.wg.Add(workers)
	for range workers {
		go p.worker()
	}
	go func() {
		p.wg.Wait()
		close(p.done)
	}()
	return p, nil
}

// worker 只从 queue 读取直到其关闭，保证关闭时处理完剩余任务。
func (p *Pool[T]) worker() {
	defer p.wg.Done()
	for task := range p.queue {
		p.run(task)
	}
}

func (p *Pool[T]) run(task T) {
	defer func() {
		if r := recover(); r != nil {
			attrs := []any{
				slog.String("pool", p.opts.name),
				slog.Any("panic", r),
				slog.String("task_type", fmt.Sprintf("%T", task)),
				slog.String("stack", string(debug.Stack())),
			}
			if p.opts.logTaskValue {
				attrs = append(attrs, slog.Any("task", task))
			}
			p.opts.logger.Error("xpool: worker panic recovered", attrs...)
		}
	}()
	p.handler(task)
}

// Submit 非阻塞提交任务。队列满返回 ErrQueueFull，已关闭返回 ErrPoolStopped。
func (p *Pool[T]) Submit(task T) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// SubmitWait 阻塞提交任务，直到入队、ctx 结束或 pool 关闭。
//
// 等待期间持有读锁；Shutdown 先关闭 stopped 唤醒等待者，再获取写锁。
func (p *Pool[T]) SubmitWait(ctx context.Context, task T) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolStopped
	}
	select {
	case p.queue <- task:
		return nil
	case <-p.stopped:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close 等价于 Shutdown(context.Background())。
func (p *Pool[T]) Close() error {
	return p.Shutdown(context.Background())
}

// Shutdown 拒绝新任务并等待队列排空。
//
// ctx 到期时立即返回 ctx 错误，残留 worker 继续在后台处理剩余任务，
// 可通过 Done 等待最终完成。重复调用安全。
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	p.stop()
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool[T]) stop() {
	// 先唤醒阻塞中的 SubmitWait（它们持有读锁），再取写锁关闭队列
	p.stopOnce.Do(func() { close(p.stopped) })

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.queue)
}

// Done 返回所有 worker 退出后关闭的 channel。
func (p *Pool[T]) Done() <-chan struct{} {
	return p.done
}

// Workers 返回 worker 数量。
func (p *Pool[T]) Workers() int {
	return p.workers
}

// QueueSize 返回队列容量。
func (p *Pool[T]) QueueSize() int {
	return cap(p.queue)
}
