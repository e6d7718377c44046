package xexec

import (
	"context"
	"runtime"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
	"github.com/omeyang/xasync/pkg/async/xinstrument"
	"github.com/omeyang/xasync/pkg/observability/xlog"
	"github.com/omeyang/xasync/pkg/observability/xmetrics"
)

const (
	defaultQueueSize = 1024

	// drainBudget 单次调度最多连续执行的段数，超出后让出 worker。
	drainBudget = 64
)

// Option 引擎配置。
type Option func(*options)

type options struct {
	workers     int
	queueSize   int
	logger      xlog.Logger
	observer    xmetrics.Observer
	host        *xinstrument.Host
	base        context.Context
	propagate   bool
	hookOptions []xdelimit.HookOption
}

func defaultOptions() options {
	return options{
		workers:   runtime.GOMAXPROCS(0),
		queueSize: defaultQueueSize,
		observer:  xmetrics.NoopObserver{},
		base:      context.Background(),
	}
}

// WithWorkers 设置 worker 数量。
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithQueueSize 设置调度队列容量。
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// WithLogger 设置引擎日志，nil 忽略。未设置时使用 xlog.Default()。
func WithLogger(l xlog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver 设置段观测器，nil 忽略。
func WithObserver(obs xmetrics.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithHost 使用外部拦截宿主，nil 忽略。未设置时创建空宿主。
func WithHost(h *xinstrument.Host) Option {
	return func(o *options) {
		if h != nil {
			o.host = h
		}
	}
}

// WithBaseContext 设置每段开始时槽位重置到的上下文，nil 忽略。
func WithBaseContext(ctx context.Context) Option {
	return func(o *options) {
		if ctx != nil {
			o.base = ctx
		}
	}
}

// WithContextPropagation 在宿主上注册 xdelimit 钩子。
func WithContextPropagation(opts ...xdelimit.HookOption) Option {
	return func(o *options) {
		o.propagate = true
		o.hookOptions = append(o.hookOptions, opts...)
	}
}
