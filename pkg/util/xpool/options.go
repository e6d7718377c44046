package xpool

import "log/slog"

// Option 定义 Pool 可选配置函数类型。
type Option func(*options)

type options struct {
	logger       *slog.Logger
	name         string
	logTaskValue bool
}

func defaultOptions() options {
	return options{logger: slog.Default()}
}

// WithLogger 设置日志记录器，nil 忽略。
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置 pool 名称，用于区分日志来源。
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogTaskValue panic 日志中输出完整 task 值（可能含敏感信息）。
func WithLogTaskValue() Option {
	return func(o *options) {
		o.logTaskValue = true
	}
}
