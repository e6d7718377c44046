package xdelimit

import (
	"context"
	"fmt"
	"reflect"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xasync/pkg/async/xinstrument"
	"github.com/omeyang/xasync/pkg/context/xambient"
)

const (
	// HookName 钩子注册名。
	HookName = "xdelimit"

	// DefaultTypeName 默认拦截的调度器类型。
	DefaultTypeName = "github.com/omeyang/xasync/pkg/async/xexec.Execution"

	// DefaultMethodPrefix 默认拦截的方法名前缀。
	DefaultMethodPrefix = "Delimit"

	// MetricWrapTotal 包装计数指标名。
	MetricWrapTotal = "xasync.delimit.wrap.total"

	meterName = "github.com/omeyang/xasync/pkg/async/xdelimit"

	outcomeWrapped = "wrapped"
	outcomeReused  = "reused"
)

var wrappableType = reflect.TypeFor[wrappable]()

// CallbackShaped 判断参数类型是否为回调形状（Callback[T] 或其实现）。
func CallbackShaped() xinstrument.TypePredicate {
	return xinstrument.Implements(wrappableType)
}

// HookOption 钩子配置。
type HookOption func(*hookOptions)

type hookOptions struct {
	typeName      string
	methodPrefix  string
	meterProvider metric.MeterProvider
}

// WithTypeName 设置拦截的全限定类型名，空字符串忽略。
func WithTypeName(name string) HookOption {
	return func(o *hookOptions) {
		if name != "" {
			o.typeName = name
		}
	}
}

// WithMethodPrefix 设置拦截的方法名前缀，空字符串忽略。
func WithMethodPrefix(prefix string) HookOption {
	return func(o *hookOptions) {
		if prefix != "" {
			o.methodPrefix = prefix
		}
	}
}

// WithMeterProvider 设置包装计数使用的 MeterProvider，nil 忽略。
// 未设置时使用 otel 全局 MeterProvider。
func WithMeterProvider(p metric.MeterProvider) HookOption {
	return func(o *hookOptions) {
		if p != nil {
			o.meterProvider = p
		}
	}
}

// Hook 在 delimit 方法入口包装前两个回调参数。
//
// 槽位解析顺序：接收者实现 xambient.Provider 时使用其 Carrier，
// 否则使用创建时传入的 fallback（nil 表示 xambient.Default()）。
type Hook struct {
	fallback xambient.Carrier
	match    xinstrument.Matcher
	desc     string
	wraps    metric.Int64Counter
}

// NewHook 创建钩子。
func NewHook(fallback xambient.Carrier, opts ...HookOption) (*Hook, error) {
	o := hookOptions{
		typeName:     DefaultTypeName,
		methodPrefix: DefaultMethodPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}

	wraps, err := o.meterProvider.Meter(meterName).Int64Counter(
		MetricWrapTotal,
		metric.WithDescription("Callbacks passed through the delimit hook"),
	)
	if err != nil {
		return nil, fmt.Errorf("xdelimit: create counter: %w", err)
	}

	shaped := CallbackShaped()
	return &Hook{
		fallback: fallback,
		match: xinstrument.And(
			xinstrument.TypeNamed(o.typeName),
			xinstrument.NameStartsWith(o.methodPrefix),
			xinstrument.MinArgs(2),
			xinstrument.TakesArgument(0, shaped),
			xinstrument.TakesArgument(1, shaped),
		),
		desc:  fmt.Sprintf("%s*(callback, callback, ...)", o.methodPrefix),
		wraps: wraps,
	}, nil
}

// Name 实现 xinstrument.Hook。
func (h *Hook) Name() string {
	return HookName
}

// Matches 实现 xinstrument.Hook。
func (h *Hook) Matches(m xinstrument.Method) bool {
	return h.match(m)
}

// OnEnter 原地包装 call.Args 的前两个回调参数，共享同一快照。
func (h *Hook) OnEnter(call *xinstrument.Call) {
	if call == nil || len(call.Args) < 2 {
		return
	}
	c := h.carrier(call.Receiver)
	snapshot := c.Current()
	for i := range 2 {
		w, ok := call.Args[i].(wrappable)
		if !ok || w.isNil() {
			continue
		}
		outcome := outcomeWrapped
		if w.wrapped() {
			outcome = outcomeReused
		}
		call.Args[i] = w.wrapWith(c, snapshot)
		h.wraps.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("method", call.Method.Name),
			attribute.String("outcome", outcome),
		))
	}
}

// Probe 返回校验 target 仍提供可拦截入口的探针。
func (h *Hook) Probe(target reflect.Type) xinstrument.Probe {
	return xinstrument.Probe{
		Name: HookName,
		Requirements: []xinstrument.Requirement{
			{Type: target, Description: h.desc, Match: h.match},
		},
	}
}

func (h *Hook) carrier(recv any) xambient.Carrier {
	if p, ok := recv.(xambient.Provider); ok {
		if c := p.Carrier(); c != nil {
			return c
		}
	}
	return carrierOr(h.fallback)
}

var _ xinstrument.Hook = (*Hook)(nil)
