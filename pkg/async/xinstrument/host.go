package xinstrument

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/omeyang/xasync/pkg/observability/xlog"
)

// DefaultCacheSize 匹配缓存默认容量（按方法计）。
const DefaultCacheSize = 1024

var (
	// ErrNilHook 注册了 nil Hook。
	ErrNilHook = errors.New("xinstrument: nil hook")

	// ErrDuplicateHook 同名 Hook 已注册。
	ErrDuplicateHook = errors.New("xinstrument: duplicate hook")
)

// Hook 方法入口拦截逻辑。
type Hook interface {
	// Name 唯一名称，用于去重与日志
	Name() string

	// Matches 判断是否拦截该方法。结果按 Method.Key 缓存，应只依赖 Method。
	Matches(m Method) bool

	// OnEnter 在方法体执行前调用，可以原地改写 call.Args
	OnEnter(call *Call)
}

// HostOption 宿主配置。
type HostOption func(*Host)

// WithLogger 设置宿主日志，nil 忽略。
func WithLogger(l xlog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithCacheSize 设置匹配缓存容量，非正值忽略。
// 被拦截的方法集合通常很小，容量只用于限制反射生成的大量方法名。
func WithCacheSize(size int) HostOption {
	return func(h *Host) {
		if size > 0 {
			h.cacheSize = size
		}
	}
}

// Host 方法入口拦截宿主，并发安全。
type Host struct {
	// mu 保护 hooks；读锁同时覆盖缓存的"计算并写入"，保证 Register 清空后不会写回旧结果
	mu        sync.RWMutex
	hooks     []Hook
	cache     *lru.Cache[string, []Hook]
	cacheSize int
	enabled   atomic.Bool
	logger    xlog.Logger
}

// NewHost 创建启用状态的宿主。
func NewHost(opts ...HostOption) *Host {
	h := &Host{cacheSize: DefaultCacheSize}
	h.enabled.Store(true)
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	// cacheSize 恒为正数，lru.New 只在容量非正时返回错误
	h.cache, _ = lru.New[string, []Hook](h.cacheSize)
	return h
}

// Register 注册 Hook，按注册顺序执行。
func (h *Host) Register(hooks ...Hook) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, hk := range hooks {
		if hk == nil {
			return ErrNilHook
		}
		if slices.ContainsFunc(h.hooks, func(x Hook) bool { return x.Name() == hk.Name() }) {
			return fmt.Errorf("%w: %s", ErrDuplicateHook, hk.Name())
		}
		h.hooks = append(h.hooks, hk)
	}
	h.cache.Purge()
	return nil
}

// Hooks 返回已注册 Hook 的名称。
func (h *Host) Hooks() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, len(h.hooks))
	for i, hk := range h.hooks {
		names[i] = hk.Name()
	}
	return names
}

// SetEnabled 整体开关拦截。关闭后 Enter 直接返回。
func (h *Host) SetEnabled(enabled bool) {
	h.enabled.Store(enabled)
}

// Enabled 返回拦截是否开启。
func (h *Host) Enabled() bool {
	return h.enabled.Load()
}

// Enter 执行命中 call.Method 的全部 Hook。nil Host 或 nil call 安全返回。
func (h *Host) Enter(call *Call) {
	if h == nil || call == nil || !h.enabled.Load() {
		return
	}
	for _, hk := range h.matching(call.Method) {
		h.invoke(hk, call)
	}
}

func (h *Host) matching(m Method) []Hook {
	key := m.Key()
	h.mu.RLock()
	defer h.mu.RUnlock()
	if matched, ok := h.cache.Get(key); ok {
		return matched
	}
	// 并发未命中可能重复计算，结果相同，后写覆盖无妨
	var matched []Hook
	for _, hk := range h.hooks {
		if hk.Matches(m) {
			matched = append(matched, hk)
		}
	}
	h.cache.Add(key, matched)
	return matched
}

// invoke 执行单个 Hook，panic 被捕获后记录日志，不影响被拦截方。
func (h *Host) invoke(hk Hook, call *Call) {
	defer func() {
		if r := recover(); r != nil {
			h.log().Error(context.Background(), "xinstrument: hook panic suppressed",
				slog.String("hook", hk.Name()),
				slog.String("method", call.Method.Key()),
				slog.Any("panic", r))
		}
	}()
	hk.OnEnter(call)
}

func (h *Host) log() xlog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return xlog.Default()
}
