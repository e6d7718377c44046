package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce      = 100 * time.Millisecond
	defaultReloadRetries = 3
	defaultRetryDelay    = 50 * time.Millisecond
)

// WatchCallback 变更回调。err 非 nil 表示重载失败或监视出错，此时 cfg 仍为旧配置。
type WatchCallback func(cfg Config, err error)

// WatchOption 监视选项。
type WatchOption func(*Watcher)

// WithDebounce 设置防抖时间，非正值忽略。窗口内的多次变更只触发一次重载。
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithReloadRetry 设置单次变更的重载尝试次数与间隔。
// 编辑器分段写入时第一次读取可能拿到半截文件，短暂重试即可恢复。
// attempts 为 0 或 delay 非正时保持默认值。
func WithReloadRetry(attempts uint, delay time.Duration) WatchOption {
	return func(w *Watcher) {
		if attempts > 0 {
			w.attempts = attempts
		}
		if delay > 0 {
			w.retryDelay = delay
		}
	}
}

// Watcher 配置文件监视器。
type Watcher struct {
	cfg      Config
	fs       *fsnotify.Watcher
	callback WatchCallback
	debounce time.Duration
	filename string

	attempts   uint
	retryDelay time.Duration

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	stopErr  error
}

// Watch 开始监视 cfg 对应的文件，直到 ctx 结束或 Stop。
func Watch(ctx context.Context, cfg Config, callback WatchCallback, opts ...WatchOption) (*Watcher, error) {
	if cfg == nil || cfg.Path() == "" {
		return nil, ErrNotReloadable
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWatch, err)
	}
	// 监视目录而非文件：rename 式保存会替换文件 inode
	dir := filepath.Dir(cfg.Path())
	if err := fs.Add(dir); err != nil {
		return nil, errors.Join(fmt.Errorf("%w: watch %s: %w", ErrWatch, dir, err), fs.Close())
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		cfg:      cfg,
		fs:       fs,
		callback: callback,
		debounce: defaultDebounce,
		filename: filepath.Base(cfg.Path()),
		cancel:   cancel,
		done:     make(chan struct{}),

		attempts:   defaultReloadRetries,
		retryDelay: defaultRetryDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	go w.loop(ctx)
	return w, nil
}

// Stop 停止监视并等待监视 goroutine 退出。重复调用安全。
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		w.cancel()
		<-w.done
		w.stopErr = w.fs.Close()
	})
	return w.stopErr
}

// Done 返回监视 goroutine 退出后关闭的 channel。
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.relevant(ev) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.notify(fmt.Errorf("%w: %w", ErrWatch, err))
		case <-timer.C:
			err := w.reload(ctx)
			if ctx.Err() != nil {
				return
			}
			w.notify(err)
		}
	}
}

// reload 重载配置，只重试读取与解析失败；反序列化和校验错误重试无意义。
func (w *Watcher) reload(ctx context.Context) error {
	return retry.New(
		retry.Context(ctx),
		retry.Attempts(w.attempts),
		retry.Delay(w.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrLoadFailed) || errors.Is(err, ErrParseFailed)
		}),
	).Do(w.cfg.Reload)
}

// relevant 只关心目标文件的写入、创建与 rename。
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if filepath.Base(ev.Name) != w.filename {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) notify(err error) {
	if w.callback != nil {
		w.callback(w.cfg, err)
	}
}
