package xconf

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omeyang/xasync/pkg/observability/xlog"
)

// AppConfig xasync 应用配置。
type AppConfig struct {
	Engine          EngineConfig          `koanf:"engine"`
	Log             LogConfig             `koanf:"log"`
	Instrumentation InstrumentationConfig `koanf:"instrumentation"`
}

// EngineConfig 执行引擎配置。
type EngineConfig struct {
	Workers         int           `koanf:"workers"`
	QueueSize       int           `koanf:"queue_size"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig 日志配置。Rotation.Filename 为空时输出到 stderr。
type LogConfig struct {
	Level     string        `koanf:"level"`
	Format    string        `koanf:"format"`
	AddSource bool          `koanf:"add_source"`
	Rotation  xlog.Rotation `koanf:"rotation"`
}

// InstrumentationConfig delimit 拦截配置。
type InstrumentationConfig struct {
	Enabled      bool   `koanf:"enabled"`
	TypeName     string `koanf:"type_name"`
	MethodPrefix string `koanf:"method_prefix"`
}

// DefaultAppConfig 返回默认配置：4 worker、1024 队列、info/text 日志、开启拦截。
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Engine: EngineConfig{
			Workers:         4,
			QueueSize:       1024,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Instrumentation: InstrumentationConfig{
			Enabled: true,
		},
	}
}

// Validate 校验配置，返回全部不合法项。
func (c AppConfig) Validate() error {
	var errs []error
	if c.Engine.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: engine.workers must be positive, got %d", ErrInvalidConfig, c.Engine.Workers))
	}
	if c.Engine.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("%w: engine.queue_size must be positive, got %d", ErrInvalidConfig, c.Engine.QueueSize))
	}
	if c.Engine.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: engine.shutdown_timeout must be positive", ErrInvalidConfig))
	}
	if _, err := xlog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("%w: log.level: %w", ErrInvalidConfig, err))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalidConfig, c.Log.Format))
	}
	return errors.Join(errs...)
}

// LoadApp 在 DefaultAppConfig 之上叠加 cfg 的内容并校验。
func LoadApp(cfg Config) (AppConfig, error) {
	app := DefaultAppConfig()
	if cfg == nil {
		return app, nil
	}
	if err := cfg.Unmarshal("", &app); err != nil {
		return AppConfig{}, err
	}
	if err := app.Validate(); err != nil {
		return AppConfig{}, err
	}
	return app, nil
}
