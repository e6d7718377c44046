package xconf

import "github.com/knadh/koanf/v2"

// Format 配置文件格式。
type Format string

const (
	// FormatYAML YAML 格式。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// Config 配置实例。基础读取直接使用 Client() 返回的 koanf 实例。
type Config interface {
	// Client 返回当前 koanf 实例
	Client() *koanf.Koanf

	// Unmarshal 把 path 下的配置反序列化到 target，path 为空表示整个配置
	Unmarshal(path string, target any) error

	// Reload 重新读取配置文件，仅对 New 创建的实例有效
	Reload() error

	// Path 返回配置文件路径，NewFromBytes 创建的实例返回空字符串
	Path() string

	// Format 返回配置格式
	Format() Format
}

// Option 加载选项。
type Option func(*options)

type options struct {
	delim string
	tag   string
}

func defaultOptions() options {
	return options{delim: ".", tag: "koanf"}
}

// WithDelim 设置键分隔符，默认 "."。空字符串忽略。
func WithDelim(delim string) Option {
	return func(o *options) {
		if delim != "" {
			o.delim = delim
		}
	}
}

// WithTag 设置 Unmarshal 使用的结构体标签，默认 "koanf"。空字符串忽略。
func WithTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.tag = tag
		}
	}
}

// MustUnmarshal 与 cfg.Unmarshal 相同，失败时 panic。仅用于启动期必需配置。
func MustUnmarshal(cfg Config, path string, target any) {
	if err := cfg.Unmarshal(path, target); err != nil {
		panic(err)
	}
}
