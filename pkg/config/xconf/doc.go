// Package xconf 加载 xasync 的配置，基于 koanf 实现。
//
// 提供两层能力：
//
//   - 通用加载：New（文件，按扩展名识别 yaml/json）、NewFromBytes（显式格式）、
//     Unmarshal、并发安全的 Reload，以及基于 fsnotify 的文件监视 Watch
//   - 应用配置：AppConfig 描述执行引擎、日志与拦截三部分，
//     LoadApp 在默认值之上叠加配置文件内容并校验
//
// # 并发安全
//
// Reload 串行执行，解析成功后原子替换 koanf 实例；解析失败时保留旧配置。
// Client 返回的实例在 Reload 后仍可使用，但数据是旧的，不要长期持有。
//
// # 监视
//
// Watch 监视配置文件所在目录（兼容编辑器先写临时文件再 rename 的保存方式），
// 变更经防抖后调用 Reload 并把结果交给回调。回调在监视 goroutine 上串行执行，
// 不要在回调中调用 Stop。
package xconf
