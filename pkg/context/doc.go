// Package context 提供环境上下文相关的子包。
//
// 子包列表：
//   - xambient: 环境上下文槽位，执行单元切换时读写"当前 context"
//   - xctx: 追踪字段（trace/span/request ID）的注入、提取与 slog 属性
//
// 设计原则：
//   - 显式传参优先，xambient 只服务于无法显式传参的挂起/恢复边界
//   - 支持 W3C Trace Context 标准
package context
