// Package async 提供异步执行与上下文传播相关的子包。
//
// 子包列表：
//   - xexec: 执行引擎，Execution 在挂起点（delimit）之间串行推进
//   - xdelimit: 回调包装，在挂起点捕获环境上下文并在恢复时还原
//   - xinstrument: 方法入口拦截宿主，按方法形状匹配并改写参数
//
// 设计原则：
//   - 同一 Execution 任意时刻只有一个执行单元运行
//   - 上下文传播由拦截完成，业务代码无需手动捕获
package async
