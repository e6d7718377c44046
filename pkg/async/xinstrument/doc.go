// Package xinstrument 提供方法入口拦截的宿主能力。
//
// 被拦截方（如 xexec.Execution.Delimit）在方法体开始前调用 Host.Enter，
// 宿主按注册顺序执行所有匹配的 Hook。Hook 可以原地改写 Call.Args，
// 被拦截方随后使用改写后的参数继续执行。
//
// # 匹配
//
// Matcher 基于 Method 描述（全限定类型名、方法名、参数类型）判断是否命中：
//
//	xinstrument.And(
//		xinstrument.TypeNamed("github.com/omeyang/xasync/pkg/async/xexec.Execution"),
//		xinstrument.NameStartsWith("Delimit"),
//		xinstrument.TakesArgument(0, xinstrument.Implements(callbackType)),
//	)
//
// 按名称前缀匹配意味着同前缀的新入口（如 DelimitStream）会被自动覆盖。
//
// # 异常隔离
//
// Hook 的 panic 会被宿主捕获并记录日志，不会影响被拦截方法的执行；
// 此时 Args 保持 panic 发生前的状态。
//
// # 兼容性探针
//
// Probe 在测试或构建校验阶段通过反射确认目标类型仍提供期望的方法形状，
// 用于在依赖的 API 漂移时尽早失败。它不在运行时热路径上执行。
package xinstrument
