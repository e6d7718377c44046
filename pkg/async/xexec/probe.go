package xexec

import (
	"reflect"

	"github.com/omeyang/xasync/pkg/async/xdelimit"
	"github.com/omeyang/xasync/pkg/async/xinstrument"
)

// CompatibilityProbe 返回 delimit 钩子所依赖的 Execution API 形状探针：
// 可拦截的 Delimit* 入口、槽位访问器以及延续与流的恢复入口。
func CompatibilityProbe() (xinstrument.Probe, error) {
	hook, err := xdelimit.NewHook(nil)
	if err != nil {
		return xinstrument.Probe{}, err
	}
	return hook.Probe(executionType).Merge(xinstrument.Probe{
		Requirements: []xinstrument.Requirement{
			xinstrument.HasMethod(executionType, "Carrier", 0),
			xinstrument.HasMethod(reflect.TypeFor[*Continuation](), "Resume", 1),
			xinstrument.HasMethod(reflect.TypeFor[*Stream](), "Emit", 1),
		},
	}), nil
}
