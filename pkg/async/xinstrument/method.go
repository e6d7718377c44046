package xinstrument

import (
	"fmt"
	"reflect"
	"strings"
)

// Method 被拦截方法的描述。
type Method struct {
	// Type 接收者的全限定类型名（包路径.类型名），指针接收者取其元素类型
	Type string
	// Name 方法名
	Name string
	// Params 参数类型，不含接收者
	Params []reflect.Type
}

// Key 返回 "Type.Name"，用于缓存与日志。
func (m Method) Key() string {
	return m.Type + "." + m.Name
}

// String 返回可读签名，如 "pkg.T.Delimit(a, b)"。
func (m Method) String() string {
	names := make([]string, len(m.Params))
	for i, p := range m.Params {
		names[i] = p.String()
	}
	return m.Key() + "(" + strings.Join(names, ", ") + ")"
}

// Call 一次被拦截的调用。Hook 可以原地改写 Args。
type Call struct {
	Method   Method
	Receiver any
	Args     []any
}

// TypeName 返回 t 的全限定类型名，指针类型取元素类型。
func TypeName(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// MethodOf 通过反射构造 recv 类型上名为 name 的方法描述。
func MethodOf(recv reflect.Type, name string) (Method, bool) {
	if recv == nil {
		return Method{}, false
	}
	rm, ok := recv.MethodByName(name)
	if !ok {
		return Method{}, false
	}
	return describe(recv, rm), true
}

// MustMethodOf 与 MethodOf 相同，方法不存在时 panic。
// 仅用于包级变量初始化，此时缺失方法属于编程错误。
func MustMethodOf(recv reflect.Type, name string) Method {
	m, ok := MethodOf(recv, name)
	if !ok {
		panic(fmt.Sprintf("xinstrument: %s has no method %s", TypeName(recv), name))
	}
	return m
}

// Methods 返回 recv 类型的全部导出方法描述。
func Methods(recv reflect.Type) []Method {
	if recv == nil {
		return nil
	}
	out := make([]Method, 0, recv.NumMethod())
	for i := range recv.NumMethod() {
		out = append(out, describe(recv, recv.Method(i)))
	}
	return out
}

func describe(recv reflect.Type, rm reflect.Method) Method {
	ft := rm.Type
	// 具体类型的方法值第一个参数是接收者，接口类型的没有
	start := 1
	if recv.Kind() == reflect.Interface {
		start = 0
	}
	params := make([]reflect.Type, 0, ft.NumIn()-start)
	for i := start; i < ft.NumIn(); i++ {
		params = append(params, ft.In(i))
	}
	return Method{Type: TypeName(recv), Name: rm.Name, Params: params}
}
