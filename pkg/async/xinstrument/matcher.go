package xinstrument

import (
	"reflect"
	"strings"
)

// Matcher 判断方法是否命中。
type Matcher func(m Method) bool

// TypePredicate 判断参数类型是否满足条件。
type TypePredicate func(t reflect.Type) bool

// Any 匹配任何方法。
func Any() Matcher {
	return func(Method) bool { return true }
}

// TypeNamed 匹配全限定类型名。
func TypeNamed(name string) Matcher {
	return func(m Method) bool { return m.Type == name }
}

// Named 匹配方法名。
func Named(name string) Matcher {
	return func(m Method) bool { return m.Name == name }
}

// NameStartsWith 匹配方法名前缀。
func NameStartsWith(prefix string) Matcher {
	return func(m Method) bool { return strings.HasPrefix(m.Name, prefix) }
}

// MinArgs 要求至少 n 个参数。
func MinArgs(n int) Matcher {
	return func(m Method) bool { return len(m.Params) >= n }
}

// TakesArgument 要求第 i 个参数满足 pred。
func TakesArgument(i int, pred TypePredicate) Matcher {
	return func(m Method) bool {
		if i < 0 || i >= len(m.Params) || pred == nil {
			return false
		}
		return pred(m.Params[i])
	}
}

// And 全部命中时命中。无参数时等价于 Any。
func And(ms ...Matcher) Matcher {
	return func(m Method) bool {
		for _, match := range ms {
			if match != nil && !match(m) {
				return false
			}
		}
		return true
	}
}

// Implements 参数类型实现 iface（iface 必须是接口类型）。
func Implements(iface reflect.Type) TypePredicate {
	return func(t reflect.Type) bool {
		if t == nil || iface == nil || iface.Kind() != reflect.Interface {
			return false
		}
		return t.Implements(iface)
	}
}

// Is 参数类型恰好为 want。
func Is(want reflect.Type) TypePredicate {
	return func(t reflect.Type) bool { return t == want }
}
