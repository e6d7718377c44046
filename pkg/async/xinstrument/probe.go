package xinstrument

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrIncompatible 目标 API 与探针期望不一致。
var ErrIncompatible = errors.New("xinstrument: incompatible target api")

// Requirement 一条形状要求：Type 上至少有一个方法命中 Match。
type Requirement struct {
	Type        reflect.Type
	Description string
	Match       Matcher
}

// MismatchError 单条要求未满足。
type MismatchError struct {
	Type        string
	Description string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("xinstrument: %s: no method matching %s", e.Type, e.Description)
}

// Unwrap 使 errors.Is(err, ErrIncompatible) 成立。
func (e *MismatchError) Unwrap() error {
	return ErrIncompatible
}

// Probe 兼容性探针：一组针对目标库 API 形状的要求。
type Probe struct {
	Name         string
	Requirements []Requirement
}

// Verify 校验全部要求，返回所有不满足项（errors.Join）。全部满足返回 nil。
func (p Probe) Verify() error {
	var errs []error
	for _, r := range p.Requirements {
		if !r.satisfied() {
			errs = append(errs, &MismatchError{Type: TypeName(r.Type), Description: r.Description})
		}
	}
	return errors.Join(errs...)
}

// Merge 合并多个探针的要求。
func (p Probe) Merge(others ...Probe) Probe {
	out := Probe{Name: p.Name, Requirements: append([]Requirement(nil), p.Requirements...)}
	for _, o := range others {
		out.Requirements = append(out.Requirements, o.Requirements...)
	}
	return out
}

func (r Requirement) satisfied() bool {
	if r.Type == nil {
		return false
	}
	match := r.Match
	if match == nil {
		match = Any()
	}
	for _, m := range Methods(r.Type) {
		if match(m) {
			return true
		}
	}
	return false
}

// HasMethod 要求存在名为 name、参数数量为 numIn 的方法（numIn < 0 不校验数量）。
func HasMethod(t reflect.Type, name string, numIn int) Requirement {
	match := Named(name)
	desc := name
	if numIn >= 0 {
		match = And(match, func(m Method) bool { return len(m.Params) == numIn })
		desc = fmt.Sprintf("%s/%d", name, numIn)
	}
	return Requirement{Type: t, Description: desc, Match: match}
}
