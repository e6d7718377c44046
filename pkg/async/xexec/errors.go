package xexec

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineClosed 引擎已关闭。
	ErrEngineClosed = errors.New("xexec: engine closed")

	// ErrExecutionDone Execution 已结束，不再接受新段。
	ErrExecutionDone = errors.New("xexec: execution done")

	// ErrAlreadyResumed 延续已恢复或已结束。
	ErrAlreadyResumed = errors.New("xexec: continuation already resumed")

	// ErrStreamClosed 流已关闭。
	ErrStreamClosed = errors.New("xexec: stream closed")

	// ErrNilBlock 传入了 nil 的执行块。
	ErrNilBlock = errors.New("xexec: nil block")

	// ErrNilSegment 传入了 nil 的段回调。
	ErrNilSegment = errors.New("xexec: nil segment")
)

// PanicError 段内 panic 转换成的错误。
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("xexec: panic: %v", e.Value)
}

// Unwrap panic 值本身是 error 时返回它。
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
