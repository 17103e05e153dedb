// Package xerrors 提供标准化错误处理工具。
//
// 除了基础的包装与匹配能力之外，还承载 Anchor 的错误分类约定：
//   - 错误码（CodedError）：机器可读的错误分类，供日志、指标和 API 层使用
//   - HTTP 状态（StatusError）：外部依赖返回的状态码，供重试分类器判断
//
// 约定的错误码常量见 codes.go。
package xerrors

import (
	"errors"
	"fmt"
)

// New 创建一个新的错误。
func New(msg string) error {
	return errors.New(msg)
}

// Newf 创建一个格式化的错误。
func Newf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Wrap 用上下文信息包装错误，保留错误链。
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 用格式化的上下文信息包装错误。
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is 等价于 errors.Is。
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As 等价于 errors.As。
func As(err error, target any) bool {
	return errors.As(err, target)
}

// WithCode 用错误码包装错误。
func WithCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &CodedError{Code: code, Cause: err}
}

// CodedError 带有机器可读错误码的错误。
type CodedError struct {
	Code  string
	Cause error
}

func (e *CodedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("[%s]", e.Code)
}

func (e *CodedError) Unwrap() error {
	return e.Cause
}

// GetCode 从错误链中提取错误码。
// 同时识别 *CodedError 与任何实现了 Code() string 的领域错误类型。
func GetCode(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	var selfCoded interface{ Code() string }
	if errors.As(err, &selfCoded) {
		return selfCoded.Code()
	}
	return ""
}

// WithHTTPStatus 用外部依赖返回的 HTTP 状态码包装错误。
// 重试分类器据此判断 429/5xx 是否可重试。
func WithHTTPStatus(err error, status int) error {
	if err == nil {
		return nil
	}
	return &StatusError{Status: status, Cause: err}
}

// StatusError 携带 HTTP 状态码的错误。
type StatusError struct {
	Status int
	Cause  error
}

func (e *StatusError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("http %d: %v", e.Status, e.Cause)
	}
	return fmt.Sprintf("http %d", e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Cause
}

// HTTPStatus 从错误链中提取 HTTP 状态码，没有则返回 0。
func HTTPStatus(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// Must 如果 err 不为 nil，则 panic。仅用于初始化阶段。
func Must[T any](v T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("must: %v", err))
	}
	return v
}

// Combine 将多个错误合并为一个。
func Combine(errs ...error) error {
	var nonNil []error
	for _, err := range errs {
		if err != nil {
			nonNil = append(nonNil, err)
		}
	}
	switch len(nonNil) {
	case 0:
		return nil
	case 1:
		return nonNil[0]
	default:
		return errors.Join(nonNil...)
	}
}
