package release

import (
	"errors"
	"fmt"
)

// ErrorKind 业务错误分类，HTTP 层据此选择状态码
type ErrorKind string

const (
	NotFound           ErrorKind = "NotFound"
	InvalidState       ErrorKind = "InvalidState"
	PreconditionFailed ErrorKind = "PreconditionFailed"
	Forbidden          ErrorKind = "Forbidden"
	ValidationError    ErrorKind = "ValidationError"
	Conflict           ErrorKind = "Conflict"
)

// Error 带分类和原因的业务错误
type Error struct {
	Kind   ErrorKind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

// ErrorKind 返回分类字符串
func (e *Error) ErrorKind() string {
	return string(e.Kind)
}

// NewError 创建业务错误
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// KindOf 返回错误分类，非业务错误返回空串
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind 判断错误分类
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

func notFound(format string, args ...interface{}) error {
	return NewError(NotFound, format, args...)
}

func invalidState(format string, args ...interface{}) error {
	return NewError(InvalidState, format, args...)
}

func preconditionFailed(format string, args ...interface{}) error {
	return NewError(PreconditionFailed, format, args...)
}

func forbidden(format string, args ...interface{}) error {
	return NewError(Forbidden, format, args...)
}

func validationError(format string, args ...interface{}) error {
	return NewError(ValidationError, format, args...)
}

func conflict(format string, args ...interface{}) error {
	return NewError(Conflict, format, args...)
}
