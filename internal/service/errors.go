package service

import (
	"errors"
	"fmt"
)

// ── 通用业务错误 ──

var (
	// ErrValidation 必填参数缺失或格式错误，具体字段见 *ValidationError
	ErrValidation = errors.New("参数校验失败")
	// ErrStorage 未归类的持久化失败，底层错误见 *StorageError
	ErrStorage = errors.New("数据存储失败")
	// ErrEmployeeNotFound 员工不存在
	ErrEmployeeNotFound = errors.New("员工不存在")
)

// ValidationError 参数校验错误，errors.Is(err, ErrValidation) 为 true
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func newValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StorageError 持久化错误，errors.Is(err, ErrStorage) 为 true，Unwrap 返回底层错误
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage.Error(), e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func newStorageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
