package common

import "fmt"

// ValidationError 输入校验错误
// 非法输入（如格式错误的租户ID）必须以类型化错误快速失败，
// 不允许静默退化为未过滤的查询路径
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// NewValidationError 创建校验错误
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// TransactionStateError 事务状态错误
// 在已有事务时再次 Begin 属于编程错误，与存储层错误区分开
type TransactionStateError struct {
	Op     string
	Reason string
}

func (e *TransactionStateError) Error() string {
	return fmt.Sprintf("transaction state error in %s: %s", e.Op, e.Reason)
}

// NewTransactionStateError 创建事务状态错误
func NewTransactionStateError(op, reason string) *TransactionStateError {
	return &TransactionStateError{Op: op, Reason: reason}
}
