package repository

import (
	"errors"
	"fmt"

	"github.com/habitflow/internal/store"
)

// ValidationError 表示调用方输入未通过本地前置校验，不会重试、直接返回
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StoreError 表示文档存储拒绝了操作，Message 为面向用户的可读描述
type StoreError struct {
	Code    store.Code
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

// codeMessages 将已知错误码映射为可读描述
var codeMessages = map[store.Code]string{
	store.CodePermissionDenied:  "you do not have permission to perform this action",
	store.CodeNotFound:          "the habit could not be found",
	store.CodeAlreadyExists:     "a habit with this identifier already exists",
	store.CodeResourceExhausted: "too many requests, please try again later",
	store.CodeUnavailable:       "the service is temporarily unavailable",
}

const genericStoreMessage = "something went wrong, please try again"

// mapStoreError 将存储错误包装为 StoreError
// 未识别的错误码回退到存储端原始信息，仍为空时使用通用兜底文案
func mapStoreError(action string, err error) error {
	var storeErr *store.Error
	if !errors.As(err, &storeErr) {
		return &StoreError{
			Code:    store.CodeInternal,
			Message: fmt.Sprintf("%s: %s", action, genericStoreMessage),
		}
	}

	reason, known := codeMessages[storeErr.Code]
	if !known {
		reason = storeErr.Message
		if reason == "" {
			reason = genericStoreMessage
		}
	}

	return &StoreError{
		Code:    storeErr.Code,
		Message: fmt.Sprintf("%s: %s", action, reason),
	}
}
