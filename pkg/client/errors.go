// Package client 错误归一化
package client

import (
	"fmt"
	"net/http"

	"users-admin/internal/validate"
)

// ErrorKind 错误类别
//
// 用显式的类别枚举代替对状态码的运行时判断，
// 调用方按类别选择提示文案和恢复策略。
type ErrorKind string

const (
	KindNetwork     ErrorKind = "network"      // 传输层故障，Status 恒为 0
	KindValidation  ErrorKind = "validation"   // 字段校验失败（400）
	KindNotFound    ErrorKind = "not_found"    // 目标不存在（404）
	KindConflict    ErrorKind = "conflict"     // 邮箱冲突（409）
	KindRateLimited ErrorKind = "rate_limited" // 触发限流（429）
	KindServer      ErrorKind = "server"       // 服务端错误（>=500）
	KindUnexpected  ErrorKind = "unexpected"   // 其他非预期状态
)

// APIError 归一化后的调用错误
//
// 所有操作要么返回解析后的成功数据，要么返回 *APIError，
// 原始传输错误不会直接泄漏给调用方。
type APIError struct {
	Kind    ErrorKind            `json:"kind"`
	Status  int                  `json:"status"` // 0 表示请求未到达服务端
	Message string               `json:"message"`
	Details []validate.Violation `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("network error: %s", e.Message)
	}
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// UserMessage 按错误类别返回面向用户的提示文案
func (e *APIError) UserMessage() string {
	switch e.Kind {
	case KindNetwork:
		return "Cannot reach the server. Check your connection and try again."
	case KindValidation:
		if len(e.Details) > 0 {
			return fmt.Sprintf("Please check the %s field: %s", e.Details[0].Field, e.Details[0].Message)
		}
		return "Please correct the invalid fields and try again."
	case KindNotFound:
		return "That user no longer exists."
	case KindConflict:
		return "That email address is already in use."
	case KindRateLimited:
		return "Too many requests. Wait a moment and try again."
	case KindServer:
		return "The server ran into a problem. Try again later."
	default:
		return "Something unexpected happened. Try again."
	}
}

// classify 将 HTTP 状态码映射为错误类别
func classify(status int) ErrorKind {
	switch {
	case status == http.StatusBadRequest:
		return KindValidation
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	default:
		return KindUnexpected
	}
}

// networkError 构造传输层错误（服务不可达、连接中断等）
func networkError(err error) *APIError {
	return &APIError{Kind: KindNetwork, Status: 0, Message: err.Error()}
}

// validationError 构造本地预检失败错误（未发起网络请求）
func validationError(v *validate.Violation) *APIError {
	return &APIError{
		Kind:    KindValidation,
		Status:  http.StatusBadRequest,
		Message: "Validation failed",
		Details: []validate.Violation{*v},
	}
}
