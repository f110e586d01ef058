package service

import (
	"errors"
)

const (
	BadRequest          = 400
	Unauthorized        = 401
	NotFound            = 404
	InternalServerError = 500
)

var (
	ErrParamInvalid         = errors.New("参数错误")
	ErrConversationNotFound = errors.New("会话不存在")
	ErrConversationClosed   = errors.New("会话已关闭")
	ErrMessageNotFound      = errors.New("消息不存在")
	ErrMessageNotOwned      = errors.New("只能修改自己发送的消息")
	ErrStatusInvalid        = errors.New("非法的状态流转")
	UnauthorizedError       = errors.New("权限不足")
	UnExpectedError         = errors.New("系统异常，请稍后重试")
)

var ErrorMap = map[error]int{
	ErrParamInvalid:         BadRequest,
	ErrConversationNotFound: NotFound,
	ErrConversationClosed:   BadRequest,
	ErrMessageNotFound:      NotFound,
	ErrMessageNotOwned:      Unauthorized,
	ErrStatusInvalid:        BadRequest,
	UnauthorizedError:       Unauthorized,
	UnExpectedError:         InternalServerError,
}

// ErrorCode 取业务错误码，未登记的按 500 处理
func ErrorCode(err error) int {
	if code, ok := ErrorMap[err]; ok {
		return code
	}
	return InternalServerError
}
