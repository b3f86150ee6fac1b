package domain

import (
	"errors"
	"fmt"
)

// 错误类别。具体错误通过 errors.Is 归入其中之一。
var (
	ErrValidation = errors.New("validation error")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
	ErrInternal   = errors.New("internal error")
)

// Error 携带稳定错误码的业务错误
type Error struct {
	kind    error
	Code    string
	Message string
}

// NewError 创建归属于指定类别的业务错误
func NewError(kind error, code, message string) *Error {
	return &Error{kind: kind, Code: code, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap 返回错误类别，使 errors.Is(err, ErrNotFound) 等判断成立
func (e *Error) Unwrap() error {
	return e.kind
}

// 用户目录错误
var (
	ErrMissingUserFields = NewError(ErrValidation, "missing_fields", "email and name are required")
	ErrEmailExists       = NewError(ErrConflict, "email_exists", "email already registered")
	ErrUserNotFound      = NewError(ErrNotFound, "user_not_found", "user not found")
)

// 消息服务错误
var (
	// ErrMissingSendFields 与 ErrNoValidRecipients 同为校验错误，但错误码不同，调用方可以区分
	ErrMissingSendFields = NewError(ErrValidation, "missing_fields", "senderId, recipientIds and content are required")
	ErrNoValidRecipients = NewError(ErrValidation, "no_valid_recipients", "no valid recipients after filtering sender and duplicates")
	ErrTooManyRecipients = NewError(ErrValidation, "too_many_recipients", "too many recipients")
	ErrSenderNotFound    = NewError(ErrNotFound, "sender_not_found", "sender not found")
	ErrRecipientsInvalid = NewError(ErrNotFound, "recipients_invalid", "one or more recipients invalid")
	ErrMessageNotFound   = NewError(ErrNotFound, "message_not_found", "message not found")
	ErrDeliveryNotFound  = NewError(ErrNotFound, "delivery_not_found", "delivery record not found")
	ErrInvalidReadFilter = NewError(ErrValidation, "invalid_read_filter", "read filter must be true or false")
)

// Internal 将存储层等非调用方原因的失败包装为内部错误
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInternal, err)
}

// CodeOf 返回错误码；非业务错误返回 "internal"
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}
