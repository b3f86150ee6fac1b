package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging/backend/internal/domain"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[*domain.Error]string{
	// 用户错误
	domain.ErrMissingUserFields: "邮箱和名称不能为空",
	domain.ErrEmailExists:       "该邮箱已被注册",
	domain.ErrUserNotFound:      "用户不存在",
	domain.ErrInvalidEmail:      "邮箱格式无效",
	domain.ErrEmailTooLong:      "邮箱地址过长",
	domain.ErrNameTooLong:       "名称过长",

	// 消息错误
	domain.ErrMissingSendFields: "发件人、收件人和内容不能为空",
	domain.ErrNoValidRecipients: "过滤发件人和重复项后没有有效收件人",
	domain.ErrTooManyRecipients: "收件人数量超过上限",
	domain.ErrSubjectTooLong:    "主题过长",
	domain.ErrSenderNotFound:    "发件人不存在",
	domain.ErrRecipientsInvalid: "一个或多个收件人不存在",
	domain.ErrMessageNotFound:   "消息不存在",

	// 投递记录错误
	domain.ErrDeliveryNotFound:  "投递记录不存在",
	domain.ErrInvalidReadFilter: "read 参数只能为 true 或 false",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		if msg, ok := errorMessages[domainErr]; ok {
			return msg
		}
		return domainErr.Message
	}
	return MsgInternalError
}

// statusFor 根据错误类别选择 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError 将服务层错误写为统一响应
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		InternalError(c)
		return
	}
	Fail(c, status, domain.CodeOf(err), GetErrorMessage(err))
}

// 通用错误消息
const (
	MsgInvalidJSON     = "JSON格式错误"
	MsgRequestTooLarge = "请求体过大"
	MsgInternalError   = "服务器内部错误，请稍后重试"
	MsgAlreadyRead     = "已是已读状态"
	MsgMarkedRead      = "已标记为已读"
	MsgMessageSent     = "发送成功"
	MsgUserCreated     = "注册成功"
)
