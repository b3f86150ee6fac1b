package httptransport

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging/backend/internal/middleware"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`              // 业务状态码
	Msg     string      `json:"msg"`               // 中文提示信息
	ErrCode string      `json:"errCode,omitempty"` // 机器可读错误码，仅失败时出现
	Data    interface{} `json:"data,omitempty"`    // 数据载荷
}

// ListData 列表响应载荷
type ListData[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newList[T any](items []T) ListData[T] {
	if items == nil {
		items = []T{}
	}
	return ListData[T]{Items: items, Count: len(items)}
}

// 业务状态码定义
const (
	CodeSuccess       = 200 // 成功
	CodeCreated       = 201 // 创建成功
	CodeInternalError = 500 // 服务器内部错误
)

// Success 成功响应（200）
func Success(c *gin.Context, data interface{}) {
	SuccessWithMsg(c, "成功", data)
}

// SuccessWithMsg 成功响应（自定义消息）
func SuccessWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: CodeSuccess,
		Msg:  msg,
		Data: data,
	})
}

// CreatedWithMsg 创建成功响应（自定义消息）
func CreatedWithMsg(c *gin.Context, msg string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code: CodeCreated,
		Msg:  msg,
		Data: data,
	})
}

// Fail 失败响应，同时把错误码写入上下文供日志与指标中间件使用
func Fail(c *gin.Context, httpCode int, errCode, msg string) {
	c.Set(middleware.KeyErrorCode, errCode)
	c.JSON(httpCode, Response{
		Code:    httpCode,
		Msg:     msg,
		ErrCode: errCode,
	})
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, errCode, msg string) {
	Fail(c, http.StatusBadRequest, errCode, msg)
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context) {
	Fail(c, http.StatusInternalServerError, "internal", MsgInternalError)
}
