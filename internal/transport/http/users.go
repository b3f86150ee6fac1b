package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging/backend/internal/domain"
	"messaging/backend/internal/middleware"
	"messaging/backend/internal/service"
)

type createUserRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// bindJSON 解析请求体；失败时已写出响应，返回 false
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Fail(c, http.StatusRequestEntityTooLarge, middleware.ErrCodeBodyTooLarge, MsgRequestTooLarge)
			return false
		}
		BadRequest(c, "invalid_json", MsgInvalidJSON)
		return false
	}
	return true
}

// createUser godoc
// @Summary 注册用户
// @Tags Users
// @Accept json
// @Produce json
// @Param request body createUserRequest true "用户信息"
// @Success 201 {object} domain.User
// @Failure 400 {object} Response
// @Failure 409 {object} Response
// @Router /v1/users [post]
func (h *Handler) createUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.users.Create(c.Request.Context(), service.CreateUserInput{
		Email: req.Email,
		Name:  req.Name,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	CreatedWithMsg(c, MsgUserCreated, user)
}

// listUsers godoc
// @Summary 用户列表
// @Tags Users
// @Produce json
// @Router /v1/users [get]
func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.users.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, newList(users))
}

// getUser godoc
// @Summary 获取用户
// @Tags Users
// @Produce json
// @Param id path string true "用户ID"
// @Failure 404 {object} Response
// @Router /v1/users/{id} [get]
func (h *Handler) getUser(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, user)
}

// getSentMessages godoc
// @Summary 已发送消息
// @Description 返回用户发出的消息，时间倒序，每条附带全部收件人及阅读状态
// @Tags Users
// @Produce json
// @Param id path string true "用户ID"
// @Router /v1/users/{id}/sent [get]
func (h *Handler) getSentMessages(c *gin.Context) {
	views, err := h.messages.ListSent(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, newList(views))
}

// getInboxMessages godoc
// @Summary 收件箱
// @Description 未读在前；可用 read=true|false 过滤
// @Tags Users
// @Produce json
// @Param id path string true "用户ID"
// @Param read query bool false "阅读状态过滤"
// @Failure 400 {object} Response
// @Router /v1/users/{id}/inbox [get]
func (h *Handler) getInboxMessages(c *gin.Context) {
	read, err := parseReadFilter(c.Query("read"))
	if err != nil {
		respondError(c, err)
		return
	}

	items, err := h.messages.ListInbox(c.Request.Context(), c.Param("id"), read)
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, newList(items))
}

// parseReadFilter 空字符串表示不过滤，只接受 true 和 false
func parseReadFilter(raw string) (*bool, error) {
	var value bool
	switch raw {
	case "":
		return nil, nil
	case "true":
		value = true
	case "false":
		value = false
	default:
		return nil, domain.ErrInvalidReadFilter
	}
	return &value, nil
}
