package httptransport

import (
	"github.com/gin-gonic/gin"

	"messaging/backend/internal/domain"
	"messaging/backend/internal/middleware"
	"messaging/backend/internal/service"
)

type sendMessageRequest struct {
	SenderID     string   `json:"senderId"`
	RecipientIDs []string `json:"recipientIds"`
	Subject      *string  `json:"subject"`
	Content      string   `json:"content"`
}

// sendMessage godoc
// @Summary 发送消息
// @Description 收件人去重并排除发件人，消息与全部投递记录在同一事务中写入
// @Tags Messages
// @Accept json
// @Produce json
// @Param request body sendMessageRequest true "消息内容"
// @Success 201 {object} service.SendResult
// @Failure 400 {object} Response
// @Failure 404 {object} Response
// @Router /v1/messages [post]
func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.messages.Send(c.Request.Context(), service.SendMessageInput{
		SenderID:     req.SenderID,
		RecipientIDs: req.RecipientIDs,
		Subject:      req.Subject,
		Content:      req.Content,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.Set(middleware.KeyRecipientCount, len(result.Recipients))
	CreatedWithMsg(c, MsgMessageSent, result)
}

// getMessage godoc
// @Summary 获取消息
// @Description 返回消息、发件人以及每个收件人的阅读状态
// @Tags Messages
// @Produce json
// @Param id path string true "消息ID"
// @Failure 404 {object} Response
// @Router /v1/messages/{id} [get]
func (h *Handler) getMessage(c *gin.Context) {
	view, err := h.messages.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	Success(c, view)
}

type markReadResponse struct {
	AlreadyRead bool                   `json:"alreadyRead"`
	Record      *domain.DeliveryRecord `json:"record"`
}

// markAsRead godoc
// @Summary 标记已读
// @Description 幂等；重复调用返回 alreadyRead=true，readAt 保持首次阅读时间
// @Tags Deliveries
// @Produce json
// @Param id path string true "投递记录ID"
// @Failure 404 {object} Response
// @Router /v1/deliveries/{id}/read [post]
func (h *Handler) markAsRead(c *gin.Context) {
	result, err := h.messages.MarkAsRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.Set(middleware.KeyReadTransition, string(result.Transition))
	msg := MsgMarkedRead
	if result.AlreadyRead {
		msg = MsgAlreadyRead
	}
	SuccessWithMsg(c, msg, markReadResponse{
		AlreadyRead: result.AlreadyRead,
		Record:      result.Record,
	})
}
