package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/rfq_alchemy/internal/model/dto"
	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
	"github.com/qs3c/rfq_alchemy/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

// CreateSession 新建会话并返回问候语
// POST /api/v1/chat/sessions
func (h *ChatHandler) CreateSession(c *gin.Context) {
	var req dto.CreateChatSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}
	sess, err := h.chat.CreateSession(c.Request.Context(), req.AnalysisSessionID)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.ChatHistory{SessionID: sess.ID, Messages: sess.Messages})
}

// Send POST /api/v1/chat/message
func (h *ChatHandler) Send(c *gin.Context) {
	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	resp, err := h.chat.Send(c.Request.Context(), service.SendInput{
		SessionID:         req.SessionID,
		Message:           req.Message,
		AnalysisSessionID: req.AnalysisSessionID,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// History GET /api/v1/chat/history/:session_id
func (h *ChatHandler) History(c *gin.Context) {
	history, err := h.chat.History(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, history)
}

// DeleteSession DELETE /api/v1/chat/session/:session_id
func (h *ChatHandler) DeleteSession(c *gin.Context) {
	if err := h.chat.DeleteSession(c.Request.Context(), c.Param("session_id")); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "deleted", nil)
}

// ListSessions GET /api/v1/chat/sessions
func (h *ChatHandler) ListSessions(c *gin.Context) {
	items, err := h.chat.ListSessions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessList(c, len(items), items)
}
