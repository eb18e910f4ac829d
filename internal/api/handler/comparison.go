package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/rfq_alchemy/internal/model/dto"
	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
	"github.com/qs3c/rfq_alchemy/internal/service"
)

type ComparisonHandler struct {
	cmp *service.ComparisonService
}

func NewComparisonHandler(cmp *service.ComparisonService) *ComparisonHandler {
	return &ComparisonHandler{cmp: cmp}
}

// Start 开始提案对比，请求体可以为空
// POST /api/v1/analysis/start
func (h *ComparisonHandler) Start(c *gin.Context) {
	var req dto.StartComparisonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.ParamError(c, err.Error())
			return
		}
	}
	in := service.StartInput{RFPDocumentID: req.RFPDocumentID, DocumentIDs: req.DocumentIDs}

	if async(c) {
		resp, err := h.cmp.Enqueue(c.Request.Context(), in)
		if err != nil {
			handleError(c, err)
			return
		}
		response.SuccessWithMessage(c, "queued", resp)
		return
	}

	sess, err := h.cmp.Start(c.Request.Context(), in)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.StartComparisonResponse{
		SessionID: sess.ID,
		Status:    sess.Status,
		Result:    sess.Comparison,
	})
}

// Status GET /api/v1/analysis/status/:session_id
func (h *ComparisonHandler) Status(c *gin.Context) {
	status, err := h.cmp.Status(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}

// Result GET /api/v1/analysis/result/:session_id
func (h *ComparisonHandler) Result(c *gin.Context) {
	result, err := h.cmp.Result(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

// ListSessions GET /api/v1/analysis/sessions
func (h *ComparisonHandler) ListSessions(c *gin.Context) {
	items, err := h.cmp.ListSessions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessList(c, len(items), items)
}

// DeleteSession DELETE /api/v1/analysis/session/:session_id
func (h *ComparisonHandler) DeleteSession(c *gin.Context) {
	if err := h.cmp.DeleteSession(c.Request.Context(), c.Param("session_id")); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "deleted", nil)
}

// Ask 针对对比结果提问
// POST /api/v1/analysis/question/:session_id
func (h *ComparisonHandler) Ask(c *gin.Context) {
	var req dto.QuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	resp, err := h.cmp.Ask(c.Request.Context(), c.Param("session_id"), req.Question)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}
