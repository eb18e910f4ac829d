package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/rfq_alchemy/internal/model/dto"
	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
	"github.com/qs3c/rfq_alchemy/internal/service"
)

type OptimizationHandler struct {
	opt *service.OptimizationService
}

func NewOptimizationHandler(opt *service.OptimizationService) *OptimizationHandler {
	return &OptimizationHandler{opt: opt}
}

// async 查询参数 async=true 时走任务队列
func async(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.DefaultQuery("async", "false"))
	return v
}

// Analyze RFP 优化分析
// POST /api/v1/rfp-optimization/analyze
func (h *OptimizationHandler) Analyze(c *gin.Context) {
	var req dto.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	in := service.AnalyzeInput{
		RFPDocumentID:         req.RFPDocumentID,
		SessionID:             req.SessionID,
		IncludeHistoricalData: req.IncludeHistoricalData,
	}

	if async(c) {
		resp, err := h.opt.Enqueue(c.Request.Context(), in)
		if err != nil {
			handleError(c, err)
			return
		}
		response.SuccessWithMessage(c, "queued", resp)
		return
	}

	sess, err := h.opt.Analyze(c.Request.Context(), in)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, service.OptimizeResponse(sess))
}

// GetAnalysis 会话分析结果
// GET /api/v1/rfp-optimization/analysis/:session_id
func (h *OptimizationHandler) GetAnalysis(c *gin.Context) {
	resp, err := h.opt.GetAnalysis(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// ListSessions GET /api/v1/rfp-optimization/sessions
func (h *OptimizationHandler) ListSessions(c *gin.Context) {
	items, err := h.opt.ListSessions(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.SuccessList(c, len(items), items)
}

// ActionItems GET /api/v1/rfp-optimization/action-items/:session_id
func (h *OptimizationHandler) ActionItems(c *gin.Context) {
	resp, err := h.opt.ActionItems(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, resp)
}

// UpdateActionItem 切换行动项完成状态
// PUT /api/v1/rfp-optimization/action-items/:session_id/:item_id
func (h *OptimizationHandler) UpdateActionItem(c *gin.Context) {
	var req dto.UpdateActionItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	item, err := h.opt.UpdateActionItem(c.Request.Context(), c.Param("session_id"), c.Param("item_id"), *req.Completed, req.Notes)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, item)
}

// Health GET /api/v1/rfp-optimization/health
func (h *OptimizationHandler) Health(c *gin.Context) {
	health, err := h.opt.Health(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, health)
}
