package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
	"github.com/qs3c/rfq_alchemy/internal/service"
)

type JobHandler struct {
	jobs *service.JobService
}

func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Get 异步任务状态
// GET /api/v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid job id")
		return
	}
	status, err := h.jobs.Get(id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, status)
}
