package handler

import (
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
	"github.com/qs3c/rfq_alchemy/internal/service"
)

// handleError 把服务层错误映射成业务码，未知错误只记日志
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrDocumentNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrActionItemNotFound),
		errors.Is(err, service.ErrJobNotFound):
		response.NotFoundError(c, err.Error())
	case errors.Is(err, service.ErrNoProposals),
		errors.Is(err, service.ErrAnalysisNotReady),
		errors.Is(err, service.ErrEmptyMessage),
		errors.Is(err, service.ErrInvalidFormat),
		errors.Is(err, service.ErrUnreadablePDF),
		errors.Is(err, service.ErrFileTooLarge):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrDocumentBusy),
		errors.Is(err, service.ErrDuplicateDocument):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, service.ErrQueueUnavailable):
		response.ServerError(c, err.Error())
	default:
		log.Printf("Request %s %s failed: %v", c.Request.Method, c.FullPath(), err)
		response.ServerError(c, "")
	}
}
