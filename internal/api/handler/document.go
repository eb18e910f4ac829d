package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/model/dto"
	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
	"github.com/qs3c/rfq_alchemy/internal/pkg/textutil"
	"github.com/qs3c/rfq_alchemy/internal/service"
)

const (
	listContentLength = 500
	maxSearchK        = 20
	// multipart 边界和表单头的余量
	multipartOverhead = 64 << 10
)

type DocumentHandler struct {
	docs  *service.DocumentService
	index *service.IndexService
}

func NewDocumentHandler(docs *service.DocumentService, index *service.IndexService) *DocumentHandler {
	return &DocumentHandler{docs: docs, index: index}
}

// UploadProposal 上传提案
// POST /api/v1/proposals/upload
func (h *DocumentHandler) UploadProposal(c *gin.Context) {
	h.upload(c, model.DocumentKindProposal)
}

// UploadRFP 上传待优化的 RFP
// POST /api/v1/rfp-optimization/upload-rfp
func (h *DocumentHandler) UploadRFP(c *gin.Context) {
	h.upload(c, model.DocumentKindRFP)
}

// upload 上传失败一律返回 4xx，不走 HTTP 200 + 业务码
func (h *DocumentHandler) upload(c *gin.Context, kind string) {
	limit := h.docs.MaxUploadBytes() + multipartOverhead
	if c.Request.ContentLength > limit {
		response.TooLarge(c, service.ErrFileTooLarge.Error())
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.TooLarge(c, service.ErrFileTooLarge.Error())
			return
		}
		response.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	res, err := h.docs.Ingest(c.Request.Context(), service.UploadInput{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   file,
		Kind:     kind,
	})
	if err != nil {
		var dup *service.DuplicateError
		switch {
		case errors.As(err, &dup):
			response.Conflict(c, err.Error(), gin.H{"existing_document_id": dup.ExistingID})
		case errors.Is(err, service.ErrFileTooLarge):
			response.TooLarge(c, err.Error())
		case errors.Is(err, service.ErrInvalidFormat), errors.Is(err, service.ErrUnreadablePDF):
			response.BadRequest(c, err.Error())
		default:
			handleError(c, err)
		}
		return
	}

	doc := res.Document
	response.SuccessWithMessage(c, "uploaded", dto.UploadDocumentResponse{
		DocumentID:     doc.ID,
		Kind:           doc.Kind,
		Title:          doc.Title,
		Filename:       doc.Filename,
		Size:           doc.Size,
		PageCount:      doc.PageCount,
		Budget:         doc.Budget,
		TimelineMonths: doc.TimelineMonths,
		Category:       doc.Category,
		UploadedAt:     doc.UploadedAt.Format(time.RFC3339),
		Indexed:        res.Indexed,
	})
}

func listItem(doc *model.Document, content string) dto.DocumentListItem {
	return dto.DocumentListItem{
		ID:             doc.ID,
		Kind:           doc.Kind,
		Title:          doc.Title,
		Filename:       doc.Filename,
		Content:        content,
		Budget:         doc.Budget,
		TimelineMonths: doc.TimelineMonths,
		Category:       doc.Category,
		UploadedAt:     doc.UploadedAt.Format(time.RFC3339),
	}
}

// List 文档列表，正文截断到 500 字符
// GET /api/v1/proposals?kind=
func (h *DocumentHandler) List(c *gin.Context) {
	kind := c.Query("kind")
	if kind != "" && kind != model.DocumentKindProposal && kind != model.DocumentKindRFP {
		response.ParamError(c, "kind must be proposal or rfp")
		return
	}
	docs, err := h.docs.List(kind)
	if err != nil {
		handleError(c, err)
		return
	}
	items := make([]dto.DocumentListItem, len(docs))
	for i, d := range docs {
		items[i] = listItem(d, textutil.Truncate(d.Content, listContentLength))
	}
	response.SuccessList(c, len(items), items)
}

// Search 向量检索
// GET /api/v1/proposals/search?q=&k=
func (h *DocumentHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.ParamError(c, "q is required")
		return
	}
	k := 0
	if raw := c.Query("k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > maxSearchK {
			response.ParamError(c, fmt.Sprintf("k must be between 1 and %d", maxSearchK))
			return
		}
		k = v
	}

	results, err := h.index.Search(c.Request.Context(), q, k)
	if err != nil {
		handleError(c, err)
		return
	}
	hits := make([]dto.SearchHit, len(results))
	for i, r := range results {
		hits[i] = dto.SearchHit{DocumentID: r.DocumentID, Title: r.Title, Snippet: r.Snippet, Score: r.Score}
	}
	response.SuccessList(c, len(hits), hits)
}

// Get 文档详情
// GET /api/v1/proposals/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.docs.Get(c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.DocumentDetail{
		DocumentListItem: listItem(doc, doc.Content),
		Size:             doc.Size,
		PageCount:        doc.PageCount,
		Fingerprint:      doc.Fingerprint,
		DownloadURL:      h.docs.DownloadURL(doc),
	})
}

// File 下载原始 PDF
// GET /api/v1/proposals/:id/file
func (h *DocumentHandler) File(c *gin.Context) {
	doc, rc, err := h.docs.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, doc.Size, doc.ContentType, rc, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", doc.Filename),
	})
}

// Delete 删除文档
// DELETE /api/v1/proposals/:id
func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.docs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.SuccessWithMessage(c, "deleted", nil)
}
