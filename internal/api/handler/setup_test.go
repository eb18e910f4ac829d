package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/api/middleware"
	"github.com/qs3c/rfq_alchemy/internal/embedding"
	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pdf"
	"github.com/qs3c/rfq_alchemy/internal/pkg/response"
	"github.com/qs3c/rfq_alchemy/internal/pkg/storage"
	"github.com/qs3c/rfq_alchemy/internal/pkg/ws"
	"github.com/qs3c/rfq_alchemy/internal/repository"
	"github.com/qs3c/rfq_alchemy/internal/service"
	"github.com/qs3c/rfq_alchemy/internal/session"
	"github.com/qs3c/rfq_alchemy/internal/testutil"
	"github.com/qs3c/rfq_alchemy/internal/vectorindex"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const pdfHeader = "%PDF-1.4\n"

const proposalText = `Cloud migration proposal from Acme Systems. We will migrate the CRM to a cloud hosted
platform with API integration and security hardening. Budget: $240,000. Timeline: 8 months.`

type textExtractor struct{}

func (textExtractor) Extract(path string) (*pdf.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &pdf.Result{Text: strings.TrimPrefix(string(data), pdfHeader), PageCount: 1}, nil
}

// testContext 处理器测试用的完整依赖
type testContext struct {
	DB       *gorm.DB
	Cfg      *config.Config
	LLM      *llm.MockClient
	Sessions *session.MemoryStore
	Index    *service.IndexService
	Docs     *service.DocumentService
	Opt      *service.OptimizationService
	Cmp      *service.ComparisonService
	Chat     *service.ChatService
	Jobs     *service.JobService
	Hub      *ws.Hub
}

func setupTestContext(t *testing.T) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "handler-test-secret", ExpireHours: 1},
		Upload: config.UploadConfig{
			MaxSize:           4096,
			TempDir:           t.TempDir(),
			AllowedExtensions: []string{".pdf"},
		},
		LLM:      config.LLMConfig{MaxTokens: 4000, Temperature: 0.1},
		Vector:   config.VectorConfig{Backend: "memory", SearchK: 3},
		Analysis: config.AnalysisConfig{FallbackMode: "static"},
		Storage:  config.StorageConfig{Backend: "local"},
		Session:  config.SessionConfig{Backend: "memory"},
	}

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	docRepo := repository.NewDocumentRepository(db)
	index := service.NewIndexService(embedding.NewHashEmbedder(32), vectorindex.NewMemoryIndex(), docRepo, cfg.Vector)
	require.NoError(t, index.Init(context.Background()))

	sessions := session.NewMemoryStore()
	mock := llm.NewMockClient()
	docs := service.NewDocumentService(docRepo, store, textExtractor{}, index, cfg)
	jobs := service.NewJobService(repository.NewJobRepository(db), nil, cfg)

	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	return &testContext{
		DB:       db,
		Cfg:      cfg,
		LLM:      mock,
		Sessions: sessions,
		Index:    index,
		Docs:     docs,
		Opt:      service.NewOptimizationService(docs, sessions, jobs, mock, cfg),
		Cmp:      service.NewComparisonService(docs, index, sessions, jobs, mock, cfg),
		Chat:     service.NewChatService(docs, index, sessions, mock, cfg),
		Jobs:     jobs,
		Hub:      ws.NewHub(),
	}
}

// router 注册全部处理器，路由与线上一致
func (tc *testContext) router(t *testing.T) *gin.Engine {
	t.Helper()

	docs := NewDocumentHandler(tc.Docs, tc.Index)
	opt := NewOptimizationHandler(tc.Opt)
	cmp := NewComparisonHandler(tc.Cmp)
	chat := NewChatHandler(tc.Chat)
	jobs := NewJobHandler(tc.Jobs)
	health := NewHealthHandler(tc.DB, nil, tc.Hub, tc.LLM.Model(), tc.Cfg)

	r := gin.New()
	r.GET("/health", health.Check)
	api := r.Group("/api/v1")
	api.GET("/ws", middleware.SessionTicket(tc.Cfg.JWT.Secret), NewWebSocketHandler(tc.Hub).Handle)
	api.POST("/proposals/upload", docs.UploadProposal)
	api.GET("/proposals", docs.List)
	api.GET("/proposals/search", docs.Search)
	api.GET("/proposals/:id", docs.Get)
	api.GET("/proposals/:id/file", docs.File)
	api.DELETE("/proposals/:id", docs.Delete)
	api.POST("/analysis/start", cmp.Start)
	api.GET("/analysis/status/:session_id", cmp.Status)
	api.GET("/analysis/result/:session_id", cmp.Result)
	api.GET("/analysis/sessions", cmp.ListSessions)
	api.DELETE("/analysis/session/:session_id", cmp.DeleteSession)
	api.POST("/analysis/question/:session_id", cmp.Ask)
	api.POST("/rfp-optimization/upload-rfp", docs.UploadRFP)
	api.POST("/rfp-optimization/analyze", opt.Analyze)
	api.GET("/rfp-optimization/analysis/:session_id", opt.GetAnalysis)
	api.GET("/rfp-optimization/sessions", opt.ListSessions)
	api.GET("/rfp-optimization/action-items/:session_id", opt.ActionItems)
	api.PUT("/rfp-optimization/action-items/:session_id/:item_id", opt.UpdateActionItem)
	api.GET("/rfp-optimization/health", opt.Health)
	api.POST("/chat/sessions", chat.CreateSession)
	api.GET("/chat/sessions", chat.ListSessions)
	api.POST("/chat/message", chat.Send)
	api.GET("/chat/history/:session_id", chat.History)
	api.DELETE("/chat/session/:session_id", chat.DeleteSession)
	api.GET("/jobs/:id", jobs.Get)
	return r
}

func doJSON(r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doUpload(t *testing.T, r http.Handler, target, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()

	req := newUploadRequest(t, target, filename, data)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newUploadRequest(t *testing.T, target, filename string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// parseResponse 解析统一响应，data 保留原始 JSON
func parseResponse(t *testing.T, w *httptest.ResponseRecorder) (response.Response, json.RawMessage) {
	t.Helper()

	var raw struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	return response.Response{Code: raw.Code, Message: raw.Message}, raw.Data
}

func decodeData(t *testing.T, data json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, v))
}

func uploadProposal(t *testing.T, r http.Handler, filename, text string) string {
	t.Helper()
	w := doUpload(t, r, "/api/v1/proposals/upload", filename, []byte(pdfHeader+text))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	_, data := parseResponse(t, w)
	var out struct {
		DocumentID string `json:"document_id"`
	}
	decodeData(t, data, &out)
	return out.DocumentID
}
