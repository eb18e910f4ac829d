package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/api/handler"
	"github.com/qs3c/rfq_alchemy/internal/api/middleware"
)

// multipart 解析时超过这个大小的部分写临时文件
const maxMultipartMemory = 8 << 20

type Router struct {
	documentHandler     *handler.DocumentHandler
	optimizationHandler *handler.OptimizationHandler
	comparisonHandler   *handler.ComparisonHandler
	chatHandler         *handler.ChatHandler
	jobHandler          *handler.JobHandler
	healthHandler       *handler.HealthHandler
	websocketHandler    *handler.WebSocketHandler
	cfg                 *config.Config
}

func NewRouter(
	documentHandler *handler.DocumentHandler,
	optimizationHandler *handler.OptimizationHandler,
	comparisonHandler *handler.ComparisonHandler,
	chatHandler *handler.ChatHandler,
	jobHandler *handler.JobHandler,
	healthHandler *handler.HealthHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		documentHandler:     documentHandler,
		optimizationHandler: optimizationHandler,
		comparisonHandler:   comparisonHandler,
		chatHandler:         chatHandler,
		jobHandler:          jobHandler,
		healthHandler:       healthHandler,
		websocketHandler:    websocketHandler,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.MaxMultipartMemory = maxMultipartMemory
	engine.Use(gin.Recovery())
	if gin.Mode() == gin.DebugMode {
		engine.Use(gin.Logger())
	}
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", r.healthHandler.Check)
	engine.GET("/api/health", r.healthHandler.Check)

	quota := middleware.AnalysisQuota(r.cfg.Server.AnalysisRPM)

	api := engine.Group("/api/v1")
	{
		// 分析进度 WebSocket
		api.GET("/ws", middleware.SessionTicket(r.cfg.JWT.Secret), r.websocketHandler.Handle)

		// 提案文档
		proposals := api.Group("/proposals")
		{
			proposals.POST("/upload", r.documentHandler.UploadProposal)
			proposals.GET("", r.documentHandler.List)
			proposals.GET("/search", r.documentHandler.Search)
			proposals.GET("/:id", r.documentHandler.Get)
			proposals.GET("/:id/file", r.documentHandler.File)
			proposals.DELETE("/:id", r.documentHandler.Delete)
		}

		// 提案对比分析
		analysis := api.Group("/analysis")
		{
			analysis.POST("/start", quota, r.comparisonHandler.Start)
			analysis.GET("/status/:session_id", r.comparisonHandler.Status)
			analysis.GET("/result/:session_id", r.comparisonHandler.Result)
			analysis.GET("/sessions", r.comparisonHandler.ListSessions)
			analysis.DELETE("/session/:session_id", r.comparisonHandler.DeleteSession)
			analysis.POST("/question/:session_id", quota, r.comparisonHandler.Ask)
		}

		// RFP 优化
		rfp := api.Group("/rfp-optimization")
		{
			rfp.POST("/upload-rfp", r.documentHandler.UploadRFP)
			rfp.POST("/analyze", quota, r.optimizationHandler.Analyze)
			rfp.GET("/analysis/:session_id", r.optimizationHandler.GetAnalysis)
			rfp.GET("/sessions", r.optimizationHandler.ListSessions)
			rfp.GET("/action-items/:session_id", r.optimizationHandler.ActionItems)
			rfp.PUT("/action-items/:session_id/:item_id", r.optimizationHandler.UpdateActionItem)
			rfp.GET("/health", r.optimizationHandler.Health)
		}

		// 聊天
		chat := api.Group("/chat")
		{
			chat.POST("/sessions", r.chatHandler.CreateSession)
			chat.GET("/sessions", r.chatHandler.ListSessions)
			chat.POST("/message", quota, r.chatHandler.Send)
			chat.GET("/history/:session_id", r.chatHandler.History)
			chat.DELETE("/session/:session_id", r.chatHandler.DeleteSession)
		}

		api.GET("/jobs/:id", r.jobHandler.Get)
	}

	return engine
}
