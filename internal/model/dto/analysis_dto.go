package dto

import "github.com/qs3c/rfq_alchemy/internal/model"

// OptimizeRequest RFP 优化分析请求
type OptimizeRequest struct {
	RFPDocumentID         string `json:"rfp_document_id" binding:"required"`
	SessionID             string `json:"session_id,omitempty"`
	IncludeHistoricalData bool   `json:"include_historical_data"`
}

// OptimizeResponse RFP 优化分析响应（同步时带 Analysis，异步时带 JobID）
type OptimizeResponse struct {
	SessionID      string                `json:"session_id"`
	Status         string                `json:"status"`
	Analysis       *model.AnalysisResult `json:"analysis,omitempty"`
	ActionItems    []model.ActionItem    `json:"action_items,omitempty"`
	ProcessingTime float64               `json:"processing_time"`
	JobID          int64                 `json:"job_id,omitempty"`
	WSToken        string                `json:"ws_token,omitempty"`
}

// OptimizationSessionItem 优化会话列表项
type OptimizationSessionItem struct {
	SessionID       string `json:"session_id"`
	RFPDocumentID   string `json:"rfp_document_id"`
	DocumentTitle   string `json:"document_title"`
	Status          string `json:"status"`
	AnalysisStatus  string `json:"analysis_status,omitempty"`
	OverallScore    int    `json:"overall_score"`
	Summary         string `json:"summary"`
	ActionItemCount int    `json:"action_item_count"`
	CreatedAt       string `json:"created_at"`
}

// ActionItemsResponse 按优先级分组的行动项
type ActionItemsResponse struct {
	SessionID      string             `json:"session_id"`
	Immediate      []model.ActionItem `json:"immediate"`
	ShortTerm      []model.ActionItem `json:"short_term"`
	LongTerm       []model.ActionItem `json:"long_term"`
	TotalCount     int                `json:"total_count"`
	CompletedCount int                `json:"completed_count"`
}

// UpdateActionItemRequest 更新行动项完成状态
type UpdateActionItemRequest struct {
	Completed *bool   `json:"completed" binding:"required"`
	Notes     *string `json:"notes,omitempty" binding:"omitempty,max=2000"`
}

// AgentHealth 优化代理状态
type AgentHealth struct {
	AgentStatus      string `json:"agent_status"`
	Model            string `json:"model"`
	ActiveSessions   int    `json:"active_sessions"`
	TotalActionItems int    `json:"total_action_items"`
}

// StartComparisonRequest 开始提案对比分析
type StartComparisonRequest struct {
	RFPDocumentID string   `json:"rfp_document_id,omitempty"`
	DocumentIDs   []string `json:"document_ids,omitempty"`
}

// StartComparisonResponse 对比分析响应
type StartComparisonResponse struct {
	SessionID string                  `json:"session_id"`
	Status    string                  `json:"status"`
	Result    *model.ComparisonResult `json:"result,omitempty"`
	JobID     int64                   `json:"job_id,omitempty"`
	WSToken   string                  `json:"ws_token,omitempty"`
}

// ComparisonStatus 对比分析会话状态
type ComparisonStatus struct {
	SessionID         string `json:"session_id"`
	Status            string `json:"status"`
	StartedAt         string `json:"started_at"`
	ProposalsCount    int    `json:"proposals_count"`
	AnalysisCompleted bool   `json:"analysis_completed"`
	QuestionsAsked    int    `json:"questions_asked"`
	HasErrors         bool   `json:"has_errors"`
	ErrorMessage      string `json:"error_message,omitempty"`
}

// ComparisonSessionItem 对比会话列表项
type ComparisonSessionItem struct {
	SessionID      string `json:"session_id"`
	Status         string `json:"status"`
	ProposalsCount int    `json:"proposals_count"`
	QuestionsAsked int    `json:"questions_asked"`
	CreatedAt      string `json:"created_at"`
}

// QuestionRequest 针对分析结果提问
type QuestionRequest struct {
	Question string `json:"question" binding:"required,max=4000"`
}

// JobStatus 异步任务状态
type JobStatus struct {
	JobID          int64  `json:"job_id"`
	SessionID      string `json:"session_id"`
	JobType        string `json:"job_type"`
	Status         string `json:"status"`
	CurrentStep    string `json:"current_step,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	ElapsedSeconds int    `json:"elapsed_seconds,omitempty"`
	CreatedAt      string `json:"created_at"`
}
