package dto

import "github.com/qs3c/rfq_alchemy/internal/model"

// ChatRequest 发送聊天消息
type ChatRequest struct {
	Message           string `json:"message" binding:"required,max=4000"`
	SessionID         string `json:"session_id,omitempty"`
	AnalysisSessionID string `json:"analysis_session_id,omitempty"`
}

// ReferencedDocument 回复引用的文档
type ReferencedDocument struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Score      float64 `json:"score"`
}

// ChatResponse 助手回复
type ChatResponse struct {
	SessionID             string               `json:"session_id"`
	Message               model.ChatMessage    `json:"message"`
	ReferencedDocumentIDs []string             `json:"referenced_document_ids"`
	RelevantProposals     []ReferencedDocument `json:"relevant_proposals"`
}

// ChatHistory 会话历史
type ChatHistory struct {
	SessionID string              `json:"session_id"`
	Messages  []model.ChatMessage `json:"messages"`
}

// ChatSessionItem 会话列表项
type ChatSessionItem struct {
	SessionID    string `json:"session_id"`
	MessageCount int    `json:"message_count"`
	HasWorkflow  bool   `json:"has_workflow"`
	CreatedAt    string `json:"created_at"`
	LastActivity string `json:"last_activity"`
}

// CreateChatSessionRequest 新建会话，可关联一个对比分析会话
type CreateChatSessionRequest struct {
	AnalysisSessionID string `json:"analysis_session_id,omitempty"`
}
