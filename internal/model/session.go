package model

import (
	"time"
)

const (
	SessionKindChat         = "chat"
	SessionKindAnalysis     = "analysis"
	SessionKindOptimization = "rfp_optimization"
)

const (
	SessionPending   = "pending"
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
)

const (
	MessageUser      = "user"
	MessageAssistant = "assistant"
)

const (
	PriorityImmediate = "immediate"
	PriorityShortTerm = "short_term"
	PriorityLongTerm  = "long_term"
)

type ChatMessage struct {
	ID                    int       `json:"id"`
	Type                  string    `json:"type"` // user, assistant
	Content               string    `json:"content"`
	Timestamp             time.Time `json:"timestamp"`
	ReferencedDocumentIDs []string  `json:"referenced_document_ids,omitempty"`
	Degraded              bool      `json:"degraded,omitempty"`
}

type ActionItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`  // immediate, short_term, long_term
	Dimension   string     `json:"dimension"` // timeline, requirements, cost, tco, general
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Session 进程内会话；默认存储在内存里，重启即丢失
type Session struct {
	ID                string            `json:"id"`
	Kind              string            `json:"kind"`
	DocumentIDs       []string          `json:"document_ids"`
	RFPDocumentID     string            `json:"rfp_document_id,omitempty"`
	AnalysisSessionID string            `json:"analysis_session_id,omitempty"` // chat 关联的分析会话
	Result            *AnalysisResult   `json:"result,omitempty"`
	Comparison        *ComparisonResult `json:"comparison,omitempty"`
	Messages          []ChatMessage     `json:"messages"`
	ActionItems       []ActionItem      `json:"action_items"`
	Status            string            `json:"status"`
	ErrorMessage      string            `json:"error_message,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// QuestionsAsked 用户提问次数
func (s *Session) QuestionsAsked() int {
	n := 0
	for _, m := range s.Messages {
		if m.Type == MessageUser {
			n++
		}
	}
	return n
}

// LastMessages 返回最后 n 条消息
func (s *Session) LastMessages(n int) []ChatMessage {
	if n <= 0 || len(s.Messages) <= n {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-n:]
}

// Clone 深拷贝可变部分；Result/Comparison 生成后不再修改，直接共享
func (s *Session) Clone() *Session {
	c := *s
	c.DocumentIDs = append([]string(nil), s.DocumentIDs...)
	c.Messages = make([]ChatMessage, len(s.Messages))
	for i, m := range s.Messages {
		m.ReferencedDocumentIDs = append([]string(nil), m.ReferencedDocumentIDs...)
		c.Messages[i] = m
	}
	c.ActionItems = append([]ActionItem(nil), s.ActionItems...)
	return &c
}
