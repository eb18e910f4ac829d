package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrDocumentBusy = errors.New("document is being analyzed by another session")
)

// CreateOptions 创建会话时的可选字段；ID 为空时自动生成
type CreateOptions struct {
	ID                string
	DocumentIDs       []string
	RFPDocumentID     string
	AnalysisSessionID string
}

// Store 会话存储。实现需要并发安全；同一会话的并发更新后写者生效。
type Store interface {
	Create(ctx context.Context, kind string, opts CreateOptions) (*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	Update(ctx context.Context, id string, fn func(*model.Session) error) (*model.Session, error)
	SetResult(ctx context.Context, id string, result *model.AnalysisResult) error
	AppendMessages(ctx context.Context, id string, msgs ...model.ChatMessage) ([]model.ChatMessage, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, kind string) ([]*model.Session, error)

	// Claim 把文档绑定到会话，已被其它会话占用时返回 ErrDocumentBusy，不做部分占用
	Claim(ctx context.Context, sessionID string, docIDs []string) error
	Release(ctx context.Context, sessionID string) error

	// EvictIdle 删除超过 maxIdle 没有更新的会话
	EvictIdle(ctx context.Context, maxIdle time.Duration) (int, error)
}

// NewID 分析类会话用带时间的可读 ID，聊天会话用 uuid
func NewID(kind string, now time.Time) string {
	switch kind {
	case model.SessionKindAnalysis:
		return fmt.Sprintf("analysis_%s_%s", now.Format("20060102_150405"), randomSuffix())
	case model.SessionKindOptimization:
		return fmt.Sprintf("rfp_opt_%s_%s", now.Format("20060102_150405"), randomSuffix())
	default:
		return uuid.NewString()
	}
}

func randomSuffix() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return uuid.NewString()[:6]
	}
	return hex.EncodeToString(b)
}

func newSession(kind string, opts CreateOptions, now time.Time) *model.Session {
	id := opts.ID
	if id == "" {
		id = NewID(kind, now)
	}
	docIDs := append([]string{}, opts.DocumentIDs...)
	return &model.Session{
		ID:                id,
		Kind:              kind,
		DocumentIDs:       docIDs,
		RFPDocumentID:     opts.RFPDocumentID,
		AnalysisSessionID: opts.AnalysisSessionID,
		Messages:          []model.ChatMessage{},
		ActionItems:       []model.ActionItem{},
		Status:            model.SessionPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// appendMessages 追加消息并分配递增 ID
func appendMessages(s *model.Session, msgs []model.ChatMessage, now time.Time) []model.ChatMessage {
	next := 1
	if n := len(s.Messages); n > 0 {
		next = s.Messages[n-1].ID + 1
	}
	out := make([]model.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		m.ID = next
		next++
		if m.Timestamp.IsZero() {
			m.Timestamp = now
		}
		s.Messages = append(s.Messages, m)
		out = append(out, m)
	}
	return out
}
