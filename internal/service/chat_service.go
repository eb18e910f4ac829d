package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/model/dto"
	"github.com/qs3c/rfq_alchemy/internal/pkg/textutil"
	"github.com/qs3c/rfq_alchemy/internal/session"
)

const greetingTitles = 3

var exitKeywords = map[string]struct{}{
	"exit":    {},
	"quit":    {},
	"bye":     {},
	"goodbye": {},
}

const capabilities = `I can help you with questions about:
- Budget comparisons and analysis
- Timeline and delivery schedules
- Technical requirements and capabilities
- Vendor strengths and concerns
- Risk assessments
- Strategic recommendations`

// SendInput 一条聊天消息；SessionID 为空时新建会话
type SendInput struct {
	SessionID         string
	Message           string
	AnalysisSessionID string
}

// ChatService 基于已上传文档的问答
type ChatService struct {
	docs     *DocumentService
	sessions session.Store
	answerer *answerer
}

func NewChatService(
	docs *DocumentService,
	index *IndexService,
	sessions session.Store,
	client llm.Client,
	cfg *config.Config,
) *ChatService {
	return &ChatService{
		docs:     docs,
		sessions: sessions,
		answerer: &answerer{llm: completer{client: client, cfg: cfg.LLM}, index: index, docs: docs},
	}
}

// CreateSession 新会话，第一条消息是问候语
func (s *ChatService) CreateSession(ctx context.Context, analysisSessionID string) (*model.Session, error) {
	if analysisSessionID != "" {
		if _, err := s.sessions.Get(ctx, analysisSessionID); err != nil {
			return nil, sessionErr(err)
		}
	}
	sess, err := s.sessions.Create(ctx, model.SessionKindChat, session.CreateOptions{AnalysisSessionID: analysisSessionID})
	if err != nil {
		return nil, err
	}
	greeting := model.ChatMessage{Type: model.MessageAssistant, Content: s.greeting()}
	if _, err := s.sessions.AppendMessages(ctx, sess.ID, greeting); err != nil {
		return nil, sessionErr(err)
	}
	return s.sessions.Get(ctx, sess.ID)
}

func (s *ChatService) greeting() string {
	proposals, err := s.docs.List(model.DocumentKindProposal)
	if err != nil {
		log.Printf("Failed to list proposals for greeting: %v", err)
	}
	if len(proposals) == 0 {
		return "Hello! I'm your RFP/RFQ Chat Assistant. It looks like you haven't uploaded any proposals yet. " +
			"Upload proposal PDFs and I can compare budgets, timelines and vendors for you.\n\n" + capabilities
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello! I'm your RFP/RFQ Chat Assistant. I can see you have %d proposal(s) loaded:\n", len(proposals))
	for i, p := range proposals {
		if i == greetingTitles {
			b.WriteString("...\n")
			break
		}
		fmt.Fprintf(&b, "- %s\n", p.Title)
	}
	b.WriteString("\n" + capabilities + "\n\nWhat would you like to know about your proposals?")
	return b.String()
}

// Send 处理一条消息，问答两条消息一起追加
func (s *ChatService) Send(ctx context.Context, in SendInput) (*dto.ChatResponse, error) {
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		return nil, ErrEmptyMessage
	}

	var (
		sess *model.Session
		err  error
	)
	if in.SessionID == "" {
		sess, err = s.CreateSession(ctx, in.AnalysisSessionID)
	} else {
		sess, err = s.getSession(ctx, in.SessionID)
	}
	if err != nil {
		return nil, err
	}

	var ans answer
	if isExit(in.Message) {
		ans = answer{Content: s.farewell(sess)}
	} else {
		linked := in.AnalysisSessionID
		if linked == "" {
			linked = sess.AnalysisSessionID
		}
		ans = s.answerer.answer(ctx, in.Message, s.linkedContext(ctx, linked), sess.Messages)
	}

	msgs, err := s.sessions.AppendMessages(ctx, sess.ID,
		model.ChatMessage{Type: model.MessageUser, Content: in.Message},
		assistantMessage(ans),
	)
	if err != nil {
		return nil, sessionErr(err)
	}
	return chatResponse(sess.ID, msgs[len(msgs)-1], ans), nil
}

// linkedContext 关联分析会话的结果摘要，会话不存在时忽略
func (s *ChatService) linkedContext(ctx context.Context, id string) string {
	if id == "" {
		return ""
	}
	linked, err := s.sessions.Get(ctx, id)
	if err != nil {
		log.Printf("Linked analysis session %s unavailable: %v", id, err)
		return ""
	}
	return sessionContext(linked)
}

func (s *ChatService) farewell(sess *model.Session) string {
	return fmt.Sprintf("Goodbye! Session summary: %d question(s) asked in this conversation. "+
		"Start a new message any time to continue evaluating your proposals.", sess.QuestionsAsked()+1)
}

// isExit 整条消息只由退出词组成时才结束对话
func isExit(msg string) bool {
	tokens := textutil.Tokenize(msg)
	if len(tokens) == 0 {
		return false
	}
	for _, t := range tokens {
		if _, ok := exitKeywords[t]; !ok {
			return false
		}
	}
	return true
}

func (s *ChatService) getSession(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, sessionErr(err)
	}
	if sess.Kind != model.SessionKindChat {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *ChatService) History(ctx context.Context, sessionID string) (*dto.ChatHistory, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.ChatHistory{SessionID: sess.ID, Messages: sess.Messages}, nil
}

func (s *ChatService) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return err
	}
	return sessionErr(s.sessions.Delete(ctx, sessionID))
}

func (s *ChatService) ListSessions(ctx context.Context) ([]dto.ChatSessionItem, error) {
	sessions, err := s.sessions.List(ctx, model.SessionKindChat)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ChatSessionItem, 0, len(sessions))
	for _, sess := range sessions {
		last := sess.UpdatedAt
		if n := len(sess.Messages); n > 0 {
			last = sess.Messages[n-1].Timestamp
		}
		items = append(items, dto.ChatSessionItem{
			SessionID:    sess.ID,
			MessageCount: len(sess.Messages),
			HasWorkflow:  sess.AnalysisSessionID != "",
			CreatedAt:    sess.CreatedAt.Format(time.RFC3339),
			LastActivity: last.Format(time.RFC3339),
		})
	}
	return items, nil
}
