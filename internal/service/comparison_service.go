package service

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/analysis"
	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/model/dto"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pubsub"
	"github.com/qs3c/rfq_alchemy/internal/prompt"
	"github.com/qs3c/rfq_alchemy/internal/session"
)

// StartInput 一次提案对比；DocumentIDs 为空时对比全部提案
type StartInput struct {
	RFPDocumentID string
	DocumentIDs   []string
	SessionID     string
	Progress      ProgressFunc
}

// ComparisonService 多提案对比分析和追问
type ComparisonService struct {
	docs     *DocumentService
	sessions session.Store
	jobs     *JobService
	llm      completer
	answerer *answerer
	now      func() time.Time
}

func NewComparisonService(
	docs *DocumentService,
	index *IndexService,
	sessions session.Store,
	jobs *JobService,
	client llm.Client,
	cfg *config.Config,
) *ComparisonService {
	c := completer{client: client, cfg: cfg.LLM}
	return &ComparisonService{
		docs:     docs,
		sessions: sessions,
		jobs:     jobs,
		llm:      c,
		answerer: &answerer{llm: c, index: index, docs: docs},
		now:      time.Now,
	}
}

// workingSet 解析要对比的提案和可选的 RFP 基线
func (s *ComparisonService) workingSet(in StartInput) ([]*model.Document, *model.Document, error) {
	var rfp *model.Document
	if in.RFPDocumentID != "" {
		doc, err := s.docs.Get(in.RFPDocumentID)
		if err != nil {
			return nil, nil, err
		}
		rfp = doc
	}

	var (
		docs []*model.Document
		err  error
	)
	if len(in.DocumentIDs) == 0 {
		docs, err = s.docs.List(model.DocumentKindProposal)
	} else {
		docs, err = s.docs.GetMany(in.DocumentIDs)
	}
	if err != nil {
		return nil, nil, err
	}

	proposals := make([]*model.Document, 0, len(docs))
	for _, d := range docs {
		if rfp != nil && d.ID == rfp.ID {
			continue
		}
		proposals = append(proposals, d)
	}
	if len(proposals) == 0 {
		return nil, nil, ErrNoProposals
	}
	return proposals, rfp, nil
}

func (s *ComparisonService) openSession(ctx context.Context, id string, proposals []*model.Document, rfp *model.Document) (*model.Session, bool, error) {
	if id != "" {
		sess, err := s.getSession(ctx, id)
		return sess, false, err
	}
	opts := session.CreateOptions{DocumentIDs: documentIDs(proposals)}
	if rfp != nil {
		opts.RFPDocumentID = rfp.ID
	}
	sess, err := s.sessions.Create(ctx, model.SessionKindAnalysis, opts)
	return sess, err == nil, err
}

// Start 同步执行对比分析
func (s *ComparisonService) Start(ctx context.Context, in StartInput) (*model.Session, error) {
	in.Progress.report(pubsub.StepExtracting)
	proposals, rfp, err := s.workingSet(in)
	if err != nil {
		return nil, err
	}
	sess, created, err := s.openSession(ctx, in.SessionID, proposals, rfp)
	if err != nil {
		return nil, err
	}

	claimed := documentIDs(proposals)
	if rfp != nil {
		claimed = append(claimed, rfp.ID)
	}
	if err := s.sessions.Claim(ctx, sess.ID, claimed); err != nil {
		if created {
			discardSession(ctx, s.sessions, sess.ID)
		}
		return nil, err
	}
	defer func() {
		if err := s.sessions.Release(context.WithoutCancel(ctx), sess.ID); err != nil {
			log.Printf("Failed to release claims of session %s: %v", sess.ID, err)
		}
	}()

	if _, err := s.sessions.Update(ctx, sess.ID, func(ss *model.Session) error {
		ss.Status = model.SessionRunning
		ss.DocumentIDs = documentIDs(proposals)
		if rfp != nil {
			ss.RFPDocumentID = rfp.ID
		}
		ss.ErrorMessage = ""
		return nil
	}); err != nil {
		return nil, sessionErr(err)
	}

	in.Progress.report(pubsub.StepPrompting)
	snaps := make([]model.DocumentSnapshot, len(proposals))
	for i, d := range proposals {
		snaps[i] = d.Snapshot()
	}
	var baseline *model.DocumentSnapshot
	if rfp != nil {
		snap := rfp.Snapshot()
		baseline = &snap
	}

	in.Progress.report(pubsub.StepAnalyzing)
	var result *model.ComparisonResult
	raw, err := s.llm.complete(ctx, prompt.Comparison(snaps, baseline), true)
	if err != nil {
		log.Printf("LLM call failed for comparison %s: %v", sess.ID, err)
		result = analysis.FallbackComparison(snaps, analysis.LLMFailureReason(err))
	} else {
		result = analysis.ParseComparison(raw, snaps)
	}

	in.Progress.report(pubsub.StepPlanning)
	if baseline != nil {
		byID := make(map[string]model.DocumentSnapshot, len(snaps))
		for _, snap := range snaps {
			byID[snap.ID] = snap
		}
		for i := range result.Proposals {
			if snap, ok := byID[result.Proposals[i].DocumentID]; ok {
				result.Proposals[i].RFPAlignment = analysis.DetectMismatches(*baseline, snap)
			}
		}
		result.RFPDocumentID = baseline.ID
	}

	result.ID = uuid.NewString()
	result.SessionID = sess.ID
	result.Model = s.llm.client.Model()
	result.CreatedAt = s.now()

	updated, err := s.sessions.Update(ctx, sess.ID, func(ss *model.Session) error {
		ss.Comparison = result
		if result.Status == model.AnalysisFailed {
			ss.Status = model.SessionFailed
			ss.ErrorMessage = result.FailureReason
		} else {
			ss.Status = model.SessionCompleted
			ss.ErrorMessage = ""
		}
		return nil
	})
	if err != nil {
		return nil, sessionErr(err)
	}

	log.Printf("Comparison %s finished: status=%s proposals=%d", sess.ID, result.Status, len(result.Proposals))
	in.Progress.report(pubsub.StepDone)
	return updated, nil
}

// Enqueue 异步对比
func (s *ComparisonService) Enqueue(ctx context.Context, in StartInput) (*dto.StartComparisonResponse, error) {
	if !s.jobs.Available() {
		return nil, ErrQueueUnavailable
	}
	proposals, rfp, err := s.workingSet(in)
	if err != nil {
		return nil, err
	}
	sess, created, err := s.openSession(ctx, in.SessionID, proposals, rfp)
	if err != nil {
		return nil, err
	}

	job := &model.AnalysisJob{
		SessionID:   sess.ID,
		JobType:     model.JobTypeComparison,
		DocumentIDs: joinIDs(documentIDs(proposals)),
		ModelName:   s.llm.client.Model(),
	}
	if rfp != nil {
		job.RFPDocumentID = rfp.ID
	}
	token, err := s.jobs.Submit(ctx, job)
	if err != nil {
		if created {
			discardSession(ctx, s.sessions, sess.ID)
		}
		return nil, err
	}
	return &dto.StartComparisonResponse{
		SessionID: sess.ID,
		Status:    JobQueued,
		JobID:     job.ID,
		WSToken:   token,
	}, nil
}

func (s *ComparisonService) getSession(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, sessionErr(err)
	}
	if sess.Kind != model.SessionKindAnalysis {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *ComparisonService) Status(ctx context.Context, sessionID string) (*dto.ComparisonStatus, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.ComparisonStatus{
		SessionID:         sess.ID,
		Status:            sess.Status,
		StartedAt:         sess.CreatedAt.Format(time.RFC3339),
		ProposalsCount:    len(sess.DocumentIDs),
		AnalysisCompleted: sess.Comparison != nil,
		QuestionsAsked:    sess.QuestionsAsked(),
		HasErrors:         sess.ErrorMessage != "",
		ErrorMessage:      sess.ErrorMessage,
	}, nil
}

// Result 分析还没跑完时返回 ErrAnalysisNotReady
func (s *ComparisonService) Result(ctx context.Context, sessionID string) (*model.ComparisonResult, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Comparison == nil {
		return nil, ErrAnalysisNotReady
	}
	return sess.Comparison, nil
}

func (s *ComparisonService) ListSessions(ctx context.Context) ([]dto.ComparisonSessionItem, error) {
	sessions, err := s.sessions.List(ctx, model.SessionKindAnalysis)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ComparisonSessionItem, 0, len(sessions))
	for _, sess := range sessions {
		items = append(items, dto.ComparisonSessionItem{
			SessionID:      sess.ID,
			Status:         sess.Status,
			ProposalsCount: len(sess.DocumentIDs),
			QuestionsAsked: sess.QuestionsAsked(),
			CreatedAt:      sess.CreatedAt.Format(time.RFC3339),
		})
	}
	return items, nil
}

// DeleteSession 删除会话并取消排队中的任务
func (s *ComparisonService) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return err
	}
	if s.jobs != nil {
		if err := s.jobs.CancelSession(sessionID); err != nil {
			log.Printf("Failed to cancel jobs of session %s: %v", sessionID, err)
		}
	}
	return sessionErr(s.sessions.Delete(ctx, sessionID))
}

// Ask 基于对比结果回答问题，问答追加到会话历史
func (s *ComparisonService) Ask(ctx context.Context, sessionID, question string) (*dto.ChatResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyMessage
	}
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ans := s.answerer.answer(ctx, question, comparisonContext(sess.Comparison), sess.Messages)
	msgs, err := s.sessions.AppendMessages(ctx, sessionID,
		model.ChatMessage{Type: model.MessageUser, Content: question},
		assistantMessage(ans),
	)
	if err != nil {
		return nil, sessionErr(err)
	}
	return chatResponse(sessionID, msgs[len(msgs)-1], ans), nil
}

func assistantMessage(ans answer) model.ChatMessage {
	return model.ChatMessage{
		Type:                  model.MessageAssistant,
		Content:               ans.Content,
		ReferencedDocumentIDs: referencedIDs(ans.Refs),
		Degraded:              ans.Degraded,
	}
}

func chatResponse(sessionID string, msg model.ChatMessage, ans answer) *dto.ChatResponse {
	refs := ans.Refs
	if refs == nil {
		refs = []dto.ReferencedDocument{}
	}
	return &dto.ChatResponse{
		SessionID:             sessionID,
		Message:               msg,
		ReferencedDocumentIDs: referencedIDs(refs),
		RelevantProposals:     refs,
	}
}

func referencedIDs(refs []dto.ReferencedDocument) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.DocumentID
	}
	return ids
}

func documentIDs(docs []*model.Document) []string {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids
}
