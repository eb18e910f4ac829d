package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/analysis"
	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/model/dto"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pubsub"
	"github.com/qs3c/rfq_alchemy/internal/pkg/textutil"
	"github.com/qs3c/rfq_alchemy/internal/prompt"
	"github.com/qs3c/rfq_alchemy/internal/session"
)

const sessionSummaryLength = 100

// AnalyzeInput 一次 RFP 优化分析
type AnalyzeInput struct {
	RFPDocumentID         string
	SessionID             string // 为空时新建会话
	IncludeHistoricalData bool
	Progress              ProgressFunc
}

// OptimizationService RFP 优化分析和行动项
type OptimizationService struct {
	docs     *DocumentService
	sessions session.Store
	jobs     *JobService
	llm      completer
	parser   *analysis.Parser
	cfg      *config.Config
	now      func() time.Time
}

func NewOptimizationService(
	docs *DocumentService,
	sessions session.Store,
	jobs *JobService,
	client llm.Client,
	cfg *config.Config,
) *OptimizationService {
	return &OptimizationService{
		docs:     docs,
		sessions: sessions,
		jobs:     jobs,
		llm:      completer{client: client, cfg: cfg.LLM},
		parser:   analysis.NewParser(cfg.Analysis.FallbackMode),
		cfg:      cfg,
		now:      time.Now,
	}
}

// Analyze 同步执行一次完整分析。
// 模型调用或解析失败不会返回错误，结果里的 status/failure_reason 说明情况。
func (s *OptimizationService) Analyze(ctx context.Context, in AnalyzeInput) (*model.Session, error) {
	start := s.now()

	in.Progress.report(pubsub.StepExtracting)
	doc, err := s.docs.Get(in.RFPDocumentID)
	if err != nil {
		return nil, err
	}

	sess, created, err := s.openSession(ctx, in.SessionID, doc.ID)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Claim(ctx, sess.ID, []string{doc.ID}); err != nil {
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
		ss.RFPDocumentID = doc.ID
		ss.DocumentIDs = []string{doc.ID}
		ss.ErrorMessage = ""
		return nil
	}); err != nil {
		return nil, sessionErr(err)
	}

	snap := doc.Snapshot()

	in.Progress.report(pubsub.StepPrompting)
	opts := prompt.OptimizationOptions{ContentPreview: s.cfg.Analysis.ContentPreview}
	if in.IncludeHistoricalData {
		opts.Portfolio = s.portfolio(doc.ID)
	}
	p := prompt.Optimization(snap, opts)

	in.Progress.report(pubsub.StepAnalyzing)
	var result *model.AnalysisResult
	raw, err := s.llm.complete(ctx, p, true)
	if err != nil {
		log.Printf("LLM call failed for session %s: %v", sess.ID, err)
		result = s.parser.Fallback(snap, analysis.LLMFailureReason(err))
	} else {
		result = s.parser.ParseOptimization(raw, snap)
	}

	in.Progress.report(pubsub.StepPlanning)
	result.ImplementationTimeline = s.timeline(ctx, result, snap)

	now := s.now()
	result.ID = uuid.NewString()
	result.SessionID = sess.ID
	result.Model = s.llm.client.Model()
	result.CreatedAt = now
	result.ProcessingSeconds = now.Sub(start).Seconds()
	items := analysis.ActionItems(result, now)

	updated, err := s.sessions.Update(ctx, sess.ID, func(ss *model.Session) error {
		ss.Result = result
		ss.ActionItems = items
		if result.Succeeded() {
			ss.Status = model.SessionCompleted
			ss.ErrorMessage = ""
		} else {
			ss.Status = model.SessionFailed
			ss.ErrorMessage = result.FailureReason
		}
		return nil
	})
	if err != nil {
		return nil, sessionErr(err)
	}

	log.Printf("RFP analysis %s finished: status=%s score=%d/%d items=%d (%.1fs)",
		sess.ID, result.Status, result.OverallScore, result.MaxScore, len(items), result.ProcessingSeconds)
	in.Progress.report(pubsub.StepDone)
	return updated, nil
}

// timeline 成功的分析再调一次模型生成落地计划，失败时直接用默认计划
func (s *OptimizationService) timeline(ctx context.Context, result *model.AnalysisResult, doc model.DocumentSnapshot) model.ImplementationTimeline {
	if !result.Succeeded() {
		return analysis.DefaultTimeline(result.PriorityActions, doc.Title)
	}
	raw, err := s.llm.complete(ctx, prompt.Timeline(result.PriorityActions, result.ExecutiveSummary), true)
	if err != nil {
		log.Printf("Timeline generation failed for %s: %v", doc.ID, err)
		return analysis.DefaultTimeline(result.PriorityActions, doc.Title)
	}
	plan, _ := analysis.ParseTimeline(raw, result.PriorityActions, doc.Title)
	return plan
}

func (s *OptimizationService) portfolio(excludeID string) []model.DocumentSnapshot {
	snaps, err := s.docs.Snapshots("")
	if err != nil {
		log.Printf("Failed to load portfolio context: %v", err)
		return nil
	}
	out := make([]model.DocumentSnapshot, 0, len(snaps))
	for _, snap := range snaps {
		if snap.ID != excludeID {
			out = append(out, snap)
		}
	}
	return out
}

// openSession 复用已有会话或新建一个；created 表示本次调用新建
func (s *OptimizationService) openSession(ctx context.Context, id, docID string) (*model.Session, bool, error) {
	if id == "" {
		sess, err := s.sessions.Create(ctx, model.SessionKindOptimization, session.CreateOptions{
			DocumentIDs:   []string{docID},
			RFPDocumentID: docID,
		})
		return sess, err == nil, err
	}
	sess, err := s.getSession(ctx, id)
	return sess, false, err
}

// discardSession 删除本次请求新建、但没能开始分析的会话
func discardSession(ctx context.Context, store session.Store, id string) {
	if err := store.Delete(context.WithoutCancel(ctx), id); err != nil && !errors.Is(err, session.ErrNotFound) {
		log.Printf("Failed to discard session %s: %v", id, err)
	}
}

// Enqueue 异步分析：建会话、写任务、入队
func (s *OptimizationService) Enqueue(ctx context.Context, in AnalyzeInput) (*dto.OptimizeResponse, error) {
	if !s.jobs.Available() {
		return nil, ErrQueueUnavailable
	}
	doc, err := s.docs.Get(in.RFPDocumentID)
	if err != nil {
		return nil, err
	}
	sess, created, err := s.openSession(ctx, in.SessionID, doc.ID)
	if err != nil {
		return nil, err
	}

	job := &model.AnalysisJob{
		SessionID:      sess.ID,
		JobType:        model.JobTypeOptimization,
		RFPDocumentID:  doc.ID,
		DocumentIDs:    doc.ID,
		IncludeHistory: in.IncludeHistoricalData,
		ModelName:      s.llm.client.Model(),
	}
	token, err := s.jobs.Submit(ctx, job)
	if err != nil {
		if created {
			discardSession(ctx, s.sessions, sess.ID)
		}
		return nil, err
	}
	return &dto.OptimizeResponse{
		SessionID: sess.ID,
		Status:    JobQueued,
		JobID:     job.ID,
		WSToken:   token,
	}, nil
}

func (s *OptimizationService) getSession(ctx context.Context, id string) (*model.Session, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, sessionErr(err)
	}
	if sess.Kind != model.SessionKindOptimization {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// GetAnalysis 会话当前状态；分析未完成时 Analysis 为空
func (s *OptimizationService) GetAnalysis(ctx context.Context, sessionID string) (*dto.OptimizeResponse, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return OptimizeResponse(sess), nil
}

// OptimizeResponse 会话转换成接口响应
func OptimizeResponse(sess *model.Session) *dto.OptimizeResponse {
	resp := &dto.OptimizeResponse{
		SessionID:   sess.ID,
		Status:      sess.Status,
		Analysis:    sess.Result,
		ActionItems: sess.ActionItems,
	}
	if sess.Result != nil {
		resp.ProcessingTime = sess.Result.ProcessingSeconds
	}
	return resp
}

func (s *OptimizationService) ListSessions(ctx context.Context) ([]dto.OptimizationSessionItem, error) {
	sessions, err := s.sessions.List(ctx, model.SessionKindOptimization)
	if err != nil {
		return nil, err
	}
	items := make([]dto.OptimizationSessionItem, 0, len(sessions))
	for _, sess := range sessions {
		item := dto.OptimizationSessionItem{
			SessionID:       sess.ID,
			RFPDocumentID:   sess.RFPDocumentID,
			Status:          sess.Status,
			ActionItemCount: len(sess.ActionItems),
			CreatedAt:       sess.CreatedAt.Format(time.RFC3339),
		}
		if r := sess.Result; r != nil {
			item.DocumentTitle = r.DocumentTitle
			item.AnalysisStatus = string(r.Status)
			item.OverallScore = r.OverallScore
			item.Summary = textutil.Truncate(r.ExecutiveSummary, sessionSummaryLength)
		}
		items = append(items, item)
	}
	return items, nil
}

// ActionItems 按优先级分组
func (s *OptimizationService) ActionItems(ctx context.Context, sessionID string) (*dto.ActionItemsResponse, error) {
	sess, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	groups := analysis.GroupActionItems(sess.ActionItems)
	resp := &dto.ActionItemsResponse{
		SessionID:  sess.ID,
		Immediate:  groups[model.PriorityImmediate],
		ShortTerm:  groups[model.PriorityShortTerm],
		LongTerm:   groups[model.PriorityLongTerm],
		TotalCount: len(sess.ActionItems),
	}
	for _, item := range sess.ActionItems {
		if item.Completed {
			resp.CompletedCount++
		}
	}
	return resp, nil
}

// UpdateActionItem 切换完成状态；notes 为 nil 时保留原备注
func (s *OptimizationService) UpdateActionItem(ctx context.Context, sessionID, itemID string, completed bool, notes *string) (*model.ActionItem, error) {
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}
	var updated model.ActionItem
	_, err := s.sessions.Update(ctx, sessionID, func(ss *model.Session) error {
		for i := range ss.ActionItems {
			item := &ss.ActionItems[i]
			if item.ID != itemID {
				continue
			}
			analysis.SetCompleted(item, completed, s.now())
			if notes != nil {
				item.Notes = *notes
			}
			updated = *item
			return nil
		}
		return ErrActionItemNotFound
	})
	if err != nil {
		return nil, sessionErr(err)
	}
	return &updated, nil
}

func (s *OptimizationService) Health(ctx context.Context) (*dto.AgentHealth, error) {
	sessions, err := s.sessions.List(ctx, model.SessionKindOptimization)
	if err != nil {
		return nil, err
	}
	health := &dto.AgentHealth{
		AgentStatus:    "not_initialized",
		ActiveSessions: len(sessions),
	}
	if s.llm.client != nil {
		health.AgentStatus = "healthy"
		health.Model = s.llm.client.Model()
	}
	for _, sess := range sessions {
		health.TotalActionItems += len(sess.ActionItems)
	}
	return health, nil
}
