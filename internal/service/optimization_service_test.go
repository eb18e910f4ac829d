package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pubsub"
	"github.com/qs3c/rfq_alchemy/internal/testutil"
)

func TestAnalyze_Completed(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm_modernization.pdf", model.DocumentKindRFP, testutil.SampleRFPText)

	var steps []string
	sess, err := env.opt.Analyze(context.Background(), AnalyzeInput{
		RFPDocumentID: rfp.ID,
		Progress:      func(step string) { steps = append(steps, step) },
	})
	require.NoError(t, err)

	assert.Equal(t, model.SessionCompleted, sess.Status)
	assert.Contains(t, sess.ID, "rfp_opt_")
	require.NotNil(t, sess.Result)

	res := sess.Result
	assert.Equal(t, model.AnalysisCompleted, res.Status)
	assert.Equal(t, 28, res.OverallScore)
	assert.Equal(t, model.OverallMaxScore, res.MaxScore)
	assert.Equal(t, sess.ID, res.SessionID)
	assert.Equal(t, llm.MockModel, res.Model)
	assert.Equal(t, []string{"Plan ongoing maintenance and support budget"}, res.ImplementationTimeline.LongTerm)

	// 2 个优先动作 + 4 个维度建议 + 1 个长期计划
	assert.Len(t, sess.ActionItems, 7)
	assert.Equal(t, 2, env.llm.Calls())
	assert.Equal(t, []string{
		pubsub.StepExtracting, pubsub.StepPrompting, pubsub.StepAnalyzing, pubsub.StepPlanning, pubsub.StepDone,
	}, steps)

	// 分析结束后释放文档占用
	require.NoError(t, env.sessions.Claim(context.Background(), "other", []string{rfp.ID}))
}

func TestAnalyze_LLMErrorFallsBack(t *testing.T) {
	env := newTestEnv(t, false)
	env.llm.Err = context.DeadlineExceeded
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)

	sess, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
	require.NoError(t, err)

	assert.Equal(t, model.SessionFailed, sess.Status)
	require.NotNil(t, sess.Result)
	assert.Equal(t, model.AnalysisFailed, sess.Result.Status)
	assert.Equal(t, "llm_error: timeout", sess.Result.FailureReason)
	assert.Equal(t, sess.Result.FailureReason, sess.ErrorMessage)
	assert.Empty(t, sess.ActionItems)
	assert.NotEmpty(t, sess.Result.ImplementationTimeline.Immediate)
	// 失败时不再请求时间线
	assert.Equal(t, 1, env.llm.Calls())
}

func TestAnalyze_InvalidJSONIsFailedNotError(t *testing.T) {
	env := newTestEnv(t, false)
	env.llm.Responses = []string{"Sure! Here is my analysis: the RFP looks fine."}
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)

	sess, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
	require.NoError(t, err)
	assert.Equal(t, model.AnalysisFailed, sess.Result.Status)
	assert.Equal(t, "invalid_json", sess.Result.FailureReason)
	for _, d := range sess.Result.Dimensions() {
		assert.Equal(t, model.SourceDefault, d.Source)
		assert.GreaterOrEqual(t, d.Score, model.DimensionMinScore)
	}
}

func TestAnalyze_Errors(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)

	_, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: "missing"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	_, err = env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID, SessionID: "nope"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, env.sessions.Claim(context.Background(), "someone-else", []string{rfp.ID}))
	_, err = env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
	assert.ErrorIs(t, err, ErrDocumentBusy)
	assert.Zero(t, env.llm.Calls())
}

func TestAnalyze_ReusesSession(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)

	first, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
	require.NoError(t, err)
	second, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID, SessionID: first.ID})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.NotEqual(t, first.Result.ID, second.Result.ID)

	items, err := env.opt.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestAnalyze_PortfolioContext(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)
	env.upload(t, "acme.pdf", model.DocumentKindProposal, cloudProposalText)

	_, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID, IncludeHistoricalData: true})
	require.NoError(t, err)
	require.NotEmpty(t, env.llm.Requests)
	assert.Contains(t, env.llm.Requests[0].User, "Proposal: Acme")
	assert.True(t, env.llm.Requests[0].JSON)
}

func TestAnalyze_ConcurrentSameDocument(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, ErrDocumentBusy), "unexpected error: %v", err)
	}
	assert.GreaterOrEqual(t, succeeded, 1)
}

func TestActionItems_GroupAndUpdate(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)
	sess, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
	require.NoError(t, err)

	grouped, err := env.opt.ActionItems(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Len(t, grouped.Immediate, 2)
	assert.Len(t, grouped.ShortTerm, 4)
	assert.Len(t, grouped.LongTerm, 1)
	assert.Equal(t, 7, grouped.TotalCount)
	assert.Zero(t, grouped.CompletedCount)

	itemID := grouped.Immediate[0].ID
	notes := "assigned to procurement"
	item, err := env.opt.UpdateActionItem(context.Background(), sess.ID, itemID, true, &notes)
	require.NoError(t, err)
	require.NotNil(t, item.CompletedAt)
	firstCompletedAt := *item.CompletedAt

	again, err := env.opt.UpdateActionItem(context.Background(), sess.ID, itemID, true, nil)
	require.NoError(t, err)
	assert.Equal(t, firstCompletedAt, *again.CompletedAt)
	assert.Equal(t, notes, again.Notes)

	grouped, err = env.opt.ActionItems(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, grouped.CompletedCount)

	undone, err := env.opt.UpdateActionItem(context.Background(), sess.ID, itemID, false, nil)
	require.NoError(t, err)
	assert.False(t, undone.Completed)
	assert.Nil(t, undone.CompletedAt)

	_, err = env.opt.UpdateActionItem(context.Background(), sess.ID, "unknown", true, nil)
	assert.ErrorIs(t, err, ErrActionItemNotFound)
	_, err = env.opt.ActionItems(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOptimization_ListAndHealth(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)
	sess, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
	require.NoError(t, err)

	items, err := env.opt.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, sess.ID, items[0].SessionID)
	assert.Equal(t, 28, items[0].OverallScore)
	assert.Equal(t, "completed", items[0].AnalysisStatus)
	assert.LessOrEqual(t, len([]rune(items[0].Summary)), 103)

	health, err := env.opt.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.AgentStatus)
	assert.Equal(t, 1, health.ActiveSessions)
	assert.Equal(t, 7, health.TotalActionItems)

	resp, err := env.opt.GetAnalysis(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Result.ID, resp.Analysis.ID)
	_, err = env.opt.GetAnalysis(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestOptimization_EnqueueWithoutQueue(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)

	_, err := env.opt.Enqueue(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
	assert.ErrorIs(t, err, ErrQueueUnavailable)
}

func TestAnalyze_BusyDocumentLeavesNoSession(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)
	require.NoError(t, env.sessions.Claim(context.Background(), "someone-else", []string{rfp.ID}))

	_, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
	require.ErrorIs(t, err, ErrDocumentBusy)

	items, err := env.opt.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)

	health, err := env.opt.Health(context.Background())
	require.NoError(t, err)
	assert.Zero(t, health.ActiveSessions)
}

func TestAnalyze_DeletingDocumentKeepsResult(t *testing.T) {
	env := newTestEnv(t, false)
	rfp := env.upload(t, "crm.pdf", model.DocumentKindRFP, testutil.SampleRFPText)

	sess, err := env.opt.Analyze(context.Background(), AnalyzeInput{RFPDocumentID: rfp.ID})
	require.NoError(t, err)
	before := *sess.Result

	require.NoError(t, env.docs.Delete(context.Background(), rfp.ID))

	docs, err := env.docs.List("")
	require.NoError(t, err)
	for _, d := range docs {
		assert.NotEqual(t, rfp.ID, d.ID)
	}

	got, err := env.opt.GetAnalysis(context.Background(), sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, before.DocumentTitle, got.Analysis.DocumentTitle)
	assert.Equal(t, before.OverallScore, got.Analysis.OverallScore)
	assert.Equal(t, before.TimelineFeasibility.Score, got.Analysis.TimelineFeasibility.Score)
	assert.Equal(t, before.TotalCostOfOwnership.Score, got.Analysis.TotalCostOfOwnership.Score)
	assert.Equal(t, rfp.ID, got.Analysis.RFPDocumentID)

	stored, err := env.sessions.Get(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, rfp.ID, stored.RFPDocumentID)
}
