package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

func TestParseTimeline_FromModel(t *testing.T) {
	raw := `{"immediate": ["a", "b", "c", "d"], "short_term": ["e"], "long_term": []}`
	tl, ok := ParseTimeline(raw, nil, "Cloud RFP")

	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, tl.Immediate)
	assert.Equal(t, []string{"e"}, tl.ShortTerm)
	assert.Len(t, tl.LongTerm, 3)
	assert.Contains(t, tl.LongTerm[0], "Cloud RFP")
}

func TestParseTimeline_DefaultOnFailure(t *testing.T) {
	actions := []string{
		"Review vendor qualifications",
		"Establish governance board",
		"Budget for year two",
	}
	for _, raw := range []string{"nope", `{"immediate": [], "short_term": [], "long_term": []}`} {
		tl, ok := ParseTimeline(raw, actions, "Cloud RFP")

		assert.False(t, ok)
		assert.Equal(t, []string{"Review vendor qualifications"}, tl.Immediate)
		assert.Equal(t, []string{"Establish governance board"}, tl.ShortTerm)
		assert.Equal(t, []string{"Budget for year two"}, tl.LongTerm)
	}
}

func TestDefaultTimeline_Fillers(t *testing.T) {
	tl := DefaultTimeline(nil, "Cloud RFP")

	assert.Equal(t, []string{
		"Review and validate Cloud RFP structure and requirements",
		"Identify immediate gaps in project documentation",
	}, tl.Immediate)
	assert.Len(t, tl.ShortTerm, 3)
	assert.Len(t, tl.LongTerm, 3)
}

func TestActionItems(t *testing.T) {
	res := ParseOptimization(fullResponse, testDoc)
	res.ImplementationTimeline = model.ImplementationTimeline{LongTerm: []string{"Plan a yearly vendor review"}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	items := ActionItems(res, now)

	groups := GroupActionItems(items)
	assert.Len(t, groups[model.PriorityImmediate], 3)
	assert.Len(t, groups[model.PriorityShortTerm], 4)
	assert.Len(t, groups[model.PriorityLongTerm], 1)

	first := groups[model.PriorityImmediate][0]
	assert.Equal(t, "Priority Action 1: Define SLAs", first.Title)
	assert.Equal(t, "general", first.Dimension)
	assert.Equal(t, now, first.CreatedAt)
	assert.NotEmpty(t, first.ID)

	short := groups[model.PriorityShortTerm][0]
	assert.Equal(t, "Timeline Optimization: Add a discovery phase", short.Title)
	assert.Equal(t, "timeline", short.Dimension)

	ids := map[string]bool{}
	for _, it := range items {
		assert.False(t, ids[it.ID])
		ids[it.ID] = true
	}
}

func TestActionItems_TruncatesLongTitles(t *testing.T) {
	long := "Negotiate a fixed price contract with milestone based payments and penalties"
	res := &model.AnalysisResult{Status: model.AnalysisCompleted, PriorityActions: []string{long}}

	items := ActionItems(res, time.Now())

	assert.Equal(t, "Priority Action 1: Negotiate a fixed price contract with milestone ba...", items[0].Title)
	assert.Equal(t, long, items[0].Description)
}

func TestActionItems_SkipsDefaultedDimensionsAndFailures(t *testing.T) {
	partial := ParseOptimization(`{"timeline_feasibility": {"score": 6, "recommendations": ["Add buffer"]}}`, testDoc)
	items := ActionItems(partial, time.Now())
	for _, it := range items {
		assert.NotContains(t, []string{"requirements", "cost", "tco"}, it.Dimension)
	}
	assert.Len(t, GroupActionItems(items)[model.PriorityShortTerm], 1)

	failed := ParseOptimization("garbage", testDoc)
	assert.Empty(t, ActionItems(failed, time.Now()))
	assert.Empty(t, ActionItems(nil, time.Now()))

	heuristicFailed := NewParser(ModeHeuristic).ParseOptimization("garbage", testDoc)
	assert.Empty(t, ActionItems(heuristicFailed, time.Now()))
}

func TestSetCompleted_Idempotent(t *testing.T) {
	item := &model.ActionItem{ID: "a"}
	t1 := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	SetCompleted(item, true, t1)
	SetCompleted(item, true, t2)
	assert.True(t, item.Completed)
	assert.Equal(t, t1, *item.CompletedAt)

	SetCompleted(item, false, t2)
	SetCompleted(item, false, t2)
	assert.False(t, item.Completed)
	assert.Nil(t, item.CompletedAt)
}
