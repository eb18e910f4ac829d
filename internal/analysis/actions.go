package analysis

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/textutil"
)

const actionTitleLength = 50

// ActionItems 从分析结果生成待办；failed 的分析不生成任何条目
func ActionItems(res *model.AnalysisResult, now time.Time) []model.ActionItem {
	items := make([]model.ActionItem, 0)
	if res == nil || !res.Succeeded() {
		return items
	}

	add := func(title, desc, priority, dimension string) {
		items = append(items, model.ActionItem{
			ID:          uuid.NewString(),
			Title:       title,
			Description: desc,
			Priority:    priority,
			Dimension:   dimension,
			CreatedAt:   now,
		})
	}

	for i, action := range res.PriorityActions {
		add(fmt.Sprintf("Priority Action %d: %s", i+1, textutil.Truncate(action, actionTitleLength)),
			action, model.PriorityImmediate, "general")
	}

	for _, d := range res.Dimensions() {
		if d.Source != model.SourceModel && d.Source != model.SourceHeuristic {
			continue
		}
		for _, rec := range d.Recommendations {
			add(fmt.Sprintf("%s Optimization: %s", d.Label, textutil.Truncate(rec, actionTitleLength)),
				rec, model.PriorityShortTerm, d.Name)
		}
	}

	for i, step := range res.ImplementationTimeline.LongTerm {
		add(fmt.Sprintf("Long-term Action %d: %s", i+1, textutil.Truncate(step, actionTitleLength)),
			step, model.PriorityLongTerm, "general")
	}
	return items
}

// GroupActionItems 按优先级分组，三个分组总是存在
func GroupActionItems(items []model.ActionItem) map[string][]model.ActionItem {
	groups := map[string][]model.ActionItem{
		model.PriorityImmediate: {},
		model.PriorityShortTerm: {},
		model.PriorityLongTerm:  {},
	}
	for _, it := range items {
		groups[it.Priority] = append(groups[it.Priority], it)
	}
	return groups
}

// SetCompleted 幂等切换完成状态；只在 false->true 时记录 completed_at
func SetCompleted(item *model.ActionItem, completed bool, now time.Time) {
	switch {
	case completed && !item.Completed:
		item.Completed = true
		t := now
		item.CompletedAt = &t
	case !completed:
		item.Completed = false
		item.CompletedAt = nil
	}
}
