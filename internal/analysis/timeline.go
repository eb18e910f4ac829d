package analysis

import (
	"encoding/json"
	"strings"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/textutil"
)

const maxTimelineEntries = 3

var (
	immediateVerbs = []string{"review", "validate", "identify", "clarify"}
	shortTermVerbs = []string{"implement", "establish", "develop", "conduct"}
)

// ParseTimeline 解析 {immediate, short_term, long_term}；ok=false 表示用了默认时间线
func ParseTimeline(raw string, priorityActions []string, title string) (model.ImplementationTimeline, bool) {
	var w wireTimelinePlan
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &w); err != nil {
		return DefaultTimeline(priorityActions, title), false
	}
	if len(nonEmpty(w.Immediate))+len(nonEmpty(w.ShortTerm))+len(nonEmpty(w.LongTerm)) == 0 {
		return DefaultTimeline(priorityActions, title), false
	}

	filler := defaultTemplate.forTitle(title).ImplementationTimeline
	return model.ImplementationTimeline{
		Immediate: bucket(nonEmpty(w.Immediate), filler.Immediate),
		ShortTerm: bucket(nonEmpty(w.ShortTerm), filler.ShortTerm),
		LongTerm:  bucket(nonEmpty(w.LongTerm), filler.LongTerm),
	}, true
}

// DefaultTimeline 按动词把优先动作分桶，空桶用通用条目补齐
func DefaultTimeline(priorityActions []string, title string) model.ImplementationTimeline {
	var immediate, shortTerm, longTerm []string
	for _, action := range nonEmpty(priorityActions) {
		switch {
		case textutil.ContainsAny(action, immediateVerbs...):
			immediate = append(immediate, action)
		case textutil.ContainsAny(action, shortTermVerbs...):
			shortTerm = append(shortTerm, action)
		default:
			longTerm = append(longTerm, action)
		}
	}

	filler := defaultTemplate.forTitle(title).ImplementationTimeline
	return model.ImplementationTimeline{
		Immediate: bucket(immediate, filler.Immediate),
		ShortTerm: bucket(shortTerm, filler.ShortTerm),
		LongTerm:  bucket(longTerm, filler.LongTerm),
	}
}

func bucket(items []string, filler stringList) []string {
	if len(items) == 0 {
		items = filler
	}
	return capList(items, maxTimelineEntries)
}
