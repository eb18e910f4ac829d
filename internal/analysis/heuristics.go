package analysis

import (
	"fmt"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/textutil"
	"github.com/qs3c/rfq_alchemy/internal/prompt"
)

var (
	complexityIndicators = []string{
		"ai", "machine learning", "integration", "api", "cloud", "security",
		"compliance", "migration", "legacy", "real-time", "scalable",
	}
	modernizationTerms = []string{"migration", "legacy", "modernization"}
	clarityIndicators  = []string{
		"technical specifications", "acceptance criteria", "performance requirements",
		"functional requirements", "deliverables", "scope of work",
	}
	vagueTerms     = []string{"as needed", "appropriate", "suitable", "reasonable"}
	costIndicators = []string{
		"payment schedule", "milestone", "contingency", "change order",
		"cost breakdown", "pricing model",
	}
	tcoIndicators = []string{
		"maintenance", "support", "operational costs", "lifecycle",
		"ongoing costs", "hosting", "infrastructure", "training",
	}
)

// HeuristicScores 基于文档内容的规则评分，只在模型结果不可用时使用
type HeuristicScores struct {
	Complexity   int
	Timeline     int
	Requirements int
	Cost         int
	TCO          int
}

func ScoreContent(doc model.DocumentSnapshot) HeuristicScores {
	complexity := textutil.CountAny(doc.Content, complexityIndicators...)
	return HeuristicScores{
		Complexity:   complexity,
		Timeline:     timelineScore(doc.TimelineMonths, complexity, doc.Content),
		Requirements: requirementsScore(doc.Content),
		Cost:         costScore(doc.Budget, doc.Content),
		TCO:          tcoScore(doc.Content),
	}
}

func timelineScore(months, complexity int, content string) int {
	if months <= 0 {
		return defaultDimensionScore
	}
	s := 8
	switch {
	case complexity > 6:
		s -= 2
	case complexity > 3:
		s--
	}
	switch {
	case months < 6:
		s -= 2
	case months < 12:
		s--
	}
	if textutil.ContainsAny(content, modernizationTerms...) {
		s--
	}
	return clampDimension(s)
}

func requirementsScore(content string) int {
	s := 7
	found := textutil.CountAny(content, clarityIndicators...)
	switch {
	case found >= 4:
		s++
	case found <= 2:
		s--
	}
	if textutil.CountAny(content, vagueTerms...) > 3 {
		s--
	}
	return clampDimension(s)
}

func costScore(budget float64, content string) int {
	s := 7
	if budget <= 0 {
		s--
	}
	found := textutil.CountAny(content, costIndicators...)
	switch {
	case found >= 3:
		s++
	case found <= 1:
		s--
	}
	return clampDimension(s)
}

func tcoScore(content string) int {
	s := 6
	found := textutil.CountAny(content, tcoIndicators...)
	switch {
	case found >= 4:
		s += 2
	case found >= 2:
		s++
	case found == 0:
		s -= 2
	}
	return clampDimension(s)
}

func complexityLevel(n int) string {
	switch {
	case n > 5:
		return "High"
	case n > 2:
		return "Medium"
	default:
		return "Low"
	}
}

// applyHeuristics 只覆盖来自模板的维度，状态保持 failed/partial
func applyHeuristics(res *model.AnalysisResult, doc model.DocumentSnapshot) {
	h := ScoreContent(doc)

	if d := &res.TimelineFeasibility.DimensionAnalysis; d.Source == model.SourceDefault {
		d.Score = h.Timeline
		d.Source = model.SourceHeuristic
		d.Findings = append([]string{
			"Project duration: " + prompt.FormatTimeline(doc.TimelineMonths),
			"Complexity level: " + complexityLevel(h.Complexity),
		}, d.Findings...)
		res.TimelineFeasibility.RiskFactors = append([]string{
			fmt.Sprintf("%d technical complexity indicators identified", h.Complexity),
		}, res.TimelineFeasibility.RiskFactors...)
	}
	if d := &res.RequirementsClarity.DimensionAnalysis; d.Source == model.SourceDefault {
		d.Score = h.Requirements
		d.Source = model.SourceHeuristic
		d.Findings = append([]string{
			fmt.Sprintf("%d of %d requirement clarity indicators present", textutil.CountAny(doc.Content, clarityIndicators...), len(clarityIndicators)),
		}, d.Findings...)
	}
	if d := &res.CostFlexibility.DimensionAnalysis; d.Source == model.SourceDefault {
		d.Score = h.Cost
		d.Source = model.SourceHeuristic
		d.Findings = append([]string{"Budget: " + prompt.FormatBudget(doc.Budget)}, d.Findings...)
	}
	if d := &res.TotalCostOfOwnership.DimensionAnalysis; d.Source == model.SourceDefault {
		d.Score = h.TCO
		d.Source = model.SourceHeuristic
		d.Findings = append([]string{
			fmt.Sprintf("%d of %d lifecycle cost indicators present", textutil.CountAny(doc.Content, tcoIndicators...), len(tcoIndicators)),
		}, d.Findings...)
	}
}
