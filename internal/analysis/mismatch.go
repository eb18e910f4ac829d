package analysis

import (
	"fmt"
	"strings"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/prompt"
)

const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

type keywordGroup struct {
	name     string
	keywords []string
}

var technicalGroups = []keywordGroup{
	{"ai", []string{"ai", "artificial intelligence", "machine learning", "ml", "neural network"}},
	{"cloud", []string{"cloud", "aws", "azure", "gcp", "kubernetes", "docker"}},
	{"api", []string{"api", "rest", "graphql", "microservices", "integration"}},
	{"database", []string{"database", "sql", "nosql", "mongodb", "postgresql", "mysql"}},
	{"security", []string{"security", "encryption", "authentication", "authorization", "ssl", "tls"}},
	{"mobile", []string{"mobile", "ios", "android", "react native", "flutter"}},
	{"web", []string{"web", "frontend", "backend", "react", "angular", "vue"}},
}

var scopeGroups = []keywordGroup{
	{"deliverables", []string{"deliverable", "delivery", "output", "result"}},
	{"phases", []string{"phase", "milestone", "stage", "iteration"}},
	{"support", []string{"support", "maintenance", "warranty", "training"}},
	{"documentation", []string{"documentation", "manual", "guide", "specification"}},
	{"testing", []string{"testing", "qa", "quality assurance", "validation"}},
}

// DetectMismatches 比较提案和 RFP 基线，各项得分 0-100，总分取平均
func DetectMismatches(rfp, proposal model.DocumentSnapshot) *model.RFPAlignment {
	var mismatches []model.Mismatch

	budget, m := budgetAlignment(rfp, proposal)
	mismatches = append(mismatches, m...)
	timeline, m := timelineAlignment(rfp, proposal)
	mismatches = append(mismatches, m...)
	technical, m := technicalAlignment(rfp, proposal)
	mismatches = append(mismatches, m...)
	scope, m := scopeAlignment(rfp, proposal)
	mismatches = append(mismatches, m...)

	overall := (budget + timeline + technical + scope) / 4
	if mismatches == nil {
		mismatches = []model.Mismatch{}
	}
	return &model.RFPAlignment{
		OverallAlignmentScore:   float64(overall),
		BudgetAlignmentScore:    float64(budget),
		TimelineAlignmentScore:  float64(timeline),
		TechnicalAlignmentScore: float64(technical),
		ScopeAlignmentScore:     float64(scope),
		Mismatches:              mismatches,
		Summary:                 alignmentSummary(overall, mismatches),
	}
}

func budgetAlignment(rfp, proposal model.DocumentSnapshot) (int, []model.Mismatch) {
	if rfp.Budget <= 0 || proposal.Budget <= 0 {
		return 50, nil
	}
	ratio := proposal.Budget / rfp.Budget
	requirement := "Budget: " + prompt.FormatBudget(rfp.Budget)
	value := "Budget: " + prompt.FormatBudget(proposal.Budget)

	switch {
	case ratio > 1.2:
		severity := SeverityMedium
		if ratio > 1.5 {
			severity = SeverityHigh
		}
		return max(20, 100-int((ratio-1)*100)), []model.Mismatch{{
			Type:     "budget",
			Severity: severity,
			Message: fmt.Sprintf("Proposal budget (%s) exceeds RFP budget (%s) by %.1f%%",
				prompt.FormatBudget(proposal.Budget), prompt.FormatBudget(rfp.Budget), (ratio-1)*100),
			RFPRequirement: requirement,
			ProposalValue:  value,
			Impact:         "May require budget reallocation or scope reduction",
		}}
	case ratio < 0.5:
		return max(60, 100-int((1-ratio)*50)), []model.Mismatch{{
			Type:     "budget",
			Severity: SeverityMedium,
			Message: fmt.Sprintf("Proposal budget (%s) is significantly lower than RFP budget (%s)",
				prompt.FormatBudget(proposal.Budget), prompt.FormatBudget(rfp.Budget)),
			RFPRequirement: requirement,
			ProposalValue:  value,
			Impact:         "May indicate missing scope or unrealistic pricing",
		}}
	}
	return 100, nil
}

func timelineAlignment(rfp, proposal model.DocumentSnapshot) (int, []model.Mismatch) {
	if rfp.TimelineMonths <= 0 || proposal.TimelineMonths <= 0 {
		return 50, nil
	}
	ratio := float64(proposal.TimelineMonths) / float64(rfp.TimelineMonths)
	requirement := "Timeline: " + prompt.FormatTimeline(rfp.TimelineMonths)
	value := "Timeline: " + prompt.FormatTimeline(proposal.TimelineMonths)

	switch {
	case ratio > 1.3:
		severity := SeverityMedium
		if ratio > 1.8 {
			severity = SeverityHigh
		}
		return max(30, 100-int((ratio-1)*80)), []model.Mismatch{{
			Type:     "timeline",
			Severity: severity,
			Message: fmt.Sprintf("Proposal timeline (%d months) exceeds RFP timeline (%d months) by %.1f%%",
				proposal.TimelineMonths, rfp.TimelineMonths, (ratio-1)*100),
			RFPRequirement: requirement,
			ProposalValue:  value,
			Impact:         "May delay project delivery and impact business objectives",
		}}
	case ratio < 0.6:
		return max(70, 100-int((1-ratio)*40)), []model.Mismatch{{
			Type:     "timeline",
			Severity: SeverityMedium,
			Message: fmt.Sprintf("Proposal timeline (%d months) is significantly shorter than RFP timeline (%d months)",
				proposal.TimelineMonths, rfp.TimelineMonths),
			RFPRequirement: requirement,
			ProposalValue:  value,
			Impact:         "May indicate unrealistic timeline or missing project phases",
		}}
	}
	return 100, nil
}

// missingGroups RFP 提到但提案没提到的关键词组
func missingGroups(groups []keywordGroup, rfp, proposal string) []string {
	rfpLower := strings.ToLower(rfp)
	propLower := strings.ToLower(proposal)
	var missing []string
	for _, g := range groups {
		if mentions(rfpLower, g.keywords) && !mentions(propLower, g.keywords) {
			missing = append(missing, g.name)
		}
	}
	return missing
}

func mentions(lower string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

func technicalAlignment(rfp, proposal model.DocumentSnapshot) (int, []model.Mismatch) {
	missing := missingGroups(technicalGroups, rfp.Content, proposal.Content)
	if len(missing) == 0 {
		return 100, nil
	}
	out := make([]model.Mismatch, 0, len(missing))
	for _, name := range missing {
		upper := strings.ToUpper(name)
		out = append(out, model.Mismatch{
			Type:           "technical",
			Severity:       SeverityHigh,
			Message:        fmt.Sprintf("RFP requires %s capabilities but proposal doesn't address this requirement", upper),
			RFPRequirement: "Technical requirement: " + upper,
			ProposalValue:  "Not mentioned in proposal",
			Impact:         fmt.Sprintf("Missing %s implementation may affect project success", name),
		})
	}
	return max(20, 100-20*len(missing)), out
}

func scopeAlignment(rfp, proposal model.DocumentSnapshot) (int, []model.Mismatch) {
	missing := missingGroups(scopeGroups, rfp.Content, proposal.Content)
	if len(missing) == 0 {
		return 100, nil
	}
	out := make([]model.Mismatch, 0, len(missing))
	for _, name := range missing {
		out = append(out, model.Mismatch{
			Type:           "scope",
			Severity:       SeverityMedium,
			Message:        fmt.Sprintf("RFP mentions %s but proposal doesn't clearly address this scope element", name),
			RFPRequirement: "Scope requirement: " + name,
			ProposalValue:  "Not clearly addressed in proposal",
			Impact:         fmt.Sprintf("Unclear %s scope may lead to project disputes", name),
		})
	}
	return max(40, 100-15*len(missing)), out
}

func alignmentSummary(overall int, mismatches []model.Mismatch) string {
	var summary string
	switch {
	case overall >= 90:
		summary = "Excellent alignment with RFP requirements."
	case overall >= 75:
		summary = "Good alignment with RFP requirements."
	case overall >= 60:
		summary = "Moderate alignment with some concerns."
	case overall >= 40:
		summary = "Poor alignment with significant issues."
	default:
		summary = "Very poor alignment with major mismatches."
	}

	high := 0
	for _, m := range mismatches {
		if m.Severity == SeverityHigh {
			high++
		}
	}
	if high > 0 {
		summary += fmt.Sprintf(" %d high-priority issue(s) identified.", high)
	}
	return summary
}
