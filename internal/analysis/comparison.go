package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/prompt"
)

const (
	comparisonFallbackSummary        = "Comprehensive analysis completed with competitive proposals received"
	comparisonFallbackRecommendation = "Best overall value proposition and technical capability"
)

type wireProposal struct {
	ProposalID     string     `json:"proposal_id"`
	VendorName     string     `json:"vendor_name"`
	OverallScore   score      `json:"overall_score"`
	BudgetScore    score      `json:"budget_score"`
	TechnicalScore score      `json:"technical_score"`
	TimelineScore  score      `json:"timeline_score"`
	Strengths      stringList `json:"strengths"`
	Concerns       stringList `json:"concerns"`
	ContactInfo    struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	} `json:"contact_info"`
}

type wireRecommendation struct {
	Rank       int    `json:"rank"`
	ProposalID string `json:"proposal_id"`
	Reasoning  string `json:"reasoning"`
}

type wireComparison struct {
	Proposals        []wireProposal       `json:"proposals"`
	ExecutiveSummary string               `json:"executive_summary"`
	Recommendations  []wireRecommendation `json:"recommendations"`
}

// ParseComparison 解析提案对比结果，分数限制在 0..100
//
// 模型漏掉的提案用固定基准分补齐，状态记为 partial；整体无法解析时为 failed。
func ParseComparison(raw string, proposals []model.DocumentSnapshot) *model.ComparisonResult {
	var w wireComparison
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &w); err != nil {
		return FallbackComparison(proposals, ReasonInvalidJSON)
	}
	if len(w.Proposals) == 0 {
		return FallbackComparison(proposals, "missing_proposals")
	}

	byID := make(map[string]wireProposal, len(w.Proposals))
	for _, p := range w.Proposals {
		byID[p.ProposalID] = p
	}

	res := newComparison(proposals)
	var missing []string
	for i, doc := range proposals {
		wp, ok := byID[doc.ID]
		// 模型没回 id 时按顺序对应
		if !ok && i < len(w.Proposals) && w.Proposals[i].ProposalID == "" {
			wp, ok = w.Proposals[i], true
		}
		if !ok {
			res.Proposals = append(res.Proposals, fallbackScore(i, doc))
			missing = append(missing, doc.ID)
			continue
		}
		res.Proposals = append(res.Proposals, toProposalScore(wp, doc))
	}

	switch {
	case len(missing) == len(proposals):
		return FallbackComparison(proposals, "missing_proposals")
	case len(missing) > 0:
		res.Status = model.AnalysisPartial
		res.FailureReason = "missing_proposals: " + strings.Join(missing, ", ")
	default:
		res.Status = model.AnalysisCompleted
	}

	res.Summary = strings.TrimSpace(w.ExecutiveSummary)
	if res.Summary == "" {
		res.Summary = comparisonFallbackSummary
	}
	res.Recommendation = recommendation(w.Recommendations, res.Proposals)
	return res
}

// FallbackComparison 固定基准分，status=failed
func FallbackComparison(proposals []model.DocumentSnapshot, reason string) *model.ComparisonResult {
	res := newComparison(proposals)
	res.Status = model.AnalysisFailed
	res.FailureReason = reason
	for i, doc := range proposals {
		res.Proposals = append(res.Proposals, fallbackScore(i, doc))
	}
	res.Summary = comparisonFallbackSummary
	if len(res.Proposals) > 0 {
		res.Recommendation = fmt.Sprintf("%s: %s", res.Proposals[0].Vendor, comparisonFallbackRecommendation)
	}
	return res
}

func newComparison(proposals []model.DocumentSnapshot) *model.ComparisonResult {
	res := &model.ComparisonResult{Proposals: make([]model.ProposalScore, 0, len(proposals))}
	for _, p := range proposals {
		res.TotalBudget += p.Budget
	}
	return res
}

func fallbackScore(i int, doc model.DocumentSnapshot) model.ProposalScore {
	base := 85 + (i*3)%15
	return model.ProposalScore{
		DocumentID:     doc.ID,
		Vendor:         vendorName(doc, i),
		FileName:       doc.Filename,
		OverallScore:   base,
		BudgetScore:    max(70, base-5),
		TechnicalScore: min(100, base+5),
		TimelineScore:  base,
		ProposedBudget: doc.Budget,
		Timeline:       prompt.FormatTimeline(doc.TimelineMonths),
		Contact:        "contact@vendor.com",
		Phone:          "+1 (555) 123-4567",
		Strengths:      []string{"Strong technical approach", "Competitive pricing", "Proven track record"},
		Concerns:       []string{"Timeline may be aggressive", "Limited local presence"},
	}
}

func toProposalScore(wp wireProposal, doc model.DocumentSnapshot) model.ProposalScore {
	vendor := strings.TrimSpace(wp.VendorName)
	if vendor == "" {
		vendor = vendorName(doc, -1)
	}
	return model.ProposalScore{
		DocumentID:     doc.ID,
		Vendor:         vendor,
		FileName:       doc.Filename,
		OverallScore:   clampPercent(wp.OverallScore.rounded()),
		BudgetScore:    clampPercent(wp.BudgetScore.rounded()),
		TechnicalScore: clampPercent(wp.TechnicalScore.rounded()),
		TimelineScore:  clampPercent(wp.TimelineScore.rounded()),
		ProposedBudget: doc.Budget,
		Timeline:       prompt.FormatTimeline(doc.TimelineMonths),
		Contact:        strings.TrimSpace(wp.ContactInfo.Email),
		Phone:          strings.TrimSpace(wp.ContactInfo.Phone),
		Strengths:      strs(wp.Strengths),
		Concerns:       strs(wp.Concerns),
	}
}

// vendorName 标题去掉 "Proposal: " 前缀；i<0 时不生成序号名
func vendorName(doc model.DocumentSnapshot, i int) string {
	name := strings.TrimSpace(strings.TrimPrefix(doc.Title, "Proposal: "))
	if name != "" {
		return name
	}
	if i < 0 {
		return doc.Filename
	}
	return fmt.Sprintf("Vendor %d", i+1)
}

func recommendation(recs []wireRecommendation, scores []model.ProposalScore) string {
	var best *wireRecommendation
	for i := range recs {
		if strings.TrimSpace(recs[i].Reasoning) == "" {
			continue
		}
		if best == nil || (recs[i].Rank > 0 && (best.Rank <= 0 || recs[i].Rank < best.Rank)) {
			best = &recs[i]
		}
	}
	if best == nil {
		return comparisonFallbackRecommendation
	}
	for _, s := range scores {
		if s.DocumentID == best.ProposalID {
			return fmt.Sprintf("%s: %s", s.Vendor, best.Reasoning)
		}
	}
	return best.Reasoning
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
