package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/textutil"
)

const (
	DefaultContentPreview  = 3000
	ComparisonPreview      = 2000
	HistoryTurns           = 10
	roleAnalyst            = "You are an expert RFP Optimization AI Agent for Leonardo's RFQ Alchemy. You analyze procurement documents and give specific, actionable recommendations."
	roleComparison         = "You are an expert business analyst who compares vendor proposals for procurement teams."
	roleAssistant          = "You are an AI assistant helping a procurement team evaluate project proposals."
	jsonOnlyInstruction    = "You MUST respond with ONLY valid JSON. Do not include any text before or after the JSON."
	groundingInstruction   = "ONLY use data that exists in the proposals, analysis or context provided. Do not invent figures."
	conversationalResponse = "Your response should be conversational and informative. Do not include JSON formatting in your response."
)

// Prompt 一次调用的系统提示和用户提示
type Prompt struct {
	System string
	User   string
}

// FormatBudget $1,234,567 或 Not specified
func FormatBudget(budget float64) string {
	if budget <= 0 {
		return "Not specified"
	}
	return "$" + groupThousands(int64(budget+0.5))
}

// FormatTimeline N months 或 Not specified
func FormatTimeline(months int) string {
	if months <= 0 {
		return "Not specified"
	}
	return fmt.Sprintf("%d months", months)
}

func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func bulletList(items []string) string {
	if len(items) == 0 {
		return "- (none)"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// OptimizationOptions RFP 优化提示的可选内容
type OptimizationOptions struct {
	ContentPreview int
	Portfolio      []model.DocumentSnapshot // include_historical_data 时带上的其它文档
}

// Optimization 四维度 RFP 优化分析提示
func Optimization(doc model.DocumentSnapshot, opts OptimizationOptions) Prompt {
	preview := opts.ContentPreview
	if preview <= 0 {
		preview = DefaultContentPreview
	}

	var b strings.Builder
	b.WriteString(`ANALYSIS FRAMEWORK:
You MUST evaluate and provide specific recommendations across these four critical dimensions:

1. TIMELINE FEASIBILITY & OPTIMIZATION
2. REQUIREMENTS CLARITY & DELIVERABLE ALIGNMENT
3. COST STRUCTURE & CHANGE MANAGEMENT
4. TOTAL COST OF OWNERSHIP (TCO) ANALYSIS

RFP DOCUMENT TO ANALYZE:
`)
	fmt.Fprintf(&b, "Title: %s\n", doc.Title)
	fmt.Fprintf(&b, "Content: %s\n", textutil.Truncate(doc.Content, preview))
	fmt.Fprintf(&b, "Budget: %s\n", FormatBudget(doc.Budget))
	fmt.Fprintf(&b, "Timeline: %s\n", FormatTimeline(doc.TimelineMonths))

	if len(opts.Portfolio) > 0 {
		b.WriteString("\nPORTFOLIO CONTEXT (other documents on the platform):\n")
		for _, p := range opts.Portfolio {
			fmt.Fprintf(&b, "- %s | Budget: %s | Timeline: %s | Category: %s\n",
				p.Title, FormatBudget(p.Budget), FormatTimeline(p.TimelineMonths), p.Category)
		}
	}

	b.WriteString(`
Provide your analysis in the following EXACT JSON format:

{
  "timeline_feasibility": {
    "score": 1-10,
    "findings": ["specific finding about timeline based on RFP content"],
    "recommendations": ["specific actionable timeline recommendation"],
    "recommended_timeline_adjustments": ["timeline adjustment with rationale"],
    "risk_factors": ["timeline risk and mitigation strategy"],
    "historical_comparison": ["comparison with similar project type"]
  },
  "requirements_clarity": {
    "score": 1-10,
    "findings": ["specific finding"],
    "recommendations": ["specific recommendation"],
    "requirement_gaps": ["gap"],
    "suggested_clarifications": ["clarification"],
    "deliverable_alignment": "assessment of requirement-to-output coherence"
  },
  "cost_flexibility": {
    "score": 1-10,
    "findings": ["specific finding"],
    "recommendations": ["specific recommendation"],
    "cost_structure_assessment": "flexibility rating and recommendations",
    "change_management_readiness": "evaluation of change handling processes",
    "missing_cost_categories": ["missing category"],
    "recommended_contingencies": ["contingency with percentage"]
  },
  "tco_analysis": {
    "score": 1-10,
    "findings": ["specific finding"],
    "recommendations": ["specific recommendation"],
    "missing_cost_elements": ["missing element"],
    "lifecycle_cost_projections": ["projection"],
    "budget_realism_check": "whether the budget aligns with true project costs"
  },
  "executive_summary": "2-3 sentence overview of key findings and priority recommendations",
  "priority_actions": ["most critical recommendation", "second priority", "third priority"]
}

REQUIREMENTS:
- All scores must be integers 1-10 justified by the RFP content
- Recommendations must reference actual details from the RFP
- Ensure the JSON is complete`)

	return Prompt{
		System: roleAnalyst + "\n" + jsonOnlyInstruction,
		User:   b.String(),
	}
}

// Timeline 把优先动作排进 immediate / short_term / long_term
func Timeline(priorityActions []string, summary string) Prompt {
	var b strings.Builder
	b.WriteString(`Based on the following RFP optimization analysis and priority actions,
create an implementation timeline categorized into immediate (0-1 week),
short-term (1-4 weeks) and long-term (1-3 months) actions.

Priority Actions:
`)
	b.WriteString(bulletList(priorityActions))
	b.WriteString("\n\nAnalysis Summary:\n")
	b.WriteString(summary)
	b.WriteString(`

Provide the response in JSON format:
{
  "immediate": ["action"],
  "short_term": ["action"],
  "long_term": ["action"]
}

At most 3 practical actions per timeframe.`)

	return Prompt{
		System: roleAnalyst + "\n" + jsonOnlyInstruction,
		User:   b.String(),
	}
}

// Comparison 多提案横向评分提示；rfp 非空时作为评分基线
func Comparison(proposals []model.DocumentSnapshot, rfp *model.DocumentSnapshot) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Provide a comprehensive comparison of the following %d proposals.\n\n", len(proposals))

	if rfp != nil {
		b.WriteString("BASELINE RFP:\n")
		fmt.Fprintf(&b, "Title: %s\nBudget: %s\nTimeline: %s\nRequirements: %s\n\n",
			rfp.Title, FormatBudget(rfp.Budget), FormatTimeline(rfp.TimelineMonths),
			textutil.Truncate(rfp.Content, ComparisonPreview))
	}

	b.WriteString("Proposals to analyze:\n")
	for i, p := range proposals {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Proposal ID: %s\nTitle: %s\nBudget: %s\nTimeline: %s\nCategory: %s\nDescription: %s\n",
			p.ID, p.Title, FormatBudget(p.Budget), FormatTimeline(p.TimelineMonths), p.Category,
			textutil.Truncate(p.Content, ComparisonPreview))
	}

	b.WriteString(`
For EACH proposal, respond in the following JSON format:

{
  "proposals": [
    {
      "proposal_id": "proposal id from above",
      "vendor_name": "vendor name extracted from the proposal",
      "overall_score": 0-100,
      "budget_score": 0-100,
      "technical_score": 0-100,
      "timeline_score": 0-100,
      "strengths": ["specific strength"],
      "concerns": ["specific concern"],
      "contact_info": {"email": "email if present", "phone": "phone if present"}
    }
  ],
  "executive_summary": "overall comparison summary",
  "recommendations": [
    {"rank": 1, "proposal_id": "best proposal id", "reasoning": "why it ranks first"}
  ]
}

Scores are integers 0-100. Leave contact fields empty when the proposal does not state them.`)

	return Prompt{
		System: roleComparison + "\n" + jsonOnlyInstruction,
		User:   b.String(),
	}
}

// Snippet 检索到的上下文片段
type Snippet struct {
	Title   string
	Content string
}

// QuestionInput 对话提示的输入
type QuestionInput struct {
	Question  string
	Analysis  string // 分析结果摘要，可为空
	Proposals []model.DocumentSnapshot
	History   []model.ChatMessage
	Context   []Snippet
}

// Question 基于分析结果和检索上下文回答问题
func Question(in QuestionInput) Prompt {
	var b strings.Builder

	b.WriteString("ANALYSIS RESULT:\n")
	if in.Analysis != "" {
		b.WriteString(in.Analysis)
	} else {
		b.WriteString("(no analysis has been run yet)")
	}

	b.WriteString("\n\nPROPOSALS:\n")
	var total float64
	if len(in.Proposals) == 0 {
		b.WriteString("(no proposals uploaded)\n")
	}
	for _, p := range in.Proposals {
		total += p.Budget
		fmt.Fprintf(&b, "- %s | Budget: %s | Timeline: %s | Category: %s\n",
			p.Title, FormatBudget(p.Budget), FormatTimeline(p.TimelineMonths), p.Category)
	}
	fmt.Fprintf(&b, "\nBUDGET CONTEXT:\n- Total Budget: %s\n", FormatBudget(total))

	if len(in.Context) > 0 {
		b.WriteString("\nRELEVANT EXCERPTS:\n")
		for i, s := range in.Context {
			fmt.Fprintf(&b, "[%d] %s: %s\n", i+1, s.Title, textutil.Truncate(s.Content, 800))
		}
	}

	history := in.History
	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("\nCONVERSATION HISTORY:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Type, m.Content)
		}
	}

	fmt.Fprintf(&b, "\nUSER QUESTION: %s\n", in.Question)

	return Prompt{
		System: roleAssistant + "\n" + groundingInstruction + "\n" + conversationalResponse,
		User:   b.String(),
	}
}
