package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/model"
)

const (
	ModeStatic    = "static"
	ModeHeuristic = "heuristic"

	defaultDimensionScore = 5
)

const (
	ReasonInvalidJSON       = "invalid_json"
	ReasonMissingDimensions = "missing_dimensions"
	reasonLLMPrefix         = "llm_error: "
)

const (
	keyTimeline     = "timeline_feasibility"
	keyRequirements = "requirements_clarity"
	keyCost         = "cost_flexibility"
	keyTCO          = "tco_analysis"
	keySummary      = "executive_summary"
	keyActions      = "priority_actions"
)

// LLMFailureReason failure_reason 里的 llm_error: <class>
func LLMFailureReason(err error) string {
	return reasonLLMPrefix + string(llm.ClassifyError(err))
}

// Parser 把模型输出解析成 AnalysisResult，从不返回错误
type Parser struct {
	mode string
}

func NewParser(mode string) *Parser {
	if mode != ModeHeuristic {
		mode = ModeStatic
	}
	return &Parser{mode: mode}
}

func (p *Parser) Mode() string {
	return p.mode
}

// ParseOptimization 用默认的 static 模式解析
func ParseOptimization(raw string, doc model.DocumentSnapshot) *model.AnalysisResult {
	return NewParser(ModeStatic).ParseOptimization(raw, doc)
}

// ParseOptimization 严格解析 JSON；缺失或无法解析的维度用模板补齐
func (p *Parser) ParseOptimization(raw string, doc model.DocumentSnapshot) *model.AnalysisResult {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err != nil || fields == nil {
		return p.Fallback(doc, ReasonInvalidJSON)
	}

	tpl := defaultTemplate.forTitle(doc.Title)
	res := newResult(doc)
	var missing []string

	var tl wireTimeline
	if decodeKey(fields, keyTimeline, &tl) && !tl.empty() {
		res.TimelineFeasibility = tl.toModel(model.SourceModel)
	} else {
		res.TimelineFeasibility = tpl.Timeline.toModel(model.SourceDefault)
		missing = append(missing, keyTimeline)
	}

	var rq wireRequirements
	if decodeKey(fields, keyRequirements, &rq) && !rq.empty() {
		res.RequirementsClarity = rq.toModel(model.SourceModel)
	} else {
		res.RequirementsClarity = tpl.Requirements.toModel(model.SourceDefault)
		missing = append(missing, keyRequirements)
	}

	var cf wireCost
	if decodeKey(fields, keyCost, &cf) && !cf.empty() {
		res.CostFlexibility = cf.toModel(model.SourceModel)
	} else {
		res.CostFlexibility = tpl.Cost.toModel(model.SourceDefault)
		missing = append(missing, keyCost)
	}

	var tco wireTCO
	if decodeKey(fields, keyTCO, &tco) && !tco.empty() {
		res.TotalCostOfOwnership = tco.toModel(model.SourceModel)
	} else {
		res.TotalCostOfOwnership = tpl.TCO.toModel(model.SourceDefault)
		missing = append(missing, keyTCO)
	}

	var summary string
	if !decodeKey(fields, keySummary, &summary) || strings.TrimSpace(summary) == "" {
		summary = tpl.ExecutiveSummary
	}
	res.ExecutiveSummary = summary

	var actions stringList
	if !decodeKey(fields, keyActions, &actions) || len(nonEmpty(actions)) == 0 {
		actions = tpl.PriorityActions
	}
	res.PriorityActions = capList(nonEmpty(actions), model.MaxPriorityAction)

	switch len(missing) {
	case 0:
		res.Status = model.AnalysisCompleted
	case 4:
		res.Status = model.AnalysisFailed
		res.FailureReason = ReasonMissingDimensions
	default:
		res.Status = model.AnalysisPartial
		res.FailureReason = fmt.Sprintf("%s: %s", ReasonMissingDimensions, strings.Join(missing, ", "))
	}

	if p.mode == ModeHeuristic && len(missing) > 0 {
		applyHeuristics(res, doc)
	}
	res.OverallScore = overallScore(res)
	return res
}

// Fallback 整份静态模板，status=failed
func (p *Parser) Fallback(doc model.DocumentSnapshot, reason string) *model.AnalysisResult {
	tpl := defaultTemplate.forTitle(doc.Title)
	res := newResult(doc)
	res.Status = model.AnalysisFailed
	res.FailureReason = reason
	res.TimelineFeasibility = tpl.Timeline.toModel(model.SourceDefault)
	res.RequirementsClarity = tpl.Requirements.toModel(model.SourceDefault)
	res.CostFlexibility = tpl.Cost.toModel(model.SourceDefault)
	res.TotalCostOfOwnership = tpl.TCO.toModel(model.SourceDefault)
	res.ExecutiveSummary = tpl.ExecutiveSummary
	res.PriorityActions = capList(tpl.PriorityActions, model.MaxPriorityAction)

	if p.mode == ModeHeuristic {
		applyHeuristics(res, doc)
	}
	res.OverallScore = overallScore(res)
	return res
}

func newResult(doc model.DocumentSnapshot) *model.AnalysisResult {
	return &model.AnalysisResult{
		RFPDocumentID:    doc.ID,
		DocumentTitle:    doc.Title,
		DocumentFilename: doc.Filename,
		MaxScore:         model.OverallMaxScore,
		ImplementationTimeline: model.ImplementationTimeline{
			Immediate: []string{},
			ShortTerm: []string{},
			LongTerm:  []string{},
		},
	}
}

// decodeKey 键不存在、为 null 或者结构不对都算缺失
func decodeKey(fields map[string]json.RawMessage, key string, dst any) bool {
	raw, ok := fields[key]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func overallScore(r *model.AnalysisResult) int {
	total := 0
	for _, d := range r.Dimensions() {
		total += d.Score
	}
	return total
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func capList(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	return append([]string{}, in...)
}
