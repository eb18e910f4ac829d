package analysis

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// score 兼容模型输出的 7、7.5、"7"、null
type score float64

func (s *score) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*s = 0
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		*s = 0
		return nil
	}
	// "7/10" 这种写法只取分子
	if i := strings.IndexByte(raw, '/'); i > 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid score %q", raw)
	}
	*s = score(f)
	return nil
}

func (s score) rounded() int {
	return int(math.Round(float64(s)))
}

// stringList 兼容模型把列表写成单个字符串
type stringList []string

func (l *stringList) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = stringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

type wireDimension struct {
	Score           score      `json:"score" yaml:"score"`
	Findings        stringList `json:"findings" yaml:"findings"`
	Recommendations stringList `json:"recommendations" yaml:"recommendations"`
}

// empty 模型给了空对象
func (d wireDimension) empty() bool {
	return d.Score == 0 && len(d.Findings) == 0 && len(d.Recommendations) == 0
}

type wireTimeline struct {
	wireDimension                  `yaml:",inline"`
	RecommendedTimelineAdjustments stringList `json:"recommended_timeline_adjustments" yaml:"recommended_timeline_adjustments"`
	RiskFactors                    stringList `json:"risk_factors" yaml:"risk_factors"`
	HistoricalComparison           stringList `json:"historical_comparison" yaml:"historical_comparison"`
}

type wireRequirements struct {
	wireDimension           `yaml:",inline"`
	RequirementGaps         stringList `json:"requirement_gaps" yaml:"requirement_gaps"`
	SuggestedClarifications stringList `json:"suggested_clarifications" yaml:"suggested_clarifications"`
	DeliverableAlignment    string     `json:"deliverable_alignment" yaml:"deliverable_alignment"`
}

type wireCost struct {
	wireDimension             `yaml:",inline"`
	CostStructureAssessment   string     `json:"cost_structure_assessment" yaml:"cost_structure_assessment"`
	ChangeManagementReadiness string     `json:"change_management_readiness" yaml:"change_management_readiness"`
	MissingCostCategories     stringList `json:"missing_cost_categories" yaml:"missing_cost_categories"`
	RecommendedContingencies  stringList `json:"recommended_contingencies" yaml:"recommended_contingencies"`
}

type wireTCO struct {
	wireDimension            `yaml:",inline"`
	MissingCostElements      stringList `json:"missing_cost_elements" yaml:"missing_cost_elements"`
	LifecycleCostProjections stringList `json:"lifecycle_cost_projections" yaml:"lifecycle_cost_projections"`
	BudgetRealismCheck       string     `json:"budget_realism_check" yaml:"budget_realism_check"`
}

type wireTimelinePlan struct {
	Immediate stringList `json:"immediate" yaml:"immediate"`
	ShortTerm stringList `json:"short_term" yaml:"short_term"`
	LongTerm  stringList `json:"long_term" yaml:"long_term"`
}

// template 默认分析模板，字段名和模型输出保持一致
type template struct {
	Timeline               wireTimeline     `yaml:"timeline_feasibility"`
	Requirements           wireRequirements `yaml:"requirements_clarity"`
	Cost                   wireCost         `yaml:"cost_flexibility"`
	TCO                    wireTCO          `yaml:"tco_analysis"`
	ExecutiveSummary       string           `yaml:"executive_summary"`
	PriorityActions        stringList       `yaml:"priority_actions"`
	ImplementationTimeline wireTimelinePlan `yaml:"implementation_timeline"`
}

var defaultTemplate = mustLoadTemplate(fallbackYAML)

func mustLoadTemplate(data []byte) *template {
	t, err := loadTemplate(data)
	if err != nil {
		panic(fmt.Sprintf("analysis: invalid fallback template: %v", err))
	}
	return t
}

func loadTemplate(data []byte) (*template, error) {
	var t template
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	if t.Timeline.Score == 0 || t.ExecutiveSummary == "" || len(t.PriorityActions) == 0 {
		return nil, fmt.Errorf("template is incomplete")
	}
	return &t, nil
}

// forTitle 返回替换了 {title} 的模板副本
func (t *template) forTitle(title string) *template {
	if title == "" {
		title = "this RFP"
	}
	r := strings.NewReplacer("{title}", title)
	list := func(in stringList) stringList {
		out := make(stringList, len(in))
		for i, s := range in {
			out[i] = r.Replace(s)
		}
		return out
	}
	dim := func(d wireDimension) wireDimension {
		return wireDimension{Score: d.Score, Findings: list(d.Findings), Recommendations: list(d.Recommendations)}
	}

	c := *t
	c.Timeline.wireDimension = dim(t.Timeline.wireDimension)
	c.Timeline.RecommendedTimelineAdjustments = list(t.Timeline.RecommendedTimelineAdjustments)
	c.Timeline.RiskFactors = list(t.Timeline.RiskFactors)
	c.Timeline.HistoricalComparison = list(t.Timeline.HistoricalComparison)

	c.Requirements.wireDimension = dim(t.Requirements.wireDimension)
	c.Requirements.RequirementGaps = list(t.Requirements.RequirementGaps)
	c.Requirements.SuggestedClarifications = list(t.Requirements.SuggestedClarifications)
	c.Requirements.DeliverableAlignment = r.Replace(t.Requirements.DeliverableAlignment)

	c.Cost.wireDimension = dim(t.Cost.wireDimension)
	c.Cost.CostStructureAssessment = r.Replace(t.Cost.CostStructureAssessment)
	c.Cost.ChangeManagementReadiness = r.Replace(t.Cost.ChangeManagementReadiness)
	c.Cost.MissingCostCategories = list(t.Cost.MissingCostCategories)
	c.Cost.RecommendedContingencies = list(t.Cost.RecommendedContingencies)

	c.TCO.wireDimension = dim(t.TCO.wireDimension)
	c.TCO.MissingCostElements = list(t.TCO.MissingCostElements)
	c.TCO.LifecycleCostProjections = list(t.TCO.LifecycleCostProjections)
	c.TCO.BudgetRealismCheck = r.Replace(t.TCO.BudgetRealismCheck)

	c.ExecutiveSummary = r.Replace(t.ExecutiveSummary)
	c.PriorityActions = list(t.PriorityActions)
	c.ImplementationTimeline = wireTimelinePlan{
		Immediate: list(t.ImplementationTimeline.Immediate),
		ShortTerm: list(t.ImplementationTimeline.ShortTerm),
		LongTerm:  list(t.ImplementationTimeline.LongTerm),
	}
	return &c
}

func strs(l stringList) []string {
	if l == nil {
		return []string{}
	}
	return []string(l)
}

func toDimension(w wireDimension, src model.DimensionSource) model.DimensionAnalysis {
	return model.DimensionAnalysis{
		Score:           clampDimension(w.Score.rounded()),
		MaxScore:        model.DimensionMaxScore,
		Findings:        strs(w.Findings),
		Recommendations: strs(w.Recommendations),
		Source:          src,
	}
}

func (w wireTimeline) toModel(src model.DimensionSource) model.TimelineAnalysis {
	return model.TimelineAnalysis{
		DimensionAnalysis:              toDimension(w.wireDimension, src),
		RecommendedTimelineAdjustments: strs(w.RecommendedTimelineAdjustments),
		RiskFactors:                    strs(w.RiskFactors),
		HistoricalComparison:           strs(w.HistoricalComparison),
	}
}

func (w wireRequirements) toModel(src model.DimensionSource) model.RequirementsAnalysis {
	return model.RequirementsAnalysis{
		DimensionAnalysis:       toDimension(w.wireDimension, src),
		RequirementGaps:         strs(w.RequirementGaps),
		SuggestedClarifications: strs(w.SuggestedClarifications),
		DeliverableAlignment:    w.DeliverableAlignment,
	}
}

func (w wireCost) toModel(src model.DimensionSource) model.CostAnalysis {
	return model.CostAnalysis{
		DimensionAnalysis:         toDimension(w.wireDimension, src),
		CostStructureAssessment:   w.CostStructureAssessment,
		ChangeManagementReadiness: w.ChangeManagementReadiness,
		MissingCostCategories:     strs(w.MissingCostCategories),
		RecommendedContingencies:  strs(w.RecommendedContingencies),
	}
}

func (w wireTCO) toModel(src model.DimensionSource) model.TCOAnalysis {
	return model.TCOAnalysis{
		DimensionAnalysis:        toDimension(w.wireDimension, src),
		MissingCostElements:      strs(w.MissingCostElements),
		LifecycleCostProjections: strs(w.LifecycleCostProjections),
		BudgetRealismCheck:       w.BudgetRealismCheck,
	}
}

// clampDimension 0 视为缺失，取中间分
func clampDimension(v int) int {
	if v == 0 {
		return defaultDimensionScore
	}
	if v < model.DimensionMinScore {
		return model.DimensionMinScore
	}
	if v > model.DimensionMaxScore {
		return model.DimensionMaxScore
	}
	return v
}
