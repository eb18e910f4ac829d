package model

import (
	"time"
)

// AnalysisStatus 区分"模型给出的低分"和"根本没分析成功"
type AnalysisStatus string

const (
	AnalysisCompleted AnalysisStatus = "completed" // 全部维度来自模型
	AnalysisPartial   AnalysisStatus = "partial"   // 部分维度用默认模板补齐
	AnalysisFailed    AnalysisStatus = "failed"    // 整体回退到静态模板
)

// DimensionSource 维度数据来源
type DimensionSource string

const (
	SourceModel     DimensionSource = "model"
	SourceDefault   DimensionSource = "default"
	SourceHeuristic DimensionSource = "heuristic"
)

const (
	DimensionMinScore = 1
	DimensionMaxScore = 10
	OverallMaxScore   = 40
	MaxPriorityAction = 3
)

// DimensionAnalysis 四个维度共有的字段
type DimensionAnalysis struct {
	Score           int             `json:"score"`
	MaxScore        int             `json:"max_score"`
	Findings        []string        `json:"findings"`
	Recommendations []string        `json:"recommendations"`
	Source          DimensionSource `json:"source"`
}

type TimelineAnalysis struct {
	DimensionAnalysis
	RecommendedTimelineAdjustments []string `json:"recommended_timeline_adjustments"`
	RiskFactors                    []string `json:"risk_factors"`
	HistoricalComparison           []string `json:"historical_comparison"`
}

type RequirementsAnalysis struct {
	DimensionAnalysis
	RequirementGaps         []string `json:"requirement_gaps"`
	SuggestedClarifications []string `json:"suggested_clarifications"`
	DeliverableAlignment    string   `json:"deliverable_alignment"`
}

type CostAnalysis struct {
	DimensionAnalysis
	CostStructureAssessment   string   `json:"cost_structure_assessment"`
	ChangeManagementReadiness string   `json:"change_management_readiness"`
	MissingCostCategories     []string `json:"missing_cost_categories"`
	RecommendedContingencies  []string `json:"recommended_contingencies"`
}

type TCOAnalysis struct {
	DimensionAnalysis
	MissingCostElements      []string `json:"missing_cost_elements"`
	LifecycleCostProjections []string `json:"lifecycle_cost_projections"`
	BudgetRealismCheck       string   `json:"budget_realism_check"`
}

// ImplementationTimeline 按时间段分组的落地动作
type ImplementationTimeline struct {
	Immediate []string `json:"immediate"`
	ShortTerm []string `json:"short_term"`
	LongTerm  []string `json:"long_term"`
}

// AnalysisResult RFP 优化分析结果，生成后不再修改
type AnalysisResult struct {
	ID                     string                 `json:"id"`
	SessionID              string                 `json:"session_id"`
	RFPDocumentID          string                 `json:"rfp_document_id"`
	DocumentTitle          string                 `json:"document_title"`
	DocumentFilename       string                 `json:"document_filename"`
	Status                 AnalysisStatus         `json:"status"`
	FailureReason          string                 `json:"failure_reason,omitempty"`
	Model                  string                 `json:"model,omitempty"`
	OverallScore           int                    `json:"overall_score"`
	MaxScore               int                    `json:"max_score"`
	TimelineFeasibility    TimelineAnalysis       `json:"timeline_feasibility"`
	RequirementsClarity    RequirementsAnalysis   `json:"requirements_clarity"`
	CostFlexibility        CostAnalysis           `json:"cost_flexibility"`
	TotalCostOfOwnership   TCOAnalysis            `json:"total_cost_of_ownership"`
	ExecutiveSummary       string                 `json:"executive_summary"`
	PriorityActions        []string               `json:"priority_actions"`
	ImplementationTimeline ImplementationTimeline `json:"implementation_timeline"`
	ProcessingSeconds      float64                `json:"processing_seconds"`
	CreatedAt              time.Time              `json:"created_at"`
}

// Dimensions 按固定顺序返回四个维度的公共部分
func (r *AnalysisResult) Dimensions() []NamedDimension {
	return []NamedDimension{
		{Name: "timeline", Label: "Timeline", DimensionAnalysis: r.TimelineFeasibility.DimensionAnalysis},
		{Name: "requirements", Label: "Requirements", DimensionAnalysis: r.RequirementsClarity.DimensionAnalysis},
		{Name: "cost", Label: "Cost", DimensionAnalysis: r.CostFlexibility.DimensionAnalysis},
		{Name: "tco", Label: "Tco", DimensionAnalysis: r.TotalCostOfOwnership.DimensionAnalysis},
	}
}

// Succeeded 是否至少有一个维度是真实评估（模型或启发式）
func (r *AnalysisResult) Succeeded() bool {
	return r.Status != AnalysisFailed
}

type NamedDimension struct {
	Name  string
	Label string
	DimensionAnalysis
}
