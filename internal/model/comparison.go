package model

import (
	"time"
)

// Mismatch 提案与 RFP 基线之间的一处不一致
type Mismatch struct {
	Type           string `json:"type"`     // budget, timeline, technical, scope
	Severity       string `json:"severity"` // high, medium, low
	Message        string `json:"message"`
	RFPRequirement string `json:"rfp_requirement"`
	ProposalValue  string `json:"proposal_value"`
	Impact         string `json:"impact"`
}

// RFPAlignment 提案对 RFP 的对齐度（0-100）
type RFPAlignment struct {
	OverallAlignmentScore   float64    `json:"overall_alignment_score"`
	BudgetAlignmentScore    float64    `json:"budget_alignment_score"`
	TimelineAlignmentScore  float64    `json:"timeline_alignment_score"`
	TechnicalAlignmentScore float64    `json:"technical_alignment_score"`
	ScopeAlignmentScore     float64    `json:"scope_alignment_score"`
	Mismatches              []Mismatch `json:"mismatches"`
	Summary                 string     `json:"summary"`
}

// ProposalScore 单个提案的对比评分
type ProposalScore struct {
	DocumentID     string        `json:"document_id"`
	Vendor         string        `json:"vendor"`
	FileName       string        `json:"file_name"`
	OverallScore   int           `json:"overall_score"`
	BudgetScore    int           `json:"budget_score"`
	TechnicalScore int           `json:"technical_score"`
	TimelineScore  int           `json:"timeline_score"`
	ProposedBudget float64       `json:"proposed_budget"`
	Timeline       string        `json:"timeline"`
	Contact        string        `json:"contact"`
	Phone          string        `json:"phone"`
	Strengths      []string      `json:"strengths"`
	Concerns       []string      `json:"concerns"`
	RFPAlignment   *RFPAlignment `json:"rfp_alignment,omitempty"`
}

// ComparisonResult 多个提案的横向对比
type ComparisonResult struct {
	ID             string          `json:"id"`
	SessionID      string          `json:"session_id"`
	RFPDocumentID  string          `json:"rfp_document_id,omitempty"`
	Status         AnalysisStatus  `json:"status"`
	FailureReason  string          `json:"failure_reason,omitempty"`
	Model          string          `json:"model,omitempty"`
	Proposals      []ProposalScore `json:"proposals"`
	Summary        string          `json:"summary"`
	Recommendation string          `json:"recommendation"`
	TotalBudget    float64         `json:"total_budget"`
	CreatedAt      time.Time       `json:"created_at"`
}
