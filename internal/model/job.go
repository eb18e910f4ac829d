package model

import (
	"time"
)

const (
	JobTypeOptimization = "rfp_optimization"
	JobTypeComparison   = "comparison"
)

type AnalysisJob struct {
	ID             int64      `gorm:"primaryKey" json:"id"`
	SessionID      string     `gorm:"size:64;not null;index" json:"session_id"`
	JobType        string     `gorm:"size:30;not null" json:"job_type"` // rfp_optimization, comparison
	DocumentIDs    string     `gorm:"type:text" json:"document_ids"`    // 逗号分隔
	RFPDocumentID  string     `gorm:"size:36" json:"rfp_document_id,omitempty"`
	IncludeHistory bool       `json:"include_historical_data"`
	ModelName      string     `gorm:"size:100" json:"model_name"`
	Status         string     `gorm:"size:20;default:queued;index" json:"status"` // queued, processing, completed, failed, cancelled
	CurrentStep    string     `gorm:"size:200" json:"current_step,omitempty"`
	ErrorMessage   string     `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	ElapsedSeconds int        `json:"elapsed_seconds,omitempty"`
}

func (AnalysisJob) TableName() string {
	return "analysis_jobs"
}
