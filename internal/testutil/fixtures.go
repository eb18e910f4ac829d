package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

// SampleRFPText 一段典型的 RFP 正文
const SampleRFPText = `Request for Proposal: Cloud Migration Program
Scope of work: migrate the legacy CRM platform to a cloud hosted API-first architecture.
Deliverables include technical specifications, acceptance criteria and documentation.
Total budget: $250,000 with a payment schedule tied to each milestone.
Timeline: 9 months. Ongoing maintenance, support and training are required.`

// TestDocument 创建测试文档
func TestDocument(t *testing.T, db *gorm.DB, opts ...func(*model.Document)) *model.Document {
	t.Helper()

	id := uuid.NewString()
	doc := &model.Document{
		ID:             id,
		Kind:           model.DocumentKindProposal,
		Filename:       fmt.Sprintf("proposal_%s.pdf", id[:8]),
		Title:          "Proposal: Test Vendor",
		Size:           2048,
		ContentType:    "application/pdf",
		Fingerprint:    strings.ReplaceAll(id, "-", ""),
		StorageKey:     fmt.Sprintf("documents/%s/proposal.pdf", id),
		Content:        SampleRFPText,
		PageCount:      1,
		Budget:         250000,
		TimelineMonths: 9,
		Category:       "Technology",
		UploadedAt:     time.Now(),
	}

	for _, opt := range opts {
		opt(doc)
	}

	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("Failed to create test document: %v", err)
	}

	return doc
}

// WithKind 设置文档类型
func WithKind(kind string) func(*model.Document) {
	return func(d *model.Document) {
		d.Kind = kind
	}
}

// WithTitle 设置标题
func WithTitle(title string) func(*model.Document) {
	return func(d *model.Document) {
		d.Title = title
	}
}

// WithContent 设置正文
func WithContent(content string) func(*model.Document) {
	return func(d *model.Document) {
		d.Content = content
	}
}

// WithBudget 设置预算和工期
func WithBudget(budget float64, months int) func(*model.Document) {
	return func(d *model.Document) {
		d.Budget = budget
		d.TimelineMonths = months
	}
}

// WithUploadedAt 设置上传时间
func WithUploadedAt(at time.Time) func(*model.Document) {
	return func(d *model.Document) {
		d.UploadedAt = at
	}
}

// TestJob 创建测试任务
func TestJob(t *testing.T, db *gorm.DB, sessionID string, status string) *model.AnalysisJob {
	t.Helper()

	job := &model.AnalysisJob{
		SessionID:     sessionID,
		JobType:       model.JobTypeOptimization,
		RFPDocumentID: uuid.NewString(),
		ModelName:     "llama-3.1-8b-instant",
		Status:        status,
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}
