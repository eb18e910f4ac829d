package model

import (
	"time"
)

const (
	DocumentKindProposal = "proposal"
	DocumentKindRFP      = "rfp"
)

type Document struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	Kind           string    `gorm:"size:20;not null;index" json:"kind"` // proposal, rfp
	Filename       string    `gorm:"size:255;not null" json:"filename"`
	Title          string    `gorm:"size:255;not null" json:"title"`
	Size           int64     `gorm:"not null" json:"size"`
	ContentType    string    `gorm:"size:100" json:"content_type"`
	Fingerprint    string    `gorm:"size:64;uniqueIndex" json:"fingerprint"`
	StorageKey     string    `gorm:"size:500" json:"-"`
	Content        string    `gorm:"type:text" json:"content"`
	PageCount      int       `json:"page_count"`
	Budget         float64   `json:"budget"`
	TimelineMonths int       `json:"timeline_months"`
	Category       string    `gorm:"size:50" json:"category"`
	UploadedAt     time.Time `gorm:"index" json:"uploaded_at"`
}

func (Document) TableName() string {
	return "documents"
}

// Snapshot 复制分析时需要的字段，结果里不持有 Document 本身
func (d *Document) Snapshot() DocumentSnapshot {
	return DocumentSnapshot{
		ID:             d.ID,
		Kind:           d.Kind,
		Title:          d.Title,
		Filename:       d.Filename,
		Content:        d.Content,
		Budget:         d.Budget,
		TimelineMonths: d.TimelineMonths,
		Category:       d.Category,
	}
}

// DocumentSnapshot 文档在某次分析时刻的只读副本
type DocumentSnapshot struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	Title          string  `json:"title"`
	Filename       string  `json:"filename"`
	Content        string  `json:"-"`
	Budget         float64 `json:"budget"`
	TimelineMonths int     `json:"timeline_months"`
	Category       string  `json:"category"`
}
