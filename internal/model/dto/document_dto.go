package dto

// UploadDocumentResponse 上传文档响应
type UploadDocumentResponse struct {
	DocumentID     string  `json:"document_id"`
	Kind           string  `json:"kind"`
	Title          string  `json:"title"`
	Filename       string  `json:"filename"`
	Size           int64   `json:"size"`
	PageCount      int     `json:"page_count"`
	Budget         float64 `json:"budget"`
	TimelineMonths int     `json:"timeline_months"`
	Category       string  `json:"category"`
	UploadedAt     string  `json:"uploaded_at"`
	Indexed        bool    `json:"indexed"`
}

// DocumentListItem 文档列表项（内容截断）
type DocumentListItem struct {
	ID             string  `json:"id"`
	Kind           string  `json:"kind"`
	Title          string  `json:"title"`
	Filename       string  `json:"filename"`
	Content        string  `json:"content"`
	Budget         float64 `json:"budget"`
	TimelineMonths int     `json:"timeline_months"`
	Category       string  `json:"category"`
	UploadedAt     string  `json:"uploaded_at"`
}

// DocumentDetail 文档详情
type DocumentDetail struct {
	DocumentListItem
	Size        int64  `json:"size"`
	PageCount   int    `json:"page_count"`
	Fingerprint string `json:"fingerprint"`
	DownloadURL string `json:"download_url"`
}

// SearchHit 向量检索命中的文档
type SearchHit struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Snippet    string  `json:"snippet"`
	Score      float64 `json:"score"`
}
