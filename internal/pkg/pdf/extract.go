package pdf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MinTextLength 少于这个长度的正文视为扫描件或空文档
const MinTextLength = 50

var ErrNoExtractableText = errors.New("no extractable text found in PDF")

// Extractor 从 PDF 文件中提取纯文本
type Extractor interface {
	Extract(path string) (*Result, error)
}

type Result struct {
	Text      string
	PageCount int
}

// TextExtractor 基于 ledongthuc/pdf 的逐页提取
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract 逐页提取，每页前加 "--- Page N ---" 标记
func (e *TextExtractor) Extract(path string) (result *Result, err error) {
	// 损坏的 PDF 可能让解析库 panic
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "\n--- Page %d ---\n%s\n", i, text)
	}

	text := strings.TrimSpace(b.String())
	if len([]rune(text)) < MinTextLength {
		return nil, ErrNoExtractableText
	}

	return &Result{Text: text, PageCount: pages}, nil
}
