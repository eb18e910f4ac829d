package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pdf"
	"github.com/qs3c/rfq_alchemy/internal/pkg/storage"
	"github.com/qs3c/rfq_alchemy/internal/pkg/textutil"
	"github.com/qs3c/rfq_alchemy/internal/repository"
)

const pdfContentType = "application/pdf"

// spoolPattern 上传临时文件名，cron 按 "upload-" 前缀清理
const spoolPattern = "upload-*.pdf"

var (
	ErrInvalidFormat     = errors.New("only PDF files are supported")
	ErrFileTooLarge      = errors.New("file is too large")
	ErrUnreadablePDF     = errors.New("could not extract text from PDF")
	ErrDuplicateDocument = errors.New("document has already been uploaded")
	ErrDocumentNotFound  = errors.New("document not found")
)

// DuplicateError 携带已存在文档的 ID
type DuplicateError struct {
	ExistingID string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s (existing document %s)", ErrDuplicateDocument.Error(), e.ExistingID)
}

func (e *DuplicateError) Unwrap() error {
	return ErrDuplicateDocument
}

// UploadInput 一次上传
type UploadInput struct {
	Filename string
	Size     int64 // 未知时为 -1
	Reader   io.Reader
	Kind     string
}

// IngestResult 入库结果；Indexed=false 表示向量索引失败但文档已保存
type IngestResult struct {
	Document *model.Document
	Indexed  bool
}

// DocumentService 文档上传、提取、存储和删除
type DocumentService struct {
	docRepo   *repository.DocumentRepository
	store     storage.Store
	extractor pdf.Extractor
	indexer   *IndexService
	cfg       *config.Config
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	store storage.Store,
	extractor pdf.Extractor,
	indexer *IndexService,
	cfg *config.Config,
) *DocumentService {
	return &DocumentService{
		docRepo:   docRepo,
		store:     store,
		extractor: extractor,
		indexer:   indexer,
		cfg:       cfg,
	}
}

func (s *DocumentService) allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	allowed := s.cfg.Upload.AllowedExtensions
	if len(allowed) == 0 {
		allowed = []string{".pdf"}
	}
	for _, a := range allowed {
		if strings.ToLower(a) == ext {
			return true
		}
	}
	return false
}

// Ingest 校验、去重、提取文本、保存原文并建立索引
func (s *DocumentService) Ingest(ctx context.Context, in UploadInput) (*IngestResult, error) {
	if in.Kind != model.DocumentKindRFP {
		in.Kind = model.DocumentKindProposal
	}
	filename := filepath.Base(in.Filename)
	if !s.allowedExtension(filename) {
		return nil, ErrInvalidFormat
	}
	maxSize := s.cfg.Upload.MaxSize
	if maxSize > 0 && in.Size > maxSize {
		return nil, ErrFileTooLarge
	}

	spool, size, err := s.spool(in.Reader, maxSize)
	if err != nil {
		return nil, err
	}
	defer os.Remove(spool)

	mtype, err := mimetype.DetectFile(spool)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}
	if !mtype.Is(pdfContentType) {
		return nil, ErrInvalidFormat
	}

	fingerprint, err := fingerprintFile(spool)
	if err != nil {
		return nil, err
	}
	existing, err := s.docRepo.GetByFingerprint(fingerprint)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &DuplicateError{ExistingID: existing.ID}
	}

	extracted, err := s.extractor.Extract(spool)
	if err != nil {
		log.Printf("PDF extraction failed for %s: %v", filename, err)
		return nil, ErrUnreadablePDF
	}
	text := textutil.Sanitize(extracted.Text)
	if len([]rune(text)) < pdf.MinTextLength {
		return nil, ErrUnreadablePDF
	}

	meta := DeriveMeta(filename, in.Kind, text)
	doc := &model.Document{
		ID:             uuid.NewString(),
		Kind:           in.Kind,
		Filename:       filename,
		Title:          meta.Title,
		Size:           size,
		ContentType:    pdfContentType,
		Fingerprint:    fingerprint,
		Content:        text,
		PageCount:      extracted.PageCount,
		Budget:         meta.Budget,
		TimelineMonths: meta.TimelineMonths,
		Category:       meta.Category,
		UploadedAt:     time.Now(),
	}
	doc.StorageKey = storage.ObjectKey(doc.ID, filename)

	f, err := os.Open(spool)
	if err != nil {
		return nil, err
	}
	err = s.store.Put(ctx, doc.StorageKey, f, size, pdfContentType)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("store document: %w", err)
	}

	if err := s.docRepo.Create(doc); err != nil {
		if delErr := s.store.Delete(ctx, doc.StorageKey); delErr != nil {
			log.Printf("Failed to remove object %s after db error: %v", doc.StorageKey, delErr)
		}
		// 并发上传同一文件时，查重之后才撞上唯一索引
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, getErr := s.docRepo.GetByFingerprint(fingerprint); getErr == nil && existing != nil {
				return nil, &DuplicateError{ExistingID: existing.ID}
			}
		}
		return nil, err
	}

	indexed := true
	if s.indexer != nil {
		if err := s.indexer.IndexDocument(ctx, doc); err != nil {
			log.Printf("Failed to index document %s: %v", doc.ID, err)
			indexed = false
		}
	}
	return &IngestResult{Document: doc, Indexed: indexed}, nil
}

// MaxUploadBytes 单个文件的大小上限
func (s *DocumentService) MaxUploadBytes() int64 {
	return s.cfg.Upload.MaxSize
}

// spool 写入临时文件，超过 maxSize 时返回 ErrFileTooLarge
func (s *DocumentService) spool(r io.Reader, maxSize int64) (string, int64, error) {
	dir := s.cfg.Upload.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, err
	}
	f, err := os.CreateTemp(dir, spoolPattern)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	src := r
	if maxSize > 0 {
		src = io.LimitReader(r, maxSize+1)
	}
	n, err := io.Copy(f, src)
	if err != nil {
		os.Remove(f.Name())
		return "", 0, fmt.Errorf("spool upload: %w", err)
	}
	if maxSize > 0 && n > maxSize {
		os.Remove(f.Name())
		return "", 0, ErrFileTooLarge
	}
	if n == 0 {
		os.Remove(f.Name())
		return "", 0, ErrInvalidFormat
	}
	return f.Name(), n, nil
}

func fingerprintFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return textutil.Fingerprint(f)
}

// List kind 为空时返回全部
func (s *DocumentService) List(kind string) ([]*model.Document, error) {
	return s.docRepo.List(kind)
}

func (s *DocumentService) Get(id string) (*model.Document, error) {
	doc, err := s.docRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// GetMany 按给定顺序返回，任意一个不存在都报错
func (s *DocumentService) GetMany(ids []string) ([]*model.Document, error) {
	docs, err := s.docRepo.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Document, len(docs))
	for _, d := range docs {
		byID[d.ID] = d
	}
	out := make([]*model.Document, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, ErrDocumentNotFound
		}
		out = append(out, d)
	}
	return out, nil
}

// Open 读取原始文件，调用方负责关闭
func (s *DocumentService) Open(ctx context.Context, id string) (*model.Document, io.ReadCloser, error) {
	doc, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.store.Get(ctx, doc.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, ErrDocumentNotFound
		}
		return nil, nil, err
	}
	return doc, rc, nil
}

func (s *DocumentService) DownloadURL(doc *model.Document) string {
	return s.store.URL(doc.StorageKey)
}

// Delete 删除数据库记录、原文和向量；已生成的分析结果保存的是快照，不受影响
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	doc, err := s.Get(id)
	if err != nil {
		return err
	}
	if err := s.docRepo.Delete(id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, doc.StorageKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		log.Printf("Failed to delete object %s: %v", doc.StorageKey, err)
	}
	if s.indexer != nil {
		if err := s.indexer.Remove(ctx, id); err != nil {
			log.Printf("Failed to remove document %s from index: %v", id, err)
		}
	}
	return nil
}

// Snapshots 当前全部文档的快照，按 kind 过滤
func (s *DocumentService) Snapshots(kind string) ([]model.DocumentSnapshot, error) {
	docs, err := s.docRepo.List(kind)
	if err != nil {
		return nil, err
	}
	out := make([]model.DocumentSnapshot, len(docs))
	for i, d := range docs {
		out[i] = d.Snapshot()
	}
	return out, nil
}
