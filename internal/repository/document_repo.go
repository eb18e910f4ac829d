package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	return r.db.Create(doc).Error
}

func (r *DocumentRepository) GetByID(id string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetByFingerprint 按内容指纹查找，不存在时返回 nil, nil
func (r *DocumentRepository) GetByFingerprint(fingerprint string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("fingerprint = ?", fingerprint).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) GetByIDs(ids []string) ([]*model.Document, error) {
	var docs []*model.Document
	if len(ids) == 0 {
		return docs, nil
	}
	err := r.db.Where("id IN ?", ids).Order("uploaded_at ASC").Find(&docs).Error
	return docs, err
}

// List 按上传时间倒序列出，kind 为空时返回全部
func (r *DocumentRepository) List(kind string) ([]*model.Document, error) {
	var docs []*model.Document
	query := r.db.Model(&model.Document{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Order("uploaded_at DESC").Find(&docs).Error
	return docs, err
}

func (r *DocumentRepository) Count(kind string) (int64, error) {
	var count int64
	query := r.db.Model(&model.Document{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	err := query.Count(&count).Error
	return count, err
}

// ListStorageKeys 返回所有存储 key，用于清理孤儿文件
func (r *DocumentRepository) ListStorageKeys() ([]string, error) {
	var keys []string
	err := r.db.Model(&model.Document{}).Pluck("storage_key", &keys).Error
	return keys, err
}

func (r *DocumentRepository) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&model.Document{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
