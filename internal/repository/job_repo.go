package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(job *model.AnalysisJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.AnalysisJob, error) {
	var job model.AnalysisJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// GetBySessionID 返回会话最近的一个任务
func (r *JobRepository) GetBySessionID(sessionID string) (*model.AnalysisJob, error) {
	var job model.AnalysisJob
	err := r.db.Where("session_id = ?", sessionID).Order("created_at DESC, id DESC").First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.AnalysisJob) error {
	return r.db.Save(job).Error
}

func (r *JobRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.AnalysisJob{}).Where("id = ?", id).Update("status", status).Error
}

func (r *JobRepository) UpdateStep(id int64, step string) error {
	return r.db.Model(&model.AnalysisJob{}).Where("id = ?", id).Update("current_step", step).Error
}

// GetPendingJobs 获取待处理的任务
func (r *JobRepository) GetPendingJobs(limit int) ([]*model.AnalysisJob, error) {
	var jobs []*model.AnalysisJob
	err := r.db.Where("status = ?", "queued").
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// CancelBySessionID 取消会话下未完成的任务
func (r *JobRepository) CancelBySessionID(sessionID string) error {
	return r.db.Model(&model.AnalysisJob{}).
		Where("session_id = ? AND status IN ?", sessionID, []string{"queued", "processing"}).
		Update("status", "cancelled").Error
}

// DeleteFinishedBefore 删除早于指定时间的已结束任务，返回删除条数
func (r *JobRepository) DeleteFinishedBefore(before time.Time, dryRun bool) (int64, error) {
	query := r.db.Model(&model.AnalysisJob{}).
		Where("status IN ? AND created_at < ?", []string{"completed", "failed", "cancelled"}, before)
	if dryRun {
		var count int64
		err := query.Count(&count).Error
		return count, err
	}
	result := query.Delete(&model.AnalysisJob{})
	return result.RowsAffected, result.Error
}

// ResetStale 把长时间卡在 processing 的任务标记为失败（worker 异常退出）
func (r *JobRepository) ResetStale(before time.Time) (int64, error) {
	result := r.db.Model(&model.AnalysisJob{}).
		Where("status = ? AND started_at < ?", "processing", before).
		Updates(map[string]interface{}{"status": "failed", "error_message": "worker timeout"})
	return result.RowsAffected, result.Error
}
