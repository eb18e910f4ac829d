package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/model/dto"
	"github.com/qs3c/rfq_alchemy/internal/pkg/jwt"
	"github.com/qs3c/rfq_alchemy/internal/pkg/queue"
	"github.com/qs3c/rfq_alchemy/internal/repository"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrQueueUnavailable = errors.New("job queue is not available")
)

const (
	JobQueued     = "queued"
	JobProcessing = "processing"
	JobCompleted  = "completed"
	JobFailed     = "failed"
	JobCancelled  = "cancelled"
)

// JobService 异步任务的登记、入队和状态查询
type JobService struct {
	jobRepo *repository.JobRepository
	queue   *queue.Queue // 未配置 redis 时为 nil
	cfg     *config.Config
}

func NewJobService(jobRepo *repository.JobRepository, q *queue.Queue, cfg *config.Config) *JobService {
	return &JobService{jobRepo: jobRepo, queue: q, cfg: cfg}
}

// Submit 写任务记录并入队，返回任务和 WebSocket 票据
func (s *JobService) Submit(ctx context.Context, job *model.AnalysisJob) (string, error) {
	if s.queue == nil {
		return "", ErrQueueUnavailable
	}
	job.Status = JobQueued
	if err := s.jobRepo.Create(job); err != nil {
		return "", err
	}

	msg := &queue.JobMessage{
		JobID:          job.ID,
		SessionID:      job.SessionID,
		JobType:        job.JobType,
		RFPDocumentID:  job.RFPDocumentID,
		DocumentIDs:    splitIDs(job.DocumentIDs),
		IncludeHistory: job.IncludeHistory,
		ModelName:      job.ModelName,
	}
	if err := s.queue.Push(ctx, msg); err != nil {
		log.Printf("Failed to push job %d: %v", job.ID, err)
		job.Status = JobFailed
		job.ErrorMessage = "failed to enqueue"
		if uErr := s.jobRepo.Update(job); uErr != nil {
			log.Printf("Failed to mark job %d failed: %v", job.ID, uErr)
		}
		return "", ErrQueueUnavailable
	}

	token, err := jwt.GenerateToken(job.SessionID, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return "", fmt.Errorf("generate ws token: %w", err)
	}
	return token, nil
}

func (s *JobService) Get(id int64) (*dto.JobStatus, error) {
	job, err := s.jobRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &dto.JobStatus{
		JobID:          job.ID,
		SessionID:      job.SessionID,
		JobType:        job.JobType,
		Status:         job.Status,
		CurrentStep:    job.CurrentStep,
		ErrorMessage:   job.ErrorMessage,
		ElapsedSeconds: job.ElapsedSeconds,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
	}, nil
}

// CancelSession 取消会话下还在排队的任务
func (s *JobService) CancelSession(sessionID string) error {
	return s.jobRepo.CancelBySessionID(sessionID)
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// Available 是否配置了队列
func (s *JobService) Available() bool {
	return s != nil && s.queue != nil
}
