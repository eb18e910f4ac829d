package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pubsub"
	"github.com/qs3c/rfq_alchemy/internal/pkg/queue"
	"github.com/qs3c/rfq_alchemy/internal/repository"
	"github.com/qs3c/rfq_alchemy/internal/service"
)

// ProgressPublisher 进度推送，生产环境是 Redis pub/sub
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, msg *pubsub.ProgressMessage) error
}

// Processor 任务处理器
type Processor struct {
	jobRepo   *repository.JobRepository
	opt       *service.OptimizationService
	cmp       *service.ComparisonService
	publisher ProgressPublisher
}

// NewProcessor 创建任务处理器；publisher 可以为 nil
func NewProcessor(
	jobRepo *repository.JobRepository,
	opt *service.OptimizationService,
	cmp *service.ComparisonService,
	publisher ProgressPublisher,
) *Processor {
	return &Processor{
		jobRepo:   jobRepo,
		opt:       opt,
		cmp:       cmp,
		publisher: publisher,
	}
}

// Process 处理一个分析任务
func (p *Processor) Process(ctx context.Context, msg *queue.JobMessage) error {
	job, err := p.jobRepo.GetByID(msg.JobID)
	if err != nil {
		return fmt.Errorf("failed to get job: %w", err)
	}
	if job.Status == service.JobCancelled {
		log.Printf("Job %d: cancelled before start, skipping", job.ID)
		return nil
	}

	now := time.Now()
	job.Status = service.JobProcessing
	job.StartedAt = &now
	if err := p.jobRepo.Update(job); err != nil {
		return fmt.Errorf("failed to mark job processing: %w", err)
	}

	publish := func(step, status, errMsg string) {
		if p.publisher == nil {
			return
		}
		err := p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			SessionID: msg.SessionID,
			JobID:     msg.JobID,
			JobType:   msg.JobType,
			Status:    status,
			Step:      step,
			Error:     errMsg,
		})
		if err != nil {
			log.Printf("Job %d: failed to publish progress: %v", job.ID, err)
		}
	}

	progress := func(step string) {
		job.CurrentStep = step
		if err := p.jobRepo.UpdateStep(job.ID, step); err != nil {
			log.Printf("Job %d: failed to update step: %v", job.ID, err)
		}
		if step != pubsub.StepDone {
			publish(step, service.JobProcessing, "")
		}
	}

	sess, runErr := p.run(ctx, msg, progress)

	// 会话在运行期间被删除时任务已被取消，不再覆盖状态
	if latest, err := p.jobRepo.GetByID(job.ID); err == nil && latest.Status == service.JobCancelled {
		log.Printf("Job %d: cancelled while running", job.ID)
		return nil
	}

	completedAt := time.Now()
	job.CompletedAt = &completedAt
	job.ElapsedSeconds = int(completedAt.Sub(now).Seconds())

	switch {
	case runErr != nil:
		job.Status = service.JobFailed
		job.ErrorMessage = runErr.Error()
	case sess.Status == model.SessionFailed:
		// 分析回退到模板：会话里仍有结果，任务本身记为失败
		job.Status = service.JobFailed
		job.ErrorMessage = sess.ErrorMessage
	default:
		job.Status = service.JobCompleted
		job.CurrentStep = pubsub.StepDone
	}
	if err := p.jobRepo.Update(job); err != nil {
		log.Printf("Job %d: failed to save final status: %v", job.ID, err)
	}

	if job.Status == service.JobFailed {
		publish(job.CurrentStep, service.JobFailed, job.ErrorMessage)
		log.Printf("Job %d: failed after %ds: %s", job.ID, job.ElapsedSeconds, job.ErrorMessage)
		return runErr
	}
	publish(pubsub.StepDone, service.JobCompleted, "")
	log.Printf("Job %d: %s session %s completed in %ds", job.ID, msg.JobType, msg.SessionID, job.ElapsedSeconds)
	return nil
}

func (p *Processor) run(ctx context.Context, msg *queue.JobMessage, progress service.ProgressFunc) (*model.Session, error) {
	switch msg.JobType {
	case model.JobTypeOptimization:
		if p.opt == nil {
			return nil, errors.New("optimization service not configured")
		}
		return p.opt.Analyze(ctx, service.AnalyzeInput{
			RFPDocumentID:         msg.RFPDocumentID,
			SessionID:             msg.SessionID,
			IncludeHistoricalData: msg.IncludeHistory,
			Progress:              progress,
		})
	case model.JobTypeComparison:
		if p.cmp == nil {
			return nil, errors.New("comparison service not configured")
		}
		return p.cmp.Start(ctx, service.StartInput{
			RFPDocumentID: msg.RFPDocumentID,
			DocumentIDs:   msg.DocumentIDs,
			SessionID:     msg.SessionID,
			Progress:      progress,
		})
	default:
		return nil, fmt.Errorf("unknown job type %q", msg.JobType)
	}
}
