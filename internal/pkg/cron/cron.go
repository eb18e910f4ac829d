package cron

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/qs3c/rfq_alchemy/internal/repository"
)

// SpoolPrefix 上传临时文件的前缀，和 DocumentService 保持一致
const SpoolPrefix = "upload-"

// staleJobAfter processing 超过这个时间视为 worker 已退出
const staleJobAfter = time.Hour

// IdleEvicter 可以按空闲时间淘汰会话的存储（内存存储；Redis 自带 TTL）
type IdleEvicter interface {
	EvictIdle(ctx context.Context, maxIdle time.Duration) (int, error)
}

type Service struct {
	sessions      IdleEvicter // 可以为 nil
	jobRepo       *repository.JobRepository
	uploadTempDir string
	expireHours   int
	sessionTTL    time.Duration
	interval      time.Duration
	stopChan      chan struct{}
}

func NewService(
	sessions IdleEvicter,
	jobRepo *repository.JobRepository,
	uploadTempDir string,
	expireHours int,
	sessionTTLHours int,
) *Service {
	return &Service{
		sessions:      sessions,
		jobRepo:       jobRepo,
		uploadTempDir: uploadTempDir,
		expireHours:   expireHours,
		sessionTTL:    time.Duration(sessionTTLHours) * time.Hour,
		interval:      time.Hour,
		stopChan:      make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runCleanup()
	log.Println("Cron service started (session eviction + temp cleanup + stale jobs)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runCleanup 每小时执行一次全量清理
func (s *Service) runCleanup() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunNow()
		}
	}
}

// RunNow 立即执行所有清理任务，返回各项清理数量
func (s *Service) RunNow() (spools, sessions, jobs int) {
	expireHours := s.expireHours
	if expireHours <= 0 {
		expireHours = 1
	}

	spools, err := CleanupSpools(s.uploadTempDir, time.Duration(expireHours)*time.Hour, false)
	if err != nil {
		log.Printf("Cleanup spools: %v", err)
	}
	sessions = s.evictSessions()
	jobs = s.resetStaleJobs()

	if spools+sessions+jobs > 0 {
		log.Printf("Cleanup summary: spools=%d, sessions=%d, stale_jobs=%d", spools, sessions, jobs)
	}
	return spools, sessions, jobs
}

func (s *Service) evictSessions() int {
	if s.sessions == nil || s.sessionTTL <= 0 {
		return 0
	}
	n, err := s.sessions.EvictIdle(context.Background(), s.sessionTTL)
	if err != nil {
		log.Printf("Cleanup sessions: %v", err)
	}
	return n
}

func (s *Service) resetStaleJobs() int {
	if s.jobRepo == nil {
		return 0
	}
	n, err := s.jobRepo.ResetStale(time.Now().Add(-staleJobAfter))
	if err != nil {
		log.Printf("Cleanup stale jobs: %v", err)
		return 0
	}
	return int(n)
}

// CleanupSpools 删除 dir 下过期的上传临时文件；dryRun 只计数
func CleanupSpools(dir string, olderThan time.Duration, dryRun bool) (int, error) {
	if dir == "" {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cleaned := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), SpoolPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || time.Since(info.ModTime()) <= olderThan {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		if dryRun {
			log.Printf("[dry-run] would remove spool %s", path)
			cleaned++
			continue
		}
		if err := os.Remove(path); err != nil {
			log.Printf("Cleanup spools: failed to remove %s: %v", path, err)
			continue
		}
		cleaned++
	}
	return cleaned, nil
}
