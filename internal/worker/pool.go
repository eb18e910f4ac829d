package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/qs3c/rfq_alchemy/internal/pkg/queue"
)

const popTimeout = 5 * time.Second

// JobSource 任务来源，生产环境是 Redis 队列
type JobSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.JobMessage, error)
}

// Run 启动 n 个 worker 循环，ctx 结束后等待正在处理的任务返回
func Run(ctx context.Context, source JobSource, processor *Processor, n int) {
	if n <= 0 {
		n = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			loop(ctx, workerID, source, processor)
		}(i)
	}
	wg.Wait()
}

func loop(ctx context.Context, workerID int, source JobSource, processor *Processor) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d shutting down", workerID)
			return
		default:
		}

		msg, err := source.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Worker %d: failed to pop job: %v", workerID, err)
			// Redis 不可用时避免空转
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if msg == nil {
			continue // 超时，继续等待
		}

		log.Printf("Worker %d: processing job %d (%s)", workerID, msg.JobID, msg.JobType)
		if err := processor.Process(ctx, msg); err != nil {
			log.Printf("Worker %d: job %d failed: %v", workerID, msg.JobID, err)
		}
	}
}
