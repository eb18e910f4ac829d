package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/app"
	"github.com/qs3c/rfq_alchemy/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	// 会话需要和 server 进程共享
	if cfg.Session.Backend != "redis" {
		log.Fatalf("Standalone worker requires session.backend: redis (got %q)", cfg.Session.Backend)
	}

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, app.Options{RequireRedis: true})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	log.Printf("Worker started, max workers: %d", cfg.Queue.MaxWorkers)
	worker.Run(ctx, a.Queue, a.Processor(), cfg.Queue.MaxWorkers)
	log.Println("Worker shutdown complete")
}
