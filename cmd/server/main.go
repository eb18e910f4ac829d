package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/api"
	"github.com/qs3c/rfq_alchemy/internal/api/handler"
	"github.com/qs3c/rfq_alchemy/internal/app"
	"github.com/qs3c/rfq_alchemy/internal/pkg/cron"
	"github.com/qs3c/rfq_alchemy/internal/pkg/inbox"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pubsub"
	"github.com/qs3c/rfq_alchemy/internal/pkg/ws"
	"github.com/qs3c/rfq_alchemy/internal/service"
	"github.com/qs3c/rfq_alchemy/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, app.Options{Reindex: true})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer a.Close()

	// 初始化 WebSocket Hub
	wsHub := ws.NewHub()

	var wg sync.WaitGroup

	// 进度消息转发到 WebSocket
	if a.Redis != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subscriber := pubsub.NewSubscriber(a.Redis)
			err := subscriber.Subscribe(ctx, func(msg *pubsub.ProgressMessage) {
				if err := wsHub.SendToSession(msg.SessionID, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
					log.Printf("Failed to forward progress of session %s: %v", msg.SessionID, err)
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("Progress subscriber stopped: %v", err)
			}
		}()
	}

	// 进程内 worker；内存会话存储只能用这种方式
	if a.Queue != nil && cfg.Queue.InProcess {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(ctx, a.Queue, a.Processor(), cfg.Queue.MaxWorkers)
		}()
		log.Printf("In-process workers started: %d", cfg.Queue.MaxWorkers)
	}

	// 定时清理
	evicter, _ := a.Sessions.(cron.IdleEvicter)
	cronService := cron.NewService(evicter, a.JobRepo, cfg.Upload.TempDir, cfg.Upload.ExpireHours, cfg.Session.TTLHours)
	cronService.Start()
	defer cronService.Stop()

	// 收件箱目录自动导入
	if cfg.Inbox.Dir != "" {
		watcher := inbox.NewWatcher(cfg.Inbox.Dir, ingestFile(a.Docs, cfg.Inbox.Kind))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := watcher.Run(ctx); err != nil {
				log.Printf("Inbox watcher stopped: %v", err)
			}
		}()
	}

	// 初始化 Handler
	documentHandler := handler.NewDocumentHandler(a.Docs, a.Index)
	optimizationHandler := handler.NewOptimizationHandler(a.Opt)
	comparisonHandler := handler.NewComparisonHandler(a.Cmp)
	chatHandler := handler.NewChatHandler(a.Chat)
	jobHandler := handler.NewJobHandler(a.Jobs)
	healthHandler := handler.NewHealthHandler(a.DB, a.Redis, wsHub, a.LLM.Model(), cfg)
	websocketHandler := handler.NewWebSocketHandler(wsHub)

	// 初始化 Router
	router := api.NewRouter(
		documentHandler,
		optimizationHandler,
		comparisonHandler,
		chatHandler,
		jobHandler,
		healthHandler,
		websocketHandler,
		cfg,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.Setup(),
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	cancel()
	wg.Wait()
	log.Println("Server shutdown complete")
}

// ingestFile 收件箱文件走和上传接口相同的导入流程，重复文件视为成功
func ingestFile(docs *service.DocumentService, kind string) inbox.IngestFunc {
	return func(ctx context.Context, path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		res, err := docs.Ingest(ctx, service.UploadInput{
			Filename: path,
			Size:     int64(len(data)),
			Reader:   bytes.NewReader(data),
			Kind:     kind,
		})
		var dup *service.DuplicateError
		if errors.As(err, &dup) {
			log.Printf("Inbox file %s already uploaded as %s", path, dup.ExistingID)
			return nil
		}
		if err != nil {
			return err
		}
		log.Printf("Inbox file %s stored as document %s", path, res.Document.ID)
		return nil
	}
}
