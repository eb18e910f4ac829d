package app

import (
	"context"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/database"
	"github.com/qs3c/rfq_alchemy/internal/embedding"
	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pdf"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pubsub"
	"github.com/qs3c/rfq_alchemy/internal/pkg/queue"
	"github.com/qs3c/rfq_alchemy/internal/pkg/storage"
	"github.com/qs3c/rfq_alchemy/internal/repository"
	"github.com/qs3c/rfq_alchemy/internal/service"
	"github.com/qs3c/rfq_alchemy/internal/session"
	"github.com/qs3c/rfq_alchemy/internal/vectorindex"
	"github.com/qs3c/rfq_alchemy/internal/worker"
)

// Options 各个命令对依赖的要求不同
type Options struct {
	RequireRedis bool // worker 进程没有 Redis 无法工作
	Reindex      bool // 内存索引启动时需要从数据库重建
}

// App 所有命令共用的依赖装配
type App struct {
	Cfg      *config.Config
	DB       *gorm.DB
	Redis    *redis.Client // 不可用时为 nil
	Store    storage.Store
	Sessions session.Store
	LLM      llm.Client
	Queue    *queue.Queue // 没有 Redis 时为 nil，异步模式不可用

	JobRepo *repository.JobRepository
	Index   *service.IndexService
	Docs    *service.DocumentService
	Jobs    *service.JobService
	Opt     *service.OptimizationService
	Cmp     *service.ComparisonService
	Chat    *service.ChatService
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{Cfg: cfg}

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.DB = db
	log.Printf("Database connected (%s)", driverName(cfg.Database.Driver))

	needRedis := opts.RequireRedis || cfg.Session.Backend == "redis"
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		if needRedis {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		log.Printf("Warning: Redis unavailable, async analysis disabled: %v", err)
	} else {
		a.Redis = rdb
		a.Queue = queue.NewQueue(rdb, cfg.Queue.AnalysisQueue)
		log.Println("Redis connected")
	}

	store, err := storage.New(ctx, &cfg.Storage, cfg.Upload.Dir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	a.Store = store

	sessions, err := session.New(&cfg.Session, a.Redis)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init session store: %w", err)
	}
	a.Sessions = sessions

	vectors, err := vectorindex.New(ctx, &cfg.Vector)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init vector index: %w", err)
	}
	docRepo := repository.NewDocumentRepository(db)
	a.Index = service.NewIndexService(embedding.New(&cfg.Embedding), vectors, docRepo, cfg.Vector)
	if err := a.Index.Init(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("init vector index: %w", err)
	}
	if opts.Reindex {
		n, err := a.Index.Reindex(ctx)
		if err != nil {
			log.Printf("Warning: reindex failed: %v", err)
		} else {
			log.Printf("Indexed %d documents", n)
		}
	}

	a.LLM = llm.New(&cfg.LLM)
	log.Printf("LLM client ready (%s)", a.LLM.Model())

	a.JobRepo = repository.NewJobRepository(db)
	a.Docs = service.NewDocumentService(docRepo, store, pdf.NewTextExtractor(), a.Index, cfg)
	a.Jobs = service.NewJobService(a.JobRepo, a.Queue, cfg)
	a.Opt = service.NewOptimizationService(a.Docs, sessions, a.Jobs, a.LLM, cfg)
	a.Cmp = service.NewComparisonService(a.Docs, a.Index, sessions, a.Jobs, a.LLM, cfg)
	a.Chat = service.NewChatService(a.Docs, a.Index, sessions, a.LLM, cfg)
	return a, nil
}

// Processor 任务处理器；有 Redis 时通过 pub/sub 推送进度
func (a *App) Processor() *worker.Processor {
	var publisher worker.ProgressPublisher
	if a.Redis != nil {
		publisher = pubsub.NewPublisher(a.Redis)
	}
	return worker.NewProcessor(a.JobRepo, a.Opt, a.Cmp, publisher)
}

func (a *App) Close() {
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			log.Printf("Failed to close vector index: %v", err)
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		if sqlDB, err := a.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}

func driverName(driver string) string {
	if driver == "" {
		return "sqlite"
	}
	return driver
}
