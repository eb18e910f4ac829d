package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/database"
	"github.com/qs3c/rfq_alchemy/internal/pkg/cron"
	"github.com/qs3c/rfq_alchemy/internal/pkg/storage"
	"github.com/qs3c/rfq_alchemy/internal/repository"
)

var (
	dryRun       = flag.Bool("dry-run", true, "Dry run mode, don't actually delete anything")
	spoolExpire  = flag.Int("spool-expire", 24, "Hours to keep temporary upload spools")
	jobExpire    = flag.Int("job-expire", 30, "Days to keep finished analysis jobs")
	cleanSpools  = flag.Bool("clean-spools", true, "Clean expired upload spools")
	cleanOrphans = flag.Bool("clean-orphans", true, "Clean stored objects without a document row (local storage only)")
	cleanJobs    = flag.Bool("clean-jobs", true, "Clean finished jobs")
)

func main() {
	flag.Parse()

	log.Println("🧹 Starting cleanup task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 连接数据库
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	docRepo := repository.NewDocumentRepository(db)
	jobRepo := repository.NewJobRepository(db)

	var spools, orphans int
	var jobs int64

	// 1. 过期的上传临时文件
	if *cleanSpools {
		log.Printf("📦 Cleaning upload spools older than %d hours in %s...", *spoolExpire, cfg.Upload.TempDir)
		spools, err = cron.CleanupSpools(cfg.Upload.TempDir, time.Duration(*spoolExpire)*time.Hour, *dryRun)
		if err != nil {
			log.Printf("Failed to clean spools: %v", err)
		}
	}

	// 2. 没有文档记录的存储对象
	if *cleanOrphans {
		if cfg.Storage.Backend != "" && cfg.Storage.Backend != "local" {
			log.Printf("Skipping orphan scan: storage backend %s is not local", cfg.Storage.Backend)
		} else {
			log.Printf("📄 Scanning %s for orphaned objects...", cfg.Upload.Dir)
			orphans = cleanOrphanObjects(cfg.Upload.Dir, docRepo, *dryRun)
		}
	}

	// 3. 已结束的旧任务
	if *cleanJobs {
		before := time.Now().AddDate(0, 0, -*jobExpire)
		log.Printf("🗂  Cleaning finished jobs created before %s...", before.Format("2006-01-02"))
		jobs, err = jobRepo.DeleteFinishedBefore(before, *dryRun)
		if err != nil {
			log.Printf("Failed to clean jobs: %v", err)
		}
	}

	// 输出统计
	log.Println(strings.Repeat("=", 60))
	log.Println("📊 Cleanup Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Upload spools: %d", spools)
	log.Printf("Orphaned objects: %d", orphans)
	log.Printf("Finished jobs: %d", jobs)
	if *dryRun {
		log.Println("⚠️  DRY RUN MODE - Nothing was actually deleted")
		log.Println("   Run with -dry-run=false to actually delete")
	} else {
		log.Println("✅ Cleanup completed!")
	}
	log.Println(strings.Repeat("=", 60))
}

// cleanOrphanObjects 删除数据库里没有对应文档的原文文件
func cleanOrphanObjects(dir string, docRepo *repository.DocumentRepository, dryRun bool) int {
	store, err := storage.NewLocalStore(dir)
	if err != nil {
		log.Printf("Failed to open local storage: %v", err)
		return 0
	}
	keys, err := store.Keys("documents")
	if err != nil {
		log.Printf("Failed to list stored objects: %v", err)
		return 0
	}
	known, err := docRepo.ListStorageKeys()
	if err != nil {
		log.Printf("Failed to list document storage keys: %v", err)
		return 0
	}
	referenced := make(map[string]struct{}, len(known))
	for _, k := range known {
		referenced[k] = struct{}{}
	}

	count := 0
	for _, key := range keys {
		if _, ok := referenced[key]; ok {
			continue
		}
		log.Printf("  - %s", key)
		count++
		if dryRun {
			continue
		}
		if err := store.Delete(context.Background(), key); err != nil {
			log.Printf("    ❌ Failed to delete: %v", err)
			count--
		}
	}
	log.Printf("Found %s", plural(count, "orphaned object"))
	return count
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
