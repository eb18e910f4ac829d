package service

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/embedding"
	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pdf"
	"github.com/qs3c/rfq_alchemy/internal/pkg/queue"
	"github.com/qs3c/rfq_alchemy/internal/pkg/storage"
	"github.com/qs3c/rfq_alchemy/internal/repository"
	"github.com/qs3c/rfq_alchemy/internal/session"
	"github.com/qs3c/rfq_alchemy/internal/testutil"
	"github.com/qs3c/rfq_alchemy/internal/vectorindex"
)

const pdfHeader = "%PDF-1.4\n"

// headerExtractor 把 PDF 头之后的字节当作正文
type headerExtractor struct {
	err error
}

func (e headerExtractor) Extract(path string) (*pdf.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &pdf.Result{Text: strings.TrimPrefix(string(data), pdfHeader), PageCount: 1}, nil
}

func pdfBytes(text string) []byte {
	return []byte(pdfHeader + text)
}

type testEnv struct {
	db       *gorm.DB
	cfg      *config.Config
	store    *storage.LocalStore
	vectors  *vectorindex.MemoryIndex
	sessions *session.MemoryStore
	llm      *llm.MockClient
	redis    *miniredis.Miniredis
	client   *redis.Client
	jobRepo  *repository.JobRepository
	docs     *DocumentService
	index    *IndexService
	jobs     *JobService
	opt      *OptimizationService
	cmp      *ComparisonService
	chat     *ChatService
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", ExpireHours: 1},
		Upload: config.UploadConfig{
			MaxSize:           1 << 20,
			TempDir:           t.TempDir(),
			AllowedExtensions: []string{".pdf"},
		},
		LLM:      config.LLMConfig{MaxTokens: 4000, Temperature: 0.1},
		Vector:   config.VectorConfig{SearchK: 3, ChunkSize: 1000, ChunkOverlap: 200},
		Analysis: config.AnalysisConfig{FallbackMode: "static", ContentPreview: 3000},
	}
}

// newTestEnv 组装全部服务；withQueue 时用 miniredis 做任务队列
func newTestEnv(t *testing.T, withQueue bool) *testEnv {
	t.Helper()

	env := &testEnv{
		db:       testutil.SetupTestDB(t),
		cfg:      testConfig(t),
		vectors:  vectorindex.NewMemoryIndex(),
		sessions: session.NewMemoryStore(),
		llm:      llm.NewMockClient(),
	}

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	env.store = store

	docRepo := repository.NewDocumentRepository(env.db)
	env.jobRepo = repository.NewJobRepository(env.db)

	env.index = NewIndexService(embedding.NewHashEmbedder(64), env.vectors, docRepo, env.cfg.Vector)
	require.NoError(t, env.index.Init(context.Background()))
	env.docs = NewDocumentService(docRepo, store, headerExtractor{}, env.index, env.cfg)

	var q *queue.Queue
	if withQueue {
		env.redis = miniredis.RunT(t)
		env.client = redis.NewClient(&redis.Options{Addr: env.redis.Addr()})
		t.Cleanup(func() { env.client.Close() })
		q = queue.NewQueue(env.client, "test_analysis_queue")
	}
	env.jobs = NewJobService(env.jobRepo, q, env.cfg)

	env.opt = NewOptimizationService(env.docs, env.sessions, env.jobs, env.llm, env.cfg)
	env.cmp = NewComparisonService(env.docs, env.index, env.sessions, env.jobs, env.llm, env.cfg)
	env.chat = NewChatService(env.docs, env.index, env.sessions, env.llm, env.cfg)
	return env
}

func (e *testEnv) upload(t *testing.T, filename, kind, text string) *model.Document {
	t.Helper()
	data := pdfBytes(text)
	res, err := e.docs.Ingest(context.Background(), UploadInput{
		Filename: filename,
		Size:     int64(len(data)),
		Reader:   bytes.NewReader(data),
		Kind:     kind,
	})
	require.NoError(t, err)
	return res.Document
}

const (
	cloudProposalText = `Cloud migration proposal from Acme Systems. We will migrate the CRM to a cloud hosted
platform with API integration and security hardening. Budget: $240,000. Timeline: 8 months.
Deliverables include documentation, testing and support for each phase.`
	mobileProposalText = `Mobile app proposal from Beta Labs. A native mobile application with an offline
database and web dashboard. Budget: $95,000. Timeline: 5 months. Includes training and support.`
)
