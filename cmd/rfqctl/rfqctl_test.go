package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/rfq_alchemy/config"
	"github.com/qs3c/rfq_alchemy/internal/app"
	"github.com/qs3c/rfq_alchemy/internal/embedding"
	"github.com/qs3c/rfq_alchemy/internal/llm"
	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pdf"
	"github.com/qs3c/rfq_alchemy/internal/pkg/storage"
	"github.com/qs3c/rfq_alchemy/internal/repository"
	"github.com/qs3c/rfq_alchemy/internal/service"
	"github.com/qs3c/rfq_alchemy/internal/session"
	"github.com/qs3c/rfq_alchemy/internal/testutil"
	"github.com/qs3c/rfq_alchemy/internal/vectorindex"
)

const pdfHeader = "%PDF-1.4\n"

type textExtractor struct{}

func (textExtractor) Extract(path string) (*pdf.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &pdf.Result{Text: strings.TrimPrefix(string(data), pdfHeader), PageCount: 1}, nil
}

// setupApp 注入测试用的 App，PersistentPreRunE 不再读取配置
func setupApp(t *testing.T) *app.App {
	t.Helper()

	db := testutil.SetupTestDB(t)
	cfg := &config.Config{
		Upload:   config.UploadConfig{MaxSize: 1 << 20, TempDir: t.TempDir(), AllowedExtensions: []string{".pdf"}},
		LLM:      config.LLMConfig{MaxTokens: 4000},
		Analysis: config.AnalysisConfig{FallbackMode: "static"},
	}
	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	docRepo := repository.NewDocumentRepository(db)
	index := service.NewIndexService(embedding.NewHashEmbedder(32), vectorindex.NewMemoryIndex(), docRepo, cfg.Vector)
	require.NoError(t, index.Init(context.Background()))

	sessions := session.NewMemoryStore()
	client := llm.NewMockClient()
	jobRepo := repository.NewJobRepository(db)
	docs := service.NewDocumentService(docRepo, store, textExtractor{}, index, cfg)
	jobs := service.NewJobService(jobRepo, nil, cfg)

	a := &app.App{
		Cfg:      cfg,
		DB:       db,
		Store:    store,
		Sessions: sessions,
		LLM:      client,
		JobRepo:  jobRepo,
		Index:    index,
		Docs:     docs,
		Jobs:     jobs,
		Opt:      service.NewOptimizationService(docs, sessions, jobs, client, cfg),
	}
	application = a
	t.Cleanup(func() {
		application = nil
		ingestRFP, listKind, listJSON, searchJSON, analyzeHistorical = false, "", false, false, false
		searchLimit = 3
		testutil.CleanupTestDB(t, db)
	})
	return a
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writePDF(t *testing.T, name, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(pdfHeader+text), 0644))
	return path
}

func TestIngestAndList(t *testing.T) {
	setupApp(t)
	acme := writePDF(t, "acme_cloud.pdf", "Cloud migration proposal from Acme Systems. Budget: $240,000. Timeline: 8 months. Support included.")

	out, err := run(t, "ingest", acme)
	require.NoError(t, err)
	assert.Contains(t, out, "ok     "+acme)

	out, err = run(t, "ingest", acme)
	require.NoError(t, err)
	assert.Contains(t, out, "already stored as")

	out, err = run(t, "ingest", filepath.Join(t.TempDir(), "missing.pdf"))
	assert.Error(t, err)
	assert.Contains(t, out, "error")

	out, err = run(t, "list", "--kind", "proposal", "--json")
	require.NoError(t, err)
	var docs []model.DocumentSnapshot
	require.NoError(t, json.Unmarshal([]byte(out), &docs))
	require.Len(t, docs, 1)
	assert.Equal(t, "Proposal: Acme Cloud", docs[0].Title)
	assert.Equal(t, 240000.0, docs[0].Budget)

	_, err = run(t, "list", "--kind", "invoice")
	assert.Error(t, err)
}

func TestAnalyzeCommand(t *testing.T) {
	setupApp(t)
	rfp := writePDF(t, "crm_rfp.pdf", testutil.SampleRFPText)

	_, err := run(t, "ingest", "--rfp", rfp)
	require.NoError(t, err)
	docs, err := application.Docs.List(model.DocumentKindRFP)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	out, err := run(t, "analyze", docs[0].ID)
	require.NoError(t, err)
	var result model.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, model.AnalysisCompleted, result.Status)
	assert.Equal(t, docs[0].ID, result.RFPDocumentID)

	_, err = run(t, "analyze", "unknown-id")
	assert.Error(t, err)
}

func TestSearchCommand(t *testing.T) {
	setupApp(t)
	path := writePDF(t, "acme.pdf", "Cloud migration proposal from Acme Systems. Budget: $240,000. Timeline: 8 months. Support included.")
	_, err := run(t, "ingest", path)
	require.NoError(t, err)

	out, err := run(t, "search", "cloud migration")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] Proposal: Acme")

	out, err = run(t, "search", "--json", "-n", "1", "cloud")
	require.NoError(t, err)
	var results []service.SearchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	assert.Len(t, results, 1)
}
