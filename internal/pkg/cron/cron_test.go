package cron

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/repository"
	"github.com/qs3c/rfq_alchemy/internal/testutil"
)

type fakeEvicter struct {
	maxIdle time.Duration
	evicted int
}

func (f *fakeEvicter) EvictIdle(ctx context.Context, maxIdle time.Duration) (int, error) {
	f.maxIdle = maxIdle
	return f.evicted, nil
}

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0644))
	old := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, old, old))
	return path
}

func TestCleanupSpools(t *testing.T) {
	dir := t.TempDir()
	stale := writeAged(t, dir, "upload-123.pdf", 3*time.Hour)
	fresh := writeAged(t, dir, "upload-456.pdf", time.Minute)
	other := writeAged(t, dir, "keep.pdf", 3*time.Hour)

	n, err := CleanupSpools(dir, time.Hour, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.FileExists(t, stale, "dry run must not delete")

	n, err = CleanupSpools(dir, time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
	assert.FileExists(t, other)
}

func TestCleanupSpools_MissingDir(t *testing.T) {
	n, err := CleanupSpools(filepath.Join(t.TempDir(), "nope"), time.Hour, false)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = CleanupSpools("", time.Hour, false)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestService_RunNow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	jobRepo := repository.NewJobRepository(db)

	started := time.Now().Add(-2 * time.Hour)
	stuck := &model.AnalysisJob{SessionID: "rfp_opt_1", JobType: model.JobTypeOptimization, Status: "processing", StartedAt: &started}
	require.NoError(t, jobRepo.Create(stuck))
	recent := time.Now()
	running := &model.AnalysisJob{SessionID: "rfp_opt_2", JobType: model.JobTypeOptimization, Status: "processing", StartedAt: &recent}
	require.NoError(t, jobRepo.Create(running))

	dir := t.TempDir()
	writeAged(t, dir, "upload-1.pdf", 2*time.Hour)

	evicter := &fakeEvicter{evicted: 2}
	svc := NewService(evicter, jobRepo, dir, 1, 24)

	spools, sessions, jobs := svc.RunNow()
	assert.Equal(t, 1, spools)
	assert.Equal(t, 2, sessions)
	assert.Equal(t, 1, jobs)
	assert.Equal(t, 24*time.Hour, evicter.maxIdle)

	got, err := jobRepo.GetByID(stuck.ID)
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "worker timeout", got.ErrorMessage)

	got, err = jobRepo.GetByID(running.ID)
	require.NoError(t, err)
	assert.Equal(t, "processing", got.Status)
}

func TestService_NilDependencies(t *testing.T) {
	svc := NewService(nil, nil, "", 0, 0)
	spools, sessions, jobs := svc.RunNow()
	assert.Zero(t, spools+sessions+jobs)

	svc.Start()
	svc.Stop()
}
