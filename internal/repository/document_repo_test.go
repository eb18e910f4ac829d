package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/testutil"
)

func TestDocumentRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDocumentRepository(db)
	doc := &model.Document{
		ID:          "doc-1",
		Kind:        model.DocumentKindRFP,
		Filename:    "rfp.pdf",
		Title:       "Rfp",
		Size:        100,
		Fingerprint: "abc",
		UploadedAt:  time.Now(),
	}

	require.NoError(t, repo.Create(doc))

	found, err := repo.GetByID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, model.DocumentKindRFP, found.Kind)
	assert.Equal(t, "rfp.pdf", found.Filename)
}

func TestDocumentRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDocumentRepository(db)

	_, err := repo.GetByID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDocumentRepository_GetByFingerprint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDocumentRepository(db)
	doc := testutil.TestDocument(t, db)

	found, err := repo.GetByFingerprint(doc.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, doc.ID, found.ID)

	missing, err := repo.GetByFingerprint("nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDocumentRepository_Create_DuplicateFingerprint(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDocumentRepository(db)
	doc := testutil.TestDocument(t, db)

	clone := *doc
	clone.ID = "another-id"
	clone.StorageKey = "documents/another-id/proposal.pdf"
	err := repo.Create(&clone)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestDocumentRepository_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDocumentRepository(db)
	older := testutil.TestDocument(t, db, testutil.WithUploadedAt(time.Now().Add(-time.Hour)))
	newer := testutil.TestDocument(t, db)
	rfp := testutil.TestDocument(t, db, testutil.WithKind(model.DocumentKindRFP))

	t.Run("all kinds newest first", func(t *testing.T) {
		docs, err := repo.List("")
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, older.ID, docs[2].ID)
	})

	t.Run("filter by kind", func(t *testing.T) {
		docs, err := repo.List(model.DocumentKindProposal)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		ids := []string{docs[0].ID, docs[1].ID}
		assert.Contains(t, ids, newer.ID)
		assert.NotContains(t, ids, rfp.ID)
	})

	t.Run("count", func(t *testing.T) {
		count, err := repo.Count(model.DocumentKindRFP)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestDocumentRepository_GetByIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDocumentRepository(db)
	a := testutil.TestDocument(t, db)
	b := testutil.TestDocument(t, db)
	testutil.TestDocument(t, db)

	docs, err := repo.GetByIDs([]string{a.ID, b.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	empty, err := repo.GetByIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDocumentRepository_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDocumentRepository(db)
	doc := testutil.TestDocument(t, db)

	require.NoError(t, repo.Delete(doc.ID))

	_, err := repo.GetByID(doc.ID)
	assert.Error(t, err)

	err = repo.Delete(doc.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDocumentRepository_ListStorageKeys(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDocumentRepository(db)
	a := testutil.TestDocument(t, db)
	b := testutil.TestDocument(t, db)

	keys, err := repo.ListStorageKeys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.StorageKey, b.StorageKey}, keys)
}
