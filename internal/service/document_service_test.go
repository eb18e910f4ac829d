package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/rfq_alchemy/internal/model"
	"github.com/qs3c/rfq_alchemy/internal/pkg/pdf"
	"github.com/qs3c/rfq_alchemy/internal/testutil"
)

func ingest(env *testEnv, filename string, data []byte) (*IngestResult, error) {
	return env.docs.Ingest(context.Background(), UploadInput{
		Filename: filename,
		Size:     int64(len(data)),
		Reader:   bytes.NewReader(data),
	})
}

func TestIngest_StoresAndIndexes(t *testing.T) {
	env := newTestEnv(t, false)

	res, err := ingest(env, "acme_cloud_migration.pdf", pdfBytes(cloudProposalText))
	require.NoError(t, err)
	assert.True(t, res.Indexed)

	doc := res.Document
	assert.Equal(t, model.DocumentKindProposal, doc.Kind)
	assert.Equal(t, "Proposal: Acme Cloud Migration", doc.Title)
	assert.InDelta(t, 240000, doc.Budget, 0.01)
	assert.Equal(t, 8, doc.TimelineMonths)
	assert.NotEmpty(t, doc.Fingerprint)
	assert.Positive(t, env.vectors.Len())

	_, rc, err := env.docs.Open(context.Background(), doc.ID)
	require.NoError(t, err)
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, pdfBytes(cloudProposalText), raw)
}

func TestIngest_Rejections(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     error
	}{
		{"wrong extension", "notes.txt", pdfBytes(cloudProposalText), ErrInvalidFormat},
		{"not a pdf", "fake.pdf", []byte("just some plain text pretending to be a pdf document"), ErrInvalidFormat},
		{"too little text", "scan.pdf", pdfBytes("page 1"), ErrUnreadablePDF},
		{"too large", "big.pdf", pdfBytes(strings.Repeat("a", 2<<20)), ErrFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ingest(env, tt.filename, tt.data)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	docs, err := env.docs.List("")
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestIngest_UnknownSizeStillLimited(t *testing.T) {
	env := newTestEnv(t, false)

	_, err := env.docs.Ingest(context.Background(), UploadInput{
		Filename: "stream.pdf",
		Size:     -1,
		Reader:   bytes.NewReader(pdfBytes(strings.Repeat("b", 2<<20))),
	})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestIngest_Duplicate(t *testing.T) {
	env := newTestEnv(t, false)

	first, err := ingest(env, "acme.pdf", pdfBytes(cloudProposalText))
	require.NoError(t, err)

	_, err = ingest(env, "acme_copy.pdf", pdfBytes(cloudProposalText))
	require.ErrorIs(t, err, ErrDuplicateDocument)

	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, first.Document.ID, dup.ExistingID)
}

// racingExtractor 在查重之后、入库之前插入一行相同指纹的文档
type racingExtractor struct {
	headerExtractor
	insert func(fingerprint string)
}

func (e racingExtractor) Extract(path string) (*pdf.Result, error) {
	fp, err := fingerprintFile(path)
	if err != nil {
		return nil, err
	}
	e.insert(fp)
	return e.headerExtractor.Extract(path)
}

func TestIngest_ConcurrentDuplicate(t *testing.T) {
	env := newTestEnv(t, false)

	var winner *model.Document
	env.docs.extractor = racingExtractor{insert: func(fp string) {
		winner = testutil.TestDocument(t, env.db, func(d *model.Document) { d.Fingerprint = fp })
	}}

	_, err := ingest(env, "acme.pdf", pdfBytes(cloudProposalText))
	require.ErrorIs(t, err, ErrDuplicateDocument)

	var dup *DuplicateError
	require.True(t, errors.As(err, &dup))
	require.NotNil(t, winner)
	assert.Equal(t, winner.ID, dup.ExistingID)

	docs, err := env.docs.List("")
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestIngest_ExtractionFailure(t *testing.T) {
	env := newTestEnv(t, false)
	env.docs.extractor = headerExtractor{err: errors.New("malformed xref")}

	_, err := ingest(env, "broken.pdf", pdfBytes(cloudProposalText))
	assert.ErrorIs(t, err, ErrUnreadablePDF)
}

func TestDocumentService_GetManyAndDelete(t *testing.T) {
	env := newTestEnv(t, false)
	a := env.upload(t, "acme.pdf", model.DocumentKindProposal, cloudProposalText)
	b := env.upload(t, "beta.pdf", model.DocumentKindProposal, mobileProposalText)

	docs, err := env.docs.GetMany([]string{b.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, b.ID, docs[0].ID)

	_, err = env.docs.GetMany([]string{a.ID, "missing"})
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	require.NoError(t, env.docs.Delete(context.Background(), a.ID))
	_, err = env.docs.Get(a.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)
	_, err = env.store.Get(context.Background(), a.StorageKey)
	assert.Error(t, err)

	assert.ErrorIs(t, env.docs.Delete(context.Background(), a.ID), ErrDocumentNotFound)
}

func TestIndexService_SearchSkipsDeleted(t *testing.T) {
	env := newTestEnv(t, false)
	a := env.upload(t, "acme.pdf", model.DocumentKindProposal, cloudProposalText)
	b := env.upload(t, "beta.pdf", model.DocumentKindProposal, mobileProposalText)

	hits, err := env.index.Search(context.Background(), "cloud migration CRM", 3)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	require.NoError(t, env.docs.Delete(context.Background(), a.ID))
	hits, err = env.index.Search(context.Background(), "cloud migration CRM", 3)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, b.ID, hits[0].DocumentID)
}

func TestIndexService_Reindex(t *testing.T) {
	env := newTestEnv(t, false)
	env.upload(t, "acme.pdf", model.DocumentKindProposal, cloudProposalText)
	env.upload(t, "beta.pdf", model.DocumentKindRFP, mobileProposalText)

	require.NoError(t, env.vectors.Reset(context.Background()))
	assert.Zero(t, env.vectors.Len())

	n, err := env.index.Reindex(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Positive(t, env.vectors.Len())
}
